/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll service and store.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List employees (?last_name= filters)
    POST   /api/employees                  Create employee with optional contracts
    GET    /api/employees/{id}             Get employee details
    PUT    /api/employees/{id}             Replace employee details
    DELETE /api/employees/{id}             Delete employee and dependent rows

  Contracts:
    GET    /api/employees/{id}/contracts   List contracts, newest first
    POST   /api/employees/{id}/contracts   Add contract

  Payroll:
    POST   /api/employees/{id}/payroll     Run payroll for one period
    GET    /api/employees/{id}/payroll     Payroll history, newest first

  Sales:
    GET    /api/employees/{id}/sales       List handset sales
    POST   /api/employees/{id}/sales       Record handset sale

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid input (negative hours, bad dates)
  - 404: Employee or active contract not found
  - 409: Duplicate NI number
  - 422: Contract terms do not fit the contract type
  - 500: Storage failures

  Details carry the error message only. Internal errors are logged with
  the request ID and returned without details.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yeoconnect/payroll/factory"
	"github.com/yeoconnect/payroll/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   payroll.Store
	Service *payroll.Service

	logger zerolog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over store. Payroll runs go through service.
func NewHandler(store payroll.Store, service *payroll.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		Store:   store,
		Service: service,
		logger:  logger,
	}
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees, or those whose last name contains
// the last_name query parameter.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	var (
		employees []payroll.Employee
		err       error
	)
	if lastName := r.URL.Query().Get("last_name"); lastName != "" {
		employees, err = h.Store.SearchEmployees(r.Context(), lastName)
	} else {
		employees, err = h.Store.ListEmployees(r.Context())
	}
	if err != nil {
		h.fail(w, r, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates an employee and stores any contracts in the body.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, contracts, err := req.Records()
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}

	resp, err := h.createEmployee(r, emp, contracts)
	if err != nil {
		h.fail(w, r, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) createEmployee(r *http.Request, emp payroll.Employee, contracts []payroll.Contract) (CreateEmployeeResponse, error) {
	ctx := r.Context()

	id, stored, err := addEmployeeWithContracts(ctx, h.Store, emp, contracts)
	if err != nil {
		return CreateEmployeeResponse{}, err
	}
	saved, err := h.Store.GetEmployee(ctx, id)
	if err != nil {
		return CreateEmployeeResponse{}, err
	}
	if saved == nil {
		return CreateEmployeeResponse{}, &payroll.NotFoundError{Resource: "employee", ID: id}
	}

	resp := CreateEmployeeResponse{
		Employee:  toEmployeeDTO(*saved),
		Contracts: make([]ContractDTO, 0, len(stored)),
	}
	for _, c := range stored {
		resp.Contracts = append(resp.Contracts, toContractDTO(c))
	}
	return resp, nil
}

// addEmployeeWithContracts stores an employee and then its contracts. If a
// contract fails the employee is deleted again, so a retry does not collide
// on the NI number.
func addEmployeeWithContracts(ctx context.Context, store payroll.Registry, emp payroll.Employee, contracts []payroll.Contract) (int64, []payroll.Contract, error) {
	id, err := store.AddEmployee(ctx, emp)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to add employee %s: %w", emp.NINumber, err)
	}

	stored := make([]payroll.Contract, 0, len(contracts))
	for _, c := range contracts {
		c.EmployeeID = id
		c.ID, err = store.AddContract(ctx, c)
		if err != nil {
			err = fmt.Errorf("failed to add contract for employee %d: %w", id, err)
			if delErr := store.DeleteEmployee(ctx, id); delErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to roll back employee %d: %w", id, delErr))
			}
			return 0, nil, err
		}
		stored = append(stored, c)
	}
	return id, stored, nil
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// UpdateEmployee replaces an employee's details.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req factory.EmployeeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := req.ToEmployee()
	if err != nil {
		h.fail(w, r, "Invalid employee", err)
		return
	}
	emp.ID = id

	if err := h.Store.UpdateEmployee(r.Context(), emp); err != nil {
		h.fail(w, r, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee with their contracts, runs and sales.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns an employee's contracts, newest first.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingEmployee(w, r)
	if !ok {
		return
	}

	contracts, err := h.Store.ListContracts(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract adds a contract. Terms are checked against the contract
// type when payroll runs, not here.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req factory.ContractJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	contract, err := req.ToContract(id)
	if err != nil {
		h.fail(w, r, "Invalid contract", err)
		return
	}

	contract.ID, err = h.Store.AddContract(r.Context(), contract)
	if err != nil {
		h.fail(w, r, "Failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(contract))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// RunPayroll computes and records gross pay for one pay period.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req RunPayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	runReq, err := toRunRequest(id, req)
	if err != nil {
		h.fail(w, r, "Invalid payroll request", err)
		return
	}

	run, err := h.Service.RunPayrollForEmployee(r.Context(), runReq)
	if err != nil {
		h.fail(w, r, "Payroll run failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayrollRunDTO(run))
}

func toRunRequest(employeeID int64, req RunPayrollRequest) (payroll.RunRequest, error) {
	if req.HoursWorked == nil {
		return payroll.RunRequest{}, &payroll.InputError{Field: "hours_worked", Reason: "is required"}
	}
	hours, err := payroll.HoursFromFloat(*req.HoursWorked)
	if err != nil {
		return payroll.RunRequest{}, err
	}
	start, err := factory.ParseDate("pay_period_start", req.PayPeriodStart)
	if err != nil {
		return payroll.RunRequest{}, err
	}
	end, err := factory.ParseDate("pay_period_end", req.PayPeriodEnd)
	if err != nil {
		return payroll.RunRequest{}, err
	}
	return payroll.RunRequest{
		EmployeeID:     employeeID,
		HoursWorked:    hours,
		PayPeriodStart: start,
		PayPeriodEnd:   end,
	}, nil
}

// PayrollHistory lists an employee's payroll runs, newest first.
func (h *Handler) PayrollHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	runs, err := h.Service.PayrollHistory(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get payroll history", err)
		return
	}

	dtos := make([]PayrollRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toPayrollRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SALES HANDLERS
// =============================================================================

// ListPhoneSales returns an employee's handset sales.
func (h *Handler) ListPhoneSales(w http.ResponseWriter, r *http.Request) {
	id, ok := h.existingEmployee(w, r)
	if !ok {
		return
	}

	sales, err := h.Store.ListPhoneSales(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to list sales", err)
		return
	}

	dtos := make([]PhoneSaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toPhoneSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePhoneSale records a handset sale.
func (h *Handler) CreatePhoneSale(w http.ResponseWriter, r *http.Request) {
	id, ok := employeeID(w, r)
	if !ok {
		return
	}

	var req factory.PhoneSaleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	sale, err := req.ToPhoneSale(id)
	if err != nil {
		h.fail(w, r, "Invalid sale", err)
		return
	}

	sale.ID, err = h.Store.AddPhoneSale(r.Context(), sale)
	if err != nil {
		h.fail(w, r, "Failed to record sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPhoneSaleDTO(sale))
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid employee ID", nil)
		return 0, false
	}
	return id, true
}

// existingEmployee parses the ID and writes 404 when nobody has it, so list
// endpoints do not return an empty list for a missing employee.
func (h *Handler) existingEmployee(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := employeeID(w, r)
	if !ok {
		return 0, false
	}
	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get employee", err)
		return 0, false
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return 0, false
	}
	return id, true
}

// fail maps a domain error to its status. Internal errors are logged and
// their details withheld.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(message)
		writeJSON(w, status, ErrorResponse{Error: message, Code: code})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}

func classify(err error) (int, string) {
	var (
		inputErr      *payroll.InputError
		validationErr *payroll.ValidationError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, "invalid_contract"
	case payroll.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, payroll.ErrDuplicateNINumber):
		return http.StatusConflict, "duplicate_ni_number"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func fixedPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

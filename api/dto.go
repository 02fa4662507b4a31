/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the payroll records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest (wraps factory.EmployeeDocument)

  Contract:
    ContractDTO (create requests use factory.ContractJSON)

  Payroll:
    RunPayrollRequest, PayrollRunDTO

  Sales:
    PhoneSaleDTO (create requests use factory.PhoneSaleJSON)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are serialized as decimal strings with two places ("534.00"),
  never as JSON floats. gross_pay_display carries the sterling form.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: JSON record schema
*/
package api

import (
	"time"

	"github.com/yeoconnect/payroll/factory"
	"github.com/yeoconnect/payroll/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID int64 `json:"id"`
	factory.EmployeeJSON
}

// CreateEmployeeRequest is the body of POST /api/employees. Contracts are
// optional and stored after the employee.
type CreateEmployeeRequest = factory.EmployeeDocument

// CreateEmployeeResponse returns the new employee and any contracts stored
// with it.
type CreateEmployeeResponse struct {
	Employee  EmployeeDTO   `json:"employee"`
	Contracts []ContractDTO `json:"contracts"`
}

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID            int64   `json:"id"`
	EmployeeID    int64   `json:"employee_id"`
	BaseSalary    *string `json:"base_salary"`
	HourlyRate    *string `json:"hourly_rate"`
	ContractHours *string `json:"contract_hours"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
}

// RunPayrollRequest is the body of POST /api/employees/{id}/payroll.
type RunPayrollRequest struct {
	HoursWorked    *float64 `json:"hours_worked"`
	PayPeriodStart string   `json:"pay_period_start"`
	PayPeriodEnd   string   `json:"pay_period_end"`
}

// PayrollRunDTO represents a stored payroll run.
type PayrollRunDTO struct {
	ID                       int64     `json:"id"`
	EmployeeID               int64     `json:"employee_id"`
	PayPeriodStart           string    `json:"pay_period_start"`
	PayPeriodEnd             string    `json:"pay_period_end"`
	HoursWorked              string    `json:"hours_worked"`
	GrossPay                 string    `json:"gross_pay"`
	GrossPayDisplay          string    `json:"gross_pay_display"`
	LocationWeightingApplied bool      `json:"location_weighting_applied"`
	CreatedAt                time.Time `json:"created_at"`
}

// PhoneSaleDTO represents a handset sale.
type PhoneSaleDTO struct {
	ID           int64  `json:"id"`
	EmployeeID   int64  `json:"employee_id"`
	HandsetModel string `json:"handset_model"`
	SaleDate     string `json:"sale_date"`
	SalePrice    string `json:"sale_price"`
	Commission   string `json:"commission"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse lists the employees a scenario created.
type LoadScenarioResponse struct {
	Status     string        `json:"status"`
	ScenarioID string        `json:"scenario_id"`
	Employees  []EmployeeDTO `json:"employees"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(emp payroll.Employee) EmployeeDTO {
	return EmployeeDTO{ID: emp.ID, EmployeeJSON: factory.FromEmployee(emp)}
}

func toContractDTO(c payroll.Contract) ContractDTO {
	dto := ContractDTO{
		ID:            c.ID,
		EmployeeID:    c.EmployeeID,
		BaseSalary:    fixedPtr(c.BaseSalary),
		HourlyRate:    fixedPtr(c.HourlyRate),
		ContractHours: fixedPtr(c.ContractHours),
		EffectiveFrom: c.EffectiveFrom.Format(factory.DateLayout),
	}
	if c.EffectiveTo != nil {
		s := c.EffectiveTo.Format(factory.DateLayout)
		dto.EffectiveTo = &s
	}
	return dto
}

func toPayrollRunDTO(run payroll.PayrollRun) PayrollRunDTO {
	return PayrollRunDTO{
		ID:                       run.ID,
		EmployeeID:               run.EmployeeID,
		PayPeriodStart:           run.PayPeriodStart.Format(factory.DateLayout),
		PayPeriodEnd:             run.PayPeriodEnd.Format(factory.DateLayout),
		HoursWorked:              run.HoursWorked.String(),
		GrossPay:                 run.GrossPay.StringFixed(2),
		GrossPayDisplay:          run.GrossPayDisplay(),
		LocationWeightingApplied: run.LocationWeightingApplied,
		CreatedAt:                run.CreatedAt,
	}
}

func toPhoneSaleDTO(s payroll.PhoneSale) PhoneSaleDTO {
	return PhoneSaleDTO{
		ID:           s.ID,
		EmployeeID:   s.EmployeeID,
		HandsetModel: s.HandsetModel,
		SaleDate:     s.SaleDate.Format(factory.DateLayout),
		SalePrice:    s.SalePrice.StringFixed(2),
		Commission:   s.Commission.StringFixed(2),
	}
}

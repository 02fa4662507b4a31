/*
service.go - Payroll run orchestration

PURPOSE:
  Runs payroll for one employee over one pay period: looks up the employee
  and their active contract, resolves the pay strategy, computes gross pay,
  and appends a PayrollRun to storage.

FLOW:
  1. Validate hours (non-negative) and period (end not before start)
  2. Gateway.GetEmployee        -> NotFoundError if absent
  3. Gateway.GetActiveContract  -> NotFoundError if absent
  4. Resolver.Resolve           -> ValidationError propagated unchanged
  5. strategy.GrossPay(hours)
  6. Gateway.InsertPayrollRun   -> run returned with its new ID

ATOMICITY:
  Only step 6 writes, as a single insert. Either the run is stored or
  nothing is. Steps 2-6 are not wrapped in one transaction, so a contract
  edited between read and write is not detected.

IDEMPOTENCY:
  None. Two identical calls store two runs. Nothing is retried: every
  failure here is a caller or data problem, not a transient one.

SEE ALSO:
  - resolver.go: Strategy selection
  - store.go: Gateway contract
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrStoreRequired is returned when an operation needs more than Gateway.
var ErrStoreRequired = errors.New("operation requires extended store interface")

// RunRequest holds the caller-supplied inputs of a payroll run.
type RunRequest struct {
	EmployeeID     int64
	HoursWorked    decimal.Decimal
	PayPeriodStart time.Time
	PayPeriodEnd   time.Time
}

// Service orchestrates payroll runs against a Gateway.
type Service struct {
	gateway  Gateway
	resolver *Resolver
	logger   zerolog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithResolver replaces the default London-weighting resolver.
func WithResolver(r *Resolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the source of CreatedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a payroll service over gateway.
func NewService(gateway Gateway, opts ...Option) *Service {
	s := &Service{
		gateway:  gateway,
		resolver: DefaultResolver(),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunPayrollForEmployee computes and records gross pay for one employee.
func (s *Service) RunPayrollForEmployee(ctx context.Context, req RunRequest) (PayrollRun, error) {
	log := s.logger.With().Int64("employee_id", req.EmployeeID).Logger()

	run, err := s.runPayroll(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("payroll run failed")
		return PayrollRun{}, err
	}

	log.Info().
		Int64("run_id", run.ID).
		Str("gross_pay", run.GrossPay.StringFixed(2)).
		Bool("location_weighting", run.LocationWeightingApplied).
		Msg("payroll run recorded")
	return run, nil
}

func (s *Service) runPayroll(ctx context.Context, req RunRequest) (PayrollRun, error) {
	if err := validateRunRequest(req); err != nil {
		return PayrollRun{}, err
	}

	emp, err := s.gateway.GetEmployee(ctx, req.EmployeeID)
	if err != nil {
		return PayrollRun{}, fmt.Errorf("failed to load employee: %w", err)
	}
	if emp == nil {
		return PayrollRun{}, &NotFoundError{Resource: "employee", ID: req.EmployeeID}
	}

	contract, err := s.gateway.GetActiveContract(ctx, emp.ID)
	if err != nil {
		return PayrollRun{}, fmt.Errorf("failed to load active contract: %w", err)
	}
	if contract == nil {
		return PayrollRun{}, &NotFoundError{Resource: "active contract", ID: emp.ID}
	}

	resolution, err := s.resolver.Resolve(*emp, *contract)
	if err != nil {
		return PayrollRun{}, err
	}

	run := PayrollRun{
		EmployeeID:               emp.ID,
		PayPeriodStart:           req.PayPeriodStart,
		PayPeriodEnd:             req.PayPeriodEnd,
		HoursWorked:              req.HoursWorked,
		GrossPay:                 resolution.Strategy.GrossPay(req.HoursWorked),
		LocationWeightingApplied: resolution.Weighted,
		CreatedAt:                s.now().UTC(),
	}

	id, err := s.gateway.InsertPayrollRun(ctx, run)
	if err != nil {
		return PayrollRun{}, fmt.Errorf("failed to record payroll run: %w", err)
	}
	run.ID = id
	return run, nil
}

func validateRunRequest(req RunRequest) error {
	if req.HoursWorked.IsNegative() {
		return &InputError{Field: "hours_worked", Reason: "must not be negative"}
	}
	if req.PayPeriodStart.IsZero() || req.PayPeriodEnd.IsZero() {
		return &InputError{Field: "pay_period", Reason: "start and end dates are required"}
	}
	if req.PayPeriodEnd.Before(req.PayPeriodStart) {
		return &InputError{Field: "pay_period", Reason: "end is before start"}
	}
	return nil
}

// PayrollHistory lists an employee's runs, newest first. The gateway must
// also implement Registry.
func (s *Service) PayrollHistory(ctx context.Context, employeeID int64) ([]PayrollRun, error) {
	registry, ok := s.gateway.(Registry)
	if !ok {
		return nil, ErrStoreRequired
	}

	emp, err := s.gateway.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if emp == nil {
		return nil, &NotFoundError{Resource: "employee", ID: employeeID}
	}

	return registry.ListPayrollRuns(ctx, employeeID)
}

// =============================================================================
// INPUT HELPERS
// =============================================================================

// HoursFromFloat converts adapter input to hours, rejecting negative and
// non-finite values.
func HoursFromFloat(hours float64) (decimal.Decimal, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return decimal.Zero, &InputError{Field: "hours_worked", Reason: "must be a finite number"}
	}
	if hours < 0 {
		return decimal.Zero, &InputError{Field: "hours_worked", Reason: "must not be negative"}
	}
	return decimal.NewFromFloat(hours), nil
}

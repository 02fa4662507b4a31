/*
store.go - Persistence interfaces for employees, contracts and payroll runs

PURPOSE:
  Defines the boundary between the payroll engine and the database. The
  engine depends only on Gateway; the wider Registry serves the
  registration flow and the HTTP adapter.

KEY INTERFACES:
  Gateway:  The three calls a payroll run issues (employee, active contract,
            insert run)
  Registry: Employee/contract registration, history, phone sales
  Store:    Both, as implemented by every backend

ABSENT RECORDS:
  GetEmployee and GetActiveContract return (nil, nil) when nothing matches.
  An error always means the store itself failed.

ACTIVE CONTRACT:
  The contract with the greatest EffectiveFrom; ties go to the greatest ID.
  EffectiveTo is not consulted, so an expired contract is still returned if
  it is the most recent one.

APPEND-ONLY:
  Payroll runs have no Update or Delete. Each InsertPayrollRun is a single
  atomic write; a failed insert leaves nothing behind.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory for tests and development
  - store/sqlite/sqlite.go:  SQLite (default backend)
  - store/postgres/postgres.go: PostgreSQL via pgx

SEE ALSO:
  - service.go: Uses Gateway
*/
package payroll

import "context"

// =============================================================================
// GATEWAY - What a payroll run needs
// =============================================================================

// Gateway is the storage contract of the payroll engine.
type Gateway interface {
	// GetEmployee returns nil when no employee has this id.
	GetEmployee(ctx context.Context, id int64) (*Employee, error)

	// GetActiveContract returns nil when the employee has no contracts.
	GetActiveContract(ctx context.Context, employeeID int64) (*Contract, error)

	// InsertPayrollRun persists run (ID ignored) and returns the assigned ID.
	InsertPayrollRun(ctx context.Context, run PayrollRun) (int64, error)
}

// =============================================================================
// REGISTRY - Registration flow and read models
// =============================================================================

// Registry manages the records the engine reads.
type Registry interface {
	// AddEmployee normalizes the contract type and NI number and returns the
	// assigned ID. Returns ErrDuplicateNINumber on a repeated NI number.
	AddEmployee(ctx context.Context, emp Employee) (int64, error)

	// UpdateEmployee overwrites every field. Returns a NotFoundError if the
	// employee does not exist.
	UpdateEmployee(ctx context.Context, emp Employee) error

	// DeleteEmployee removes the employee with their contracts, runs and
	// sales. Returns a NotFoundError if the employee does not exist.
	DeleteEmployee(ctx context.Context, id int64) error

	ListEmployees(ctx context.Context) ([]Employee, error)

	// SearchEmployees matches lastName as a substring.
	SearchEmployees(ctx context.Context, lastName string) ([]Employee, error)

	AddContract(ctx context.Context, contract Contract) (int64, error)

	// ListContracts returns contracts newest EffectiveFrom first.
	ListContracts(ctx context.Context, employeeID int64) ([]Contract, error)

	// ListPayrollRuns returns runs newest first.
	ListPayrollRuns(ctx context.Context, employeeID int64) ([]PayrollRun, error)

	AddPhoneSale(ctx context.Context, sale PhoneSale) (int64, error)
	ListPhoneSales(ctx context.Context, employeeID int64) ([]PhoneSale, error)
}

// Store is implemented by every backend.
type Store interface {
	Gateway
	Registry
}

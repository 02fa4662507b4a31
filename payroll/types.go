/*
Package payroll provides the gross pay engine.

PURPOSE:
  This package contains the records and algorithms for computing gross pay
  for an employee over a pay period. A contract type selects the pay
  formula, a location weighting may uplift the result, and each calculation
  is recorded as an immutable payroll run.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: who is paid, where they work, which contract type applies
  - Contract: the economic terms (salary, rate, contracted hours)
  - PayrollRun: an append-only record of one gross pay calculation
  - PhoneSale: handset sales recorded against an employee

DESIGN PRINCIPLES:
  1. Precision: money and hours use decimal.Decimal, never float64
  2. Optional terms are pointers: nil means "not part of this contract"
  3. Immutability: payroll runs are never updated or deleted

USAGE:
  emp := payroll.Employee{
      FirstName:    "Ada",
      Branch:       "London",
      ContractType: payroll.NormalizeContractType("hourly"),
  }
  rate := payroll.MustDecimal("10")
  contract := payroll.Contract{HourlyRate: &rate}

SEE ALSO:
  - strategy.go: Pay formulas per contract type
  - resolver.go: Contract validation and strategy selection
  - service.go: Payroll run orchestration
*/
package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACT TYPE
// =============================================================================

// ContractType selects the pay formula. Stored uppercase.
type ContractType string

const (
	ContractSalaried ContractType = "SALARIED"
	ContractPartTime ContractType = "PART_TIME"
	ContractHourly   ContractType = "HOURLY"
)

// NormalizeContractType uppercases user input. It does not validate:
// unrecognized types are accepted here and rejected at resolution.
func NormalizeContractType(s string) ContractType {
	return ContractType(strings.ToUpper(strings.TrimSpace(s)))
}

// Known reports whether t is one of the recognized contract types.
func (t ContractType) Known() bool {
	switch t {
	case ContractSalaried, ContractPartTime, ContractHourly:
		return true
	default:
		return false
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Employee is owned by the persistence layer; the engine only reads it.
type Employee struct {
	ID           int64
	FirstName    string
	LastName     string
	Address      string
	StartDate    time.Time
	NINumber     string
	Department   string
	Branch       string
	ContractType ContractType
}

// Contract carries the economic terms for one employee. Which of the
// optional terms must be present depends on the employee's contract type.
type Contract struct {
	ID            int64
	EmployeeID    int64
	BaseSalary    *decimal.Decimal
	HourlyRate    *decimal.Decimal
	ContractHours *decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended
}

// PayrollRun records a single gross pay calculation. ID is zero until the
// store assigns one.
type PayrollRun struct {
	ID                       int64
	EmployeeID               int64
	PayPeriodStart           time.Time
	PayPeriodEnd             time.Time
	HoursWorked              decimal.Decimal
	GrossPay                 decimal.Decimal
	LocationWeightingApplied bool
	CreatedAt                time.Time
}

// GrossPayDisplay renders gross pay as pounds with two decimal places.
func (r PayrollRun) GrossPayDisplay() string {
	return "£" + r.GrossPay.StringFixed(2)
}

// PhoneSale is a handset sale credited to an employee.
type PhoneSale struct {
	ID           int64
	EmployeeID   int64
	HandsetModel string
	SaleDate     time.Time
	SalePrice    decimal.Decimal
	Commission   decimal.Decimal
}

// =============================================================================
// HELPERS
// =============================================================================

// MustDecimal parses s and panics on malformed input. Intended for literals.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecimalPtr returns a pointer to d, for populating optional contract terms.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

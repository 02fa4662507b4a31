/*
strategy.go - Gross pay formulas

PURPOSE:
  One Strategy per contract type, plus LocationWeighting which wraps any
  strategy with a flat uplift. All implement the same single method, so a
  weighted strategy is indistinguishable from a plain one to callers.

FORMULAS:
  Salaried:  base_salary (hours ignored)
  PartTime:  base_salary + max(0, hours - contract_hours) * rate * 2.5
  Hourly:    min(hours, 37) * rate + max(0, hours - 37) * rate * 2.5
  Weighted:  inner(hours) * uplift

NEGATIVE HOURS:
  Strategies do not validate hours; the service rejects negative hours
  before any strategy runs. Called directly, Salaried and PartTime return
  the base salary and Hourly returns a negative regular component with no
  overtime.

SEE ALSO:
  - resolver.go: Builds strategies from contracts
*/
package payroll

import "github.com/shopspring/decimal"

var (
	// OvertimeMultiplier applies to every hour beyond the contracted or
	// standard threshold.
	OvertimeMultiplier = decimal.NewFromFloat(2.5)

	// StandardWeeklyHours is the hourly-contract overtime threshold.
	StandardWeeklyHours = decimal.NewFromInt(37)

	// DefaultLocationUplift is the London weighting factor.
	DefaultLocationUplift = decimal.NewFromFloat(1.2)
)

// Strategy computes gross pay for the hours worked in a period.
type Strategy interface {
	GrossPay(hoursWorked decimal.Decimal) decimal.Decimal
}

// Compile-time checks
var (
	_ Strategy = Salaried{}
	_ Strategy = PartTime{}
	_ Strategy = Hourly{}
	_ Strategy = LocationWeighting{}
)

// =============================================================================
// SALARIED
// =============================================================================

type Salaried struct {
	BaseSalary decimal.Decimal
}

func (s Salaried) GrossPay(_ decimal.Decimal) decimal.Decimal {
	return s.BaseSalary
}

// =============================================================================
// PART-TIME
// =============================================================================

// PartTime pays a base salary covering ContractHours; any excess is
// overtime at OvertimeMultiplier times the hourly rate.
type PartTime struct {
	BaseSalary    decimal.Decimal
	HourlyRate    decimal.Decimal
	ContractHours decimal.Decimal
}

func (p PartTime) GrossPay(hoursWorked decimal.Decimal) decimal.Decimal {
	overtime := decimal.Max(decimal.Zero, hoursWorked.Sub(p.ContractHours))
	return p.BaseSalary.Add(overtime.Mul(p.HourlyRate).Mul(OvertimeMultiplier))
}

// =============================================================================
// HOURLY
// =============================================================================

// Hourly pays the first StandardWeeklyHours at the hourly rate and the rest
// at OvertimeMultiplier times the rate.
type Hourly struct {
	HourlyRate decimal.Decimal
}

func (h Hourly) GrossPay(hoursWorked decimal.Decimal) decimal.Decimal {
	regular := decimal.Min(hoursWorked, StandardWeeklyHours)
	overtime := decimal.Max(decimal.Zero, hoursWorked.Sub(StandardWeeklyHours))

	regularPay := regular.Mul(h.HourlyRate)
	overtimePay := overtime.Mul(h.HourlyRate).Mul(OvertimeMultiplier)
	return regularPay.Add(overtimePay)
}

// =============================================================================
// LOCATION WEIGHTING
// =============================================================================

// LocationWeighting multiplies the inner strategy's result by Uplift.
type LocationWeighting struct {
	Inner  Strategy
	Uplift decimal.Decimal
}

// WithLocationWeighting wraps inner with the default uplift.
func WithLocationWeighting(inner Strategy) LocationWeighting {
	return LocationWeighting{Inner: inner, Uplift: DefaultLocationUplift}
}

func (w LocationWeighting) GrossPay(hoursWorked decimal.Decimal) decimal.Decimal {
	return w.Inner.GrossPay(hoursWorked).Mul(w.Uplift)
}

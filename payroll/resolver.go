/*
resolver.go - Contract validation and strategy selection

PURPOSE:
  Turns an employee and their active contract into a ready-to-use Strategy.
  The employee's contract type picks the formula; the contract must carry
  every term that formula needs. The employee's branch decides whether the
  strategy is wrapped with location weighting.

REQUIRED TERMS:
  SALARIED:  base_salary
  PART_TIME: base_salary, hourly_rate, contract_hours
  HOURLY:    hourly_rate
  other:     rejected as unknown contract type

WEIGHTING FLAG:
  Resolution.Weighted records whether the returned strategy was wrapped.
  Callers must read it from here rather than re-checking the branch, so the
  flag on a payroll run always matches the pay actually computed.

PURITY:
  Resolve never touches storage and has no side effects.

SEE ALSO:
  - strategy.go: The formulas being selected
  - service.go: The only production caller
*/
package payroll

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPremiumLocation is the branch that receives location weighting.
const DefaultPremiumLocation = "LONDON"

// Resolver selects pay strategies. The zero value is not usable; construct
// with NewResolver or DefaultResolver.
type Resolver struct {
	PremiumLocation string
	Uplift          decimal.Decimal
}

// Resolution is a resolved strategy and whether weighting was applied to it.
type Resolution struct {
	Strategy Strategy
	Weighted bool
}

// NewResolver creates a resolver weighting employees at premiumLocation
// (compared case-insensitively) by uplift.
func NewResolver(premiumLocation string, uplift decimal.Decimal) *Resolver {
	return &Resolver{
		PremiumLocation: strings.ToUpper(strings.TrimSpace(premiumLocation)),
		Uplift:          uplift,
	}
}

// DefaultResolver weights London employees by 20%.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultPremiumLocation, DefaultLocationUplift)
}

// Resolve validates the contract against the employee's contract type and
// returns the strategy to pay it with.
func (r *Resolver) Resolve(emp Employee, contract Contract) (Resolution, error) {
	strategy, err := strategyFor(NormalizeContractType(string(emp.ContractType)), contract)
	if err != nil {
		return Resolution{}, err
	}

	if r.isPremium(emp.Branch) {
		return Resolution{
			Strategy: LocationWeighting{Inner: strategy, Uplift: r.Uplift},
			Weighted: true,
		}, nil
	}
	return Resolution{Strategy: strategy}, nil
}

func (r *Resolver) isPremium(branch string) bool {
	if r.PremiumLocation == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(branch), r.PremiumLocation)
}

func strategyFor(contractType ContractType, c Contract) (Strategy, error) {
	switch contractType {
	case ContractSalaried:
		if c.BaseSalary == nil {
			return nil, &ValidationError{
				ContractType: contractType,
				Reason:       "base salary is required for salaried contract",
			}
		}
		return Salaried{BaseSalary: *c.BaseSalary}, nil

	case ContractPartTime:
		if c.BaseSalary == nil || c.HourlyRate == nil || c.ContractHours == nil {
			return nil, &ValidationError{
				ContractType: contractType,
				Reason:       "base salary, hourly rate and contract hours are required for part-time contract",
			}
		}
		return PartTime{
			BaseSalary:    *c.BaseSalary,
			HourlyRate:    *c.HourlyRate,
			ContractHours: *c.ContractHours,
		}, nil

	case ContractHourly:
		if c.HourlyRate == nil {
			return nil, &ValidationError{
				ContractType: contractType,
				Reason:       "hourly rate is required for hourly contract",
			}
		}
		return Hourly{HourlyRate: *c.HourlyRate}, nil

	default:
		return nil, &ValidationError{
			ContractType: contractType,
			Reason:       fmt.Sprintf("unknown contract type: %q", string(contractType)),
		}
	}
}

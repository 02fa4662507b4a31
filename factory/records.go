/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON employee, contract and phone sale definitions into payroll
  records. The HTTP adapter decodes request bodies into these types, and
  demo scenarios are written as JSON documents in the same schema.

JSON SCHEMA:
  {
    "employee": {
      "first_name": "Ada",
      "last_name": "Lovelace",
      "address": "1 Strand, London",
      "start_date": "2024-01-15",
      "ni_number": "QQ123456C",
      "department": "Retail",
      "branch": "London",
      "contract_type": "hourly"
    },
    "contracts": [
      {"hourly_rate": "10", "effective_from": "2024-01-15"}
    ]
  }

VALIDATION:
  Dates must be YYYY-MM-DD. Amounts are decimal strings or JSON numbers and
  must not be negative. Contract terms are NOT checked against the
  contract type here; that happens when payroll is run.

SEE ALSO:
  - payroll/types.go: Record definitions
  - api/handlers.go: Request decoding
  - api/scenarios.go: Scenario documents
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yeoconnect/payroll/payroll"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// EmployeeJSON is the JSON representation of an employee.
type EmployeeJSON struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address      string `json:"address"`
	StartDate    string `json:"start_date"`
	NINumber     string `json:"ni_number"`
	Department   string `json:"department"`
	Branch       string `json:"branch"`
	ContractType string `json:"contract_type"`
}

// ContractJSON is the JSON representation of a contract. Omitted terms are
// absent, not zero.
type ContractJSON struct {
	BaseSalary    *decimal.Decimal `json:"base_salary,omitempty"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate,omitempty"`
	ContractHours *decimal.Decimal `json:"contract_hours,omitempty"`
	EffectiveFrom string           `json:"effective_from"`
	EffectiveTo   *string          `json:"effective_to,omitempty"`
}

// PhoneSaleJSON is the JSON representation of a handset sale.
type PhoneSaleJSON struct {
	HandsetModel string          `json:"handset_model"`
	SaleDate     string          `json:"sale_date"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Commission   decimal.Decimal `json:"commission"`
}

// EmployeeDocument bundles an employee with its contracts.
type EmployeeDocument struct {
	Employee  EmployeeJSON   `json:"employee"`
	Contracts []ContractJSON `json:"contracts,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// ParseEmployeeDocument parses a JSON employee document.
func ParseEmployeeDocument(jsonStr string) (payroll.Employee, []payroll.Contract, error) {
	var doc EmployeeDocument
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return payroll.Employee{}, nil, fmt.Errorf("failed to parse employee JSON: %w", err)
	}
	return doc.Records()
}

// Records converts the document. Contracts have EmployeeID unset.
func (d EmployeeDocument) Records() (payroll.Employee, []payroll.Contract, error) {
	emp, err := d.Employee.ToEmployee()
	if err != nil {
		return payroll.Employee{}, nil, err
	}

	contracts := make([]payroll.Contract, 0, len(d.Contracts))
	for _, cj := range d.Contracts {
		c, err := cj.ToContract(0)
		if err != nil {
			return payroll.Employee{}, nil, err
		}
		contracts = append(contracts, c)
	}
	return emp, contracts, nil
}

// ToEmployee validates required fields and converts to a payroll.Employee.
func (ej EmployeeJSON) ToEmployee() (payroll.Employee, error) {
	required := map[string]string{
		"first_name":    ej.FirstName,
		"last_name":     ej.LastName,
		"ni_number":     ej.NINumber,
		"branch":        ej.Branch,
		"contract_type": ej.ContractType,
	}
	for _, field := range []string{"first_name", "last_name", "ni_number", "branch", "contract_type"} {
		if strings.TrimSpace(required[field]) == "" {
			return payroll.Employee{}, &payroll.InputError{Field: field, Reason: "is required"}
		}
	}

	startDate, err := ParseDate("start_date", ej.StartDate)
	if err != nil {
		return payroll.Employee{}, err
	}

	return payroll.Employee{
		FirstName:    strings.TrimSpace(ej.FirstName),
		LastName:     strings.TrimSpace(ej.LastName),
		Address:      strings.TrimSpace(ej.Address),
		StartDate:    startDate,
		NINumber:     strings.ToUpper(strings.TrimSpace(ej.NINumber)),
		Department:   strings.TrimSpace(ej.Department),
		Branch:       strings.TrimSpace(ej.Branch),
		ContractType: payroll.NormalizeContractType(ej.ContractType),
	}, nil
}

// ToContract converts to a payroll.Contract for employeeID.
func (cj ContractJSON) ToContract(employeeID int64) (payroll.Contract, error) {
	terms := []struct {
		field string
		value *decimal.Decimal
	}{
		{"base_salary", cj.BaseSalary},
		{"hourly_rate", cj.HourlyRate},
		{"contract_hours", cj.ContractHours},
	}
	for _, term := range terms {
		if term.value != nil && term.value.IsNegative() {
			return payroll.Contract{}, &payroll.InputError{Field: term.field, Reason: "must not be negative"}
		}
	}

	effectiveFrom, err := ParseDate("effective_from", cj.EffectiveFrom)
	if err != nil {
		return payroll.Contract{}, err
	}

	c := payroll.Contract{
		EmployeeID:    employeeID,
		BaseSalary:    cj.BaseSalary,
		HourlyRate:    cj.HourlyRate,
		ContractHours: cj.ContractHours,
		EffectiveFrom: effectiveFrom,
	}
	if cj.EffectiveTo != nil && strings.TrimSpace(*cj.EffectiveTo) != "" {
		effectiveTo, err := ParseDate("effective_to", *cj.EffectiveTo)
		if err != nil {
			return payroll.Contract{}, err
		}
		if effectiveTo.Before(effectiveFrom) {
			return payroll.Contract{}, &payroll.InputError{Field: "effective_to", Reason: "is before effective_from"}
		}
		c.EffectiveTo = &effectiveTo
	}
	return c, nil
}

// ToPhoneSale converts to a payroll.PhoneSale for employeeID.
func (sj PhoneSaleJSON) ToPhoneSale(employeeID int64) (payroll.PhoneSale, error) {
	if strings.TrimSpace(sj.HandsetModel) == "" {
		return payroll.PhoneSale{}, &payroll.InputError{Field: "handset_model", Reason: "is required"}
	}
	if sj.SalePrice.IsNegative() {
		return payroll.PhoneSale{}, &payroll.InputError{Field: "sale_price", Reason: "must not be negative"}
	}
	if sj.Commission.IsNegative() {
		return payroll.PhoneSale{}, &payroll.InputError{Field: "commission", Reason: "must not be negative"}
	}
	saleDate, err := ParseDate("sale_date", sj.SaleDate)
	if err != nil {
		return payroll.PhoneSale{}, err
	}
	return payroll.PhoneSale{
		EmployeeID:   employeeID,
		HandsetModel: strings.TrimSpace(sj.HandsetModel),
		SaleDate:     saleDate,
		SalePrice:    sj.SalePrice,
		Commission:   sj.Commission,
	}, nil
}

// FromEmployee converts a payroll.Employee back to its JSON form.
func FromEmployee(emp payroll.Employee) EmployeeJSON {
	return EmployeeJSON{
		FirstName:    emp.FirstName,
		LastName:     emp.LastName,
		Address:      emp.Address,
		StartDate:    emp.StartDate.Format(DateLayout),
		NINumber:     emp.NINumber,
		Department:   emp.Department,
		Branch:       emp.Branch,
		ContractType: string(emp.ContractType),
	}
}

// FromContract converts a payroll.Contract back to its JSON form.
func FromContract(c payroll.Contract) ContractJSON {
	cj := ContractJSON{
		BaseSalary:    c.BaseSalary,
		HourlyRate:    c.HourlyRate,
		ContractHours: c.ContractHours,
		EffectiveFrom: c.EffectiveFrom.Format(DateLayout),
	}
	if c.EffectiveTo != nil {
		s := c.EffectiveTo.Format(DateLayout)
		cj.EffectiveTo = &s
	}
	return cj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

// ParseDate parses a YYYY-MM-DD date, reporting field on failure.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, &payroll.InputError{Field: field, Reason: "is required"}
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &payroll.InputError{Field: field, Reason: "use YYYY-MM-DD"}
	}
	return t, nil
}

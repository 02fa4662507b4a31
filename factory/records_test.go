package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/factory"
	"github.com/yeoconnect/payroll/payroll"
)

func TestParseEmployeeDocument(t *testing.T) {
	// GIVEN: An employee document with a part-time contract
	// WHEN: Parsing it
	// THEN: Fields are trimmed and normalized, and absent terms stay nil

	emp, contracts, err := factory.ParseEmployeeDocument(`{
		"employee": {
			"first_name": " Megan ",
			"last_name": "Price",
			"start_date": "2024-09-02",
			"ni_number": "qq123456c",
			"branch": "Bristol",
			"contract_type": "part_time"
		},
		"contracts": [
			{"base_salary": "1200", "hourly_rate": 12, "contract_hours": "20", "effective_from": "2024-09-02"},
			{"hourly_rate": "11", "effective_from": "2023-01-01", "effective_to": "2024-09-01"}
		]
	}`)
	require.NoError(t, err)

	assert.Equal(t, "Megan", emp.FirstName)
	assert.Equal(t, "QQ123456C", emp.NINumber)
	assert.Equal(t, payroll.ContractPartTime, emp.ContractType)
	assert.True(t, payroll.Date(2024, 9, 2).Equal(emp.StartDate))

	require.Len(t, contracts, 2)
	require.NotNil(t, contracts[0].ContractHours)
	assert.True(t, payroll.MustDecimal("20").Equal(*contracts[0].ContractHours))
	assert.True(t, payroll.MustDecimal("12").Equal(*contracts[0].HourlyRate))
	assert.Nil(t, contracts[0].EffectiveTo)

	assert.Nil(t, contracts[1].BaseSalary)
	require.NotNil(t, contracts[1].EffectiveTo)
	assert.True(t, payroll.Date(2024, 9, 1).Equal(*contracts[1].EffectiveTo))
}

func TestParseEmployeeDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		field string
	}{
		{
			name:  "missing ni number",
			json:  `{"employee": {"first_name": "A", "last_name": "B", "start_date": "2024-01-01", "branch": "X", "contract_type": "HOURLY"}}`,
			field: "ni_number",
		},
		{
			name:  "missing start date",
			json:  `{"employee": {"first_name": "A", "last_name": "B", "ni_number": "N", "branch": "X", "contract_type": "HOURLY"}}`,
			field: "start_date",
		},
		{
			name:  "bad effective_from",
			json:  `{"employee": {"first_name": "A", "last_name": "B", "start_date": "2024-01-01", "ni_number": "N", "branch": "X", "contract_type": "HOURLY"}, "contracts": [{"hourly_rate": "10", "effective_from": "2024/01/01"}]}`,
			field: "effective_from",
		},
		{
			name:  "negative contract hours",
			json:  `{"employee": {"first_name": "A", "last_name": "B", "start_date": "2024-01-01", "ni_number": "N", "branch": "X", "contract_type": "PART_TIME"}, "contracts": [{"contract_hours": "-3", "effective_from": "2024-01-01"}]}`,
			field: "contract_hours",
		},
		{
			name:  "effective_to before effective_from",
			json:  `{"employee": {"first_name": "A", "last_name": "B", "start_date": "2024-01-01", "ni_number": "N", "branch": "X", "contract_type": "HOURLY"}, "contracts": [{"hourly_rate": "10", "effective_from": "2024-06-01", "effective_to": "2024-05-31"}]}`,
			field: "effective_to",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := factory.ParseEmployeeDocument(tt.json)

			var inErr *payroll.InputError
			require.ErrorAs(t, err, &inErr)
			assert.Equal(t, tt.field, inErr.Field)
		})
	}
}

func TestParseEmployeeDocument_InvalidJSON(t *testing.T) {
	_, _, err := factory.ParseEmployeeDocument(`{"employee": [}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse employee JSON")
}

func TestContractJSON_UnknownTypeAccepted(t *testing.T) {
	// Contract terms are checked against the type at payroll time.
	emp, _, err := factory.ParseEmployeeDocument(`{"employee": {"first_name": "A", "last_name": "B", "start_date": "2024-01-01", "ni_number": "N", "branch": "X", "contract_type": "contractor"}}`)
	require.NoError(t, err)
	assert.Equal(t, payroll.ContractType("CONTRACTOR"), emp.ContractType)
	assert.False(t, emp.ContractType.Known())
}

func TestPhoneSaleJSON_ToPhoneSale(t *testing.T) {
	sale, err := factory.PhoneSaleJSON{
		HandsetModel: "iPhone 16",
		SaleDate:     "2025-01-20",
		SalePrice:    payroll.MustDecimal("999"),
		Commission:   payroll.MustDecimal("50"),
	}.ToPhoneSale(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sale.EmployeeID)
	assert.True(t, payroll.Date(2025, 1, 20).Equal(sale.SaleDate))

	_, err = factory.PhoneSaleJSON{HandsetModel: "X", SaleDate: "2025-01-20", Commission: payroll.MustDecimal("-1")}.ToPhoneSale(7)
	assert.ErrorIs(t, err, payroll.ErrInput)
}

func TestFromEmployee_FromContract_RoundTrip(t *testing.T) {
	ended := payroll.Date(2024, 12, 31)
	c := payroll.Contract{
		BaseSalary:    payroll.DecimalPtr(payroll.MustDecimal("1800")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
		EffectiveTo:   &ended,
	}
	cj := factory.FromContract(c)
	assert.Equal(t, "2024-01-01", cj.EffectiveFrom)
	require.NotNil(t, cj.EffectiveTo)
	assert.Equal(t, "2024-12-31", *cj.EffectiveTo)

	back, err := cj.ToContract(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), back.EmployeeID)
	assert.True(t, c.BaseSalary.Equal(*back.BaseSalary))

	ej := factory.FromEmployee(payroll.Employee{StartDate: payroll.Date(2020, 2, 29), ContractType: payroll.ContractHourly})
	assert.Equal(t, "2020-02-29", ej.StartDate)
	assert.Equal(t, "HOURLY", ej.ContractType)
}

package payroll_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/payroll"
)

func employee(contractType payroll.ContractType, branch string) payroll.Employee {
	return payroll.Employee{
		ID:           1,
		FirstName:    "Sam",
		LastName:     "Carter",
		StartDate:    payroll.Date(2024, 1, 1),
		NINumber:     "QQ000001A",
		Branch:       branch,
		ContractType: contractType,
	}
}

func hourlyContract(rate string) payroll.Contract {
	return payroll.Contract{
		ID:            1,
		EmployeeID:    1,
		HourlyRate:    payroll.DecimalPtr(d(rate)),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	}
}

// =============================================================================
// STRATEGY SELECTION
// =============================================================================

func TestResolve_PicksStrategyByContractType(t *testing.T) {
	contract := payroll.Contract{
		BaseSalary:    payroll.DecimalPtr(d("1000")),
		HourlyRate:    payroll.DecimalPtr(d("10")),
		ContractHours: payroll.DecimalPtr(d("20")),
	}
	r := payroll.DefaultResolver()

	tests := []struct {
		contractType payroll.ContractType
		want         payroll.Strategy
	}{
		{payroll.ContractSalaried, payroll.Salaried{BaseSalary: d("1000")}},
		{payroll.ContractPartTime, payroll.PartTime{BaseSalary: d("1000"), HourlyRate: d("10"), ContractHours: d("20")}},
		{payroll.ContractHourly, payroll.Hourly{HourlyRate: d("10")}},
	}
	for _, tt := range tests {
		t.Run(string(tt.contractType), func(t *testing.T) {
			res, err := r.Resolve(employee(tt.contractType, "Yeovil"), contract)
			require.NoError(t, err)
			assert.False(t, res.Weighted)
			assert.IsType(t, tt.want, res.Strategy)
			assertMoney(t, tt.want.GrossPay(d("42")).String(), res.Strategy.GrossPay(d("42")))
		})
	}
}

func TestResolve_ContractTypeIsCaseInsensitive(t *testing.T) {
	res, err := payroll.DefaultResolver().Resolve(employee("hourly", "Yeovil"), hourlyContract("10"))
	require.NoError(t, err)
	assert.IsType(t, payroll.Hourly{}, res.Strategy)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestResolve_MissingTerms_ValidationError(t *testing.T) {
	tests := []struct {
		name         string
		contractType payroll.ContractType
		contract     payroll.Contract
		reason       string
	}{
		{
			name:         "salaried without base salary",
			contractType: payroll.ContractSalaried,
			contract:     payroll.Contract{HourlyRate: payroll.DecimalPtr(d("10"))},
			reason:       "base salary is required for salaried contract",
		},
		{
			name:         "part-time without contract hours",
			contractType: payroll.ContractPartTime,
			contract: payroll.Contract{
				BaseSalary: payroll.DecimalPtr(d("1000")),
				HourlyRate: payroll.DecimalPtr(d("10")),
			},
			reason: "base salary, hourly rate and contract hours are required for part-time contract",
		},
		{
			name:         "hourly without rate",
			contractType: payroll.ContractHourly,
			contract:     payroll.Contract{BaseSalary: payroll.DecimalPtr(d("1000"))},
			reason:       "hourly rate is required for hourly contract",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payroll.DefaultResolver().Resolve(employee(tt.contractType, "London"), tt.contract)

			var vErr *payroll.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.reason, vErr.Reason)
			assert.Equal(t, tt.contractType, vErr.ContractType)
			assert.ErrorIs(t, err, payroll.ErrValidation)
		})
	}
}

func TestResolve_UnknownContractType(t *testing.T) {
	// GIVEN: Employee with contract type CONTRACTOR
	// WHEN: Resolving a strategy
	// THEN: ValidationError names the unknown type

	_, err := payroll.DefaultResolver().Resolve(employee("CONTRACTOR", "London"), hourlyContract("10"))

	var vErr *payroll.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, `unknown contract type: "CONTRACTOR"`, vErr.Error())
	assert.True(t, payroll.IsClientError(err))
}

// =============================================================================
// LOCATION WEIGHTING
// =============================================================================

func TestResolve_LondonIsWeighted_AnyCase(t *testing.T) {
	for _, branch := range []string{"London", "LONDON", "london", " London "} {
		t.Run(branch, func(t *testing.T) {
			res, err := payroll.DefaultResolver().Resolve(employee(payroll.ContractHourly, branch), hourlyContract("10"))
			require.NoError(t, err)
			assert.True(t, res.Weighted)
			assertMoney(t, "534", res.Strategy.GrossPay(d("40")))
		})
	}
}

func TestResolve_OtherBranchesNotWeighted(t *testing.T) {
	for _, branch := range []string{"Yeovil", "Londonderry", "", "East London"} {
		res, err := payroll.DefaultResolver().Resolve(employee(payroll.ContractHourly, branch), hourlyContract("10"))
		require.NoError(t, err)
		assert.False(t, res.Weighted, "branch %q", branch)
		assertMoney(t, "445", res.Strategy.GrossPay(d("40")))
	}
}

func TestResolve_ConfiguredPremiumLocation(t *testing.T) {
	r := payroll.NewResolver("manchester", d("1.1"))

	res, err := r.Resolve(employee(payroll.ContractHourly, "Manchester"), hourlyContract("10"))
	require.NoError(t, err)
	assert.True(t, res.Weighted)
	assertMoney(t, "407", res.Strategy.GrossPay(d("37")))

	res, err = r.Resolve(employee(payroll.ContractHourly, "London"), hourlyContract("10"))
	require.NoError(t, err)
	assert.False(t, res.Weighted)
}

func TestResolve_InvalidContract_NotWeightedEither(t *testing.T) {
	res, err := payroll.DefaultResolver().Resolve(employee(payroll.ContractSalaried, "London"), payroll.Contract{})
	require.Error(t, err)
	assert.Nil(t, res.Strategy)
	assert.False(t, res.Weighted)
}

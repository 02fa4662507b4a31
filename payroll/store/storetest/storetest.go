// Package storetest holds behavior tests shared by every payroll.Store
// backend. Each backend's own _test.go calls Run with a constructor.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/payroll"
)

// Run exercises newStore against the payroll.Store contract. newStore must
// return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) payroll.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s payroll.Store)
	}{
		{"EmployeeRoundTrip", testEmployeeRoundTrip},
		{"GetEmployeeMissing", testGetEmployeeMissing},
		{"DuplicateNINumber", testDuplicateNINumber},
		{"UpdateEmployee", testUpdateEmployee},
		{"UpdateEmployeeMissing", testUpdateEmployeeMissing},
		{"DeleteEmployeeCascades", testDeleteEmployeeCascades},
		{"SearchEmployees", testSearchEmployees},
		{"ActiveContractLatestEffectiveFrom", testActiveContractLatest},
		{"ActiveContractTieBreak", testActiveContractTieBreak},
		{"ActiveContractNone", testActiveContractNone},
		{"ContractTermsPreserved", testContractTermsPreserved},
		{"ContractForMissingEmployee", testContractForMissingEmployee},
		{"PayrollRunsAppendOnly", testPayrollRunsAppendOnly},
		{"PayrollRunForMissingEmployee", testPayrollRunForMissingEmployee},
		{"PhoneSales", testPhoneSales},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// =============================================================================
// FIXTURES
// =============================================================================

func newEmployee(ni, lastName, branch string) payroll.Employee {
	return payroll.Employee{
		FirstName:    "Alex",
		LastName:     lastName,
		Address:      "1 High Street",
		StartDate:    payroll.Date(2023, 4, 1),
		NINumber:     ni,
		Department:   "Sales",
		Branch:       branch,
		ContractType: payroll.ContractHourly,
	}
}

func mustAddEmployee(t *testing.T, s payroll.Store, emp payroll.Employee) int64 {
	t.Helper()
	id, err := s.AddEmployee(context.Background(), emp)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func mustAddContract(t *testing.T, s payroll.Store, c payroll.Contract) int64 {
	t.Helper()
	id, err := s.AddContract(context.Background(), c)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func salaried(employeeID int64, base string, from time.Time) payroll.Contract {
	return payroll.Contract{
		EmployeeID:    employeeID,
		BaseSalary:    payroll.DecimalPtr(payroll.MustDecimal(base)),
		EffectiveFrom: from,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func testEmployeeRoundTrip(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	emp := newEmployee("qq123456a", "Lovelace", "London")
	emp.ContractType = "part_time"

	id := mustAddEmployee(t, s, emp)

	got, err := s.GetEmployee(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alex", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "1 High Street", got.Address)
	assert.True(t, payroll.Date(2023, 4, 1).Equal(got.StartDate))
	assert.Equal(t, "QQ123456A", got.NINumber)
	assert.Equal(t, "Sales", got.Department)
	assert.Equal(t, "London", got.Branch)
	assert.Equal(t, payroll.ContractPartTime, got.ContractType)
}

func testGetEmployeeMissing(t *testing.T, s payroll.Store) {
	got, err := s.GetEmployee(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDuplicateNINumber(t *testing.T, s payroll.Store) {
	mustAddEmployee(t, s, newEmployee("QQ000001A", "First", "London"))

	_, err := s.AddEmployee(context.Background(), newEmployee(" qq000001a ", "Second", "Yeovil"))
	assert.ErrorIs(t, err, payroll.ErrDuplicateNINumber)
}

func testUpdateEmployee(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000002A", "Before", "Yeovil"))
	other := mustAddEmployee(t, s, newEmployee("QQ000003A", "Other", "Yeovil"))

	emp := newEmployee("QQ000002A", "After", "London")
	emp.ID = id
	require.NoError(t, s.UpdateEmployee(ctx, emp))

	got, err := s.GetEmployee(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "After", got.LastName)
	assert.Equal(t, "London", got.Branch)

	taken := newEmployee("QQ000002A", "Other", "Yeovil")
	taken.ID = other
	assert.ErrorIs(t, s.UpdateEmployee(ctx, taken), payroll.ErrDuplicateNINumber)
}

func testUpdateEmployeeMissing(t *testing.T, s payroll.Store) {
	emp := newEmployee("QQ000004A", "Nobody", "London")
	emp.ID = 777

	err := s.UpdateEmployee(context.Background(), emp)
	assert.True(t, payroll.IsNotFound(err))
}

func testDeleteEmployeeCascades(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000005A", "Gone", "London"))
	mustAddContract(t, s, salaried(id, "2000", payroll.Date(2024, 1, 1)))
	_, err := s.InsertPayrollRun(ctx, payroll.PayrollRun{
		EmployeeID:     id,
		PayPeriodStart: payroll.Date(2025, 1, 1),
		PayPeriodEnd:   payroll.Date(2025, 1, 31),
		HoursWorked:    payroll.MustDecimal("37"),
		GrossPay:       payroll.MustDecimal("2400"),
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEmployee(ctx, id))

	got, err := s.GetEmployee(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	contract, err := s.GetActiveContract(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, contract)

	runs, err := s.ListPayrollRuns(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, runs)

	assert.True(t, payroll.IsNotFound(s.DeleteEmployee(ctx, id)))

	// The NI number is free again.
	mustAddEmployee(t, s, newEmployee("QQ000005A", "Back", "London"))
}

func testSearchEmployees(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	smith := mustAddEmployee(t, s, newEmployee("QQ000006A", "Smith", "London"))
	smythe := mustAddEmployee(t, s, newEmployee("QQ000007A", "Goldsmith", "Yeovil"))
	mustAddEmployee(t, s, newEmployee("QQ000008A", "Jones", "Yeovil"))

	found, err := s.SearchEmployees(ctx, "SMITH")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, smith, found[0].ID)
	assert.Equal(t, smythe, found[1].ID)

	all, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.SearchEmployees(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// =============================================================================
// CONTRACTS
// =============================================================================

func testActiveContractLatest(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000009A", "Latest", "London"))
	newer := mustAddContract(t, s, salaried(id, "2500", payroll.Date(2025, 1, 1)))
	mustAddContract(t, s, salaried(id, "1800", payroll.Date(2023, 1, 1)))

	active, err := s.GetActiveContract(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, newer, active.ID)
	assert.Equal(t, "2500.00", active.BaseSalary.StringFixed(2))

	contracts, err := s.ListContracts(ctx, id)
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, newer, contracts[0].ID, "newest first")
}

func testActiveContractTieBreak(t *testing.T, s payroll.Store) {
	id := mustAddEmployee(t, s, newEmployee("QQ000010A", "Tie", "London"))
	mustAddContract(t, s, salaried(id, "1900", payroll.Date(2024, 6, 1)))
	second := mustAddContract(t, s, salaried(id, "2100", payroll.Date(2024, 6, 1)))

	active, err := s.GetActiveContract(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second, active.ID)
}

func testActiveContractNone(t *testing.T, s payroll.Store) {
	id := mustAddEmployee(t, s, newEmployee("QQ000011A", "Empty", "London"))

	active, err := s.GetActiveContract(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func testContractTermsPreserved(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000012A", "Terms", "London"))
	ended := payroll.Date(2025, 6, 30)
	mustAddContract(t, s, payroll.Contract{
		EmployeeID:    id,
		BaseSalary:    payroll.DecimalPtr(payroll.MustDecimal("1234.56")),
		HourlyRate:    payroll.DecimalPtr(payroll.MustDecimal("11.44")),
		ContractHours: payroll.DecimalPtr(payroll.MustDecimal("22.5")),
		EffectiveFrom: payroll.Date(2025, 1, 1),
		EffectiveTo:   &ended,
	})
	mustAddContract(t, s, payroll.Contract{
		EmployeeID:    id,
		HourlyRate:    payroll.DecimalPtr(payroll.MustDecimal("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	contracts, err := s.ListContracts(ctx, id)
	require.NoError(t, err)
	require.Len(t, contracts, 2)

	full := contracts[0]
	require.NotNil(t, full.BaseSalary)
	require.NotNil(t, full.HourlyRate)
	require.NotNil(t, full.ContractHours)
	require.NotNil(t, full.EffectiveTo)
	assert.True(t, payroll.MustDecimal("1234.56").Equal(*full.BaseSalary))
	assert.True(t, payroll.MustDecimal("11.44").Equal(*full.HourlyRate))
	assert.True(t, payroll.MustDecimal("22.5").Equal(*full.ContractHours))
	assert.True(t, ended.Equal(*full.EffectiveTo))

	sparse := contracts[1]
	assert.Nil(t, sparse.BaseSalary)
	assert.Nil(t, sparse.ContractHours)
	assert.Nil(t, sparse.EffectiveTo)
	require.NotNil(t, sparse.HourlyRate)
}

func testContractForMissingEmployee(t *testing.T, s payroll.Store) {
	_, err := s.AddContract(context.Background(), salaried(999, "2000", payroll.Date(2024, 1, 1)))
	assert.True(t, payroll.IsNotFound(err))
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func testPayrollRunsAppendOnly(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000013A", "Runs", "London"))

	run := payroll.PayrollRun{
		EmployeeID:               id,
		PayPeriodStart:           payroll.Date(2025, 3, 1),
		PayPeriodEnd:             payroll.Date(2025, 3, 31),
		HoursWorked:              payroll.MustDecimal("40"),
		GrossPay:                 payroll.MustDecimal("534"),
		LocationWeightingApplied: true,
		CreatedAt:                time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC),
	}
	first, err := s.InsertPayrollRun(ctx, run)
	require.NoError(t, err)
	second, err := s.InsertPayrollRun(ctx, run)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := s.ListPayrollRuns(ctx, id)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID, "newest first")

	got := runs[1]
	assert.Equal(t, first, got.ID)
	assert.Equal(t, id, got.EmployeeID)
	assert.True(t, run.PayPeriodStart.Equal(got.PayPeriodStart))
	assert.True(t, run.PayPeriodEnd.Equal(got.PayPeriodEnd))
	assert.True(t, run.HoursWorked.Equal(got.HoursWorked))
	assert.Equal(t, "534.00", got.GrossPay.StringFixed(2))
	assert.True(t, got.LocationWeightingApplied)
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
}

func testPayrollRunForMissingEmployee(t *testing.T, s payroll.Store) {
	_, err := s.InsertPayrollRun(context.Background(), payroll.PayrollRun{
		EmployeeID:     31337,
		PayPeriodStart: payroll.Date(2025, 3, 1),
		PayPeriodEnd:   payroll.Date(2025, 3, 31),
		CreatedAt:      time.Now().UTC(),
	})
	assert.True(t, payroll.IsNotFound(err))
}

// =============================================================================
// PHONE SALES
// =============================================================================

func testPhoneSales(t *testing.T, s payroll.Store) {
	ctx := context.Background()
	id := mustAddEmployee(t, s, newEmployee("QQ000014A", "Seller", "London"))

	saleID, err := s.AddPhoneSale(ctx, payroll.PhoneSale{
		EmployeeID:   id,
		HandsetModel: "Pixel 9",
		SaleDate:     payroll.Date(2025, 2, 14),
		SalePrice:    payroll.MustDecimal("799.00"),
		Commission:   payroll.MustDecimal("39.95"),
	})
	require.NoError(t, err)
	require.NotZero(t, saleID)

	sales, err := s.ListPhoneSales(ctx, id)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, saleID, sales[0].ID)
	assert.Equal(t, "Pixel 9", sales[0].HandsetModel)
	assert.True(t, payroll.Date(2025, 2, 14).Equal(sales[0].SaleDate))
	assert.Equal(t, "39.95", sales[0].Commission.StringFixed(2))

	_, err = s.AddPhoneSale(ctx, payroll.PhoneSale{EmployeeID: 8080, HandsetModel: "X", SaleDate: payroll.Date(2025, 1, 1)})
	assert.True(t, payroll.IsNotFound(err))
}

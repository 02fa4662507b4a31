package payroll_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeoconnect/payroll/payroll"
	"github.com/yeoconnect/payroll/payroll/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2025, time.March, 31, 17, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*payroll.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := payroll.NewService(mem, payroll.WithClock(func() time.Time { return fixedNow }))
	return svc, mem
}

func addEmployee(t *testing.T, mem *store.Memory, ni string, contractType payroll.ContractType, branch string) int64 {
	t.Helper()
	id, err := mem.AddEmployee(context.Background(), payroll.Employee{
		FirstName:    "Test",
		LastName:     "Employee",
		StartDate:    payroll.Date(2023, 1, 1),
		NINumber:     ni,
		Department:   "Sales",
		Branch:       branch,
		ContractType: contractType,
	})
	require.NoError(t, err)
	return id
}

func addContract(t *testing.T, mem *store.Memory, c payroll.Contract) int64 {
	t.Helper()
	id, err := mem.AddContract(context.Background(), c)
	require.NoError(t, err)
	return id
}

func marchRequest(employeeID int64, hours string) payroll.RunRequest {
	return payroll.RunRequest{
		EmployeeID:     employeeID,
		HoursWorked:    d(hours),
		PayPeriodStart: payroll.Date(2025, 3, 1),
		PayPeriodEnd:   payroll.Date(2025, 3, 31),
	}
}

func runCount(t *testing.T, mem *store.Memory, employeeID int64) int {
	t.Helper()
	runs, err := mem.ListPayrollRuns(context.Background(), employeeID)
	require.NoError(t, err)
	return len(runs)
}

// =============================================================================
// SUCCESSFUL RUNS
// =============================================================================

func TestRunPayroll_LondonHourly_WeightedOvertime(t *testing.T) {
	// GIVEN: Hourly employee in London at 10/h
	// WHEN: Running payroll for 40 hours
	// THEN: Gross pay is 534.00 with weighting applied, and the run is stored

	svc, mem := newTestService(t)
	ctx := context.Background()

	empID := addEmployee(t, mem, "QQ100001A", payroll.ContractHourly, "London")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	run, err := svc.RunPayrollForEmployee(ctx, marchRequest(empID, "40"))
	require.NoError(t, err)

	assert.NotZero(t, run.ID)
	assert.Equal(t, empID, run.EmployeeID)
	assert.Equal(t, "534.00", run.GrossPay.StringFixed(2))
	assert.Equal(t, "£534.00", run.GrossPayDisplay())
	assert.True(t, run.LocationWeightingApplied)
	assert.Equal(t, fixedNow, run.CreatedAt)
	assert.True(t, d("40").Equal(run.HoursWorked))

	history, err := svc.PayrollHistory(ctx, empID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, run.ID, history[0].ID)
	assert.Equal(t, "534.00", history[0].GrossPay.StringFixed(2))
}

func TestRunPayroll_YeovilSalaried_NotWeighted(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100002A", payroll.ContractSalaried, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2000")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))
	require.NoError(t, err)
	assert.Equal(t, "2000.00", run.GrossPay.StringFixed(2))
	assert.False(t, run.LocationWeightingApplied)
}

func TestRunPayroll_ZeroHours(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100003A", payroll.ContractHourly, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "0"))
	require.NoError(t, err)
	assert.True(t, run.GrossPay.IsZero())
}

func TestRunPayroll_SingleDayPeriod(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100004A", payroll.ContractHourly, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	req := marchRequest(empID, "8")
	req.PayPeriodEnd = req.PayPeriodStart
	_, err := svc.RunPayrollForEmployee(context.Background(), req)
	require.NoError(t, err)
}

func TestRunPayroll_NotIdempotent(t *testing.T) {
	// GIVEN: A valid employee and contract
	// WHEN: Running the same payroll twice
	// THEN: Two runs are stored with distinct IDs

	svc, mem := newTestService(t)
	ctx := context.Background()

	empID := addEmployee(t, mem, "QQ100005A", payroll.ContractSalaried, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2000")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	first, err := svc.RunPayrollForEmployee(ctx, marchRequest(empID, "37"))
	require.NoError(t, err)
	second, err := svc.RunPayrollForEmployee(ctx, marchRequest(empID, "37"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, runCount(t, mem, empID))

	history, err := svc.PayrollHistory(ctx, empID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID, "newest first")
}

// =============================================================================
// ACTIVE CONTRACT SELECTION
// =============================================================================

func TestRunPayroll_LatestEffectiveFromWins(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100006A", payroll.ContractSalaried, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2500")),
		EffectiveFrom: payroll.Date(2025, 1, 1),
	})
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("1800")),
		EffectiveFrom: payroll.Date(2023, 1, 1),
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))
	require.NoError(t, err)
	assert.Equal(t, "2500.00", run.GrossPay.StringFixed(2))
}

func TestRunPayroll_SameEffectiveFrom_HighestIDWins(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100007A", payroll.ContractSalaried, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("1900")),
		EffectiveFrom: payroll.Date(2024, 6, 1),
	})
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2100")),
		EffectiveFrom: payroll.Date(2024, 6, 1),
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))
	require.NoError(t, err)
	assert.Equal(t, "2100.00", run.GrossPay.StringFixed(2))
}

func TestRunPayroll_ExpiredContractStillSelected(t *testing.T) {
	// GIVEN: The latest contract ended before the pay period
	// WHEN: Running payroll
	// THEN: It is still used; effective_to does not affect selection

	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100008A", payroll.ContractSalaried, "Yeovil")
	ended := payroll.Date(2024, 12, 31)
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2000")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
		EffectiveTo:   &ended,
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))
	require.NoError(t, err)
	assert.Equal(t, "2000.00", run.GrossPay.StringFixed(2))
}

// =============================================================================
// FAILURES
// =============================================================================

func TestRunPayroll_UnknownEmployee_NotFound(t *testing.T) {
	// GIVEN: No employee 9999
	// WHEN: Running payroll for 9999
	// THEN: NotFoundError, and nothing is stored

	svc, mem := newTestService(t)

	_, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(9999, "37"))

	var nfErr *payroll.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "employee", nfErr.Resource)
	assert.Equal(t, int64(9999), nfErr.ID)
	assert.True(t, payroll.IsNotFound(err))
	assert.Equal(t, 0, runCount(t, mem, 9999))
}

func TestRunPayroll_NoContract_NotFound(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100009A", payroll.ContractHourly, "London")

	_, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))

	var nfErr *payroll.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "active contract", nfErr.Resource)
	assert.Contains(t, err.Error(), "no active contract")
	assert.Equal(t, 0, runCount(t, mem, empID))
}

func TestRunPayroll_InvalidContract_NothingStored(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100010A", payroll.ContractPartTime, "London")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("1000")),
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	_, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "25"))

	var vErr *payroll.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, runCount(t, mem, empID))
}

func TestRunPayroll_NegativeHours_InputError(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100011A", payroll.ContractHourly, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	_, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "-1"))

	var inErr *payroll.InputError
	require.ErrorAs(t, err, &inErr)
	assert.Equal(t, "hours_worked", inErr.Field)
	assert.Equal(t, 0, runCount(t, mem, empID))
}

func TestRunPayroll_PeriodEndBeforeStart_InputError(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100012A", payroll.ContractHourly, "Yeovil")

	req := marchRequest(empID, "10")
	req.PayPeriodStart, req.PayPeriodEnd = req.PayPeriodEnd, req.PayPeriodStart
	_, err := svc.RunPayrollForEmployee(context.Background(), req)

	assert.ErrorIs(t, err, payroll.ErrInput)
	assert.Equal(t, 0, runCount(t, mem, empID))
}

func TestRunPayroll_MissingPeriod_InputError(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RunPayrollForEmployee(context.Background(), payroll.RunRequest{EmployeeID: 1, HoursWorked: d("1")})
	assert.ErrorIs(t, err, payroll.ErrInput)
}

func TestRunPayroll_InsertFails_ErrorPropagated(t *testing.T) {
	svc, mem := newTestService(t)

	empID := addEmployee(t, mem, "QQ100013A", payroll.ContractHourly, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		HourlyRate:    payroll.DecimalPtr(d("10")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})
	diskFull := errors.New("disk full")
	mem.FailInserts(diskFull)

	_, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "10"))
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, payroll.IsClientError(err))

	mem.FailInserts(nil)
	assert.Equal(t, 0, runCount(t, mem, empID))
}

// =============================================================================
// HISTORY, OPTIONS
// =============================================================================

func TestPayrollHistory_UnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PayrollHistory(context.Background(), 42)
	assert.True(t, payroll.IsNotFound(err))
}

type gatewayOnly struct{ payroll.Gateway }

func TestPayrollHistory_RequiresRegistry(t *testing.T) {
	svc := payroll.NewService(gatewayOnly{store.NewMemory()})

	_, err := svc.PayrollHistory(context.Background(), 1)
	assert.ErrorIs(t, err, payroll.ErrStoreRequired)
}

func TestRunPayroll_CustomResolverAndLogger(t *testing.T) {
	var buf bytes.Buffer
	mem := store.NewMemory()
	svc := payroll.NewService(mem,
		payroll.WithResolver(payroll.NewResolver("Yeovil", d("1.5"))),
		payroll.WithLogger(zerolog.New(&buf)),
	)

	empID := addEmployee(t, mem, "QQ100014A", payroll.ContractSalaried, "Yeovil")
	addContract(t, mem, payroll.Contract{
		EmployeeID:    empID,
		BaseSalary:    payroll.DecimalPtr(d("2000")),
		EffectiveFrom: payroll.Date(2024, 1, 1),
	})

	run, err := svc.RunPayrollForEmployee(context.Background(), marchRequest(empID, "37"))
	require.NoError(t, err)
	assert.Equal(t, "3000.00", run.GrossPay.StringFixed(2))
	assert.True(t, run.LocationWeightingApplied)
	assert.Contains(t, buf.String(), `"gross_pay":"3000.00"`)
	assert.Contains(t, buf.String(), "payroll run recorded")
}

func TestHoursFromFloat(t *testing.T) {
	h, err := payroll.HoursFromFloat(37.5)
	require.NoError(t, err)
	assert.True(t, d("37.5").Equal(h))

	_, err = payroll.HoursFromFloat(-0.5)
	assert.ErrorIs(t, err, payroll.ErrInput)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = payroll.HoursFromFloat(bad)
		assert.ErrorIs(t, err, payroll.ErrInput, "hours %v", bad)
	}
}

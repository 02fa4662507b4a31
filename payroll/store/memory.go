// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yeoconnect/payroll/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[int64]payroll.Employee
	contracts map[int64][]payroll.Contract
	runs      map[int64][]payroll.PayrollRun
	sales     map[int64][]payroll.PhoneSale
	niNumbers map[string]int64
	nextID    map[string]int64

	// failInsert makes InsertPayrollRun fail, for exercising error paths.
	failInsert error
}

var _ payroll.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[int64]payroll.Employee),
		contracts: make(map[int64][]payroll.Contract),
		runs:      make(map[int64][]payroll.PayrollRun),
		sales:     make(map[int64][]payroll.PhoneSale),
		niNumbers: make(map[string]int64),
		nextID:    make(map[string]int64),
	}
}

// FailInserts makes every subsequent InsertPayrollRun return err. Pass nil
// to restore normal behavior.
func (m *Memory) FailInserts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInsert = err
}

func (m *Memory) allocID(table string) int64 {
	m.nextID[table]++
	return m.nextID[table]
}

// =============================================================================
// GATEWAY
// =============================================================================

func (m *Memory) GetEmployee(_ context.Context, id int64) (*payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

// GetActiveContract returns the contract with the latest EffectiveFrom,
// highest ID on ties.
func (m *Memory) GetActiveContract(_ context.Context, employeeID int64) (*payroll.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active *payroll.Contract
	for _, c := range m.contracts[employeeID] {
		if active == nil ||
			c.EffectiveFrom.After(active.EffectiveFrom) ||
			(c.EffectiveFrom.Equal(active.EffectiveFrom) && c.ID > active.ID) {
			c := c
			active = &c
		}
	}
	return active, nil
}

// InsertPayrollRun appends a run. Append-only.
func (m *Memory) InsertPayrollRun(_ context.Context, run payroll.PayrollRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInsert != nil {
		return 0, m.failInsert
	}
	if _, ok := m.employees[run.EmployeeID]; !ok {
		return 0, &payroll.NotFoundError{Resource: "employee", ID: run.EmployeeID}
	}

	run.ID = m.allocID("payroll_runs")
	m.runs[run.EmployeeID] = append(m.runs[run.EmployeeID], run)
	return run.ID, nil
}

// =============================================================================
// REGISTRY
// =============================================================================

func (m *Memory) AddEmployee(_ context.Context, emp payroll.Employee) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emp.ContractType = payroll.NormalizeContractType(string(emp.ContractType))
	emp.NINumber = strings.ToUpper(strings.TrimSpace(emp.NINumber))
	if _, taken := m.niNumbers[emp.NINumber]; taken {
		return 0, payroll.ErrDuplicateNINumber
	}

	emp.ID = m.allocID("employees")
	m.employees[emp.ID] = emp
	m.niNumbers[emp.NINumber] = emp.ID
	return emp.ID, nil
}

func (m *Memory) UpdateEmployee(_ context.Context, emp payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.employees[emp.ID]
	if !ok {
		return &payroll.NotFoundError{Resource: "employee", ID: emp.ID}
	}

	emp.ContractType = payroll.NormalizeContractType(string(emp.ContractType))
	emp.NINumber = strings.ToUpper(strings.TrimSpace(emp.NINumber))
	if owner, taken := m.niNumbers[emp.NINumber]; taken && owner != emp.ID {
		return payroll.ErrDuplicateNINumber
	}

	delete(m.niNumbers, existing.NINumber)
	m.niNumbers[emp.NINumber] = emp.ID
	m.employees[emp.ID] = emp
	return nil
}

// DeleteEmployee cascades to contracts, runs and sales.
func (m *Memory) DeleteEmployee(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	emp, ok := m.employees[id]
	if !ok {
		return &payroll.NotFoundError{Resource: "employee", ID: id}
	}
	delete(m.niNumbers, emp.NINumber)
	delete(m.employees, id)
	delete(m.contracts, id)
	delete(m.runs, id)
	delete(m.sales, id)
	return nil
}

func (m *Memory) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return m.SearchEmployees(ctx, "")
}

func (m *Memory) SearchEmployees(_ context.Context, lastName string) ([]payroll.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(lastName)
	var result []payroll.Employee
	for _, emp := range m.employees {
		if strings.Contains(strings.ToLower(emp.LastName), needle) {
			result = append(result, emp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) AddContract(_ context.Context, contract payroll.Contract) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[contract.EmployeeID]; !ok {
		return 0, &payroll.NotFoundError{Resource: "employee", ID: contract.EmployeeID}
	}
	contract.ID = m.allocID("contracts")
	m.contracts[contract.EmployeeID] = append(m.contracts[contract.EmployeeID], contract)
	return contract.ID, nil
}

func (m *Memory) ListContracts(_ context.Context, employeeID int64) ([]payroll.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payroll.Contract, len(m.contracts[employeeID]))
	copy(result, m.contracts[employeeID])
	sort.Slice(result, func(i, j int) bool {
		if result[i].EffectiveFrom.Equal(result[j].EffectiveFrom) {
			return result[i].ID > result[j].ID
		}
		return result[i].EffectiveFrom.After(result[j].EffectiveFrom)
	})
	return result, nil
}

func (m *Memory) ListPayrollRuns(_ context.Context, employeeID int64) ([]payroll.PayrollRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.runs[employeeID]
	result := make([]payroll.PayrollRun, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		result = append(result, runs[i])
	}
	return result, nil
}

func (m *Memory) AddPhoneSale(_ context.Context, sale payroll.PhoneSale) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[sale.EmployeeID]; !ok {
		return 0, &payroll.NotFoundError{Resource: "employee", ID: sale.EmployeeID}
	}
	sale.ID = m.allocID("phone_sales")
	m.sales[sale.EmployeeID] = append(m.sales[sale.EmployeeID], sale)
	return sale.ID, nil
}

func (m *Memory) ListPhoneSales(_ context.Context, employeeID int64) ([]payroll.PhoneSale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payroll.PhoneSale, len(m.sales[employeeID]))
	copy(result, m.sales[employeeID])
	return result, nil
}

/*
Package sqlite provides a SQLite-backed implementation of payroll.Store.

PURPOSE:
  Default backend for the payroll engine. Holds employees, their contracts,
  the append-only payroll run history and phone sales.

KEY TABLES:
  employees:    Registered staff (ni_number unique)
  contracts:    Economic terms, many per employee
  payroll_runs: Immutable record of every gross pay calculation
  phone_sales:  Handset sales credited to employees

STORAGE FORMATS:
  Dates are TEXT "YYYY-MM-DD", timestamps TEXT RFC3339 (UTC). Money and
  hours are TEXT decimal strings so no precision is lost through REAL.
  Absent optional contract terms are NULL.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement targets payroll_runs directly. Rows only
  disappear through the ON DELETE CASCADE of their employee.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, with WAL so readers do not block.
  ":memory:" databases are pinned to one connection, since every new
  connection to ":memory:" would open a separate empty database.

USAGE:
  store, err := sqlite.New("./payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewService(store)

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/yeoconnect/payroll/payroll"
)

const dateLayout = "2006-01-02"

// Store implements payroll.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ payroll.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		address TEXT NOT NULL,
		start_date TEXT NOT NULL,
		ni_number TEXT NOT NULL UNIQUE,
		department TEXT NOT NULL,
		branch TEXT NOT NULL,
		contract_type TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_last_name
		ON employees(last_name);

	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		base_salary TEXT,
		hourly_rate TEXT,
		contract_hours TEXT,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		FOREIGN KEY (employee_id) REFERENCES employees (id) ON DELETE CASCADE
	);

	-- Active contract lookup (hot path of every payroll run)
	CREATE INDEX IF NOT EXISTS idx_contracts_employee_effective
		ON contracts(employee_id, effective_from DESC, id DESC);

	-- Payroll runs (append-only). No uniqueness on employee+period:
	-- repeated runs for the same period are all kept.
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		pay_period_start TEXT NOT NULL,
		pay_period_end TEXT NOT NULL,
		hours_worked TEXT NOT NULL,
		gross_pay TEXT NOT NULL,
		london_weighting_applied INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (employee_id) REFERENCES employees (id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_employee
		ON payroll_runs(employee_id, id DESC);

	CREATE TABLE IF NOT EXISTS phone_sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		handset_model TEXT NOT NULL,
		sale_date TEXT NOT NULL,
		sale_price TEXT NOT NULL,
		commission TEXT NOT NULL,
		FOREIGN KEY (employee_id) REFERENCES employees (id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_phone_sales_employee
		ON phone_sales(employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// GATEWAY (payroll.Gateway interface)
// =============================================================================

const employeeColumns = `id, first_name, last_name, address, start_date, ni_number, department, branch, contract_type`

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id int64) (*payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

const contractColumns = `id, employee_id, base_salary, hourly_rate, contract_hours, effective_from, effective_to`

// GetActiveContract returns the most recent contract by effective_from,
// highest id on ties. effective_to is not consulted.
func (s *Store) GetActiveContract(ctx context.Context, employeeID int64) (*payroll.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE employee_id = ?
		ORDER BY effective_from DESC, id DESC
		LIMIT 1
	`, employeeID)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active contract: %w", err)
	}
	return &c, nil
}

// InsertPayrollRun appends a payroll run and returns its ID.
func (s *Store) InsertPayrollRun(ctx context.Context, run payroll.PayrollRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payroll_runs
		(employee_id, pay_period_start, pay_period_end, hours_worked, gross_pay,
		 london_weighting_applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.EmployeeID,
		run.PayPeriodStart.Format(dateLayout),
		run.PayPeriodEnd.Format(dateLayout),
		run.HoursWorked.String(),
		run.GrossPay.String(),
		boolToInt(run.LocationWeightingApplied),
		createdAt(run.CreatedAt),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: run.EmployeeID}
		}
		return 0, fmt.Errorf("failed to insert payroll run: %w", err)
	}
	return res.LastInsertId()
}

// =============================================================================
// EMPLOYEE REGISTRY
// =============================================================================

// AddEmployee inserts an employee with normalized contract type and NI number.
func (s *Store) AddEmployee(ctx context.Context, emp payroll.Employee) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO employees
		(first_name, last_name, address, start_date, ni_number, department, branch, contract_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		emp.FirstName, emp.LastName, emp.Address,
		emp.StartDate.Format(dateLayout),
		normalizeNINumber(emp.NINumber),
		emp.Department, emp.Branch,
		string(payroll.NormalizeContractType(string(emp.ContractType))),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, payroll.ErrDuplicateNINumber
		}
		return 0, fmt.Errorf("failed to add employee: %w", err)
	}
	return res.LastInsertId()
}

// UpdateEmployee overwrites an existing employee.
func (s *Store) UpdateEmployee(ctx context.Context, emp payroll.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE employees
		SET first_name = ?, last_name = ?, address = ?, start_date = ?,
		    ni_number = ?, department = ?, branch = ?, contract_type = ?
		WHERE id = ?
	`,
		emp.FirstName, emp.LastName, emp.Address,
		emp.StartDate.Format(dateLayout),
		normalizeNINumber(emp.NINumber),
		emp.Department, emp.Branch,
		string(payroll.NormalizeContractType(string(emp.ContractType))),
		emp.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrDuplicateNINumber
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return requireAffected(res, emp.ID)
}

// DeleteEmployee removes an employee; contracts, runs and sales cascade.
func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return requireAffected(res, id)
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY id")
}

// SearchEmployees returns employees whose last name contains lastName.
func (s *Store) SearchEmployees(ctx context.Context, lastName string) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE last_name LIKE ? ORDER BY id",
		"%"+lastName+"%")
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// CONTRACT REGISTRY
// =============================================================================

// AddContract inserts a contract for an existing employee.
func (s *Store) AddContract(ctx context.Context, c payroll.Contract) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effectiveTo sql.NullString
	if c.EffectiveTo != nil {
		effectiveTo = sql.NullString{String: c.EffectiveTo.Format(dateLayout), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts
		(employee_id, base_salary, hourly_rate, contract_hours, effective_from, effective_to)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		c.EmployeeID,
		nullDecimal(c.BaseSalary),
		nullDecimal(c.HourlyRate),
		nullDecimal(c.ContractHours),
		c.EffectiveFrom.Format(dateLayout),
		effectiveTo,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: c.EmployeeID}
		}
		return 0, fmt.Errorf("failed to add contract: %w", err)
	}
	return res.LastInsertId()
}

// ListContracts returns an employee's contracts, most recent first.
func (s *Store) ListContracts(ctx context.Context, employeeID int64) ([]payroll.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE employee_id = ?
		ORDER BY effective_from DESC, id DESC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []payroll.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// =============================================================================
// PAYROLL HISTORY
// =============================================================================

// ListPayrollRuns returns an employee's runs, newest first.
func (s *Store) ListPayrollRuns(ctx context.Context, employeeID int64) ([]payroll.PayrollRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, pay_period_start, pay_period_end, hours_worked,
		       gross_pay, london_weighting_applied, created_at
		FROM payroll_runs
		WHERE employee_id = ?
		ORDER BY id DESC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		var run payroll.PayrollRun
		var start, end, hours, gross, created string
		var weighted int
		if err := rows.Scan(&run.ID, &run.EmployeeID, &start, &end, &hours, &gross, &weighted, &created); err != nil {
			return nil, err
		}
		run.PayPeriodStart, _ = time.Parse(dateLayout, start)
		run.PayPeriodEnd, _ = time.Parse(dateLayout, end)
		var err error
		if run.HoursWorked, err = requireDecimal("hours_worked", hours); err != nil {
			return nil, err
		}
		if run.GrossPay, err = requireDecimal("gross_pay", gross); err != nil {
			return nil, err
		}
		run.LocationWeightingApplied = weighted != 0
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// PHONE SALES
// =============================================================================

// AddPhoneSale records a handset sale.
func (s *Store) AddPhoneSale(ctx context.Context, sale payroll.PhoneSale) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO phone_sales (employee_id, handset_model, sale_date, sale_price, commission)
		VALUES (?, ?, ?, ?, ?)
	`,
		sale.EmployeeID, sale.HandsetModel,
		sale.SaleDate.Format(dateLayout),
		sale.SalePrice.String(), sale.Commission.String(),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: sale.EmployeeID}
		}
		return 0, fmt.Errorf("failed to add phone sale: %w", err)
	}
	return res.LastInsertId()
}

// ListPhoneSales returns an employee's sales in recording order.
func (s *Store) ListPhoneSales(ctx context.Context, employeeID int64) ([]payroll.PhoneSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, handset_model, sale_date, sale_price, commission
		FROM phone_sales
		WHERE employee_id = ?
		ORDER BY id
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query phone sales: %w", err)
	}
	defer rows.Close()

	var sales []payroll.PhoneSale
	for rows.Next() {
		var sale payroll.PhoneSale
		var saleDate, price, commission string
		if err := rows.Scan(&sale.ID, &sale.EmployeeID, &sale.HandsetModel, &saleDate, &price, &commission); err != nil {
			return nil, err
		}
		sale.SaleDate, _ = time.Parse(dateLayout, saleDate)
		var err error
		if sale.SalePrice, err = requireDecimal("sale_price", price); err != nil {
			return nil, err
		}
		if sale.Commission, err = requireDecimal("commission", commission); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (payroll.Employee, error) {
	var emp payroll.Employee
	var startDate, contractType string
	err := row.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Address,
		&startDate, &emp.NINumber, &emp.Department, &emp.Branch, &contractType)
	if err != nil {
		return payroll.Employee{}, err
	}
	emp.StartDate, _ = time.Parse(dateLayout, startDate)
	emp.ContractType = payroll.ContractType(contractType)
	return emp, nil
}

func scanContract(row scanner) (payroll.Contract, error) {
	var c payroll.Contract
	var baseSalary, hourlyRate, contractHours, effectiveTo sql.NullString
	var effectiveFrom string
	err := row.Scan(&c.ID, &c.EmployeeID, &baseSalary, &hourlyRate, &contractHours,
		&effectiveFrom, &effectiveTo)
	if err != nil {
		return payroll.Contract{}, err
	}
	if c.BaseSalary, err = parseNullDecimal("base_salary", baseSalary); err != nil {
		return payroll.Contract{}, err
	}
	if c.HourlyRate, err = parseNullDecimal("hourly_rate", hourlyRate); err != nil {
		return payroll.Contract{}, err
	}
	if c.ContractHours, err = parseNullDecimal("contract_hours", contractHours); err != nil {
		return payroll.Contract{}, err
	}
	c.EffectiveFrom, _ = time.Parse(dateLayout, effectiveFrom)
	if effectiveTo.Valid {
		if t, err := time.Parse(dateLayout, effectiveTo.String); err == nil {
			c.EffectiveTo = &t
		}
	}
	return c, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// parseNullDecimal maps NULL to an absent term. Anything else must parse.
func parseNullDecimal(column string, s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := requireDecimal(column, s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func normalizeNINumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &payroll.NotFoundError{Resource: "employee", ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

func requireDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, s, err)
	}
	return d, nil
}

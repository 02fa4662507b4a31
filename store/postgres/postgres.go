/*
Package postgres provides a PostgreSQL implementation of payroll.Store.

PURPOSE:
  Same contract as store/sqlite, for deployments that already run
  PostgreSQL. Selected by cmd/server when DATABASE_URL is set.

STORAGE FORMATS:
  Dates are DATE, money and hours NUMERIC. Values cross the driver as
  decimal strings (cast with ::numeric / ::text) so no precision is lost.

ERRORS:
  23505 (unique_violation) on ni_number  -> payroll.ErrDuplicateNINumber
  23503 (foreign_key_violation)          -> payroll.NotFoundError

SEE ALSO:
  - payroll/store.go: Interface definitions
  - store/sqlite: Default backend
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yeoconnect/payroll/payroll"
)

// PgxPoolIface is the subset of *pgxpool.Pool the store uses.
type PgxPoolIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements payroll.Store on PostgreSQL.
type Store struct {
	pool   PgxPoolIface
	closer func()
}

var _ payroll.Store = (*Store)(nil)

// New connects to databaseURL, migrates the schema and returns the store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}

	store := &Store{pool: pool, closer: pool.Close}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool wraps an existing pool. The caller owns its lifecycle.
func NewWithPool(pool PgxPoolIface) *Store {
	return &Store{pool: pool}
}

// Close releases the pool if the store created it.
func (s *Store) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
create table if not exists employees (
  id            bigserial primary key,
  first_name    text not null,
  last_name     text not null,
  address       text not null,
  start_date    date not null,
  ni_number     text not null unique,
  department    text not null,
  branch        text not null,
  contract_type text not null
);

create table if not exists contracts (
  id             bigserial primary key,
  employee_id    bigint not null references employees (id) on delete cascade,
  base_salary    numeric,
  hourly_rate    numeric,
  contract_hours numeric,
  effective_from date not null,
  effective_to   date
);

create index if not exists idx_contracts_employee_effective
  on contracts (employee_id, effective_from desc, id desc);

create table if not exists payroll_runs (
  id                       bigserial primary key,
  employee_id              bigint not null references employees (id) on delete cascade,
  pay_period_start         date not null,
  pay_period_end           date not null,
  hours_worked             numeric not null,
  gross_pay                numeric not null,
  london_weighting_applied boolean not null,
  created_at               timestamptz not null
);

create index if not exists idx_payroll_runs_employee
  on payroll_runs (employee_id, id desc);

create table if not exists phone_sales (
  id            bigserial primary key,
  employee_id   bigint not null references employees (id) on delete cascade,
  handset_model text not null,
  sale_date     date not null,
  sale_price    numeric not null,
  commission    numeric not null
);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Truncate deletes every row and resets ID sequences.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `truncate phone_sales, payroll_runs, contracts, employees restart identity cascade`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

// =============================================================================
// GATEWAY
// =============================================================================

const employeeColumns = `id, first_name, last_name, address, start_date, ni_number, department, branch, contract_type`

func (s *Store) GetEmployee(ctx context.Context, id int64) (*payroll.Employee, error) {
	row := s.pool.QueryRow(ctx, `select `+employeeColumns+` from employees where id = $1`, id)
	emp, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return &emp, nil
}

const contractColumns = `id, employee_id, base_salary::text, hourly_rate::text, contract_hours::text, effective_from, effective_to`

func (s *Store) GetActiveContract(ctx context.Context, employeeID int64) (*payroll.Contract, error) {
	row := s.pool.QueryRow(ctx, `
select `+contractColumns+`
from contracts
where employee_id = $1
order by effective_from desc, id desc
limit 1`, employeeID)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return &c, nil
}

func (s *Store) InsertPayrollRun(ctx context.Context, run payroll.PayrollRun) (int64, error) {
	query := `
insert into payroll_runs
  (employee_id, pay_period_start, pay_period_end, hours_worked, gross_pay, london_weighting_applied, created_at)
values
  (@employee_id, @pay_period_start, @pay_period_end, @hours_worked::numeric, @gross_pay::numeric, @weighted, @created_at)
returning id;
`
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	args := pgx.NamedArgs{
		"employee_id":      run.EmployeeID,
		"pay_period_start": run.PayPeriodStart,
		"pay_period_end":   run.PayPeriodEnd,
		"hours_worked":     run.HoursWorked.String(),
		"gross_pay":        run.GrossPay.String(),
		"weighted":         run.LocationWeightingApplied,
		"created_at":       createdAt.UTC(),
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args).Scan(&id); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: run.EmployeeID}
		}
		return 0, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return id, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func employeeArgs(emp payroll.Employee) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":            emp.ID,
		"first_name":    emp.FirstName,
		"last_name":     emp.LastName,
		"address":       emp.Address,
		"start_date":    emp.StartDate,
		"ni_number":     strings.ToUpper(strings.TrimSpace(emp.NINumber)),
		"department":    emp.Department,
		"branch":        emp.Branch,
		"contract_type": string(payroll.NormalizeContractType(string(emp.ContractType))),
	}
}

func (s *Store) AddEmployee(ctx context.Context, emp payroll.Employee) (int64, error) {
	query := `
insert into employees
  (first_name, last_name, address, start_date, ni_number, department, branch, contract_type)
values
  (@first_name, @last_name, @address, @start_date, @ni_number, @department, @branch, @contract_type)
returning id;
`
	var id int64
	if err := s.pool.QueryRow(ctx, query, employeeArgs(emp)).Scan(&id); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return 0, payroll.ErrDuplicateNINumber
		}
		return 0, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, emp payroll.Employee) error {
	query := `
update employees set
  first_name    = @first_name,
  last_name     = @last_name,
  address       = @address,
  start_date    = @start_date,
  ni_number     = @ni_number,
  department    = @department,
  branch        = @branch,
  contract_type = @contract_type
where id = @id;
`
	tag, err := s.pool.Exec(ctx, query, employeeArgs(emp))
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return payroll.ErrDuplicateNINumber
		}
		return fmt.Errorf("pool.Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &payroll.NotFoundError{Resource: "employee", ID: emp.ID}
	}
	return nil
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `delete from employees where id = $1`, id)
	if err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &payroll.NotFoundError{Resource: "employee", ID: id}
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx, `select `+employeeColumns+` from employees order by id`)
}

func (s *Store) SearchEmployees(ctx context.Context, lastName string) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		`select `+employeeColumns+` from employees where last_name ilike $1 order by id`,
		"%"+lastName+"%")
}

func (s *Store) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.Employee, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) AddContract(ctx context.Context, c payroll.Contract) (int64, error) {
	query := `
insert into contracts
  (employee_id, base_salary, hourly_rate, contract_hours, effective_from, effective_to)
values
  (@employee_id, @base_salary::numeric, @hourly_rate::numeric, @contract_hours::numeric, @effective_from, @effective_to)
returning id;
`
	args := pgx.NamedArgs{
		"employee_id":    c.EmployeeID,
		"base_salary":    decimalArg(c.BaseSalary),
		"hourly_rate":    decimalArg(c.HourlyRate),
		"contract_hours": decimalArg(c.ContractHours),
		"effective_from": c.EffectiveFrom,
		"effective_to":   c.EffectiveTo,
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args).Scan(&id); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: c.EmployeeID}
		}
		return 0, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return id, nil
}

func (s *Store) ListContracts(ctx context.Context, employeeID int64) ([]payroll.Contract, error) {
	rows, err := s.pool.Query(ctx, `
select `+contractColumns+`
from contracts
where employee_id = $1
order by effective_from desc, id desc`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var contracts []payroll.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// =============================================================================
// HISTORY AND SALES
// =============================================================================

func (s *Store) ListPayrollRuns(ctx context.Context, employeeID int64) ([]payroll.PayrollRun, error) {
	rows, err := s.pool.Query(ctx, `
select id, employee_id, pay_period_start, pay_period_end, hours_worked::text,
       gross_pay::text, london_weighting_applied, created_at
from payroll_runs
where employee_id = $1
order by id desc`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		var run payroll.PayrollRun
		var hours, gross string
		if err := rows.Scan(&run.ID, &run.EmployeeID, &run.PayPeriodStart, &run.PayPeriodEnd,
			&hours, &gross, &run.LocationWeightingApplied, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		var err error
		if run.HoursWorked, err = requireDecimal("hours_worked", hours); err != nil {
			return nil, err
		}
		if run.GrossPay, err = requireDecimal("gross_pay", gross); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) AddPhoneSale(ctx context.Context, sale payroll.PhoneSale) (int64, error) {
	query := `
insert into phone_sales (employee_id, handset_model, sale_date, sale_price, commission)
values (@employee_id, @handset_model, @sale_date, @sale_price::numeric, @commission::numeric)
returning id;
`
	args := pgx.NamedArgs{
		"employee_id":   sale.EmployeeID,
		"handset_model": sale.HandsetModel,
		"sale_date":     sale.SaleDate,
		"sale_price":    sale.SalePrice.String(),
		"commission":    sale.Commission.String(),
	}

	var id int64
	if err := s.pool.QueryRow(ctx, query, args).Scan(&id); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return 0, &payroll.NotFoundError{Resource: "employee", ID: sale.EmployeeID}
		}
		return 0, fmt.Errorf("pool.QueryRow: %w", err)
	}
	return id, nil
}

func (s *Store) ListPhoneSales(ctx context.Context, employeeID int64) ([]payroll.PhoneSale, error) {
	rows, err := s.pool.Query(ctx, `
select id, employee_id, handset_model, sale_date, sale_price::text, commission::text
from phone_sales
where employee_id = $1
order by id`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("pool.Query: %w", err)
	}
	defer rows.Close()

	var sales []payroll.PhoneSale
	for rows.Next() {
		var sale payroll.PhoneSale
		var price, commission string
		if err := rows.Scan(&sale.ID, &sale.EmployeeID, &sale.HandsetModel, &sale.SaleDate, &price, &commission); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
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

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgCode(err error, code string) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == code
}

func scanEmployee(row pgx.Row) (payroll.Employee, error) {
	var emp payroll.Employee
	var contractType string
	err := row.Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.Address, &emp.StartDate,
		&emp.NINumber, &emp.Department, &emp.Branch, &contractType)
	if err != nil {
		return payroll.Employee{}, err
	}
	emp.ContractType = payroll.ContractType(contractType)
	return emp, nil
}

func scanContract(row pgx.Row) (payroll.Contract, error) {
	var c payroll.Contract
	var baseSalary, hourlyRate, contractHours *string
	err := row.Scan(&c.ID, &c.EmployeeID, &baseSalary, &hourlyRate, &contractHours,
		&c.EffectiveFrom, &c.EffectiveTo)
	if err != nil {
		return payroll.Contract{}, err
	}
	if c.BaseSalary, err = parseDecimal("base_salary", baseSalary); err != nil {
		return payroll.Contract{}, err
	}
	if c.HourlyRate, err = parseDecimal("hourly_rate", hourlyRate); err != nil {
		return payroll.Contract{}, err
	}
	if c.ContractHours, err = parseDecimal("contract_hours", contractHours); err != nil {
		return payroll.Contract{}, err
	}
	return c, nil
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimal(column string, s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := requireDecimal(column, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, s, err)
	}
	return d, nil
}

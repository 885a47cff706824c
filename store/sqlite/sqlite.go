/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the payroll persistence interfaces (PeriodStore,
  EmployeeDirectory, CatalogSource) plus CRUD for the reference data the
  API manages: components, employees, assignments, attendance, assets.

INTERFACES IMPLEMENTED:
  payroll.PeriodStore:       Payroll periods with optimistic versioning
  payroll.EmployeeDirectory: Employees + assignments + attendance per period
  payroll.CatalogSource:     Component catalog from stored JSON configs

KEY TABLES:
  components:            Component definitions (factory JSON, versioned)
  employees:             Basic salary, department, bank details
  component_assignments: Employee-to-component links with overrides
  attendance:            Days and overtime per employee per period
  payroll_periods:       Period document (JSON) + state + version
  period_transitions:    Append-only audit trail of transitions
  assets:                Fixed assets for depreciation

VERSIONING:
  UpdatePeriod is a compare-and-swap on the version column:
    UPDATE ... WHERE id = ? AND version = ?
  Zero rows affected means another writer got there first
  (ErrConcurrentModification) or the period is gone (ErrPeriodNotFound).

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Writers sharing one database file
  across processes are still safe thanks to the version check.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewPeriodService(store, store, store, authority)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - payroll/store.go: Interface definitions
  - payroll/store/memory.go: In-memory implementation for testing
  - factory/component.go: Component JSON stored in config_json
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/depreciation"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/money"
	"github.com/warp/payroll-engine/payroll"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db         *sql.DB
	mu         sync.RWMutex
	components *factory.ComponentFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives and dies with its connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, components: factory.NewComponentFactory()}
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

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Component catalog
	CREATE TABLE IF NOT EXISTS components (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		component_type TEXT NOT NULL,
		config_json TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		basic_salary INTEGER NOT NULL,
		bank_account TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department);

	-- Component assignments. component_code is deliberately not a foreign
	-- key: an assignment to a removed component must surface as a
	-- resolution error on that employee, not vanish.
	CREATE TABLE IF NOT EXISTS component_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		component_code TEXT NOT NULL,
		override_amount INTEGER,
		override_percentage TEXT,
		effective_from TEXT NOT NULL,
		expires_at TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON component_assignments(employee_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_component
		ON component_assignments(component_code);

	-- Attendance per employee per period
	CREATE TABLE IF NOT EXISTS attendance (
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		period_key TEXT NOT NULL,
		attendance_days INTEGER NOT NULL DEFAULT 0,
		leave_days INTEGER NOT NULL DEFAULT 0,
		overtime_hours TEXT NOT NULL DEFAULT '0',
		overtime_rate INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, period_key)
	);

	-- Payroll periods
	CREATE TABLE IF NOT EXISTS payroll_periods (
		id TEXT PRIMARY KEY,
		period_key TEXT NOT NULL UNIQUE,
		state TEXT NOT NULL,
		version INTEGER NOT NULL,
		data_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_periods_state
		ON payroll_periods(state);

	-- Transition audit trail (append-only)
	CREATE TABLE IF NOT EXISTS period_transitions (
		period_id TEXT NOT NULL REFERENCES payroll_periods(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		event TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		actor TEXT NOT NULL,
		note TEXT,
		at TEXT NOT NULL,
		PRIMARY KEY (period_id, seq)
	);

	-- Fixed assets
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		purchase_cost INTEGER NOT NULL,
		salvage_value INTEGER NOT NULL,
		useful_life_years INTEGER NOT NULL,
		purchase_date TEXT NOT NULL,
		method TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// COMPONENT STORE (payroll.CatalogSource)
// =============================================================================

// SaveComponent validates and upserts a definition. The version column
// increments on every update.
func (s *Store) SaveComponent(ctx context.Context, def payroll.ComponentDefinition) error {
	def, err := payroll.NewComponentDefinition(def)
	if err != nil {
		return err
	}
	configJSON, err := json.Marshal(s.components.ToJSON(def))
	if err != nil {
		return fmt.Errorf("failed to encode component: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO components (code, name, component_type, config_json, is_active, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			component_type = excluded.component_type,
			config_json = excluded.config_json,
			is_active = excluded.is_active,
			version = components.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		def.Code, def.Name, def.Type, string(configJSON), def.IsActive, now, now,
	)
	return err
}

// GetComponent returns ErrComponentNotFound for unknown codes.
func (s *Store) GetComponent(ctx context.Context, code payroll.ComponentCode) (payroll.ComponentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM components WHERE code = ?", code,
	).Scan(&configJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.ComponentDefinition{}, fmt.Errorf("component %s: %w", code, payroll.ErrComponentNotFound)
	}
	if err != nil {
		return payroll.ComponentDefinition{}, err
	}
	return s.components.ParseComponent(configJSON)
}

// ListComponents returns all definitions, sorted by code.
func (s *Store) ListComponents(ctx context.Context) ([]payroll.ComponentDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listComponents(ctx)
}

func (s *Store) listComponents(ctx context.Context) ([]payroll.ComponentDefinition, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT config_json FROM components ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var defs []payroll.ComponentDefinition
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		def, err := s.components.ParseComponent(configJSON)
		if err != nil {
			return nil, fmt.Errorf("stored component is invalid: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// DeleteComponent removes a definition. Assignments referencing it stay
// and fail resolution until reassigned.
func (s *Store) DeleteComponent(ctx context.Context, code payroll.ComponentCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM components WHERE code = ?", code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("component %s: %w", code, payroll.ErrComponentNotFound)
	}
	return nil
}

// Catalog builds the catalog from every stored definition.
func (s *Store) Catalog(ctx context.Context) (*payroll.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	defs, err := s.listComponents(ctx)
	if err != nil {
		return nil, err
	}
	return payroll.NewCatalog(defs...)
}

// =============================================================================
// EMPLOYEE STORE (payroll.EmployeeDirectory)
// =============================================================================

// SaveEmployee upserts an employee. Assignments on emp are ignored; use
// SaveAssignment.
func (s *Store) SaveEmployee(ctx context.Context, emp payroll.Employee) error {
	if emp.ID == "" {
		return &payroll.ValidationError{Field: "id", Message: "is required"}
	}
	if strings.TrimSpace(emp.Name) == "" {
		return &payroll.ValidationError{Field: "name", Message: "is required", EmployeeID: emp.ID}
	}
	if emp.BasicSalary.IsNegative() {
		return &payroll.ValidationError{Field: "basic_salary", Message: "must not be negative", EmployeeID: emp.ID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, department, basic_salary, bank_account, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			basic_salary = excluded.basic_salary,
			bank_account = excluded.bank_account,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, strings.TrimSpace(emp.Name), emp.Department, emp.BasicSalary.Int64(),
		nullString(emp.BankAccount), now, now,
	)
	return err
}

// GetEmployee returns the employee with their assignments.
func (s *Store) GetEmployee(ctx context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEmployee(ctx, id)
}

func (s *Store) getEmployee(ctx context.Context, id payroll.EmployeeID) (payroll.Employee, error) {
	var (
		emp         payroll.Employee
		basic       int64
		bankAccount sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, department, basic_salary, bank_account FROM employees WHERE id = ?", id,
	).Scan(&emp.ID, &emp.Name, &emp.Department, &basic, &bankAccount)
	if errors.Is(err, sql.ErrNoRows) {
		return payroll.Employee{}, fmt.Errorf("employee %s: %w", id, payroll.ErrEmployeeNotFound)
	}
	if err != nil {
		return payroll.Employee{}, err
	}
	emp.BasicSalary = money.Amount(basic)
	emp.BankAccount = bankAccount.String

	emp.Assignments, err = s.queryAssignments(ctx,
		assignmentColumns+" WHERE employee_id = ? ORDER BY effective_from, id", id)
	if err != nil {
		return payroll.Employee{}, err
	}
	return emp, nil
}

// ListEmployees returns all employees (without assignments), by name.
func (s *Store) ListEmployees(ctx context.Context) ([]payroll.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, department, basic_salary, bank_account FROM employees ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []payroll.Employee
	for rows.Next() {
		var (
			emp         payroll.Employee
			basic       int64
			bankAccount sql.NullString
		)
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.Department, &basic, &bankAccount); err != nil {
			return nil, err
		}
		emp.BasicSalary = money.Amount(basic)
		emp.BankAccount = bankAccount.String
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee with their assignments and attendance.
func (s *Store) DeleteEmployee(ctx context.Context, id payroll.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("employee %s: %w", id, payroll.ErrEmployeeNotFound)
	}
	return nil
}

// EmployeeInputs returns inputs for the known ids, in the order given.
func (s *Store) EmployeeInputs(ctx context.Context, key payroll.PeriodKey, ids []payroll.EmployeeID) ([]payroll.EmployeeInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inputs := make([]payroll.EmployeeInput, 0, len(ids))
	for _, id := range ids {
		emp, err := s.getEmployee(ctx, id)
		if errors.Is(err, payroll.ErrEmployeeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		att, err := s.getAttendance(ctx, id, key)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		inputs = append(inputs, att.ToInput(emp))
	}
	return inputs, nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

const assignmentColumns = `
	SELECT id, employee_id, component_code, override_amount, override_percentage,
	       effective_from, expires_at, active
	FROM component_assignments`

// SaveAssignment validates and upserts an assignment. The employee must
// exist; the component need not.
func (s *Store) SaveAssignment(ctx context.Context, a payroll.Assignment) error {
	a, err := payroll.NewAssignment(a)
	if err != nil {
		return err
	}
	if a.ID == "" {
		return &payroll.ValidationError{Field: "id", Message: "is required", EmployeeID: a.EmployeeID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO component_assignments
		(id, employee_id, component_code, override_amount, override_percentage,
		 effective_from, expires_at, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			component_code = excluded.component_code,
			override_amount = excluded.override_amount,
			override_percentage = excluded.override_percentage,
			effective_from = excluded.effective_from,
			expires_at = excluded.expires_at,
			active = excluded.active
	`

	var (
		overrideAmount sql.NullInt64
		overridePct    sql.NullString
		expiresAt      sql.NullString
	)
	if a.OverrideAmount != nil {
		overrideAmount = sql.NullInt64{Int64: a.OverrideAmount.Int64(), Valid: true}
	}
	if a.OverridePercentage != nil {
		overridePct = nullString(a.OverridePercentage.String())
	}
	if a.ExpiresAt != nil {
		expiresAt = nullString(a.ExpiresAt.Format(dateLayout))
	}

	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.EmployeeID, a.ComponentCode, overrideAmount, overridePct,
		a.EffectiveFrom.Format(dateLayout), expiresAt, a.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("employee %s: %w", a.EmployeeID, payroll.ErrEmployeeNotFound)
	}
	return err
}

// ListAssignments returns an employee's assignments.
func (s *Store) ListAssignments(ctx context.Context, employeeID payroll.EmployeeID) ([]payroll.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAssignments(ctx,
		assignmentColumns+" WHERE employee_id = ? ORDER BY effective_from, id", employeeID)
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM component_assignments WHERE id = ?", id)
	return err
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]payroll.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []payroll.Assignment
	for rows.Next() {
		var (
			a              payroll.Assignment
			overrideAmount sql.NullInt64
			overridePct    sql.NullString
			effectiveFrom  string
			expiresAt      sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.ComponentCode, &overrideAmount, &overridePct,
			&effectiveFrom, &expiresAt, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if overrideAmount.Valid {
			amt := money.Amount(overrideAmount.Int64)
			a.OverrideAmount = &amt
		}
		if overridePct.Valid {
			pct, err := decimal.NewFromString(overridePct.String)
			if err != nil {
				return nil, fmt.Errorf("assignment %s: bad override_percentage: %w", a.ID, err)
			}
			a.OverridePercentage = &pct
		}
		a.EffectiveFrom, _ = time.Parse(dateLayout, effectiveFrom)
		if expiresAt.Valid {
			t, _ := time.Parse(dateLayout, expiresAt.String)
			a.ExpiresAt = &t
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

// SaveAttendance upserts the attendance for (employee, period).
func (s *Store) SaveAttendance(ctx context.Context, a payroll.Attendance) error {
	if a.AttendanceDays < 0 || a.LeaveDays < 0 || a.OvertimeHours.IsNegative() || a.OvertimeRate.IsNegative() {
		return &payroll.ValidationError{Field: "attendance", Message: "values must not be negative", EmployeeID: a.EmployeeID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (employee_id, period_key, attendance_days, leave_days, overtime_hours, overtime_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, period_key) DO UPDATE SET
			attendance_days = excluded.attendance_days,
			leave_days = excluded.leave_days,
			overtime_hours = excluded.overtime_hours,
			overtime_rate = excluded.overtime_rate,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.EmployeeID, a.Period.String(), a.AttendanceDays, a.LeaveDays,
		a.OvertimeHours.String(), a.OvertimeRate.Int64(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if isForeignKeyError(err) {
		return fmt.Errorf("employee %s: %w", a.EmployeeID, payroll.ErrEmployeeNotFound)
	}
	return err
}

// GetAttendance returns nil when nothing was recorded.
func (s *Store) GetAttendance(ctx context.Context, employeeID payroll.EmployeeID, key payroll.PeriodKey) (*payroll.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, err := s.getAttendance(ctx, employeeID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return att, err
}

func (s *Store) getAttendance(ctx context.Context, employeeID payroll.EmployeeID, key payroll.PeriodKey) (*payroll.Attendance, error) {
	var (
		att   = payroll.Attendance{EmployeeID: employeeID, Period: key}
		hours string
		rate  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT attendance_days, leave_days, overtime_hours, overtime_rate
		FROM attendance WHERE employee_id = ? AND period_key = ?`,
		employeeID, key.String(),
	).Scan(&att.AttendanceDays, &att.LeaveDays, &hours, &rate)
	if err != nil {
		return nil, err
	}
	att.OvertimeHours, err = decimal.NewFromString(hours)
	if err != nil {
		return nil, fmt.Errorf("attendance %s/%s: bad overtime_hours: %w", employeeID, key, err)
	}
	att.OvertimeRate = money.Amount(rate)
	return &att, nil
}

// =============================================================================
// PERIOD STORE (payroll.PeriodStore)
// =============================================================================

// CreatePeriod inserts a new period. One period per year-month.
func (s *Store) CreatePeriod(ctx context.Context, p *payroll.Period) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode period: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO payroll_periods (id, period_key, state, version, data_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Key.String(), p.State, p.Version, string(data),
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("period %s: %w", p.Key, payroll.ErrDuplicatePeriod)
	}
	if err != nil {
		return fmt.Errorf("failed to create period: %w", err)
	}
	if err := appendTransitions(ctx, sqlTx, p, 0); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// GetPeriod returns ErrPeriodNotFound for unknown ids.
func (s *Store) GetPeriod(ctx context.Context, id payroll.PeriodID) (*payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanPeriod(s.db.QueryRowContext(ctx,
		"SELECT data_json, version FROM payroll_periods WHERE id = ?", id), string(id))
}

// GetPeriodByKey returns ErrPeriodNotFound when no period covers key.
func (s *Store) GetPeriodByKey(ctx context.Context, key payroll.PeriodKey) (*payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanPeriod(s.db.QueryRowContext(ctx,
		"SELECT data_json, version FROM payroll_periods WHERE period_key = ?", key.String()), key.String())
}

// ListPeriods returns all periods, newest first.
func (s *Store) ListPeriods(ctx context.Context) ([]*payroll.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT data_json, version FROM payroll_periods ORDER BY period_key DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	periods := []*payroll.Period{}
	for rows.Next() {
		p, err := s.scanPeriod(rows, "")
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// UpdatePeriod replaces the stored period if its version is p.Version-1
// and appends new history entries to period_transitions.
func (s *Store) UpdatePeriod(ctx context.Context, p *payroll.Period) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode period: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `
		UPDATE payroll_periods
		SET state = ?, version = ?, data_json = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.State, p.Version, string(data), p.UpdatedAt.UTC().Format(time.RFC3339),
		p.ID, p.Version-1,
	)
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var stored int
		err := sqlTx.QueryRowContext(ctx, "SELECT version FROM payroll_periods WHERE id = ?", p.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("period %s: %w", p.ID, payroll.ErrPeriodNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("period %s at version %d, write based on %d: %w",
			p.ID, stored, p.Version-1, payroll.ErrConcurrentModification)
	}

	var recorded int
	if err := sqlTx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM period_transitions WHERE period_id = ?", p.ID,
	).Scan(&recorded); err != nil {
		return err
	}
	if err := appendTransitions(ctx, sqlTx, p, recorded); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Transitions returns the audit trail for a period, oldest first.
func (s *Store) Transitions(ctx context.Context, id payroll.PeriodID) ([]payroll.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event, from_state, to_state, actor, note, at
		FROM period_transitions WHERE period_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []payroll.Transition
	for rows.Next() {
		var (
			t    payroll.Transition
			note sql.NullString
			at   string
		)
		if err := rows.Scan(&t.Event, &t.From, &t.To, &t.Actor, &note, &at); err != nil {
			return nil, err
		}
		t.Note = note.String
		t.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, t)
	}
	return out, rows.Err()
}

func appendTransitions(ctx context.Context, tx *sql.Tx, p *payroll.Period, from int) error {
	for seq := from; seq < len(p.History); seq++ {
		t := p.History[seq]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO period_transitions (period_id, seq, event, from_state, to_state, actor, note, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, seq, t.Event, t.From, t.To, t.Actor, nullString(t.Note), t.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to record transition: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanPeriod(row rowScanner, ref string) (*payroll.Period, error) {
	var (
		data    string
		version int
	)
	err := row.Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("period %s: %w", ref, payroll.ErrPeriodNotFound)
	}
	if err != nil {
		return nil, err
	}
	var p payroll.Period
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode period: %w", err)
	}
	p.Version = version
	return &p, nil
}

// =============================================================================
// ASSET STORE
// =============================================================================

// SaveAsset validates and upserts an asset.
func (s *Store) SaveAsset(ctx context.Context, a depreciation.Asset) error {
	a, err := depreciation.NewAsset(a)
	if err != nil {
		return err
	}
	if a.ID == "" {
		return &depreciation.AssetError{Field: "id", Message: "is required", Err: depreciation.ErrInvalidAsset}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO assets (id, name, category, purchase_cost, salvage_value, useful_life_years,
		                    purchase_date, method, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			purchase_cost = excluded.purchase_cost,
			salvage_value = excluded.salvage_value,
			useful_life_years = excluded.useful_life_years,
			purchase_date = excluded.purchase_date,
			method = excluded.method,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.Name, nullString(a.Category), a.PurchaseCost.Int64(), a.SalvageValue.Int64(),
		a.UsefulLifeYears, a.PurchaseDate.Format(dateLayout), a.Method, now, now,
	)
	return err
}

const assetColumns = `
	SELECT id, name, category, purchase_cost, salvage_value, useful_life_years, purchase_date, method
	FROM assets`

// GetAsset returns ErrAssetNotFound for unknown ids.
func (s *Store) GetAsset(ctx context.Context, id string) (depreciation.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := scanAsset(s.db.QueryRowContext(ctx, assetColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return depreciation.Asset{}, fmt.Errorf("asset %s: %w", id, depreciation.ErrAssetNotFound)
	}
	return a, err
}

// ListAssets returns all assets, by name.
func (s *Store) ListAssets(ctx context.Context) ([]depreciation.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, assetColumns+" ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []depreciation.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// DeleteAsset removes an asset.
func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", id, depreciation.ErrAssetNotFound)
	}
	return nil
}

func scanAsset(row rowScanner) (depreciation.Asset, error) {
	var (
		a            depreciation.Asset
		category     sql.NullString
		cost         int64
		salvage      int64
		purchaseDate string
	)
	if err := row.Scan(&a.ID, &a.Name, &category, &cost, &salvage, &a.UsefulLifeYears, &purchaseDate, &a.Method); err != nil {
		return depreciation.Asset{}, err
	}
	a.Category = category.String
	a.PurchaseCost = money.Amount(cost)
	a.SalvageValue = money.Amount(salvage)
	a.PurchaseDate, _ = time.Parse(dateLayout, purchaseDate)
	return a, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"period_transitions", "payroll_periods", "attendance",
		"component_assignments", "employees", "components", "assets",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY constraint failed"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

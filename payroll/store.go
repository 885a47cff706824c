/*
store.go - Persistence interfaces consumed by PeriodService

PURPOSE:
  The computation core never performs I/O. PeriodService reaches the
  outside world only through these interfaces, so the same service runs
  against SQLite in production and an in-memory store in tests.

KEY INTERFACES:
  PeriodStore:       Payroll periods with optimistic versioning
  EmployeeDirectory: Employee snapshots + attendance for a period
  CatalogSource:     The current component catalog

VERSIONING:
  Every successful transition increments Period.Version. UpdatePeriod
  must reject the write with ErrConcurrentModification unless the stored
  version is exactly Version-1. Together with the per-period lock in
  PeriodService this gives single-writer semantics even across processes
  sharing one database.

IMPLEMENTATIONS:
  - payroll/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - service.go: The only consumer
*/
package payroll

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

// PeriodStore persists payroll periods.
type PeriodStore interface {
	// CreatePeriod stores a new period. Returns ErrDuplicatePeriod if a
	// period for the same key exists.
	CreatePeriod(ctx context.Context, p *Period) error

	// GetPeriod returns ErrPeriodNotFound if id is unknown.
	GetPeriod(ctx context.Context, id PeriodID) (*Period, error)

	// GetPeriodByKey returns ErrPeriodNotFound if no period covers key.
	GetPeriodByKey(ctx context.Context, key PeriodKey) (*Period, error)

	// ListPeriods returns all periods, newest key first.
	ListPeriods(ctx context.Context) ([]*Period, error)

	// UpdatePeriod replaces the stored period if its version is p.Version-1.
	UpdatePeriod(ctx context.Context, p *Period) error
}

// EmployeeDirectory supplies batch inputs.
type EmployeeDirectory interface {
	// EmployeeInputs returns inputs for the ids it knows. Unknown ids are
	// omitted, not errors; the batch records them as not found.
	EmployeeInputs(ctx context.Context, key PeriodKey, ids []EmployeeID) ([]EmployeeInput, error)
}

// CatalogSource supplies the component catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) (*Catalog, error)
}

// Attendance is the per-period time data for one employee.
type Attendance struct {
	EmployeeID     EmployeeID
	Period         PeriodKey
	AttendanceDays int
	LeaveDays      int
	OvertimeHours  decimal.Decimal
	OvertimeRate   money.Amount
}

// ToInput combines an employee with their attendance (zero if absent).
func (a *Attendance) ToInput(emp Employee) EmployeeInput {
	in := EmployeeInput{Employee: emp, OvertimeHours: decimal.Zero}
	if a != nil {
		in.AttendanceDays = a.AttendanceDays
		in.LeaveDays = a.LeaveDays
		in.OvertimeHours = a.OvertimeHours
		in.OvertimeRate = a.OvertimeRate
	}
	return in
}

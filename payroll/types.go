/*
Package payroll provides the salary computation and payroll period engine.

PURPOSE:
  This package turns declarative salary component rules into payslips and
  moves a payroll period through its approval lifecycle. It is pure: no
  I/O, no goroutines, no clocks. Persistence and employee lookups are
  supplied by collaborators through the interfaces in store.go.

KEY CONCEPTS:
  - ComponentDefinition / Catalog: Salary rules (component.go)
  - Assignment: Employee-specific overrides with effective windows (assignment.go)
  - Resolver: Which components apply to an employee on a date (resolver.go)
  - Calculator: Components + basic salary -> SalaryBreakdown (calculator.go)
  - Aggregator: Calculator across a batch -> records + summary (aggregator.go)
  - Period / Apply: Payroll period state machine (workflow.go)
  - PeriodService: Serialized, persisted transitions (service.go)

DATA FLOW:
  Catalog ──▶ Resolver ──▶ Calculator ──▶ Aggregator ──▶ Workflow

KEY CONCEPTS IN THIS FILE (types.go):
  - Type-safe identifiers for employees, components and periods
  - PeriodKey: The year-month a payroll period covers

SEE ALSO:
  - money/money.go: Integer minor-unit amounts
  - errors.go: Error taxonomy
*/
package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ComponentCode string
type PeriodID string

// =============================================================================
// PERIOD KEY - Year-month a payroll run covers
// =============================================================================

type PeriodKey struct {
	Year  int
	Month time.Month
}

func NewPeriodKey(year int, month time.Month) PeriodKey {
	return PeriodKey{Year: year, Month: month}
}

// PeriodKeyFor returns the key of the month containing t.
func PeriodKeyFor(t time.Time) PeriodKey {
	return PeriodKey{Year: t.Year(), Month: t.Month()}
}

// ParsePeriodKey parses "YYYY-MM".
func ParsePeriodKey(s string) (PeriodKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return PeriodKey{}, &ValidationError{Field: "period", Message: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return PeriodKeyFor(t), nil
}

func (k PeriodKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }
func (k PeriodKey) IsZero() bool   { return k.Year == 0 && k.Month == 0 }

// Start is the first day of the month, UTC.
func (k PeriodKey) Start() time.Time {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last day of the month, UTC.
func (k PeriodKey) End() time.Time {
	return k.Start().AddDate(0, 1, -1)
}

func (k PeriodKey) Next() PeriodKey { return PeriodKeyFor(k.Start().AddDate(0, 1, 0)) }

func (k PeriodKey) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PeriodKey) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriodKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// =============================================================================
// DATE HELPERS
// =============================================================================

// dateOf truncates t to its UTC calendar day. Assignment windows and
// as-of dates are compared at day granularity.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// monthsBetween counts calendar months from a to b (b's month minus a's).
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

/*
assignment.go - Employee-specific component assignments

PURPOSE:
  An Assignment links one employee to one catalog component for a window
  of time, optionally overriding the catalog's amount or percentage.
  Assignments are how an employee receives components that don't apply
  to everyone, and how an individual rate differs from the default.

WINDOW:
  EffectiveFrom <= day <= ExpiresAt (inclusive, day granularity).
  ExpiresAt nil = open-ended.

ACTIVE FLAG:
  Active=false inside its window means an explicit opt-out: the employee
  does not receive the component even if it applies to all. Mandatory
  components ignore opt-outs.

SEE ALSO:
  - resolver.go: Applies assignments over catalog defaults
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/money"
)

type Assignment struct {
	ID            string
	EmployeeID    EmployeeID
	ComponentCode ComponentCode

	// Overrides. Nil = use the catalog default.
	OverrideAmount     *money.Amount
	OverridePercentage *decimal.Decimal

	EffectiveFrom time.Time
	ExpiresAt     *time.Time // nil = no expiry
	Active        bool
}

// NewAssignment validates a and returns it with dates truncated to days.
func NewAssignment(a Assignment) (Assignment, error) {
	if a.EmployeeID == "" {
		return Assignment{}, &ValidationError{Field: "employee_id", Message: "is required", ComponentCode: a.ComponentCode}
	}
	if a.ComponentCode == "" {
		return Assignment{}, &ValidationError{Field: "component_code", Message: "is required", EmployeeID: a.EmployeeID}
	}
	if a.EffectiveFrom.IsZero() {
		return Assignment{}, &ValidationError{Field: "effective_from", Message: "is required", EmployeeID: a.EmployeeID, ComponentCode: a.ComponentCode}
	}
	a.EffectiveFrom = dateOf(a.EffectiveFrom)
	if a.ExpiresAt != nil {
		exp := dateOf(*a.ExpiresAt)
		a.ExpiresAt = &exp
	}
	if err := a.Validate(); err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// Validate checks the window and override ranges.
func (a Assignment) Validate() error {
	if a.ExpiresAt != nil && dateOf(a.EffectiveFrom).After(dateOf(*a.ExpiresAt)) {
		return &ResolutionError{
			EmployeeID:    a.EmployeeID,
			ComponentCode: a.ComponentCode,
			AssignmentID:  a.ID,
			Err:           ErrInvalidAssignmentWindow,
		}
	}
	if a.OverrideAmount != nil && a.OverrideAmount.IsNegative() {
		return &ValidationError{Field: "override_amount", Message: "must not be negative", EmployeeID: a.EmployeeID, ComponentCode: a.ComponentCode}
	}
	if a.OverridePercentage != nil && (a.OverridePercentage.IsNegative() || a.OverridePercentage.GreaterThan(maxPercentage)) {
		return &ValidationError{Field: "override_percentage", Message: "must be between 0 and 100", EmployeeID: a.EmployeeID, ComponentCode: a.ComponentCode}
	}
	return nil
}

// Covers reports whether at falls inside the assignment window,
// regardless of the active flag.
func (a Assignment) Covers(at time.Time) bool {
	day := dateOf(at)
	if day.Before(dateOf(a.EffectiveFrom)) {
		return false
	}
	if a.ExpiresAt != nil && day.After(dateOf(*a.ExpiresAt)) {
		return false
	}
	return true
}

// IsActive reports whether the assignment grants its component at the given day.
func (a Assignment) IsActive(at time.Time) bool {
	return a.Active && a.Covers(at)
}

/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every structured error unwraps to a sentinel, so callers branch with
  errors.Is and extract context (period, employee, component) with
  errors.As.

ERROR CATEGORIES:
  1. Validation errors  - Malformed definitions, assignments, inputs
  2. Resolution errors  - Unknown component, bad or overlapping windows
  3. Calculation errors - Formula failures, negative line amounts
  4. Workflow errors    - Invalid transition, denied approval, locked period
  5. Partial failures   - Per-employee errors inside a successful batch
  6. Store errors       - Missing records, duplicates, version conflicts

USAGE:
  _, err := svc.Approve(ctx, periodID, "hr-1")
  var werr *payroll.WorkflowError
  if errors.As(err, &werr) && errors.Is(err, payroll.ErrInvalidTransition) {
      log.Printf("cannot approve from %s", werr.State)
  }

SEE ALSO:
  - workflow.go: Produces WorkflowError
  - calculator.go: Produces CalculationError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package payroll

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed definitions or inputs.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownComponent is returned when an assignment references a code
	// that is not in the catalog.
	ErrUnknownComponent = errors.New("unknown component reference")

	// ErrInvalidAssignmentWindow is returned when effective date > expiry.
	ErrInvalidAssignmentWindow = errors.New("invalid assignment window")

	// ErrOverlappingAssignment is returned when two active assignments for
	// the same component cover the same day.
	ErrOverlappingAssignment = errors.New("overlapping assignments")

	// ErrFormulaEvaluation is returned when a formula cannot be compiled or
	// evaluated to a finite number.
	ErrFormulaEvaluation = errors.New("formula evaluation failed")

	// ErrNegativeResult is returned when a line resolves below zero.
	ErrNegativeResult = errors.New("negative line amount")

	// ErrInvalidTransition is returned when an event is not legal in the
	// period's current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrApprovalDenied is returned when the actor lacks approval authority.
	ErrApprovalDenied = errors.New("approval authority required")

	// ErrPeriodLocked is returned for any mutation of a completed period.
	ErrPeriodLocked = errors.New("period locked")

	// ErrGuardFailed is returned when a legal event's precondition fails.
	ErrGuardFailed = errors.New("transition guard failed")

	// ErrBatchFailed is returned when every selected employee failed.
	ErrBatchFailed = errors.New("payroll batch failed for every employee")

	// ErrPartialFailure marks a batch where some employees failed.
	ErrPartialFailure = errors.New("payroll batch partially failed")

	// ErrPeriodNotFound is returned when a referenced period doesn't exist.
	ErrPeriodNotFound = errors.New("period not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrComponentNotFound is returned when a referenced definition doesn't exist.
	ErrComponentNotFound = errors.New("component not found")

	// ErrDuplicatePeriod is returned when a period for the same month exists.
	ErrDuplicatePeriod = errors.New("period already exists")

	// ErrConcurrentModification is returned when optimistic locking detects a conflict.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field         string
	Message       string
	ComponentCode ComponentCode
	EmployeeID    EmployeeID
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.ComponentCode != "" {
		fmt.Fprintf(&b, " for component %s", e.ComponentCode)
	}
	if e.EmployeeID != "" {
		fmt.Fprintf(&b, " for employee %s", e.EmployeeID)
	}
	fmt.Fprintf(&b, ": %s %s", e.Field, e.Message)
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ResolutionError is returned by the Resolver.
type ResolutionError struct {
	EmployeeID    EmployeeID
	ComponentCode ComponentCode
	AssignmentID  string
	Err           error // ErrUnknownComponent, ErrInvalidAssignmentWindow, ErrOverlappingAssignment
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("employee %s: component %s: %v", e.EmployeeID, e.ComponentCode, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FormulaFailure classifies why a formula failed.
type FormulaFailure string

const (
	FormulaMalformed         FormulaFailure = "malformed"
	FormulaUnknownIdentifier FormulaFailure = "unknown_identifier"
	FormulaDivisionByZero    FormulaFailure = "division_by_zero"
	FormulaNonFinite         FormulaFailure = "non_finite"
)

// FormulaError is returned by the FormulaEngine.
type FormulaError struct {
	Formula string
	Reason  FormulaFailure
	Detail  string
}

func (e *FormulaError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
	}
	return fmt.Sprintf("formula %q: %s: %s", e.Formula, e.Reason, e.Detail)
}

func (e *FormulaError) Unwrap() error { return ErrFormulaEvaluation }

// CalculationError is returned by the Calculator. Err is either a
// *FormulaError or ErrNegativeResult.
type CalculationError struct {
	EmployeeID    EmployeeID
	ComponentCode ComponentCode
	Err           error
}

func (e *CalculationError) Error() string {
	if e.EmployeeID != "" {
		return fmt.Sprintf("employee %s: component %s: %v", e.EmployeeID, e.ComponentCode, e.Err)
	}
	return fmt.Sprintf("component %s: %v", e.ComponentCode, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// WorkflowError is returned by Apply and PeriodService.
type WorkflowError struct {
	PeriodID PeriodID
	State    State
	Event    EventType
	Err      error
	Detail   string

	// Failure is set when a calculate event failed for every employee.
	Failure *AggregationPartialFailure
}

func (e *WorkflowError) Error() string {
	msg := fmt.Sprintf("period %s: %s in state %s: %v", e.PeriodID, e.Event, e.State, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// EmployeeFailure is one failed record inside a batch.
type EmployeeFailure struct {
	EmployeeID EmployeeID
	Code       string
	Err        error
}

// AggregationPartialFailure lists per-employee failures of a batch that
// otherwise produced a summary.
type AggregationPartialFailure struct {
	PeriodID PeriodID
	Total    int
	Failures []EmployeeFailure
}

func (e *AggregationPartialFailure) Error() string {
	return fmt.Sprintf("period %s: %d of %d employees failed", e.PeriodID, len(e.Failures), e.Total)
}

func (e *AggregationPartialFailure) Unwrap() error { return ErrPartialFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// ErrorCode returns a stable machine-readable code for err, used on
// records and in API responses.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownComponent):
		return "unknown_component"
	case errors.Is(err, ErrInvalidAssignmentWindow):
		return "invalid_assignment_window"
	case errors.Is(err, ErrOverlappingAssignment):
		return "overlapping_assignment"
	case errors.Is(err, ErrFormulaEvaluation):
		return "formula_evaluation"
	case errors.Is(err, ErrNegativeResult):
		return "negative_result"
	case errors.Is(err, ErrEmployeeNotFound):
		return "employee_not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrPeriodLocked):
		return "period_locked"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrApprovalDenied):
		return "approval_denied"
	case errors.Is(err, ErrGuardFailed):
		return "guard_failed"
	case errors.Is(err, ErrBatchFailed):
		return "batch_failed"
	default:
		return "internal"
	}
}

// IsClientError returns true if the error is due to invalid client input
// or an operation that is illegal in the current state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnknownComponent) ||
		errors.Is(err, ErrInvalidAssignmentWindow) ||
		errors.Is(err, ErrOverlappingAssignment) ||
		errors.Is(err, ErrFormulaEvaluation) ||
		errors.Is(err, ErrNegativeResult) ||
		errors.Is(err, ErrGuardFailed) ||
		errors.Is(err, ErrBatchFailed)
}

// IsConflict returns true if the error reflects the resource's state
// rather than the request itself.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrPeriodLocked) ||
		errors.Is(err, ErrDuplicatePeriod) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrComponentNotFound)
}

// IsForbidden returns true if the actor lacked approval authority.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrApprovalDenied)
}

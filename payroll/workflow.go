/*
workflow.go - Payroll period state machine

PURPOSE:
  A payroll period moves through a fixed lifecycle. Apply(period, event)
  is the only way to move it: it checks the event is legal in the
  current state, evaluates the guard, and returns a NEW period with the
  effect applied. The input period is never modified, so a failed event
  leaves no partial state behind.

STATE MACHINE:

   ┌───────┐ select ┌───────────────────┐ calculate ┌────────────┐
   │ draft │───────▶│ pending_selection │──────────▶│ calculated │
   └───────┘        └───────────────────┘           └────────────┘
                        ▲      │ ▲ select              │   │
                        │      └─┘                     │   │ approve
                 select │                       reject │   ▼
                  ┌──────────┐      reject        ┌──────────┐
                  │ rejected │◀───────────────────│ approved │
                  └──────────┘                    └──────────┘
                                                       │ process_payment
                                                       ▼
                  ┌───────────┐     finalize      ┌───────────┐
                  │ completed │◀──────────────────│ processed │──┐ process_payment
                  └───────────┘                   └───────────┘◀─┘ (no-op)

  A fresh calculation of a calculated batch goes reject, select, calculate.

GUARDS:
  select_employees  at least one employee id
  calculate         a selection; fails if every employee errors
  approve           approval authority AND zero calculation errors
  reject            a reason
  process_payment   bank details for every included employee
  finalize          -

ERRORS:
  completed + any event     -> ErrPeriodLocked
  event not legal in state  -> ErrInvalidTransition
  guard failed              -> ErrGuardFailed / ErrApprovalDenied / ErrBatchFailed
  All wrapped in *WorkflowError with period id, state and event.

SINGLE WRITER:
  Apply itself is pure. Callers that share a period across goroutines
  must serialize Apply per period; PeriodService does this.

SEE ALSO:
  - service.go: Loads, applies, persists under a per-period lock
  - aggregator.go: Invoked by the calculate event
*/
package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/warp/payroll-engine/money"
)

// =============================================================================
// STATES AND EVENTS
// =============================================================================

type State string

const (
	StateDraft            State = "draft"
	StatePendingSelection State = "pending_selection"
	StateCalculated       State = "calculated"
	StateApproved         State = "approved"
	StateRejected         State = "rejected"
	StateProcessed        State = "processed"
	StateCompleted        State = "completed"
)

type EventType string

const (
	EventSelectEmployees EventType = "select_employees"
	EventCalculate       EventType = "calculate"
	EventApprove         EventType = "approve"
	EventReject          EventType = "reject"
	EventProcessPayment  EventType = "process_payment"
	EventFinalize        EventType = "finalize"
)

// legalFrom lists the states each event may fire from.
var legalFrom = map[EventType][]State{
	EventSelectEmployees: {StateDraft, StatePendingSelection, StateRejected},
	EventCalculate:       {StatePendingSelection},
	EventApprove:         {StateCalculated},
	EventReject:          {StateCalculated, StateApproved},
	EventProcessPayment:  {StateApproved, StateProcessed},
	EventFinalize:        {StateProcessed},
}

var eventOrder = []EventType{
	EventSelectEmployees, EventCalculate, EventApprove,
	EventReject, EventProcessPayment, EventFinalize,
}

// AllowedEvents returns the events legal in s, in lifecycle order.
func AllowedEvents(s State) []EventType {
	var out []EventType
	for _, ev := range eventOrder {
		if isLegal(ev, s) {
			out = append(out, ev)
		}
	}
	return out
}

func isLegal(ev EventType, s State) bool {
	for _, from := range legalFrom[ev] {
		if from == s {
			return true
		}
	}
	return false
}

// EventMeta identifies who fired an event and when.
type EventMeta struct {
	Actor string
	At    time.Time
}

func (m EventMeta) Meta() EventMeta { return m }

// Event is one of the concrete event types below.
type Event interface {
	Type() EventType
	Meta() EventMeta
}

type SelectEmployees struct {
	EventMeta
	EmployeeIDs []EmployeeID
}

type Calculate struct {
	EventMeta
	Aggregator *Aggregator
	Inputs     []EmployeeInput
}

type Approve struct {
	EventMeta
	Authority ApprovalAuthority
}

type Reject struct {
	EventMeta
	Reason string
}

type ProcessPayment struct {
	EventMeta
	BatchID string
}

type Finalize struct {
	EventMeta
}

func (SelectEmployees) Type() EventType { return EventSelectEmployees }
func (Calculate) Type() EventType       { return EventCalculate }
func (Approve) Type() EventType         { return EventApprove }
func (Reject) Type() EventType          { return EventReject }
func (ProcessPayment) Type() EventType  { return EventProcessPayment }
func (Finalize) Type() EventType        { return EventFinalize }

// ApprovalAuthority decides whether actor may approve p. Role models live
// outside the engine.
type ApprovalAuthority interface {
	CanApprove(actor string, p *Period) bool
}

// AuthorityFunc adapts a function to ApprovalAuthority.
type AuthorityFunc func(actor string, p *Period) bool

func (f AuthorityFunc) CanApprove(actor string, p *Period) bool { return f(actor, p) }

// =============================================================================
// PERIOD
// =============================================================================

type Period struct {
	ID        PeriodID                `json:"id"`
	Key       PeriodKey               `json:"period"`
	State     State                   `json:"state"`
	Selection []EmployeeID            `json:"selection"`
	Records   []EmployeePayrollRecord `json:"records"`
	Summary   *PayrollSummary         `json:"summary,omitempty"`

	RejectionReason string         `json:"rejection_reason,omitempty"`
	Rejections      []Rejection    `json:"rejections,omitempty"`
	Payment         *PaymentResult `json:"payment,omitempty"`
	History         []Transition   `json:"history"`

	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ApprovedBy  string     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version increments on every persisted transition.
	Version int `json:"version"`
}

// Rejection keeps the summary that was rejected for audit.
type Rejection struct {
	Reason    string          `json:"reason"`
	Actor     string          `json:"actor"`
	At        time.Time       `json:"at"`
	FromState State           `json:"from_state"`
	Summary   *PayrollSummary `json:"summary,omitempty"`
}

// PaymentResult is stored once and returned unchanged by repeat calls.
type PaymentResult struct {
	BatchID       string       `json:"batch_id"`
	ProcessedBy   string       `json:"processed_by"`
	ProcessedAt   time.Time    `json:"processed_at"`
	EmployeeCount int          `json:"employee_count"`
	TotalNet      money.Amount `json:"total_net"`
}

// Transition is one audit entry.
type Transition struct {
	Event EventType `json:"event"`
	From  State     `json:"from"`
	To    State     `json:"to"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
	Note  string    `json:"note,omitempty"`
}

// NewPeriod opens a period in draft.
func NewPeriod(id PeriodID, key PeriodKey, createdBy string, at time.Time) (*Period, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	if key.IsZero() || key.Month < time.January || key.Month > time.December {
		return nil, &ValidationError{Field: "period", Message: "must be a valid year-month"}
	}
	return &Period{
		ID:        id,
		Key:       key,
		State:     StateDraft,
		Selection: []EmployeeID{},
		Records:   []EmployeePayrollRecord{},
		History:   []Transition{},
		CreatedBy: createdBy,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

func (p *Period) IsLocked() bool { return p.State == StateCompleted }

// Record returns the record for id.
func (p *Period) Record(id EmployeeID) (EmployeePayrollRecord, bool) {
	for _, r := range p.Records {
		if r.EmployeeID == id {
			return r, true
		}
	}
	return EmployeePayrollRecord{}, false
}

// Failure rebuilds the partial-failure report from error records. Nil
// when no record failed.
func (p *Period) Failure() *AggregationPartialFailure {
	var failures []EmployeeFailure
	for _, r := range p.Records {
		if r.Status == RecordError {
			failures = append(failures, EmployeeFailure{EmployeeID: r.EmployeeID, Code: r.ErrorCode, Err: errors.New(r.Error)})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &AggregationPartialFailure{PeriodID: p.ID, Total: len(p.Records), Failures: failures}
}

// Clone copies the period. Breakdowns and summaries are never mutated in
// place, so their pointers are shared.
func (p *Period) Clone() *Period {
	c := *p
	c.Selection = append([]EmployeeID{}, p.Selection...)
	c.Records = append([]EmployeePayrollRecord{}, p.Records...)
	c.Rejections = append([]Rejection(nil), p.Rejections...)
	c.History = append([]Transition{}, p.History...)
	if p.Payment != nil {
		pay := *p.Payment
		c.Payment = &pay
	}
	if p.ApprovedAt != nil {
		at := *p.ApprovedAt
		c.ApprovedAt = &at
	}
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// =============================================================================
// APPLY
// =============================================================================

// Apply fires e against p and returns the resulting period. p is unchanged
// whether or not Apply succeeds.
func Apply(p *Period, e Event) (*Period, error) {
	if p == nil {
		return nil, &ValidationError{Field: "period", Message: "is required"}
	}
	ev := e.Type()
	fail := func(err error, detail string) error {
		return &WorkflowError{PeriodID: p.ID, State: p.State, Event: ev, Err: err, Detail: detail}
	}

	if p.IsLocked() {
		return nil, fail(ErrPeriodLocked, "")
	}
	if !isLegal(ev, p.State) {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("allowed: %v", AllowedEvents(p.State)))
	}

	meta := e.Meta()
	next := p.Clone()
	note := ""

	switch e := e.(type) {
	case SelectEmployees:
		selection := dedupe(e.EmployeeIDs)
		if len(selection) == 0 {
			return nil, fail(ErrGuardFailed, "at least one employee must be selected")
		}
		if p.State == StateRejected {
			next.RejectionReason = ""
			next.ApprovedBy = ""
			next.ApprovedAt = nil
		}
		next.Selection = selection
		next.Records = []EmployeePayrollRecord{}
		next.Summary = nil
		next.State = StatePendingSelection
		note = fmt.Sprintf("%d employees", len(selection))

	case Calculate:
		if len(p.Selection) == 0 {
			return nil, fail(ErrGuardFailed, "no employees selected")
		}
		if e.Aggregator == nil {
			return nil, fail(ErrGuardFailed, "no aggregator configured")
		}
		result := e.Aggregator.RunSelection(p.ID, p.Key, p.Selection, e.Inputs)
		if result.Summary.ErrorCount == len(p.Selection) {
			werr := &WorkflowError{PeriodID: p.ID, State: p.State, Event: ev, Err: ErrBatchFailed, Failure: result.Failure}
			return nil, werr
		}
		summary := result.Summary
		next.Records = result.Records
		next.Summary = &summary
		next.State = StateCalculated
		note = fmt.Sprintf("%d calculated, %d errors", summary.ProcessedEmployees, summary.ErrorCount)

	case Approve:
		if e.Authority == nil || !e.Authority.CanApprove(meta.Actor, p) {
			return nil, fail(ErrApprovalDenied, fmt.Sprintf("actor %q", meta.Actor))
		}
		if p.Summary == nil || p.Summary.ErrorCount > 0 {
			count := 0
			if p.Summary != nil {
				count = p.Summary.ErrorCount
			}
			return nil, fail(ErrGuardFailed, fmt.Sprintf("%d employees have calculation errors", count))
		}
		at := meta.At
		next.ApprovedBy = meta.Actor
		next.ApprovedAt = &at
		next.State = StateApproved

	case Reject:
		reason := strings.TrimSpace(e.Reason)
		if reason == "" {
			return nil, fail(ErrGuardFailed, "a rejection reason is required")
		}
		next.RejectionReason = reason
		next.Rejections = append(next.Rejections, Rejection{
			Reason:    reason,
			Actor:     meta.Actor,
			At:        meta.At,
			FromState: p.State,
			Summary:   p.Summary,
		})
		next.State = StateRejected
		note = reason

	case ProcessPayment:
		if p.State == StateProcessed {
			// Already paid: same period, same payment, no new history.
			return next, nil
		}
		if e.BatchID == "" {
			return nil, fail(ErrGuardFailed, "a payment batch id is required")
		}
		var missing []string
		for _, r := range p.Records {
			if r.Status.Succeeded() && !r.HasBankDetails {
				missing = append(missing, string(r.EmployeeID))
			}
		}
		if len(missing) > 0 {
			return nil, fail(ErrGuardFailed, "missing bank details: "+strings.Join(missing, ", "))
		}
		count := 0
		for i := range next.Records {
			if next.Records[i].Status == RecordCalculated {
				next.Records[i].Status = RecordProcessed
				count++
			}
		}
		var totalNet money.Amount
		if p.Summary != nil {
			totalNet = p.Summary.TotalNet
		}
		next.Payment = &PaymentResult{
			BatchID:       e.BatchID,
			ProcessedBy:   meta.Actor,
			ProcessedAt:   meta.At,
			EmployeeCount: count,
			TotalNet:      totalNet,
		}
		next.State = StateProcessed
		note = e.BatchID

	case Finalize:
		at := meta.At
		next.CompletedAt = &at
		next.State = StateCompleted

	default:
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("unsupported event %T", e))
	}

	next.UpdatedAt = meta.At
	next.History = append(next.History, Transition{
		Event: ev,
		From:  p.State,
		To:    next.State,
		Actor: meta.Actor,
		At:    meta.At,
		Note:  note,
	})
	return next, nil
}

func dedupe(ids []EmployeeID) []EmployeeID {
	seen := make(map[EmployeeID]bool, len(ids))
	out := make([]EmployeeID, 0, len(ids))
	for _, id := range ids {
		id = EmployeeID(strings.TrimSpace(string(id)))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

/*
service.go - Serialized, persisted payroll period transitions

PURPOSE:
  PeriodService is the stateful shell around the pure state machine. For
  each operation it:
   1. Takes the period's lock (one in-flight transition per period id)
   2. Loads the period from the PeriodStore
   3. Gathers collaborator data the event needs (catalog, employee inputs)
   4. Applies the event (pure; all-or-nothing)
   5. Persists the new version and logs the transition

  Different periods never contend. Concurrent calls on the same period
  run one after another, in lock acquisition order.

CANCELLATION:
  The context is checked before loading and before persisting. Once a
  transition is persisted it is not rolled back.

EXAMPLE:
  svc := payroll.NewPeriodService(store, store, store, authority)
  p, _ := svc.Open(ctx, payroll.NewPeriodKey(2024, time.March), "hr-1")
  p, _ = svc.SelectEmployees(ctx, p.ID, "hr-1", []payroll.EmployeeID{"e1", "e2"})
  p, _ = svc.Calculate(ctx, p.ID, "hr-1")
  p, _ = svc.Approve(ctx, p.ID, "cfo")
  p, _ = svc.ProcessPayment(ctx, p.ID, "treasury")
  p, _ = svc.Finalize(ctx, p.ID, "treasury")

SEE ALSO:
  - workflow.go: Apply and the transition table
  - store.go: Collaborator interfaces
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type PeriodService struct {
	Periods   PeriodStore
	Directory EmployeeDirectory
	Catalogs  CatalogSource
	Authority ApprovalAuthority

	// Statutory sub-totals reported on every summary.
	Statutory  []StatutoryRule
	Calculator *Calculator
	Logger     *slog.Logger

	Now   func() time.Time
	NewID func() string

	mu    sync.Mutex
	locks map[PeriodID]*sync.Mutex
}

// NewPeriodService wires a service with UTC wall clock and uuid ids.
func NewPeriodService(periods PeriodStore, directory EmployeeDirectory, catalogs CatalogSource, authority ApprovalAuthority) *PeriodService {
	return &PeriodService{
		Periods:    periods,
		Directory:  directory,
		Catalogs:   catalogs,
		Authority:  authority,
		Calculator: NewCalculator(),
		Logger:     slog.Default(),
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
		locks:      make(map[PeriodID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing transitions of id. Entries live
// until the period completes.
func (s *PeriodService) lockFor(id PeriodID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[PeriodID]*sync.Mutex)
	}
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// releaseLock drops the mutex of a completed period. Completed is
// terminal, so a late caller holding the old mutex can only read the
// locked period and fail with ErrPeriodLocked.
func (s *PeriodService) releaseLock(id PeriodID) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

func (s *PeriodService) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *PeriodService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *PeriodService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *PeriodService) meta(actor string) EventMeta {
	return EventMeta{Actor: actor, At: s.now()}
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *PeriodService) Get(ctx context.Context, id PeriodID) (*Period, error) {
	return s.Periods.GetPeriod(ctx, id)
}

func (s *PeriodService) List(ctx context.Context) ([]*Period, error) {
	return s.Periods.ListPeriods(ctx)
}

// Preview calculates one employee for key without touching any period.
func (s *PeriodService) Preview(ctx context.Context, key PeriodKey, in EmployeeInput) (EmployeePayrollRecord, error) {
	agg, err := s.aggregator(ctx)
	if err != nil {
		return EmployeePayrollRecord{}, err
	}
	return agg.CalculateEmployee(in, key.End())
}

// =============================================================================
// COMMANDS
// =============================================================================

// Open creates the draft period for key.
func (s *PeriodService) Open(ctx context.Context, key PeriodKey, actor string) (*Period, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	p, err := NewPeriod(PeriodID(newID()), key, actor, s.now())
	if err != nil {
		return nil, err
	}
	p.Version = 1
	if err := s.Periods.CreatePeriod(ctx, p); err != nil {
		return nil, err
	}
	s.logger().Info("payroll period opened", "period_id", p.ID, "period", key.String(), "actor", actor)
	return p, nil
}

func (s *PeriodService) SelectEmployees(ctx context.Context, id PeriodID, actor string, ids []EmployeeID) (*Period, error) {
	return s.transition(ctx, id, func(*Period) (Event, error) {
		return SelectEmployees{EventMeta: s.meta(actor), EmployeeIDs: ids}, nil
	})
}

// Calculate runs the batch over the current selection. Per-employee
// failures are on the returned period's records (see Period.Failure).
func (s *PeriodService) Calculate(ctx context.Context, id PeriodID, actor string) (*Period, error) {
	return s.transition(ctx, id, func(p *Period) (Event, error) {
		ev := Calculate{EventMeta: s.meta(actor)}
		if !isLegal(EventCalculate, p.State) || p.IsLocked() {
			// Let Apply report the transition error without I/O.
			return ev, nil
		}
		agg, err := s.aggregator(ctx)
		if err != nil {
			return nil, err
		}
		inputs, err := s.Directory.EmployeeInputs(ctx, p.Key, p.Selection)
		if err != nil {
			return nil, fmt.Errorf("failed to load employee inputs: %w", err)
		}
		ev.Aggregator = agg
		ev.Inputs = inputs
		return ev, nil
	})
}

func (s *PeriodService) Approve(ctx context.Context, id PeriodID, actor string) (*Period, error) {
	return s.transition(ctx, id, func(*Period) (Event, error) {
		return Approve{EventMeta: s.meta(actor), Authority: s.Authority}, nil
	})
}

func (s *PeriodService) Reject(ctx context.Context, id PeriodID, actor, reason string) (*Period, error) {
	return s.transition(ctx, id, func(*Period) (Event, error) {
		return Reject{EventMeta: s.meta(actor), Reason: reason}, nil
	})
}

// ProcessPayment marks the approved batch as paid. Calling it again on a
// processed period returns the period with its original PaymentResult.
func (s *PeriodService) ProcessPayment(ctx context.Context, id PeriodID, actor string) (*Period, error) {
	return s.transition(ctx, id, func(*Period) (Event, error) {
		newID := s.NewID
		if newID == nil {
			newID = uuid.NewString
		}
		return ProcessPayment{EventMeta: s.meta(actor), BatchID: newID()}, nil
	})
}

// Finalize completes the period and stops tracking its lock.
func (s *PeriodService) Finalize(ctx context.Context, id PeriodID, actor string) (*Period, error) {
	p, err := s.transition(ctx, id, func(*Period) (Event, error) {
		return Finalize{EventMeta: s.meta(actor)}, nil
	})
	if err != nil {
		return nil, err
	}
	s.releaseLock(id)
	return p, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *PeriodService) aggregator(ctx context.Context) (*Aggregator, error) {
	catalog, err := s.Catalogs.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	calc := s.Calculator
	if calc == nil {
		calc = NewCalculator()
	}
	return &Aggregator{Resolver: NewResolver(catalog), Calculator: calc, Statutory: s.Statutory}, nil
}

func (s *PeriodService) transition(ctx context.Context, id PeriodID, build func(*Period) (Event, error)) (*Period, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.Periods.GetPeriod(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsLocked() {
		defer s.releaseLock(id)
	}

	ev, err := build(current)
	if err != nil {
		return nil, err
	}

	next, err := Apply(current, ev)
	if err != nil {
		var werr *WorkflowError
		if errors.As(err, &werr) {
			s.logger().Warn("payroll transition rejected",
				"period_id", id, "event", werr.Event, "state", werr.State,
				"actor", ev.Meta().Actor, "error", err)
		}
		return nil, err
	}

	// Idempotent no-op (repeat process_payment): nothing to persist.
	if len(next.History) == len(current.History) {
		return next, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	if err := s.Periods.UpdatePeriod(ctx, next); err != nil {
		return nil, err
	}

	last := next.History[len(next.History)-1]
	s.logger().Info("payroll transition",
		"period_id", id, "event", last.Event, "from", last.From, "to", last.To,
		"actor", last.Actor, "version", next.Version)
	if next.Summary != nil && last.Event == EventCalculate && next.Summary.ErrorCount > 0 {
		s.logger().Warn("payroll batch partially failed",
			"period_id", id, "errors", next.Summary.ErrorCount, "employees", next.Summary.TotalEmployees)
	}
	return next, nil
}

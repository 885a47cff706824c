/*
scheduler.go - Automated period opening scheduler

PURPOSE:
  Periodically makes sure the current month has a payroll period, so HR
  always finds a draft to select employees into.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Opens the draft for the current month if none exists
  - An existing period (any state) is left alone
  - The first check runs immediately on Start

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewPeriodScheduler(svc)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: OpenPeriod endpoint (manual opening)
  - payroll/service.go: PeriodService.Open
*/
package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// SchedulerActor is recorded as the creator of auto-opened periods.
const SchedulerActor = "scheduler"

// PeriodScheduler opens the current month's payroll period.
type PeriodScheduler struct {
	Service       *payroll.PeriodService
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewPeriodScheduler creates a new scheduler.
func NewPeriodScheduler(svc *payroll.PeriodService) *PeriodScheduler {
	return &PeriodScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Now:           func() time.Time { return time.Now().UTC() },
		Logger:        slog.Default(),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (ps *PeriodScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.logger().Info("period scheduler disabled")
		return
	}
	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run(ps.ticker, ps.stop)

	ps.logger().Info("period scheduler started", "interval", ps.CheckInterval.String())
}

// Stop stops the scheduler and waits for an in-flight check.
func (ps *PeriodScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.logger().Info("period scheduler stopped")
	}
}

func (ps *PeriodScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ps.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	ps.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			ps.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// RunOnce opens the current month's period if it does not exist yet and
// reports whether it did.
func (ps *PeriodScheduler) RunOnce(ctx context.Context) (bool, error) {
	now := time.Now().UTC()
	if ps.Now != nil {
		now = ps.Now()
	}
	key := payroll.PeriodKeyFor(now)

	p, err := ps.Service.Open(ctx, key, SchedulerActor)
	switch {
	case errors.Is(err, payroll.ErrDuplicatePeriod):
		ps.logger().Debug("period already open", "period", key.String())
		return false, nil
	case err != nil:
		ps.logger().Error("period scheduler failed", "period", key.String(), "error", err)
		return false, err
	}
	ps.logger().Info("period opened by scheduler", "period_id", p.ID, "period", key.String())
	return true, nil
}

func (ps *PeriodScheduler) logger() *slog.Logger {
	if ps.Logger == nil {
		return slog.Default()
	}
	return ps.Logger
}

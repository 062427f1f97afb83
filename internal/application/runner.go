package application

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReconciliationRunner triggers the reconciliation sweep on a wall-clock
// aligned interval. Manual triggers share a mutex with the scheduled runs so
// at most one sweep executes at a time.
type ReconciliationRunner struct {
	service *ReconciliationService
	every   time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu sync.Mutex
}

// NewReconciliationRunner wires the runner to a sweep service.
func NewReconciliationRunner(service *ReconciliationService, every time.Duration, now func() time.Time, logger *slog.Logger) *ReconciliationRunner {
	if every <= 0 {
		every = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &ReconciliationRunner{
		service: service,
		every:   every,
		now:     now,
		logger:  defaultLogger(logger),
	}
}

// Start blocks until the context is cancelled, running one sweep at each
// interval boundary. Boundaries align to the wall clock, so an hourly runner
// fires at the top of each hour.
func (r *ReconciliationRunner) Start(ctx context.Context) {
	if r == nil || r.service == nil {
		return
	}

	for {
		wait := r.untilNextBoundary()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		r.RunOnce(ctx)
	}
}

// RunOnce executes a single sweep unless one is already in flight, in which
// case it is skipped.
func (r *ReconciliationRunner) RunOnce(ctx context.Context) (ReconciliationSummary, bool) {
	if r == nil || r.service == nil {
		return ReconciliationSummary{}, false
	}
	if !r.mu.TryLock() {
		r.logger.Warn("reconciliation sweep skipped, previous run still in flight")
		return ReconciliationSummary{}, false
	}
	defer r.mu.Unlock()

	summary, err := r.service.Run(ctx)
	if err != nil {
		r.logger.Error("reconciliation sweep failed", "error", err)
		return ReconciliationSummary{}, false
	}
	return summary, true
}

func (r *ReconciliationRunner) untilNextBoundary() time.Duration {
	now := r.now()
	next := now.Truncate(r.every).Add(r.every)
	wait := next.Sub(now)
	if wait <= 0 {
		wait = r.every
	}
	return wait
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

// ReconciliationStore captures the persistence interactions needed by the sweep.
type ReconciliationStore interface {
	ListElapsed(ctx context.Context, today time.Time, nowClock string) ([]persistence.Reservation, error)
	CloseOutReservation(ctx context.Context, closeOut persistence.CloseOut, sanctionID func() string) (int, error)
}

// ReconciliationService closes out reservations whose final turn has elapsed.
// Reservations with at least one recorded attendance are finalized; the rest
// become no-shows and every participant without a covering sanction receives
// one.
type ReconciliationService struct {
	store        ReconciliationStore
	sanctionDays int
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReconciliationService wires dependencies for the reconciliation sweep.
func NewReconciliationService(store ReconciliationStore, sanctionDays int, idGenerator func() string, now func() time.Time) *ReconciliationService {
	return NewReconciliationServiceWithLogger(store, sanctionDays, idGenerator, now, nil)
}

// NewReconciliationServiceWithLogger wires dependencies along with a structured logger.
func NewReconciliationServiceWithLogger(store ReconciliationStore, sanctionDays int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReconciliationService {
	if sanctionDays <= 0 {
		sanctionDays = 60
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReconciliationService{
		store:        store,
		sanctionDays: sanctionDays,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// Run sweeps every elapsed live reservation exactly once. Each reservation is
// closed out in its own transaction so one failure does not abort the sweep.
func (s *ReconciliationService) Run(ctx context.Context) (ReconciliationSummary, error) {
	if s == nil || s.store == nil {
		return ReconciliationSummary{}, fmt.Errorf("reconciliation store not configured")
	}

	now := s.now()
	today := booking.DateOf(now)
	clock := now.Format("15:04")
	logger := serviceLogger(ctx, s.logger, "reconciliation_service", "run")

	elapsed, err := s.store.ListElapsed(ctx, today, clock)
	if err != nil {
		return ReconciliationSummary{}, err
	}

	summary := ReconciliationSummary{Examined: len(elapsed)}
	for _, reservation := range elapsed {
		attended := 0
		for _, participation := range reservation.Participations {
			if participation.Attendance == booking.AttendancePresent {
				attended++
			}
		}

		closeOut := persistence.CloseOut{ReservationID: reservation.ID}
		if attended > 0 {
			closeOut.State = booking.ReservationFinalized
		} else {
			closeOut.State = booking.ReservationNoShow
			closeOut.ForceAllAbsent = true
			closeOut.Sanction = &persistence.SanctionTemplate{
				StartsOn: today,
				EndsOn:   today.AddDate(0, 0, s.sanctionDays),
				Reason:   fmt.Sprintf("no attendance recorded for reservation %s", reservation.ID),
			}
		}

		applied, err := s.store.CloseOutReservation(ctx, closeOut, s.idGenerator)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				// Already closed by a concurrent sweep or manual change.
				continue
			}
			summary.Failures++
			logger.Error("close-out failed", "reservation_id", reservation.ID, "error", err)
			continue
		}

		if attended > 0 {
			summary.Finalized++
		} else {
			summary.NoShows++
			summary.SanctionsApplied += applied
		}
	}

	logger.Info("reconciliation sweep complete",
		"examined", summary.Examined,
		"finalized", summary.Finalized,
		"no_shows", summary.NoShows,
		"sanctions_applied", summary.SanctionsApplied,
		"failures", summary.Failures)

	return summary, nil
}

package application

import (
	"context"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

// SanctionChecker answers whether a participant is sanctioned on a given date.
type SanctionChecker interface {
	HasActiveSanction(ctx context.Context, participantID string, date time.Time) (bool, error)
}

// ReservationLister enumerates reservations for quota accounting.
type ReservationLister interface {
	ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error)
}

// EligibilityGuard runs the pre-booking checks that decide whether a
// participant may hold a reservation: sanction status, role against room
// category, room capacity and the daily and weekly quotas.
type EligibilityGuard struct {
	sanctions    SanctionChecker
	reservations ReservationLister
	now          func() time.Time
}

// NewEligibilityGuard wires dependencies for eligibility checks.
func NewEligibilityGuard(sanctions SanctionChecker, reservations ReservationLister, now func() time.Time) *EligibilityGuard {
	if now == nil {
		now = time.Now
	}
	return &EligibilityGuard{
		sanctions:    sanctions,
		reservations: reservations,
		now:          now,
	}
}

// GuardInput describes the candidate reservation being checked.
type GuardInput struct {
	Creator          persistence.Participant
	Room             persistence.Room
	Date             time.Time
	Turns            booking.TurnRange
	ParticipantCount int
	// ExcludeReservationID keeps an existing reservation out of the quota
	// accounting when its own schedule is being changed.
	ExcludeReservationID string
}

// Check evaluates every eligibility rule for the candidate and returns the
// first sentinel violated, in a fixed order so callers observe stable
// behavior: sanction, role, capacity, daily quota, weekly quota.
func (g *EligibilityGuard) Check(ctx context.Context, input GuardInput) error {
	if g == nil {
		return nil
	}

	if g.sanctions != nil {
		sanctioned, err := g.sanctions.HasActiveSanction(ctx, input.Creator.ID, booking.DateOf(g.now()))
		if err != nil {
			return err
		}
		if sanctioned {
			return ErrSanctionActive
		}
	}

	if !booking.RoleMayReserve(input.Room.Category, input.Creator.Role) {
		return ErrRoleNotAuthorized
	}

	if input.ParticipantCount > input.Room.Capacity {
		return ErrCapacityExceeded
	}

	if err := g.checkDailyQuota(ctx, input); err != nil {
		return err
	}

	return g.checkWeeklyQuota(ctx, input)
}

func (g *EligibilityGuard) checkDailyQuota(ctx context.Context, input GuardInput) error {
	if g.reservations == nil {
		return nil
	}

	date := booking.DateOf(input.Date)
	existing, err := g.reservations.ListReservations(ctx, persistence.ReservationFilter{
		CreatorID: input.Creator.ID,
		Date:      &date,
		LiveOnly:  true,
	})
	if err != nil {
		return err
	}

	hours := input.Turns.Hours()
	for _, reservation := range existing {
		if reservation.ID == input.ExcludeReservationID {
			continue
		}
		hours += booking.TurnRange{Start: reservation.StartTurn, End: reservation.EndTurn}.Hours()
	}

	if hours > booking.DailyHourLimit {
		return ErrDailyQuotaExceeded
	}
	return nil
}

func (g *EligibilityGuard) checkWeeklyQuota(ctx context.Context, input GuardInput) error {
	if g.reservations == nil {
		return nil
	}

	monday, sunday := booking.WeekBounds(booking.DateOf(input.Date))
	existing, err := g.reservations.ListReservations(ctx, persistence.ReservationFilter{
		ParticipantID: input.Creator.ID,
		ConfirmedOnly: true,
		DateFrom:      &monday,
		DateTo:        &sunday,
		LiveOnly:      true,
	})
	if err != nil {
		return err
	}

	count := 0
	for _, reservation := range existing {
		if reservation.ID == input.ExcludeReservationID {
			continue
		}
		count++
	}

	if count >= booking.WeeklyConfirmedLimit {
		return ErrWeeklyQuotaExceeded
	}
	return nil
}

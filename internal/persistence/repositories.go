package persistence

import (
	"context"
	"time"

	"github.com/example/campus-reservations/internal/booking"
)

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	RoomID    string
	CreatorID string
	// ParticipantID matches reservations carrying a participation row for the
	// given participant.
	ParticipantID string
	// ConfirmedOnly restricts the ParticipantID match to confirmed
	// participation rows.
	ConfirmedOnly bool
	Date          *time.Time
	DateFrom      *time.Time
	DateTo        *time.Time
	// LiveOnly restricts results to reservations in {active, confirmed}.
	LiveOnly bool
}

// SanctionTemplate describes a sanction the close-out operation issues to
// every participant of a no-show reservation lacking coverage.
type SanctionTemplate struct {
	StartsOn time.Time
	EndsOn   time.Time
	Reason   string
}

// CloseOut captures one reconciliation write against a single reservation.
// The whole operation executes in one transaction.
type CloseOut struct {
	ReservationID string
	State         booking.ReservationState
	// ForceAllAbsent marks every participation absent; otherwise only rows
	// still unrecorded are forced.
	ForceAllAbsent bool
	// Sanction, when non-nil, is issued to each distinct participant of the
	// reservation who does not already hold a sanction covering its start date.
	Sanction *SanctionTemplate
}

// ReservationRepository stores reservations and their participation rows.
// Create and Update verify the room and creator non-overlap invariants inside
// the same transaction as the write.
type ReservationRepository interface {
	// CreateReservation inserts the reservation and its participation rows,
	// returning the persisted record. The identifier is returned from the
	// creation itself, never re-derived by a follow-up query.
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// UpdateReservation rewrites the mutable reservation fields. A non-nil
	// replaceParticipants list atomically replaces every participation row
	// with confirmed/unrecorded rows for the given participants.
	UpdateReservation(ctx context.Context, reservation Reservation, replaceParticipants []string) (Reservation, error)
	// DeleteReservation removes the reservation and cascades its
	// participation rows.
	DeleteReservation(ctx context.Context, id string) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	// ListElapsed returns live reservations whose window fully elapsed:
	// dated before today, or dated today with the end turn's wall clock at or
	// before nowClock ("HH:MM").
	ListElapsed(ctx context.Context, today time.Time, nowClock string) ([]Reservation, error)
	// SetParticipationState records an invitee's confirm/reject response.
	SetParticipationState(ctx context.Context, reservationID, participantID string, state booking.ParticipationState) error
	// RecordAttendance moves a participation row from unrecorded to the given
	// attendance, failing with ErrAlreadyRecorded on any repeat.
	RecordAttendance(ctx context.Context, reservationID, participantID string, attendance booking.Attendance) error
	// CloseOutReservation applies one reconciliation decision atomically and
	// reports how many sanctions it issued. Reservations no longer live
	// surface ErrNotFound so the caller can skip them.
	CloseOutReservation(ctx context.Context, closeOut CloseOut, sanctionID func() string) (int, error)
}

// SanctionFilter narrows sanction queries.
type SanctionFilter struct {
	ParticipantID string
	// ActiveOn restricts results to sanctions covering the given date.
	ActiveOn *time.Time
}

// SanctionRepository stores the sanction ledger. CreateSanction verifies the
// per-participant interval non-overlap invariant inside its transaction.
type SanctionRepository interface {
	CreateSanction(ctx context.Context, sanction Sanction) (Sanction, error)
	GetSanction(ctx context.Context, id string) (Sanction, error)
	ListSanctions(ctx context.Context, filter SanctionFilter) ([]Sanction, error)
	DeleteSanction(ctx context.Context, id string) error
	// HasActiveSanction reports whether the participant holds a sanction
	// covering the given date.
	HasActiveSanction(ctx context.Context, participantID string, date time.Time) (bool, error)
}

// RoomDirectory exposes read-only room lookups.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// TurnDirectory exposes read-only turn lookups.
type TurnDirectory interface {
	GetTurnByOrdinal(ctx context.Context, ordinal int) (Turn, error)
	ListTurns(ctx context.Context) ([]Turn, error)
}

// ParticipantDirectory exposes read-only participant lookups.
type ParticipantDirectory interface {
	GetParticipant(ctx context.Context, id string) (Participant, error)
	// MissingParticipantIDs returns the subset of ids with no active
	// directory entry.
	MissingParticipantIDs(ctx context.Context, ids []string) ([]string, error)
}

package application

import (
	"time"

	"github.com/example/campus-reservations/internal/booking"
)

// Principal identifies the authenticated participant performing an operation.
type Principal struct {
	ParticipantID string
	Role          booking.Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.Role == booking.RoleAdmin
}

// ReservationInput carries the caller supplied fields for creating a reservation.
type ReservationInput struct {
	RoomID         string
	Date           time.Time
	StartTurn      int
	EndTurn        int
	ParticipantIDs []string
}

// CreateReservationParams bundles the principal with the reservation input.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ReservationPatch carries the mutable fields of an update request. Nil
// pointers leave the stored value unchanged; a nil ParticipantIDs slice keeps
// the current roster.
type ReservationPatch struct {
	RoomID         *string
	Date           *time.Time
	StartTurn      *int
	EndTurn        *int
	State          *booking.ReservationState
	ParticipantIDs []string
}

// UpdateReservationParams bundles the principal, target and patch for an update.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Patch         ReservationPatch
}

// ListReservationsParams narrows the reservation listing.
type ListReservationsParams struct {
	Principal Principal
	Mine      bool
	RoomID    string
	Date      *time.Time
	DateFrom  *time.Time
	DateTo    *time.Time
}

// SetParticipationParams records an invitation response for the principal.
type SetParticipationParams struct {
	Principal     Principal
	ReservationID string
	Accepted      bool
}

// RecordAttendanceParams records a single attendance observation.
type RecordAttendanceParams struct {
	Principal     Principal
	ReservationID string
	ParticipantID string
	Present       bool
}

// SanctionInput carries the caller supplied fields for creating a sanction.
type SanctionInput struct {
	ParticipantID string
	StartsOn      time.Time
	EndsOn        time.Time
	Reason        string
}

// CreateSanctionParams bundles the principal with the sanction input.
type CreateSanctionParams struct {
	Principal Principal
	Input     SanctionInput
}

// ListSanctionsParams narrows the sanction listing.
type ListSanctionsParams struct {
	Principal     Principal
	ParticipantID string
	ActiveOn      *time.Time
}

// ReconciliationSummary reports the outcome of one reconciliation sweep.
type ReconciliationSummary struct {
	Examined         int
	Finalized        int
	NoShows          int
	SanctionsApplied int
	Failures         int
}

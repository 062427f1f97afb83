package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/campus-reservations/internal/booking"
	"github.com/example/campus-reservations/internal/persistence"
)

var (
	roomCounter        uint64
	participantCounter uint64
	reservationCounter uint64
	sanctionCounter    uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// RoomOption configures the generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoomFixture returns a deterministic room record with optional overrides.
func NewRoomFixture(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	room := persistence.Room{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  6,
		Category:  booking.CategoryOpen,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(r *persistence.Room) { r.Capacity = capacity }
}

// WithRoomCategory overrides the generated category.
func WithRoomCategory(category booking.RoomCategory) RoomOption {
	return func(r *persistence.Room) { r.Category = category }
}

// ParticipantOption configures the generated participant fixture.
type ParticipantOption func(*persistence.Participant)

// NewParticipantFixture returns a deterministic participant record with
// optional overrides.
func NewParticipantFixture(opts ...ParticipantOption) persistence.Participant {
	idx := atomic.AddUint64(&participantCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	participant := persistence.Participant{
		ID:          fmt.Sprintf("participant-%03d", idx),
		DisplayName: fmt.Sprintf("Participant %03d", idx),
		Role:        booking.RoleUndergrad,
		Active:      true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&participant)
	}
	return participant
}

// WithParticipantID overrides the generated participant ID.
func WithParticipantID(id string) ParticipantOption {
	return func(p *persistence.Participant) { p.ID = id }
}

// WithParticipantRole overrides the generated role.
func WithParticipantRole(role booking.Role) ParticipantOption {
	return func(p *persistence.Participant) { p.Role = role }
}

// WithParticipantActive sets the active flag on the generated fixture.
func WithParticipantActive(active bool) ParticipantOption {
	return func(p *persistence.Participant) { p.Active = active }
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservationFixture returns a deterministic reservation record with
// optional overrides. The creator participation row is added automatically
// when CreatorID is set and no rows are supplied.
func NewReservationFixture(opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	reservation := persistence.Reservation{
		ID:        fmt.Sprintf("reservation-%03d", idx),
		Date:      time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		StartTurn: 1,
		EndTurn:   1,
		State:     booking.ReservationActive,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	if len(reservation.Participations) == 0 && reservation.CreatorID != "" {
		reservation.Participations = []persistence.Participation{{
			ReservationID: reservation.ID,
			ParticipantID: reservation.CreatorID,
			State:         booking.ParticipationConfirmed,
			Attendance:    booking.AttendanceUnrecorded,
		}}
	}
	return reservation
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) { r.ID = id }
}

// WithReservationRoom assigns the reservation to a room.
func WithReservationRoom(roomID string) ReservationOption {
	return func(r *persistence.Reservation) { r.RoomID = roomID }
}

// WithReservationCreator assigns the creator.
func WithReservationCreator(creatorID string) ReservationOption {
	return func(r *persistence.Reservation) { r.CreatorID = creatorID }
}

// WithReservationDate overrides the reservation date.
func WithReservationDate(date time.Time) ReservationOption {
	return func(r *persistence.Reservation) { r.Date = booking.DateOf(date) }
}

// WithReservationTurns overrides the turn range.
func WithReservationTurns(start, end int) ReservationOption {
	return func(r *persistence.Reservation) {
		r.StartTurn = start
		r.EndTurn = end
	}
}

// WithReservationState overrides the lifecycle state.
func WithReservationState(state booking.ReservationState) ReservationOption {
	return func(r *persistence.Reservation) { r.State = state }
}

// WithReservationParticipations replaces the participation rows.
func WithReservationParticipations(rows ...persistence.Participation) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Participations = append([]persistence.Participation(nil), rows...)
	}
}

// SanctionOption configures the generated sanction fixture.
type SanctionOption func(*persistence.Sanction)

// NewSanctionFixture returns a deterministic sanction record with optional
// overrides.
func NewSanctionFixture(opts ...SanctionOption) persistence.Sanction {
	idx := atomic.AddUint64(&sanctionCounter, 1)
	starts := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	sanction := persistence.Sanction{
		ID:        fmt.Sprintf("sanction-%03d", idx),
		StartsOn:  starts,
		EndsOn:    starts.AddDate(0, 0, 60),
		Reason:    "fixture sanction",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&sanction)
	}
	return sanction
}

// WithSanctionID overrides the generated sanction ID.
func WithSanctionID(id string) SanctionOption {
	return func(s *persistence.Sanction) { s.ID = id }
}

// WithSanctionParticipant assigns the sanctioned participant.
func WithSanctionParticipant(participantID string) SanctionOption {
	return func(s *persistence.Sanction) { s.ParticipantID = participantID }
}

// WithSanctionWindow overrides the covered interval.
func WithSanctionWindow(startsOn, endsOn time.Time) SanctionOption {
	return func(s *persistence.Sanction) {
		s.StartsOn = booking.DateOf(startsOn)
		s.EndsOn = booking.DateOf(endsOn)
	}
}

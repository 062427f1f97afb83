package persistence

import (
	"time"

	"github.com/example/campus-reservations/internal/booking"
)

// Room is a directory entry for a reservable room. The core only ever reads
// rooms; the directory itself is maintained by an external service.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Category  booking.RoomCategory
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is a directory entry for one fixed time slot. Turns are totally
// ordered by Ordinal; StartsAt and EndsAt are wall clocks in "HH:MM" form.
type Turn struct {
	ID       string
	Ordinal  int
	StartsAt string
	EndsAt   string
}

// Participant is a directory entry for an institution member.
type Participant struct {
	ID          string
	DisplayName string
	Role        booking.Role
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reservation is a stored reservation together with its participation rows.
type Reservation struct {
	ID             string
	RoomID         string
	Date           time.Time
	StartTurn      int
	EndTurn        int
	State          booking.ReservationState
	CreatorID      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Participations []Participation
}

// Participation links one participant to one reservation.
type Participation struct {
	ReservationID string
	ParticipantID string
	State         booking.ParticipationState
	Attendance    booking.Attendance
}

// Sanction is a time-bounded penalty barring a participant from creating
// reservations. The interval [StartsOn, EndsOn] is inclusive.
type Sanction struct {
	ID            string
	ParticipantID string
	StartsOn      time.Time
	EndsOn        time.Time
	Reason        string
	CreatedAt     time.Time
}

// ActiveOn reports whether the sanction covers the given date.
func (s Sanction) ActiveOn(date time.Time) bool {
	day := booking.DateOf(date)
	return !day.Before(booking.DateOf(s.StartsOn)) && !day.After(booking.DateOf(s.EndsOn))
}

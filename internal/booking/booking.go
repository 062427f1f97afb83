package booking

// RoomCategory restricts which roles may reserve a room.
type RoomCategory string

const (
	// CategoryOpen admits every active participant.
	CategoryOpen RoomCategory = "open"
	// CategoryPostgrad admits postgraduate and faculty participants.
	CategoryPostgrad RoomCategory = "postgrad"
	// CategoryFaculty admits faculty participants only.
	CategoryFaculty RoomCategory = "faculty"
)

// Role classifies a participant within the institution.
type Role string

const (
	RoleUndergrad Role = "undergrad"
	RolePostgrad  Role = "postgrad"
	RoleFaculty   Role = "faculty"
	RoleAdmin     Role = "admin"
)

// ReservationState tracks a reservation through its lifecycle.
type ReservationState string

const (
	// ReservationActive is the initial state of a freshly created reservation.
	ReservationActive ReservationState = "active"
	// ReservationConfirmed marks a reservation the creator has locked in.
	ReservationConfirmed ReservationState = "confirmed"
	// ReservationCancelled is terminal; the slot is released.
	ReservationCancelled ReservationState = "cancelled"
	// ReservationFinalized is terminal; the reservation elapsed with attendance.
	ReservationFinalized ReservationState = "finalized"
	// ReservationNoShow is terminal; the reservation elapsed with zero attendance.
	ReservationNoShow ReservationState = "no_show"
)

// ParticipationState tracks an invitee's response.
type ParticipationState string

const (
	ParticipationPending   ParticipationState = "pending"
	ParticipationConfirmed ParticipationState = "confirmed"
	ParticipationRejected  ParticipationState = "rejected"
)

// Attendance records whether a participant showed up.
type Attendance string

const (
	AttendanceUnrecorded Attendance = "unrecorded"
	AttendancePresent    Attendance = "present"
	AttendanceAbsent     Attendance = "absent"
)

// Live reports whether the reservation still occupies its slot. Only live
// reservations participate in conflict and quota accounting.
func (s ReservationState) Live() bool {
	return s == ReservationActive || s == ReservationConfirmed
}

// Terminal reports whether the state admits no further transitions.
func (s ReservationState) Terminal() bool {
	switch s {
	case ReservationCancelled, ReservationFinalized, ReservationNoShow:
		return true
	}
	return false
}

// Valid reports whether the state is one of the known reservation states.
func (s ReservationState) Valid() bool {
	switch s {
	case ReservationActive, ReservationConfirmed, ReservationCancelled, ReservationFinalized, ReservationNoShow:
		return true
	}
	return false
}

// CanTransition reports whether a reservation may move from one state to
// another. Identity transitions are allowed so idempotent updates that do not
// touch the state field pass through.
func CanTransition(from, to ReservationState) bool {
	if from == to {
		return true
	}
	switch from {
	case ReservationActive:
		return to == ReservationConfirmed || to == ReservationCancelled || to == ReservationFinalized || to == ReservationNoShow
	case ReservationConfirmed:
		return to == ReservationCancelled || to == ReservationFinalized || to == ReservationNoShow
	}
	return false
}

// RoleMayReserve reports whether a participant with the given role may create
// a reservation for a room of the given category. Administrators pass every
// category check.
func RoleMayReserve(category RoomCategory, role Role) bool {
	if role == RoleAdmin {
		return true
	}
	switch category {
	case CategoryOpen:
		return role == RoleUndergrad || role == RolePostgrad || role == RoleFaculty
	case CategoryPostgrad:
		return role == RolePostgrad || role == RoleFaculty
	case CategoryFaculty:
		return role == RoleFaculty
	}
	return false
}

// TurnRange is an inclusive span of turn ordinals within a single date.
type TurnRange struct {
	Start int
	End   int
}

// Valid reports whether the range is well formed: positive ordinals with
// start not after end.
func (r TurnRange) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// Hours returns the number of one-hour turns the range spans.
func (r TurnRange) Hours() int {
	if !r.Valid() {
		return 0
	}
	return r.End - r.Start + 1
}

// Overlaps reports whether two inclusive turn ranges share at least one turn.
func (r TurnRange) Overlaps(other TurnRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

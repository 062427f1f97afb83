package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrSanctionActive is returned when the creator holds an active sanction.
	ErrSanctionActive = errors.New("application: participant has an active sanction")
	// ErrRoleNotAuthorized is returned when the creator's role may not reserve
	// the room's category.
	ErrRoleNotAuthorized = errors.New("application: role not authorized for room category")
	// ErrCapacityExceeded is returned when the participant list exceeds the
	// room capacity.
	ErrCapacityExceeded = errors.New("application: room capacity exceeded")
	// ErrDailyQuotaExceeded is returned when the reservation would push the
	// creator past the daily turn-hour limit.
	ErrDailyQuotaExceeded = errors.New("application: daily hour quota exceeded")
	// ErrWeeklyQuotaExceeded is returned when the creator already holds the
	// weekly confirmed-participation limit.
	ErrWeeklyQuotaExceeded = errors.New("application: weekly reservation quota exceeded")
	// ErrRoomUnavailable is returned when a live reservation already occupies
	// the room for an overlapping turn range.
	ErrRoomUnavailable = errors.New("application: room unavailable for the requested turns")
	// ErrParticipantDoubleBooked is returned when the creator already holds a
	// live overlapping reservation.
	ErrParticipantDoubleBooked = errors.New("application: participant already booked for the requested turns")
	// ErrNotInvited is returned when no participation row links the
	// participant to the reservation.
	ErrNotInvited = errors.New("application: participant not invited")
	// ErrAttendanceRecorded is returned on a second attendance recording for
	// the same participation.
	ErrAttendanceRecorded = errors.New("application: attendance already recorded")
	// ErrInvalidTransition is returned when a state patch violates the
	// reservation lifecycle.
	ErrInvalidTransition = errors.New("application: invalid reservation state transition")
	// ErrSanctionOverlap is returned when a sanction would overlap an existing
	// one for the same participant.
	ErrSanctionOverlap = errors.New("application: overlapping sanction interval")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a check constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrRoomConflict is returned when a live reservation for the same room
	// already overlaps the requested date and turn range.
	ErrRoomConflict = errors.New("persistence: room already reserved")
	// ErrCreatorConflict is returned when the creator already holds a live
	// overlapping reservation.
	ErrCreatorConflict = errors.New("persistence: creator already booked")
	// ErrSanctionOverlap is returned when a sanction interval would overlap an
	// existing sanction for the same participant.
	ErrSanctionOverlap = errors.New("persistence: overlapping sanction")
	// ErrAlreadyRecorded is returned when attendance for a participation row
	// has already moved past unrecorded.
	ErrAlreadyRecorded = errors.New("persistence: attendance already recorded")
)

package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, including the (room, start) backstop on active bookings.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a write violates a check
	// constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a write references a missing
	// record.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrVersionMismatch is returned when an optimistic status update finds
	// the row changed underneath it.
	ErrVersionMismatch = errors.New("persistence: version mismatch")
)

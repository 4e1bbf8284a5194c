package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

// AttendeeRepository implements persistence.AttendeeRepository using SQLite.
type AttendeeRepository struct {
	pool *ConnectionPool
}

// NewAttendeeRepository creates a new SQLite attendee repository.
func NewAttendeeRepository(pool *ConnectionPool) *AttendeeRepository {
	return &AttendeeRepository{pool: pool}
}

// CreateAttendee inserts a new attendee record.
func (r *AttendeeRepository) CreateAttendee(ctx context.Context, attendee booking.Attendee) error {
	if attendee.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO booking_attendees (id, booking_id, user_id, accepted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		attendee.ID,
		attendee.BookingID,
		attendee.UserID,
		nullableBool(attendee.Accepted),
		formatTime(attendee.CreatedAt),
		formatTime(attendee.UpdatedAt),
	)
	return mapError(err)
}

// UpdateAttendee rewrites an attendee's response.
func (r *AttendeeRepository) UpdateAttendee(ctx context.Context, attendee booking.Attendee) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE booking_attendees SET accepted = ?, updated_at = ? WHERE id = ?
	`,
		nullableBool(attendee.Accepted),
		formatTime(attendee.UpdatedAt),
		attendee.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetAttendee retrieves an attendee record by id.
func (r *AttendeeRepository) GetAttendee(ctx context.Context, id string) (booking.Attendee, error) {
	if id == "" {
		return booking.Attendee{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, booking_id, user_id, accepted, created_at, updated_at
		FROM booking_attendees WHERE id = ?
	`, id)
	return scanAttendee(row)
}

// ListAttendeesForBooking returns attendees for a booking ordered by user id.
func (r *AttendeeRepository) ListAttendeesForBooking(ctx context.Context, bookingID string) ([]booking.Attendee, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, booking_id, user_id, accepted, created_at, updated_at
		FROM booking_attendees WHERE booking_id = ?
		ORDER BY user_id ASC
	`, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var attendees []booking.Attendee
	for rows.Next() {
		attendee, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		attendees = append(attendees, attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return attendees, nil
}

func scanAttendee(row rowScanner) (booking.Attendee, error) {
	var attendee booking.Attendee
	var accepted sql.NullInt64
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&attendee.ID,
		&attendee.BookingID,
		&attendee.UserID,
		&accepted,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.Attendee{}, persistence.ErrNotFound
		}
		return booking.Attendee{}, mapError(err)
	}

	if accepted.Valid {
		value := accepted.Int64 != 0
		attendee.Accepted = &value
	}
	if attendee.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return booking.Attendee{}, err
	}
	if attendee.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return booking.Attendee{}, err
	}
	return attendee, nil
}

func nullableBool(b *bool) sql.NullInt64 {
	if b == nil {
		return sql.NullInt64{}
	}
	var v int64
	if *b {
		v = 1
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool *ConnectionPool
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, room_id, title, description, start_time, end_time, status,
	created_by, approved_by, approved_at, recurrence_id, recurrence_pattern,
	recurrence_end_date, version, created_at, updated_at`

// CreateBooking inserts a single booking with its participants.
func (r *BookingRepository) CreateBooking(ctx context.Context, b booking.Booking) error {
	return r.CreateSeries(ctx, []booking.Booking{b})
}

// CreateSeries inserts every occurrence of a series in one transaction. A
// constraint failure on any row rolls back the whole series.
func (r *BookingRepository) CreateSeries(ctx context.Context, series []booking.Booking) error {
	if len(series) == 0 {
		return nil
	}
	for _, b := range series {
		if b.ID == "" {
			return persistence.ErrConstraintViolation
		}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, b := range series {
			if err := insertBookingTx(tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertBookingTx(tx *sql.Tx, b booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.Exec(query,
		b.ID,
		b.RoomID,
		b.Title,
		b.Description,
		formatTime(b.Start),
		formatTime(b.End),
		string(b.Status),
		b.CreatedBy,
		nullableString(b.ApprovedBy),
		formatNullableTime(b.ApprovedAt),
		nullableString(b.RecurrenceID),
		nullableString(b.RecurrencePattern),
		formatNullableTime(b.RecurrenceEndDate),
		b.Version,
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}

	return replaceParticipantsTx(tx, b.ID, b.Participants, false)
}

// GetBooking retrieves a booking by id.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	if id == "" {
		return booking.Booking{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)

	b, err := scanBooking(row)
	if err != nil {
		return booking.Booking{}, err
	}

	participants, err := r.loadParticipants(ctx, id)
	if err != nil {
		return booking.Booking{}, err
	}
	b.Participants = participants
	return b, nil
}

// UpdateBooking rewrites a booking row and its participants. Used for
// interval and metadata changes; status transitions go through
// UpdateBookingStatus.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b booking.Booking) error {
	if b.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE bookings
			SET room_id = ?, title = ?, description = ?, start_time = ?, end_time = ?,
				status = ?, approved_by = ?, approved_at = ?, recurrence_id = ?,
				recurrence_pattern = ?, recurrence_end_date = ?, version = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.Exec(query,
			b.RoomID,
			b.Title,
			b.Description,
			formatTime(b.Start),
			formatTime(b.End),
			string(b.Status),
			nullableString(b.ApprovedBy),
			formatNullableTime(b.ApprovedAt),
			nullableString(b.RecurrenceID),
			nullableString(b.RecurrencePattern),
			formatNullableTime(b.RecurrenceEndDate),
			b.Version,
			formatTime(b.UpdatedAt),
			b.ID,
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

		return replaceParticipantsTx(tx, b.ID, b.Participants, true)
	})
}

// UpdateBookingStatus persists a lifecycle transition guarded by an
// optimistic version check. When the stored row no longer carries
// expectedVersion a concurrent transition won, and the caller decides whether
// that matters.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, b booking.Booking, expectedVersion int64) error {
	if b.ID == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, approved_by = ?, approved_at = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		string(b.Status),
		nullableString(b.ApprovedBy),
		formatNullableTime(b.ApprovedAt),
		b.Version,
		formatTime(b.UpdatedAt),
		b.ID,
		expectedVersion,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		row := r.pool.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, b.ID)
		if scanErr := row.Scan(&exists); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			return mapError(scanErr)
		}
		return persistence.ErrVersionMismatch
	}
	return nil
}

// ListBookings lists bookings matching the filter, ordered by start time.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]booking.Booking, error) {
	query, args := buildBookingListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range bookings {
		participants, err := r.loadParticipants(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Participants = participants
	}

	return bookings, nil
}

func buildBookingListQuery(filter persistence.BookingFilter) (string, []any) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`

	var conditions []string
	var args []any

	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.RecurrenceID != "" {
		conditions = append(conditions, "recurrence_id = ?")
		args = append(args, filter.RecurrenceID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}
	if filter.CreatedBy != "" {
		conditions = append(conditions, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (booking.Booking, error) {
	var b booking.Booking
	var status string
	var startStr, endStr, createdAtStr, updatedAtStr string
	var approvedBy, approvedAt, recurrenceID, recurrencePattern, recurrenceEnd sql.NullString

	err := row.Scan(
		&b.ID,
		&b.RoomID,
		&b.Title,
		&b.Description,
		&startStr,
		&endStr,
		&status,
		&b.CreatedBy,
		&approvedBy,
		&approvedAt,
		&recurrenceID,
		&recurrencePattern,
		&recurrenceEnd,
		&b.Version,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.Booking{}, persistence.ErrNotFound
		}
		return booking.Booking{}, mapError(err)
	}

	b.Status = booking.Status(status)
	b.ApprovedBy = stringPtr(approvedBy)
	b.RecurrenceID = stringPtr(recurrenceID)
	b.RecurrencePattern = stringPtr(recurrencePattern)

	if b.Start, err = parseTime("start_time", startStr); err != nil {
		return booking.Booking{}, err
	}
	if b.End, err = parseTime("end_time", endStr); err != nil {
		return booking.Booking{}, err
	}
	if b.ApprovedAt, err = parseNullableTime("approved_at", approvedAt); err != nil {
		return booking.Booking{}, err
	}
	if b.RecurrenceEndDate, err = parseNullableTime("recurrence_end_date", recurrenceEnd); err != nil {
		return booking.Booking{}, err
	}
	if b.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return booking.Booking{}, err
	}
	if b.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return booking.Booking{}, err
	}

	return b, nil
}

func replaceParticipantsTx(tx *sql.Tx, bookingID string, participants []string, clearFirst bool) error {
	if clearFirst {
		if _, err := tx.Exec("DELETE FROM booking_participants WHERE booking_id = ?", bookingID); err != nil {
			return mapError(err)
		}
	}

	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		participant = strings.TrimSpace(participant)
		if participant == "" {
			continue
		}
		if _, ok := seen[participant]; ok {
			continue
		}
		seen[participant] = struct{}{}
		if _, err := tx.Exec(
			"INSERT INTO booking_participants (booking_id, participant) VALUES (?, ?)",
			bookingID, participant); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r *BookingRepository) loadParticipants(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT participant
		FROM booking_participants
		WHERE booking_id = ?
		ORDER BY participant ASC
	`, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var participant string
		if err := rows.Scan(&participant); err != nil {
			return nil, mapError(err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return participants, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite.
type RoomRepository struct {
	pool *ConnectionPool
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

const roomColumns = `id, name, capacity, min_booking_minutes, max_booking_minutes,
	max_advance_booking_days, cancellation_cutoff_minutes, active, created_at, updated_at`

// CreateRoom inserts a new room.
func (r *RoomRepository) CreateRoom(ctx context.Context, room booking.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		room.ID,
		room.Name,
		room.Capacity,
		room.Policy.MinBookingMinutes,
		room.Policy.MaxBookingMinutes,
		room.Policy.MaxAdvanceBookingDays,
		room.Policy.CancellationCutoffMinutes,
		boolToInt(room.Active),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return mapError(err)
}

// UpdateRoom rewrites an existing room.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room booking.Room) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE rooms
		SET name = ?, capacity = ?, min_booking_minutes = ?, max_booking_minutes = ?,
			max_advance_booking_days = ?, cancellation_cutoff_minutes = ?, active = ?, updated_at = ?
		WHERE id = ?
	`,
		room.Name,
		room.Capacity,
		room.Policy.MinBookingMinutes,
		room.Policy.MaxBookingMinutes,
		room.Policy.MaxAdvanceBookingDays,
		room.Policy.CancellationCutoffMinutes,
		boolToInt(room.Active),
		formatTime(room.UpdatedAt),
		room.ID,
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

// GetRoom retrieves a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if id == "" {
		return booking.Room{}, persistence.ErrNotFound
	}

	row := r.pool.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// ListRooms returns all rooms ordered by name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]booking.Room, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []booking.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room by id. Rooms with booking history cannot be
// deleted; deactivate them instead.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
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

func scanRoom(row rowScanner) (booking.Room, error) {
	var room booking.Room
	var active int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&room.Policy.MinBookingMinutes,
		&room.Policy.MaxBookingMinutes,
		&room.Policy.MaxAdvanceBookingDays,
		&room.Policy.CancellationCutoffMinutes,
		&active,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return booking.Room{}, persistence.ErrNotFound
		}
		return booking.Room{}, mapError(err)
	}

	room.Active = active != 0
	if room.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return booking.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return booking.Room{}, err
	}
	return room, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

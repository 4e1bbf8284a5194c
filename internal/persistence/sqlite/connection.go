// Package sqlite implements the persistence repositories on SQLite via the
// CGO-free modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/roombooker/internal/persistence"
	_ "modernc.org/sqlite"
)

// ConnectionPool manages SQLite database connections with transaction
// support.
type ConnectionPool struct {
	db *sql.DB
}

// NewConnectionPool opens a pooled connection for the given DSN. SQLite
// serializes writers, so the pool is capped at a single connection to avoid
// spurious "database is locked" failures.
func NewConnectionPool(dsn string) (*ConnectionPool, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &ConnectionPool{db: db}, nil
}

// DB returns the underlying database handle.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the connection pool.
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// TransactionFunc represents a function that executes within a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a database transaction, rolling back on
// error or panic and committing otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// mapError maps SQLite errors to persistence layer sentinels. Unmapped
// errors pass through untouched so infrastructure failures stay
// distinguishable from validation outcomes.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}

	return err
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL,
		min_booking_minutes INTEGER NOT NULL,
		max_booking_minutes INTEGER NOT NULL,
		max_advance_booking_days INTEGER NOT NULL,
		cancellation_cutoff_minutes INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES rooms(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('PENDING','CONFIRMED','CANCELLED','COMPLETED')),
		created_by TEXT NOT NULL,
		approved_by TEXT,
		approved_at TEXT,
		recurrence_id TEXT,
		recurrence_pattern TEXT,
		recurrence_end_date TEXT,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	// Last-resort backstop against double booking: two active bookings on
	// one room can never share a start instant. The in-process per-room
	// guard remains the primary protocol.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
		ON bookings (room_id, start_time)
		WHERE status IN ('PENDING','CONFIRMED')`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_room_time ON bookings (room_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_recurrence ON bookings (recurrence_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_end ON bookings (status, end_time)`,
	`CREATE TABLE IF NOT EXISTS booking_participants (
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		participant TEXT NOT NULL,
		PRIMARY KEY (booking_id, participant)
	)`,
	`CREATE TABLE IF NOT EXISTS booking_attendees (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		accepted INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (booking_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		can_approve INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

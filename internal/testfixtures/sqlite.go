package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/roombooker/internal/persistence"
	"github.com/example/roombooker/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool      *sqlite.ConnectionPool
	Users     persistence.UserRepository
	Rooms     persistence.RoomRepository
	Bookings  persistence.BookingRepository
	Attendees persistence.AttendeeRepository
	Sessions  persistence.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness backed by a temporary file that
// is migrated automatically. Callers may invoke Close, but the helper also
// registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dsn := "file:" + filepath.Join(dir, "roombooker.db") + "?_foreign_keys=on"

	pool, err := sqlite.NewConnectionPool(dsn)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:      pool,
		Users:     sqlite.NewUserRepository(pool),
		Rooms:     sqlite.NewRoomRepository(pool),
		Bookings:  sqlite.NewBookingRepository(pool),
		Attendees: sqlite.NewAttendeeRepository(pool),
		Sessions:  sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)

	return harness
}

package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := NewConnectionPool(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return pool
}

func seedRoom(t *testing.T, pool *ConnectionPool, id, name string) {
	t.Helper()

	repo := NewRoomRepository(pool)
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	err := repo.CreateRoom(context.Background(), booking.Room{
		ID:       id,
		Name:     name,
		Capacity: 8,
		Policy: booking.Policy{
			MinBookingMinutes:         30,
			MaxBookingMinutes:         120,
			MaxAdvanceBookingDays:     30,
			CancellationCutoffMinutes: 60,
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
}

func testBooking(id, roomID string, start time.Time) booking.Booking {
	return booking.Booking{
		ID:           id,
		RoomID:       roomID,
		Title:        "standup",
		Start:        start,
		End:          start.Add(time.Hour),
		Status:       booking.StatusPending,
		Participants: []string{"alice", "bob"},
		CreatedBy:    "alice",
		CreatedAt:    start.Add(-24 * time.Hour),
		UpdatedAt:    start.Add(-24 * time.Hour),
	}
}

func TestBookingRepository_RoundTrip(t *testing.T) {
	pool := newTestPool(t)
	seedRoom(t, pool, "atlas", "Atlas")
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	original := testBooking("bk-1", "atlas", start)
	pattern := "WEEKLY"
	recurrenceID := "series-1"
	until := start.AddDate(0, 0, 21)
	original.RecurrenceID = &recurrenceID
	original.RecurrencePattern = &pattern
	original.RecurrenceEndDate = &until

	if err := repo.CreateBooking(ctx, original); err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	got, err := repo.GetBooking(ctx, "bk-1")
	if err != nil {
		t.Fatalf("failed to get booking: %v", err)
	}
	if !got.Start.Equal(original.Start) || !got.End.Equal(original.End) {
		t.Fatalf("interval mismatch: got [%v, %v)", got.Start, got.End)
	}
	if got.Status != booking.StatusPending {
		t.Fatalf("status mismatch: %s", got.Status)
	}
	if got.RecurrenceID == nil || *got.RecurrenceID != "series-1" {
		t.Fatalf("recurrence id mismatch: %v", got.RecurrenceID)
	}
	if got.RecurrenceEndDate == nil || !got.RecurrenceEndDate.Equal(until) {
		t.Fatalf("recurrence end mismatch: %v", got.RecurrenceEndDate)
	}
	if len(got.Participants) != 2 {
		t.Fatalf("participants mismatch: %v", got.Participants)
	}
}

func TestBookingRepository_CreateSeriesAtomicity(t *testing.T) {
	pool := newTestPool(t)
	seedRoom(t, pool, "atlas", "Atlas")
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	if err := repo.CreateBooking(ctx, testBooking("existing", "atlas", start.AddDate(0, 0, 7))); err != nil {
		t.Fatalf("failed to seed existing booking: %v", err)
	}

	// Second occurrence trips the active-slot backstop index.
	series := []booking.Booking{
		testBooking("s1", "atlas", start),
		testBooking("s2", "atlas", start.AddDate(0, 0, 7)),
		testBooking("s3", "atlas", start.AddDate(0, 0, 14)),
	}
	err := repo.CreateSeries(ctx, series)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := repo.GetBooking(ctx, id); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected %s absent after rollback, got %v", id, err)
		}
	}
}

func TestBookingRepository_ActiveSlotBackstop(t *testing.T) {
	pool := newTestPool(t)
	seedRoom(t, pool, "atlas", "Atlas")
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	if err := repo.CreateBooking(ctx, testBooking("bk-1", "atlas", start)); err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	t.Run("active duplicate slot rejected", func(t *testing.T) {
		err := repo.CreateBooking(ctx, testBooking("bk-2", "atlas", start))
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("cancelled rows do not occupy the slot", func(t *testing.T) {
		cancelled := testBooking("bk-3", "atlas", start)
		cancelled.Status = booking.StatusCancelled
		if err := repo.CreateBooking(ctx, cancelled); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestBookingRepository_UpdateBookingStatus(t *testing.T) {
	pool := newTestPool(t)
	seedRoom(t, pool, "atlas", "Atlas")
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	if err := repo.CreateBooking(ctx, testBooking("bk-1", "atlas", start)); err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	t.Run("applies the transition at the expected version", func(t *testing.T) {
		b, err := repo.GetBooking(ctx, "bk-1")
		if err != nil {
			t.Fatalf("failed to get booking: %v", err)
		}
		confirmed, err := booking.Approve(b, "approver-1", start.Add(-time.Hour))
		if err != nil {
			t.Fatalf("unexpected transition error: %v", err)
		}
		if err := repo.UpdateBookingStatus(ctx, confirmed, b.Version); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := repo.GetBooking(ctx, "bk-1")
		if err != nil {
			t.Fatalf("failed to get booking: %v", err)
		}
		if got.Status != booking.StatusConfirmed || got.Version != b.Version+1 {
			t.Fatalf("unexpected state: %s v%d", got.Status, got.Version)
		}
	})

	t.Run("stale version fails with ErrVersionMismatch", func(t *testing.T) {
		b, err := repo.GetBooking(ctx, "bk-1")
		if err != nil {
			t.Fatalf("failed to get booking: %v", err)
		}
		stale := b
		stale.Status = booking.StatusCancelled
		stale.Version = b.Version + 1

		err = repo.UpdateBookingStatus(ctx, stale, b.Version-1)
		if !errors.Is(err, persistence.ErrVersionMismatch) {
			t.Fatalf("expected ErrVersionMismatch, got %v", err)
		}
	})

	t.Run("missing booking fails with ErrNotFound", func(t *testing.T) {
		ghost := testBooking("ghost", "atlas", start)
		if err := repo.UpdateBookingStatus(ctx, ghost, 0); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingRepository_ListBookings(t *testing.T) {
	pool := newTestPool(t)
	seedRoom(t, pool, "atlas", "Atlas")
	seedRoom(t, pool, "hermes", "Hermes")
	repo := NewBookingRepository(pool)
	ctx := context.Background()

	base := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	recurrenceID := "series-1"
	for i := 0; i < 3; i++ {
		b := testBooking(fmt.Sprintf("atlas-%d", i), "atlas", base.Add(time.Duration(i*2)*time.Hour))
		if i > 0 {
			b.RecurrenceID = &recurrenceID
		}
		if err := repo.CreateBooking(ctx, b); err != nil {
			t.Fatalf("failed to create booking: %v", err)
		}
	}
	other := testBooking("hermes-0", "hermes", base)
	other.Status = booking.StatusCancelled
	if err := repo.CreateBooking(ctx, other); err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}

	t.Run("filters by room", func(t *testing.T) {
		got, err := repo.ListBookings(ctx, persistence.BookingFilter{RoomID: "atlas"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 bookings, got %d", len(got))
		}
		// Ordered by start time.
		for i := 1; i < len(got); i++ {
			if got[i].Start.Before(got[i-1].Start) {
				t.Fatalf("unordered results at %d", i)
			}
		}
	})

	t.Run("filters by recurrence id", func(t *testing.T) {
		got, err := repo.ListBookings(ctx, persistence.BookingFilter{RecurrenceID: "series-1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 bookings, got %d", len(got))
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		got, err := repo.ListBookings(ctx, persistence.BookingFilter{
			Statuses: []booking.Status{booking.StatusCancelled},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "hermes-0" {
			t.Fatalf("unexpected results: %+v", got)
		}
	})

	t.Run("filters by time window", func(t *testing.T) {
		windowStart := base.Add(90 * time.Minute)
		windowEnd := base.Add(4 * time.Hour)
		got, err := repo.ListBookings(ctx, persistence.BookingFilter{
			RoomID:      "atlas",
			StartsAfter: &windowStart,
			EndsBefore:  &windowEnd,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "atlas-1" {
			t.Fatalf("unexpected results: %+v", got)
		}
	})
}

package persistence

import (
	"context"
	"time"

	"github.com/example/roombooker/internal/booking"
)

// RoomRepository exposes CRUD operations for the room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room booking.Room) error
	UpdateRoom(ctx context.Context, room booking.Room) error
	GetRoom(ctx context.Context, id string) (booking.Room, error)
	ListRooms(ctx context.Context) ([]booking.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	RoomID       string
	RecurrenceID string
	Statuses     []booking.Status
	StartsAfter  *time.Time
	EndsBefore   *time.Time
	CreatedBy    string
}

// BookingRepository stores booking rows. CreateSeries writes every occurrence
// of a recurring request in one transaction so a failed series leaves no
// partial state behind.
type BookingRepository interface {
	CreateBooking(ctx context.Context, b booking.Booking) error
	CreateSeries(ctx context.Context, series []booking.Booking) error
	GetBooking(ctx context.Context, id string) (booking.Booking, error)
	UpdateBooking(ctx context.Context, b booking.Booking) error
	// UpdateBookingStatus persists a status transition only if the stored
	// row still carries expectedVersion; otherwise it fails with
	// ErrVersionMismatch.
	UpdateBookingStatus(ctx context.Context, b booking.Booking, expectedVersion int64) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]booking.Booking, error)
}

// AttendeeRepository stores invitation responses, independent of the booking
// lifecycle.
type AttendeeRepository interface {
	CreateAttendee(ctx context.Context, attendee booking.Attendee) error
	UpdateAttendee(ctx context.Context, attendee booking.Attendee) error
	GetAttendee(ctx context.Context, id string) (booking.Attendee, error)
	ListAttendeesForBooking(ctx context.Context, bookingID string) ([]booking.Attendee, error)
}

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

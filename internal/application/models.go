package application

import (
	"time"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

// Principal identifies the authenticated actor performing an operation.
type Principal struct {
	UserID     string
	IsAdmin    bool
	CanApprove bool
}

// RecurrenceInput describes a repeating series attached to a booking request.
type RecurrenceInput struct {
	Pattern string
	Until   time.Time
}

// BookingInput carries the caller supplied fields for a booking.
type BookingInput struct {
	RoomID       string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Participants []string
	Recurrence   *RecurrenceInput
}

// CreateBookingParams bundles the principal and input for CreateBooking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// UpdateBookingInput carries the mutable fields for an existing booking.
type UpdateBookingInput struct {
	RoomID       string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Participants []string
}

// UpdateBookingParams bundles the principal and input for UpdateBooking.
type UpdateBookingParams struct {
	Principal Principal
	BookingID string
	Input     UpdateBookingInput
}

// ApproveBookingParams bundles the principal and target for Approve.
type ApproveBookingParams struct {
	Principal Principal
	BookingID string
}

// CancelScope selects how much of a recurring series a cancellation covers.
type CancelScope string

const (
	// CancelInstance cancels only the addressed occurrence.
	CancelInstance CancelScope = "instance"
	// CancelSeries cancels every remaining occurrence of the series.
	CancelSeries CancelScope = "series"
)

// CancelBookingParams bundles the principal, target, and scope for Cancel.
type CancelBookingParams struct {
	Principal Principal
	BookingID string
	Scope     CancelScope
}

// ListBookingsParams narrows a booking listing.
type ListBookingsParams struct {
	Principal Principal
	RoomID    string
	From      *time.Time
	To        *time.Time
	Statuses  []booking.Status
	Mine      bool
}

// RespondAttendanceParams records an accept or decline for an invitation.
type RespondAttendanceParams struct {
	Principal Principal
	BookingID string
	Accepted  bool
}

// RoomInput carries the caller supplied fields for a room.
type RoomInput struct {
	Name     string
	Capacity int
	Policy   booking.Policy
	Active   bool
}

// CreateRoomParams bundles the principal and input for CreateRoom.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams bundles the principal, target, and input for UpdateRoom.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// DeleteRoomParams bundles the principal and target for DeleteRoom.
type DeleteRoomParams struct {
	Principal Principal
	RoomID    string
}

// User is the account view returned by the user service, without credentials.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CanApprove  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func userFromRecord(record persistence.User) User {
	return User{
		ID:          record.ID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		IsAdmin:     record.IsAdmin,
		CanApprove:  record.CanApprove,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// UserInput carries the caller supplied fields for a user account.
type UserInput struct {
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
	CanApprove  bool
}

// CreateUserParams bundles the principal and input for CreateUser.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams bundles the principal, target, and input for UpdateUser.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// AuthenticateParams carries login credentials.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult carries the issued session and its user.
type AuthenticateResult struct {
	User    User
	Session persistence.Session
}

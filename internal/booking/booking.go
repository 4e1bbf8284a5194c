package booking

import "time"

// Status identifies where a booking sits in its lifecycle.
type Status string

const (
	// StatusPending marks a freshly created booking awaiting approval. A
	// pending booking already occupies its room slot.
	StatusPending Status = "PENDING"
	// StatusConfirmed marks a booking approved by a user with approval
	// capability.
	StatusConfirmed Status = "CONFIRMED"
	// StatusCancelled marks a booking cancelled before its cutoff. Terminal.
	StatusCancelled Status = "CANCELLED"
	// StatusCompleted marks a confirmed booking whose end time has elapsed.
	// Terminal.
	StatusCompleted Status = "COMPLETED"
)

// Active reports whether a booking in this status still occupies its slot.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Valid reports whether the status is one of the modeled lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Policy captures the per-room booking rules enforced by the conflict
// resolver and the cancellation gate.
type Policy struct {
	MinBookingMinutes         int
	MaxBookingMinutes         int
	MaxAdvanceBookingDays     int
	CancellationCutoffMinutes int
}

// MinDuration returns the policy's minimum booking duration.
func (p Policy) MinDuration() time.Duration {
	return time.Duration(p.MinBookingMinutes) * time.Minute
}

// MaxDuration returns the policy's maximum booking duration.
func (p Policy) MaxDuration() time.Duration {
	return time.Duration(p.MaxBookingMinutes) * time.Minute
}

// AdvanceWindow returns how far into the future a booking may start.
func (p Policy) AdvanceWindow() time.Duration {
	return time.Duration(p.MaxAdvanceBookingDays) * 24 * time.Hour
}

// CancellationCutoff returns the minimum lead time required to cancel.
func (p Policy) CancellationCutoff() time.Duration {
	return time.Duration(p.CancellationCutoffMinutes) * time.Minute
}

// Room is a catalog entry for a bookable meeting room.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Policy    Policy
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking is a reservation of one room for one half-open time window
// [Start, End).
type Booking struct {
	ID           string
	RoomID       string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Status       Status
	Participants []string
	CreatedBy    string
	ApprovedBy   *string
	ApprovedAt   *time.Time

	// RecurrenceID groups the sibling occurrences produced from one
	// recurring request. Nil for one-off bookings.
	RecurrenceID      *string
	RecurrencePattern *string
	RecurrenceEndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Version supports the optimistic check at the persistence boundary.
	// It increments on every status change.
	Version int64
}

// Attendee tracks a user's accept/decline response to a booking invitation.
// Attendance is independent of the booking's own lifecycle.
type Attendee struct {
	ID        string
	BookingID string
	UserID    string
	Accepted  *bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Back-to-back intervals do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Overlaps reports whether the booking's interval intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.Start, b.End, start, end)
}

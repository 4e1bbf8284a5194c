package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account record for application or
// persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CanApprove   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserApprover sets the approval capability on the generated fixture.
func WithUserApprover(canApprove bool) UserOption {
	return func(f *UserFixture) {
		f.CanApprove = canApprove
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		CanApprove:   f.CanApprove,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Application returns the fixture as an application.User view.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		CanApprove:  f.CanApprove,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin, CanApprove: f.CanApprove}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record.
type RoomFixture struct {
	ID        string
	Name      string
	Capacity  int
	Policy    booking.Policy
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
// The default policy allows 30 to 120 minute bookings up to 30 days out with a
// 60 minute cancellation cutoff.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:       id,
		Name:     fmt.Sprintf("Room %03d", idx),
		Capacity: int(4 + idx%4),
		Policy: booking.Policy{
			MinBookingMinutes:         30,
			MaxBookingMinutes:         120,
			MaxAdvanceBookingDays:     30,
			CancellationCutoffMinutes: 60,
		},
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomPolicy replaces the default booking policy.
func WithRoomPolicy(policy booking.Policy) RoomOption {
	return func(f *RoomFixture) {
		f.Policy = policy
	}
}

// WithRoomActive sets the active flag.
func WithRoomActive(active bool) RoomOption {
	return func(f *RoomFixture) {
		f.Active = active
	}
}

// Room returns the fixture as a booking.Room value.
func (f RoomFixture) Room() booking.Room {
	return booking.Room{
		ID:        f.ID,
		Name:      f.Name,
		Capacity:  f.Capacity,
		Policy:    f.Policy,
		Active:    f.Active,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:     f.Name,
		Capacity: f.Capacity,
		Policy:   f.Policy,
		Active:   f.Active,
	}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	ID           string
	RoomID       string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Status       booking.Status
	Participants []string
	CreatedBy    string
	ApprovedBy   *string
	RecurrenceID *string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic pending booking one hour long,
// staggered per call so fixtures never overlap by default.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	id := fmt.Sprintf("booking-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * 2 * time.Hour)
	creator := fmt.Sprintf("user-%03d", idx)
	fixture := BookingFixture{
		ID:        id,
		RoomID:    fmt.Sprintf("room-%03d", idx),
		Title:     fmt.Sprintf("Booking %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    booking.StatusPending,
		CreatedBy: creator,
		Version:   1,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom sets the room ID.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingTitle overrides the title.
func WithBookingTitle(title string) BookingOption {
	return func(f *BookingFixture) {
		f.Title = title
	}
}

// WithBookingWindow sets the start and end times.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingStatus sets the lifecycle status.
func WithBookingStatus(status booking.Status) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingCreator sets the creator ID.
func WithBookingCreator(userID string) BookingOption {
	return func(f *BookingFixture) {
		f.CreatedBy = userID
	}
}

// WithBookingParticipants sets the invited participant IDs.
func WithBookingParticipants(participants ...string) BookingOption {
	return func(f *BookingFixture) {
		f.Participants = append([]string(nil), participants...)
	}
}

// WithBookingApprover sets the approver ID.
func WithBookingApprover(userID string) BookingOption {
	return func(f *BookingFixture) {
		id := userID
		f.ApprovedBy = &id
	}
}

// WithBookingRecurrence attaches the fixture to a recurrence series.
func WithBookingRecurrence(recurrenceID string) BookingOption {
	return func(f *BookingFixture) {
		id := recurrenceID
		f.RecurrenceID = &id
	}
}

// WithBookingVersion sets the optimistic concurrency version.
func WithBookingVersion(version int64) BookingOption {
	return func(f *BookingFixture) {
		f.Version = version
	}
}

// Booking returns the fixture as a booking.Booking value.
func (f BookingFixture) Booking() booking.Booking {
	return booking.Booking{
		ID:           f.ID,
		RoomID:       f.RoomID,
		Title:        f.Title,
		Description:  f.Description,
		Start:        f.Start,
		End:          f.End,
		Status:       f.Status,
		Participants: append([]string(nil), f.Participants...),
		CreatedBy:    f.CreatedBy,
		ApprovedBy:   copyStringPtr(f.ApprovedBy),
		RecurrenceID: copyStringPtr(f.RecurrenceID),
		Version:      f.Version,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.BookingInput.
func (f BookingFixture) Input() application.BookingInput {
	return application.BookingInput{
		RoomID:       f.RoomID,
		Title:        f.Title,
		Description:  f.Description,
		Start:        f.Start,
		End:          f.End,
		Participants: append([]string(nil), f.Participants...),
	}
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    fmt.Sprintf("user-%03d", idx),
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(24 * time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUserID sets the user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		RevokedAt: revoked,
	}
}

// helper to deep copy optional strings.
func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

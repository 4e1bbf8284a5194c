package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/roombooker/internal/availability"
	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
	"github.com/example/roombooker/internal/recurrence"
	"github.com/example/roombooker/internal/scheduler"
)

// BookingService orchestrates validation, conflict resolution, persistence,
// and lifecycle transitions for bookings. All time arithmetic happens in UTC.
type BookingService struct {
	bookings       persistence.BookingRepository
	rooms          persistence.RoomRepository
	attendees      persistence.AttendeeRepository
	index          *availability.Index
	notifier       Notifier
	idGenerator    func() string
	now            func() time.Time
	maxOccurrences int
	logger         *slog.Logger
}

// BookingServiceConfig bundles the dependencies for NewBookingService.
type BookingServiceConfig struct {
	Bookings       persistence.BookingRepository
	Rooms          persistence.RoomRepository
	Attendees      persistence.AttendeeRepository
	Index          *availability.Index
	Notifier       Notifier
	IDGenerator    func() string
	Now            func() time.Time
	MaxOccurrences int
	Logger         *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	idGenerator := cfg.IDGenerator
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	index := cfg.Index
	if index == nil {
		index = availability.NewIndex()
	}
	var notifier Notifier = cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	maxOccurrences := cfg.MaxOccurrences
	if maxOccurrences <= 0 {
		maxOccurrences = recurrence.DefaultOccurrenceCap
	}
	return &BookingService{
		bookings:       cfg.Bookings,
		rooms:          cfg.Rooms,
		attendees:      cfg.Attendees,
		index:          index,
		notifier:       notifier,
		idGenerator:    idGenerator,
		now:            now,
		maxOccurrences: maxOccurrences,
		logger:         defaultLogger(cfg.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// LoadIndex seeds the availability index from the active rows in storage.
// Called once at startup before the service accepts requests.
func (s *BookingService) LoadIndex(ctx context.Context) error {
	if s == nil || s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	active, err := s.bookings.ListBookings(ctx, persistence.BookingFilter{
		Statuses: []booking.Status{booking.StatusPending, booking.StatusConfirmed},
	})
	if err != nil {
		return mapBookingRepoError(err)
	}

	for _, b := range active {
		s.index.Insert(b.RoomID, availability.Entry{BookingID: b.ID, Start: b.Start, End: b.End})
	}

	s.loggerWith(ctx, "LoadIndex").InfoContext(ctx, "availability index loaded", "entries", len(active))
	return nil
}

// CreateBooking validates a request, expands its recurrence, reserves every
// occurrence atomically, and persists the result. A recurring request either
// books every occurrence or leaves no trace.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (created []booking.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"room_id", params.Input.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrences", len(created)).InfoContext(ctx, "booking created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateBookingInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room booking.Room
	room, err = s.loadActiveRoom(ctx, params.Input.RoomID)
	if err != nil {
		return
	}

	now := s.now().UTC()
	start := params.Input.Start.UTC()
	end := params.Input.End.UTC()

	var occurrences []recurrence.Occurrence
	var recurrenceID *string
	var recurrencePattern *string
	var recurrenceEnd *time.Time
	if params.Input.Recurrence != nil {
		var pattern recurrence.Pattern
		pattern, err = recurrence.ParsePattern(params.Input.Recurrence.Pattern)
		if err != nil {
			return
		}
		until := params.Input.Recurrence.Until.UTC()

		var seq *recurrence.Sequence
		seq, err = recurrence.New(pattern, start, end, until, s.maxOccurrences)
		if err != nil {
			return
		}
		occurrences, err = seq.Expand()
		if err != nil {
			return
		}

		id := s.idGenerator()
		patternValue := string(pattern)
		recurrenceID = &id
		recurrencePattern = &patternValue
		recurrenceEnd = &until
	} else {
		occurrences = []recurrence.Occurrence{{Start: start, End: end}}
	}

	for _, occ := range occurrences {
		if err = scheduler.CheckInterval(room.Policy, occ.Start, occ.End, now); err != nil {
			return
		}
	}

	entries := make([]availability.Entry, len(occurrences))
	rows := make([]booking.Booking, len(occurrences))
	for i, occ := range occurrences {
		id := s.idGenerator()
		entries[i] = availability.Entry{BookingID: id, Start: occ.Start, End: occ.End}
		rows[i] = booking.Booking{
			ID:                id,
			RoomID:            room.ID,
			Title:             strings.TrimSpace(params.Input.Title),
			Description:       strings.TrimSpace(params.Input.Description),
			Start:             occ.Start,
			End:               occ.End,
			Status:            booking.StatusPending,
			Participants:      params.Input.Participants,
			CreatedBy:         params.Principal.UserID,
			RecurrenceID:      recurrenceID,
			RecurrencePattern: recurrencePattern,
			RecurrenceEndDate: recurrenceEnd,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}

	// Reserve holds the room lock across the conflict check and the insert,
	// so two concurrent requests for the same slot cannot both pass.
	if err = s.index.Reserve(room.ID, entries, ""); err != nil {
		return
	}

	if err = s.bookings.CreateSeries(ctx, rows); err != nil {
		for _, entry := range entries {
			s.index.Remove(room.ID, entry.BookingID)
		}
		err = mapBookingRepoError(err)
		return
	}

	for _, row := range rows {
		s.notifier.Notify(ctx, Event{
			Type:       EventBookingCreated,
			BookingID:  row.ID,
			RoomID:     row.RoomID,
			Status:     row.Status,
			OccurredAt: now,
		})
	}

	created = rows
	return
}

// UpdateBooking revalidates and moves an existing booking to a new interval,
// and optionally a new room. The booking's own slot never conflicts with
// itself.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (updated booking.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking updated")
	}()

	var current booking.Booking
	current, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if !s.canModify(params.Principal, current) {
		err = ErrUnauthorized
		return
	}
	if current.Status.Terminal() {
		err = booking.ErrTerminalStateViolation
		return
	}

	if strings.TrimSpace(params.Input.Title) == "" {
		vErr := &ValidationError{}
		vErr.add("title", "title is required")
		err = vErr
		return
	}

	targetRoomID := params.Input.RoomID
	if targetRoomID == "" {
		targetRoomID = current.RoomID
	}

	var room booking.Room
	room, err = s.loadActiveRoom(ctx, targetRoomID)
	if err != nil {
		return
	}

	now := s.now().UTC()
	start := params.Input.Start.UTC()
	end := params.Input.End.UTC()
	if err = scheduler.CheckInterval(room.Policy, start, end, now); err != nil {
		return
	}

	moved := targetRoomID != current.RoomID
	if moved {
		err = s.index.Move(current.RoomID, targetRoomID, current.ID, start, end)
	} else {
		err = s.index.Replace(current.RoomID, current.ID, start, end)
	}
	if err != nil {
		return
	}

	next := current
	next.RoomID = targetRoomID
	next.Title = strings.TrimSpace(params.Input.Title)
	next.Description = strings.TrimSpace(params.Input.Description)
	next.Start = start
	next.End = end
	next.Participants = params.Input.Participants
	next.UpdatedAt = now

	if err = s.bookings.UpdateBooking(ctx, next); err != nil {
		// Restore the previous slot so the index stays consistent with
		// storage. The restore can itself conflict when another booking
		// took the freed slot during the swap; that divergence must not
		// pass silently.
		var restoreErr error
		if moved {
			restoreErr = s.index.Move(targetRoomID, current.RoomID, current.ID, current.Start, current.End)
		} else {
			restoreErr = s.index.Replace(current.RoomID, current.ID, current.Start, current.End)
		}
		if restoreErr != nil {
			logger.WarnContext(ctx, "index restore failed after persist failure; index and storage diverge",
				"restore_error", restoreErr,
				"room_id", current.RoomID,
			)
		}
		err = mapBookingRepoError(err)
		return
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventBookingUpdated,
		BookingID:  next.ID,
		RoomID:     next.RoomID,
		Status:     next.Status,
		OccurredAt: now,
	})

	updated = next
	return
}

// Approve confirms a pending booking. The caller needs approval capability.
func (s *BookingService) Approve(ctx context.Context, params ApproveBookingParams) (approved booking.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Approve",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking approved")
	}()

	if !params.Principal.CanApprove && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var current booking.Booking
	current, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	now := s.now().UTC()
	var next booking.Booking
	next, err = booking.Approve(current, params.Principal.UserID, now)
	if err != nil {
		return
	}
	if next.Version == current.Version {
		// Already confirmed; nothing to persist.
		approved = next
		return
	}

	if err = s.bookings.UpdateBookingStatus(ctx, next, current.Version); err != nil {
		err = mapBookingRepoError(err)
		return
	}

	s.notifier.Notify(ctx, Event{
		Type:       EventBookingApproved,
		BookingID:  next.ID,
		RoomID:     next.RoomID,
		Status:     next.Status,
		OccurredAt: now,
	})

	approved = next
	return
}

// Cancel cancels a booking, or with the series scope every remaining active
// occurrence of its series. The room's cancellation cutoff is checked against
// the addressed occurrence; sibling occurrences whose window already closed
// are left in place.
func (s *BookingService) Cancel(ctx context.Context, params CancelBookingParams) (cancelled []booking.Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
		"scope", string(params.Scope),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("cancelled", len(cancelled)).InfoContext(ctx, "booking cancelled")
	}()

	var current booking.Booking
	current, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if !s.canModify(params.Principal, current) {
		err = ErrUnauthorized
		return
	}

	var room booking.Room
	room, err = s.rooms.GetRoom(ctx, current.RoomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	now := s.now().UTC()

	var target booking.Booking
	target, err = s.cancelOne(ctx, current, room.Policy, now)
	if err != nil {
		return
	}
	cancelled = append(cancelled, target)

	if params.Scope == CancelSeries && current.RecurrenceID != nil {
		var siblings []booking.Booking
		siblings, err = s.bookings.ListBookings(ctx, persistence.BookingFilter{
			RecurrenceID: *current.RecurrenceID,
			Statuses:     []booking.Status{booking.StatusPending, booking.StatusConfirmed},
		})
		if err != nil {
			err = mapBookingRepoError(err)
			return
		}

		skipped := 0
		for _, sibling := range siblings {
			if sibling.ID == current.ID {
				continue
			}
			done, cancelErr := s.cancelOne(ctx, sibling, room.Policy, now)
			if cancelErr != nil {
				// A sibling inside its cutoff, or one that lost a
				// concurrent transition, stays as it is.
				skipped++
				continue
			}
			cancelled = append(cancelled, done)
		}
		if skipped > 0 {
			logger.WarnContext(ctx, "series cancellation skipped occurrences", "skipped", skipped)
		}
	}

	return
}

func (s *BookingService) cancelOne(ctx context.Context, current booking.Booking, policy booking.Policy, now time.Time) (booking.Booking, error) {
	next, err := booking.Cancel(current, policy, now)
	if err != nil {
		return booking.Booking{}, err
	}
	if next.Version == current.Version {
		return next, nil
	}

	if err := s.bookings.UpdateBookingStatus(ctx, next, current.Version); err != nil {
		return booking.Booking{}, mapBookingRepoError(err)
	}
	s.index.Remove(current.RoomID, current.ID)

	s.notifier.Notify(ctx, Event{
		Type:       EventBookingCancelled,
		BookingID:  next.ID,
		RoomID:     next.RoomID,
		Status:     next.Status,
		OccurredAt: now,
	})
	return next, nil
}

// SweepCompletions moves confirmed bookings whose end time has elapsed to
// COMPLETED and frees their slots. A booking cancelled concurrently loses its
// expected version and is skipped; the cancellation stands.
func (s *BookingService) SweepCompletions(ctx context.Context) (completed int, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	now := s.now().UTC()
	logger := s.loggerWith(ctx, "SweepCompletions")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "completion sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if completed > 0 {
			logger.With("completed", completed).InfoContext(ctx, "completion sweep finished")
		}
	}()

	var candidates []booking.Booking
	candidates, err = s.bookings.ListBookings(ctx, persistence.BookingFilter{
		Statuses:   []booking.Status{booking.StatusConfirmed},
		EndsBefore: &now,
	})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	for _, candidate := range candidates {
		if now.Before(candidate.End) {
			continue
		}

		next, completeErr := booking.Complete(candidate, now)
		if completeErr != nil {
			continue
		}

		if updateErr := s.bookings.UpdateBookingStatus(ctx, next, candidate.Version); updateErr != nil {
			if errors.Is(updateErr, persistence.ErrVersionMismatch) || errors.Is(updateErr, persistence.ErrNotFound) {
				continue
			}
			err = mapBookingRepoError(updateErr)
			return
		}
		s.index.Remove(candidate.RoomID, candidate.ID)

		s.notifier.Notify(ctx, Event{
			Type:       EventBookingCompleted,
			BookingID:  next.ID,
			RoomID:     next.RoomID,
			Status:     next.Status,
			OccurredAt: now,
		})
		completed++
	}

	return
}

// GetBooking returns a single booking by id.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, id string) (booking.Booking, error) {
	if s == nil {
		return booking.Booking{}, fmt.Errorf("BookingService is nil")
	}
	if principal.UserID == "" {
		return booking.Booking{}, ErrUnauthorized
	}

	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return booking.Booking{}, mapBookingRepoError(err)
	}
	return b, nil
}

// ListBookings lists bookings matching the given filters.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) ([]booking.Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthorized
	}

	filter := persistence.BookingFilter{
		RoomID:      params.RoomID,
		Statuses:    params.Statuses,
		StartsAfter: params.From,
		EndsBefore:  params.To,
	}
	if params.Mine {
		filter.CreatedBy = params.Principal.UserID
	}

	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return bookings, nil
}

// RespondAttendance records an accept or decline for a booking invitation.
// Attendance responses never change the booking's lifecycle state.
func (s *BookingService) RespondAttendance(ctx context.Context, params RespondAttendanceParams) (attendee booking.Attendee, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.attendees == nil {
		err = fmt.Errorf("attendee repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RespondAttendance",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record attendance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "attendance recorded")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	var b booking.Booking
	b, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !b.Status.Active() {
		err = booking.ErrTerminalStateViolation
		return
	}

	var existing []booking.Attendee
	existing, err = s.attendees.ListAttendeesForBooking(ctx, b.ID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	now := s.now().UTC()
	accepted := params.Accepted
	for _, candidate := range existing {
		if candidate.UserID != params.Principal.UserID {
			continue
		}
		candidate.Accepted = &accepted
		candidate.UpdatedAt = now
		if err = s.attendees.UpdateAttendee(ctx, candidate); err != nil {
			err = mapBookingRepoError(err)
			return
		}
		attendee = candidate
		return
	}

	invited := false
	for _, participant := range b.Participants {
		if participant == params.Principal.UserID {
			invited = true
			break
		}
	}
	if !invited {
		err = ErrUnauthorized
		return
	}

	attendee = booking.Attendee{
		ID:        s.idGenerator(),
		BookingID: b.ID,
		UserID:    params.Principal.UserID,
		Accepted:  &accepted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.attendees.CreateAttendee(ctx, attendee); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	return
}

func (s *BookingService) canModify(principal Principal, b booking.Booking) bool {
	if principal.UserID == "" {
		return false
	}
	return principal.IsAdmin || principal.UserID == b.CreatedBy
}

func (s *BookingService) loadActiveRoom(ctx context.Context, roomID string) (booking.Room, error) {
	if s.rooms == nil {
		return booking.Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return booking.Room{}, mapBookingRepoError(err)
	}
	if !room.Active {
		return booking.Room{}, ErrNotFound
	}
	return room, nil
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.RoomID) == "" {
		vErr.add("roomId", "room is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		vErr.add("interval", "start and end are required")
	}
	if input.Recurrence != nil && input.Recurrence.Until.IsZero() {
		vErr.add("recurrence.until", "series end date is required")
	}
	return vErr
}

func mapBookingRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation), errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("booking", "booking references a missing or invalid resource")
		return vErr
	default:
		return err
	}
}

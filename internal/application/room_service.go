package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

// RoomService orchestrates validation, authorization, and persistence for the
// room catalog. Mutations are admin only.
type RoomService struct {
	rooms       persistence.RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms persistence.RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room booking.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	room = booking.Room{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Input.Name),
		Capacity:  params.Input.Capacity,
		Policy:    params.Input.Policy,
		Active:    params.Input.Active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.rooms.CreateRoom(ctx, room); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	return
}

// UpdateRoom validates input and updates an existing room for administrators.
// Policy changes apply to future requests only; existing bookings keep the
// terms they were made under.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room booking.Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var current booking.Room
	current, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	current.Name = strings.TrimSpace(params.Input.Name)
	current.Capacity = params.Input.Capacity
	current.Policy = params.Input.Policy
	current.Active = params.Input.Active
	current.UpdatedAt = s.now().UTC()

	if err = s.rooms.UpdateRoom(ctx, current); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	room = current
	return
}

// DeleteRoom removes a room from the catalog for administrators. Rooms with
// booking history cannot be deleted; deactivate them instead.
func (s *RoomService) DeleteRoom(ctx context.Context, params DeleteRoomParams) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	if err = s.rooms.DeleteRoom(ctx, params.RoomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	return
}

// GetRoom returns a single room by id.
func (s *RoomService) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if s == nil {
		return booking.Room{}, fmt.Errorf("RoomService is nil")
	}

	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return booking.Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// ListRooms returns the room catalog.
func (s *RoomService) ListRooms(ctx context.Context) ([]booking.Room, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, mapRoomRepoError(err)
	}
	return rooms, nil
}

// GetPolicy returns the booking policy of an active room. Inactive rooms do
// not accept bookings, so their policies are not exposed.
func (s *RoomService) GetPolicy(ctx context.Context, roomID string) (booking.Policy, error) {
	if s == nil {
		return booking.Policy{}, fmt.Errorf("RoomService is nil")
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return booking.Policy{}, mapRoomRepoError(err)
	}
	if !room.Active {
		return booking.Policy{}, ErrNotFound
	}
	return room.Policy, nil
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.Policy.MinBookingMinutes <= 0 {
		vErr.add("policy.minBookingMinutes", "minimum duration must be positive")
	}
	if input.Policy.MaxBookingMinutes < input.Policy.MinBookingMinutes {
		vErr.add("policy.maxBookingMinutes", "maximum duration must not be below the minimum")
	}
	if input.Policy.MaxAdvanceBookingDays <= 0 {
		vErr.add("policy.maxAdvanceBookingDays", "advance window must be positive")
	}
	if input.Policy.CancellationCutoffMinutes < 0 {
		vErr.add("policy.cancellationCutoffMinutes", "cancellation cutoff must not be negative")
	}
	return vErr
}

func mapRoomRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("room", "room is referenced by existing bookings")
		return vErr
	default:
		return err
	}
}

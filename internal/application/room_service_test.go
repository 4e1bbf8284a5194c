package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
)

func validRoomInput() RoomInput {
	return RoomInput{
		Name:     "Atlas",
		Capacity: 8,
		Policy: booking.Policy{
			MinBookingMinutes:         30,
			MaxBookingMinutes:         120,
			MaxAdvanceBookingDays:     30,
			CancellationCutoffMinutes: 60,
		},
		Active: true,
	}
}

func newRoomService(rooms *roomRepoStub) *RoomService {
	return NewRoomService(rooms, sequentialIDs("room"), func() time.Time { return fixedNow })
}

func TestRoomService_CreateRoom(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	t.Run("persists a valid room", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: make(map[string]booking.Room)}
		service := newRoomService(rooms)

		room, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin, Input: validRoomInput()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if room.ID == "" {
			t.Fatal("expected an assigned id")
		}
		if _, ok := rooms.rooms[room.ID]; !ok {
			t.Fatal("room not persisted")
		}
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: make(map[string]booking.Room)}
		service := newRoomService(rooms)

		_, err := service.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{UserID: "alice"},
			Input:     validRoomInput(),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects an inverted policy", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: make(map[string]booking.Room)}
		service := newRoomService(rooms)

		input := validRoomInput()
		input.Policy.MaxBookingMinutes = 15
		_, err := service.CreateRoom(context.Background(), CreateRoomParams{Principal: admin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["policy.maxBookingMinutes"]; !ok {
			t.Fatalf("expected policy field error, got %v", vErr.FieldErrors)
		}
	})
}

func TestRoomService_UpdateRoom(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	t.Run("updates fields and policy", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: map[string]booking.Room{"atlas": testRoom("atlas")}}
		service := newRoomService(rooms)

		input := validRoomInput()
		input.Name = "Atlas Prime"
		input.Policy.MaxBookingMinutes = 240
		room, err := service.UpdateRoom(context.Background(), UpdateRoomParams{Principal: admin, RoomID: "atlas", Input: input})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if room.Name != "Atlas Prime" || room.Policy.MaxBookingMinutes != 240 {
			t.Fatalf("update not applied: %+v", room)
		}
	})

	t.Run("missing room fails with not found", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: make(map[string]booking.Room)}
		service := newRoomService(rooms)

		_, err := service.UpdateRoom(context.Background(), UpdateRoomParams{Principal: admin, RoomID: "ghost", Input: validRoomInput()})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRoomService_DeleteRoom(t *testing.T) {
	admin := Principal{UserID: "root", IsAdmin: true}

	t.Run("removes the room", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: map[string]booking.Room{"atlas": testRoom("atlas")}}
		service := newRoomService(rooms)

		if err := service.DeleteRoom(context.Background(), DeleteRoomParams{Principal: admin, RoomID: "atlas"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := rooms.rooms["atlas"]; ok {
			t.Fatal("room still present")
		}
	})

	t.Run("rejects non-admin callers", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: map[string]booking.Room{"atlas": testRoom("atlas")}}
		service := newRoomService(rooms)

		err := service.DeleteRoom(context.Background(), DeleteRoomParams{
			Principal: Principal{UserID: "alice"},
			RoomID:    "atlas",
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestRoomService_GetPolicy(t *testing.T) {
	t.Run("returns the policy of an active room", func(t *testing.T) {
		rooms := &roomRepoStub{rooms: map[string]booking.Room{"atlas": testRoom("atlas")}}
		service := newRoomService(rooms)

		policy, err := service.GetPolicy(context.Background(), "atlas")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if policy.MinBookingMinutes != 30 {
			t.Fatalf("unexpected policy: %+v", policy)
		}
	})

	t.Run("inactive room fails with not found", func(t *testing.T) {
		room := testRoom("atlas")
		room.Active = false
		rooms := &roomRepoStub{rooms: map[string]booking.Room{"atlas": room}}
		service := newRoomService(rooms)

		_, err := service.GetPolicy(context.Background(), "atlas")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMapRoomRepoError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "not found", err: persistence.ErrNotFound, want: ErrNotFound},
		{name: "duplicate", err: persistence.ErrDuplicate, want: ErrAlreadyExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapRoomRepoError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	t.Run("foreign key becomes a validation error", func(t *testing.T) {
		got := mapRoomRepoError(persistence.ErrForeignKeyViolation)
		var vErr *ValidationError
		if !errors.As(got, &vErr) {
			t.Fatalf("expected ValidationError, got %v", got)
		}
	})
}

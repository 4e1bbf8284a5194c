package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/booking"
)

type roomServiceStub struct {
	room       booking.Room
	rooms      []booking.Room
	policy     booking.Policy
	err        error
	lastCreate application.CreateRoomParams
	deletedID  string
}

func (s *roomServiceStub) CreateRoom(ctx context.Context, params application.CreateRoomParams) (booking.Room, error) {
	s.lastCreate = params
	if s.err != nil {
		return booking.Room{}, s.err
	}
	return s.room, nil
}

func (s *roomServiceStub) UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (booking.Room, error) {
	if s.err != nil {
		return booking.Room{}, s.err
	}
	return s.room, nil
}

func (s *roomServiceStub) DeleteRoom(ctx context.Context, params application.DeleteRoomParams) error {
	s.deletedID = params.RoomID
	return s.err
}

func (s *roomServiceStub) GetRoom(ctx context.Context, id string) (booking.Room, error) {
	if s.err != nil {
		return booking.Room{}, s.err
	}
	return s.room, nil
}

func (s *roomServiceStub) ListRooms(ctx context.Context) ([]booking.Room, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rooms, nil
}

func (s *roomServiceStub) GetPolicy(ctx context.Context, roomID string) (booking.Policy, error) {
	if s.err != nil {
		return booking.Policy{}, s.err
	}
	return s.policy, nil
}

func newRoomRouter(service roomService) http.Handler {
	return NewRouter(RouterConfig{Rooms: NewRoomHandler(service, nil)})
}

func testRoomRecord() booking.Room {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return booking.Room{
		ID:       "atlas",
		Name:     "Atlas",
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
	}
}

func TestRoomHandler_Create(t *testing.T) {
	t.Run("returns 201 with the created room", func(t *testing.T) {
		stub := &roomServiceStub{room: testRoomRecord()}
		router := newRoomRouter(stub)

		body := `{"name":"Atlas","capacity":8,"policy":{"min_booking_minutes":30,"max_booking_minutes":120,"max_advance_booking_days":30,"cancellation_cutoff_minutes":60},"active":true}`
		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(body))
		req = authed(req, application.Principal{UserID: "root", IsAdmin: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.lastCreate.Input.Policy.MaxBookingMinutes != 120 {
			t.Fatalf("policy not forwarded: %+v", stub.lastCreate.Input.Policy)
		}
		var resp roomDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.ID != "atlas" || !resp.Active {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("maps authorization failures to 403", func(t *testing.T) {
		stub := &roomServiceStub{err: application.ErrUnauthorized}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"name":"Atlas","capacity":8}`))
		req = authed(req, application.Principal{UserID: "alice"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("maps validation failures to 422", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"capacity": "capacity must be positive"}}
		stub := &roomServiceStub{err: vErr}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/rooms", strings.NewReader(`{"name":"Atlas","capacity":0}`))
		req = authed(req, application.Principal{UserID: "root", IsAdmin: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestRoomHandler_Delete(t *testing.T) {
	t.Run("returns 204 and forwards the id", func(t *testing.T) {
		stub := &roomServiceStub{}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodDelete, "/rooms/atlas", nil)
		req = authed(req, application.Principal{UserID: "root", IsAdmin: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if stub.deletedID != "atlas" {
			t.Fatalf("room id not forwarded: %q", stub.deletedID)
		}
	})

	t.Run("maps referenced rooms to 422", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"room": "room is referenced by existing bookings"}}
		stub := &roomServiceStub{err: vErr}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodDelete, "/rooms/atlas", nil)
		req = authed(req, application.Principal{UserID: "root", IsAdmin: true})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestRoomHandler_Policy(t *testing.T) {
	t.Run("serves the room policy", func(t *testing.T) {
		stub := &roomServiceStub{policy: testRoomRecord().Policy}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/rooms/atlas/policy", nil)
		req = authed(req, application.Principal{UserID: "alice"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp policyDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.CancellationCutoffMinutes != 60 {
			t.Fatalf("unexpected policy: %+v", resp)
		}
	})

	t.Run("maps inactive rooms to 404", func(t *testing.T) {
		stub := &roomServiceStub{err: application.ErrNotFound}
		router := newRoomRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/rooms/ghost/policy", nil)
		req = authed(req, application.Principal{UserID: "alice"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestRoomHandler_List(t *testing.T) {
	stub := &roomServiceStub{rooms: []booking.Room{testRoomRecord()}}
	router := newRoomRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	req = authed(req, application.Principal{UserID: "alice"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp listRoomsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Rooms) != 1 || resp.Rooms[0].Name != "Atlas" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

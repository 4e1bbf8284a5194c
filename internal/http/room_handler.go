package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/booking"
)

type roomService interface {
	CreateRoom(ctx context.Context, params application.CreateRoomParams) (booking.Room, error)
	UpdateRoom(ctx context.Context, params application.UpdateRoomParams) (booking.Room, error)
	DeleteRoom(ctx context.Context, params application.DeleteRoomParams) error
	GetRoom(ctx context.Context, id string) (booking.Room, error)
	ListRooms(ctx context.Context) ([]booking.Room, error)
	GetPolicy(ctx context.Context, roomID string) (booking.Policy, error)
}

type RoomHandler struct {
	service   roomService
	responder responder
}

func NewRoomHandler(service roomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{service: service, responder: newResponder(logger)}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	room, err := h.service.CreateRoom(r.Context(), application.CreateRoomParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRoomDTO(room))
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	room, err := h.service.UpdateRoom(r.Context(), application.UpdateRoomParams{
		Principal: principal,
		RoomID:    roomID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteRoom(r.Context(), application.DeleteRoomParams{
		Principal: principal,
		RoomID:    roomID,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	room, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTO(room))
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rooms, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]roomDTO, len(rooms))
	for i, room := range rooms {
		dtos[i] = toRoomDTO(room)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: dtos})
}

// Policy serves the booking policy of an active room, for clients that
// validate before submitting.
func (h *RoomHandler) Policy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	policy, err := h.service.GetPolicy(r.Context(), roomID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPolicyDTO(policy))
}

type policyDTO struct {
	MinBookingMinutes         int `json:"min_booking_minutes"`
	MaxBookingMinutes         int `json:"max_booking_minutes"`
	MaxAdvanceBookingDays     int `json:"max_advance_booking_days"`
	CancellationCutoffMinutes int `json:"cancellation_cutoff_minutes"`
}

type roomRequest struct {
	Name     string    `json:"name"`
	Capacity int       `json:"capacity"`
	Policy   policyDTO `json:"policy"`
	Active   bool      `json:"active"`
}

func (req roomRequest) toInput() application.RoomInput {
	return application.RoomInput{
		Name:     req.Name,
		Capacity: req.Capacity,
		Policy: booking.Policy{
			MinBookingMinutes:         req.Policy.MinBookingMinutes,
			MaxBookingMinutes:         req.Policy.MaxBookingMinutes,
			MaxAdvanceBookingDays:     req.Policy.MaxAdvanceBookingDays,
			CancellationCutoffMinutes: req.Policy.CancellationCutoffMinutes,
		},
		Active: req.Active,
	}
}

type roomDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	Policy    policyDTO `json:"policy"`
	Active    bool      `json:"active"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

func toPolicyDTO(policy booking.Policy) policyDTO {
	return policyDTO{
		MinBookingMinutes:         policy.MinBookingMinutes,
		MaxBookingMinutes:         policy.MaxBookingMinutes,
		MaxAdvanceBookingDays:     policy.MaxAdvanceBookingDays,
		CancellationCutoffMinutes: policy.CancellationCutoffMinutes,
	}
}

func toRoomDTO(room booking.Room) roomDTO {
	return roomDTO{
		ID:        room.ID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		Policy:    toPolicyDTO(room.Policy),
		Active:    room.Active,
		CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: room.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

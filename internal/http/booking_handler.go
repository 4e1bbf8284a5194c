package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/booking"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) ([]booking.Booking, error)
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) (booking.Booking, error)
	Approve(ctx context.Context, params application.ApproveBookingParams) (booking.Booking, error)
	Cancel(ctx context.Context, params application.CancelBookingParams) ([]booking.Booking, error)
	GetBooking(ctx context.Context, principal application.Principal, id string) (booking.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]booking.Booking, error)
	RespondAttendance(ctx context.Context, params application.RespondAttendanceParams) (booking.Attendee, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{service: service, responder: newResponder(logger)}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	created, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, listBookingsResponse{
		Bookings: toBookingDTOs(created),
	})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	b, err := h.service.GetBooking(r.Context(), principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(b))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, err := buildListParams(r.URL.Query(), principal)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	bookings, err := h.service.ListBookings(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{
		Bookings: toBookingDTOs(bookings),
	})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toUpdateInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	updated, err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Input:     input,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(updated))
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	approved, err := h.service.Approve(r.Context(), application.ApproveBookingParams{
		Principal: principal,
		BookingID: bookingID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(approved))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	scope := application.CancelInstance
	if value := strings.TrimSpace(r.URL.Query().Get("scope")); value != "" {
		switch application.CancelScope(value) {
		case application.CancelInstance, application.CancelSeries:
			scope = application.CancelScope(value)
		default:
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCancelScope)
			return
		}
	}

	principal, _ := PrincipalFromContext(r.Context())

	cancelled, err := h.service.Cancel(r.Context(), application.CancelBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Scope:     scope,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{
		Bookings: toBookingDTOs(cancelled),
	})
}

func (h *BookingHandler) RespondAttendance(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	attendee, err := h.service.RespondAttendance(r.Context(), application.RespondAttendanceParams{
		Principal: principal,
		BookingID: bookingID,
		Accepted:  req.Accepted,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendeeDTO(attendee))
}

var (
	errInvalidCancelScope  = errors.New(`scope must be "instance" or "series"`)
	errInvalidStatusFilter = errors.New("status must be a known booking status")
)

type recurrenceRequest struct {
	Pattern string `json:"pattern"`
	Until   string `json:"until"`
}

type bookingRequest struct {
	RoomID       string             `json:"room_id"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Start        string             `json:"start"`
	End          string             `json:"end"`
	Participants []string           `json:"participants"`
	Recurrence   *recurrenceRequest `json:"recurrence,omitempty"`
}

func (req bookingRequest) toInput() (application.BookingInput, error) {
	start, err := parseTimestamp("start", req.Start)
	if err != nil {
		return application.BookingInput{}, err
	}
	end, err := parseTimestamp("end", req.End)
	if err != nil {
		return application.BookingInput{}, err
	}

	input := application.BookingInput{
		RoomID:       strings.TrimSpace(req.RoomID),
		Title:        req.Title,
		Description:  req.Description,
		Start:        start,
		End:          end,
		Participants: req.Participants,
	}
	if req.Recurrence != nil {
		until, err := parseTimestamp("recurrence.until", req.Recurrence.Until)
		if err != nil {
			return application.BookingInput{}, err
		}
		input.Recurrence = &application.RecurrenceInput{
			Pattern: req.Recurrence.Pattern,
			Until:   until,
		}
	}
	return input, nil
}

func (req bookingRequest) toUpdateInput() (application.UpdateBookingInput, error) {
	start, err := parseTimestamp("start", req.Start)
	if err != nil {
		return application.UpdateBookingInput{}, err
	}
	end, err := parseTimestamp("end", req.End)
	if err != nil {
		return application.UpdateBookingInput{}, err
	}

	return application.UpdateBookingInput{
		RoomID:       strings.TrimSpace(req.RoomID),
		Title:        req.Title,
		Description:  req.Description,
		Start:        start,
		End:          end,
		Participants: req.Participants,
	}, nil
}

type attendanceRequest struct {
	Accepted bool `json:"accepted"`
}

type bookingDTO struct {
	ID                string   `json:"id"`
	RoomID            string   `json:"room_id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	Status            string   `json:"status"`
	Participants      []string `json:"participants,omitempty"`
	CreatedBy         string   `json:"created_by"`
	ApprovedBy        *string  `json:"approved_by,omitempty"`
	RecurrenceID      *string  `json:"recurrence_id,omitempty"`
	RecurrencePattern *string  `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate *string  `json:"recurrence_end_date,omitempty"`
	Version           int64    `json:"version"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type attendeeDTO struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Accepted  *bool  `json:"accepted"`
}

func toBookingDTO(b booking.Booking) bookingDTO {
	dto := bookingDTO{
		ID:                b.ID,
		RoomID:            b.RoomID,
		Title:             b.Title,
		Description:       b.Description,
		Start:             b.Start.UTC().Format(time.RFC3339Nano),
		End:               b.End.UTC().Format(time.RFC3339Nano),
		Status:            string(b.Status),
		Participants:      b.Participants,
		CreatedBy:         b.CreatedBy,
		ApprovedBy:        b.ApprovedBy,
		RecurrenceID:      b.RecurrenceID,
		RecurrencePattern: b.RecurrencePattern,
		Version:           b.Version,
	}
	if b.RecurrenceEndDate != nil {
		value := b.RecurrenceEndDate.UTC().Format(time.RFC3339Nano)
		dto.RecurrenceEndDate = &value
	}
	return dto
}

func toBookingDTOs(bookings []booking.Booking) []bookingDTO {
	out := make([]bookingDTO, len(bookings))
	for i, b := range bookings {
		out[i] = toBookingDTO(b)
	}
	return out
}

func toAttendeeDTO(attendee booking.Attendee) attendeeDTO {
	return attendeeDTO{
		ID:        attendee.ID,
		BookingID: attendee.BookingID,
		UserID:    attendee.UserID,
		Accepted:  attendee.Accepted,
	}
}

func buildListParams(values url.Values, principal application.Principal) (application.ListBookingsParams, error) {
	params := application.ListBookingsParams{
		Principal: principal,
		RoomID:    strings.TrimSpace(values.Get("room_id")),
		Mine:      values.Get("mine") == "true",
	}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := parseTimestamp("from", raw)
		if err != nil {
			return application.ListBookingsParams{}, err
		}
		params.From = &from
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		to, err := parseTimestamp("to", raw)
		if err != nil {
			return application.ListBookingsParams{}, err
		}
		params.To = &to
	}
	for _, raw := range values["status"] {
		status := booking.Status(strings.ToUpper(strings.TrimSpace(raw)))
		if !status.Valid() {
			return application.ListBookingsParams{}, errInvalidStatusFilter
		}
		params.Statuses = append(params.Statuses, status)
	}

	return params, nil
}

type timestampError struct {
	field string
}

func (e *timestampError) Error() string {
	return e.field + " must be an RFC 3339 timestamp"
}

func parseTimestamp(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, &timestampError{field: field}
	}
	return ts.UTC(), nil
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/availability"
	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
	"github.com/example/roombooker/internal/recurrence"
	"github.com/example/roombooker/internal/scheduler"
)

var (
	errBadRequestBody      = errors.New("invalid request body")
	errInvalidBookingID    = errors.New("invalid booking id")
	errInvalidRoomID       = errors.New("invalid room id")
	errInvalidUserID       = errors.New("invalid user id")
	errMissingSessionToken = errors.New("a session token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application errors into HTTP status codes.
// Conflicts and lost lifecycle races map to 409, policy and validation
// failures to 422.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var cErr *availability.ConflictError
	if errors.As(err, &cErr) {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:   "BOOKING_CONFLICT",
			Message:     "the requested slot overlaps an existing booking",
			ConflictIDs: cErr.BookingIDs,
		})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: "the request failed validation",
			Errors:  vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not allowed to perform this operation",
		})
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID",
			Message:   "authentication is required",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the resource already exists"})
	case errors.Is(err, booking.ErrCancellationWindowClosed):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CANCELLATION_WINDOW_CLOSED",
			Message:   "the cancellation window for this booking has closed",
		})
	case errors.Is(err, booking.ErrTerminalStateViolation),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, persistence.ErrVersionMismatch):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "LIFECYCLE_CONFLICT",
			Message:   "the booking state does not allow this transition",
		})
	case errors.Is(err, scheduler.ErrInvalidInterval),
		errors.Is(err, scheduler.ErrDurationOutOfPolicy),
		errors.Is(err, scheduler.ErrPastBooking),
		errors.Is(err, scheduler.ErrAdvanceWindowExceeded),
		errors.Is(err, recurrence.ErrInvalidPattern),
		errors.Is(err, recurrence.ErrInvalidDuration),
		errors.Is(err, recurrence.ErrInvalidWindow),
		errors.Is(err, recurrence.ErrTooManyOccurrences):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "POLICY_VIOLATION",
			Message:   err.Error(),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode   string            `json:"error_code,omitempty"`
	Message     string            `json:"message"`
	Errors      map[string]string `json:"errors,omitempty"`
	ConflictIDs []string          `json:"conflicting_booking_ids,omitempty"`
}

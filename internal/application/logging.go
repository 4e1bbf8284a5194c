package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/roombooker/internal/availability"
	"github.com/example/roombooker/internal/booking"
	"github.com/example/roombooker/internal/persistence"
	"github.com/example/roombooker/internal/recurrence"
	"github.com/example/roombooker/internal/scheduler"

	"github.com/example/roombooker/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrSessionRevoked):
		return "session_revoked"
	case errors.Is(err, scheduler.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, scheduler.ErrDurationOutOfPolicy):
		return "duration_out_of_policy"
	case errors.Is(err, scheduler.ErrPastBooking):
		return "past_booking"
	case errors.Is(err, scheduler.ErrAdvanceWindowExceeded):
		return "advance_window_exceeded"
	case errors.Is(err, booking.ErrTerminalStateViolation):
		return "terminal_state"
	case errors.Is(err, booking.ErrCancellationWindowClosed):
		return "cancellation_window_closed"
	case errors.Is(err, booking.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		return "recurrence_too_long"
	case errors.Is(err, recurrence.ErrInvalidPattern),
		errors.Is(err, recurrence.ErrInvalidDuration),
		errors.Is(err, recurrence.ErrInvalidWindow):
		return "invalid_recurrence"
	case errors.Is(err, persistence.ErrVersionMismatch):
		return "version_mismatch"
	}

	var cErr *availability.ConflictError
	if errors.As(err, &cErr) {
		return "booking_conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/roombooker/internal/booking"
)

// EventType identifies a booking lifecycle event.
type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingUpdated   EventType = "booking.updated"
	EventBookingApproved  EventType = "booking.approved"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingCompleted EventType = "booking.completed"
)

// Event describes one lifecycle change for interested subscribers.
type Event struct {
	Type       EventType
	BookingID  string
	RoomID     string
	Status     booking.Status
	OccurredAt time.Time
}

// Notifier receives lifecycle events. Implementations must not block; delivery
// failures are the notifier's problem, not the caller's.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NopNotifier discards every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Event) {}

// LoggingNotifier writes each lifecycle event to a structured log.
type LoggingNotifier struct {
	logger *slog.Logger
}

// NewLoggingNotifier constructs a LoggingNotifier.
func NewLoggingNotifier(logger *slog.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: defaultLogger(logger)}
}

// Notify implements Notifier.
func (n *LoggingNotifier) Notify(ctx context.Context, event Event) {
	if n == nil || n.logger == nil {
		return
	}
	n.logger.InfoContext(ctx, "booking event",
		"event_type", string(event.Type),
		"booking_id", event.BookingID,
		"room_id", event.RoomID,
		"status", string(event.Status),
		"occurred_at", event.OccurredAt,
	)
}

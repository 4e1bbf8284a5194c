package booking

import (
	"errors"
	"time"
)

var (
	// ErrTerminalStateViolation is returned for any transition attempted
	// out of CANCELLED or COMPLETED.
	ErrTerminalStateViolation = errors.New("booking: transition out of terminal state")
	// ErrCancellationWindowClosed is returned when a cancellation arrives
	// later than the room policy's cutoff before the start time.
	ErrCancellationWindowClosed = errors.New("booking: cancellation window closed")
	// ErrInvalidTransition is returned for transitions the state machine
	// does not model, such as completing a pending booking.
	ErrInvalidTransition = errors.New("booking: invalid state transition")
)

// Approve moves a pending booking to CONFIRMED, recording the approver and
// the approval instant. Approving an already confirmed booking is a no-op.
func Approve(b Booking, approverID string, now time.Time) (Booking, error) {
	switch b.Status {
	case StatusConfirmed:
		return b, nil
	case StatusPending:
	default:
		return Booking{}, transitionError(b.Status)
	}

	b.Status = StatusConfirmed
	b.ApprovedBy = &approverID
	approvedAt := now
	b.ApprovedAt = &approvedAt
	b.UpdatedAt = now
	b.Version++
	return b, nil
}

// Cancel moves an active booking to CANCELLED, provided the policy's
// cancellation cutoff has not passed. Cancelling an already cancelled
// booking is a no-op.
func Cancel(b Booking, policy Policy, now time.Time) (Booking, error) {
	switch b.Status {
	case StatusCancelled:
		return b, nil
	case StatusPending, StatusConfirmed:
	default:
		return Booking{}, transitionError(b.Status)
	}

	if now.After(b.Start.Add(-policy.CancellationCutoff())) {
		return Booking{}, ErrCancellationWindowClosed
	}

	b.Status = StatusCancelled
	b.UpdatedAt = now
	b.Version++
	return b, nil
}

// Complete moves a confirmed booking whose end time has elapsed to
// COMPLETED. Completing an already completed booking is a no-op, which makes
// the sweep idempotent.
func Complete(b Booking, now time.Time) (Booking, error) {
	switch b.Status {
	case StatusCompleted:
		return b, nil
	case StatusConfirmed:
	case StatusCancelled:
		return Booking{}, ErrTerminalStateViolation
	default:
		return Booking{}, ErrInvalidTransition
	}

	if now.Before(b.End) {
		return Booking{}, ErrInvalidTransition
	}

	b.Status = StatusCompleted
	b.UpdatedAt = now
	b.Version++
	return b, nil
}

func transitionError(from Status) error {
	if from.Terminal() {
		return ErrTerminalStateViolation
	}
	return ErrInvalidTransition
}

// Package scheduler decides whether a candidate interval may be booked on a
// room. It is the single authority for the policy checks that precede the
// availability overlap check.
package scheduler

import (
	"errors"
	"time"

	"github.com/example/roombooker/internal/availability"
	"github.com/example/roombooker/internal/booking"
)

var (
	// ErrInvalidInterval indicates the candidate start is not before its end.
	ErrInvalidInterval = errors.New("scheduler: start must be before end")
	// ErrDurationOutOfPolicy indicates the duration falls outside the room's
	// minimum/maximum booking window.
	ErrDurationOutOfPolicy = errors.New("scheduler: duration outside room policy")
	// ErrPastBooking indicates the candidate starts before the current time.
	ErrPastBooking = errors.New("scheduler: booking starts in the past")
	// ErrAdvanceWindowExceeded indicates the candidate starts beyond the
	// room's advance booking horizon.
	ErrAdvanceWindowExceeded = errors.New("scheduler: booking exceeds advance window")
)

// CheckInterval runs the pure policy checks for one candidate interval, in
// order, first failure wins:
//
//  1. start < end
//  2. duration within [min, max]
//  3. start within [now, now + advance window]
//
// The overlap check is deliberately not here: it must run under the room's
// guard inside the availability index so that check-then-insert is atomic.
func CheckInterval(policy booking.Policy, start, end, now time.Time) error {
	if !start.Before(end) {
		return ErrInvalidInterval
	}

	duration := end.Sub(start)
	if duration < policy.MinDuration() || duration > policy.MaxDuration() {
		return ErrDurationOutOfPolicy
	}

	if start.Before(now) {
		return ErrPastBooking
	}
	if start.After(now.Add(policy.AdvanceWindow())) {
		return ErrAdvanceWindowExceeded
	}

	return nil
}

// Check validates a candidate against both policy and current availability.
// It is a read-only check: callers that intend to reserve must go through
// Index.Reserve, which re-checks under the room guard.
func Check(ix *availability.Index, roomID string, policy booking.Policy, start, end, now time.Time, excludeID string) error {
	if err := CheckInterval(policy, start, end, now); err != nil {
		return err
	}

	hits := ix.Query(roomID, start, end)
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.BookingID == excludeID {
			continue
		}
		ids = append(ids, hit.BookingID)
	}
	if len(ids) > 0 {
		return &availability.ConflictError{BookingIDs: ids}
	}
	return nil
}

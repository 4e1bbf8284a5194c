// Package recurrence expands a recurring booking request into the concrete
// occurrences that make up its series.
package recurrence

import (
	"errors"
	"strings"
	"time"
)

// Pattern enumerates the supported recurrence frequencies.
type Pattern string

const (
	// PatternDaily repeats every day.
	PatternDaily Pattern = "DAILY"
	// PatternWeekly repeats every 7 days.
	PatternWeekly Pattern = "WEEKLY"
	// PatternBiweekly repeats every 14 days.
	PatternBiweekly Pattern = "BIWEEKLY"
	// PatternMonthly repeats on the same day of each month.
	PatternMonthly Pattern = "MONTHLY"
)

// DefaultOccurrenceCap bounds how many occurrences a single recurring
// request may expand to.
const DefaultOccurrenceCap = 365

var (
	// ErrInvalidPattern indicates an unsupported or malformed pattern token.
	ErrInvalidPattern = errors.New("recurrence: invalid pattern")
	// ErrInvalidDuration indicates the base interval has no positive duration.
	ErrInvalidDuration = errors.New("recurrence: base duration must be positive")
	// ErrInvalidWindow indicates the series end date precedes the first start.
	ErrInvalidWindow = errors.New("recurrence: series end precedes first occurrence")
	// ErrTooManyOccurrences indicates the expansion exceeds the occurrence cap.
	ErrTooManyOccurrences = errors.New("recurrence: series exceeds occurrence cap")
)

// ParsePattern normalizes and validates a pattern token.
func ParsePattern(value string) (Pattern, error) {
	switch Pattern(strings.ToUpper(strings.TrimSpace(value))) {
	case PatternDaily:
		return PatternDaily, nil
	case PatternWeekly:
		return PatternWeekly, nil
	case PatternBiweekly:
		return PatternBiweekly, nil
	case PatternMonthly:
		return PatternMonthly, nil
	default:
		return "", ErrInvalidPattern
	}
}

// Occurrence is one concrete (start, end) pair produced from a recurring
// request. Every occurrence preserves the base interval's duration and
// time of day.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Sequence is a lazy, finite, restartable cursor over the occurrences of a
// recurring request. The zero value is not usable; construct with New.
type Sequence struct {
	pattern  Pattern
	start    time.Time
	duration time.Duration
	until    time.Time
	cap      int
	n        int
}

// New validates the request and returns a cursor positioned before the first
// occurrence. The until bound is inclusive: an occurrence starting exactly at
// until is produced. A cap of 0 selects DefaultOccurrenceCap.
func New(pattern Pattern, start, end, until time.Time, cap int) (*Sequence, error) {
	if _, err := ParsePattern(string(pattern)); err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ErrInvalidDuration
	}
	if until.Before(start) {
		return nil, ErrInvalidWindow
	}
	if cap <= 0 {
		cap = DefaultOccurrenceCap
	}
	return &Sequence{
		pattern:  pattern,
		start:    start.UTC(),
		duration: end.Sub(start),
		until:    until.UTC(),
		cap:      cap,
	}, nil
}

// Next returns the next occurrence. The second result is false once the
// sequence is exhausted. Exceeding the occurrence cap fails with
// ErrTooManyOccurrences.
func (s *Sequence) Next() (Occurrence, bool, error) {
	start := s.nth(s.n)
	if start.After(s.until) {
		return Occurrence{}, false, nil
	}
	if s.n >= s.cap {
		return Occurrence{}, false, ErrTooManyOccurrences
	}
	s.n++
	return Occurrence{Start: start, End: start.Add(s.duration)}, true, nil
}

// Reset rewinds the cursor to the first occurrence.
func (s *Sequence) Reset() {
	s.n = 0
}

// Expand drains the sequence into a slice. The cursor is left exhausted; use
// Reset to iterate again.
func (s *Sequence) Expand() ([]Occurrence, error) {
	var occurrences []Occurrence
	for {
		occ, ok, err := s.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return occurrences, nil
		}
		occurrences = append(occurrences, occ)
	}
}

// nth computes occurrence starts anchored on the base start rather than by
// repeated stepping, so monthly expansion does not drift after short months.
// Months that lack the base day normalize forward per time.AddDate.
func (s *Sequence) nth(n int) time.Time {
	switch s.pattern {
	case PatternDaily:
		return s.start.AddDate(0, 0, n)
	case PatternWeekly:
		return s.start.AddDate(0, 0, 7*n)
	case PatternBiweekly:
		return s.start.AddDate(0, 0, 14*n)
	case PatternMonthly:
		return s.start.AddDate(0, n, 0)
	default:
		return s.start
	}
}

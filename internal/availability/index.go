// Package availability maintains the per-room interval structures used to
// answer overlap queries and to reserve booking slots without races.
//
// Each room owns an independent ordered set of active intervals guarded by
// its own lock, so "check overlap, then insert" is atomic per room while
// unrelated rooms never contend.
package availability

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/roombooker/internal/booking"
)

// Entry is one active booking interval held in a room's index.
type Entry struct {
	BookingID string
	Start     time.Time
	End       time.Time
}

// ConflictError reports the active bookings that overlap a candidate
// interval.
type ConflictError struct {
	BookingIDs []string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || len(e.BookingIDs) == 0 {
		return "availability: booking conflict"
	}
	return fmt.Sprintf("availability: booking conflict with %s", strings.Join(e.BookingIDs, ", "))
}

// Index holds one interval set per room.
type Index struct {
	mu    sync.Mutex
	rooms map[string]*roomIndex
}

// roomIndex keeps a room's active intervals ordered by start time. All
// mutations happen under mu, which linearizes check-then-insert for the room.
type roomIndex struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewIndex returns an empty availability index.
func NewIndex() *Index {
	return &Index{rooms: make(map[string]*roomIndex)}
}

func (ix *Index) room(roomID string) *roomIndex {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	r, ok := ix.rooms[roomID]
	if !ok {
		r = &roomIndex{}
		ix.rooms[roomID] = r
	}
	return r
}

// Query returns the entries on the room that overlap the half-open interval
// [start, end), ordered by start time. It takes only a shared lock and may
// run concurrently with other reads.
func (ix *Index) Query(roomID string, start, end time.Time) []Entry {
	r := ix.room(roomID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlappingLocked(start, end, "")
}

// Insert adds an interval without checking for conflicts. It exists for
// warm-up from the persistence layer, where the stored state is already
// known to be conflict free. New reservations go through Reserve.
func (ix *Index) Insert(roomID string, entry Entry) {
	r := ix.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(entry)
}

// Remove deletes the entry for the given booking id. It reports whether an
// entry was present.
func (ix *Index) Remove(roomID, bookingID string) bool {
	r := ix.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(bookingID)
}

// Reserve atomically checks and inserts a set of intervals on one room. The
// whole set is inserted only if no candidate overlaps an existing entry or
// another candidate; otherwise nothing is inserted and a ConflictError names
// every booking that collided. Entries for excludeID are ignored during the
// existing-entry check, which lets updates validate against everything but
// themselves.
func (ix *Index) Reserve(roomID string, entries []Entry, excludeID string) error {
	if len(entries) == 0 {
		return nil
	}

	r := ix.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	conflicts := make([]string, 0)
	seen := make(map[string]struct{})
	record := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		conflicts = append(conflicts, id)
	}
	for i, candidate := range entries {
		for _, hit := range r.overlappingLocked(candidate.Start, candidate.End, excludeID) {
			record(hit.BookingID)
		}
		// The candidate set itself must be pairwise disjoint.
		for _, sibling := range entries[:i] {
			if booking.Overlaps(sibling.Start, sibling.End, candidate.Start, candidate.End) {
				record(sibling.BookingID)
			}
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{BookingIDs: conflicts}
	}

	for _, candidate := range entries {
		r.insertLocked(candidate)
	}
	return nil
}

// Replace atomically swaps a booking's interval within one room. On conflict
// the original interval is left in place and a ConflictError is returned.
func (ix *Index) Replace(roomID, bookingID string, start, end time.Time) error {
	r := ix.room(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if hits := r.overlappingLocked(start, end, bookingID); len(hits) > 0 {
		ids := make([]string, 0, len(hits))
		for _, hit := range hits {
			ids = append(ids, hit.BookingID)
		}
		return &ConflictError{BookingIDs: ids}
	}

	r.removeLocked(bookingID)
	r.insertLocked(Entry{BookingID: bookingID, Start: start, End: end})
	return nil
}

// Move atomically relocates a booking's interval from one room to another.
// Room locks are taken in lexical id order so concurrent moves between the
// same pair of rooms cannot deadlock.
func (ix *Index) Move(fromRoomID, toRoomID, bookingID string, start, end time.Time) error {
	if fromRoomID == toRoomID {
		return ix.Replace(fromRoomID, bookingID, start, end)
	}

	from := ix.room(fromRoomID)
	to := ix.room(toRoomID)

	first, second := from, to
	if toRoomID < fromRoomID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if hits := to.overlappingLocked(start, end, bookingID); len(hits) > 0 {
		ids := make([]string, 0, len(hits))
		for _, hit := range hits {
			ids = append(ids, hit.BookingID)
		}
		return &ConflictError{BookingIDs: ids}
	}

	from.removeLocked(bookingID)
	to.insertLocked(Entry{BookingID: bookingID, Start: start, End: end})
	return nil
}

// Entries returns a copy of the room's interval set ordered by start time.
func (ix *Index) Entries(roomID string) []Entry {
	r := ix.room(roomID)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// insertLocked places the entry at its sorted position.
func (r *roomIndex) insertLocked(entry Entry) {
	i := sort.Search(len(r.entries), func(i int) bool {
		if r.entries[i].Start.Equal(entry.Start) {
			return r.entries[i].BookingID >= entry.BookingID
		}
		return r.entries[i].Start.After(entry.Start)
	})
	r.entries = append(r.entries, Entry{})
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = entry
}

func (r *roomIndex) removeLocked(bookingID string) bool {
	for i, entry := range r.entries {
		if entry.BookingID == bookingID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// overlappingLocked returns entries intersecting [start, end). Entries are
// ordered by start, so everything at or beyond the first entry starting at
// or after end can be skipped via binary search.
func (r *roomIndex) overlappingLocked(start, end time.Time, excludeID string) []Entry {
	limit := sort.Search(len(r.entries), func(i int) bool {
		return !r.entries[i].Start.Before(end)
	})

	var hits []Entry
	for _, entry := range r.entries[:limit] {
		if entry.BookingID == excludeID {
			continue
		}
		if booking.Overlaps(entry.Start, entry.End, start, end) {
			hits = append(hits, entry)
		}
	}
	return hits
}

// Package usage keeps the per-caller parse consumption log backing the
// monthly quota gate. The tracker is in-memory: the CLI is the only consumer
// and a long-running watch process prunes stale events on a schedule.
package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker records one timestamp per successful parse, keyed by caller.
// All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	events map[uuid.UUID][]time.Time
	now    func() time.Time
}

// NewTracker creates an empty consumption log.
func NewTracker() *Tracker {
	return &Tracker{
		events: make(map[uuid.UUID][]time.Time),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the event clock. Tests use it to pin time.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// RecordParse appends one consumption event for the caller.
func (t *Tracker) RecordParse(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[userID] = append(t.events[userID], t.now())
	return nil
}

// ParseCount reports the caller's events inside the half-open [from, to)
// window.
func (t *Tracker) ParseCount(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, at := range t.events[userID] {
		if !at.Before(from) && at.Before(to) {
			count++
		}
	}
	return count, nil
}

// PruneBefore drops events older than cutoff and returns how many were
// removed. Callers with no remaining events are forgotten entirely.
func (t *Tracker) PruneBefore(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for userID, stamps := range t.events {
		kept := stamps[:0]
		for _, at := range stamps {
			if at.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, at)
		}
		if len(kept) == 0 {
			delete(t.events, userID)
		} else {
			t.events[userID] = kept
		}
	}
	return removed
}

// EventCount returns the total number of retained events across callers.
func (t *Tracker) EventCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := 0
	for _, stamps := range t.events {
		total += len(stamps)
	}
	return total
}

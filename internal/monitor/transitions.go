package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curatewatch/engine/internal/store"
)

// TransitionTracker remembers the last status of every item and reports
// when it changes.
type TransitionTracker struct {
	mu       sync.RWMutex
	registry string
	statuses map[string]string
	newID    func() string
}

// NewTransitionTracker creates a tracker seeded with previously recorded
// statuses (item ID -> status), typically loaded from the history store.
func NewTransitionTracker(registry string, seed map[string]string) *TransitionTracker {
	statuses := make(map[string]string, len(seed))
	for id, s := range seed {
		statuses[id] = s
	}
	return &TransitionTracker{
		registry: registry,
		statuses: statuses,
		newID:    uuid.NewString,
	}
}

// Observe records the item's current status. It returns a transition when
// the status differs from the last one seen, including the first sighting
// of an item (From is empty then).
func (t *TransitionTracker) Observe(itemID, status string, at time.Time) (store.Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, seen := t.statuses[itemID]
	if seen && prev == status {
		return store.Transition{}, false
	}
	t.statuses[itemID] = status

	return store.Transition{
		ID:         t.newID(),
		Registry:   t.registry,
		ItemID:     itemID,
		From:       prev,
		To:         status,
		ObservedAt: at,
	}, true
}

// Status returns the last status seen for an item.
func (t *TransitionTracker) Status(itemID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.statuses[itemID]
	return s, ok
}

// Counts returns the number of items currently in each status.
func (t *TransitionTracker) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range t.statuses {
		counts[s]++
	}
	return counts
}

// Len returns the number of tracked items.
func (t *TransitionTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.statuses)
}

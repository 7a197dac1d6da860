package monitor

import (
	"sync"
	"time"

	"github.com/curatewatch/engine/internal/store"
)

// Clock tracks chain time from observed block heads. Between heads it
// advances with the wall clock; before the first head it is the wall clock.
type Clock struct {
	mu     sync.RWMutex
	head   store.Head
	seenAt time.Time
	wall   func() time.Time
}

// NewClock creates a Clock with no head observed.
func NewClock() *Clock {
	return &Clock{wall: time.Now}
}

// Observe records a head and reports whether it advanced the clock. Stale
// or repeated heads are ignored.
func (c *Clock) Observe(h store.Head) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seenAt.IsZero() && h.Number <= c.head.Number {
		return false
	}
	c.head = h
	c.seenAt = c.wall()
	return true
}

// Head returns the latest observed head, zero before the first one.
func (c *Clock) Head() store.Head {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head
}

// Now returns the current chain time in unix seconds.
func (c *Clock) Now() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.wall()
	if c.seenAt.IsZero() {
		return now.Unix()
	}
	elapsed := now.Sub(c.seenAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return c.head.Timestamp + int64(elapsed/time.Second)
}

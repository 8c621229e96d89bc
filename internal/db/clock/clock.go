// Package clock provides the timestamp source for stores.
package clock

import (
	"sync"
	"time"
)

// Monotonic hands out strictly increasing timestamps at microsecond precision,
// the resolution persisted rows carry. Two calls never return the same instant,
// so (created_at, id) cursors stay strict even for writes in the same microsecond.
type Monotonic struct {
	wall func() time.Time
	last time.Time
	mu   sync.Mutex
}

// New wraps a wall clock; nil means time.Now
func New(wall func() time.Time) *Monotonic {
	if wall == nil {
		wall = time.Now
	}
	return &Monotonic{wall: wall}
}

// Now returns a timestamp strictly after every previous Now result
func (c *Monotonic) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.wall().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// Wall returns the underlying wall time truncated to microseconds, without advancing
func (c *Monotonic) Wall() time.Time {
	return c.wall().UTC().Truncate(time.Microsecond)
}

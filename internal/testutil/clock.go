package testutil

import (
	"sync"
	"time"
)

// FixedClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by
// Step, so successive audit records get distinct, predictable timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu      sync.Mutex
	start   time.Time
	current time.Time
	Step    time.Duration
}

// NewFixedClock creates a clock starting at the given instant with no step.
func NewFixedClock(start time.Time) *FixedClock {
	return &FixedClock{start: start, current: start}
}

// Now returns the current instant and advances by Step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.Step)
	return now
}

// Reset rewinds the clock to its start instant.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.start
}

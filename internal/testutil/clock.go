// Package testutil provides deterministic helpers shared by tests:
// a resettable clock and stable key generation.
package testutil

import "sync"

// Clock is a thread-safe deterministic clock for tests. Each call to
// Now advances one second from the epoch it was created with, so event
// timestamps - and therefore chain hashes - are reproducible across
// runs.
type Clock struct {
	mu sync.Mutex
	ts int64
}

// NewClock returns a clock starting at epoch. The first call to Now
// returns epoch+1.
func NewClock(epoch int64) *Clock {
	return &Clock{ts: epoch}
}

// Now advances and returns the next timestamp.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts++
	return c.ts
}

// Current returns the latest timestamp without advancing.
func (c *Clock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}

// Reset rewinds the clock to epoch.
func (c *Clock) Reset(epoch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts = epoch
}

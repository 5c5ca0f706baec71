package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock starts from.
var Epoch = time.UnixMilli(1_700_000_000_000).UTC()

// DeterministicClock is a fake wall clock for tests. Every Now call
// advances it by one step, so host timestamps are strictly increasing and
// identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	ticks int64
	step  time.Duration
}

// NewDeterministicClock creates a clock at Epoch that advances 1ms per call.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Millisecond}
}

// Next advances the clock and returns the number of ticks so far.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.ticks
}

// Now advances the clock and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	n := c.Next()
	return Epoch.Add(time.Duration(n) * c.step)
}

// Current returns the tick count without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}

package engine

import "sync/atomic"

// Clock stamps observed events with their arrival position.
//
// Ordering always uses this logical seq, never the host's timeStamp field,
// which is a wildcard and may be non-monotonic across frames.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, for hosts that stamp
// part of a stream themselves.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock to zero.
func (c *Clock) Reset() {
	c.seq.Store(0)
}

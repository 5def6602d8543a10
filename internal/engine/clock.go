package engine

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// The engine stamps every spawned run and every queued command with a strictly
// increasing seq from this clock. Seq values order events without relying on
// wall time, and the journal uses them as primary keys.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations). Every
// runner goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used to continue numbering after the last seq recorded in a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

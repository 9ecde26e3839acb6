// Package clock provides the wrapping millisecond time base shared by recording and playback.
package clock

import "sync/atomic"

// Clock is a loop-relative millisecond counter.
//
// Only the tick driver calls Advance; any goroutine may call Current.
// The position runs 0..LoopLength inclusive, so one cycle spans LoopLength+1 ticks.
// Recorded timestamps share that modulus, which keeps playback aligned with capture.
type Clock struct {
	loopLength uint32
	position   atomic.Uint32
}

// New creates a clock at position 0. A zero loop length is treated as 1.
func New(loopLength uint32) *Clock {
	if loopLength == 0 {
		loopLength = 1
	}
	return &Clock{loopLength: loopLength}
}

// Advance moves the clock forward by one millisecond, wrapping to 0 after LoopLength.
func (c *Clock) Advance() uint32 {
	next := c.position.Load() + 1
	if next > c.loopLength {
		next = 0
	}
	c.position.Store(next)
	return next
}

// Current returns the position without advancing.
func (c *Clock) Current() uint32 {
	return c.position.Load()
}

// LoopLength returns the configured loop length in milliseconds.
func (c *Clock) LoopLength() uint32 {
	return c.loopLength
}

// CycleTicks returns the number of Advance calls that bring the clock back to the same position.
func (c *Clock) CycleTicks() uint32 {
	return c.loopLength + 1
}

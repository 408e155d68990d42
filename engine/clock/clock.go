// Package clock provides the monotonic frame clock that drives animation time.
package clock

import (
	"sync"
	"time"
)

// Source supplies the current instant. Production code uses the wall clock;
// tests inject a ManualSource to control frame deltas exactly.
type Source interface {
	Now() time.Time
}

type wallSource struct{}

func (wallSource) Now() time.Time { return time.Now() }

// Wall returns a Source backed by time.Now. Go's time.Time carries a monotonic
// reading, so deltas are unaffected by wall clock adjustments.
func Wall() Source { return wallSource{} }

// ManualSource is a Source whose instant only moves when Advance is called.
type ManualSource struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualSource creates a ManualSource starting at the given instant.
func NewManualSource(start time.Time) *ManualSource {
	return &ManualSource{now: start}
}

// Now returns the current manual instant.
func (m *ManualSource) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the manual instant forward by d.
func (m *ManualSource) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// FrameClock tracks elapsed and per-frame delta time in seconds.
// It is created once at scene initialization and only reset by a full reinit.
type FrameClock struct {
	src       Source
	last      time.Time
	elapsed   float64
	lastDelta float32
	started   bool
}

// NewFrameClock creates a FrameClock reading from src. A nil src uses the wall clock.
//
// Parameters:
//   - src: the time source
//
// Returns:
//   - *FrameClock: the new clock, not yet started
func NewFrameClock(src Source) *FrameClock {
	if src == nil {
		src = Wall()
	}
	return &FrameClock{src: src}
}

// Start marks the reference instant. The first Delta after Start measures from it.
func (c *FrameClock) Start() {
	c.last = c.src.Now()
	c.started = true
}

// Delta returns the seconds elapsed since the previous Delta (or Start) call and
// moves the reference instant forward. It does not touch the elapsed total; callers
// decide whether a delta counts through Accumulate. The first call on an unstarted
// clock starts it and returns 0.
//
// Returns:
//   - float32: the delta in seconds, never negative
func (c *FrameClock) Delta() float32 {
	now := c.src.Now()
	if !c.started {
		c.last = now
		c.started = true
		c.lastDelta = 0
		return 0
	}
	d := now.Sub(c.last)
	c.last = now
	if d < 0 {
		d = 0
	}
	c.lastDelta = float32(d.Seconds())
	return c.lastDelta
}

// Accumulate adds dt seconds to the elapsed total and records it as the last delta.
// Non-positive values are ignored.
func (c *FrameClock) Accumulate(dt float32) {
	if dt <= 0 {
		return
	}
	c.lastDelta = dt
	c.elapsed += float64(dt)
}

// Elapsed returns the accumulated seconds.
func (c *FrameClock) Elapsed() float64 { return c.elapsed }

// LastDelta returns the most recent delta in seconds.
func (c *FrameClock) LastDelta() float32 { return c.lastDelta }

// Reset zeroes the clock for a full reinitialization.
func (c *FrameClock) Reset() {
	c.elapsed = 0
	c.lastDelta = 0
	c.started = false
}

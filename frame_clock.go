package gpubench

import (
	"time"
)

// FrameClock tracks per-frame delta time and a sampled FPS figure.
// FPS is refreshed every SampleEvery frames from that frame's delta, so the
// value stays readable on a HUD instead of flickering every frame.
type FrameClock struct {
	Time        time.Time
	Dt          time.Duration
	Frame       uint64
	FPS         float64
	SampleEvery uint64
}

func NewFrameClock(sampleEvery int) *FrameClock {
	if sampleEvery <= 0 {
		sampleEvery = 1
	}
	return &FrameClock{
		Time:        time.Now(),
		SampleEvery: uint64(sampleEvery),
	}
}

// Reset restarts the clock at now with no frames counted.
func (c *FrameClock) Reset(now time.Time) {
	c.Time = now
	c.Dt = 0
	c.Frame = 0
	c.FPS = 0
}

// TickAt advances the clock to now and returns the frame delta.
func (c *FrameClock) TickAt(now time.Time) time.Duration {
	c.Dt = now.Sub(c.Time)
	c.Time = now
	c.Frame++

	if c.Frame%c.SampleEvery == 0 && c.Dt > 0 {
		c.FPS = 1 / c.Dt.Seconds()
	}
	return c.Dt
}

// DtSeconds is the last delta in seconds.
func (c *FrameClock) DtSeconds() float64 {
	return c.Dt.Seconds()
}

// Package clock is the integer tick counter and accumulated sim-time for one
// simulation run, with an optional wall-clock throttle used by the
// continuous-run worker (spec.md §4.1).
package clock

import "time"

// Clock tracks discrete ticks and the floating sim-time they accumulate.
type Clock struct {
	tickIntervalS  float64
	realtimeFactor float64

	TickCount   int64
	CurrentTime float64 // accumulated sim-time in seconds
}

// New creates a Clock at tick 0. realtimeFactor <= 0 disables the wall-clock
// throttle in Advance.
func New(tickIntervalS, realtimeFactor float64) *Clock {
	return &Clock{tickIntervalS: tickIntervalS, realtimeFactor: realtimeFactor}
}

// TickIntervalS returns the configured sim-seconds per tick.
func (c *Clock) TickIntervalS() float64 { return c.tickIntervalS }

// Advance adds n ticks to the clock, sleeping the configured real-time
// throttle per tick when positive. No other side effects.
func (c *Clock) Advance(n int64) {
	for i := int64(0); i < n; i++ {
		c.TickCount++
		c.CurrentTime += c.tickIntervalS
		if c.realtimeFactor > 0 {
			time.Sleep(time.Duration(c.tickIntervalS * c.realtimeFactor * float64(time.Second)))
		}
	}
}

// Reset returns the clock to tick 0, sim-time 0.
func (c *Clock) Reset() {
	c.TickCount = 0
	c.CurrentTime = 0
}

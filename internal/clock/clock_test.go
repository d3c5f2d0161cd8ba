package clock

import "testing"

func TestClock_AdvanceAccumulates(t *testing.T) {
	c := New(0.5, 0)
	c.Advance(3)
	if c.TickCount != 3 {
		t.Errorf("TickCount = %d, want 3", c.TickCount)
	}
	if c.CurrentTime != 1.5 {
		t.Errorf("CurrentTime = %v, want 1.5", c.CurrentTime)
	}
}

func TestClock_AdvanceZeroIsNoop(t *testing.T) {
	c := New(1.0, 0)
	c.Advance(0)
	if c.TickCount != 0 || c.CurrentTime != 0 {
		t.Errorf("Advance(0) mutated clock state: %+v", c)
	}
}

func TestClock_Reset(t *testing.T) {
	c := New(1.0, 0)
	c.Advance(10)
	c.Reset()
	if c.TickCount != 0 || c.CurrentTime != 0 {
		t.Errorf("Reset did not zero the clock: %+v", c)
	}
}

func TestClock_TickIntervalS(t *testing.T) {
	c := New(2.5, 0)
	if c.TickIntervalS() != 2.5 {
		t.Errorf("TickIntervalS() = %v, want 2.5", c.TickIntervalS())
	}
}

func TestClock_DisabledThrottleDoesNotBlock(t *testing.T) {
	c := New(1.0, 0)
	// realtimeFactor <= 0 disables the wall-clock sleep; this must return
	// effectively instantly even for a large tick count.
	c.Advance(1000)
	if c.TickCount != 1000 {
		t.Errorf("TickCount = %d, want 1000", c.TickCount)
	}
}

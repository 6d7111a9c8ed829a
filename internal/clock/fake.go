package clock

import "time"

// FakeClock is a manually driven Clock for tests. Payment deadlines and
// fulfillment grace windows only move when a test calls Advance.
type FakeClock struct {
	current time.Time
}

// NewFakeClock pins the clock to t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t.UTC()}
}

func (f *FakeClock) Now() time.Time { return f.current }

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}

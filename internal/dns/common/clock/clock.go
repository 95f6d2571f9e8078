// Package clock abstracts the time source so components that reason about
// recency windows and cache expiry can be tested without sleeping.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns the current system time.
func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock returns a fixed time that tests move forward explicitly.
type MockClock struct {
	CurrentTime time.Time
}

// Now returns the mock's current time.
func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the mock clock by d. Negative durations move it backward.
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

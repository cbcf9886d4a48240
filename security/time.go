package security

import "time"

// Clock abstracts the time source so window and expiry logic can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the time reported by f.
func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// clockOrDefault returns c, or SystemClock when c is nil.
func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

// IsWindowElapsed reports whether a fixed window ending at resetTime has passed.
// The boundary instant itself still belongs to the window.
func IsWindowElapsed(now, resetTime time.Time) bool {
	return now.After(resetTime)
}

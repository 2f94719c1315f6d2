package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// It stamps created_at on new records and DTSTAMP on feed events.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

package utils

import "time"

// Clock supplies the current instant. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface
type ClockFunc func() time.Time

// Now returns f()
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local wall clock
type SystemClock struct{}

// Now returns the local wall-clock reading as a zone-less instant
func (SystemClock) Now() time.Time {
	return Wall(time.Now())
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) Clock {
	t = Wall(t)
	return ClockFunc(func() time.Time { return t })
}

// Wall drops the zone of t, keeping its wall-clock reading.
// All instants handled by this package are stored this way so that
// arithmetic on them is plain wall-clock arithmetic.
func Wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

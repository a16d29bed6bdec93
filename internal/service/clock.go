package service

import "time"

// Clock supplies the current instant in the reference timezone. Services
// derive calendar dates from it; tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock reads the wall clock in the given location.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// DateOnly truncates an instant to its calendar date in the instant's own
// location, normalized to UTC midnight for storage and comparison.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

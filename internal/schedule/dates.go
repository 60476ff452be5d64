package schedule

import (
	"math"
	"time"
)

// Planned dates are day-granularity: durations are whole days and every
// shift moves a stage by whole days.

// AddDays returns t moved forward by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of days from a to b, rounded to the
// nearest whole day. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// EqualTime compares two optional timestamps, treating two nils as equal.
func EqualTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

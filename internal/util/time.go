package util

import "time"

// Clock abstracts time for code that paces or windows on the wall clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// MonthStartUTC returns 00:00 UTC on the first day of t's month.
func MonthStartUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CutoffDays returns now minus the given number of whole days.
func CutoffDays(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// internal/nutrition/dates.go
package nutrition

import "time"

// CalendarDay drops the time of day from t, keeping the wall-clock date in t's
// own location. The result is midnight UTC so days from different sources
// compare with == and work as map keys.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return CalendarDay(a).Equal(CalendarDay(b))
}

// internal/nutrition/streak.go
package nutrition

import "time"

// Streak counts consecutive logged days ending at today, or at yesterday when
// nothing was logged today yet. Dates after today never count, and the walk
// stops at the first missing day.
func Streak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	logged := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		logged[CalendarDay(d)] = struct{}{}
	}

	cursor := CalendarDay(today)
	count := 0
	if _, ok := logged[cursor]; ok {
		count = 1
	}

	for {
		cursor = cursor.AddDate(0, 0, -1)
		if _, ok := logged[cursor]; !ok {
			return count
		}
		count++
	}
}

// LoggedOn reports whether any of dates falls on day.
func LoggedOn(dates []time.Time, day time.Time) bool {
	for _, d := range dates {
		if SameDay(d, day) {
			return true
		}
	}
	return false
}

package calendar

import "time"

const day = 24 * time.Hour

// DaysBetween returns the signed number of days from a to b.
// DaysBetween(2024-01-01, 2024-01-03) == 2.
func DaysBetween(a, b Date) int {
	// Both sides are UTC midnights, so the duration is an exact multiple of 24h.
	return int(b.Time().Sub(a.Time()) / day)
}

// IsNextDay reports whether b is exactly one day after a.
func IsNextDay(a, b Date) bool {
	return DaysBetween(a, b) == 1
}

// Range returns every date in [from, to] in ascending order.
// It returns nil when to is before from.
func Range(from, to Date) []Date {
	n := DaysBetween(from, to)
	if n < 0 {
		return nil
	}
	dates := make([]Date, 0, n+1)
	for i := 0; i <= n; i++ {
		dates = append(dates, from.AddDays(i))
	}
	return dates
}

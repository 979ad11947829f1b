package utils

import (
	"strconv"
	"time"
)

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from start to end in start's location;
// negative when end is earlier. DST shifts do not change the count.
func DaysBetween(start, end time.Time) int {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.In(start.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// RelativeDay labels a number of days in the past, e.g. "Yesterday".
func RelativeDay(daysAgo int) string {
	switch {
	case daysAgo <= 0:
		return "Today"
	case daysAgo == 1:
		return "Yesterday"
	default:
		return strconv.Itoa(daysAgo) + " days ago"
	}
}

package schedule

import "time"

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// WeekStart returns the Monday of t's week, truncated to midnight UTC.
// All week arithmetic in this package operates on these normalized
// Mondays.
func WeekStart(t time.Time) time.Time {
	d := Date(t)
	offset := int(d.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // Sunday
	}
	return d.AddDate(0, 0, -offset)
}

// Date truncates t to midnight UTC, discarding clock time and zone.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeeksBetween returns the number of whole weeks from week start a to
// week start b. Negative when b is before a.
func WeeksBetween(a, b time.Time) int {
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return -((-days) / 7)
	}
	return days / 7
}

// Weekday returns the ISO weekday of t: 1 = Monday .. 7 = Sunday.
func Weekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a YYYY-MM-DD string into a midnight-UTC time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

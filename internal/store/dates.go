package store

import "time"

// Calendar dates (week starts, due dates, rule anchors) are stored as
// YYYY-MM-DD text and surfaced as midnight-UTC times.
const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

package model

import "time"

// IntervalMonthly is the sentinel value of IntervalWeeks marking a
// monthly rule. Monthly rules pick a day of month (derived from the
// anchor) instead of counting weeks.
const IntervalMonthly = 0

// RecurrenceRule is a room's recurring schedule definition. At most one
// rule exists per room; editing a rule re-anchors it to the week of the
// edit.
type RecurrenceRule struct {
	ID              int64     `json:"id"`
	HouseholdID     int64     `json:"household_id"`
	RoomID          int64     `json:"room_id"`
	DayOfWeek       int       `json:"day_of_week"`    // 1 = Monday .. 7 = Sunday
	IntervalWeeks   int       `json:"interval_weeks"` // 1 weekly, n > 1 every n weeks, IntervalMonthly
	LastDayOfMonth  bool      `json:"last_day_of_month"`
	AnchorWeekStart time.Time `json:"anchor_week_start"` // Monday the interval counts from
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Monthly reports whether the rule recurs monthly rather than on a
// week interval.
func (r *RecurrenceRule) Monthly() bool {
	return r.IntervalWeeks == IntervalMonthly
}

// MonthDay returns the preferred day of month for a monthly rule. It is
// derived from the anchor week: the day of month of the anchor week's
// preferred weekday. Re-anchoring therefore moves the month day with it.
func (r *RecurrenceRule) MonthDay() int {
	return r.AnchorWeekStart.AddDate(0, 0, r.DayOfWeek-1).Day()
}

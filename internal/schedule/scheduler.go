package schedule

import (
	"time"

	"github.com/dukerupert/rota/internal/model"
)

// DueThisWeek reports whether rule has an occurrence due in the week
// starting at weekStart (a Monday), and on what date. It is pure: the
// reconciliation paths use it both to decide whether to generate and to
// recompute the due date of an existing occurrence after a rule edit.
func DueThisWeek(rule *model.RecurrenceRule, weekStart time.Time) (time.Time, bool) {
	if rule.Monthly() {
		return monthlyDue(rule, weekStart)
	}

	if rule.IntervalWeeks > 1 {
		weeks := WeeksBetween(WeekStart(rule.AnchorWeekStart), weekStart)
		if ((weeks%rule.IntervalWeeks)+rule.IntervalWeeks)%rule.IntervalWeeks != 0 {
			return time.Time{}, false
		}
	}

	return weekStart.AddDate(0, 0, rule.DayOfWeek-1), true
}

// monthlyDue finds the rule's day-of-month occurrence within
// [weekStart, weekStart+6]. Both the month containing weekStart and the
// month containing the week's Sunday are tried, because a week can
// straddle a month boundary. A preferred day past the end of a month
// clamps to that month's last day (day 31 in February becomes Feb 28/29).
func monthlyDue(rule *model.RecurrenceRule, weekStart time.Time) (time.Time, bool) {
	weekEnd := weekStart.AddDate(0, 0, 6)

	for _, anchor := range []time.Time{weekStart, weekEnd} {
		year, month, _ := anchor.Date()
		last := DaysInMonth(year, month)

		day := last
		if !rule.LastDayOfMonth {
			day = rule.MonthDay()
			if day > last {
				day = last
			}
		}

		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if !candidate.Before(weekStart) && !candidate.After(weekEnd) {
			return candidate, true
		}
	}

	return time.Time{}, false
}

// ValidateRule checks a rule's parameters before any mutation.
func ValidateRule(dayOfWeek, intervalWeeks int) error {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return ErrInvalidSchedule
	}
	if intervalWeeks < 0 {
		return ErrInvalidSchedule
	}
	return nil
}

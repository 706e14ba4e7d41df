package schedule

import "errors"

var (
	// ErrNotFound is returned when a referenced household, room, rule,
	// occurrence, or member does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSchedule is returned when a rule's parameters are out of
	// range (weekday outside 1-7, negative interval).
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrPastDate is returned when a mutation targets a date before today.
	ErrPastDate = errors.New("date is in the past")

	// ErrRuleExists is returned by AddRule when the room already has a rule.
	ErrRuleExists = errors.New("room already has a rule")
)

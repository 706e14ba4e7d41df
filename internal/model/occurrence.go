package model

import "time"

// TaskOccurrence is one concrete, dated instance of a room's recurring
// task. WeekStart is always a Monday; DueDate falls within that week for
// generated occurrences (a reschedule may move it anywhere).
type TaskOccurrence struct {
	ID             int64     `json:"id"`
	HouseholdID    int64     `json:"household_id"`
	RoomID         int64     `json:"room_id"`
	AssigneeID     int64     `json:"assignee_id"`
	WeekStart      time.Time `json:"week_start"`
	DueDate        time.Time `json:"due_date"`
	Completed      bool      `json:"completed"`
	ManualOverride bool      `json:"manual_override"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

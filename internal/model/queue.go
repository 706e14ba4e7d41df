package model

import "time"

// RotationQueue is a room's persisted round-robin state. MemberOrder is
// an ordered list, not a set: the head is always the next assignee, and
// relative order among retained members is the fairness invariant.
type RotationQueue struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	RoomID      int64     `json:"room_id"`
	MemberOrder []int64   `json:"member_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/rota/internal/model"
)

type RuleStore struct {
	db *sql.DB
}

func NewRuleStore(db *sql.DB) *RuleStore {
	return &RuleStore{db: db}
}

func scanRule(scanner interface{ Scan(...any) error }) (*model.RecurrenceRule, error) {
	var r model.RecurrenceRule
	var anchor string

	err := scanner.Scan(
		&r.ID, &r.HouseholdID, &r.RoomID, &r.DayOfWeek, &r.IntervalWeeks,
		&r.LastDayOfMonth, &anchor, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.AnchorWeekStart, err = parseDate(anchor)
	if err != nil {
		return nil, fmt.Errorf("parse anchor %q: %w", anchor, err)
	}
	return &r, nil
}

const ruleCols = `id, household_id, room_id, day_of_week, interval_weeks, last_day_of_month, anchor_week_start, created_at, updated_at`

func (s *RuleStore) Create(householdID, roomID int64, dayOfWeek, intervalWeeks int, lastDayOfMonth bool, anchorWeekStart time.Time) (*model.RecurrenceRule, error) {
	result, err := s.db.Exec(
		`INSERT INTO recurrence_rules (household_id, room_id, day_of_week, interval_weeks, last_day_of_month, anchor_week_start)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, roomID, dayOfWeek, intervalWeeks, lastDayOfMonth, formatDate(anchorWeekStart),
	)
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RuleStore) GetByID(id int64) (*model.RecurrenceRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleCols+` FROM recurrence_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

func (s *RuleStore) GetByRoom(roomID int64) (*model.RecurrenceRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleCols+` FROM recurrence_rules WHERE room_id = ?`, roomID)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule by room: %w", err)
	}
	return r, nil
}

func (s *RuleStore) ListByHousehold(householdID int64) ([]model.RecurrenceRule, error) {
	rows, err := s.db.Query(
		`SELECT `+ruleCols+` FROM recurrence_rules WHERE household_id = ? ORDER BY room_id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RecurrenceRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// Update rewrites the schedule fields, including the anchor. The engine
// re-anchors to the current week on every edit.
func (s *RuleStore) Update(id int64, dayOfWeek, intervalWeeks int, lastDayOfMonth bool, anchorWeekStart time.Time) (*model.RecurrenceRule, error) {
	_, err := s.db.Exec(
		`UPDATE recurrence_rules SET day_of_week = ?, interval_weeks = ?, last_day_of_month = ?, anchor_week_start = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		dayOfWeek, intervalWeeks, lastDayOfMonth, formatDate(anchorWeekStart), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return s.GetByID(id)
}

func (s *RuleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM recurrence_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// DeleteByRoom removes a room's rule, if any. Replacing a template goes
// through this first.
func (s *RuleStore) DeleteByRoom(roomID int64) error {
	_, err := s.db.Exec(`DELETE FROM recurrence_rules WHERE room_id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("delete rule by room: %w", err)
	}
	return nil
}

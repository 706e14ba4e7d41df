package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/rota/internal/model"
)

type OccurrenceStore struct {
	db *sql.DB
}

func NewOccurrenceStore(db *sql.DB) *OccurrenceStore {
	return &OccurrenceStore{db: db}
}

func scanOccurrence(scanner interface{ Scan(...any) error }) (*model.TaskOccurrence, error) {
	var o model.TaskOccurrence
	var weekStart, dueDate string

	err := scanner.Scan(
		&o.ID, &o.HouseholdID, &o.RoomID, &o.AssigneeID, &weekStart, &dueDate,
		&o.Completed, &o.ManualOverride, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.WeekStart, err = parseDate(weekStart); err != nil {
		return nil, fmt.Errorf("parse week start %q: %w", weekStart, err)
	}
	if o.DueDate, err = parseDate(dueDate); err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", dueDate, err)
	}
	return &o, nil
}

const occurrenceCols = `id, household_id, room_id, assignee_id, week_start, due_date, completed, manual_override, created_at, updated_at`

func (s *OccurrenceStore) Create(householdID, roomID, assigneeID int64, weekStart, dueDate time.Time, manualOverride bool) (*model.TaskOccurrence, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_occurrences (household_id, room_id, assignee_id, week_start, due_date, manual_override)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, roomID, assigneeID, formatDate(weekStart), formatDate(dueDate), manualOverride,
	)
	if err != nil {
		return nil, fmt.Errorf("insert occurrence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateTx inserts inside a caller-owned transaction and returns the new
// row ID. Paired with QueueStore.SaveOrderTx by the generator.
func (s *OccurrenceStore) CreateTx(tx *sql.Tx, householdID, roomID, assigneeID int64, weekStart, dueDate time.Time) (int64, error) {
	result, err := tx.Exec(
		`INSERT INTO task_occurrences (household_id, room_id, assignee_id, week_start, due_date)
		 VALUES (?, ?, ?, ?, ?)`,
		householdID, roomID, assigneeID, formatDate(weekStart), formatDate(dueDate),
	)
	if err != nil {
		return 0, fmt.Errorf("insert occurrence: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *OccurrenceStore) GetByID(id int64) (*model.TaskOccurrence, error) {
	row := s.db.QueryRow(`SELECT `+occurrenceCols+` FROM task_occurrences WHERE id = ?`, id)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

// GetByRoomWeek returns a room's occurrence for the week, preferring the
// generated one when a manual occurrence coexists with it.
func (s *OccurrenceStore) GetByRoomWeek(roomID int64, weekStart time.Time) (*model.TaskOccurrence, error) {
	row := s.db.QueryRow(
		`SELECT `+occurrenceCols+` FROM task_occurrences WHERE room_id = ? AND week_start = ?
		 ORDER BY manual_override ASC, id ASC LIMIT 1`,
		roomID, formatDate(weekStart),
	)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence by room week: %w", err)
	}
	return o, nil
}

func (s *OccurrenceStore) ListByHouseholdWeek(householdID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceCols+` FROM task_occurrences WHERE household_id = ? AND week_start = ?
		 ORDER BY room_id ASC, id ASC`,
		householdID, formatDate(weekStart),
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences by week: %w", err)
	}
	return collectOccurrences(rows)
}

// ListByRoomFromWeek returns a room's occurrences at or after weekStart,
// earliest first.
func (s *OccurrenceStore) ListByRoomFromWeek(roomID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceCols+` FROM task_occurrences WHERE room_id = ? AND week_start >= ?
		 ORDER BY week_start ASC, id ASC`,
		roomID, formatDate(weekStart),
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences by room: %w", err)
	}
	return collectOccurrences(rows)
}

// FindSwapCandidate returns the earliest occurrence in the room strictly
// after the given week whose current assignee is assigneeID, or nil.
func (s *OccurrenceStore) FindSwapCandidate(roomID int64, afterWeekStart time.Time, assigneeID int64) (*model.TaskOccurrence, error) {
	row := s.db.QueryRow(
		`SELECT `+occurrenceCols+` FROM task_occurrences
		 WHERE room_id = ? AND week_start > ? AND assignee_id = ?
		 ORDER BY week_start ASC, id ASC LIMIT 1`,
		roomID, formatDate(afterWeekStart), assigneeID,
	)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find swap candidate: %w", err)
	}
	return o, nil
}

// ListIncompleteByAssigneeFrom returns a departed member's open
// occurrences at or after weekStart, for targeted reassignment.
func (s *OccurrenceStore) ListIncompleteByAssigneeFrom(householdID, assigneeID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceCols+` FROM task_occurrences
		 WHERE household_id = ? AND assignee_id = ? AND week_start >= ? AND completed = 0
		 ORDER BY week_start ASC, id ASC`,
		householdID, assigneeID, formatDate(weekStart),
	)
	if err != nil {
		return nil, fmt.Errorf("list incomplete by assignee: %w", err)
	}
	return collectOccurrences(rows)
}

func (s *OccurrenceStore) SetAssignee(id, assigneeID int64, manualOverride bool) error {
	_, err := s.db.Exec(
		`UPDATE task_occurrences SET assignee_id = ?, manual_override = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		assigneeID, manualOverride, id,
	)
	if err != nil {
		return fmt.Errorf("set assignee: %w", err)
	}
	return nil
}

// SetAssigneeTx updates an assignee inside a caller-owned transaction,
// so a reassignment and the queue rotation behind it commit together.
func (s *OccurrenceStore) SetAssigneeTx(tx *sql.Tx, id, assigneeID int64) error {
	_, err := tx.Exec(
		`UPDATE task_occurrences SET assignee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		assigneeID, id,
	)
	if err != nil {
		return fmt.Errorf("set assignee: %w", err)
	}
	return nil
}

// SwapAssignees applies both sides of a swap in one transaction; a
// half-applied swap is never visible. Both rows are marked overridden.
func (s *OccurrenceStore) SwapAssignees(id1, assignee1, id2, assignee2 int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, u := range []struct {
		id       int64
		assignee int64
	}{{id1, assignee1}, {id2, assignee2}} {
		if _, err := tx.Exec(
			`UPDATE task_occurrences SET assignee_id = ?, manual_override = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			u.assignee, u.id,
		); err != nil {
			return fmt.Errorf("swap assignee: %w", err)
		}
	}
	return tx.Commit()
}

func (s *OccurrenceStore) SetCompleted(id int64, completed bool) error {
	_, err := s.db.Exec(
		`UPDATE task_occurrences SET completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		completed, id,
	)
	if err != nil {
		return fmt.Errorf("set completed: %w", err)
	}
	return nil
}

func (s *OccurrenceStore) SetDueDate(id int64, dueDate time.Time, markOverride bool) error {
	query := `UPDATE task_occurrences SET due_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	if markOverride {
		query = `UPDATE task_occurrences SET due_date = ?, manual_override = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	_, err := s.db.Exec(query, formatDate(dueDate), id)
	if err != nil {
		return fmt.Errorf("set due date: %w", err)
	}
	return nil
}

func (s *OccurrenceStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM task_occurrences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete occurrence: %w", err)
	}
	return nil
}

// DeleteFromWeek removes every occurrence at or after weekStart,
// including manually overridden ones. Only the hard membership reset
// uses this; history before the week is preserved for reporting.
func (s *OccurrenceStore) DeleteFromWeek(householdID int64, weekStart time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM task_occurrences WHERE household_id = ? AND week_start >= ?`,
		householdID, formatDate(weekStart),
	)
	if err != nil {
		return fmt.Errorf("delete occurrences from week: %w", err)
	}
	return nil
}

// DeleteGeneratedByRoomFromWeek removes a room's non-overridden
// occurrences at or after weekStart. Rule deletion goes through this;
// manual occurrences survive until a user edits them.
func (s *OccurrenceStore) DeleteGeneratedByRoomFromWeek(roomID int64, weekStart time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM task_occurrences WHERE room_id = ? AND week_start >= ? AND manual_override = 0`,
		roomID, formatDate(weekStart),
	)
	if err != nil {
		return fmt.Errorf("delete generated occurrences: %w", err)
	}
	return nil
}

// MemberCounts holds per-member completion stats for a date range.
type MemberCounts struct {
	MemberID  int64 `json:"member_id"`
	Completed int   `json:"completed"`
	Total     int   `json:"total"`
}

func (s *OccurrenceStore) CountByMember(householdID int64, start, end time.Time) ([]MemberCounts, error) {
	rows, err := s.db.Query(
		`SELECT assignee_id, SUM(completed), COUNT(*) FROM task_occurrences
		 WHERE household_id = ? AND due_date >= ? AND due_date < ?
		 GROUP BY assignee_id ORDER BY assignee_id ASC`,
		householdID, formatDate(start), formatDate(end),
	)
	if err != nil {
		return nil, fmt.Errorf("count by member: %w", err)
	}
	defer rows.Close()

	var counts []MemberCounts
	for rows.Next() {
		var c MemberCounts
		if err := rows.Scan(&c.MemberID, &c.Completed, &c.Total); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func collectOccurrences(rows *sql.Rows) ([]model.TaskOccurrence, error) {
	defer rows.Close()

	var occurrences []model.TaskOccurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occurrences = append(occurrences, *o)
	}
	return occurrences, rows.Err()
}

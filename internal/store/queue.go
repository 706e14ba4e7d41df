package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/rota/internal/model"
)

type QueueStore struct {
	db *sql.DB
}

func NewQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{db: db}
}

func scanQueue(scanner interface{ Scan(...any) error }) (*model.RotationQueue, error) {
	var q model.RotationQueue
	var order string

	err := scanner.Scan(&q.ID, &q.HouseholdID, &q.RoomID, &order, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(order), &q.MemberOrder); err != nil {
		return nil, fmt.Errorf("decode member order %q: %w", order, err)
	}
	return &q, nil
}

const queueCols = `id, household_id, room_id, member_order, created_at, updated_at`

func encodeOrder(order []int64) (string, error) {
	if order == nil {
		order = []int64{}
	}
	data, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("encode member order: %w", err)
	}
	return string(data), nil
}

func (s *QueueStore) Create(householdID, roomID int64, memberOrder []int64) (*model.RotationQueue, error) {
	order, err := encodeOrder(memberOrder)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO rotation_queues (household_id, room_id, member_order) VALUES (?, ?, ?)`,
		householdID, roomID, order,
	)
	if err != nil {
		return nil, fmt.Errorf("insert queue: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *QueueStore) GetByID(id int64) (*model.RotationQueue, error) {
	row := s.db.QueryRow(`SELECT `+queueCols+` FROM rotation_queues WHERE id = ?`, id)
	q, err := scanQueue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue: %w", err)
	}
	return q, nil
}

func (s *QueueStore) GetByRoom(roomID int64) (*model.RotationQueue, error) {
	row := s.db.QueryRow(`SELECT `+queueCols+` FROM rotation_queues WHERE room_id = ?`, roomID)
	q, err := scanQueue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue by room: %w", err)
	}
	return q, nil
}

// ListByHousehold returns queues in creation order, which is also the
// stagger-offset order used on reset.
func (s *QueueStore) ListByHousehold(householdID int64) ([]model.RotationQueue, error) {
	rows, err := s.db.Query(
		`SELECT `+queueCols+` FROM rotation_queues WHERE household_id = ? ORDER BY id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var queues []model.RotationQueue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		queues = append(queues, *q)
	}
	return queues, rows.Err()
}

func (s *QueueStore) CountByHousehold(householdID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM rotation_queues WHERE household_id = ?`, householdID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queues: %w", err)
	}
	return n, nil
}

func (s *QueueStore) SaveOrder(id int64, memberOrder []int64) error {
	order, err := encodeOrder(memberOrder)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE rotation_queues SET member_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		order, id,
	)
	if err != nil {
		return fmt.Errorf("save queue order: %w", err)
	}
	return nil
}

// SaveOrderTx persists an order inside a caller-owned transaction, so a
// generated occurrence and the rotation that produced it commit together.
func (s *QueueStore) SaveOrderTx(tx *sql.Tx, id int64, memberOrder []int64) error {
	order, err := encodeOrder(memberOrder)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`UPDATE rotation_queues SET member_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		order, id,
	)
	if err != nil {
		return fmt.Errorf("save queue order: %w", err)
	}
	return nil
}

func (s *QueueStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rotation_queues WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete queue: %w", err)
	}
	return nil
}

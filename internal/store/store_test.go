package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/dukerupert/rota/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedRoom creates a household with one room and two members, returning
// (householdID, roomID, member1ID, member2ID).
func seedRoom(t *testing.T, db *sql.DB) (int64, int64, int64, int64) {
	t.Helper()

	h, err := NewHouseholdStore(db).Create("Test House")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	room, err := NewRoomStore(db).Create(h.ID, "Kitchen", 0)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	members := NewMemberStore(db)
	m1, err := members.Create(h.ID, "Alice", "#ff0000", "", 0)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	m2, err := members.Create(h.ID, "Bob", "#00ff00", "", 1)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return h.ID, room.ID, m1.ID, m2.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package store

import (
	"testing"
	"time"
)

func TestOccurrenceCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, _ := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	due := day(2025, time.June, 4)
	occ, err := occurrences.Create(h, room, m1, week, due, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := occurrences.GetByID(occ.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil occurrence")
	}
	if !got.WeekStart.Equal(week) || !got.DueDate.Equal(due) {
		t.Errorf("dates = %s / %s, want %s / %s",
			got.WeekStart.Format(dateLayout), got.DueDate.Format(dateLayout),
			week.Format(dateLayout), due.Format(dateLayout))
	}
	if got.Completed || got.ManualOverride {
		t.Errorf("flags = completed %v override %v, want both false", got.Completed, got.ManualOverride)
	}
}

func TestOccurrenceGetMissing(t *testing.T) {
	db := openTestDB(t)
	occurrences := NewOccurrenceStore(db)

	if occ, err := occurrences.GetByID(42); err != nil || occ != nil {
		t.Errorf("GetByID(42) = %v, %v, want nil, nil", occ, err)
	}
	if occ, err := occurrences.GetByRoomWeek(42, day(2025, time.June, 2)); err != nil || occ != nil {
		t.Errorf("GetByRoomWeek = %v, %v, want nil, nil", occ, err)
	}
}

func TestGeneratedOccurrenceUniquePerRoomWeek(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	if _, err := occurrences.Create(h, room, m1, week, week, false); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// A second generated occurrence for the same room and week hits the
	// partial unique index.
	if _, err := occurrences.Create(h, room, m2, week, week, false); err == nil {
		t.Error("duplicate generated occurrence accepted")
	}

	// A manual occurrence is exempt from the index.
	if _, err := occurrences.Create(h, room, m2, week, week, true); err != nil {
		t.Errorf("manual occurrence rejected: %v", err)
	}
}

func TestGetByRoomWeekPrefersGenerated(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	generated, err := occurrences.Create(h, room, m1, week, week, false)
	if err != nil {
		t.Fatalf("create generated: %v", err)
	}
	if _, err := occurrences.Create(h, room, m2, week, week, true); err != nil {
		t.Fatalf("create manual: %v", err)
	}

	got, err := occurrences.GetByRoomWeek(room, week)
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if got.ID != generated.ID {
		t.Errorf("got occurrence %d, want generated %d", got.ID, generated.ID)
	}
}

func TestSwapAssignees(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	a, err := occurrences.Create(h, room, m1, day(2025, time.June, 2), day(2025, time.June, 2), false)
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := occurrences.Create(h, room, m2, day(2025, time.June, 9), day(2025, time.June, 9), false)
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if err := occurrences.SwapAssignees(a.ID, m2, b.ID, m1); err != nil {
		t.Fatalf("swap: %v", err)
	}

	for _, tt := range []struct {
		id   int64
		want int64
	}{{a.ID, m2}, {b.ID, m1}} {
		got, err := occurrences.GetByID(tt.id)
		if err != nil || got == nil {
			t.Fatalf("get %d: %v %v", tt.id, got, err)
		}
		if got.AssigneeID != tt.want {
			t.Errorf("occurrence %d assignee = %d, want %d", tt.id, got.AssigneeID, tt.want)
		}
		if !got.ManualOverride {
			t.Errorf("occurrence %d not marked overridden after swap", tt.id)
		}
	}
}

func TestFindSwapCandidate(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	if _, err := occurrences.Create(h, room, m1, week, week, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := occurrences.Create(h, room, m2, week.AddDate(0, 0, 21), week.AddDate(0, 0, 21), false); err != nil {
		t.Fatalf("create far: %v", err)
	}
	near, err := occurrences.Create(h, room, m2, week.AddDate(0, 0, 7), week.AddDate(0, 0, 7), false)
	if err != nil {
		t.Fatalf("create near: %v", err)
	}

	// The earliest strictly-later occurrence of the target wins.
	got, err := occurrences.FindSwapCandidate(room, week, m2)
	if err != nil || got == nil {
		t.Fatalf("find: %v %v", got, err)
	}
	if got.ID != near.ID {
		t.Errorf("candidate = %d, want %d", got.ID, near.ID)
	}

	// The same week is excluded.
	if got, err := occurrences.FindSwapCandidate(room, week.AddDate(0, 0, 21), m2); err != nil || got != nil {
		t.Errorf("candidate past last week = %v, %v, want nil, nil", got, err)
	}
}

func TestDeleteGeneratedKeepsManual(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	gen, err := occurrences.Create(h, room, m1, week, week, false)
	if err != nil {
		t.Fatalf("create generated: %v", err)
	}
	manual, err := occurrences.Create(h, room, m2, week, week, true)
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}

	if err := occurrences.DeleteGeneratedByRoomFromWeek(room, week); err != nil {
		t.Fatalf("delete generated: %v", err)
	}

	if got, _ := occurrences.GetByID(gen.ID); got != nil {
		t.Error("generated occurrence survived")
	}
	if got, _ := occurrences.GetByID(manual.ID); got == nil {
		t.Error("manual occurrence deleted")
	}
}

func TestCountByMember(t *testing.T) {
	db := openTestDB(t)
	h, room, m1, m2 := seedRoom(t, db)
	occurrences := NewOccurrenceStore(db)

	week := day(2025, time.June, 2)
	done, err := occurrences.Create(h, room, m1, week, day(2025, time.June, 3), false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := occurrences.SetCompleted(done.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := occurrences.Create(h, room, m2, week, day(2025, time.June, 5), true); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Outside the range.
	if _, err := occurrences.Create(h, room, m1, week.AddDate(0, 0, 7), day(2025, time.June, 10), false); err != nil {
		t.Fatalf("create: %v", err)
	}

	counts, err := occurrences.CountByMember(h, week, week.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d rows, want 2", len(counts))
	}
	if counts[0].MemberID != m1 || counts[0].Completed != 1 || counts[0].Total != 1 {
		t.Errorf("m1 counts = %+v, want 1/1", counts[0])
	}
	if counts[1].MemberID != m2 || counts[1].Completed != 0 || counts[1].Total != 1 {
		t.Errorf("m2 counts = %+v, want 0/1", counts[1])
	}
}

package schedule

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/rota/internal/database"
	"github.com/dukerupert/rota/internal/store"
)

// testNow is a Wednesday; the engine's current week starts 2025-06-02.
var testNow = time.Date(2025, time.June, 4, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	db          *sql.DB
	engine      *Engine
	households  *store.HouseholdStore
	members     *store.MemberStore
	rooms       *store.RoomStore
	rules       *store.RuleStore
	queues      *store.QueueStore
	occurrences *store.OccurrenceStore

	household int64
	m         []int64 // three members, rotation order m[0], m[1], m[2]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(db, logger)
	engine.SetClock(func() time.Time { return testNow })

	env := &testEnv{
		db:          db,
		engine:      engine,
		households:  store.NewHouseholdStore(db),
		members:     store.NewMemberStore(db),
		rooms:       store.NewRoomStore(db),
		rules:       store.NewRuleStore(db),
		queues:      store.NewQueueStore(db),
		occurrences: store.NewOccurrenceStore(db),
	}

	h, err := env.households.Create("Test House")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	env.household = h.ID

	for i, name := range []string{"Alice", "Bob", "Carol"} {
		m, err := env.members.Create(h.ID, name, "#ffffff", "", i)
		if err != nil {
			t.Fatalf("create member %s: %v", name, err)
		}
		env.m = append(env.m, m.ID)
	}
	return env
}

func (env *testEnv) addRoom(t *testing.T, name string) int64 {
	t.Helper()
	room, err := env.rooms.Create(env.household, name, 0)
	if err != nil {
		t.Fatalf("create room %s: %v", name, err)
	}
	return room.ID
}

func (env *testEnv) currentWeek() time.Time {
	return date(2025, time.June, 2)
}

func TestFillMissingGenerates(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")

	if _, err := env.engine.AddRule(env.household, room, 3, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	occs, err := env.occurrences.ListByHouseholdWeek(env.household, env.currentWeek())
	if err != nil {
		t.Fatalf("list occurrences: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("got %d occurrences, want 1", len(occs))
	}

	occ := occs[0]
	if occ.AssigneeID != env.m[0] {
		t.Errorf("assignee = %d, want %d", occ.AssigneeID, env.m[0])
	}
	if want := date(2025, time.June, 4); !occ.DueDate.Equal(want) {
		t.Errorf("due date = %s, want %s", occ.DueDate.Format(DateLayout), want.Format(DateLayout))
	}
	if occ.ManualOverride {
		t.Error("generated occurrence marked as manual override")
	}

	// The queue rotated past the assignee.
	queue, err := env.queues.GetByRoom(room)
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	if queue.MemberOrder[0] != env.m[1] {
		t.Errorf("queue head = %d, want %d", queue.MemberOrder[0], env.m[1])
	}
}

func TestFillMissingIdempotent(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	for i := 0; i < 3; i++ {
		created, err := env.engine.FillMissing(env.household, env.currentWeek())
		if err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
		if len(created) != 0 {
			t.Fatalf("fill %d created %d occurrences, want 0", i, len(created))
		}
	}

	occs, err := env.occurrences.ListByHouseholdWeek(env.household, env.currentWeek())
	if err != nil {
		t.Fatalf("list occurrences: %v", err)
	}
	if len(occs) != 1 {
		t.Errorf("got %d occurrences, want 1", len(occs))
	}
}

func TestFillMissingSkipsPastWeeks(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	past := env.currentWeek().AddDate(0, 0, -7)
	created, err := env.engine.FillMissing(env.household, past)
	if err != nil {
		t.Fatalf("fill past week: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("created %d occurrences in a past week, want 0", len(created))
	}
}

func TestRotationFairOverFullCycles(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// AddRule generated the current week; generate five more.
	for i := 1; i <= 5; i++ {
		week := env.currentWeek().AddDate(0, 0, 7*i)
		if _, err := env.engine.FillMissing(env.household, week); err != nil {
			t.Fatalf("fill week %d: %v", i, err)
		}
	}

	counts := map[int64]int{}
	for i := 0; i <= 5; i++ {
		week := env.currentWeek().AddDate(0, 0, 7*i)
		occ, err := env.occurrences.GetByRoomWeek(room, week)
		if err != nil {
			t.Fatalf("get week %d: %v", i, err)
		}
		if occ == nil {
			t.Fatalf("week %d has no occurrence", i)
		}
		counts[occ.AssigneeID]++

		want := env.m[i%3]
		if occ.AssigneeID != want {
			t.Errorf("week %d assignee = %d, want %d", i, occ.AssigneeID, want)
		}
	}

	for _, id := range env.m {
		if counts[id] != 2 {
			t.Errorf("member %d assigned %d times over two cycles, want 2", id, counts[id])
		}
	}
}

func TestQueueStagger(t *testing.T) {
	env := newTestEnv(t)
	kitchen := env.addRoom(t, "Kitchen")
	bathroom := env.addRoom(t, "Bathroom")

	if _, err := env.engine.AddRule(env.household, kitchen, 1, 1, false); err != nil {
		t.Fatalf("add kitchen rule: %v", err)
	}
	if _, err := env.engine.AddRule(env.household, bathroom, 2, 1, false); err != nil {
		t.Fatalf("add bathroom rule: %v", err)
	}

	first, err := env.occurrences.GetByRoomWeek(kitchen, env.currentWeek())
	if err != nil || first == nil {
		t.Fatalf("kitchen occurrence: %v %v", first, err)
	}
	second, err := env.occurrences.GetByRoomWeek(bathroom, env.currentWeek())
	if err != nil || second == nil {
		t.Fatalf("bathroom occurrence: %v %v", second, err)
	}

	// The second room's queue starts one position further along, so the
	// same person does not get every room in the same week.
	if first.AssigneeID != env.m[0] {
		t.Errorf("kitchen assignee = %d, want %d", first.AssigneeID, env.m[0])
	}
	if second.AssigneeID != env.m[1] {
		t.Errorf("bathroom assignee = %d, want %d", second.AssigneeID, env.m[1])
	}
}

func TestSyncWeekDeletesOrphanedOccurrence(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 1, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// Remove the rule behind the engine's back; the generated occurrence
	// is now orphaned.
	if err := env.rules.Delete(rule.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}
	if err := env.engine.SyncWeekWithRules(env.household, env.currentWeek()); err != nil {
		t.Fatalf("sync week: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil {
		t.Fatalf("get occurrence: %v", err)
	}
	if occ != nil {
		t.Error("orphaned occurrence survived sync")
	}
}

func TestSyncWeekCorrectsDueDate(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 3, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// Shift the rule to Friday without going through the engine.
	if _, err := env.rules.Update(rule.ID, 5, 1, false, env.currentWeek()); err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if err := env.engine.SyncWeekWithRules(env.household, env.currentWeek()); err != nil {
		t.Fatalf("sync week: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || occ == nil {
		t.Fatalf("get occurrence: %v %v", occ, err)
	}
	if want := date(2025, time.June, 6); !occ.DueDate.Equal(want) {
		t.Errorf("due date = %s, want %s", occ.DueDate.Format(DateLayout), want.Format(DateLayout))
	}
}

func TestSyncWeekLeavesManualOverrideAlone(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 3, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || occ == nil {
		t.Fatalf("get occurrence: %v %v", occ, err)
	}

	// Reschedule marks the occurrence overridden.
	moved, err := env.engine.Reschedule(occ.ID, date(2025, time.June, 7))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.ManualOverride {
		t.Fatal("rescheduled occurrence not marked overridden")
	}

	// A rule change plus sync must not touch it.
	if _, err := env.rules.Update(rule.ID, 5, 1, false, env.currentWeek()); err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if err := env.engine.SyncWeekWithRules(env.household, env.currentWeek()); err != nil {
		t.Fatalf("sync week: %v", err)
	}

	after, err := env.occurrences.GetByID(occ.ID)
	if err != nil || after == nil {
		t.Fatalf("get occurrence: %v %v", after, err)
	}
	if !after.DueDate.Equal(date(2025, time.June, 7)) {
		t.Errorf("overridden due date changed to %s", after.DueDate.Format(DateLayout))
	}
}

func TestResetForMembershipChange(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// Override the current occurrence; the hard reset still removes it.
	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || occ == nil {
		t.Fatalf("get occurrence: %v %v", occ, err)
	}
	if _, err := env.engine.Reschedule(occ.ID, date(2025, time.June, 8)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	dave, err := env.members.Create(env.household, "Dave", "#000000", "", 3)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}

	created, err := env.engine.ResetForMembershipChange(env.household)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("reset created %d occurrences, want 1", len(created))
	}

	if old, err := env.occurrences.GetByID(occ.ID); err != nil {
		t.Fatalf("get old occurrence: %v", err)
	} else if old != nil {
		t.Error("overridden occurrence survived the hard reset")
	}

	queue, err := env.queues.GetByRoom(room)
	if err != nil || queue == nil {
		t.Fatalf("get queue: %v %v", queue, err)
	}
	if len(queue.MemberOrder) != 4 {
		t.Fatalf("queue has %d members, want 4", len(queue.MemberOrder))
	}
	if !containsID(queue.MemberOrder, dave.ID) {
		t.Errorf("queue %v does not include new member %d", queue.MemberOrder, dave.ID)
	}
}

func TestReassignDepartedTasks(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// Alice holds the current occurrence, then leaves.
	departed := env.m[0]
	if err := env.members.Delete(departed); err != nil {
		t.Fatalf("delete member: %v", err)
	}
	if err := env.engine.SyncAllQueues(env.household); err != nil {
		t.Fatalf("sync queues: %v", err)
	}
	if err := env.engine.ReassignDepartedTasks(env.household, departed); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || occ == nil {
		t.Fatalf("get occurrence: %v %v", occ, err)
	}
	// The queue after generation was [Bob, Carol, Alice]; with Alice gone
	// the head is Bob.
	if occ.AssigneeID != env.m[1] {
		t.Errorf("assignee = %d, want %d", occ.AssigneeID, env.m[1])
	}

	queue, err := env.queues.GetByRoom(room)
	if err != nil || queue == nil {
		t.Fatalf("get queue: %v %v", queue, err)
	}
	if containsID(queue.MemberOrder, departed) {
		t.Errorf("queue %v still contains departed member", queue.MemberOrder)
	}
	// The reassignment consumed Bob's turn.
	if queue.MemberOrder[0] != env.m[2] {
		t.Errorf("queue head = %d, want %d", queue.MemberOrder[0], env.m[2])
	}
}

func TestSaveCurrentWeekAsTemplate(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")

	// A manually assigned task due Friday becomes a weekly Friday rule.
	if _, err := env.occurrences.Create(env.household, room, env.m[1], env.currentWeek(), date(2025, time.June, 6), true); err != nil {
		t.Fatalf("create occurrence: %v", err)
	}

	rules, err := env.engine.SaveCurrentWeekAsTemplate(env.household)
	if err != nil {
		t.Fatalf("save template: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}

	rule := rules[0]
	if rule.DayOfWeek != 5 {
		t.Errorf("day of week = %d, want 5", rule.DayOfWeek)
	}
	if rule.IntervalWeeks != 1 {
		t.Errorf("interval = %d, want 1", rule.IntervalWeeks)
	}
	if !rule.AnchorWeekStart.Equal(env.currentWeek()) {
		t.Errorf("anchor = %s, want current week", rule.AnchorWeekStart.Format(DateLayout))
	}

	if queue, err := env.queues.GetByRoom(room); err != nil || queue == nil {
		t.Errorf("template did not seed a queue: %v %v", queue, err)
	}
}

func TestAddRuleErrors(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")

	if _, err := env.engine.AddRule(env.household, room, 9, 1, false); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("invalid weekday: err = %v, want ErrInvalidSchedule", err)
	}
	if _, err := env.engine.AddRule(env.household, 9999, 1, 1, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown room: err = %v, want ErrNotFound", err)
	}

	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	if _, err := env.engine.AddRule(env.household, room, 2, 1, false); !errors.Is(err, ErrRuleExists) {
		t.Errorf("duplicate rule: err = %v, want ErrRuleExists", err)
	}
}

func TestUpdateRuleReanchors(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 3, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	// Generate a future week too, so the edit has something to correct
	// beyond the current week.
	nextWeek := env.currentWeek().AddDate(0, 0, 7)
	if _, err := env.engine.FillMissing(env.household, nextWeek); err != nil {
		t.Fatalf("fill next week: %v", err)
	}

	updated, err := env.engine.UpdateRule(rule.ID, 5, 1, false)
	if err != nil {
		t.Fatalf("update rule: %v", err)
	}
	if !updated.AnchorWeekStart.Equal(env.currentWeek()) {
		t.Errorf("anchor = %s, want current week", updated.AnchorWeekStart.Format(DateLayout))
	}

	for i, want := range []time.Time{date(2025, time.June, 6), date(2025, time.June, 13)} {
		week := env.currentWeek().AddDate(0, 0, 7*i)
		occ, err := env.occurrences.GetByRoomWeek(room, week)
		if err != nil || occ == nil {
			t.Fatalf("week %d occurrence: %v %v", i, occ, err)
		}
		if !occ.DueDate.Equal(want) {
			t.Errorf("week %d due date = %s, want %s", i, occ.DueDate.Format(DateLayout), want.Format(DateLayout))
		}
	}
}

func TestUpdateRuleDeletesNoLongerDue(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 1, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	nextWeek := env.currentWeek().AddDate(0, 0, 7)
	if _, err := env.engine.FillMissing(env.household, nextWeek); err != nil {
		t.Fatalf("fill next week: %v", err)
	}

	// Bi-weekly from the current week: next week is no longer due.
	if _, err := env.engine.UpdateRule(rule.ID, 1, 2, false); err != nil {
		t.Fatalf("update rule: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, nextWeek)
	if err != nil {
		t.Fatalf("get occurrence: %v", err)
	}
	if occ != nil {
		t.Error("occurrence survived in a week the edited rule skips")
	}
}

func TestDeleteRuleKeepsOverrides(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	rule, err := env.engine.AddRule(env.household, room, 1, 1, false)
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	nextWeek := env.currentWeek().AddDate(0, 0, 7)
	if _, err := env.engine.FillMissing(env.household, nextWeek); err != nil {
		t.Fatalf("fill next week: %v", err)
	}

	// Override the current week's occurrence; it must survive.
	current, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || current == nil {
		t.Fatalf("get occurrence: %v %v", current, err)
	}
	if _, err := env.engine.Reschedule(current.ID, date(2025, time.June, 8)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	if err := env.engine.DeleteRule(rule.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}

	if kept, err := env.occurrences.GetByID(current.ID); err != nil || kept == nil {
		t.Errorf("overridden occurrence deleted with the rule: %v %v", kept, err)
	}
	if gone, err := env.occurrences.GetByRoomWeek(room, nextWeek); err != nil {
		t.Fatalf("get next week: %v", err)
	} else if gone != nil {
		t.Error("generated future occurrence survived rule deletion")
	}
}

func TestReassignBySwap(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	nextWeek := env.currentWeek().AddDate(0, 0, 7)
	if _, err := env.engine.FillMissing(env.household, nextWeek); err != nil {
		t.Fatalf("fill next week: %v", err)
	}

	// Alice has this week, Bob next week. Swapping this week's task to
	// Bob must hand next week's to Alice.
	current, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || current == nil {
		t.Fatalf("get current: %v %v", current, err)
	}

	result, err := env.engine.ReassignBySwap(current.ID, env.m[1])
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if !result.Swapped {
		t.Fatal("expected a swap with the counterpart occurrence")
	}
	if result.Occurrence.AssigneeID != env.m[1] {
		t.Errorf("assignee = %d, want %d", result.Occurrence.AssigneeID, env.m[1])
	}
	if result.SwappedWith == nil || result.SwappedWith.AssigneeID != env.m[0] {
		t.Errorf("counterpart = %+v, want assignee %d", result.SwappedWith, env.m[0])
	}
	if !result.Occurrence.ManualOverride || !result.SwappedWith.ManualOverride {
		t.Error("swap did not mark both occurrences overridden")
	}

	// Per-member counts are unchanged: one task each.
	counts, err := env.engine.CompletionStats(env.household, env.currentWeek(), nextWeek.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, c := range counts {
		if c.Total != 1 {
			t.Errorf("member %d total = %d, want 1", c.MemberID, c.Total)
		}
	}
}

func TestReassignBySwapNoCounterpart(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	current, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || current == nil {
		t.Fatalf("get current: %v %v", current, err)
	}

	result, err := env.engine.ReassignBySwap(current.ID, env.m[2])
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if result.Swapped {
		t.Error("reported a swap with no counterpart available")
	}
	if result.Occurrence.AssigneeID != env.m[2] {
		t.Errorf("assignee = %d, want %d", result.Occurrence.AssigneeID, env.m[2])
	}
	if !result.Occurrence.ManualOverride {
		t.Error("one-sided reassignment not marked overridden")
	}
}

func TestReassignBySwapSameAssignee(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	current, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || current == nil {
		t.Fatalf("get current: %v %v", current, err)
	}

	result, err := env.engine.ReassignBySwap(current.ID, current.AssigneeID)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if result.Swapped {
		t.Error("same-assignee reassignment reported a swap")
	}
	if result.Occurrence.ManualOverride {
		t.Error("same-assignee no-op marked the occurrence overridden")
	}
}

func TestRescheduleRejectsPast(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 5, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	current, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || current == nil {
		t.Fatalf("get current: %v %v", current, err)
	}

	if _, err := env.engine.Reschedule(current.ID, date(2025, time.June, 3)); !errors.Is(err, ErrPastDate) {
		t.Errorf("past date: err = %v, want ErrPastDate", err)
	}
	// Today is allowed.
	if _, err := env.engine.Reschedule(current.ID, date(2025, time.June, 4)); err != nil {
		t.Errorf("same-day reschedule rejected: %v", err)
	}
}

func TestAssignDirect(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")

	// No rule, no existing occurrence: created with today's date.
	occ, err := env.engine.AssignDirect(env.household, room, env.m[2])
	if err != nil {
		t.Fatalf("assign direct: %v", err)
	}
	if occ.AssigneeID != env.m[2] {
		t.Errorf("assignee = %d, want %d", occ.AssigneeID, env.m[2])
	}
	if !occ.ManualOverride {
		t.Error("direct assignment not marked overridden")
	}
	if !occ.DueDate.Equal(date(2025, time.June, 4)) {
		t.Errorf("due date = %s, want today", occ.DueDate.Format(DateLayout))
	}

	// Existing occurrence: overwritten in place.
	again, err := env.engine.AssignDirect(env.household, room, env.m[0])
	if err != nil {
		t.Fatalf("assign direct again: %v", err)
	}
	if again.ID != occ.ID {
		t.Errorf("second assignment created a new occurrence %d", again.ID)
	}
	if again.AssigneeID != env.m[0] {
		t.Errorf("assignee = %d, want %d", again.AssigneeID, env.m[0])
	}
}

func TestCompletionStats(t *testing.T) {
	env := newTestEnv(t)
	room := env.addRoom(t, "Kitchen")
	if _, err := env.engine.AddRule(env.household, room, 1, 1, false); err != nil {
		t.Fatalf("add rule: %v", err)
	}

	occ, err := env.occurrences.GetByRoomWeek(room, env.currentWeek())
	if err != nil || occ == nil {
		t.Fatalf("get current: %v %v", occ, err)
	}
	if _, err := env.engine.SetCompleted(occ.ID, true); err != nil {
		t.Fatalf("complete: %v", err)
	}

	counts, err := env.engine.CompletionStats(env.household, env.currentWeek(), env.currentWeek().AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d rows, want 1", len(counts))
	}
	if counts[0].MemberID != env.m[0] || counts[0].Completed != 1 || counts[0].Total != 1 {
		t.Errorf("counts = %+v, want member %d 1/1", counts[0], env.m[0])
	}
}

func TestOccurrencesForWeekFillsOnRead(t *testing.T) {
	env := newTestEnv(t)
	kitchen := env.addRoom(t, "Kitchen")
	bathroom := env.addRoom(t, "Bathroom")
	if _, err := env.engine.AddRule(env.household, kitchen, 1, 1, false); err != nil {
		t.Fatalf("add kitchen rule: %v", err)
	}
	if _, err := env.engine.AddRule(env.household, bathroom, 4, 1, false); err != nil {
		t.Fatalf("add bathroom rule: %v", err)
	}

	// A future week has nothing until it is viewed.
	nextWeek := env.currentWeek().AddDate(0, 0, 7)
	occs, err := env.engine.OccurrencesForWeek(env.household, nextWeek)
	if err != nil {
		t.Fatalf("occurrences for week: %v", err)
	}
	if len(occs) != 2 {
		t.Errorf("got %d occurrences, want 2", len(occs))
	}
}

func TestClearRules(t *testing.T) {
	env := newTestEnv(t)
	kitchen := env.addRoom(t, "Kitchen")
	bathroom := env.addRoom(t, "Bathroom")
	if _, err := env.engine.AddRule(env.household, kitchen, 1, 1, false); err != nil {
		t.Fatalf("add kitchen rule: %v", err)
	}
	if _, err := env.engine.AddRule(env.household, bathroom, 2, 1, false); err != nil {
		t.Fatalf("add bathroom rule: %v", err)
	}

	if err := env.engine.ClearRules(env.household); err != nil {
		t.Fatalf("clear rules: %v", err)
	}

	rules, err := env.rules.ListByHousehold(env.household)
	if err != nil {
		t.Fatalf("list rules: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("%d rules survived clear", len(rules))
	}
	occs, err := env.occurrences.ListByHouseholdWeek(env.household, env.currentWeek())
	if err != nil {
		t.Fatalf("list occurrences: %v", err)
	}
	if len(occs) != 0 {
		t.Errorf("%d occurrences survived clear", len(occs))
	}
}

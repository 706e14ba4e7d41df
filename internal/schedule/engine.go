package schedule

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/store"
)

// Engine reconciles recurrence rules, rotation queues, and task
// occurrences for a household. Every entry point serializes on a
// per-household lock: peek-then-rotate is a read-modify-write pair that
// must not interleave with another reconciliation of the same room.
// Operations on different households proceed in parallel.
//
// Generation is demand driven and idempotent: every path re-checks for
// an existing occurrence before creating one, so it is cheap to call on
// every week view.
type Engine struct {
	db          *sql.DB
	members     *store.MemberStore
	rooms       *store.RoomStore
	rules       *store.RuleStore
	queues      *store.QueueStore
	occurrences *store.OccurrenceStore
	logger      *slog.Logger

	// now is the single clock for "current week" decisions. Tests fix it.
	now func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEngine(db *sql.DB, logger *slog.Logger) *Engine {
	return &Engine{
		db:          db,
		members:     store.NewMemberStore(db),
		rooms:       store.NewRoomStore(db),
		rules:       store.NewRuleStore(db),
		queues:      store.NewQueueStore(db),
		occurrences: store.NewOccurrenceStore(db),
		logger:      logger,
		now:         time.Now,
		locks:       make(map[int64]*sync.Mutex),
	}
}

// SetClock replaces the engine's clock. Test use only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Engine) lockHousehold(householdID int64) func() {
	e.mu.Lock()
	l, ok := e.locks[householdID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[householdID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CurrentWeekStart returns the Monday of the engine's current week.
func (e *Engine) CurrentWeekStart() time.Time {
	return WeekStart(e.now())
}

// OccurrencesForWeek fills any missing occurrences for the week, then
// returns the week's full occurrence list.
func (e *Engine) OccurrencesForWeek(householdID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	weekStart = WeekStart(weekStart)
	unlock := e.lockHousehold(householdID)
	defer unlock()

	if _, err := e.fillMissing(householdID, weekStart); err != nil {
		return nil, err
	}
	return e.occurrences.ListByHouseholdWeek(householdID, weekStart)
}

// FillMissing generates occurrences for every room whose rule is due in
// the week and has none yet. It returns only the newly created
// occurrences; an empty result is the common idempotent outcome. Weeks
// before the current week are never generated.
func (e *Engine) FillMissing(householdID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	unlock := e.lockHousehold(householdID)
	defer unlock()
	return e.fillMissing(householdID, WeekStart(weekStart))
}

func (e *Engine) fillMissing(householdID int64, weekStart time.Time) ([]model.TaskOccurrence, error) {
	if weekStart.Before(e.CurrentWeekStart()) {
		return nil, nil
	}

	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	rules, err := e.rules.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}

	var created []model.TaskOccurrence
	for i := range rules {
		rule := &rules[i]

		existing, err := e.occurrences.GetByRoomWeek(rule.RoomID, weekStart)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		due, ok := DueThisWeek(rule, weekStart)
		if !ok {
			continue
		}

		occ, err := e.generate(rule, weekStart, due, memberIDs)
		if err != nil {
			return nil, err
		}
		if occ != nil {
			created = append(created, *occ)
		}
	}
	return created, nil
}

// generate assigns the room's next rotation member and creates the
// occurrence. The insert and the rotated queue order commit in one
// transaction. A nil occurrence with nil error means no valid assignee
// was available and the room was skipped.
func (e *Engine) generate(rule *model.RecurrenceRule, weekStart, due time.Time, memberIDs []int64) (*model.TaskOccurrence, error) {
	queue, err := e.getOrCreateQueue(rule.HouseholdID, rule.RoomID, memberIDs)
	if err != nil {
		return nil, err
	}

	rot := &Rotation{Order: queue.MemberOrder}
	assignee, ok := rot.PeekNext(memberIDs)
	if !ok {
		e.logger.Debug("no valid assignee, skipping room",
			"room_id", rule.RoomID, "week_start", weekStart.Format(DateLayout))
		return nil, nil
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := e.occurrences.CreateTx(tx, rule.HouseholdID, rule.RoomID, assignee, weekStart, due)
	if err != nil {
		return nil, err
	}

	rot.Rotate()
	if err := e.queues.SaveOrderTx(tx, queue.ID, rot.Order); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit generate: %w", err)
	}

	return e.occurrences.GetByID(id)
}

// getOrCreateQueue seeds a missing queue from current membership,
// rotated by the number of queues the household already has so rooms
// created together do not all start on the same person.
func (e *Engine) getOrCreateQueue(householdID, roomID int64, memberIDs []int64) (*model.RotationQueue, error) {
	queue, err := e.queues.GetByRoom(roomID)
	if err != nil {
		return nil, err
	}
	if queue != nil {
		return queue, nil
	}

	offset, err := e.queues.CountByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	rot := NewRotation(memberIDs, offset)
	return e.queues.Create(householdID, roomID, rot.Order)
}

// SyncWeekWithRules is the non-destructive reconciliation used when
// rules change without a full regenerate: occurrences whose room no
// longer has a matching due rule are deleted, due dates of surviving
// generated occurrences are corrected, and missing occurrences are
// generated. Manually overridden occurrences are never touched.
func (e *Engine) SyncWeekWithRules(householdID int64, weekStart time.Time) error {
	weekStart = WeekStart(weekStart)
	unlock := e.lockHousehold(householdID)
	defer unlock()
	return e.syncWeek(householdID, weekStart)
}

func (e *Engine) syncWeek(householdID int64, weekStart time.Time) error {
	if weekStart.Before(e.CurrentWeekStart()) {
		return nil
	}

	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return err
	}
	rules, err := e.rules.ListByHousehold(householdID)
	if err != nil {
		return err
	}
	ruleByRoom := make(map[int64]*model.RecurrenceRule, len(rules))
	for i := range rules {
		ruleByRoom[rules[i].RoomID] = &rules[i]
	}

	occs, err := e.occurrences.ListByHouseholdWeek(householdID, weekStart)
	if err != nil {
		return err
	}

	covered := make(map[int64]bool)
	for i := range occs {
		occ := &occs[i]
		covered[occ.RoomID] = true

		if occ.ManualOverride {
			continue
		}

		rule := ruleByRoom[occ.RoomID]
		if rule == nil {
			if err := e.occurrences.Delete(occ.ID); err != nil {
				return err
			}
			delete(covered, occ.RoomID)
			continue
		}

		due, ok := DueThisWeek(rule, weekStart)
		if !ok {
			if err := e.occurrences.Delete(occ.ID); err != nil {
				return err
			}
			delete(covered, occ.RoomID)
			continue
		}

		if !due.Equal(occ.DueDate) {
			if err := e.occurrences.SetDueDate(occ.ID, due, false); err != nil {
				return err
			}
		}
	}

	for i := range rules {
		rule := &rules[i]
		if covered[rule.RoomID] {
			continue
		}
		due, ok := DueThisWeek(rule, weekStart)
		if !ok {
			continue
		}
		if _, err := e.generate(rule, weekStart, due, memberIDs); err != nil {
			return err
		}
	}
	return nil
}

// ResetForMembershipChange is the hard membership-change policy: every
// occurrence from the current week on is deleted (history stays for
// reporting), every queue restarts from current membership with a fresh
// stagger offset, and the current week is regenerated.
func (e *Engine) ResetForMembershipChange(householdID int64) ([]model.TaskOccurrence, error) {
	unlock := e.lockHousehold(householdID)
	defer unlock()

	currentWeek := e.CurrentWeekStart()
	if err := e.occurrences.DeleteFromWeek(householdID, currentWeek); err != nil {
		return nil, err
	}

	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	queues, err := e.queues.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	for i := range queues {
		rot := &Rotation{Order: queues[i].MemberOrder}
		rot.Reinitialize(memberIDs, i)
		if err := e.queues.SaveOrder(queues[i].ID, rot.Order); err != nil {
			return nil, err
		}
	}

	return e.fillMissing(householdID, currentWeek)
}

// ReassignDepartedTasks is the soft membership-change policy: each of
// the departed member's open current-or-future occurrences is handed to
// the room's next rotation member. Run SyncAllQueues first so the
// departed member is already out of every queue.
func (e *Engine) ReassignDepartedTasks(householdID, departedMemberID int64) error {
	unlock := e.lockHousehold(householdID)
	defer unlock()

	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return err
	}

	occs, err := e.occurrences.ListIncompleteByAssigneeFrom(householdID, departedMemberID, e.CurrentWeekStart())
	if err != nil {
		return err
	}

	for i := range occs {
		occ := &occs[i]

		queue, err := e.queues.GetByRoom(occ.RoomID)
		if err != nil {
			return err
		}
		if queue == nil {
			continue
		}

		rot := &Rotation{Order: queue.MemberOrder}
		assignee, ok := rot.PeekNext(memberIDs)
		if !ok {
			e.logger.Warn("no assignee for departed member's task",
				"occurrence_id", occ.ID, "room_id", occ.RoomID)
			continue
		}

		tx, err := e.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		err = e.occurrences.SetAssigneeTx(tx, occ.ID, assignee)
		if err == nil {
			rot.Rotate()
			err = e.queues.SaveOrderTx(tx, queue.ID, rot.Order)
		}
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit reassign: %w", err)
		}
	}
	return nil
}

// SyncAllQueues reconciles every queue with current membership:
// departed members drop out, joiners land at the tail of each queue.
func (e *Engine) SyncAllQueues(householdID int64) error {
	unlock := e.lockHousehold(householdID)
	defer unlock()

	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return err
	}
	queues, err := e.queues.ListByHousehold(householdID)
	if err != nil {
		return err
	}

	for i := range queues {
		rot := &Rotation{Order: queues[i].MemberOrder}
		if rot.Sync(memberIDs) {
			if err := e.queues.SaveOrder(queues[i].ID, rot.Order); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveCurrentWeekAsTemplate derives a weekly rule from each room's
// occurrence in the current week, replacing any existing rule, and
// seeds a rotation queue for rooms that lack one.
func (e *Engine) SaveCurrentWeekAsTemplate(householdID int64) ([]model.RecurrenceRule, error) {
	unlock := e.lockHousehold(householdID)
	defer unlock()

	currentWeek := e.CurrentWeekStart()
	occs, err := e.occurrences.ListByHouseholdWeek(householdID, currentWeek)
	if err != nil {
		return nil, err
	}
	memberIDs, err := e.members.ListIDsByHousehold(householdID)
	if err != nil {
		return nil, err
	}

	var rules []model.RecurrenceRule
	seen := make(map[int64]bool)
	for i := range occs {
		occ := &occs[i]
		if seen[occ.RoomID] {
			continue
		}
		seen[occ.RoomID] = true

		if err := e.rules.DeleteByRoom(occ.RoomID); err != nil {
			return nil, err
		}
		rule, err := e.rules.Create(householdID, occ.RoomID, Weekday(occ.DueDate), 1, false, currentWeek)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)

		if _, err := e.getOrCreateQueue(householdID, occ.RoomID, memberIDs); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// --- Rule CRUD ---

// AddRule creates a room's rule anchored to the current week and
// generates the current week's occurrence if one is due.
func (e *Engine) AddRule(householdID, roomID int64, dayOfWeek, intervalWeeks int, lastDayOfMonth bool) (*model.RecurrenceRule, error) {
	if err := ValidateRule(dayOfWeek, intervalWeeks); err != nil {
		return nil, err
	}

	room, err := e.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || room.HouseholdID != householdID {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrNotFound)
	}

	unlock := e.lockHousehold(householdID)
	defer unlock()

	existing, err := e.rules.GetByRoom(roomID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRuleExists
	}

	rule, err := e.rules.Create(householdID, roomID, dayOfWeek, intervalWeeks, lastDayOfMonth, e.CurrentWeekStart())
	if err != nil {
		return nil, err
	}

	if _, err := e.fillMissing(householdID, e.CurrentWeekStart()); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule edits a rule's schedule, re-anchoring it to the current
// week, then corrects the due date of every current-or-future
// non-overridden occurrence in the room; occurrences whose week is no
// longer due under the new schedule are deleted. Re-anchoring also
// shifts the derived monthly anchor day, so editing just the weekday of
// a weekly rule moves its monthly day as well.
func (e *Engine) UpdateRule(ruleID int64, dayOfWeek, intervalWeeks int, lastDayOfMonth bool) (*model.RecurrenceRule, error) {
	if err := ValidateRule(dayOfWeek, intervalWeeks); err != nil {
		return nil, err
	}

	rule, err := e.rules.GetByID(ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrNotFound)
	}

	unlock := e.lockHousehold(rule.HouseholdID)
	defer unlock()

	currentWeek := e.CurrentWeekStart()
	rule, err = e.rules.Update(ruleID, dayOfWeek, intervalWeeks, lastDayOfMonth, currentWeek)
	if err != nil {
		return nil, err
	}

	occs, err := e.occurrences.ListByRoomFromWeek(rule.RoomID, currentWeek)
	if err != nil {
		return nil, err
	}
	for i := range occs {
		occ := &occs[i]
		if occ.ManualOverride {
			continue
		}
		due, ok := DueThisWeek(rule, occ.WeekStart)
		if !ok {
			if err := e.occurrences.Delete(occ.ID); err != nil {
				return nil, err
			}
			continue
		}
		if !due.Equal(occ.DueDate) {
			if err := e.occurrences.SetDueDate(occ.ID, due, false); err != nil {
				return nil, err
			}
		}
	}

	if _, err := e.fillMissing(rule.HouseholdID, currentWeek); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule and the room's generated current-or-future
// occurrences. History and manually overridden occurrences stay.
func (e *Engine) DeleteRule(ruleID int64) error {
	rule, err := e.rules.GetByID(ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule %d: %w", ruleID, ErrNotFound)
	}

	unlock := e.lockHousehold(rule.HouseholdID)
	defer unlock()

	if err := e.rules.Delete(ruleID); err != nil {
		return err
	}
	return e.occurrences.DeleteGeneratedByRoomFromWeek(rule.RoomID, e.CurrentWeekStart())
}

// ClearRules deletes every rule in the household along with generated
// current-or-future occurrences.
func (e *Engine) ClearRules(householdID int64) error {
	unlock := e.lockHousehold(householdID)
	defer unlock()

	rules, err := e.rules.ListByHousehold(householdID)
	if err != nil {
		return err
	}
	currentWeek := e.CurrentWeekStart()
	for i := range rules {
		if err := e.rules.Delete(rules[i].ID); err != nil {
			return err
		}
		if err := e.occurrences.DeleteGeneratedByRoomFromWeek(rules[i].RoomID, currentWeek); err != nil {
			return err
		}
	}
	return nil
}

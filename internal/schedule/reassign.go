package schedule

import (
	"fmt"
	"time"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/store"
)

// SwapResult reports the outcome of a swap-based reassignment.
// SwappedWith is nil when no future occurrence of the target existed;
// in that case only the requested occurrence changed hands, which
// leaves per-person task counts unequal. Callers can warn on that.
type SwapResult struct {
	Occurrence  *model.TaskOccurrence `json:"occurrence"`
	Swapped     bool                  `json:"swapped"`
	SwappedWith *model.TaskOccurrence `json:"swapped_with,omitempty"`
}

// ReassignBySwap hands an occurrence to newAssignee. To keep per-person
// counts level it searches the room for the earliest occurrence strictly
// after this one currently assigned to newAssignee and gives that one to
// the original assignee. Both sides are marked manually overridden and
// commit together.
func (e *Engine) ReassignBySwap(occurrenceID, newAssigneeID int64) (*SwapResult, error) {
	occ, err := e.occurrences.GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, fmt.Errorf("occurrence %d: %w", occurrenceID, ErrNotFound)
	}

	member, err := e.members.GetByID(newAssigneeID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.HouseholdID != occ.HouseholdID {
		return nil, fmt.Errorf("member %d: %w", newAssigneeID, ErrNotFound)
	}

	unlock := e.lockHousehold(occ.HouseholdID)
	defer unlock()

	if occ.AssigneeID == newAssigneeID {
		return &SwapResult{Occurrence: occ}, nil
	}

	candidate, err := e.occurrences.FindSwapCandidate(occ.RoomID, occ.WeekStart, newAssigneeID)
	if err != nil {
		return nil, err
	}

	if candidate == nil {
		if err := e.occurrences.SetAssignee(occ.ID, newAssigneeID, true); err != nil {
			return nil, err
		}
		e.logger.Warn("reassignment without counterpart, task counts now uneven",
			"occurrence_id", occ.ID, "room_id", occ.RoomID, "assignee_id", newAssigneeID)
		updated, err := e.occurrences.GetByID(occ.ID)
		if err != nil {
			return nil, err
		}
		return &SwapResult{Occurrence: updated}, nil
	}

	if err := e.occurrences.SwapAssignees(occ.ID, newAssigneeID, candidate.ID, occ.AssigneeID); err != nil {
		return nil, err
	}

	updated, err := e.occurrences.GetByID(occ.ID)
	if err != nil {
		return nil, err
	}
	counterpart, err := e.occurrences.GetByID(candidate.ID)
	if err != nil {
		return nil, err
	}
	return &SwapResult{Occurrence: updated, Swapped: true, SwappedWith: counterpart}, nil
}

// Reschedule moves an occurrence's due date and marks it manually
// overridden, exempting it from reconciliation. Past dates are
// rejected before any mutation. The week start and the rotation queue
// are untouched.
func (e *Engine) Reschedule(occurrenceID int64, newDueDate time.Time) (*model.TaskOccurrence, error) {
	occ, err := e.occurrences.GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, fmt.Errorf("occurrence %d: %w", occurrenceID, ErrNotFound)
	}

	newDueDate = Date(newDueDate)
	if newDueDate.Before(Date(e.now())) {
		return nil, ErrPastDate
	}

	unlock := e.lockHousehold(occ.HouseholdID)
	defer unlock()

	if err := e.occurrences.SetDueDate(occ.ID, newDueDate, true); err != nil {
		return nil, err
	}
	return e.occurrences.GetByID(occ.ID)
}

// SetCompleted marks an occurrence complete or incomplete.
func (e *Engine) SetCompleted(occurrenceID int64, completed bool) (*model.TaskOccurrence, error) {
	occ, err := e.occurrences.GetByID(occurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, fmt.Errorf("occurrence %d: %w", occurrenceID, ErrNotFound)
	}

	if err := e.occurrences.SetCompleted(occ.ID, completed); err != nil {
		return nil, err
	}
	return e.occurrences.GetByID(occ.ID)
}

// AssignDirect creates or overwrites the current week's occurrence for
// a room with an explicit assignee, bypassing the rotation queue. The
// result is marked manually overridden.
func (e *Engine) AssignDirect(householdID, roomID, assigneeID int64) (*model.TaskOccurrence, error) {
	room, err := e.rooms.GetByID(roomID)
	if err != nil {
		return nil, err
	}
	if room == nil || room.HouseholdID != householdID {
		return nil, fmt.Errorf("room %d: %w", roomID, ErrNotFound)
	}

	member, err := e.members.GetByID(assigneeID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.HouseholdID != householdID {
		return nil, fmt.Errorf("member %d: %w", assigneeID, ErrNotFound)
	}

	unlock := e.lockHousehold(householdID)
	defer unlock()

	currentWeek := e.CurrentWeekStart()
	existing, err := e.occurrences.GetByRoomWeek(roomID, currentWeek)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := e.occurrences.SetAssignee(existing.ID, assigneeID, true); err != nil {
			return nil, err
		}
		return e.occurrences.GetByID(existing.ID)
	}

	due := Date(e.now())
	if rule, err := e.rules.GetByRoom(roomID); err != nil {
		return nil, err
	} else if rule != nil {
		if d, ok := DueThisWeek(rule, currentWeek); ok {
			due = d
		}
	}

	return e.occurrences.Create(householdID, roomID, assigneeID, currentWeek, due, true)
}

// CompletionStats returns per-member completed/total counts for due
// dates in [start, end).
func (e *Engine) CompletionStats(householdID int64, start, end time.Time) ([]store.MemberCounts, error) {
	return e.occurrences.CountByMember(householdID, Date(start), Date(end))
}

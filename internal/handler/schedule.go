package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/schedule"
	"github.com/dukerupert/rota/internal/store"
	"github.com/dukerupert/rota/internal/websocket"
)

type ScheduleHandler struct {
	engine  *schedule.Engine
	members *store.MemberStore
	rooms   *store.RoomStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewScheduleHandler(engine *schedule.Engine, ms *store.MemberStore, rs *store.RoomStore, hub *websocket.Hub, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{engine: engine, members: ms, rooms: rs, hub: hub, logger: logger}
}

func (h *ScheduleHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// WeekOccurrence is an occurrence decorated with display fields for the
// week view.
type WeekOccurrence struct {
	model.TaskOccurrence
	RoomName    string `json:"room_name"`
	MemberName  string `json:"member_name"`
	MemberColor string `json:"member_color"`
	MemberEmoji string `json:"member_emoji"`
}

// Week returns the household's occurrences for the week containing the
// given date, generating any missing ones first.
func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	date, err := schedule.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	occurrences, err := h.engine.OccurrencesForWeek(householdID, date)
	if err != nil {
		h.logger.Error("week view", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load week")
		return
	}

	view, err := h.decorate(householdID, occurrences)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load week")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ScheduleHandler) decorate(householdID int64, occurrences []model.TaskOccurrence) ([]WeekOccurrence, error) {
	members, err := h.members.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}
	rooms, err := h.rooms.ListByHousehold(householdID)
	if err != nil {
		return nil, err
	}

	memberByID := make(map[int64]*model.Member, len(members))
	for i := range members {
		memberByID[members[i].ID] = &members[i]
	}
	roomByID := make(map[int64]*model.Room, len(rooms))
	for i := range rooms {
		roomByID[rooms[i].ID] = &rooms[i]
	}

	view := make([]WeekOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		wo := WeekOccurrence{TaskOccurrence: occ}
		if room := roomByID[occ.RoomID]; room != nil {
			wo.RoomName = room.Name
		}
		if m := memberByID[occ.AssigneeID]; m != nil {
			wo.MemberName = m.Name
			wo.MemberColor = m.Color
			wo.MemberEmoji = m.AvatarEmoji
		}
		view = append(view, wo)
	}
	return view, nil
}

// SaveTemplate derives a recurring rule from each room's occurrence in
// the current week.
func (h *ScheduleHandler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	rules, err := h.engine.SaveCurrentWeekAsTemplate(householdID)
	if err != nil {
		h.logger.Error("save template", "household_id", householdID, "error", err)
		writeEngineError(w, err, "failed to save template")
		return
	}
	if rules == nil {
		rules = []model.RecurrenceRule{}
	}

	h.broadcast(websocket.NewMessage("rule", "template_saved", 0, householdID))
	writeJSON(w, http.StatusCreated, rules)
}

// Stats returns per-member completion counts for due dates in
// [start, end). Defaults to the last 30 days.
func (h *ScheduleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	end := time.Now().UTC().AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -31)
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = schedule.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = schedule.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
	}

	stats, err := h.engine.CompletionStats(householdID, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if stats == nil {
		stats = []store.MemberCounts{}
	}
	writeJSON(w, http.StatusOK, stats)
}

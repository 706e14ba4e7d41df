package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/rota/internal/schedule"
	"github.com/dukerupert/rota/internal/websocket"
)

type OccurrenceHandler struct {
	engine *schedule.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewOccurrenceHandler(engine *schedule.Engine, hub *websocket.Hub, logger *slog.Logger) *OccurrenceHandler {
	return &OccurrenceHandler{engine: engine, hub: hub, logger: logger}
}

func (h *OccurrenceHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *OccurrenceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, true, "completed")
}

func (h *OccurrenceHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, false, "uncompleted")
}

func (h *OccurrenceHandler) setCompleted(w http.ResponseWriter, r *http.Request, completed bool, action string) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	occ, err := h.engine.SetCompleted(id, completed)
	if err != nil {
		writeEngineError(w, err, "failed to update occurrence")
		return
	}

	h.broadcast(websocket.NewMessage("occurrence", action, id, occ.HouseholdID))
	writeJSON(w, http.StatusOK, occ)
}

func (h *OccurrenceHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		DueDate string `json:"due_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	dueDate, err := schedule.ParseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due date, expected YYYY-MM-DD")
		return
	}

	occ, err := h.engine.Reschedule(id, dueDate)
	if err != nil {
		writeEngineError(w, err, "failed to reschedule occurrence")
		return
	}

	h.broadcast(websocket.NewMessage("occurrence", "rescheduled", id, occ.HouseholdID))
	writeJSON(w, http.StatusOK, occ)
}

func (h *OccurrenceHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		AssigneeID int64 `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.engine.ReassignBySwap(id, req.AssigneeID)
	if err != nil {
		writeEngineError(w, err, "failed to reassign occurrence")
		return
	}

	h.broadcast(websocket.NewMessage("occurrence", "reassigned", id, result.Occurrence.HouseholdID))
	writeJSON(w, http.StatusOK, result)
}

// AssignDirect creates or overwrites the current week's occurrence for
// a room, bypassing the rotation queue.
func (h *OccurrenceHandler) AssignDirect(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	roomID, err := strconv.ParseInt(r.PathValue("roomID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req struct {
		AssigneeID int64 `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	occ, err := h.engine.AssignDirect(householdID, roomID, req.AssigneeID)
	if err != nil {
		writeEngineError(w, err, "failed to assign occurrence")
		return
	}

	h.broadcast(websocket.NewMessage("occurrence", "assigned", occ.ID, householdID))
	writeJSON(w, http.StatusOK, occ)
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/schedule"
	"github.com/dukerupert/rota/internal/store"
	"github.com/dukerupert/rota/internal/websocket"
)

type RuleHandler struct {
	engine *schedule.Engine
	rules  *store.RuleStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRuleHandler(engine *schedule.Engine, rs *store.RuleStore, hub *websocket.Hub, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{engine: engine, rules: rs, hub: hub, logger: logger}
}

func (h *RuleHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type ruleRequest struct {
	RoomID         int64 `json:"room_id"`
	DayOfWeek      int   `json:"day_of_week"`
	IntervalWeeks  int   `json:"interval_weeks"`
	LastDayOfMonth bool  `json:"last_day_of_month"`
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rule, err := h.engine.AddRule(householdID, req.RoomID, req.DayOfWeek, req.IntervalWeeks, req.LastDayOfMonth)
	if err != nil {
		h.logger.Warn("add rule", "household_id", householdID, "room_id", req.RoomID, "error", err)
		writeEngineError(w, err, "failed to add rule")
		return
	}

	h.broadcast(websocket.NewMessage("rule", "created", rule.ID, householdID))
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	rules, err := h.rules.ListByHousehold(householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}
	if rules == nil {
		rules = []model.RecurrenceRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rule, err := h.engine.UpdateRule(id, req.DayOfWeek, req.IntervalWeeks, req.LastDayOfMonth)
	if err != nil {
		h.logger.Warn("update rule", "rule_id", id, "error", err)
		writeEngineError(w, err, "failed to update rule")
		return
	}

	h.broadcast(websocket.NewMessage("rule", "updated", id, rule.HouseholdID))
	writeJSON(w, http.StatusOK, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rule, err := h.rules.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}

	if err := h.engine.DeleteRule(id); err != nil {
		writeEngineError(w, err, "failed to delete rule")
		return
	}

	h.broadcast(websocket.NewMessage("rule", "deleted", id, rule.HouseholdID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *RuleHandler) Clear(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	if err := h.engine.ClearRules(householdID); err != nil {
		writeEngineError(w, err, "failed to clear rules")
		return
	}

	h.broadcast(websocket.NewMessage("rule", "cleared", 0, householdID))
	w.WriteHeader(http.StatusNoContent)
}

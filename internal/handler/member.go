package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/schedule"
	"github.com/dukerupert/rota/internal/store"
	"github.com/dukerupert/rota/internal/websocket"
)

// Membership-change policy names accepted on member create/delete.
const (
	policyReset    = "reset"
	policyReassign = "reassign"
)

type MemberHandler struct {
	members *store.MemberStore
	engine  *schedule.Engine
	hub     *websocket.Hub
	logger  *slog.Logger
}

func NewMemberHandler(ms *store.MemberStore, engine *schedule.Engine, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{members: ms, engine: engine, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type memberRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	SortOrder   int    `json:"sort_order"`
}

// applyMembershipChange runs the caller's chosen policy after a join or
// leave. The engine offers both and does not pick one itself: a hard
// reset restarts every queue and regenerates the week, while the soft
// path keeps rotation progress and only fixes up what the change broke.
func (h *MemberHandler) applyMembershipChange(householdID int64, policy string, departedID int64) error {
	if policy == "" {
		policy = policyReset
	}

	switch policy {
	case policyReset:
		_, err := h.engine.ResetForMembershipChange(householdID)
		return err
	case policyReassign:
		if err := h.engine.SyncAllQueues(householdID); err != nil {
			return err
		}
		if departedID != 0 {
			return h.engine.ReassignDepartedTasks(householdID, departedID)
		}
		return nil
	default:
		return schedule.ErrInvalidSchedule
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	member, err := h.members.Create(householdID, req.Name, req.Color, req.AvatarEmoji, req.SortOrder)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	if err := h.applyMembershipChange(householdID, r.URL.Query().Get("policy"), 0); err != nil {
		h.logger.Error("membership change after join", "member_id", member.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply membership change")
		return
	}

	h.broadcast(websocket.NewMessage("member", "created", member.ID, householdID))
	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	members, err := h.members.ListByHousehold(householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	member, err := h.members.Update(id, req.Name, req.Color, req.AvatarEmoji, req.SortOrder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}

	h.broadcast(websocket.NewMessage("member", "updated", id, member.HouseholdID))
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.members.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete member")
		return
	}

	if err := h.applyMembershipChange(existing.HouseholdID, r.URL.Query().Get("policy"), id); err != nil {
		h.logger.Error("membership change after leave", "member_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to apply membership change")
		return
	}

	h.broadcast(websocket.NewMessage("member", "deleted", id, existing.HouseholdID))
	w.WriteHeader(http.StatusNoContent)
}

// --- PIN endpoints ---

func (h *MemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.members.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.PIN == "" {
		if err := h.members.ClearPIN(id); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to clear PIN")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		return
	}

	if len(req.PIN) < 4 || !isDigits(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be at least 4 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash PIN")
		return
	}
	if err := h.members.SetPINHash(id, string(hash)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "set"})
}

func (h *MemberHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.members.GetPINHash(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusNotFound, "member has no PIN")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

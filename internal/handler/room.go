package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rota/internal/model"
	"github.com/dukerupert/rota/internal/store"
	"github.com/dukerupert/rota/internal/websocket"
)

type RoomHandler struct {
	rooms  *store.RoomStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewRoomHandler(rs *store.RoomStore, hub *websocket.Hub, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{rooms: rs, hub: hub, logger: logger}
}

func (h *RoomHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type roomRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.rooms.Create(householdID, req.Name, req.SortOrder)
	if err != nil {
		h.logger.Error("create room", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.broadcast(websocket.NewMessage("room", "created", room.ID, householdID))
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	rooms, err := h.rooms.ListByHousehold(householdID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.rooms.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get room")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.rooms.Update(id, req.Name, req.SortOrder)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update room")
		return
	}

	h.broadcast(websocket.NewMessage("room", "updated", id, room.HouseholdID))
	writeJSON(w, http.StatusOK, room)
}

// Delete removes a room; the schema cascades to its rule, queue, and
// occurrences.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.rooms.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get room")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	if err := h.rooms.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete room")
		return
	}

	h.broadcast(websocket.NewMessage("room", "deleted", id, existing.HouseholdID))
	w.WriteHeader(http.StatusNoContent)
}

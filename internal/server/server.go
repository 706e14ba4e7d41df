package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dukerupert/rota/internal/backup"
	"github.com/dukerupert/rota/internal/handler"
	"github.com/dukerupert/rota/internal/middleware"
	"github.com/dukerupert/rota/internal/schedule"
	"github.com/dukerupert/rota/internal/store"
	ws "github.com/dukerupert/rota/internal/websocket"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	householdH    *handler.HouseholdHandler
	memberH       *handler.MemberHandler
	roomH         *handler.RoomHandler
	scheduleH     *handler.ScheduleHandler
	ruleH         *handler.RuleHandler
	occurrenceH   *handler.OccurrenceHandler
	settingsH     *handler.SettingsHandler
	backupH       *handler.BackupHandler
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	householdStore := store.NewHouseholdStore(db)
	memberStore := store.NewMemberStore(db)
	roomStore := store.NewRoomStore(db)
	ruleStore := store.NewRuleStore(db)
	settingsStore := store.NewSettingsStore(db)
	backupStore := store.NewBackupStore(db)

	engine := schedule.NewEngine(db, logger.With("component", "schedule"))

	backupMgr := backup.NewManager(backupCfg, db, backupStore, settingsStore, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		householdH:    handler.NewHouseholdHandler(householdStore, hub, logger.With("component", "household")),
		memberH:       handler.NewMemberHandler(memberStore, engine, hub, logger.With("component", "member")),
		roomH:         handler.NewRoomHandler(roomStore, hub, logger.With("component", "room")),
		scheduleH:     handler.NewScheduleHandler(engine, memberStore, roomStore, hub, logger.With("component", "schedule_handler")),
		ruleH:         handler.NewRuleHandler(engine, ruleStore, hub, logger.With("component", "rule")),
		occurrenceH:   handler.NewOccurrenceHandler(engine, hub, logger.With("component", "occurrence")),
		settingsH:     handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		backupH:       handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Households
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("GET /api/households/{id}", s.householdH.Get)
	mux.HandleFunc("PUT /api/households/{id}", s.householdH.Update)
	mux.HandleFunc("DELETE /api/households/{id}", s.householdH.Delete)

	// Members
	mux.HandleFunc("POST /api/households/{id}/members", s.memberH.Create)
	mux.HandleFunc("GET /api/households/{id}/members", s.memberH.List)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)
	mux.HandleFunc("PUT /api/members/{id}/pin", s.memberH.SetPIN)
	mux.HandleFunc("POST /api/members/{id}/pin/verify", s.memberH.VerifyPIN)

	// Rooms
	mux.HandleFunc("POST /api/households/{id}/rooms", s.roomH.Create)
	mux.HandleFunc("GET /api/households/{id}/rooms", s.roomH.List)
	mux.HandleFunc("PUT /api/rooms/{id}", s.roomH.Update)
	mux.HandleFunc("DELETE /api/rooms/{id}", s.roomH.Delete)

	// Schedule
	mux.HandleFunc("GET /api/households/{id}/week/{date}", s.scheduleH.Week)
	mux.HandleFunc("POST /api/households/{id}/template", s.scheduleH.SaveTemplate)
	mux.HandleFunc("GET /api/households/{id}/stats", s.scheduleH.Stats)

	// Rules
	mux.HandleFunc("POST /api/households/{id}/rules", s.ruleH.Create)
	mux.HandleFunc("GET /api/households/{id}/rules", s.ruleH.List)
	mux.HandleFunc("DELETE /api/households/{id}/rules", s.ruleH.Clear)
	mux.HandleFunc("PUT /api/rules/{id}", s.ruleH.Update)
	mux.HandleFunc("DELETE /api/rules/{id}", s.ruleH.Delete)

	// Occurrences
	mux.HandleFunc("POST /api/occurrences/{id}/complete", s.occurrenceH.Complete)
	mux.HandleFunc("DELETE /api/occurrences/{id}/complete", s.occurrenceH.Uncomplete)
	mux.HandleFunc("PUT /api/occurrences/{id}/reschedule", s.occurrenceH.Reschedule)
	mux.HandleFunc("PUT /api/occurrences/{id}/reassign", s.occurrenceH.Reassign)
	mux.HandleFunc("POST /api/households/{id}/rooms/{roomID}/assign", s.occurrenceH.AssignDirect)

	// Settings + backups
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("GET /api/backup/list", s.backupH.List)

	// WebSocket sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

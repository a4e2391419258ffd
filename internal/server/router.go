package server

import (
	"encoding/json"
	"net/http"

	"github.com/dshills/tasklisthub/internal/cell"
	"github.com/dshills/tasklisthub/internal/collab"
	"github.com/dshills/tasklisthub/internal/emit"
	"github.com/dshills/tasklisthub/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Deps collects the collaborators a router needs to wire its handlers.
// Habit-tracker integration is a side-channel to the task list hub proper;
// see collab.HabitTracker.
type Deps struct {
	Auth         collab.Auth
	HabitTracker collab.HabitTracker
	Registry     *cell.Registry
	Emitter      emit.Emitter
	Recorder     session.Recorder
}

// NewRouter builds the hub's HTTP mux: the WebSocket upgrade endpoint and
// the habit-tracker integration REST routes.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	router.
		Path("/task-updates").
		Methods(http.MethodGet).
		HandlerFunc(newWebsocketHandler(deps))

	router.
		Path("/integrations/habittracker").
		Methods(http.MethodPost).
		HandlerFunc(habitTrackerNewHandler(deps))

	router.
		Path("/integrations/habittracker").
		Methods(http.MethodGet).
		HandlerFunc(habitTrackerViewHandler(deps))

	return router
}

type habitTrackerNewRequest struct {
	APIKey            string `json:"api_key"`
	IntegrationUserID string `json:"integration_user_id"`
	IntegrationAPIKey string `json:"integration_api_key"`
}

type habitTrackerViewRequest struct {
	APIKey string `json:"api_key"`
}

type habitTrackerResponse struct {
	IntegrationUserID string `json:"integration_user_id"`
	IntegrationAPIKey string `json:"integration_api_key"`
}

// habitTrackerNewHandler registers (or replaces) a user's habit-tracker
// credentials, mirroring habitica_integration_new's auth-then-upsert shape.
func habitTrackerNewHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req habitTrackerNewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		user, err := deps.Auth.Resolve(r.Context(), req.APIKey)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		creds, err := deps.HabitTracker.Add(r.Context(), user.UserID, req.IntegrationUserID, req.IntegrationAPIKey)
		if err != nil {
			log.WithError(err).Warn("failed to add habit tracker integration")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, habitTrackerResponse{
			IntegrationUserID: creds.IntegrationUserID,
			IntegrationAPIKey: creds.IntegrationAPIKey,
		})
	}
}

// habitTrackerViewHandler returns the caller's most recently registered
// habit-tracker credentials, mirroring habitica_integration_view.
func habitTrackerViewHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req habitTrackerViewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		user, err := deps.Auth.Resolve(r.Context(), req.APIKey)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		creds, err := deps.HabitTracker.GetRecentByUser(r.Context(), user.UserID)
		if err == collab.ErrIntegrationNotFound {
			http.Error(w, "not found", http.StatusNotFound)
			return
		} else if err != nil {
			log.WithError(err).Warn("failed to load habit tracker integration")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, habitTrackerResponse{
			IntegrationUserID: creds.IntegrationUserID,
			IntegrationAPIKey: creds.IntegrationAPIKey,
		})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// upgrader is shared across connections; the task-updates protocol carries
// its own JSON handshake frame rather than a Sec-WebSocket-Protocol header,
// so no subprotocol negotiation is needed here.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Package api is the JSON HTTP surface backing the plant tracker UI:
// thin CRUD glue around the store, with notification checks triggered
// the same way the client app triggered them (on add, edit and load).
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/notify"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	repo        store.Repo
	disp        *notify.Dispatcher
	prefs       *notify.Preferences
	surface     notify.Surface
	log         *zap.Logger
	defaultUser string
}

// New creates the API server.
func New(repo store.Repo, disp *notify.Dispatcher, prefs *notify.Preferences, surface notify.Surface, defaultUser string, log *zap.Logger) *Server {
	return &Server{
		repo:        repo,
		disp:        disp,
		prefs:       prefs,
		surface:     surface,
		log:         log,
		defaultUser: defaultUser,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	mux.HandleFunc("GET /api/plants", s.handleListPlants)
	mux.HandleFunc("POST /api/plants", s.handleCreatePlant)
	mux.HandleFunc("GET /api/plants/{id}", s.handleGetPlant)
	mux.HandleFunc("PUT /api/plants/{id}", s.handleUpdatePlant)
	mux.HandleFunc("DELETE /api/plants/{id}", s.handleDeletePlant)
	mux.HandleFunc("POST /api/plants/{id}/waterings", s.handleAddWatering)
	mux.HandleFunc("DELETE /api/plants/{id}/waterings", s.handleRemoveWatering)

	mux.HandleFunc("GET /api/settings/notifications", s.handleGetNotificationSettings)
	mux.HandleFunc("PUT /api/settings/notifications", s.handleSetNotificationSettings)
	mux.HandleFunc("POST /api/push/subscription", s.handleSaveSubscription)

	return mux
}

// userID resolves the acting user. Authentication is out of scope; the
// header exists so multi-user hosting stays possible.
func (s *Server) userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return s.defaultUser
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

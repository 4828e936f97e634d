package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shereeliao123/buddy-plant-watering-app/internal/domain"
	"github.com/shereeliao123/buddy-plant-watering-app/internal/store"
)

type plantInput struct {
	Name                  string `json:"name"`
	Species               string `json:"species"`
	Location              string `json:"location"`
	WateringFrequencyDays int    `json:"wateringFrequencyDays"`
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := s.repo.ListPlants(r.Context(), s.userID(r))
	if err != nil {
		s.log.Error("list plants", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "list plants failed")
		return
	}
	if plants == nil {
		plants = []domain.Plant{}
	}
	s.writeJSON(w, http.StatusOK, plants)
}

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	var in plantInput
	if err := readJSON(r, &in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	p := domain.Plant{
		ID:                    uuid.NewString(),
		Name:                  in.Name,
		Species:               in.Species,
		Location:              in.Location,
		WateringFrequencyDays: in.WateringFrequencyDays,
	}
	if err := p.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := s.userID(r)
	if err := s.repo.CreatePlant(r.Context(), userID, &p); err != nil {
		s.log.Error("create plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "create plant failed")
		return
	}

	// A new plant has never been watered, so it may be due right now.
	s.disp.CheckAndNotify(r.Context(), userID, p)

	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetPlant(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "plant not found")
		return
	}
	if err != nil {
		s.log.Error("get plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "get plant failed")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	var in plantInput
	if err := readJSON(r, &in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	p, err := s.repo.GetPlant(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "plant not found")
		return
	}
	if err != nil {
		s.log.Error("load plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "update plant failed")
		return
	}

	p.Name = in.Name
	p.Species = in.Species
	p.Location = in.Location
	p.WateringFrequencyDays = in.WateringFrequencyDays
	if err := p.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.repo.UpdatePlant(r.Context(), p); err != nil {
		s.log.Error("update plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "update plant failed")
		return
	}

	// An edit can change the schedule, so re-run the check.
	s.disp.CheckAndNotify(r.Context(), s.userID(r), *p)

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	err := s.repo.DeletePlant(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "plant not found")
		return
	}
	if err != nil {
		s.log.Error("delete plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "delete plant failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wateringInput struct {
	WateredAt time.Time `json:"wateredAt"`
}

func (s *Server) handleAddWatering(w http.ResponseWriter, r *http.Request) {
	var in wateringInput
	if err := readJSON(r, &in); err != nil || in.WateredAt.IsZero() {
		s.writeError(w, http.StatusBadRequest, "wateredAt is required")
		return
	}
	plantID := r.PathValue("id")
	if _, err := s.repo.GetPlant(r.Context(), plantID); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "plant not found")
		return
	}
	if err := s.repo.AddWatering(r.Context(), plantID, in.WateredAt); err != nil {
		s.log.Error("add watering", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "add watering failed")
		return
	}
	p, err := s.repo.GetPlant(r.Context(), plantID)
	if err != nil {
		s.log.Error("reload plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "add watering failed")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRemoveWatering(w http.ResponseWriter, r *http.Request) {
	var in wateringInput
	if err := readJSON(r, &in); err != nil || in.WateredAt.IsZero() {
		s.writeError(w, http.StatusBadRequest, "wateredAt is required")
		return
	}
	plantID := r.PathValue("id")
	if err := s.repo.RemoveWatering(r.Context(), plantID, in.WateredAt); err != nil {
		s.log.Error("remove watering", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "remove watering failed")
		return
	}
	p, err := s.repo.GetPlant(r.Context(), plantID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "plant not found")
		return
	}
	if err != nil {
		s.log.Error("reload plant", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "remove watering failed")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

type settingsPayload struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	enabled := s.prefs.Get(r.Context(), s.userID(r))
	s.writeJSON(w, http.StatusOK, settingsPayload{Enabled: enabled})
}

func (s *Server) handleSetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsPayload
	if err := readJSON(r, &in); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	// Permission is requested once here, at the settings surface, and a
	// denial is reported once here rather than on every plant check.
	if in.Enabled && !s.surface.RequestPermission(r.Context()) {
		s.writeError(w, http.StatusForbidden, "notification permission denied")
		return
	}

	got, err := s.prefs.Set(r.Context(), s.userID(r), in.Enabled)
	if err != nil {
		// Report the persisted state; a failed enable never claims success.
		s.writeJSON(w, http.StatusBadGateway, settingsPayload{Enabled: got})
		return
	}
	s.writeJSON(w, http.StatusOK, settingsPayload{Enabled: got})
}

func (s *Server) handleSaveSubscription(w http.ResponseWriter, r *http.Request) {
	var sub domain.PushSubscription
	if err := readJSON(r, &sub); err != nil || sub.Endpoint == "" {
		s.writeError(w, http.StatusBadRequest, "endpoint is required")
		return
	}
	if err := s.repo.SaveSubscription(r.Context(), s.userID(r), sub); err != nil {
		s.log.Error("save subscription", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "save subscription failed")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

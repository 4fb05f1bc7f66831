package handlers

import (
	"log/slog"
	"net/http"

	"github.com/pribylovaa/waste-directory/internal/models"
	"github.com/pribylovaa/waste-directory/pkg/log"
)

type HomeView struct {
	User  *models.Identity     `json:"user"`
	Stats *models.HealthCounts `json:"stats,omitempty"`
}

type SessionView struct {
	Authenticated bool             `json:"authenticated"`
	User          *models.Identity `json:"user"`
}

// Home — главная. Сводка бэкенда необязательна: её отсутствие только логируется.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	view := HomeView{User: h.Session.Snapshot().Identity}

	health, err := h.Backend.Health(r.Context())
	if err != nil {
		log.From(r.Context()).Warn("home_stats_unavailable", slog.String("err", err.Error()))
	} else {
		view.Stats = &health.Data
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handlers) SessionInfo(w http.ResponseWriter, r *http.Request) {
	snap := h.Session.Snapshot()
	writeJSON(w, http.StatusOK, SessionView{Authenticated: snap.Authenticated(), User: snap.Identity})
}

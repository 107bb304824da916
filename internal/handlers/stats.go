package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tubemark-backend/internal/middleware"
	"tubemark-backend/internal/models"
)

type dashboardSource interface {
	Dashboard(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error)
}

type StatsHandler struct {
	*Responder
	stats dashboardSource
}

func NewStatsHandler(rs *Responder, stats dashboardSource) *StatsHandler {
	return &StatsHandler{Responder: rs, stats: stats}
}

func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to fetch statistics")
		return
	}

	h.ok(w, stats, "")
}

// Health is public and reports liveness only.
func Health(environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": environment,
		})
	}
}

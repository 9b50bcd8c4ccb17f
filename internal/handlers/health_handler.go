package handlers

import (
	"context"
	"net/http"
	"time"

	"mathwizard/internal/logging"
)

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db      Pinger
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Healthz returns 200 when the database answers a ping within two seconds
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	uptime := time.Since(h.started).Round(time.Second).String()
	if err := h.db.PingContext(ctx); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
		respondJSON(w, http.StatusServiceUnavailable, envelope{
			"success":  false,
			"status":   "degraded",
			"database": "unreachable",
			"uptime":   uptime,
		})
		return
	}

	respondSuccess(w, http.StatusOK, envelope{
		"status":   "ok",
		"database": "ok",
		"uptime":   uptime,
	})
}

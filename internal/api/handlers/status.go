package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vibelive/backend/internal/api/response"
	"github.com/vibelive/backend/internal/cache"
	"github.com/vibelive/backend/internal/config"
	"github.com/vibelive/backend/internal/database"
	"github.com/vibelive/backend/internal/janitor"
)

// StatusHandler handles the system status endpoint
type StatusHandler struct {
	db        *database.DB
	cache     *cache.Redis
	cfg       *config.Config
	janitor   *janitor.Janitor
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *database.DB, cache *cache.Redis, cfg *config.Config, j *janitor.Janitor) *StatusHandler {
	return &StatusHandler{
		db:        db,
		cache:     cache,
		cfg:       cfg,
		janitor:   j,
		startTime: time.Now(),
	}
}

// ServiceStatusResponse represents backing service health
type ServiceStatusResponse struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// JanitorStatusResponse represents sweeper statistics
type JanitorStatusResponse struct {
	LastSweep string `json:"last_sweep,omitempty"`
	Sweeps    int64  `json:"sweeps"`
	Deleted   int64  `json:"deleted"`
}

// SystemStatusResponse represents the full system status
type SystemStatusResponse struct {
	Status       string                `json:"status"`
	Uptime       string                `json:"uptime"`
	Environment  string                `json:"environment"`
	Timestamp    string                `json:"timestamp"`
	TrialEnabled bool                  `json:"trial_enabled"`
	Services     ServiceStatusResponse `json:"services"`
	Janitor      JanitorStatusResponse `json:"janitor"`
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "operational"
	services := ServiceStatusResponse{Database: "up", Redis: "up"}
	if err := h.db.Ping(ctx); err != nil {
		services.Database = "down"
		status = "degraded"
	}
	if err := h.cache.Health(ctx); err != nil {
		services.Redis = "down"
		status = "degraded"
	}

	var js JanitorStatusResponse
	if h.janitor != nil {
		lastSweep, sweeps, deleted := h.janitor.Stats()
		if !lastSweep.IsZero() {
			js.LastSweep = lastSweep.UTC().Format(time.RFC3339)
		}
		js.Sweeps = sweeps
		js.Deleted = deleted
	}

	response.Success(w, SystemStatusResponse{
		Status:       status,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Environment:  h.cfg.Env,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		TrialEnabled: h.cfg.TrialEnabled,
		Services:     services,
		Janitor:      js,
	})
}

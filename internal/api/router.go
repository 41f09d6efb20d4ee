package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/vibelive/backend/internal/api/handlers"
	"github.com/vibelive/backend/internal/cache"
	"github.com/vibelive/backend/internal/config"
	"github.com/vibelive/backend/internal/database"
	"github.com/vibelive/backend/internal/janitor"
	"github.com/vibelive/backend/internal/middleware"
	"github.com/vibelive/backend/internal/ratelimit"
)

// NewRouter creates and configures the main router
func NewRouter(cfg *config.Config, db *database.DB, redisCache *cache.Redis, trialSvc handlers.TrialAPI, j *janitor.Janitor) *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := ratelimit.NewIPLimiter(redisCache, ratelimit.IPLimits{
		PerMinute: cfg.IPRequestsPerMinute,
		PerDay:    cfg.IPRequestsPerDay,
	})

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Timing)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORSWithOrigins(cfg.CORSOrigins))
	r.Use(ipLimiter.Middleware)

	// Handlers
	healthHandler := handlers.NewHealthChecker(db, redisCache)
	trialHandler := handlers.NewTrialHandler(trialSvc)
	statusHandler := handlers.NewStatusHandler(db, redisCache, cfg, j)
	adminHandler := handlers.NewAdminHandler(j)

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", handlers.LivenessProbe)
	r.Get("/health/ready", healthHandler.ReadinessProbe)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/trial/issue", trialHandler.Issue)
		r.Post("/trial/chat", trialHandler.Chat)
		r.Post("/trial/call", trialHandler.Call)
		r.Post("/trial/reaction", trialHandler.Reaction)
		r.Get("/trial/status", trialHandler.Quota)

		r.Get("/status", statusHandler.GetStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminKey(cfg.AdminKeyHash))
			r.Post("/trial/sweep", adminHandler.Sweep)
		})
	})

	return r
}

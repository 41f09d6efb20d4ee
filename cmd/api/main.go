package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibelive/backend/internal/ai"
	"github.com/vibelive/backend/internal/api"
	"github.com/vibelive/backend/internal/cache"
	"github.com/vibelive/backend/internal/config"
	"github.com/vibelive/backend/internal/database"
	"github.com/vibelive/backend/internal/janitor"
	"github.com/vibelive/backend/internal/ratelimit"
	"github.com/vibelive/backend/internal/repository"
	"github.com/vibelive/backend/internal/risk"
	"github.com/vibelive/backend/internal/rtc"
	"github.com/vibelive/backend/internal/trial"
)

func main() {
	cfg := config.Load()

	log.Printf("[main] Starting vibelive trial API (env=%s)", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalf("[main] Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	redisCache, err := cache.NewRedisFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("[main] Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	loc := cfg.Location()

	// Stores and limiters
	trialRepo := repository.NewTrialRepository(db)
	policyRepo := repository.NewTrialConfigRepository(db, redisCache, cfg.TrialPolicy(), cfg.PolicyCacheTTL)
	deviceLimiter := ratelimit.NewDeviceLimiter(redisCache, ratelimit.DeviceLimits{
		AIPerDay:    cfg.DeviceAIPerDay,
		CallsPerDay: cfg.DeviceCallsPerDay,
	}, loc)

	// External providers
	riskClient := risk.NewClient(cfg.RiskVerifyURL, cfg.RiskVerifySecret, cfg.RiskTimeout)
	rtcIssuer := rtc.NewIssuer(cfg.RTCAppID, cfg.RTCAppSecret, time.Duration(cfg.CallGraceSeconds)*time.Second)
	aiClient := ai.NewClientWithOptions(cfg.AIAPIKey, "", cfg.AITimeout)
	replySvc := ai.NewReplyService(aiClient, cfg.AIModel)

	trialSvc := trial.NewService(trial.Deps{
		Store:             trialRepo,
		Devices:           deviceLimiter,
		Policies:          policyRepo,
		Risk:              riskClient,
		RTC:               rtcIssuer,
		Replies:           replySvc,
		Location:          loc,
		OriginSalt:        cfg.OriginSalt,
		NeutralRiskScore:  cfg.RiskNeutralScore,
		DegradedRiskScore: cfg.RiskDegradedScore,
		FlagThreshold:     cfg.RiskFlagThreshold,
	})

	// Stale-identity sweeper; counter resets themselves stay lazy.
	j := janitor.New(trialRepo, cfg.SweepInterval, cfg.SweepRetention)
	j.Start(ctx)
	defer j.Stop()

	router := api.NewRouter(cfg, db, redisCache, trialSvc, j)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[main] Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[main] Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] Server forced to shutdown: %v", err)
	}

	log.Println("[main] Server stopped")
}

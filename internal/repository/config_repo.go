package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vibelive/backend/internal/cache"
	"github.com/vibelive/backend/internal/database"
	"github.com/vibelive/backend/internal/models"
)

// policyCacheKey is where the administered policy document is cached.
const policyCacheKey = "trial:policy"

// TrialConfigRepository reads the externally administered trial policy. The
// single trial_config row is the source of truth; reads go through a short
// Redis cache so every consume does not hit Postgres. When no row has been
// administered the env-derived fallback policy applies.
type TrialConfigRepository struct {
	db       *database.DB
	cache    *cache.Redis
	fallback models.TrialPolicy
	ttl      time.Duration
}

// NewTrialConfigRepository creates a new trial config repository
func NewTrialConfigRepository(db *database.DB, c *cache.Redis, fallback models.TrialPolicy, ttl time.Duration) *TrialConfigRepository {
	return &TrialConfigRepository{db: db, cache: c, fallback: fallback, ttl: ttl}
}

// Policy returns the current trial policy.
func (r *TrialConfigRepository) Policy(ctx context.Context) (models.TrialPolicy, error) {
	if cached, err := r.cache.Get(ctx, policyCacheKey); err == nil {
		var policy models.TrialPolicy
		if err := json.Unmarshal([]byte(cached), &policy); err == nil {
			return policy, nil
		}
	}

	policy, err := r.load(ctx)
	if err != nil {
		return models.TrialPolicy{}, err
	}

	if encoded, err := json.Marshal(policy); err == nil {
		if err := r.cache.Set(ctx, policyCacheKey, encoded, r.ttl); err != nil {
			log.Printf("[config] failed to cache trial policy: %v", err)
		}
	}

	return policy, nil
}

func (r *TrialConfigRepository) load(ctx context.Context) (models.TrialPolicy, error) {
	query := `
		SELECT enabled, chat_messages_per_day, calls_per_day, call_seconds,
		       reaction_limit, happy_hours, require_happy_hour, min_captcha_score
		FROM trial_config
		WHERE id = 1
	`
	var (
		policy     models.TrialPolicy
		happyHours []byte
	)
	err := r.db.QueryRow(ctx, query).Scan(
		&policy.Enabled, &policy.ChatMessagesPerDay, &policy.CallsPerDay,
		&policy.CallSeconds, &policy.ReactionLimit, &happyHours,
		&policy.RequireHappyHour, &policy.MinCaptchaScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.fallback, nil
		}
		return models.TrialPolicy{}, fmt.Errorf("failed to load trial config: %w", err)
	}

	if len(happyHours) > 0 {
		if err := json.Unmarshal(happyHours, &policy.HappyHours); err != nil {
			return models.TrialPolicy{}, fmt.Errorf("failed to parse happy hours: %w", err)
		}
	}

	return policy, nil
}

// StaticPolicyProvider serves a fixed policy. Used in development when no
// database-administered config exists, and by tests.
type StaticPolicyProvider struct {
	policy models.TrialPolicy
}

// NewStaticPolicyProvider creates a provider that always returns policy.
func NewStaticPolicyProvider(policy models.TrialPolicy) *StaticPolicyProvider {
	return &StaticPolicyProvider{policy: policy}
}

// Policy returns the fixed policy.
func (p *StaticPolicyProvider) Policy(ctx context.Context) (models.TrialPolicy, error) {
	return p.policy, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vibelive/backend/internal/database"
	"github.com/vibelive/backend/internal/models"
	"github.com/vibelive/backend/internal/trial"
)

// TrialRepository is the Postgres-backed trial identity store. Mutate
// serializes concurrent consumptions for one token with a row lock.
type TrialRepository struct {
	db *database.DB
}

// NewTrialRepository creates a new trial repository
func NewTrialRepository(db *database.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

const trialColumns = `token, device_id, user_agent, screen, timezone, locale,
	origin_hash, day_key, chat_used, calls_used, seconds_used, reactions_used,
	risk_score, flagged, created_at, updated_at`

// Create persists a freshly issued trial identity.
func (r *TrialRepository) Create(ctx context.Context, id *models.TrialIdentity) error {
	query := `
		INSERT INTO trial_identities (` + trialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		id.Token,
		id.Fingerprint.DeviceID, id.Fingerprint.UserAgent, id.Fingerprint.Screen,
		id.Fingerprint.Timezone, id.Fingerprint.Locale,
		id.OriginHash, id.DayKey,
		id.ChatUsed, id.CallsUsed, id.SecondsUsed, id.ReactionsUsed,
		id.RiskScore, id.Flagged, id.CreatedAt, id.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create trial identity: %w", err)
	}
	return nil
}

// Get retrieves a trial identity by token.
func (r *TrialRepository) Get(ctx context.Context, token string) (*models.TrialIdentity, error) {
	query := `SELECT ` + trialColumns + ` FROM trial_identities WHERE token = $1`
	id, err := scanIdentity(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trial.ErrUnknownToken
		}
		return nil, fmt.Errorf("failed to get trial identity: %w", err)
	}
	return id, nil
}

// Mutate loads the identity under a row lock, applies fn, and writes the
// result back, all inside one transaction. A second caller for the same
// token blocks on the lock until the first commits, so a ceiling can never
// be overrun by a lost update. fn errors abort the transaction unchanged.
func (r *TrialRepository) Mutate(ctx context.Context, token string, fn func(id *models.TrialIdentity) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + trialColumns + ` FROM trial_identities WHERE token = $1 FOR UPDATE`
		id, err := scanIdentity(tx.QueryRow(ctx, query, token))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return trial.ErrUnknownToken
			}
			return fmt.Errorf("failed to lock trial identity: %w", err)
		}

		if err := fn(id); err != nil {
			return err
		}

		update := `
			UPDATE trial_identities
			SET day_key = $2, chat_used = $3, calls_used = $4,
			    seconds_used = $5, reactions_used = $6, updated_at = $7
			WHERE token = $1
		`
		if _, err := tx.Exec(ctx, update,
			id.Token, id.DayKey, id.ChatUsed, id.CallsUsed,
			id.SecondsUsed, id.ReactionsUsed, id.UpdatedAt); err != nil {
			return fmt.Errorf("failed to update trial identity: %w", err)
		}
		return nil
	})
}

// DeleteStale removes identities that have not been touched since the cutoff.
func (r *TrialRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := r.db.Exec(ctx, `DELETE FROM trial_identities WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale trial identities: %w", err)
	}
	return deleted, nil
}

func scanIdentity(row pgx.Row) (*models.TrialIdentity, error) {
	var id models.TrialIdentity
	err := row.Scan(
		&id.Token,
		&id.Fingerprint.DeviceID, &id.Fingerprint.UserAgent, &id.Fingerprint.Screen,
		&id.Fingerprint.Timezone, &id.Fingerprint.Locale,
		&id.OriginHash, &id.DayKey,
		&id.ChatUsed, &id.CallsUsed, &id.SecondsUsed, &id.ReactionsUsed,
		&id.RiskScore, &id.Flagged, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

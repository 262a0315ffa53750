package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the idempotent DDL for the challenge tables. Attempts and
// pairings are append-only; neither table carries an updated_at column.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS challenges (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		app_id UUID NOT NULL,
		workflow_id UUID,
		name TEXT NOT NULL,
		description TEXT,
		goal TEXT,
		success_type VARCHAR(64) NOT NULL DEFAULT 'regex',
		success_pattern TEXT,
		evaluator_type VARCHAR(32) NOT NULL DEFAULT 'rules',
		scoring_strategy VARCHAR(64) NOT NULL DEFAULT 'first',
		scoring_plugin_id TEXT,
		scoring_entrypoint TEXT,
		scoring_config JSONB,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by UUID,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS challenges_tenant_id_idx ON challenges (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS challenges_app_id_idx ON challenges (app_id)`,

	`CREATE TABLE IF NOT EXISTS challenge_attempts (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL,
		challenge_id UUID NOT NULL,
		end_user_id UUID,
		account_id UUID,
		workflow_run_id UUID,
		succeeded BOOLEAN NOT NULL DEFAULT FALSE,
		score DOUBLE PRECISION,
		judge_rating INTEGER,
		judge_feedback TEXT,
		judge_output_raw JSONB,
		tokens_total INTEGER,
		elapsed_ms INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS challenge_attempts_tenant_id_idx ON challenge_attempts (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS challenge_attempts_challenge_id_idx ON challenge_attempts (challenge_id)`,

	`CREATE TABLE IF NOT EXISTS team_submissions (
		id UUID PRIMARY KEY,
		red_blue_challenge_id UUID NOT NULL,
		tenant_id UUID NOT NULL,
		account_id UUID,
		end_user_id UUID,
		team VARCHAR(16) NOT NULL,
		prompt TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS team_submissions_challenge_id_idx ON team_submissions (red_blue_challenge_id)`,

	`CREATE TABLE IF NOT EXISTS team_pairings (
		id UUID PRIMARY KEY,
		red_blue_challenge_id UUID NOT NULL,
		tenant_id UUID NOT NULL,
		attack_submission_id UUID,
		defense_submission_id UUID,
		judge_output_raw JSONB,
		categories JSONB,
		judge_rating INTEGER,
		judge_feedback TEXT,
		red_points DOUBLE PRECISION NOT NULL DEFAULT 0,
		blue_points DOUBLE PRECISION NOT NULL DEFAULT 0,
		tokens_total INTEGER,
		elapsed_ms INTEGER,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS team_pairings_challenge_id_idx ON team_pairings (red_blue_challenge_id)`,
}

// Migrate applies the challenge schema. Every statement is idempotent so
// Migrate is safe to run at each service start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	slog.Info("challenge schema up to date")
	return nil
}

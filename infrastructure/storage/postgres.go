package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ahrav/go-arena/internal/domain"
	"github.com/ahrav/go-arena/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ ports.ChallengeStore = (*PostgresStore)(nil)
	_ ports.AttemptStore   = (*PostgresStore)(nil)
	_ ports.PairingStore   = (*PostgresStore)(nil)
)

// PostgresStore implements the challenge, attempt, and pairing stores
// on PostgreSQL using a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresStore creates a PostgreSQL store and verifies connectivity.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close closes the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// GetChallenge returns the challenge with the given id.
func (s *PostgresStore) GetChallenge(ctx context.Context, id string) (*domain.Challenge, error) {
	query := `
		SELECT id, tenant_id, app_id, COALESCE(workflow_id, ''),
		       name, COALESCE(description, ''), COALESCE(goal, ''),
		       success_type, COALESCE(success_pattern, ''),
		       evaluator_type, scoring_strategy,
		       COALESCE(scoring_plugin_id, ''), COALESCE(scoring_entrypoint, ''),
		       scoring_config, is_active, COALESCE(created_by, ''),
		       created_at, updated_at
		FROM challenges
		WHERE id = $1
	`

	var c domain.Challenge
	var scoringConfig []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.TenantID, &c.AppID, &c.WorkflowID,
		&c.Name, &c.Description, &c.Goal,
		&c.SuccessType, &c.SuccessPattern,
		&c.EvaluatorType, &c.ScoringStrategy,
		&c.ScoringPluginID, &c.ScoringEntrypoint,
		&scoringConfig, &c.IsActive, &c.CreatedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	if len(scoringConfig) > 0 {
		if err := json.Unmarshal(scoringConfig, &c.ScoringConfig); err != nil {
			return nil, fmt.Errorf("failed to decode scoring config: %w", err)
		}
	}
	return &c, nil
}

// CreateChallenge persists a new challenge configuration.
func (s *PostgresStore) CreateChallenge(ctx context.Context, c *domain.Challenge) error {
	if err := c.Validate(); err != nil {
		return err
	}

	scoringConfig, err := marshalJSONB(c.ScoringConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring config: %w", err)
	}

	query := `
		INSERT INTO challenges (
			id, tenant_id, app_id, workflow_id, name, description, goal,
			success_type, success_pattern, evaluator_type,
			scoring_strategy, scoring_plugin_id, scoring_entrypoint,
			scoring_config, is_active, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''),
		        $8, NULLIF($9, ''), $10, $11, NULLIF($12, ''), NULLIF($13, ''),
		        $14, $15, NULLIF($16, ''), $17, $18)
	`
	_, err = s.pool.Exec(ctx, query,
		c.ID, c.TenantID, c.AppID, c.WorkflowID, c.Name, c.Description, c.Goal,
		c.SuccessType, c.SuccessPattern, c.EvaluatorType,
		c.ScoringStrategy, c.ScoringPluginID, c.ScoringEntrypoint,
		scoringConfig, c.IsActive, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// ListActiveChallenges returns active challenges for a tenant, newest
// first.
func (s *PostgresStore) ListActiveChallenges(ctx context.Context, tenantID string) ([]*domain.Challenge, error) {
	query := `
		SELECT id, tenant_id, app_id, COALESCE(workflow_id, ''),
		       name, COALESCE(description, ''), COALESCE(goal, ''),
		       success_type, COALESCE(success_pattern, ''),
		       evaluator_type, scoring_strategy,
		       COALESCE(scoring_plugin_id, ''), COALESCE(scoring_entrypoint, ''),
		       scoring_config, is_active, COALESCE(created_by, ''),
		       created_at, updated_at
		FROM challenges
		WHERE tenant_id = $1 AND is_active
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*domain.Challenge
	for rows.Next() {
		var c domain.Challenge
		var scoringConfig []byte
		if err := rows.Scan(
			&c.ID, &c.TenantID, &c.AppID, &c.WorkflowID,
			&c.Name, &c.Description, &c.Goal,
			&c.SuccessType, &c.SuccessPattern,
			&c.EvaluatorType, &c.ScoringStrategy,
			&c.ScoringPluginID, &c.ScoringEntrypoint,
			&scoringConfig, &c.IsActive, &c.CreatedBy,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		if len(scoringConfig) > 0 {
			if err := json.Unmarshal(scoringConfig, &c.ScoringConfig); err != nil {
				return nil, fmt.Errorf("failed to decode scoring config: %w", err)
			}
		}
		challenges = append(challenges, &c)
	}
	return challenges, rows.Err()
}

// CreateAttempt appends one immutable attempt record.
func (s *PostgresStore) CreateAttempt(ctx context.Context, a *domain.Attempt) error {
	if a.TenantID == "" || a.ChallengeID == "" {
		return domain.ErrAttemptMissingRequired
	}

	judgeRaw, err := marshalJSONB(a.JudgeOutputRaw)
	if err != nil {
		return fmt.Errorf("failed to marshal judge output: %w", err)
	}

	query := `
		INSERT INTO challenge_attempts (
			id, tenant_id, challenge_id, end_user_id, account_id,
			workflow_run_id, succeeded, score, judge_rating,
			judge_feedback, judge_output_raw, tokens_total, elapsed_ms,
			created_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
		        $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14)
	`
	_, err = s.pool.Exec(ctx, query,
		a.ID, a.TenantID, a.ChallengeID, a.EndUserID, a.AccountID,
		a.WorkflowRunID, a.Succeeded, a.Score, a.JudgeRating,
		a.JudgeFeedback, judgeRaw, a.TokensTotal, a.ElapsedMS,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

// ListSuccessfulAttempts returns successful attempts for a challenge in
// creation order. Strategy-specific ordering is applied by the
// leaderboard ranker so every store backend ranks identically.
func (s *PostgresStore) ListSuccessfulAttempts(ctx context.Context, challengeID string) ([]*domain.Attempt, error) {
	query := `
		SELECT id, tenant_id, challenge_id, COALESCE(end_user_id, ''),
		       COALESCE(account_id, ''), COALESCE(workflow_run_id, ''),
		       succeeded, score, judge_rating, COALESCE(judge_feedback, ''),
		       judge_output_raw, tokens_total, elapsed_ms, created_at
		FROM challenge_attempts
		WHERE challenge_id = $1 AND succeeded
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var judgeRaw []byte
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.ChallengeID, &a.EndUserID,
			&a.AccountID, &a.WorkflowRunID,
			&a.Succeeded, &a.Score, &a.JudgeRating, &a.JudgeFeedback,
			&judgeRaw, &a.TokensTotal, &a.ElapsedMS, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if len(judgeRaw) > 0 {
			if err := json.Unmarshal(judgeRaw, &a.JudgeOutputRaw); err != nil {
				return nil, fmt.Errorf("failed to decode judge output: %w", err)
			}
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

// CreateSubmission persists a team prompt submission.
func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *domain.TeamSubmission) error {
	query := `
		INSERT INTO team_submissions (
			id, red_blue_challenge_id, tenant_id, account_id, end_user_id,
			team, prompt, active, created_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
	`
	_, err := s.pool.Exec(ctx, query,
		sub.ID, sub.ChallengeID, sub.TenantID, sub.AccountID, sub.EndUserID,
		sub.Team, sub.Prompt, sub.Active, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// LatestActiveSubmission returns the most recent active submission for
// the given team, or nil when the team has none.
func (s *PostgresStore) LatestActiveSubmission(
	ctx context.Context, challengeID string, team domain.Team,
) (*domain.TeamSubmission, error) {
	query := `
		SELECT id, red_blue_challenge_id, tenant_id,
		       COALESCE(account_id, ''), COALESCE(end_user_id, ''),
		       team, prompt, active, created_at
		FROM team_submissions
		WHERE red_blue_challenge_id = $1 AND team = $2 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`

	var sub domain.TeamSubmission
	err := s.pool.QueryRow(ctx, query, challengeID, team).Scan(
		&sub.ID, &sub.ChallengeID, &sub.TenantID,
		&sub.AccountID, &sub.EndUserID,
		&sub.Team, &sub.Prompt, &sub.Active, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// CreatePairing appends one immutable pairing record.
func (s *PostgresStore) CreatePairing(ctx context.Context, p *domain.TeamPairing) error {
	judgeRaw, err := marshalJSONB(p.JudgeOutputRaw)
	if err != nil {
		return fmt.Errorf("failed to marshal judge output: %w", err)
	}
	categories, err := marshalJSONB(p.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	query := `
		INSERT INTO team_pairings (
			id, red_blue_challenge_id, tenant_id, attack_submission_id,
			defense_submission_id, judge_output_raw, categories,
			judge_rating, judge_feedback, red_points, blue_points,
			tokens_total, elapsed_ms, created_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8,
		        NULLIF($9, ''), $10, $11, $12, $13, $14)
	`
	_, err = s.pool.Exec(ctx, query,
		p.ID, p.ChallengeID, p.TenantID, p.AttackSubmissionID,
		p.DefenseSubmissionID, judgeRaw, categories,
		p.JudgeRating, p.JudgeFeedback, p.RedPoints, p.BluePoints,
		p.TokensTotal, p.ElapsedMS, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pairing: %w", err)
	}
	return nil
}

// ListPairings returns pairings for a challenge, newest first, capped at
// limit.
func (s *PostgresStore) ListPairings(ctx context.Context, challengeID string, limit int) ([]*domain.TeamPairing, error) {
	query := `
		SELECT id, red_blue_challenge_id, tenant_id,
		       COALESCE(attack_submission_id, ''),
		       COALESCE(defense_submission_id, ''),
		       judge_output_raw, categories, judge_rating,
		       COALESCE(judge_feedback, ''), red_points, blue_points,
		       tokens_total, elapsed_ms, created_at
		FROM team_pairings
		WHERE red_blue_challenge_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, challengeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pairings: %w", err)
	}
	defer rows.Close()

	var pairings []*domain.TeamPairing
	for rows.Next() {
		var p domain.TeamPairing
		var judgeRaw, categories []byte
		if err := rows.Scan(
			&p.ID, &p.ChallengeID, &p.TenantID,
			&p.AttackSubmissionID, &p.DefenseSubmissionID,
			&judgeRaw, &categories, &p.JudgeRating,
			&p.JudgeFeedback, &p.RedPoints, &p.BluePoints,
			&p.TokensTotal, &p.ElapsedMS, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pairing: %w", err)
		}
		if len(judgeRaw) > 0 {
			if err := json.Unmarshal(judgeRaw, &p.JudgeOutputRaw); err != nil {
				return nil, fmt.Errorf("failed to decode judge output: %w", err)
			}
		}
		if len(categories) > 0 {
			if err := json.Unmarshal(categories, &p.Categories); err != nil {
				return nil, fmt.Errorf("failed to decode categories: %w", err)
			}
		}
		pairings = append(pairings, &p)
	}
	return pairings, rows.Err()
}

// marshalJSONB encodes a map for a JSONB column, preserving NULL for
// absent maps.
func marshalJSONB(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edufund/database"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TopUpRuleRepository implements the TopUpRuleRepository interface
type TopUpRuleRepository struct {
	q queryable
}

// NewTopUpRuleRepository creates a new top-up rule repository
func NewTopUpRuleRepository(db *database.DB) *TopUpRuleRepository {
	return &TopUpRuleRepository{q: db.Pool}
}

// newTopUpRuleRepositoryWithTx creates a new top-up rule repository with a transaction
func newTopUpRuleRepositoryWithTx(tx queryable) *TopUpRuleRepository {
	return &TopUpRuleRepository{q: tx}
}

const ruleColumns = `id, name, amount, target, scheduled_time, execute_immediately, status,
		description, internal_remarks, succeeded_count, failed_count, executed_at, created_at, updated_at`

// Create persists a new rule
func (r *TopUpRuleRepository) Create(ctx context.Context, rule *models.TopUpRule) error {
	targetJSON, err := json.Marshal(rule.Target)
	if err != nil {
		return fmt.Errorf("failed to marshal rule target: %w", err)
	}

	query := `
		INSERT INTO topup_rules
		(id, name, amount, target, scheduled_time, execute_immediately, status, description, internal_remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		rule.ID,
		rule.Name,
		rule.Amount,
		targetJSON,
		rule.ScheduledTime,
		rule.ExecuteImmediately,
		rule.Status,
		rule.Description,
		rule.InternalRemarks,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create top-up rule %s: %w", rule.ID, err)
	}
	return nil
}

func scanRule(row pgx.Row) (*models.TopUpRule, error) {
	var rule models.TopUpRule
	var targetJSON []byte

	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Amount,
		&targetJSON,
		&rule.ScheduledTime,
		&rule.ExecuteImmediately,
		&rule.Status,
		&rule.Description,
		&rule.InternalRemarks,
		&rule.SucceededCount,
		&rule.FailedCount,
		&rule.ExecutedAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(targetJSON, &rule.Target); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rule target: %w", err)
	}
	return &rule, nil
}

// GetByID retrieves a rule by ID
func (r *TopUpRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TopUpRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM topup_rules WHERE id = $1`

	rule, err := scanRule(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get top-up rule %s: %w", id, err)
	}
	return rule, nil
}

// List returns rules, optionally filtered by status, newest first
func (r *TopUpRuleRepository) List(ctx context.Context, status *models.TopUpStatus) ([]*models.TopUpRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM topup_rules`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list top-up rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// GetScheduled returns every rule still in the scheduled state, earliest
// fire time first. Immediate rules (null scheduled_time) sort first.
func (r *TopUpRuleRepository) GetScheduled(ctx context.Context) ([]*models.TopUpRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM topup_rules
		WHERE status = 'scheduled'
		ORDER BY scheduled_time ASC NULLS FIRST`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled top-up rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]*models.TopUpRule, error) {
	var rules []*models.TopUpRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top-up rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top-up rules: %w", err)
	}
	return rules, nil
}

// ClaimForExecution transitions scheduled -> executing. The WHERE clause on
// the current status is what arbitrates a fire racing a cancel: exactly one
// of the two conditional updates can match the row.
func (r *TopUpRuleRepository) ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE topup_rules
		SET status = 'executing', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim top-up rule %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// Cancel transitions scheduled -> cancelled under the same claim discipline
func (r *TopUpRuleRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE topup_rules
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel top-up rule %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// Finalize moves an executing rule to its terminal status and records the
// outcome counts
func (r *TopUpRuleRepository) Finalize(ctx context.Context, id uuid.UUID, status models.TopUpStatus, succeeded, failed int, executedAt time.Time) error {
	query := `
		UPDATE topup_rules
		SET status = $1, succeeded_count = $2, failed_count = $3, executed_at = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'executing'
	`

	result, err := r.q.Exec(ctx, query, status, succeeded, failed, executedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finalize top-up rule %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("top-up rule %s is not executing", id)
	}
	return nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"edufund/database"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TopUpRunRepository implements the TopUpRunRepository interface
type TopUpRunRepository struct {
	q queryable
}

// NewTopUpRunRepository creates a new top-up run repository
func NewTopUpRunRepository(db *database.DB) *TopUpRunRepository {
	return &TopUpRunRepository{q: db.Pool}
}

// newTopUpRunRepositoryWithTx creates a new top-up run repository with a transaction
func newTopUpRunRepositoryWithTx(tx queryable) *TopUpRunRepository {
	return &TopUpRunRepository{q: tx}
}

// Create creates a new run record
func (r *TopUpRunRepository) Create(ctx context.Context, run *models.TopUpRun) error {
	summaryJSON, err := json.Marshal(run.ExecutionSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	query := `
		INSERT INTO topup_runs
		(rule_id, run_at, total_targets, succeeded_count, failed_count, total_credited, execution_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		run.RuleID,
		run.RunAt,
		run.TotalTargets,
		run.SucceededCount,
		run.FailedCount,
		run.TotalCredited,
		summaryJSON,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create top-up run for rule %s: %w", run.RuleID, err)
	}
	return nil
}

const runColumns = `id, rule_id, run_at, total_targets, succeeded_count, failed_count, total_credited, execution_summary, created_at`

func scanRun(row pgx.Row) (*models.TopUpRun, error) {
	var run models.TopUpRun
	var summaryJSON []byte

	err := row.Scan(
		&run.ID,
		&run.RuleID,
		&run.RunAt,
		&run.TotalTargets,
		&run.SucceededCount,
		&run.FailedCount,
		&run.TotalCredited,
		&summaryJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &run.ExecutionSummary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution summary: %w", err)
		}
	}
	return &run, nil
}

// GetByRule returns all runs of a rule, newest first
func (r *TopUpRunRepository) GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.TopUpRun, error) {
	query := `SELECT ` + runColumns + ` FROM topup_runs WHERE rule_id = $1 ORDER BY run_at DESC`

	rows, err := r.q.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs for rule %s: %w", ruleID, err)
	}
	defer rows.Close()

	var runs []*models.TopUpRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan top-up run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top-up runs: %w", err)
	}
	return runs, nil
}

// GetLatest returns the most recent run, nil if none exist
func (r *TopUpRunRepository) GetLatest(ctx context.Context) (*models.TopUpRun, error) {
	query := `SELECT ` + runColumns + ` FROM topup_runs ORDER BY run_at DESC LIMIT 1`

	run, err := scanRun(r.q.QueryRow(ctx, query))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest top-up run: %w", err)
	}
	return run, nil
}

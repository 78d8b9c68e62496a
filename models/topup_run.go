package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExecutionOutcome is the per-account result of one credit application
type ExecutionOutcome struct {
	AccountID     int64
	Applied       bool
	FailureReason string
	NewBalance    decimal.Decimal
}

// TopUpRunResult aggregates the outcomes of one rule execution
type TopUpRunResult struct {
	RuleID    uuid.UUID
	Total     int
	Succeeded int
	Failed    int
	Skipped   []int64 // explicit targets that no longer resolved to an active account
	Outcomes  []ExecutionOutcome
}

// TopUpRun represents a persisted execution of a top-up rule
type TopUpRun struct {
	ID               int64                  `db:"id"`
	RuleID           uuid.UUID              `db:"rule_id"`
	RunAt            time.Time              `db:"run_at"`
	TotalTargets     int                    `db:"total_targets"`
	SucceededCount   int                    `db:"succeeded_count"`
	FailedCount      int                    `db:"failed_count"`
	TotalCredited    decimal.Decimal        `db:"total_credited"`
	ExecutionSummary map[string]interface{} `db:"execution_summary"`
	CreatedAt        time.Time              `db:"created_at"`
}

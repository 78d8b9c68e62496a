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

// FundTransactionRepository implements the FundTransactionRepository interface
type FundTransactionRepository struct {
	q queryable
}

// NewFundTransactionRepository creates a new fund transaction repository
func NewFundTransactionRepository(db *database.DB) *FundTransactionRepository {
	return &FundTransactionRepository{q: db.Pool}
}

// newFundTransactionRepositoryWithTx creates a new fund transaction repository with a transaction
func newFundTransactionRepositoryWithTx(tx queryable) *FundTransactionRepository {
	return &FundTransactionRepository{q: tx}
}

// Record creates a new fund transaction entry
func (r *FundTransactionRepository) Record(ctx context.Context, txn *models.FundTransaction) error {
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO fund_transactions
		(account_id, balance_before, balance_after, change_amount, kind, metadata, rule_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.AccountID,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.ChangeAmount,
		txn.Kind,
		metadataJSON,
		txn.RuleID,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record fund transaction for account %d: %w", txn.AccountID, err)
	}
	return nil
}

// GetByAccount returns transactions for an account, newest first
func (r *FundTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.FundTransaction, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount, kind, metadata, rule_id, created_at
		FROM fund_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// GetByRule returns all transactions written by one top-up rule
func (r *FundTransactionRepository) GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.FundTransaction, error) {
	query := `
		SELECT id, account_id, balance_before, balance_after, change_amount, kind, metadata, rule_id, created_at
		FROM fund_transactions
		WHERE rule_id = $1
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for rule %s: %w", ruleID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]*models.FundTransaction, error) {
	var txns []*models.FundTransaction
	for rows.Next() {
		var txn models.FundTransaction
		var metadataJSON []byte

		err := rows.Scan(
			&txn.ID,
			&txn.AccountID,
			&txn.BalanceBefore,
			&txn.BalanceAfter,
			&txn.ChangeAmount,
			&txn.Kind,
			&metadataJSON,
			&txn.RuleID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund transaction: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		txns = append(txns, &txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fund transactions: %w", err)
	}
	return txns, nil
}

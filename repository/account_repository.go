package repository

import (
	"context"
	"fmt"

	"edufund/database"
	"edufund/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `id, full_name, birth_date, balance, education_level_id, schooling_status_id, active, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.AccountHolder, error) {
	var account models.AccountHolder
	err := row.Scan(
		&account.ID,
		&account.FullName,
		&account.BirthDate,
		&account.Balance,
		&account.EducationLevelID,
		&account.SchoolingStatusID,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.AccountHolder, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByIDs retrieves the accounts that exist among the given IDs
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.AccountHolder, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1)`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts by IDs: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// GetAllActive returns every active account
func (r *AccountRepository) GetAllActive(ctx context.Context) ([]*models.AccountHolder, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE active ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*models.AccountHolder, error) {
	var accounts []*models.AccountHolder
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.AccountHolder) error {
	query := `
		INSERT INTO accounts (full_name, birth_date, balance, education_level_id, schooling_status_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.FullName,
		account.BirthDate,
		account.Balance,
		account.EducationLevelID,
		account.SchoolingStatusID,
		account.Active,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account for %s: %w", account.FullName, err)
	}
	return nil
}

// ApplyCredit atomically adds amount to an active account's balance. The
// single-row UPDATE takes the row lock, so concurrent credits against the
// same account serialize instead of losing updates.
func (r *AccountRepository) ApplyCredit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND active
		RETURNING balance
	`

	var newBalance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, id).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, fmt.Errorf("account %d not found or inactive", id)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to apply credit to account %d: %w", id, err)
	}
	return newBalance, nil
}

package repository

import (
	"context"
	"errors"
	"testing"

	"edufund/events"
	"edufund/models"
	"edufund/repository/testutil"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		account := testutil.CreateTestAccountWithBalance("Amina Yusuf", decimal.NewFromInt(2500))
		err := repo.Create(ctx, account)
		require.NoError(t, err)
		assert.NotZero(t, account.ID)
		assert.False(t, account.CreatedAt.IsZero())

		stored, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "Amina Yusuf", stored.FullName)
		assert.True(t, decimal.NewFromInt(2500).Equal(stored.Balance))
		assert.True(t, stored.Active)
	})

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})
}

func TestAccountRepository_GetByIDs(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	first := testutil.CreateTestAccount("First Holder")
	second := testutil.CreateTestAccount("Second Holder")
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	t.Run("missing IDs are simply absent", func(t *testing.T) {
		accounts, err := repo.GetByIDs(ctx, []int64{first.ID, second.ID, 999999})
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		accounts, err := repo.GetByIDs(ctx, []int64{})
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})
}

func TestAccountRepository_ApplyCredit(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("credit updates balance", func(t *testing.T) {
		account := testutil.CreateTestAccountWithBalance("Credit Target", decimal.NewFromInt(1000))
		require.NoError(t, repo.Create(ctx, account))

		newBalance, err := repo.ApplyCredit(ctx, account.ID, decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1500).Equal(newBalance))

		stored, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1500).Equal(stored.Balance))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		account := testutil.CreateTestAccount("No Zero Credits")
		require.NoError(t, repo.Create(ctx, account))

		_, err := repo.ApplyCredit(ctx, account.ID, decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("rejects inactive account", func(t *testing.T) {
		account := testutil.CreateTestAccount("Inactive Holder")
		account.Active = false
		require.NoError(t, repo.Create(ctx, account))

		_, err := repo.ApplyCredit(ctx, account.ID, decimal.NewFromInt(100))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found or inactive")
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		_, err := repo.ApplyCredit(ctx, 999999, decimal.NewFromInt(100))
		assert.Error(t, err)
	})
}

func TestAccountRepository_GetAllActive(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	active := testutil.CreateTestAccount("Active Holder")
	inactive := testutil.CreateTestAccount("Closed Holder")
	inactive.Active = false
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, inactive))

	accounts, err := repo.GetAllActive(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, active.ID, accounts[0].ID)
}

func TestWithTransaction(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	repo := NewAccountRepository(testDB.DB)

	t.Run("commits on success", func(t *testing.T) {
		var id int64
		err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			account := testutil.CreateTestAccount("Tx Holder")
			if err := newAccountRepositoryWithTx(tx).Create(ctx, account); err != nil {
				return err
			}
			id = account.ID
			return nil
		})
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, stored)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		var id int64
		err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
			account := testutil.CreateTestAccount("Doomed Holder")
			if err := newAccountRepositoryWithTx(tx).Create(ctx, account); err != nil {
				return err
			}
			id = account.ID
			return errors.New("abort")
		})
		require.Error(t, err)

		stored, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

// Verifies the credit-plus-ledger atomicity contract: a rolled back unit of
// work must leave neither the balance change nor the transaction record.
func TestUnitOfWork_CreditAtomicity(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	accountRepo := NewAccountRepository(testDB.DB)
	txnRepo := NewFundTransactionRepository(testDB.DB)

	account := testutil.CreateTestAccountWithBalance("Atomic Holder", decimal.NewFromInt(1000))
	require.NoError(t, accountRepo.Create(ctx, account))

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())

	t.Run("commit persists balance and ledger together", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		newBalance, err := uow.AccountRepository().ApplyCredit(ctx, account.ID, decimal.NewFromInt(200))
		require.NoError(t, err)

		txn := testutil.CreateTestFundTransaction(account.ID, models.TransactionKindTopUp)
		txn.BalanceBefore = newBalance.Sub(decimal.NewFromInt(200))
		txn.BalanceAfter = newBalance
		txn.ChangeAmount = decimal.NewFromInt(200)
		require.NoError(t, uow.FundTransactionRepository().Record(ctx, txn))

		require.NoError(t, uow.Commit())

		stored, err := accountRepo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1200).Equal(stored.Balance))

		history, err := txnRepo.GetByAccount(ctx, account.ID, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.TransactionKindTopUp, history[0].Kind)
	})

	t.Run("rollback discards both writes", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.AccountRepository().ApplyCredit(ctx, account.ID, decimal.NewFromInt(999))
		require.NoError(t, err)
		require.NoError(t, uow.Rollback())

		stored, err := accountRepo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(1200).Equal(stored.Balance))

		history, err := txnRepo.GetByAccount(ctx, account.ID, 10)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})
}

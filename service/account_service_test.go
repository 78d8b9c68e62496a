package service

import (
	"context"
	"testing"
	"time"

	"edufund/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAccountService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	birthDate := time.Date(2012, 3, 4, 0, 0, 0, 0, time.UTC)

	t.Run("opening balance gets an initial transaction", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockAccountRepo := new(MockAccountRepository)
		mockTxnRepo := new(MockFundTransactionRepository)
		mockUoW.SetRepositories(mockAccountRepo, mockTxnRepo, nil, nil, nil)

		svc := NewAccountService(mockFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("Create", ctx, mock.MatchedBy(func(a *models.AccountHolder) bool {
			return a.FullName == "Nadia Osei" && a.Active
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.AccountHolder).ID = 7
		}).Return(nil)
		mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.FundTransaction) bool {
			return txn.AccountID == 7 &&
				txn.Kind == models.TransactionKindInitial &&
				txn.BalanceBefore.IsZero() &&
				txn.BalanceAfter.Equal(decimal.NewFromInt(2000)) &&
				txn.ChangeAmount.Equal(decimal.NewFromInt(2000))
		})).Return(nil)

		account, err := svc.CreateAccount(ctx, "Nadia Osei", birthDate, 1, 1, decimal.NewFromInt(2000))
		require.NoError(t, err)
		assert.Equal(t, int64(7), account.ID)

		mockAccountRepo.AssertExpectations(t)
		mockTxnRepo.AssertExpectations(t)
	})

	t.Run("negative opening balance rejected", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		svc := NewAccountService(mockFactory)

		_, err := svc.CreateAccount(ctx, "Bad Balance", birthDate, 1, 1, decimal.NewFromInt(-1))
		require.Error(t, err)
		mockFactory.AssertNotCalled(t, "Create")
	})
}

func TestAccountService_CreditAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("manual adjustment goes through the atomic credit path", func(t *testing.T) {
		mockUoW := new(MockUnitOfWork)
		mockFactory := new(MockUnitOfWorkFactory)
		mockAccountRepo := new(MockAccountRepository)
		mockTxnRepo := new(MockFundTransactionRepository)
		mockUoW.SetRepositories(mockAccountRepo, mockTxnRepo, nil, nil, nil)

		svc := NewAccountService(mockFactory)

		mockFactory.On("Create").Return(mockUoW)
		mockUoW.On("Begin", ctx).Return(nil)
		mockUoW.On("Commit").Return(nil)
		mockUoW.On("Rollback").Return(nil)
		mockAccountRepo.On("ApplyCredit", ctx, int64(7), decimal.NewFromInt(300)).Return(decimal.NewFromInt(2300), nil)
		mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.FundTransaction) bool {
			return txn.Kind == models.TransactionKindAdjustment &&
				txn.BalanceBefore.Equal(decimal.NewFromInt(2000)) &&
				txn.BalanceAfter.Equal(decimal.NewFromInt(2300)) &&
				txn.RuleID == nil &&
				txn.Metadata["remark"] == "deposit correction"
		})).Return(nil)

		txn, err := svc.CreditAccount(ctx, 7, decimal.NewFromInt(300), "deposit correction")
		require.NoError(t, err)
		assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(2300)))

		mockAccountRepo.AssertExpectations(t)
		mockTxnRepo.AssertExpectations(t)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		svc := NewAccountService(mockFactory)

		_, err := svc.CreditAccount(ctx, 7, decimal.Zero, "noop")
		require.Error(t, err)
		mockFactory.AssertNotCalled(t, "Create")
	})
}

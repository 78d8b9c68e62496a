package service

import (
	"context"
	"fmt"
	"time"

	"edufund/events"
	"edufund/models"

	"github.com/shopspring/decimal"
)

type accountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{uowFactory: uowFactory}
}

// CreateAccount opens an account and records its opening balance as the
// first fund transaction
func (s *accountService) CreateAccount(ctx context.Context, fullName string, birthDate time.Time, educationLevelID, schoolingStatusID int32, openingBalance decimal.Decimal) (*models.AccountHolder, error) {
	if openingBalance.IsNegative() {
		return nil, fmt.Errorf("opening balance must not be negative, got %s", openingBalance)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account := &models.AccountHolder{
		FullName:          fullName,
		BirthDate:         birthDate,
		Balance:           openingBalance,
		EducationLevelID:  educationLevelID,
		SchoolingStatusID: schoolingStatusID,
		Active:            true,
	}
	if err := uow.AccountRepository().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	txn := &models.FundTransaction{
		AccountID:     account.ID,
		BalanceBefore: decimal.Zero,
		BalanceAfter:  openingBalance,
		ChangeAmount:  openingBalance,
		Kind:          models.TransactionKindInitial,
		Metadata:      map[string]any{"full_name": fullName},
	}
	if err := uow.FundTransactionRepository().Record(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record opening balance: %w", err)
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID:      account.ID,
		FullName:       fullName,
		InitialBalance: openingBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

// CreditAccount applies a manual adjustment credit through the same atomic
// path the execution engine uses
func (s *accountService) CreditAccount(ctx context.Context, accountID int64, amount decimal.Decimal, remark string) (*models.FundTransaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := applyCredit(ctx, uow, accountID, amount, models.TransactionKindAdjustment, nil, map[string]any{
		"remark": remark,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return txn, nil
}

package service

import (
	"context"
	"fmt"

	"edufund/events"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// applyCredit is the single entry point for crediting an account: the
// atomic balance increment and its immutable fund transaction record go
// through the same unit of work, so no credit can land without its record.
func applyCredit(ctx context.Context, uow UnitOfWork, accountID int64, amount decimal.Decimal, kind models.TransactionKind, ruleID *uuid.UUID, metadata map[string]any) (*models.FundTransaction, error) {
	newBalance, err := uow.AccountRepository().ApplyCredit(ctx, accountID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to apply credit to account %d: %w", accountID, err)
	}

	txn := &models.FundTransaction{
		AccountID:     accountID,
		BalanceBefore: newBalance.Sub(amount),
		BalanceAfter:  newBalance,
		ChangeAmount:  amount,
		Kind:          kind,
		Metadata:      metadata,
		RuleID:        ruleID,
	}
	if err := uow.FundTransactionRepository().Record(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to record fund transaction: %w", err)
	}

	uow.EventBus().Publish(events.CreditAppliedEvent{
		AccountID:    accountID,
		OldBalance:   txn.BalanceBefore,
		NewBalance:   txn.BalanceAfter,
		ChangeAmount: amount,
		Kind:         kind,
		RuleID:       ruleID,
	})

	return txn, nil
}

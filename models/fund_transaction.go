package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the type of balance change
type TransactionKind string

const (
	TransactionKindTopUp      TransactionKind = "TU"
	TransactionKindFee        TransactionKind = "FEE"
	TransactionKindAdjustment TransactionKind = "ADJ"
	TransactionKindInitial    TransactionKind = "INIT"
)

// FundTransaction is an immutable balance-change record. Every credit or
// charge against an account writes exactly one of these in the same
// database transaction as the balance update.
type FundTransaction struct {
	ID            int64           `db:"id"`
	AccountID     int64           `db:"account_id"`
	BalanceBefore decimal.Decimal `db:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	ChangeAmount  decimal.Decimal `db:"change_amount"`
	Kind          TransactionKind `db:"kind"`
	Metadata      map[string]any  `db:"metadata"`
	RuleID        *uuid.UUID      `db:"rule_id"`
	CreatedAt     time.Time       `db:"created_at"`
}

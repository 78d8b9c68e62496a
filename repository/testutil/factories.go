package testutil

import (
	"time"

	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestAccount creates a test account holder with default values
func CreateTestAccount(fullName string) *models.AccountHolder {
	now := time.Now()
	return &models.AccountHolder{
		FullName:          fullName,
		BirthDate:         time.Date(2010, 6, 15, 0, 0, 0, 0, time.UTC),
		Balance:           decimal.NewFromInt(1000),
		EducationLevelID:  1,
		SchoolingStatusID: 1,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CreateTestAccountWithBalance creates a test account with a specific balance
func CreateTestAccountWithBalance(fullName string, balance decimal.Decimal) *models.AccountHolder {
	account := CreateTestAccount(fullName)
	account.Balance = balance
	return account
}

// CreateTestAccountWithBirthDate creates a test account born on the given date
func CreateTestAccountWithBirthDate(fullName string, birthDate time.Time) *models.AccountHolder {
	account := CreateTestAccount(fullName)
	account.BirthDate = birthDate
	return account
}

// CreateTestRule creates a scheduled top-up rule targeting all accounts
func CreateTestRule(name string, scheduledTime time.Time) *models.TopUpRule {
	now := time.Now()
	return &models.TopUpRule{
		ID:            uuid.New(),
		Name:          name,
		Amount:        decimal.NewFromInt(500),
		Target:        models.TargetAllAccounts(),
		ScheduledTime: &scheduledTime,
		Status:        models.TopUpStatusScheduled,
		Description:   "test top-up",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestImmediateRule creates an immediate rule targeting specific accounts
func CreateTestImmediateRule(name string, accountIDs []int64) *models.TopUpRule {
	now := time.Now()
	return &models.TopUpRule{
		ID:                 uuid.New(),
		Name:               name,
		Amount:             decimal.NewFromInt(500),
		Target:             models.TargetAccounts(accountIDs),
		ExecuteImmediately: true,
		Status:             models.TopUpStatusScheduled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// CreateTestFundTransaction creates a test fund transaction entry
func CreateTestFundTransaction(accountID int64, kind models.TransactionKind) *models.FundTransaction {
	return &models.FundTransaction{
		AccountID:     accountID,
		BalanceBefore: decimal.NewFromInt(1000),
		BalanceAfter:  decimal.NewFromInt(1500),
		ChangeAmount:  decimal.NewFromInt(500),
		Kind:          kind,
		Metadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestRun creates a test top-up run for the given rule
func CreateTestRun(ruleID uuid.UUID, runAt time.Time) *models.TopUpRun {
	return &models.TopUpRun{
		RuleID:         ruleID,
		RunAt:          runAt,
		TotalTargets:   10,
		SucceededCount: 9,
		FailedCount:    1,
		TotalCredited:  decimal.NewFromInt(4500),
		ExecutionSummary: map[string]interface{}{
			"skipped_account_ids": []int64{},
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestCourse creates a test course billed monthly over one year
func CreateTestCourse(name string) *models.Course {
	now := time.Now()
	return &models.Course{
		Name:         name,
		FeePerPeriod: decimal.NewFromInt(250),
		Cadence:      models.CadenceMonthly,
		StartDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

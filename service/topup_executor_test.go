package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func executorFixture() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockTopUpRuleRepository, *MockAccountRepository, *MockFundTransactionRepository, *MockTopUpRunRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockRuleRepo := new(MockTopUpRuleRepository)
	mockAccountRepo := new(MockAccountRepository)
	mockTxnRepo := new(MockFundTransactionRepository)
	mockRunRepo := new(MockTopUpRunRepository)
	mockUoW.SetRepositories(mockAccountRepo, mockTxnRepo, mockRuleRepo, mockRunRepo, nil)
	mockFactory.On("Create").Return(mockUoW)
	return mockUoW, mockFactory, mockRuleRepo, mockAccountRepo, mockTxnRepo, mockRunRepo
}

func TestTopUpExecutor_PartialFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	mockUoW, mockFactory, mockRuleRepo, mockAccountRepo, mockTxnRepo, mockRunRepo := executorFixture()

	rule := &models.TopUpRule{
		ID:     uuid.New(),
		Name:   "partial run",
		Amount: decimal.NewFromInt(100),
		Target: models.TargetAccounts([]int64{1, 2, 3, 4}),
		Status: models.TopUpStatusScheduled,
	}

	accounts := make([]*models.AccountHolder, 0, 4)
	for id := int64(1); id <= 4; id++ {
		accounts = append(accounts, &models.AccountHolder{ID: id, Active: true, BirthDate: now.AddDate(-12, 0, 0)})
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockRuleRepo.On("GetByID", ctx, rule.ID).Return(rule, nil)
	mockRuleRepo.On("ClaimForExecution", ctx, rule.ID).Return(true, nil)
	mockAccountRepo.On("GetByIDs", ctx, []int64{1, 2, 3, 4}).Return(accounts, nil)

	// Account 3's credit fails; the other three go through
	mockAccountRepo.On("ApplyCredit", ctx, int64(1), rule.Amount).Return(decimal.NewFromInt(1100), nil)
	mockAccountRepo.On("ApplyCredit", ctx, int64(2), rule.Amount).Return(decimal.NewFromInt(2100), nil)
	mockAccountRepo.On("ApplyCredit", ctx, int64(3), rule.Amount).Return(decimal.Zero, errors.New("account 3 not found or inactive"))
	mockAccountRepo.On("ApplyCredit", ctx, int64(4), rule.Amount).Return(decimal.NewFromInt(4100), nil)
	mockTxnRepo.On("Record", ctx, mock.Anything).Return(nil)

	// Per-account failure still ends the rule in completed
	mockRuleRepo.On("Finalize", ctx, rule.ID, models.TopUpStatusCompleted, 3, 1, now).Return(nil)
	mockRunRepo.On("Create", ctx, mock.MatchedBy(func(run *models.TopUpRun) bool {
		return run.RuleID == rule.ID &&
			run.TotalTargets == 4 &&
			run.SucceededCount == 3 &&
			run.FailedCount == 1 &&
			run.TotalCredited.Equal(decimal.NewFromInt(300))
	})).Return(nil)

	executor := NewTopUpExecutor(mockFactory, clock, 2)
	result, err := executor.Execute(ctx, rule.ID)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Skipped)
	assert.Len(t, result.Outcomes, 4)

	var failed []int64
	for _, outcome := range result.Outcomes {
		if !outcome.Applied {
			failed = append(failed, outcome.AccountID)
			assert.NotEmpty(t, outcome.FailureReason)
		}
	}
	assert.Equal(t, []int64{3}, failed)

	mockRuleRepo.AssertExpectations(t)
	mockRunRepo.AssertExpectations(t)
}

func TestTopUpExecutor_ClaimLostToCancel(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	mockUoW, mockFactory, mockRuleRepo, mockAccountRepo, _, _ := executorFixture()

	rule := &models.TopUpRule{
		ID:     uuid.New(),
		Name:   "already cancelled",
		Amount: decimal.NewFromInt(100),
		Target: models.TargetAllAccounts(),
		Status: models.TopUpStatusCancelled,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRuleRepo.On("GetByID", ctx, rule.ID).Return(rule, nil)
	mockRuleRepo.On("ClaimForExecution", ctx, rule.ID).Return(false, nil)

	executor := NewTopUpExecutor(mockFactory, clock, 2)
	result, err := executor.Execute(ctx, rule.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleNotClaimed)
	assert.Nil(t, result)

	// A lost claim must not credit anyone or finalize anything
	mockAccountRepo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything, mock.Anything)
	mockRuleRepo.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTopUpExecutor_UnknownRule(t *testing.T) {
	ctx := context.Background()
	clock := fixedClock{now: time.Now()}

	mockUoW, mockFactory, mockRuleRepo, _, _, _ := executorFixture()

	ruleID := uuid.New()
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRuleRepo.On("GetByID", ctx, ruleID).Return(nil, nil)

	executor := NewTopUpExecutor(mockFactory, clock, 2)
	_, err := executor.Execute(ctx, ruleID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestTopUpExecutor_ResolutionFailureMarksRuleFailed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	mockUoW, mockFactory, mockRuleRepo, mockAccountRepo, _, mockRunRepo := executorFixture()

	rule := &models.TopUpRule{
		ID:     uuid.New(),
		Name:   "doomed run",
		Amount: decimal.NewFromInt(100),
		Target: models.TargetAllAccounts(),
		Status: models.TopUpStatusScheduled,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRuleRepo.On("GetByID", ctx, rule.ID).Return(rule, nil)
	mockRuleRepo.On("ClaimForExecution", ctx, rule.ID).Return(true, nil)
	mockAccountRepo.On("GetAllActive", ctx).Return(nil, errors.New("connection refused"))
	mockRuleRepo.On("Finalize", ctx, rule.ID, models.TopUpStatusFailed, 0, 0, now).Return(nil)

	executor := NewTopUpExecutor(mockFactory, clock, 2)
	result, err := executor.Execute(ctx, rule.ID)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
	assert.Nil(t, result)

	mockRuleRepo.AssertExpectations(t)
	// No run record for a run that never resolved its targets
	mockRunRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTopUpExecutor_SkippedAccountsRecorded(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{now: now}

	mockUoW, mockFactory, mockRuleRepo, mockAccountRepo, mockTxnRepo, mockRunRepo := executorFixture()

	rule := &models.TopUpRule{
		ID:     uuid.New(),
		Name:   "shrunken target set",
		Amount: decimal.NewFromInt(100),
		Target: models.TargetAccounts([]int64{1, 2}),
		Status: models.TopUpStatusScheduled,
	}

	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockRuleRepo.On("GetByID", ctx, rule.ID).Return(rule, nil)
	mockRuleRepo.On("ClaimForExecution", ctx, rule.ID).Return(true, nil)

	// Account 2 was closed between creation and fire time
	mockAccountRepo.On("GetByIDs", ctx, []int64{1, 2}).Return([]*models.AccountHolder{
		{ID: 1, Active: true, BirthDate: now.AddDate(-12, 0, 0)},
	}, nil)
	mockAccountRepo.On("ApplyCredit", ctx, int64(1), rule.Amount).Return(decimal.NewFromInt(1100), nil)
	mockTxnRepo.On("Record", ctx, mock.Anything).Return(nil)

	mockRuleRepo.On("Finalize", ctx, rule.ID, models.TopUpStatusCompleted, 1, 0, now).Return(nil)
	mockRunRepo.On("Create", ctx, mock.MatchedBy(func(run *models.TopUpRun) bool {
		skipped, ok := run.ExecutionSummary["skipped_account_ids"].([]int64)
		return ok && len(skipped) == 1 && skipped[0] == 2
	})).Return(nil)

	executor := NewTopUpExecutor(mockFactory, clock, 2)
	result, err := executor.Execute(ctx, rule.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, []int64{2}, result.Skipped)

	mockRunRepo.AssertExpectations(t)
}

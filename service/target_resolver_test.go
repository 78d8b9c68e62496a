package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"edufund/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountWithAge(id int64, age int, at time.Time) *models.AccountHolder {
	return &models.AccountHolder{
		ID:        id,
		FullName:  "Holder",
		BirthDate: at.AddDate(-age, 0, 0),
		Balance:   decimal.NewFromInt(1000),
		Active:    true,
	}
}

func TestResolveTargets_All(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockAccountRepository)
	mockRepo.On("GetAllActive", ctx).Return([]*models.AccountHolder{
		accountWithAge(1, 12, now),
		accountWithAge(2, 15, now),
	}, nil)

	ids, skipped, err := ResolveTargets(ctx, mockRepo, models.TargetAllAccounts(), now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Empty(t, skipped)
}

func TestResolveTargets_SpecificSkipsUnresolvable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	closed := accountWithAge(3, 14, now)
	closed.Active = false

	mockRepo := new(MockAccountRepository)
	// Account 4 no longer exists at all; account 3 exists but is closed
	mockRepo.On("GetByIDs", ctx, []int64{1, 3, 4}).Return([]*models.AccountHolder{
		accountWithAge(1, 12, now),
		closed,
	}, nil)

	ids, skipped, err := ResolveTargets(ctx, mockRepo, models.TargetAccounts([]int64{1, 3, 4}), now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Equal(t, []int64{3, 4}, skipped)
}

func TestResolveTargets_AgeBoundsInclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockAccountRepository)
	mockRepo.On("GetAllActive", ctx).Return([]*models.AccountHolder{
		accountWithAge(17, 17, now),
		accountWithAge(18, 18, now),
		accountWithAge(25, 25, now),
		accountWithAge(26, 26, now),
	}, nil)

	minAge, maxAge := 18, 25
	target := models.TargetByFilter(models.BatchFilterAge, models.AccountFilter{
		MinAge: &minAge,
		MaxAge: &maxAge,
	})

	ids, skipped, err := ResolveTargets(ctx, mockRepo, target, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{18, 25}, ids, "both bounds are inclusive")
	assert.Empty(t, skipped)
}

func TestResolveTargets_CombinedFilterIsConjunction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	rich := accountWithAge(1, 12, now)
	rich.Balance = decimal.NewFromInt(5000)
	rich.EducationLevelID = 2

	poor := accountWithAge(2, 12, now)
	poor.Balance = decimal.NewFromInt(50)
	poor.EducationLevelID = 2

	wrongLevel := accountWithAge(3, 12, now)
	wrongLevel.Balance = decimal.NewFromInt(5000)
	wrongLevel.EducationLevelID = 7

	mockRepo := new(MockAccountRepository)
	mockRepo.On("GetAllActive", ctx).Return([]*models.AccountHolder{rich, poor, wrongLevel}, nil)

	minBalance := decimal.NewFromInt(100)
	target := models.TargetByFilter(models.BatchFilterCombined, models.AccountFilter{
		MinBalance:        &minBalance,
		EducationLevelIDs: []int32{2},
	})

	ids, _, err := ResolveTargets(ctx, mockRepo, target, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids, "every populated predicate must hold")
}

func TestResolveTargets_EmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockAccountRepository)
	mockRepo.On("GetAllActive", ctx).Return([]*models.AccountHolder{}, nil)

	minAge := 99
	target := models.TargetByFilter(models.BatchFilterAge, models.AccountFilter{MinAge: &minAge})

	ids, skipped, err := ResolveTargets(ctx, mockRepo, target, now)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, skipped)
}

func TestResolveTargets_RepositoryFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockAccountRepository)
	mockRepo.On("GetAllActive", ctx).Return(nil, errors.New("connection refused"))

	_, _, err := ResolveTargets(ctx, mockRepo, models.TargetAllAccounts(), now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolutionFailed)
}

func TestResolveTargets_InvalidTarget(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mockRepo := new(MockAccountRepository)

	_, _, err := ResolveTargets(ctx, mockRepo, models.Target{Type: models.TargetFiltered}, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConfiguration)
	mockRepo.AssertNotCalled(t, "GetAllActive")
}

package service

import (
	"context"
	"fmt"
	"sync"

	"edufund/events"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const defaultExecutionWorkers = 8

type topUpExecutor struct {
	uowFactory UnitOfWorkFactory
	clock      Clock
	workers    int
}

// NewTopUpExecutor creates the engine that runs one rule's bulk credit
// application. workers bounds how many accounts are processed concurrently.
func NewTopUpExecutor(uowFactory UnitOfWorkFactory, clock Clock, workers int) TopUpExecutor {
	if workers <= 0 {
		workers = defaultExecutionWorkers
	}
	return &topUpExecutor{
		uowFactory: uowFactory,
		clock:      clock,
		workers:    workers,
	}
}

// Execute claims the rule, re-resolves its target set against live account
// snapshots and applies the credit to each target as an isolated unit of
// work. Individual account failures are recorded in the run's outcomes and
// never abort the batch; the rule completes regardless. Only a failure of
// resolution itself moves the rule to failed.
func (e *topUpExecutor) Execute(ctx context.Context, ruleID uuid.UUID) (*models.TopUpRunResult, error) {
	rule, err := e.claim(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	targets, skipped, err := e.resolve(ctx, rule)
	if err != nil {
		if finalizeErr := e.finalize(ctx, rule, models.TopUpStatusFailed, nil, nil); finalizeErr != nil {
			log.WithError(finalizeErr).WithField("ruleID", ruleID).Error("Failed to mark rule as failed")
		}
		return nil, err
	}

	outcomes := e.applyToAll(ctx, rule, targets)

	result := &models.TopUpRunResult{
		RuleID:   rule.ID,
		Total:    len(targets),
		Skipped:  skipped,
		Outcomes: outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Applied {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	if err := e.finalize(ctx, rule, models.TopUpStatusCompleted, result, skipped); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"ruleID":    rule.ID,
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Top-up rule execution completed")

	return result, nil
}

// claim transitions the rule from scheduled to executing before any work
// happens. The conditional update makes the fire-versus-cancel race
// deterministic: if the cancel won, the claim misses and the fire is a
// no-op.
func (e *topUpExecutor) claim(ctx context.Context, ruleID uuid.UUID) (*models.TopUpRule, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rule, err := uow.TopUpRuleRepository().GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load top-up rule: %w", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	claimed, err := uow.TopUpRuleRepository().ClaimForExecution(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim top-up rule: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: rule %s is %s", ErrRuleNotClaimed, ruleID, rule.Status)
	}

	uow.EventBus().Publish(events.RuleStatusChangedEvent{
		RuleID:    ruleID,
		OldStatus: models.TopUpStatusScheduled,
		NewStatus: models.TopUpStatusExecuting,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	rule.Status = models.TopUpStatusExecuting
	return rule, nil
}

// resolve computes the live target set through a read-only unit of work
func (e *topUpExecutor) resolve(ctx context.Context, rule *models.TopUpRule) ([]int64, []int64, error) {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	defer uow.Rollback()

	return ResolveTargets(ctx, uow.AccountRepository(), rule.Target, e.clock.Now())
}

// applyToAll credits each target account through a bounded worker pool.
// Every account gets its own transaction, so one failure leaves the others
// untouched and the failing account unmodified.
func (e *topUpExecutor) applyToAll(ctx context.Context, rule *models.TopUpRule, targets []int64) []models.ExecutionOutcome {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		outcomes = make([]models.ExecutionOutcome, 0, len(targets))
		sem      = make(chan struct{}, e.workers)
	)

	for _, accountID := range targets {
		wg.Add(1)
		go func(accountID int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := e.applyToOne(ctx, rule, accountID)

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(accountID)
	}
	wg.Wait()

	return outcomes
}

// applyToOne applies the rule's credit to a single account as one atomic
// unit: balance increment plus transaction record, committed together
func (e *topUpExecutor) applyToOne(ctx context.Context, rule *models.TopUpRule, accountID int64) models.ExecutionOutcome {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return models.ExecutionOutcome{AccountID: accountID, FailureReason: err.Error()}
	}
	defer uow.Rollback()

	txn, err := applyCredit(ctx, uow, accountID, rule.Amount, models.TransactionKindTopUp, &rule.ID, map[string]any{
		"rule_name": rule.Name,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"ruleID":    rule.ID,
			"accountID": accountID,
		}).Warn("Top-up credit failed for account")
		return models.ExecutionOutcome{AccountID: accountID, FailureReason: err.Error()}
	}

	if err := uow.Commit(); err != nil {
		return models.ExecutionOutcome{AccountID: accountID, FailureReason: err.Error()}
	}

	return models.ExecutionOutcome{
		AccountID:  accountID,
		Applied:    true,
		NewBalance: txn.BalanceAfter,
	}
}

// finalize moves the rule to its terminal status and, for completed runs,
// persists the aggregate outcome for administrator review
func (e *topUpExecutor) finalize(ctx context.Context, rule *models.TopUpRule, status models.TopUpStatus, result *models.TopUpRunResult, skipped []int64) error {
	uow := e.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := e.clock.Now()
	succeeded, failed := 0, 0
	if result != nil {
		succeeded, failed = result.Succeeded, result.Failed
	}

	if err := uow.TopUpRuleRepository().Finalize(ctx, rule.ID, status, succeeded, failed, now); err != nil {
		return fmt.Errorf("failed to finalize top-up rule: %w", err)
	}

	if result != nil {
		run := &models.TopUpRun{
			RuleID:           rule.ID,
			RunAt:            now,
			TotalTargets:     result.Total,
			SucceededCount:   result.Succeeded,
			FailedCount:      result.Failed,
			TotalCredited:    rule.Amount.Mul(decimal.NewFromInt(int64(result.Succeeded))),
			ExecutionSummary: buildRunSummary(result, skipped),
		}
		if err := uow.TopUpRunRepository().Create(ctx, run); err != nil {
			return fmt.Errorf("failed to record top-up run: %w", err)
		}

		uow.EventBus().Publish(events.TopUpRunCompletedEvent{
			RuleID:    rule.ID,
			Total:     result.Total,
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
		})
	}

	uow.EventBus().Publish(events.RuleStatusChangedEvent{
		RuleID:    rule.ID,
		OldStatus: models.TopUpStatusExecuting,
		NewStatus: status,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit finalization: %w", err)
	}
	return nil
}

// buildRunSummary flattens per-account failures into the persisted summary
func buildRunSummary(result *models.TopUpRunResult, skipped []int64) map[string]interface{} {
	failures := make(map[string]string)
	for _, outcome := range result.Outcomes {
		if !outcome.Applied {
			failures[fmt.Sprintf("%d", outcome.AccountID)] = outcome.FailureReason
		}
	}
	summary := map[string]interface{}{
		"total_targets": result.Total,
		"succeeded":     result.Succeeded,
		"failed":        result.Failed,
	}
	if len(failures) > 0 {
		summary["failures"] = failures
	}
	if len(skipped) > 0 {
		summary["skipped_account_ids"] = skipped
	}
	return summary
}

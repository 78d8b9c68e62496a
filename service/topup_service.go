package service

import (
	"context"
	"fmt"
	"time"

	"edufund/events"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CreateRuleParams carries the administrator's input for a new rule
type CreateRuleParams struct {
	Name               string
	Amount             decimal.Decimal
	Target             models.Target
	ScheduledTime      *time.Time
	ExecuteImmediately bool
	Description        string
	InternalRemarks    string
}

type topUpService struct {
	uowFactory UnitOfWorkFactory
	scheduler  RuleScheduler
	clock      Clock
}

// NewTopUpService creates a new top-up rule service
func NewTopUpService(uowFactory UnitOfWorkFactory, scheduler RuleScheduler, clock Clock) TopUpService {
	return &topUpService{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		clock:      clock,
	}
}

// CreateRule validates and persists a rule in the scheduled state, then
// arms its trigger. Immediate rules are still created as scheduled; their
// wait simply collapses to zero.
func (s *topUpService) CreateRule(ctx context.Context, params CreateRuleParams) (*models.TopUpRule, error) {
	now := s.clock.Now()

	rule := &models.TopUpRule{
		ID:                 uuid.New(),
		Name:               params.Name,
		Amount:             params.Amount,
		Target:             params.Target,
		ScheduledTime:      params.ScheduledTime,
		ExecuteImmediately: params.ExecuteImmediately,
		Status:             models.TopUpStatusScheduled,
		Description:        params.Description,
		InternalRemarks:    params.InternalRemarks,
	}

	if err := rule.Validate(now); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.TopUpRuleRepository().Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create top-up rule: %w", err)
	}

	uow.EventBus().Publish(events.RuleStatusChangedEvent{
		RuleID:    rule.ID,
		NewStatus: models.TopUpStatusScheduled,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Arm only after the rule is durably scheduled, so a fire can always
	// re-load it.
	s.scheduler.Schedule(rule)

	log.WithFields(log.Fields{
		"ruleID":   rule.ID,
		"fireTime": rule.FireTime(now),
	}).Info("Top-up rule created and scheduled")

	return rule, nil
}

// CancelRule cancels a rule that is still scheduled. The conditional
// status update is the arbiter of the cancel-versus-fire race: whichever
// side transitions the row first wins, and the loser is told so.
func (s *topUpService) CancelRule(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rule, err := uow.TopUpRuleRepository().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load top-up rule: %w", err)
	}
	if rule == nil {
		return ErrRuleNotFound
	}

	cancelled, err := uow.TopUpRuleRepository().Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to cancel top-up rule: %w", err)
	}
	if !cancelled {
		return fmt.Errorf("%w: rule %s is %s", ErrRuleNotCancellable, id, rule.Status)
	}

	uow.EventBus().Publish(events.RuleStatusChangedEvent{
		RuleID:    id,
		OldStatus: models.TopUpStatusScheduled,
		NewStatus: models.TopUpStatusCancelled,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.scheduler.Unschedule(id)

	log.WithField("ruleID", id).Info("Top-up rule cancelled")
	return nil
}

// GetRule retrieves a rule by ID
func (s *topUpService) GetRule(ctx context.Context, id uuid.UUID) (*models.TopUpRule, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rule, err := uow.TopUpRuleRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load top-up rule: %w", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// ListRules returns rules, optionally filtered by status
func (s *topUpService) ListRules(ctx context.Context, status *models.TopUpStatus) ([]*models.TopUpRule, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rules, err := uow.TopUpRuleRepository().List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list top-up rules: %w", err)
	}
	return rules, nil
}

// ListRuleRuns returns the persisted execution outcomes of a rule for
// administrator review
func (s *topUpService) ListRuleRuns(ctx context.Context, id uuid.UUID) ([]*models.TopUpRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	runs, err := uow.TopUpRunRepository().GetByRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for rule %s: %w", id, err)
	}
	return runs, nil
}

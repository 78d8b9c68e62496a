package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"edufund/models"
	"edufund/service"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// TopUpScheduler arms one in-process trigger per scheduled rule. The
// durable record of due times is the topup_rules table itself: Start runs
// a catch-up scan that fires every rule whose time elapsed while the
// process was down and re-arms the rest, and a cron sweep repeats the scan
// as a safety net for missed timers. At-most-once execution is not the
// scheduler's job; the executor's transactional claim makes a duplicate
// fire a no-op.
type TopUpScheduler struct {
	uowFactory service.UnitOfWorkFactory
	executor   service.TopUpExecutor
	clock      service.Clock
	cronEngine *cron.Cron
	sweepSpec  string

	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool
}

// New creates a scheduler. sweepSpec is the cron expression for the
// periodic catch-up sweep.
func New(uowFactory service.UnitOfWorkFactory, executor service.TopUpExecutor, clock service.Clock, sweepSpec string) *TopUpScheduler {
	return &TopUpScheduler{
		uowFactory: uowFactory,
		executor:   executor,
		clock:      clock,
		cronEngine: cron.New(),
		sweepSpec:  sweepSpec,
		timers:     make(map[uuid.UUID]*time.Timer),
	}
}

// Start runs the restart-time catch-up scan and begins the periodic sweep
func (s *TopUpScheduler) Start(ctx context.Context) error {
	if err := s.sweep(ctx); err != nil {
		return fmt.Errorf("initial catch-up sweep failed: %w", err)
	}

	_, err := s.cronEngine.AddFunc(s.sweepSpec, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.sweep(sweepCtx); err != nil {
			log.WithError(err).Error("Periodic top-up sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register catch-up sweep %q: %w", s.sweepSpec, err)
	}

	s.cronEngine.Start()
	log.WithField("sweepSpec", s.sweepSpec).Info("Top-up scheduler started")
	return nil
}

// Stop halts the sweep and disarms all pending triggers. Rules stay
// scheduled in the database and are picked up again on the next Start.
func (s *TopUpScheduler) Stop() {
	stopCtx := s.cronEngine.Stop()
	<-stopCtx.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	log.Info("Top-up scheduler stopped")
}

// Schedule arms a trigger for the rule. Re-scheduling an already armed
// rule first disarms the prior trigger, so at most one trigger exists per
// rule ID. Elapsed fire times fire immediately.
func (s *TopUpScheduler) Schedule(rule *models.TopUpRule) {
	now := s.clock.Now()
	delay := rule.FireTime(now).Sub(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.timers[rule.ID]; ok {
		timer.Stop()
		delete(s.timers, rule.ID)
	}

	ruleID := rule.ID
	if delay <= 0 {
		go s.fire(ruleID)
		return
	}
	s.timers[ruleID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, ruleID)
		s.mu.Unlock()
		s.fire(ruleID)
	})
}

// Unschedule removes a pending trigger; reports whether one existed. A
// trigger that already fired is beyond reach here, which is fine: the
// database-side claim decides such races.
func (s *TopUpScheduler) Unschedule(ruleID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.timers[ruleID]
	if ok {
		timer.Stop()
		delete(s.timers, ruleID)
	}
	return ok
}

// fire hands a due rule to the execution engine. Failures are logged and
// never propagate; the scheduler must stay available for other rules.
func (s *TopUpScheduler) fire(ruleID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"ruleID": ruleID,
				"panic":  r,
			}).Error("Top-up execution panicked")
		}
	}()

	result, err := s.executor.Execute(context.Background(), ruleID)
	if err != nil {
		if errors.Is(err, service.ErrRuleNotClaimed) {
			log.WithField("ruleID", ruleID).Info("Rule no longer scheduled, fire skipped")
			return
		}
		log.WithError(err).WithField("ruleID", ruleID).Error("Top-up rule execution failed")
		return
	}

	log.WithFields(log.Fields{
		"ruleID":    ruleID,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}).Info("Top-up rule fired")
}

// sweep loads every rule still in the scheduled state and (re-)arms it.
// Due rules fire immediately, preserving at-least-once execution across
// process restarts.
func (s *TopUpScheduler) sweep(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rules, err := uow.TopUpRuleRepository().GetScheduled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheduled rules: %w", err)
	}

	for _, rule := range rules {
		s.Schedule(rule)
	}

	if len(rules) > 0 {
		log.WithField("ruleCount", len(rules)).Debug("Swept scheduled top-up rules")
	}
	return nil
}

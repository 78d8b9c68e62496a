package cmd

import (
	"context"

	"edufund/events"

	log "github.com/sirupsen/logrus"
)

// registerAuditSubscribers wires the audit trail: every committed balance
// change and rule transition is logged with enough detail to reconstruct
// what the engine did and why.
func registerAuditSubscribers(bus *events.Bus) {
	bus.Subscribe(events.EventTypeCreditApplied, func(ctx context.Context, event events.Event) {
		e := event.(events.CreditAppliedEvent)
		fields := log.Fields{
			"accountID":  e.AccountID,
			"kind":       e.Kind,
			"amount":     e.ChangeAmount,
			"newBalance": e.NewBalance,
		}
		if e.RuleID != nil {
			fields["ruleID"] = *e.RuleID
		}
		log.WithFields(fields).Info("Credit applied")
	})

	bus.Subscribe(events.EventTypeRuleStatusChanged, func(ctx context.Context, event events.Event) {
		e := event.(events.RuleStatusChangedEvent)
		log.WithFields(log.Fields{
			"ruleID":    e.RuleID,
			"oldStatus": e.OldStatus,
			"newStatus": e.NewStatus,
		}).Info("Top-up rule status changed")
	})

	bus.Subscribe(events.EventTypeTopUpRunCompleted, func(ctx context.Context, event events.Event) {
		e := event.(events.TopUpRunCompletedEvent)
		log.WithFields(log.Fields{
			"ruleID":    e.RuleID,
			"total":     e.Total,
			"succeeded": e.Succeeded,
			"failed":    e.Failed,
		}).Info("Top-up run completed")
	})

	bus.Subscribe(events.EventTypeAccountCreated, func(ctx context.Context, event events.Event) {
		e := event.(events.AccountCreatedEvent)
		log.WithFields(log.Fields{
			"accountID":      e.AccountID,
			"initialBalance": e.InitialBalance,
		}).Info("Account opened")
	})

	bus.Subscribe(events.EventTypeInvoicesGenerated, func(ctx context.Context, event events.Event) {
		e := event.(events.InvoicesGeneratedEvent)
		log.WithFields(log.Fields{
			"courseID": e.CourseID,
			"periods":  e.PeriodCount,
			"invoices": e.InvoiceCount,
		}).Info("Invoices generated")
	})
}

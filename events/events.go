package events

import (
	"context"
	"sync"

	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeCreditApplied     EventType = "credit_applied"
	EventTypeAccountCreated    EventType = "account_created"
	EventTypeRuleStatusChanged EventType = "rule_status_changed"
	EventTypeTopUpRunCompleted EventType = "topup_run_completed"
	EventTypeInvoicesGenerated EventType = "invoices_generated"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// CreditAppliedEvent represents a balance change that occurred
type CreditAppliedEvent struct {
	AccountID    int64
	OldBalance   decimal.Decimal
	NewBalance   decimal.Decimal
	ChangeAmount decimal.Decimal
	Kind         models.TransactionKind
	RuleID       *uuid.UUID
}

func (e CreditAppliedEvent) Type() EventType {
	return EventTypeCreditApplied
}

// AccountCreatedEvent represents a new account creation
type AccountCreatedEvent struct {
	AccountID      int64
	FullName       string
	InitialBalance decimal.Decimal
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// RuleStatusChangedEvent represents a top-up rule lifecycle transition
type RuleStatusChangedEvent struct {
	RuleID    uuid.UUID
	OldStatus models.TopUpStatus
	NewStatus models.TopUpStatus
}

func (e RuleStatusChangedEvent) Type() EventType {
	return EventTypeRuleStatusChanged
}

// TopUpRunCompletedEvent represents a finished bulk top-up execution
type TopUpRunCompletedEvent struct {
	RuleID    uuid.UUID
	Total     int
	Succeeded int
	Failed    int
}

func (e TopUpRunCompletedEvent) Type() EventType {
	return EventTypeTopUpRunCompleted
}

// InvoicesGeneratedEvent represents billing periods resolved into invoices
type InvoicesGeneratedEvent struct {
	CourseID     int64
	PeriodCount  int
	InvoiceCount int
}

func (e InvoicesGeneratedEvent) Type() EventType {
	return EventTypeInvoicesGenerated
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Emission uses a background context rather than the expired tx context;
	// events are processed independently of the transaction lifecycle.
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback to drop pending events
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

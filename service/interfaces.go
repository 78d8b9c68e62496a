package service

import (
	"context"
	"time"

	"edufund/events"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Clock supplies the current time. Injected so billing-date decisions and
// scheduling tests can freeze time.
type Clock interface {
	Now() time.Time
}

type realClock struct {
	loc *time.Location
}

// NewClock returns a clock reading the system time in the given location
func NewClock(loc *time.Location) Clock {
	return realClock{loc: loc}
}

func (c realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by ID, nil if not found
	GetByID(ctx context.Context, id int64) (*models.AccountHolder, error)

	// GetByIDs retrieves the accounts that exist among the given IDs
	GetByIDs(ctx context.Context, ids []int64) ([]*models.AccountHolder, error)

	// GetAllActive returns every active account
	GetAllActive(ctx context.Context) ([]*models.AccountHolder, error)

	// Create creates a new account with the given opening balance
	Create(ctx context.Context, account *models.AccountHolder) error

	// ApplyCredit atomically adds amount to an active account's balance and
	// returns the new balance. Fails if the account is missing or inactive.
	ApplyCredit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
}

// FundTransactionRepository defines the interface for balance-change records
type FundTransactionRepository interface {
	// Record creates a new fund transaction entry
	Record(ctx context.Context, txn *models.FundTransaction) error

	// GetByAccount returns transactions for an account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.FundTransaction, error)

	// GetByRule returns all transactions written by one top-up rule
	GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.FundTransaction, error)
}

// TopUpRuleRepository defines the interface for top-up rule persistence
type TopUpRuleRepository interface {
	// Create persists a new rule
	Create(ctx context.Context, rule *models.TopUpRule) error

	// GetByID retrieves a rule by ID, nil if not found
	GetByID(ctx context.Context, id uuid.UUID) (*models.TopUpRule, error)

	// List returns rules, optionally filtered by status, newest first
	List(ctx context.Context, status *models.TopUpStatus) ([]*models.TopUpRule, error)

	// GetScheduled returns every rule still in the scheduled state
	GetScheduled(ctx context.Context) ([]*models.TopUpRule, error)

	// ClaimForExecution transitions scheduled -> executing. Returns false
	// without error when the rule is no longer scheduled, which is how a
	// fire racing a cancel is resolved.
	ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error)

	// Cancel transitions scheduled -> cancelled under the same claim
	// discipline; returns false when the rule is no longer scheduled.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)

	// Finalize moves an executing rule to its terminal status and records
	// the outcome counts
	Finalize(ctx context.Context, id uuid.UUID, status models.TopUpStatus, succeeded, failed int, executedAt time.Time) error
}

// TopUpRunRepository defines the interface for persisted execution records
type TopUpRunRepository interface {
	// Create creates a new run record
	Create(ctx context.Context, run *models.TopUpRun) error

	// GetByRule returns all runs of a rule, newest first
	GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.TopUpRun, error)

	// GetLatest returns the most recent run, nil if none exist
	GetLatest(ctx context.Context) (*models.TopUpRun, error)
}

// CourseRepository defines the interface for course data access
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollmentRepository defines the interface for enrollment data access
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByCourse(ctx context.Context, courseID int64) ([]*models.Enrollment, error)
}

// InvoiceRepository defines the interface for invoice data access
type InvoiceRepository interface {
	// CreateBatch inserts invoices, skipping periods already invoiced for
	// an enrollment. Returns the number actually inserted.
	CreateBatch(ctx context.Context, invoices []*models.Invoice) (int, error)

	GetByEnrollment(ctx context.Context, enrollmentID int64) ([]*models.Invoice, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// TopUpService defines the administrator-facing rule lifecycle operations
type TopUpService interface {
	// CreateRule validates and persists a rule in the scheduled state and
	// arms its trigger (immediate rules fire with zero delay)
	CreateRule(ctx context.Context, params CreateRuleParams) (*models.TopUpRule, error)

	// CancelRule cancels a rule that is still scheduled. Returns
	// ErrRuleNotCancellable once the rule is executing or terminal.
	CancelRule(ctx context.Context, id uuid.UUID) error

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id uuid.UUID) (*models.TopUpRule, error)

	// ListRules returns rules, optionally filtered by status
	ListRules(ctx context.Context, status *models.TopUpStatus) ([]*models.TopUpRule, error)

	// ListRuleRuns returns the persisted execution outcomes of a rule
	ListRuleRuns(ctx context.Context, id uuid.UUID) ([]*models.TopUpRun, error)
}

// TopUpExecutor runs one rule's bulk credit application
type TopUpExecutor interface {
	// Execute claims the rule, resolves its live target set and applies
	// the credit to each account independently. A fire that lost the race
	// against a cancel returns ErrRuleNotClaimed.
	Execute(ctx context.Context, ruleID uuid.UUID) (*models.TopUpRunResult, error)
}

// RuleScheduler arms and disarms rule triggers. Implemented by the
// scheduler package; consumed here so services stay testable.
type RuleScheduler interface {
	// Schedule arms a trigger for the rule, replacing any prior trigger
	// for the same rule ID
	Schedule(rule *models.TopUpRule)

	// Unschedule removes a pending trigger; reports whether one existed
	Unschedule(ruleID uuid.UUID) bool
}

// InvoiceService resolves a course's billing periods into invoices
type InvoiceService interface {
	GenerateInvoices(ctx context.Context, courseID int64) ([]*models.Invoice, error)
}

// AccountService defines account operations owned by the engine
type AccountService interface {
	// CreateAccount opens an account and records its opening balance
	CreateAccount(ctx context.Context, fullName string, birthDate time.Time, educationLevelID, schoolingStatusID int32, openingBalance decimal.Decimal) (*models.AccountHolder, error)

	// CreditAccount applies a manual adjustment credit to one account
	CreditAccount(ctx context.Context, accountID int64, amount decimal.Decimal, remark string) (*models.FundTransaction, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	FundTransactionRepository() FundTransactionRepository
	TopUpRuleRepository() TopUpRuleRepository
	TopUpRunRepository() TopUpRunRepository
	CourseRepository() CourseRepository
	EnrollmentRepository() EnrollmentRepository
	InvoiceRepository() InvoiceRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

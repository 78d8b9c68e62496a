package service

import (
	"context"
	"time"

	"edufund/events"
	"edufund/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.AccountHolder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AccountHolder), args.Error(1)
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.AccountHolder, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccountHolder), args.Error(1)
}

func (m *MockAccountRepository) GetAllActive(ctx context.Context) ([]*models.AccountHolder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccountHolder), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.AccountHolder) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) ApplyCredit(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockFundTransactionRepository is a mock implementation of FundTransactionRepository
type MockFundTransactionRepository struct {
	mock.Mock
}

func (m *MockFundTransactionRepository) Record(ctx context.Context, txn *models.FundTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockFundTransactionRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.FundTransaction, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FundTransaction), args.Error(1)
}

func (m *MockFundTransactionRepository) GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.FundTransaction, error) {
	args := m.Called(ctx, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FundTransaction), args.Error(1)
}

// MockTopUpRuleRepository is a mock implementation of TopUpRuleRepository
type MockTopUpRuleRepository struct {
	mock.Mock
}

func (m *MockTopUpRuleRepository) Create(ctx context.Context, rule *models.TopUpRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockTopUpRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TopUpRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TopUpRule), args.Error(1)
}

func (m *MockTopUpRuleRepository) List(ctx context.Context, status *models.TopUpStatus) ([]*models.TopUpRule, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TopUpRule), args.Error(1)
}

func (m *MockTopUpRuleRepository) GetScheduled(ctx context.Context) ([]*models.TopUpRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TopUpRule), args.Error(1)
}

func (m *MockTopUpRuleRepository) ClaimForExecution(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTopUpRuleRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTopUpRuleRepository) Finalize(ctx context.Context, id uuid.UUID, status models.TopUpStatus, succeeded, failed int, executedAt time.Time) error {
	args := m.Called(ctx, id, status, succeeded, failed, executedAt)
	return args.Error(0)
}

// MockTopUpRunRepository is a mock implementation of TopUpRunRepository
type MockTopUpRunRepository struct {
	mock.Mock
}

func (m *MockTopUpRunRepository) Create(ctx context.Context, run *models.TopUpRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockTopUpRunRepository) GetByRule(ctx context.Context, ruleID uuid.UUID) ([]*models.TopUpRun, error) {
	args := m.Called(ctx, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TopUpRun), args.Error(1)
}

func (m *MockTopUpRunRepository) GetLatest(ctx context.Context) (*models.TopUpRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TopUpRun), args.Error(1)
}

// MockCourseRepository is a mock implementation of CourseRepository
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) Create(ctx context.Context, course *models.Course) error {
	args := m.Called(ctx, course)
	return args.Error(0)
}

func (m *MockCourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

// MockEnrollmentRepository is a mock implementation of EnrollmentRepository
type MockEnrollmentRepository struct {
	mock.Mock
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	args := m.Called(ctx, enrollment)
	return args.Error(0)
}

func (m *MockEnrollmentRepository) GetByCourse(ctx context.Context, courseID int64) ([]*models.Enrollment, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Enrollment), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) CreateBatch(ctx context.Context, invoices []*models.Invoice) (int, error) {
	args := m.Called(ctx, invoices)
	return args.Int(0), args.Error(1)
}

func (m *MockInvoiceRepository) GetByEnrollment(ctx context.Context, enrollmentID int64) ([]*models.Invoice, error) {
	args := m.Called(ctx, enrollmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// noopPublisher swallows events for tests that don't assert on them
type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockRuleScheduler is a mock implementation of RuleScheduler
type MockRuleScheduler struct {
	mock.Mock
}

func (m *MockRuleScheduler) Schedule(rule *models.TopUpRule) {
	m.Called(rule)
}

func (m *MockRuleScheduler) Unschedule(ruleID uuid.UUID) bool {
	args := m.Called(ruleID)
	return args.Bool(0)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are mocked calls; the repository getters return whatever
// SetRepositories installed.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo    AccountRepository
	fundTxnRepo    FundTransactionRepository
	ruleRepo       TopUpRuleRepository
	runRepo        TopUpRunRepository
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	invoiceRepo    InvoiceRepository
	eventBus       EventPublisher
}

// SetRepositories installs the mock repositories this unit of work hands
// out. Nil is fine for repositories the test never touches; a nil event
// bus gets a no-op publisher.
func (m *MockUnitOfWork) SetRepositories(
	accounts AccountRepository,
	fundTxns FundTransactionRepository,
	rules TopUpRuleRepository,
	runs TopUpRunRepository,
	eventBus EventPublisher,
) {
	m.accountRepo = accounts
	m.fundTxnRepo = fundTxns
	m.ruleRepo = rules
	m.runRepo = runs
	if eventBus == nil {
		eventBus = noopPublisher{}
	}
	m.eventBus = eventBus
}

// SetBillingRepositories installs the course, enrollment and invoice mocks
func (m *MockUnitOfWork) SetBillingRepositories(
	courses CourseRepository,
	enrollments EnrollmentRepository,
	invoices InvoiceRepository,
) {
	m.courseRepo = courses
	m.enrollmentRepo = enrollments
	m.invoiceRepo = invoices
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) FundTransactionRepository() FundTransactionRepository {
	return m.fundTxnRepo
}

func (m *MockUnitOfWork) TopUpRuleRepository() TopUpRuleRepository {
	return m.ruleRepo
}

func (m *MockUnitOfWork) TopUpRunRepository() TopUpRunRepository {
	return m.runRepo
}

func (m *MockUnitOfWork) CourseRepository() CourseRepository {
	return m.courseRepo
}

func (m *MockUnitOfWork) EnrollmentRepository() EnrollmentRepository {
	return m.enrollmentRepo
}

func (m *MockUnitOfWork) InvoiceRepository() InvoiceRepository {
	return m.invoiceRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return noopPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// fixedClock is a Clock frozen at a single instant for tests
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

package repository

import (
	"context"
	"fmt"

	"edufund/database"
	"edufund/events"
	"edufund/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	fundTxnRepo      service.FundTransactionRepository
	ruleRepo         service.TopUpRuleRepository
	runRepo          service.TopUpRunRepository
	courseRepo       service.CourseRepository
	enrollmentRepo   service.EnrollmentRepository
	invoiceRepo      service.InvoiceRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.fundTxnRepo = newFundTransactionRepositoryWithTx(tx)
	u.ruleRepo = newTopUpRuleRepositoryWithTx(tx)
	u.runRepo = newTopUpRunRepositoryWithTx(tx)
	u.courseRepo = newCourseRepositoryWithTx(tx)
	u.enrollmentRepo = newEnrollmentRepositoryWithTx(tx)
	u.invoiceRepo = newInvoiceRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// FundTransactionRepository returns the fund transaction repository for this unit of work
func (u *unitOfWork) FundTransactionRepository() service.FundTransactionRepository {
	if u.fundTxnRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.fundTxnRepo
}

// TopUpRuleRepository returns the top-up rule repository for this unit of work
func (u *unitOfWork) TopUpRuleRepository() service.TopUpRuleRepository {
	if u.ruleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ruleRepo
}

// TopUpRunRepository returns the top-up run repository for this unit of work
func (u *unitOfWork) TopUpRunRepository() service.TopUpRunRepository {
	if u.runRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.runRepo
}

// CourseRepository returns the course repository for this unit of work
func (u *unitOfWork) CourseRepository() service.CourseRepository {
	if u.courseRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.courseRepo
}

// EnrollmentRepository returns the enrollment repository for this unit of work
func (u *unitOfWork) EnrollmentRepository() service.EnrollmentRepository {
	if u.enrollmentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.enrollmentRepo
}

// InvoiceRepository returns the invoice repository for this unit of work
func (u *unitOfWork) InvoiceRepository() service.InvoiceRepository {
	if u.invoiceRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.invoiceRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}

package service

import (
	"context"
	"fmt"

	"edufund/events"
	"edufund/models"

	log "github.com/sirupsen/logrus"
)

type invoiceService struct {
	uowFactory UnitOfWorkFactory
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(uowFactory UnitOfWorkFactory) InvoiceService {
	return &invoiceService{uowFactory: uowFactory}
}

// GenerateInvoices resolves the course's billing periods and writes one
// pending invoice per period per enrollment. Periods already invoiced for
// an enrollment are skipped, so the operation is safe to repeat.
func (s *invoiceService) GenerateInvoices(ctx context.Context, courseID int64) ([]*models.Invoice, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	course, err := uow.CourseRepository().GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("course %d not found", courseID)
	}

	periods, err := ResolveBillingPeriods(course.StartDate, course.Cadence, course.EndDate)
	if err != nil {
		return nil, err
	}

	enrollments, err := uow.EnrollmentRepository().GetByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	var invoices []*models.Invoice
	for _, enrollment := range enrollments {
		for _, period := range periods {
			invoices = append(invoices, &models.Invoice{
				EnrollmentID: enrollment.ID,
				PeriodStart:  period.Start,
				PeriodEnd:    period.End,
				Amount:       course.FeePerPeriod,
				Status:       models.InvoiceStatusPending,
			})
		}
	}

	inserted, err := uow.InvoiceRepository().CreateBatch(ctx, invoices)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoices: %w", err)
	}

	uow.EventBus().Publish(events.InvoicesGeneratedEvent{
		CourseID:     courseID,
		PeriodCount:  len(periods),
		InvoiceCount: inserted,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"courseID": courseID,
		"periods":  len(periods),
		"invoices": inserted,
	}).Info("Invoices generated for course")

	return invoices, nil
}

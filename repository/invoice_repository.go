package repository

import (
	"context"
	"fmt"

	"edufund/database"
	"edufund/models"
)

// InvoiceRepository implements the InvoiceRepository interface
type InvoiceRepository struct {
	q queryable
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB) *InvoiceRepository {
	return &InvoiceRepository{q: db.Pool}
}

// newInvoiceRepositoryWithTx creates a new invoice repository with a transaction
func newInvoiceRepositoryWithTx(tx queryable) *InvoiceRepository {
	return &InvoiceRepository{q: tx}
}

// CreateBatch inserts invoices, skipping periods already invoiced for an
// enrollment. Returns the number actually inserted.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []*models.Invoice) (int, error) {
	query := `
		INSERT INTO invoices (enrollment_id, period_start, period_end, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (enrollment_id, period_start) DO NOTHING
		RETURNING id, created_at
	`

	inserted := 0
	for _, invoice := range invoices {
		err := r.q.QueryRow(ctx, query,
			invoice.EnrollmentID,
			invoice.PeriodStart,
			invoice.PeriodEnd,
			invoice.Amount,
			invoice.Status,
		).Scan(&invoice.ID, &invoice.CreatedAt)
		if err != nil {
			if isNoRows(err) {
				continue // period already invoiced
			}
			return inserted, fmt.Errorf("failed to create invoice for enrollment %d: %w", invoice.EnrollmentID, err)
		}
		inserted++
	}
	return inserted, nil
}

// GetByEnrollment returns all invoices for an enrollment in period order
func (r *InvoiceRepository) GetByEnrollment(ctx context.Context, enrollmentID int64) ([]*models.Invoice, error) {
	query := `
		SELECT id, enrollment_id, period_start, period_end, amount, status, created_at
		FROM invoices
		WHERE enrollment_id = $1
		ORDER BY period_start
	`

	rows, err := r.q.Query(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoices for enrollment %d: %w", enrollmentID, err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		var invoice models.Invoice
		err := rows.Scan(
			&invoice.ID,
			&invoice.EnrollmentID,
			&invoice.PeriodStart,
			&invoice.PeriodEnd,
			&invoice.Amount,
			&invoice.Status,
			&invoice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, &invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course represents an offering billed on a recurring cadence over its
// enrollment window
type Course struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	FeePerPeriod decimal.Decimal `db:"fee_per_period"`
	Cadence      BillingCadence  `db:"cadence"`
	StartDate    time.Time       `db:"start_date"`
	EndDate      time.Time       `db:"end_date"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// Enrollment links an account to a course
type Enrollment struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	CourseID  int64     `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
}

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusVoid    InvoiceStatus = "void"
)

// Invoice is one billing period's charge for one enrollment
type Invoice struct {
	ID           int64           `db:"id"`
	EnrollmentID int64           `db:"enrollment_id"`
	PeriodStart  time.Time       `db:"period_start"`
	PeriodEnd    time.Time       `db:"period_end"`
	Amount       decimal.Decimal `db:"amount"`
	Status       InvoiceStatus   `db:"status"`
	CreatedAt    time.Time       `db:"created_at"`
}

package repository

import (
	"context"
	"fmt"

	"edufund/database"
	"edufund/models"
)

// EnrollmentRepository implements the EnrollmentRepository interface
type EnrollmentRepository struct {
	q queryable
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db *database.DB) *EnrollmentRepository {
	return &EnrollmentRepository{q: db.Pool}
}

// newEnrollmentRepositoryWithTx creates a new enrollment repository with a transaction
func newEnrollmentRepositoryWithTx(tx queryable) *EnrollmentRepository {
	return &EnrollmentRepository{q: tx}
}

// Create creates a new enrollment
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (account_id, course_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, enrollment.AccountID, enrollment.CourseID).
		Scan(&enrollment.ID, &enrollment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enroll account %d in course %d: %w", enrollment.AccountID, enrollment.CourseID, err)
	}
	return nil
}

// GetByCourse returns all enrollments for a course
func (r *EnrollmentRepository) GetByCourse(ctx context.Context, courseID int64) ([]*models.Enrollment, error) {
	query := `
		SELECT id, account_id, course_id, created_at
		FROM enrollments
		WHERE course_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollments for course %d: %w", courseID, err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		var enrollment models.Enrollment
		err := rows.Scan(&enrollment.ID, &enrollment.AccountID, &enrollment.CourseID, &enrollment.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, &enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enrollments: %w", err)
	}
	return enrollments, nil
}

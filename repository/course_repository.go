package repository

import (
	"context"
	"fmt"

	"edufund/database"
	"edufund/models"

	"github.com/jackc/pgx/v5"
)

// CourseRepository implements the CourseRepository interface
type CourseRepository struct {
	q queryable
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *database.DB) *CourseRepository {
	return &CourseRepository{q: db.Pool}
}

// newCourseRepositoryWithTx creates a new course repository with a transaction
func newCourseRepositoryWithTx(tx queryable) *CourseRepository {
	return &CourseRepository{q: tx}
}

// Create creates a new course
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (name, fee_per_period, cadence, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		course.Name,
		course.FeePerPeriod,
		course.Cadence,
		course.StartDate,
		course.EndDate,
	).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create course %s: %w", course.Name, err)
	}
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `
		SELECT id, name, fee_per_period, cadence, start_date, end_date, created_at, updated_at
		FROM courses
		WHERE id = $1
	`

	var course models.Course
	err := r.q.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Name,
		&course.FeePerPeriod,
		&course.Cadence,
		&course.StartDate,
		&course.EndDate,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &course, nil
}

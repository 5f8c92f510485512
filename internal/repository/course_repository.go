package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

// CourseRepository manages persistence for courses and their program links.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByProgram returns the courses linked to a program in insertion order.
// That order drives the roster's column layout, so it must be stable.
func (r *CourseRepository) ListByProgram(ctx context.Context, programCode string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.name, c.created_at, c.updated_at
        FROM courses c
        JOIN program_courses pc ON pc.course_id = c.id
        JOIN programs p ON p.id = pc.program_id
        WHERE p.code = $1
        ORDER BY c.created_at, c.id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, programCode); err != nil {
		return nil, fmt.Errorf("list courses for program %s: %w", programCode, err)
	}
	return courses, nil
}

// ExistingCodesTx returns which of the given course codes already exist.
func (r *CourseRepository) ExistingCodesTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(codes) == 0 {
		return existing, nil
	}
	query, args, err := sqlx.In("SELECT code FROM courses WHERE code IN (?)", codes)
	if err != nil {
		return nil, fmt.Errorf("build course code lookup: %w", err)
	}
	var found []string
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup course codes: %w", err)
	}
	for _, code := range found {
		existing[code] = struct{}{}
	}
	return existing, nil
}

// InsertBatchTx inserts the given courses as one statement.
func (r *CourseRepository) InsertBatchTx(ctx context.Context, tx *sqlx.Tx, courses []models.Course) error {
	if len(courses) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range courses {
		if courses[i].ID == "" {
			courses[i].ID = uuid.NewString()
		}
		courses[i].CreatedAt = now
		courses[i].UpdatedAt = now
	}
	const query = `INSERT INTO courses (id, code, name, created_at, updated_at)
        VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, courses); err != nil {
		return fmt.Errorf("insert courses: %w", err)
	}
	return nil
}

// IDsByCodeTx resolves course codes to IDs inside the transaction.
func (r *CourseRepository) IDsByCodeTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]string, error) {
	ids := make(map[string]string, len(codes))
	if len(codes) == 0 {
		return ids, nil
	}
	query, args, err := sqlx.In("SELECT id, code FROM courses WHERE code IN (?)", codes)
	if err != nil {
		return nil, fmt.Errorf("build course id lookup: %w", err)
	}
	rows := []struct {
		ID   string `db:"id"`
		Code string `db:"code"`
	}{}
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup course ids: %w", err)
	}
	for _, row := range rows {
		ids[row.Code] = row.ID
	}
	return ids, nil
}

// LinkProgramTx unions the given courses into the program's course set.
// Existing links are left untouched so repeated imports stay idempotent.
// Returns the number of links actually created.
func (r *CourseRepository) LinkProgramTx(ctx context.Context, tx *sqlx.Tx, programID string, courseIDs []string) (int, error) {
	created := 0
	const query = `INSERT INTO program_courses (program_id, course_id)
        VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, courseID := range courseIDs {
		result, err := tx.ExecContext(ctx, query, programID, courseID)
		if err != nil {
			return created, fmt.Errorf("link course %s: %w", courseID, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	return created, nil
}

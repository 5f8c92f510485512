package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

// ProgramRepository manages persistence for programs and their cascade
// semantics.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

// List returns program summaries with course and distinct-student counts.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramSummary, int, error) {
	base := `FROM programs p
        LEFT JOIN program_courses pc ON pc.program_id = p.id
        LEFT JOIN course_enrollments ce ON ce.course_id = pc.course_id`
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.code) LIKE $%d OR LOWER(p.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.code, p.name,
        COUNT(DISTINCT pc.course_id) AS courses,
        COUNT(DISTINCT ce.student_id) AS students
        %s GROUP BY p.id, p.code, p.name ORDER BY p.created_at LIMIT %d OFFSET %d`, base, size, offset)

	var summaries []models.ProgramSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT p.id) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return summaries, total, nil
}

// FindByCode fetches a program by its unique code.
func (r *ProgramRepository) FindByCode(ctx context.Context, code string) (*models.Program, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM programs WHERE code = $1`
	var program models.Program
	if err := r.db.GetContext(ctx, &program, query, code); err != nil {
		return nil, err
	}
	return &program, nil
}

// ExistsByCode checks whether a program with the given code exists.
func (r *ProgramRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM programs WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check program code: %w", err)
	}
	return true, nil
}

// Create inserts a new program record.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now
	const query = `INSERT INTO programs (id, code, name, created_at, updated_at)
        VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update modifies an existing program.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programs SET code = :code, name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// ExistingCodesTx returns which of the given program codes are already
// persisted, inside the provided transaction.
func (r *ProgramRepository) ExistingCodesTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(codes) == 0 {
		return existing, nil
	}
	query, args, err := sqlx.In("SELECT code FROM programs WHERE code IN (?)", codes)
	if err != nil {
		return nil, fmt.Errorf("build program code lookup: %w", err)
	}
	var found []string
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("lookup program codes: %w", err)
	}
	for _, code := range found {
		existing[code] = struct{}{}
	}
	return existing, nil
}

// InsertBatchTx inserts the given programs as one statement.
func (r *ProgramRepository) InsertBatchTx(ctx context.Context, tx *sqlx.Tx, programs []models.Program) error {
	if len(programs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range programs {
		if programs[i].ID == "" {
			programs[i].ID = uuid.NewString()
		}
		programs[i].CreatedAt = now
		programs[i].UpdatedAt = now
	}
	const query = `INSERT INTO programs (id, code, name, created_at, updated_at)
        VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, programs); err != nil {
		return fmt.Errorf("insert programs: %w", err)
	}
	return nil
}

// IDByCodeTx resolves a program code to its ID inside the transaction.
func (r *ProgramRepository) IDByCodeTx(ctx context.Context, tx *sqlx.Tx, code string) (string, error) {
	var id string
	if err := tx.GetContext(ctx, &id, "SELECT id FROM programs WHERE code = $1", code); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteCascade removes a program, its exclusive courses and every student
// left without any enrollment reachable from a surviving program. The join
// links are removed first, then each affected student is re-checked against
// the remaining association graph. Returns the number of students deleted.
func (r *ProgramRepository) DeleteCascade(ctx context.Context, code string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var programID string
	if err := tx.GetContext(ctx, &programID, "SELECT id FROM programs WHERE code = $1", code); err != nil {
		return 0, err
	}

	var affected []string
	const affectedQuery = `SELECT DISTINCT ce.student_id
        FROM course_enrollments ce
        JOIN program_courses pc ON pc.course_id = ce.course_id
        WHERE pc.program_id = $1`
	if err := tx.SelectContext(ctx, &affected, affectedQuery, programID); err != nil {
		return 0, fmt.Errorf("collect affected students: %w", err)
	}

	// Courses serving another program survive; only exclusive ones cascade.
	var exclusive []string
	const exclusiveQuery = `SELECT pc.course_id FROM program_courses pc
        WHERE pc.program_id = $1
        AND NOT EXISTS (
            SELECT 1 FROM program_courses o
            WHERE o.course_id = pc.course_id AND o.program_id <> $1
        )`
	if err := tx.SelectContext(ctx, &exclusive, exclusiveQuery, programID); err != nil {
		return 0, fmt.Errorf("collect exclusive courses: %w", err)
	}

	if len(exclusive) > 0 {
		query, args, err := sqlx.In("DELETE FROM course_enrollments WHERE course_id IN (?)", exclusive)
		if err != nil {
			return 0, fmt.Errorf("build enrollment delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("delete enrollments: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM program_courses WHERE program_id = $1", programID); err != nil {
		return 0, fmt.Errorf("delete program links: %w", err)
	}

	if len(exclusive) > 0 {
		query, args, err := sqlx.In("DELETE FROM courses WHERE id IN (?)", exclusive)
		if err != nil {
			return 0, fmt.Errorf("build course delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("delete courses: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM programs WHERE id = $1", programID); err != nil {
		return 0, fmt.Errorf("delete program: %w", err)
	}

	deleted := 0
	if len(affected) > 0 {
		// A student survives only when at least one remaining enrollment
		// reaches a course still linked to some program.
		query, args, err := sqlx.In(`SELECT s.id FROM students s WHERE s.id IN (?)
            AND NOT EXISTS (
                SELECT 1 FROM course_enrollments ce
                JOIN program_courses pc ON pc.course_id = ce.course_id
                WHERE ce.student_id = s.id
            )`, affected)
		if err != nil {
			return 0, fmt.Errorf("build orphan lookup: %w", err)
		}
		var orphans []string
		if err := tx.SelectContext(ctx, &orphans, tx.Rebind(query), args...); err != nil {
			return 0, fmt.Errorf("collect orphaned students: %w", err)
		}

		if len(orphans) > 0 {
			query, args, err := sqlx.In("DELETE FROM course_enrollments WHERE student_id IN (?)", orphans)
			if err != nil {
				return 0, fmt.Errorf("build orphan enrollment delete: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return 0, fmt.Errorf("delete orphan enrollments: %w", err)
			}

			query, args, err = sqlx.In("DELETE FROM students WHERE id IN (?)", orphans)
			if err != nil {
				return 0, fmt.Errorf("build orphan student delete: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return 0, fmt.Errorf("delete orphaned students: %w", err)
			}
			deleted = len(orphans)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cascade delete: %w", err)
	}
	return deleted, nil
}

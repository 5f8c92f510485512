package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

// StudentRepository manages persistence for students and their enrollments.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByCode fetches a student by enrollment code.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	const query = `SELECT id, code, exam_number, national_id, first_name, last_name,
        birth_date, password_hash, created_at, updated_at
        FROM students WHERE code = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, code); err != nil {
		return nil, err
	}
	return &student, nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET code = :code, exam_number = :exam_number,
        national_id = :national_id, first_name = :first_name, last_name = :last_name,
        birth_date = :birth_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student and their enrollments.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin student delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM course_enrollments WHERE student_id = $1", id); err != nil {
		return fmt.Errorf("delete student enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return tx.Commit()
}

// MatchingKeysTx returns persisted students whose enrollment code, exam
// number or national ID appears in any of the provided key lists. A match on
// a single key is enough to flag a student as already imported.
func (r *StudentRepository) MatchingKeysTx(ctx context.Context, tx *sqlx.Tx, codes, examNumbers, nationalIDs []string) ([]models.StudentKeys, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if len(codes) > 0 {
		conditions = append(conditions, "code IN (?)")
		args = append(args, codes)
	}
	if len(examNumbers) > 0 {
		conditions = append(conditions, "exam_number IN (?)")
		args = append(args, examNumbers)
	}
	if len(nationalIDs) > 0 {
		conditions = append(conditions, "national_id IN (?)")
		args = append(args, nationalIDs)
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	raw := fmt.Sprintf(`SELECT id, code, exam_number, national_id FROM students WHERE %s`,
		strings.Join(conditions, " OR "))
	query, expanded, err := sqlx.In(raw, args...)
	if err != nil {
		return nil, fmt.Errorf("build key match lookup: %w", err)
	}
	var matches []models.StudentKeys
	if err := tx.SelectContext(ctx, &matches, tx.Rebind(query), expanded...); err != nil {
		return nil, fmt.Errorf("lookup student keys: %w", err)
	}
	return matches, nil
}

// InsertBatchTx inserts the given students as one statement.
func (r *StudentRepository) InsertBatchTx(ctx context.Context, tx *sqlx.Tx, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		students[i].CreatedAt = now
		students[i].UpdatedAt = now
	}
	const query = `INSERT INTO students (id, code, exam_number, national_id, first_name,
        last_name, birth_date, password_hash, created_at, updated_at)
        VALUES (:id, :code, :exam_number, :national_id, :first_name,
        :last_name, :birth_date, :password_hash, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, students); err != nil {
		return fmt.Errorf("insert students: %w", err)
	}
	return nil
}

// InsertEnrollmentsTx links students to courses, skipping links that already
// exist so re-imports never duplicate a relationship.
func (r *StudentRepository) InsertEnrollmentsTx(ctx context.Context, tx *sqlx.Tx, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	const query = `INSERT INTO course_enrollments (student_id, course_id)
        VALUES (:student_id, :course_id) ON CONFLICT DO NOTHING`
	if _, err := tx.NamedExecContext(ctx, query, enrollments); err != nil {
		return fmt.Errorf("insert enrollments: %w", err)
	}
	return nil
}

// ListRosterEntries returns each student of a program with the course codes
// they are enrolled in, deduplicated, in first-created order.
func (r *StudentRepository) ListRosterEntries(ctx context.Context, programCode string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id AS student_id, s.last_name, s.first_name, c.code AS course_code
        FROM students s
        JOIN course_enrollments ce ON ce.student_id = s.id
        JOIN courses c ON c.id = ce.course_id
        JOIN program_courses pc ON pc.course_id = c.id
        JOIN programs p ON p.id = pc.program_id
        WHERE p.code = $1
        ORDER BY s.created_at, s.id, c.code`
	rows := []struct {
		StudentID  string `db:"student_id"`
		LastName   string `db:"last_name"`
		FirstName  string `db:"first_name"`
		CourseCode string `db:"course_code"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, programCode); err != nil {
		return nil, fmt.Errorf("list roster entries for %s: %w", programCode, err)
	}

	entries := make([]models.RosterEntry, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.StudentID]
		if !ok {
			i = len(entries)
			index[row.StudentID] = i
			entries = append(entries, models.RosterEntry{
				StudentID: row.StudentID,
				LastName:  row.LastName,
				FirstName: row.FirstName,
			})
		}
		entries[i].CourseCodes = append(entries[i].CourseCodes, row.CourseCode)
	}
	return entries, nil
}

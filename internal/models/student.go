package models

import "time"

// Student represents a learner with three candidate identifying keys: the
// enrollment code, the national exam number and the national ID number. Any
// of them, when present, must be globally unique.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	ExamNumber   string    `db:"exam_number" json:"exam_number"`
	NationalID   string    `db:"national_id" json:"national_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	BirthDate    time.Time `db:"birth_date" json:"birth_date"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentKeys is the projection used to detect already-imported students.
type StudentKeys struct {
	ID         string `db:"id"`
	Code       string `db:"code"`
	ExamNumber string `db:"exam_number"`
	NationalID string `db:"national_id"`
}

// StudentUpdate is a partial-field patch applied to an existing student.
type StudentUpdate struct {
	Code       *string    `json:"code"`
	ExamNumber *string    `json:"exam_number"`
	NationalID *string    `json:"national_id"`
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	StudentID string `db:"student_id"`
	CourseID  string `db:"course_id"`
}

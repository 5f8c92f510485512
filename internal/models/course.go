package models

import "time"

// Course represents a teachable unit. Its code is globally unique; one course
// may serve several programs through the program_courses join table.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProgramCourseLink associates a course with a program.
type ProgramCourseLink struct {
	ProgramCode string
	CourseCode  string
}

package models

// Roster column keys shared between the roster builder and the renderers.
const (
	RosterColOrdinal   = "Numero"
	RosterColLastName  = "Nom"
	RosterColFirstName = "Prenom"

	StatusEnrolled    = "I"
	StatusNotEnrolled = "NI"
)

// RosterRow is one student's participation summary for a program: ordinal
// number, names, and one status cell per course column. Derived on demand,
// never persisted.
type RosterRow map[string]string

// Roster is the validated row list for one program together with its ordered
// column set. Every row carries the full column set; courses the student is
// not enrolled in hold the not-enrolled status.
type Roster struct {
	ProgramCode string      `json:"program_code"`
	ProgramName string      `json:"program_name"`
	Headers     []string    `json:"headers"`
	Rows        []RosterRow `json:"rows"`
}

// Group is the inner partition of a roster, a contiguous row slice.
type Group []RosterRow

// Section is the outer partition, holding its groups in order.
type Section []Group

// RosterEntry is the repository projection the roster is built from: one
// student with the course codes they are enrolled in within the program.
type RosterEntry struct {
	StudentID   string   `json:"student_id"`
	LastName    string   `json:"last_name"`
	FirstName   string   `json:"first_name"`
	CourseCodes []string `json:"course_codes"`
}

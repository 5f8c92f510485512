package models

import "time"

// Spreadsheet column contract for roster imports. The first sheet's header
// row must carry exactly these names.
const (
	ColProgramCode = "CODE_ETAPE"
	ColProgramName = "VERSION_ETAPE"
	ColCourseCode  = "COD_ELP"
	ColCourseName  = "LIB_ELP"
	ColExamNumber  = "CNE"
	ColNationalID  = "CIN"
	ColLastName    = "NOM"
	ColFirstName   = "PRENOM"
	ColBirthDate   = "DATE_NAISSANCE"
	ColStudentCode = "CODE_ETUDIANT"
)

// RawRecord is one flat spreadsheet row: one student crossed with one course
// enrollment inside one program.
type RawRecord struct {
	ProgramCode string
	ProgramName string
	CourseCode  string
	CourseName  string
	ExamNumber  string
	NationalID  string
	LastName    string
	FirstName   string
	BirthDate   time.Time
	StudentCode string
}

// NewStudent is a normalized student pending reconciliation, carrying the
// deduplicated set of course codes seen for it in the input.
type NewStudent struct {
	Code        string
	ExamNumber  string
	NationalID  string
	FirstName   string
	LastName    string
	BirthDate   time.Time
	CourseCodes []string
}

// NormalizedImport holds the three reconciled in-memory sets produced from a
// raw spreadsheet, plus the course-program association pairs.
type NormalizedImport struct {
	Programs []Program
	Courses  []Course
	Links    []ProgramCourseLink
	Students []NewStudent
}

// StudentCredential is the one-time plaintext credential returned for a
// student created during an import. The persisted copy is always hashed.
type StudentCredential struct {
	StudentCode string `json:"student_code"`
	ExamNumber  string `json:"exam_number"`
	Password    string `json:"password"`
}

// ImportReport summarises one reconciliation run.
type ImportReport struct {
	ProgramsCreated int                 `json:"programs_created"`
	CoursesCreated  int                 `json:"courses_created"`
	LinksCreated    int                 `json:"links_created"`
	StudentsCreated int                 `json:"students_created"`
	StudentsSkipped int                 `json:"students_skipped"`
	Credentials     []StudentCredential `json:"credentials,omitempty"`
	Elapsed         time.Duration       `json:"-"`
}

package dto

import (
	"github.com/noah-isme/ucd-roster-api/internal/models"
)

// CredentialResponse carries one newly generated student credential. The
// plaintext appears only in this response and is never persisted.
type CredentialResponse struct {
	StudentCode string `json:"student_code"`
	ExamNumber  string `json:"exam_number"`
	Password    string `json:"password"`
}

// ImportReportResponse summarizes one import reconciliation.
type ImportReportResponse struct {
	ProgramsCreated int                  `json:"programs_created"`
	CoursesCreated  int                  `json:"courses_created"`
	LinksCreated    int                  `json:"links_created"`
	StudentsCreated int                  `json:"students_created"`
	StudentsSkipped int                  `json:"students_skipped"`
	ElapsedMs       int64                `json:"elapsed_ms"`
	Credentials     []CredentialResponse `json:"credentials"`
}

// NewImportReportResponse maps an import report onto the wire shape.
func NewImportReportResponse(report *models.ImportReport) ImportReportResponse {
	credentials := make([]CredentialResponse, len(report.Credentials))
	for i, c := range report.Credentials {
		credentials[i] = CredentialResponse{
			StudentCode: c.StudentCode,
			ExamNumber:  c.ExamNumber,
			Password:    c.Password,
		}
	}
	return ImportReportResponse{
		ProgramsCreated: report.ProgramsCreated,
		CoursesCreated:  report.CoursesCreated,
		LinksCreated:    report.LinksCreated,
		StudentsCreated: report.StudentsCreated,
		StudentsSkipped: report.StudentsSkipped,
		ElapsedMs:       report.Elapsed.Milliseconds(),
		Credentials:     credentials,
	}
}

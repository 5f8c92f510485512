package dto

import "github.com/noah-isme/ucd-roster-api/internal/service"

// RosterFilesQuery binds the query parameters of the roster-files download
// endpoint.
type RosterFilesQuery struct {
	Session      string `form:"session" binding:"required,oneof=automne printemps"`
	Format       string `form:"format" binding:"required,oneof=xlsx pdf"`
	GroupCount   int    `form:"groups" binding:"required,min=1"`
	SectionCount int    `form:"sections,default=1" binding:"min=1"`
}

// ToExportRequest fills a service export request for one program.
func (q RosterFilesQuery) ToExportRequest(programCode string) service.ExportRequest {
	sections := q.SectionCount
	if sections == 0 {
		sections = 1
	}
	return service.ExportRequest{
		ProgramCode:  programCode,
		Session:      q.Session,
		Format:       q.Format,
		GroupCount:   q.GroupCount,
		SectionCount: sections,
	}
}

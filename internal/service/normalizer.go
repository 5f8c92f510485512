package service

import (
	"github.com/noah-isme/ucd-roster-api/internal/models"
)

// NormalizeRecords reconciles raw spreadsheet rows into deduplicated program,
// course and student sets. It is a pure function over the input: no I/O, no
// mutation of the records, and empty input yields empty collections.
func NormalizeRecords(records []models.RawRecord) models.NormalizedImport {
	out := models.NormalizedImport{
		Programs: make([]models.Program, 0),
		Courses:  make([]models.Course, 0),
		Links:    make([]models.ProgramCourseLink, 0),
		Students: make([]models.NewStudent, 0),
	}

	seenPrograms := make(map[string]struct{})
	seenCourses := make(map[string]struct{})
	seenLinks := make(map[string]struct{})
	studentIndex := make(map[string]int)
	studentCourses := make(map[string]map[string]struct{})

	for _, record := range records {
		// Programs are first-seen-wins by code; later rows never rename.
		if record.ProgramCode != "" {
			if _, ok := seenPrograms[record.ProgramCode]; !ok {
				seenPrograms[record.ProgramCode] = struct{}{}
				out.Programs = append(out.Programs, models.Program{
					Code: record.ProgramCode,
					Name: record.ProgramName,
				})
			}
		}

		if record.CourseCode != "" {
			if _, ok := seenCourses[record.CourseCode]; !ok {
				seenCourses[record.CourseCode] = struct{}{}
				out.Courses = append(out.Courses, models.Course{
					Code: record.CourseCode,
					Name: record.CourseName,
				})
			}
			if record.ProgramCode != "" {
				linkKey := record.ProgramCode + "\x00" + record.CourseCode
				if _, ok := seenLinks[linkKey]; !ok {
					seenLinks[linkKey] = struct{}{}
					out.Links = append(out.Links, models.ProgramCourseLink{
						ProgramCode: record.ProgramCode,
						CourseCode:  record.CourseCode,
					})
				}
			}
		}

		// A missing national ID stays an empty string so the composite key
		// remains stable across rows.
		studentKey := record.ExamNumber + "-" + record.NationalID
		i, ok := studentIndex[studentKey]
		if !ok {
			i = len(out.Students)
			studentIndex[studentKey] = i
			studentCourses[studentKey] = make(map[string]struct{})
			out.Students = append(out.Students, models.NewStudent{
				Code:        record.StudentCode,
				ExamNumber:  record.ExamNumber,
				NationalID:  record.NationalID,
				FirstName:   record.FirstName,
				LastName:    record.LastName,
				BirthDate:   record.BirthDate,
				CourseCodes: make([]string, 0, 4),
			})
		}
		if record.CourseCode != "" {
			if _, dup := studentCourses[studentKey][record.CourseCode]; !dup {
				studentCourses[studentKey][record.CourseCode] = struct{}{}
				out.Students[i].CourseCodes = append(out.Students[i].CourseCodes, record.CourseCode)
			}
		}
	}

	return out
}

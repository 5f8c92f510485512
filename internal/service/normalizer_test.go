package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

func rawRecord(program, course, exam, national string) models.RawRecord {
	return models.RawRecord{
		ProgramCode: program,
		ProgramName: "Filière " + program,
		CourseCode:  course,
		CourseName:  "Cours " + course,
		ExamNumber:  exam,
		NationalID:  national,
		LastName:    "ALAMI",
		FirstName:   "Yassine",
		BirthDate:   time.Date(2003, 5, 12, 0, 0, 0, 0, time.UTC),
		StudentCode: "E" + exam,
	}
}

func TestNormalizeRecordsDeduplicatesStudents(t *testing.T) {
	records := []models.RawRecord{
		rawRecord("SMI", "MATH101", "123", "AB1"),
		rawRecord("SMI", "MATH101", "123", "AB1"),
		rawRecord("SMI", "PHYS101", "123", "AB1"),
	}

	out := NormalizeRecords(records)

	require.Len(t, out.Programs, 1)
	assert.Equal(t, "SMI", out.Programs[0].Code)
	require.Len(t, out.Courses, 2)
	require.Len(t, out.Links, 2)
	require.Len(t, out.Students, 1)
	assert.Equal(t, []string{"MATH101", "PHYS101"}, out.Students[0].CourseCodes)
}

func TestNormalizeRecordsProgramNameIsFirstSeen(t *testing.T) {
	first := rawRecord("SMI", "MATH101", "123", "AB1")
	second := rawRecord("SMI", "PHYS101", "456", "CD2")
	second.ProgramName = "Renamed"

	out := NormalizeRecords([]models.RawRecord{first, second})

	require.Len(t, out.Programs, 1)
	assert.Equal(t, "Filière SMI", out.Programs[0].Name)
}

func TestNormalizeRecordsSharedCourseLinksBothPrograms(t *testing.T) {
	out := NormalizeRecords([]models.RawRecord{
		rawRecord("SMI", "MATH101", "123", "AB1"),
		rawRecord("SMP", "MATH101", "456", "CD2"),
	})

	require.Len(t, out.Courses, 1)
	require.Len(t, out.Links, 2)
	assert.Equal(t, "SMI", out.Links[0].ProgramCode)
	assert.Equal(t, "SMP", out.Links[1].ProgramCode)
}

func TestNormalizeRecordsMissingNationalIDKeepsStudentsSeparate(t *testing.T) {
	a := rawRecord("SMI", "MATH101", "123", "")
	b := rawRecord("SMI", "MATH101", "1231", "")
	out := NormalizeRecords([]models.RawRecord{a, b})
	require.Len(t, out.Students, 2)
}

func TestNormalizeRecordsEmptyInput(t *testing.T) {
	out := NormalizeRecords(nil)
	assert.Empty(t, out.Programs)
	assert.Empty(t, out.Courses)
	assert.Empty(t, out.Links)
	assert.Empty(t, out.Students)
}

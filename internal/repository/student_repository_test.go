package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ucd-roster-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryMatchingKeysTx(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, code, exam_number, national_id FROM students WHERE code IN .+ OR exam_number IN .+ OR national_id IN").
		WithArgs("E123", "123", "456", "AB1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "exam_number", "national_id"}).
			AddRow("s1", "E123", "123", "AB1"))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	matches, err := repo.MatchingKeysTx(context.Background(), tx, []string{"E123"}, []string{"123", "456"}, []string{"AB1"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "123", matches[0].ExamNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryMatchingKeysTxSkipsEmptyLists(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	matches, err := repo.MatchingKeysTx(context.Background(), tx, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryInsertBatchTxAssignsIDs(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	students := []models.Student{
		{Code: "E123", ExamNumber: "123"},
		{Code: "E456", ExamNumber: "456"},
	}
	require.NoError(t, repo.InsertBatchTx(context.Background(), tx, students))
	assert.NotEmpty(t, students[0].ID)
	assert.NotEmpty(t, students[1].ID)
	assert.NotEqual(t, students[0].ID, students[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryInsertEnrollmentsTxIgnoresEmpty(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, repo.InsertEnrollmentsTx(context.Background(), tx, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListRosterEntriesFoldsCourses(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "last_name", "first_name", "course_code"}).
		AddRow("s1", "ALAMI", "Yassine", "MATH101").
		AddRow("s1", "ALAMI", "Yassine", "PHYS101").
		AddRow("s2", "BENNANI", "Sara", "MATH101")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id AS student_id, s.last_name, s.first_name, c.code AS course_code")).
		WithArgs("SMI").
		WillReturnRows(rows)

	entries, err := repo.ListRosterEntries(context.Background(), "SMI")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"MATH101", "PHYS101"}, entries[0].CourseCodes)
	assert.Equal(t, []string{"MATH101"}, entries[1].CourseCodes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	"github.com/noah-isme/ucd-roster-api/pkg/config"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
	"github.com/noah-isme/ucd-roster-api/pkg/spreadsheet"
)

type programImportStore interface {
	ExistingCodesTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]struct{}, error)
	InsertBatchTx(ctx context.Context, tx *sqlx.Tx, programs []models.Program) error
	IDByCodeTx(ctx context.Context, tx *sqlx.Tx, code string) (string, error)
}

type courseImportStore interface {
	ExistingCodesTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]struct{}, error)
	InsertBatchTx(ctx context.Context, tx *sqlx.Tx, courses []models.Course) error
	IDsByCodeTx(ctx context.Context, tx *sqlx.Tx, codes []string) (map[string]string, error)
	LinkProgramTx(ctx context.Context, tx *sqlx.Tx, programID string, courseIDs []string) (int, error)
}

type studentImportStore interface {
	MatchingKeysTx(ctx context.Context, tx *sqlx.Tx, codes, examNumbers, nationalIDs []string) ([]models.StudentKeys, error)
	InsertBatchTx(ctx context.Context, tx *sqlx.Tx, students []models.Student) error
	InsertEnrollmentsTx(ctx context.Context, tx *sqlx.Tx, enrollments []models.Enrollment) error
}

// ProgressFunc receives progress events while an import runs. The core emits
// events; the consumer decides how to display them.
type ProgressFunc func(stage string, processed, total int)

// ImportService ingests a raw spreadsheet export and reconciles it against
// persisted state inside a single all-or-nothing transaction per file.
type ImportService struct {
	db       *sqlx.DB
	programs programImportStore
	courses  courseImportStore
	students studentImportStore
	cfg      config.ImportConfig
	rosters  rosterInvalidator
	logger   *zap.Logger
	progress ProgressFunc
}

// NewImportService constructs an ImportService. rosters may be nil when
// roster caching is disabled.
func NewImportService(db *sqlx.DB, programs programImportStore, courses courseImportStore, students studentImportStore, cfg config.ImportConfig, rosters rosterInvalidator, logger *zap.Logger, progress ProgressFunc) *ImportService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = func(string, int, int) {}
	}
	return &ImportService{
		db:       db,
		programs: programs,
		courses:  courses,
		students: students,
		cfg:      cfg,
		rosters:  rosters,
		logger:   logger,
		progress: progress,
	}
}

// Import reads one uploaded workbook and reconciles its rows.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	sheet, err := spreadsheet.Read(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable workbook")
	}
	records, err := s.parseRecords(sheet)
	if err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, NormalizeRecords(records))
}

// parseRecords maps header-keyed sheet rows onto RawRecords, enforcing the
// fixed column contract.
func (s *ImportService) parseRecords(sheet *spreadsheet.Sheet) ([]models.RawRecord, error) {
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	required := []string{
		models.ColProgramCode, models.ColProgramName,
		models.ColCourseCode, models.ColCourseName,
		models.ColExamNumber, models.ColNationalID,
		models.ColLastName, models.ColFirstName,
		models.ColBirthDate, models.ColStudentCode,
	}
	present := make(map[string]struct{}, len(sheet.Headers))
	for _, h := range sheet.Headers {
		present[h] = struct{}{}
	}
	for _, col := range required {
		if _, ok := present[col]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %s", col))
		}
	}

	records := make([]models.RawRecord, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		record := models.RawRecord{
			ProgramCode: row[models.ColProgramCode],
			ProgramName: row[models.ColProgramName],
			CourseCode:  row[models.ColCourseCode],
			CourseName:  row[models.ColCourseName],
			ExamNumber:  row[models.ColExamNumber],
			NationalID:  row[models.ColNationalID],
			LastName:    row[models.ColLastName],
			FirstName:   row[models.ColFirstName],
			StudentCode: row[models.ColStudentCode],
		}
		if raw := row[models.ColBirthDate]; raw != "" {
			birthDate, err := spreadsheet.ParseDate(raw)
			if err != nil {
				s.logger.Sugar().Warnw("unparseable birth date", "row", i+2, "value", raw)
			} else {
				record.BirthDate = birthDate
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// Reconcile merges the normalized sets against persisted state: only
// genuinely new programs, courses and students are inserted, and existing
// relationships are unioned rather than duplicated. Any chunk failure aborts
// the whole import; no partial state ever becomes visible.
func (s *ImportService) Reconcile(ctx context.Context, norm models.NormalizedImport) (*models.ImportReport, error) {
	started := time.Now()
	report := &models.ImportReport{}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.reconcilePrograms(ctx, tx, norm.Programs, report); err != nil {
		return nil, err
	}
	courseIDs, err := s.reconcileCourses(ctx, tx, norm.Courses, report)
	if err != nil {
		return nil, err
	}
	if err := s.reconcileLinks(ctx, tx, norm.Links, courseIDs, report); err != nil {
		return nil, err
	}
	if err := s.reconcileStudents(ctx, tx, norm.Students, courseIDs, report); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "commit import")
	}

	if s.rosters != nil {
		codes := make([]string, len(norm.Programs))
		for i, p := range norm.Programs {
			codes[i] = p.Code
		}
		s.rosters.Invalidate(ctx, codes...)
	}

	report.Elapsed = time.Since(started)
	s.logger.Sugar().Infow("import reconciled",
		"programs_created", report.ProgramsCreated,
		"courses_created", report.CoursesCreated,
		"links_created", report.LinksCreated,
		"students_created", report.StudentsCreated,
		"students_skipped", report.StudentsSkipped,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

func (s *ImportService) reconcilePrograms(ctx context.Context, tx *sqlx.Tx, programs []models.Program, report *models.ImportReport) error {
	codes := make([]string, 0, len(programs))
	for _, p := range programs {
		codes = append(codes, p.Code)
	}
	existing, err := s.programs.ExistingCodesTx(ctx, tx, codes)
	if err != nil {
		return s.txFailure(err, "lookup programs")
	}
	fresh := make([]models.Program, 0, len(programs))
	for _, p := range programs {
		if _, ok := existing[p.Code]; !ok {
			fresh = append(fresh, p)
		}
	}
	for start := 0; start < len(fresh); start += s.cfg.BatchSize {
		if err := s.checkpoint(ctx); err != nil {
			return err
		}
		end := min(start+s.cfg.BatchSize, len(fresh))
		if err := s.programs.InsertBatchTx(ctx, tx, fresh[start:end]); err != nil {
			return s.txFailure(err, "insert programs")
		}
		s.progress("programs", end, len(fresh))
	}
	report.ProgramsCreated = len(fresh)
	return nil
}

func (s *ImportService) reconcileCourses(ctx context.Context, tx *sqlx.Tx, courses []models.Course, report *models.ImportReport) (map[string]string, error) {
	codes := make([]string, 0, len(courses))
	for _, c := range courses {
		codes = append(codes, c.Code)
	}
	existing, err := s.courses.ExistingCodesTx(ctx, tx, codes)
	if err != nil {
		return nil, s.txFailure(err, "lookup courses")
	}
	fresh := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if _, ok := existing[c.Code]; !ok {
			fresh = append(fresh, c)
		}
	}
	for start := 0; start < len(fresh); start += s.cfg.BatchSize {
		if err := s.checkpoint(ctx); err != nil {
			return nil, err
		}
		end := min(start+s.cfg.BatchSize, len(fresh))
		if err := s.courses.InsertBatchTx(ctx, tx, fresh[start:end]); err != nil {
			return nil, s.txFailure(err, "insert courses")
		}
		s.progress("courses", end, len(fresh))
	}
	report.CoursesCreated = len(fresh)

	ids, err := s.courses.IDsByCodeTx(ctx, tx, codes)
	if err != nil {
		return nil, s.txFailure(err, "resolve course ids")
	}
	return ids, nil
}

// reconcileLinks unions course-program associations: a pre-existing course
// gains the new program without being recreated.
func (s *ImportService) reconcileLinks(ctx context.Context, tx *sqlx.Tx, links []models.ProgramCourseLink, courseIDs map[string]string, report *models.ImportReport) error {
	byProgram := make(map[string][]string)
	order := make([]string, 0)
	for _, link := range links {
		courseID, ok := courseIDs[link.CourseCode]
		if !ok {
			continue
		}
		if _, seen := byProgram[link.ProgramCode]; !seen {
			order = append(order, link.ProgramCode)
		}
		byProgram[link.ProgramCode] = append(byProgram[link.ProgramCode], courseID)
	}
	for _, programCode := range order {
		programID, err := s.programs.IDByCodeTx(ctx, tx, programCode)
		if err != nil {
			return s.txFailure(err, fmt.Sprintf("resolve program %s", programCode))
		}
		created, err := s.courses.LinkProgramTx(ctx, tx, programID, byProgram[programCode])
		if err != nil {
			return s.txFailure(err, fmt.Sprintf("link courses to %s", programCode))
		}
		report.LinksCreated += created
	}
	return nil
}

func (s *ImportService) reconcileStudents(ctx context.Context, tx *sqlx.Tx, students []models.NewStudent, courseIDs map[string]string, report *models.ImportReport) error {
	codes := make([]string, 0, len(students))
	examNumbers := make([]string, 0, len(students))
	nationalIDs := make([]string, 0, len(students))
	for _, st := range students {
		if st.Code != "" {
			codes = append(codes, st.Code)
		}
		if st.ExamNumber != "" {
			examNumbers = append(examNumbers, st.ExamNumber)
		}
		if st.NationalID != "" {
			nationalIDs = append(nationalIDs, st.NationalID)
		}
	}
	matches, err := s.students.MatchingKeysTx(ctx, tx, codes, examNumbers, nationalIDs)
	if err != nil {
		return s.txFailure(err, "lookup student keys")
	}
	matchedCodes := make(map[string]struct{})
	matchedExams := make(map[string]struct{})
	matchedIDs := make(map[string]struct{})
	for _, m := range matches {
		if m.Code != "" {
			matchedCodes[m.Code] = struct{}{}
		}
		if m.ExamNumber != "" {
			matchedExams[m.ExamNumber] = struct{}{}
		}
		if m.NationalID != "" {
			matchedIDs[m.NationalID] = struct{}{}
		}
	}

	entities := make([]models.Student, 0, len(students))
	courseCodesByIndex := make([][]string, 0, len(students))
	for _, st := range students {
		// A match on any single identifying key means the student was
		// already imported; skip silently so partial re-imports of the
		// same cohort never duplicate students.
		if keyMatched(matchedCodes, st.Code) || keyMatched(matchedExams, st.ExamNumber) || keyMatched(matchedIDs, st.NationalID) {
			report.StudentsSkipped++
			continue
		}

		password, err := s.credential(st)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generate credential")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "hash credential")
		}

		entities = append(entities, models.Student{
			Code:         st.Code,
			ExamNumber:   st.ExamNumber,
			NationalID:   st.NationalID,
			FirstName:    st.FirstName,
			LastName:     st.LastName,
			BirthDate:    st.BirthDate,
			PasswordHash: string(hash),
		})
		courseCodesByIndex = append(courseCodesByIndex, st.CourseCodes)
		report.Credentials = append(report.Credentials, models.StudentCredential{
			StudentCode: st.Code,
			ExamNumber:  st.ExamNumber,
			Password:    password,
		})
	}

	for start := 0; start < len(entities); start += s.cfg.BatchSize {
		if err := s.checkpoint(ctx); err != nil {
			return err
		}
		end := min(start+s.cfg.BatchSize, len(entities))
		if err := s.students.InsertBatchTx(ctx, tx, entities[start:end]); err != nil {
			return s.txFailure(err, "insert students")
		}
		s.progress("students", end, len(entities))
	}
	report.StudentsCreated = len(entities)

	enrollments := make([]models.Enrollment, 0, len(entities)*4)
	for i, entity := range entities {
		for _, code := range courseCodesByIndex[i] {
			courseID, ok := courseIDs[code]
			if !ok {
				continue
			}
			enrollments = append(enrollments, models.Enrollment{StudentID: entity.ID, CourseID: courseID})
		}
	}
	for start := 0; start < len(enrollments); start += s.cfg.BatchSize {
		if err := s.checkpoint(ctx); err != nil {
			return err
		}
		end := min(start+s.cfg.BatchSize, len(enrollments))
		if err := s.students.InsertEnrollmentsTx(ctx, tx, enrollments[start:end]); err != nil {
			return s.txFailure(err, "insert enrollments")
		}
		s.progress("enrollments", end, len(enrollments))
	}
	return nil
}

// credential produces the one-time plaintext for a new student. Derived mode
// concatenates two identifying fields for deployments that distribute
// credentials on paper; generated mode uses random alphanumerics with at
// least one digit.
func (s *ImportService) credential(st models.NewStudent) (string, error) {
	if s.cfg.CredentialMode == config.CredentialModeDerived {
		return st.ExamNumber + st.NationalID, nil
	}
	return generatePassword(10)
}

const (
	passwordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	passwordDigits  = "0123456789"
)

func generatePassword(length int) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordLetters))))
		if err != nil {
			return "", err
		}
		out[i] = passwordLetters[n.Int64()]
	}
	// Guarantee at least one digit.
	pos, err := rand.Int(rand.Reader, big.NewInt(int64(length)))
	if err != nil {
		return "", err
	}
	digit, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordDigits))))
	if err != nil {
		return "", err
	}
	out[pos.Int64()] = passwordDigits[digit.Int64()]
	return string(out), nil
}

// checkpoint is the cancellation point between chunk writes: an aborted
// import never leaves a half-written chunk.
func (s *ImportService) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, "import canceled")
	}
	return nil
}

func (s *ImportService) txFailure(err error, action string) error {
	return appErrors.Wrap(err, appErrors.ErrTransactionFailure.Code, appErrors.ErrTransactionFailure.Status, action)
}

func keyMatched(set map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

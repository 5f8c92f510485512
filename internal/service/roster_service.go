package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

type programRosterStore interface {
	FindByCode(ctx context.Context, code string) (*models.Program, error)
}

type courseRosterStore interface {
	ListByProgram(ctx context.Context, programCode string) ([]models.Course, error)
}

type studentRosterStore interface {
	ListRosterEntries(ctx context.Context, programCode string) ([]models.RosterEntry, error)
}

// RosterCache is the cache dependency used by RosterService.
type RosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// RosterService materializes the full roster table for a program: one row
// per student, one column per course, enrollment flags in every cell.
type RosterService struct {
	programs programRosterStore
	courses  courseRosterStore
	students studentRosterStore
	cache    RosterCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewRosterService constructs a RosterService. cache may be nil to disable
// roster caching.
func NewRosterService(programs programRosterStore, courses courseRosterStore, students studentRosterStore, cache RosterCache, cacheTTL time.Duration, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		programs: programs,
		courses:  courses,
		students: students,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func rosterCacheKey(programCode string) string {
	return "roster:" + programCode
}

// BuildRoster assembles the roster for one program. Column order follows
// course insertion order; row order follows student insertion order. Every
// course column is present on every row, flagged enrolled or not.
func (s *RosterService) BuildRoster(ctx context.Context, programCode string) (*models.Roster, error) {
	if s.cache != nil {
		var cached models.Roster
		if err := s.cache.Get(ctx, rosterCacheKey(programCode), &cached); err == nil {
			return &cached, nil
		}
	}

	program, err := s.programs.FindByCode(ctx, programCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find program")
	}

	courses, err := s.courses.ListByProgram(ctx, program.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list courses")
	}
	entries, err := s.students.ListRosterEntries(ctx, program.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list roster entries")
	}

	headers := make([]string, 0, len(courses)+3)
	headers = append(headers, models.RosterColOrdinal, models.RosterColLastName, models.RosterColFirstName)
	columnByCourse := make(map[string]string, len(courses))
	for _, course := range courses {
		column := AbbreviateCourseName(course.Name)
		columnByCourse[course.Code] = column
		headers = append(headers, column)
	}

	rows := make([]models.RosterRow, 0, len(entries))
	for i, entry := range entries {
		row := models.RosterRow{
			models.RosterColOrdinal:   strconv.Itoa(i + 1),
			models.RosterColLastName:  entry.LastName,
			models.RosterColFirstName: entry.FirstName,
		}
		for _, course := range courses {
			row[columnByCourse[course.Code]] = models.StatusNotEnrolled
		}
		for _, code := range entry.CourseCodes {
			if column, ok := columnByCourse[code]; ok {
				row[column] = models.StatusEnrolled
			}
		}
		rows = append(rows, row)
	}

	roster := &models.Roster{
		ProgramCode: program.Code,
		ProgramName: program.Name,
		Headers:     headers,
		Rows:        rows,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rosterCacheKey(programCode), roster, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("roster cache write failed", "program", programCode, "error", err)
		}
	}
	return roster, nil
}

// Invalidate drops the cached roster for the given programs.
func (s *RosterService) Invalidate(ctx context.Context, programCodes ...string) {
	if s.cache == nil || len(programCodes) == 0 {
		return
	}
	keys := make([]string, len(programCodes))
	for i, code := range programCodes {
		keys[i] = rosterCacheKey(code)
	}
	s.cache.Delete(ctx, keys...)
}

var courseNameStopwords = map[string]struct{}{
	"de": {}, "la": {}, "et": {}, "le": {}, "les": {}, "des": {},
	"en": {}, "un": {}, "une": {}, "du": {}, "au": {}, "aux": {},
	"dans": {}, "par": {}, "pour": {}, "sur": {}, "avec": {},
	"sans": {}, "que": {}, "qui": {},
}

var nonWordChars = regexp.MustCompile(`[^\p{L}\p{N} ]+`)
var numericWord = regexp.MustCompile(`^\p{N}+$`)

// AbbreviateCourseName shortens a course title into a column heading: keep
// the first two significant words plus any trailing numeral, dropping
// punctuation and short French function words. "Analyse 3" stays "Analyse 3"
// while "Théorie de la mesure et intégration" becomes "Théorie mesure".
func AbbreviateCourseName(name string) string {
	cleaned := nonWordChars.ReplaceAllString(name, " ")
	words := strings.Fields(cleaned)

	kept := make([]string, 0, 3)
	significant := 0
	for _, word := range words {
		if numericWord.MatchString(word) {
			kept = append(kept, word)
			break
		}
		if _, stop := courseNameStopwords[strings.ToLower(word)]; stop {
			continue
		}
		if significant == 2 {
			break
		}
		kept = append(kept, word)
		significant++
	}
	if len(kept) == 0 {
		return name
	}
	return strings.Join(kept, " ")
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	"github.com/noah-isme/ucd-roster-api/pkg/config"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
	"github.com/noah-isme/ucd-roster-api/pkg/export"
)

type rosterBuilder interface {
	BuildRoster(ctx context.Context, programCode string) (*models.Roster, error)
}

// ExportRequest describes one archive build.
type ExportRequest struct {
	ProgramCode  string `json:"program_code" validate:"required"`
	Session      string `json:"session" validate:"required,oneof=automne printemps"`
	Format       string `json:"format" validate:"required,oneof=xlsx pdf"`
	GroupCount   int    `json:"group_count" validate:"required,min=1"`
	SectionCount int    `json:"section_count" validate:"required,min=1"`
}

// GroupFailure records one group document that could not be rendered. The
// rest of the archive is still produced.
type GroupFailure struct {
	Section int    `json:"section"`
	Group   int    `json:"group"`
	Reason  string `json:"reason"`
}

// ExportResult points at the finished archive on disk.
type ExportResult struct {
	ArchivePath string         `json:"archive_path"`
	FileName    string         `json:"file_name"`
	Failed      []GroupFailure `json:"failed,omitempty"`
}

// ExportService partitions a roster, renders one document per group and
// bundles everything into a single zip archive.
type ExportService struct {
	rosters  rosterBuilder
	builders map[string]export.FileBuilder
	archive  func(srcDir, destPath string) error
	cfg      config.FilesConfig
	validate *validator.Validate
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(rosters rosterBuilder, builders map[string]export.FileBuilder, archive func(srcDir, destPath string) error, cfg config.FilesConfig, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 4
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	return &ExportService{
		rosters:  rosters,
		builders: builders,
		archive:  archive,
		cfg:      cfg,
		validate: validate,
		logger:   logger,
	}
}

type renderJob struct {
	section int // 1-based; 0 means single-section export
	group   int // 1-based
	rows    []models.RosterRow
	path    string
}

// Export builds the archive for one program. Group documents that fail to
// render are reported in the result and skipped; only archive assembly
// itself is fatal.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	builder, ok := s.builders[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}

	roster, err := s.rosters.BuildRoster(ctx, req.ProgramCode)
	if err != nil {
		return nil, err
	}
	sections, err := PartitionRoster(roster.Rows, req.GroupCount, req.SectionCount)
	if err != nil {
		return nil, err
	}

	scratch := filepath.Join(s.cfg.DownloadDir, uuid.NewString())
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "create scratch dir")
	}
	defer os.RemoveAll(scratch)

	jobs, err := s.layoutJobs(scratch, roster.ProgramCode, sections, builder.Ext())
	if err != nil {
		return nil, err
	}

	failures := s.renderAll(ctx, builder, roster, req.Session, jobs)

	archiveName := fmt.Sprintf("%s-%s.zip", roster.ProgramCode, req.Format)
	archivePath := filepath.Join(s.cfg.DownloadDir, uuid.NewString()+"-"+archiveName)
	if err := s.archive(scratch, archivePath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "assemble archive")
	}

	s.logger.Sugar().Infow("export archive built",
		"program", roster.ProgramCode,
		"format", req.Format,
		"groups", len(jobs),
		"failed", len(failures),
		"archive", archivePath,
	)
	return &ExportResult{ArchivePath: archivePath, FileName: archiveName, Failed: failures}, nil
}

// layoutJobs lays out the scratch directory tree and plans one render job
// per non-empty group. Single-section exports keep a flat layout without a
// section subdirectory or label.
func (s *ExportService) layoutJobs(scratch, programCode string, sections []models.Section, ext string) ([]renderJob, error) {
	jobs := make([]renderJob, 0)
	multiSection := len(sections) > 1
	for si, section := range sections {
		dir := scratch
		sectionNumber := 0
		if multiSection {
			sectionNumber = si + 1
			dir = filepath.Join(scratch, fmt.Sprintf("%s-section-%d", programCode, sectionNumber))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "create section dir")
			}
		}
		for gi, group := range section {
			if len(group) == 0 {
				continue
			}
			jobs = append(jobs, renderJob{
				section: sectionNumber,
				group:   gi + 1,
				rows:    group,
				path:    filepath.Join(dir, fmt.Sprintf("%s-group-%d.%s", programCode, gi+1, ext)),
			})
		}
	}
	return jobs, nil
}

func (s *ExportService) renderAll(ctx context.Context, builder export.FileBuilder, roster *models.Roster, session string, jobs []renderJob) []GroupFailure {
	var (
		mu       sync.Mutex
		failures []GroupFailure
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, s.cfg.WorkerConcurrency)
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job renderJob) {
			defer wg.Done()
			defer func() { <-sem }()

			renderCtx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
			defer cancel()

			data := export.Dataset{Headers: roster.Headers, Rows: s.renumber(job.rows)}
			rc := export.RenderContext{
				ProgramName:   roster.ProgramName,
				Session:       session,
				GroupNumber:   job.group,
				SectionNumber: job.section,
			}
			if err := builder.Build(renderCtx, data, job.path, rc); err != nil {
				s.logger.Sugar().Warnw("group render failed",
					"section", job.section, "group", job.group, "error", err)
				mu.Lock()
				failures = append(failures, GroupFailure{Section: job.section, Group: job.group, Reason: err.Error()})
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()
	return failures
}

// renumber copies group rows and restarts the ordinal column at 1 so each
// group document is self-contained.
func (s *ExportService) renumber(rows []models.RosterRow) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, row := range rows {
		copied := make(map[string]string, len(row))
		for k, v := range row {
			copied[k] = v
		}
		copied[models.RosterColOrdinal] = strconv.Itoa(i + 1)
		out[i] = copied
	}
	return out
}

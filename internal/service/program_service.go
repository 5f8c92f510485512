package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

type programStore interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramSummary, int, error)
	FindByCode(ctx context.Context, code string) (*models.Program, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	DeleteCascade(ctx context.Context, code string) (int, error)
}

type rosterInvalidator interface {
	Invalidate(ctx context.Context, programCodes ...string)
}

// CreateProgramRequest carries a new program.
type CreateProgramRequest struct {
	Code string `json:"code" validate:"required,max=32"`
	Name string `json:"name" validate:"required,max=255"`
}

// UpdateProgramRequest renames an existing program.
type UpdateProgramRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ProgramService manages study programs.
type ProgramService struct {
	programs programStore
	rosters  rosterInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(programs programStore, rosters rosterInvalidator, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{programs: programs, rosters: rosters, validate: validate, logger: logger}
}

// List returns program summaries with course and student counts.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramSummary, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	summaries, total, err := s.programs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list programs")
	}
	return summaries, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}, nil
}

// Get returns one program by code.
func (s *ProgramService) Get(ctx context.Context, code string) (*models.Program, error) {
	program, err := s.programs.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find program")
	}
	return program, nil
}

// Create registers a new program. Codes are unique.
func (s *ProgramService) Create(ctx context.Context, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program")
	}
	exists, err := s.programs.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check program code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "program code already exists")
	}
	program := &models.Program{Code: req.Code, Name: req.Name}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "create program")
	}
	return program, nil
}

// Update renames a program.
func (s *ProgramService) Update(ctx context.Context, code string, req UpdateProgramRequest) (*models.Program, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program")
	}
	program, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	program.Name = req.Name
	if err := s.programs.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "update program")
	}
	if s.rosters != nil {
		s.rosters.Invalidate(ctx, code)
	}
	return program, nil
}

// Delete removes a program together with its exclusively owned courses and
// the students left unreachable afterwards.
func (s *ProgramService) Delete(ctx context.Context, code string) error {
	removed, err := s.programs.DeleteCascade(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete program")
	}
	if s.rosters != nil {
		s.rosters.Invalidate(ctx, code)
	}
	s.logger.Sugar().Infow("program deleted", "code", code, "orphaned_students_removed", removed)
	return nil
}

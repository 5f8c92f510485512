package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ucd-roster-api/internal/dto"
	"github.com/noah-isme/ucd-roster-api/internal/models"
	"github.com/noah-isme/ucd-roster-api/internal/service"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
	"github.com/noah-isme/ucd-roster-api/pkg/response"
)

const uploadFormField = "file"

type importService interface {
	Import(ctx context.Context, r io.Reader) (*models.ImportReport, error)
}

// ImportHandler exposes the spreadsheet import endpoint.
type ImportHandler struct {
	imports importService
	metrics *service.MetricsService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService, metrics *service.MetricsService) *ImportHandler {
	return &ImportHandler{imports: imports, metrics: metrics}
}

// Upload accepts one xlsx workbook as multipart form data and reconciles it.
func (h *ImportHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing upload file"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	started := time.Now()
	report, err := h.imports.Import(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveImport(report.StudentsCreated, report.StudentsSkipped, time.Since(started))

	response.JSON(c, http.StatusOK, dto.NewImportReportResponse(report), nil)
}

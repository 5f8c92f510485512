package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ucd-roster-api/internal/dto"
	"github.com/noah-isme/ucd-roster-api/internal/models"
	"github.com/noah-isme/ucd-roster-api/internal/service"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
	"github.com/noah-isme/ucd-roster-api/pkg/response"
)

type rosterService interface {
	BuildRoster(ctx context.Context, programCode string) (*models.Roster, error)
}

type exportService interface {
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
}

// RosterHandler exposes roster inspection and roster document downloads.
type RosterHandler struct {
	rosters rosterService
	exports exportService
	metrics *service.MetricsService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(rosters rosterService, exports exportService, metrics *service.MetricsService) *RosterHandler {
	return &RosterHandler{rosters: rosters, exports: exports, metrics: metrics}
}

// Get returns the full roster table for a program as JSON.
func (h *RosterHandler) Get(c *gin.Context) {
	roster, err := h.rosters.BuildRoster(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Files builds the partitioned roster-document archive and streams it back.
// The archive is deleted once the response has been written.
func (h *RosterHandler) Files(c *gin.Context) {
	var query dto.RosterFilesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	started := time.Now()
	result, err := h.exports.Export(c.Request.Context(), query.ToExportRequest(c.Param("code")))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer os.Remove(result.ArchivePath)

	h.metrics.ObserveRender(query.Format, time.Since(started))
	h.metrics.ObserveArchiveBuild(len(result.Failed))

	if len(result.Failed) > 0 {
		c.Header("X-Render-Failures", strconv.Itoa(len(result.Failed)))
	}
	c.FileAttachment(result.ArchivePath, result.FileName)
}

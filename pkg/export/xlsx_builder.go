package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

const emptyCellPlaceholder = "--"

// XLSXBuilder writes one group as a flat single-sheet workbook.
type XLSXBuilder struct{}

// NewXLSXBuilder constructs an XLSXBuilder.
func NewXLSXBuilder() *XLSXBuilder {
	return &XLSXBuilder{}
}

// Ext returns the file extension produced by this builder.
func (b *XLSXBuilder) Ext() string { return "xlsx" }

// Build renders the dataset into a flat sheet at path. Empty cell values are
// replaced with a literal placeholder so re-parsing never collapses columns.
func (b *XLSXBuilder) Build(ctx context.Context, data Dataset, path string, _ RenderContext) error {
	if len(data.Rows) == 0 {
		return appErrors.Clone(appErrors.ErrEmptyInput, "no rows to render")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "prepare output directory")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "write header row")
	}

	for i, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "render canceled")
		}
		record := make([]interface{}, len(data.Headers))
		for j, h := range data.Headers {
			value := row[h]
			if value == "" {
				value = emptyCellPlaceholder
			}
			record[j] = value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "compute cell coordinates")
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, fmt.Sprintf("write row %d", i+1))
		}
	}

	if err := f.SaveAs(path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "write workbook")
	}
	return nil
}

package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

// Column keys with non-uniform widths and left alignment.
const (
	ordinalColumn   = "Numero"
	familyNameCol   = "Nom"
	givenNameCol    = "Prenom"
	ordinalHeading  = "Nr"
	sessionAutumn   = "automne"
	pdfHeaderHeight = 170
	groupInfoOffset = 60
	rowsPerPage     = 30
	rowHeight       = 18.0
	ordinalWidth    = 30.0
	columnGap       = 1.0
	cellPadLeft     = 2.0
	cellPadTop      = 5.0
	pageWidth       = 595.0
	pageHeight      = 842.0
	pageMargin      = 20.0
)

// PDFBuilder renders one group as a fixed-layout paginated document: a
// repeating header block on every page and a grid holding a constant number
// of data rows per page.
type PDFBuilder struct {
	institution []string
	now         func() time.Time
}

// NewPDFBuilder constructs a PDFBuilder printing the given institution lines
// at the top of every page.
func NewPDFBuilder(institutionLines []string) *PDFBuilder {
	return &PDFBuilder{institution: institutionLines, now: time.Now}
}

// Ext returns the file extension produced by this builder.
func (b *PDFBuilder) Ext() string { return "pdf" }

// Build renders the dataset into a paginated document at path.
func (b *PDFBuilder) Build(ctx context.Context, data Dataset, path string, rc RenderContext) error {
	if len(data.Rows) == 0 {
		return appErrors.Clone(appErrors.ErrEmptyInput, "no rows to render")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "prepare output directory")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)

	columnWidth := (pageWidth - 2*pageMargin - float64(len(data.Headers)-1)*columnGap) / float64(len(data.Headers))
	numPages := (len(data.Rows) + rowsPerPage - 1) / rowsPerPage

	for page := 0; page < numPages; page++ {
		if err := ctx.Err(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRenderFailed.Code, appErrors.ErrRenderFailed.Status, "render canceled")
		}
		pdf.AddPage()
		b.pageHeader(pdf, rc)

		y := pageMargin + pdfHeaderHeight
		b.headerRow(pdf, data.Headers, columnWidth, y)
		y += rowHeight
		b.gridLine(pdf, data.Headers, columnWidth, y)

		start := page * rowsPerPage
		end := start + rowsPerPage
		if end > len(data.Rows) {
			end = len(data.Rows)
		}
		for i, row := range data.Rows[start:end] {
			b.dataRow(pdf, data.Headers, row, columnWidth, y, i%2 != 0)
			y += rowHeight
			b.gridLine(pdf, data.Headers, columnWidth, y)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return appErrors.Wrap(err, appErrors.ErrIOFailure.Code, appErrors.ErrIOFailure.Status, "write document")
	}
	return nil
}

// pageHeader prints the institution block and the centered group context
// lines printed on every page.
func (b *PDFBuilder) pageHeader(pdf *gofpdf.Fpdf, rc RenderContext) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 30, 51)
	pdf.SetXY(pageMargin, pageMargin)
	for _, line := range b.institution {
		pdf.CellFormat(0, rowHeight*0.8, line, "", 1, "L", false, 0, "")
	}

	y := pageMargin + groupInfoOffset
	center := func(text string, r, g, bl int) {
		pdf.SetTextColor(r, g, bl)
		pdf.SetXY(pageMargin, y)
		pdf.CellFormat(pageWidth-2*pageMargin, rowHeight, text, "", 0, "C", false, 0, "")
		y += rowHeight
	}

	year := b.now().Year()
	yearText := fmt.Sprintf("Année universitaire %d-%d", year-1, year)
	if rc.Session == sessionAutumn {
		yearText = fmt.Sprintf("Année universitaire %d-%d", year, year+1)
	}

	center(fmt.Sprintf("Les listes de la filière %s", rc.ProgramName), 0, 76, 127)
	center(fmt.Sprintf("Session %s", rc.Session), 0, 30, 51)
	center(yearText, 0, 30, 51)
	if rc.SectionNumber != 0 {
		center(fmt.Sprintf("Section %d", rc.SectionNumber), 0, 30, 51)
	}
	center(fmt.Sprintf("Group %d", rc.GroupNumber), 0, 30, 51)
}

func (b *PDFBuilder) headerRow(pdf *gofpdf.Fpdf, headers []string, columnWidth, y float64) {
	pdf.SetFont("Helvetica", "", 8)
	x := pageMargin
	for _, header := range headers {
		w := widthFor(header, columnWidth)
		pdf.SetFillColor(221, 221, 221)
		pdf.Rect(x, y, w, rowHeight, "F")

		label := header
		if header == ordinalColumn {
			label = ordinalHeading
		}
		pdf.SetTextColor(0, 30, 51)
		pdf.SetXY(x+cellPadLeft, y+cellPadTop-2)
		pdf.CellFormat(w-cellPadLeft, rowHeight-cellPadTop, truncate(pdf, label, w-cellPadLeft), "", 0, "L", false, 0, "")
		x += w + columnGap
	}
}

func (b *PDFBuilder) dataRow(pdf *gofpdf.Fpdf, headers []string, row map[string]string, columnWidth, y float64, alternate bool) {
	pdf.SetFont("Helvetica", "", 8)
	x := pageMargin
	for _, header := range headers {
		w := widthFor(header, columnWidth)
		if alternate {
			pdf.SetFillColor(238, 238, 238)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.Rect(x, y, w, rowHeight, "F")

		value := row[header]
		r, g, bl := valueColor(value)
		pdf.SetTextColor(r, g, bl)
		pdf.SetXY(x+cellPadLeft, y+cellPadTop-2)
		pdf.CellFormat(w-cellPadLeft, rowHeight-cellPadTop, truncate(pdf, value, w-cellPadLeft), "", 0, alignFor(header), false, 0, "")
		x += w + columnGap
	}
}

func (b *PDFBuilder) gridLine(pdf *gofpdf.Fpdf, headers []string, columnWidth, y float64) {
	width := 0.0
	for _, header := range headers {
		width += widthFor(header, columnWidth)
	}
	width += float64(len(headers)-1) * columnGap
	pdf.SetDrawColor(0, 30, 51)
	pdf.Line(pageMargin, y, pageMargin+width, y)
}

// widthFor keeps the ordinal column narrow and widens the two name columns;
// every other column shares the computed equal width.
func widthFor(header string, columnWidth float64) float64 {
	switch header {
	case ordinalColumn:
		return ordinalWidth
	case familyNameCol, givenNameCol:
		return columnWidth + (columnWidth-ordinalWidth)/2
	default:
		return columnWidth
	}
}

func alignFor(header string) string {
	if header == familyNameCol || header == givenNameCol {
		return "L"
	}
	return "C"
}

// valueColor maps validation statuses to their fixed colors; everything else
// uses the neutral ink.
func valueColor(value string) (int, int, int) {
	switch value {
	case "I":
		return 0, 107, 178
	case "NI":
		return 255, 103, 1
	default:
		return 0, 30, 51
	}
}

// truncate shortens text with an ellipsis marker so cells never wrap.
func truncate(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	const marker = "..."
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + marker
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return marker
}

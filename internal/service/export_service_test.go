package service

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ucd-roster-api/internal/models"
	"github.com/noah-isme/ucd-roster-api/pkg/archive"
	"github.com/noah-isme/ucd-roster-api/pkg/config"
	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
	"github.com/noah-isme/ucd-roster-api/pkg/export"
)

type mockRosterBuilder struct {
	roster *models.Roster
	err    error
}

func (m *mockRosterBuilder) BuildRoster(ctx context.Context, programCode string) (*models.Roster, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roster, nil
}

type fakeBuilder struct {
	ext      string
	failOn   map[int]bool // group numbers that fail
	mu       sync.Mutex
	captured []export.RenderContext
}

func (b *fakeBuilder) Ext() string { return b.ext }

func (b *fakeBuilder) Build(ctx context.Context, data export.Dataset, path string, rc export.RenderContext) error {
	if b.failOn[rc.GroupNumber] {
		return appErrors.Clone(appErrors.ErrRenderFailed, "boom")
	}
	b.mu.Lock()
	b.captured = append(b.captured, rc)
	b.mu.Unlock()
	return os.WriteFile(path, []byte(fmt.Sprintf("rows=%d", len(data.Rows))), 0o644)
}

func exportFixture(t *testing.T, rowCount int) (*mockRosterBuilder, config.FilesConfig) {
	t.Helper()
	rows := makeRows(rowCount)
	roster := &models.Roster{
		ProgramCode: "SMI",
		ProgramName: "Sciences Mathématiques et Informatique",
		Headers:     []string{models.RosterColOrdinal, models.RosterColLastName},
		Rows:        rows,
	}
	cfg := config.FilesConfig{DownloadDir: t.TempDir(), WorkerConcurrency: 2}
	return &mockRosterBuilder{roster: roster}, cfg
}

func archiveEntries(t *testing.T, path string) []string {
	t.Helper()
	reader, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestExportSingleSectionFlatLayout(t *testing.T) {
	rosters, cfg := exportFixture(t, 5)
	builder := &fakeBuilder{ext: "xlsx"}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 2, SectionCount: 1,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	assert.Empty(t, result.Failed)
	assert.Equal(t, "SMI-xlsx.zip", result.FileName)
	assert.Equal(t, []string{"SMI-group-1.xlsx", "SMI-group-2.xlsx"}, archiveEntries(t, result.ArchivePath))

	for _, rc := range builder.captured {
		assert.Equal(t, 0, rc.SectionNumber)
	}
}

func TestExportMultiSectionLayout(t *testing.T) {
	rosters, cfg := exportFixture(t, 8)
	builder := &fakeBuilder{ext: "pdf"}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"pdf": builder}, archive.Dir, cfg, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "printemps", Format: "pdf", GroupCount: 2, SectionCount: 2,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	assert.Equal(t, []string{
		"SMI-section-1/SMI-group-1.pdf",
		"SMI-section-1/SMI-group-2.pdf",
		"SMI-section-2/SMI-group-1.pdf",
		"SMI-section-2/SMI-group-2.pdf",
	}, archiveEntries(t, result.ArchivePath))

	sectionsSeen := map[int]bool{}
	for _, rc := range builder.captured {
		sectionsSeen[rc.SectionNumber] = true
	}
	assert.True(t, sectionsSeen[1])
	assert.True(t, sectionsSeen[2])
}

func TestExportSkipsEmptyGroupsInSmallSections(t *testing.T) {
	rosters, cfg := exportFixture(t, 5)
	builder := &fakeBuilder{ext: "xlsx"}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 2, SectionCount: 3,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	// 5 rows over 3 sections: the last section holds a single row, so its
	// second group is empty and gets no file.
	assert.Empty(t, result.Failed)
	assert.Equal(t, []string{
		"SMI-section-1/SMI-group-1.xlsx",
		"SMI-section-1/SMI-group-2.xlsx",
		"SMI-section-2/SMI-group-1.xlsx",
		"SMI-section-2/SMI-group-2.xlsx",
		"SMI-section-3/SMI-group-1.xlsx",
	}, archiveEntries(t, result.ArchivePath))
}

func TestExportGroupFailureDoesNotAbortArchive(t *testing.T) {
	rosters, cfg := exportFixture(t, 6)
	builder := &fakeBuilder{ext: "xlsx", failOn: map[int]bool{2: true}}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 3, SectionCount: 1,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	require.Len(t, result.Failed, 1)
	assert.Equal(t, 2, result.Failed[0].Group)
	assert.Equal(t, []string{"SMI-group-1.xlsx", "SMI-group-3.xlsx"}, archiveEntries(t, result.ArchivePath))
}

func TestExportArchiveFailureIsFatal(t *testing.T) {
	rosters, cfg := exportFixture(t, 4)
	builder := &fakeBuilder{ext: "xlsx"}
	failingArchive := func(srcDir, destPath string) error { return assert.AnError }
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, failingArchive, cfg, nil, nil)

	_, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 2, SectionCount: 1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIOFailure.Code, appErrors.FromError(err).Code)
}

func TestExportCleansScratchDirectory(t *testing.T) {
	rosters, cfg := exportFixture(t, 4)
	builder := &fakeBuilder{ext: "xlsx"}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 2, SectionCount: 1,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	entries, err := os.ReadDir(cfg.DownloadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())
}

func TestExportRejectsInvalidRequests(t *testing.T) {
	rosters, cfg := exportFixture(t, 4)
	builder := &fakeBuilder{ext: "xlsx"}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)

	cases := []ExportRequest{
		{ProgramCode: "SMI", Session: "hiver", Format: "xlsx", GroupCount: 1, SectionCount: 1},
		{ProgramCode: "SMI", Session: "automne", Format: "docx", GroupCount: 1, SectionCount: 1},
		{ProgramCode: "", Session: "automne", Format: "xlsx", GroupCount: 1, SectionCount: 1},
		{ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 0, SectionCount: 1},
	}
	for _, req := range cases {
		_, err := svc.Export(context.Background(), req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestExportRenumbersGroupRows(t *testing.T) {
	rosters, cfg := exportFixture(t, 6)
	var captured []export.Dataset
	builder := &capturingBuilder{ext: "xlsx", datasets: &captured}
	svc := NewExportService(rosters, map[string]export.FileBuilder{"xlsx": builder}, archive.Dir, cfg, nil, nil)
	// Single worker keeps capture order aligned with job order.
	svc.cfg.WorkerConcurrency = 1

	result, err := svc.Export(context.Background(), ExportRequest{
		ProgramCode: "SMI", Session: "automne", Format: "xlsx", GroupCount: 2, SectionCount: 1,
	})
	require.NoError(t, err)
	defer os.Remove(result.ArchivePath)

	require.Len(t, captured, 2)
	for _, data := range captured {
		for i, row := range data.Rows {
			assert.Equal(t, fmt.Sprintf("%d", i+1), row[models.RosterColOrdinal])
		}
	}
}

type capturingBuilder struct {
	ext      string
	datasets *[]export.Dataset
}

func (b *capturingBuilder) Ext() string { return b.ext }

func (b *capturingBuilder) Build(ctx context.Context, data export.Dataset, path string, rc export.RenderContext) error {
	*b.datasets = append(*b.datasets, data)
	return os.WriteFile(path, []byte("x"), 0o644)
}

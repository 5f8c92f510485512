package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/ucd-roster-api/pkg/errors"
)

func TestXLSXBuilderRoundTrip(t *testing.T) {
	builder := NewXLSXBuilder()
	path := filepath.Join(t.TempDir(), "group.xlsx")

	data := Dataset{
		Headers: []string{"Numero", "Nom", "Prenom", "Analyse 1"},
		Rows: []map[string]string{
			{"Numero": "1", "Nom": "ALAMI", "Prenom": "Yassine", "Analyse 1": "I"},
			{"Numero": "2", "Nom": "BENNANI", "Prenom": "Sara", "Analyse 1": "NI"},
		},
	}
	require.NoError(t, builder.Build(context.Background(), data, path, RenderContext{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Numero", "Nom", "Prenom", "Analyse 1"}, rows[0])
	assert.Equal(t, []string{"1", "ALAMI", "Yassine", "I"}, rows[1])
	assert.Equal(t, []string{"2", "BENNANI", "Sara", "NI"}, rows[2])
}

func TestXLSXBuilderWritesPlaceholderForEmptyCells(t *testing.T) {
	builder := NewXLSXBuilder()
	path := filepath.Join(t.TempDir(), "group.xlsx")

	data := Dataset{
		Headers: []string{"Numero", "Nom"},
		Rows:    []map[string]string{{"Numero": "1"}},
	}
	require.NoError(t, builder.Build(context.Background(), data, path, RenderContext{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "--"}, rows[1])
}

func TestXLSXBuilderRejectsEmptyDataset(t *testing.T) {
	builder := NewXLSXBuilder()
	path := filepath.Join(t.TempDir(), "group.xlsx")

	err := builder.Build(context.Background(), Dataset{Headers: []string{"Numero"}}, path, RenderContext{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptyInput.Code, appErrors.FromError(err).Code)
}

func TestXLSXBuilderHonorsContext(t *testing.T) {
	builder := NewXLSXBuilder()
	path := filepath.Join(t.TempDir(), "group.xlsx")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := Dataset{
		Headers: []string{"Numero"},
		Rows:    []map[string]string{{"Numero": "1"}},
	}
	err := builder.Build(ctx, data, path, RenderContext{})
	require.Error(t, err)
}

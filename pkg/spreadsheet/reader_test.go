package spreadsheet

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestReadKeysRowsByHeader(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"CODE_ETAPE", "NOM", "PRENOM"},
		{"SMI", "ALAMI", "Yassine"},
		{"SMI", "BENNANI", "Sara"},
	})

	sheet, err := Read(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"CODE_ETAPE", "NOM", "PRENOM"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "ALAMI", sheet.Rows[0]["NOM"])
	assert.Equal(t, "Sara", sheet.Rows[1]["PRENOM"])
}

func TestReadSkipsBlankRowsAndPadsShortOnes(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"CODE_ETAPE", "NOM", "PRENOM"},
		{"SMI", "ALAMI"},
		{"", "", ""},
		{"SMI", "BENNANI", "Sara"},
	})

	sheet, err := Read(r)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "", sheet.Rows[0]["PRENOM"])
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a workbook")))
	require.Error(t, err)
}

func TestParseDateSerialValue(t *testing.T) {
	// 37753 is 2003-05-12 as an Excel day serial.
	got, err := ParseDate("37753")
	require.NoError(t, err)
	assert.Equal(t, 2003, got.Year())
	assert.Equal(t, time.May, got.Month())
	assert.Equal(t, 12, got.Day())
}

func TestParseDateFormattedStrings(t *testing.T) {
	cases := []string{"2003-05-12", "12/05/2003"}
	for _, raw := range cases {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, 2003, got.Year())
		assert.Equal(t, time.May, got.Month())
		assert.Equal(t, 12, got.Day())
	}
}

func TestParseDateRejectsUnknownValues(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "12 mai 2003"} {
		_, err := ParseDate(raw)
		require.Error(t, err, raw)
	}
}

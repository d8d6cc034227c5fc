package workbook

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []map[string]any {
	return []map[string]any{
		{"name": "SD Negeri Bergas 1", "kecamatan": "Bergas", "rating": 4.5},
		{"name": "SD Negeri Bawen 2", "kecamatan": "Bawen", "phone": "0298-123"},
		{"name": "SD Bergas 3", "kecamatan": "Bergas"},
	}
}

func TestWriteSheetPerKecamatan(t *testing.T) {
	data, err := Write(sampleRows(), Options{
		Columns:           []string{"name", "rating", "phone"},
		SheetPerKecamatan: true,
		WithMetadataSheet: true,
		AutoFit:           true,
		FreezeHeader:      true,
		Metadata:          [][2]string{{"jobId", "J1"}, {"kabkota", "Kabupaten Semarang"}},
	})
	require.NoError(t, err)

	wb, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Bergas", wb.Sheets[0].Name)
	assert.Equal(t, "Bawen", wb.Sheets[1].Name)
	assert.Equal(t, []string{"name", "rating", "phone"}, wb.Sheets[0].Header)
	assert.Equal(t, []string{"SD Negeri Bergas 1", "4.5", ""}, wb.Sheets[0].Rows[0])
	assert.Equal(t, 3, wb.RowCount())
	assert.Equal(t, "J1", wb.Metadata["jobId"])

	recs := wb.Sheets[1].Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "0298-123", recs[0]["phone"])
	assert.Equal(t, "Bawen", recs[0]["kecamatan"])
}

func TestWriteSingleSheet(t *testing.T) {
	data, err := Write(sampleRows(), Options{Columns: []string{"kecamatan", "name"}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Hasil"}, f.GetSheetList())

	rows, err := f.GetRows("Hasil")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, []string{"kecamatan", "name"}, rows[0])
}

func TestWriteFreezesHeader(t *testing.T) {
	data, err := Write(sampleRows(), Options{Columns: []string{"name"}, FreezeHeader: true})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	panes, err := f.GetPanes("Hasil")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestWriteNoColumns(t *testing.T) {
	_, err := Write(sampleRows(), Options{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	data, err := Write(sampleRows(), Options{Columns: []string{"name"}, SheetPerKecamatan: true})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	wb, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, wb.RowCount())
	assert.Empty(t, wb.Metadata)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Ungaran_Barat", sheetName("Ungaran/Barat", 0))
	assert.Equal(t, "Sheet3", sheetName("  ", 2))
	assert.Equal(t, "Sheet1", sheetName("metadata", 0))
	assert.Len(t, []rune(sheetName("Kecamatan Dengan Nama Yang Sangat Panjang Sekali", 0)), 31)
}

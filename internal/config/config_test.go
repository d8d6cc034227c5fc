package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KECTAP_BACKEND_URL", "")
	t.Setenv("NEXT_PUBLIC_BACKEND_URL", "")
	t.Setenv("KECTAP_POLL_INTERVAL", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 1400*time.Millisecond, cfg.Backend.PollInterval)
	assert.Equal(t, 50, cfg.Backend.PreviewLimit)
	assert.Equal(t, 30*time.Second, cfg.Backend.HTTPTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KECTAP_BACKEND_URL", "http://scraper:9000")
	t.Setenv("KECTAP_POLL_INTERVAL", "2s")
	t.Setenv("KECTAP_PREVIEW_LIMIT", "not-a-number")
	t.Setenv("KECTAP_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "http://scraper:9000", cfg.Backend.URL)
	assert.Equal(t, 2*time.Second, cfg.Backend.PollInterval)
	assert.Equal(t, 50, cfg.Backend.PreviewLimit)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
}

func TestLegacyBackendEnv(t *testing.T) {
	t.Setenv("KECTAP_BACKEND_URL", "")
	t.Setenv("NEXT_PUBLIC_BACKEND_URL", "http://legacy:8000")
	assert.Equal(t, "http://legacy:8000", Load().Backend.URL)
}

func TestParseParams(t *testing.T) {
	data := []byte(`
server: http://scraper:9000
kecamatan:
  - Ungaran Barat
  - " Bergas "
keyword: SD Negeri
minRating: 7
strategy:
  mode: centroid
  cellSize: 50
preset: places-basic
excel:
  freezeHeader: false
`)
	p, err := ParseParams(data, "http://ignored")
	require.NoError(t, err)

	assert.Equal(t, "http://scraper:9000", p.ServerBaseURL)
	assert.Equal(t, []string{"Ungaran Barat", "Bergas"}, p.Subdistricts())
	assert.Equal(t, "SD Negeri", p.Keyword)
	assert.Equal(t, 5.0, p.MinRating)
	assert.Equal(t, model.ModeCentroid, p.Strategy.Mode)
	assert.Equal(t, model.MinCellSize, p.Strategy.CellSizeMeters)
	assert.Equal(t, model.DefaultOverlapMeters, p.Strategy.OverlapMeters)
	assert.Equal(t, model.PlacesBasicColumns(), p.Columns)
	assert.False(t, p.Export.FreezeHeaderRow)
	assert.True(t, p.Export.SheetPerSubdistrict)
}

func TestParseParamsErrors(t *testing.T) {
	_, err := ParseParams([]byte("kecamatan: [A]\nstrategy: {mode: hex}\n"), "")
	assert.Error(t, err)

	_, err = ParseParams([]byte("kecamatan: [A]\npreset: everything\n"), "")
	assert.EqualError(t, err, `unknown column preset "everything"`)

	_, err = ParseParams([]byte("kecamatn: [A]\n"), "")
	assert.Error(t, err)
}

func TestSaveAndLoadParams(t *testing.T) {
	p := model.DefaultParameterSet("http://localhost:8000")
	p.SubdistrictText = "Bawen\nTuntang"
	p.Keyword = "SD"
	p.MinRating = 3.5
	p.Columns = []string{"name", "latitude", "longitude"}
	p.Export.AutoFitColumns = false

	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, SaveParams(path, p))

	got, err := LoadParams(path, "")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSaveParamsEmptyColumns(t *testing.T) {
	p := model.DefaultParameterSet("http://localhost:8000")
	p.SubdistrictText = "Bawen"
	p.Columns = nil

	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, SaveParams(path, p))

	got, err := LoadParams(path, "")
	require.NoError(t, err)
	assert.Empty(t, got.Columns)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kectap.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	defer f.Close()

	NewLogger(f, slog.LevelInfo).Info("config.test", "ok", true)
	assert.FileExists(t, path)
}

package geo

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/kectap/internal/model"
)

func TestPointFromRow(t *testing.T) {
	p, ok := PointFromRow(map[string]any{"latitude": -7.13, "longitude": 110.40})
	require.True(t, ok)
	assert.Equal(t, orb.Point{110.40, -7.13}, p)

	p, ok = PointFromRow(map[string]any{"latitude": " -7.2 ", "longitude": "110.5"})
	require.True(t, ok)
	assert.InDelta(t, -7.2, p.Lat(), 1e-9)

	_, ok = PointFromRow(map[string]any{"latitude": -7.2})
	assert.False(t, ok)
	_, ok = PointFromRow(map[string]any{"latitude": 95.0, "longitude": 110.0})
	assert.False(t, ok)
	_, ok = PointFromRow(map[string]any{"latitude": "n/a", "longitude": 110.0})
	assert.False(t, ok)
}

func TestPlacesAndBounds(t *testing.T) {
	rows := []map[string]any{
		{"name": "SD 1", "latitude": -7.10, "longitude": 110.30},
		{"name": "SD 2"},
		{"name": "SD 3", "latitude": -7.30, "longitude": 110.50},
	}
	places := Places(rows)
	require.Len(t, places, 2)
	assert.Equal(t, "SD 3", places[1].Name)

	b, ok := Bounds(places)
	require.True(t, ok)
	assert.InDelta(t, -7.30, b.Min.Lat(), 1e-9)
	assert.InDelta(t, 110.50, b.Max.Lon(), 1e-9)

	_, ok = Bounds(nil)
	assert.False(t, ok)
}

func TestSearchCenters(t *testing.T) {
	center := orb.Point{110.40, -7.20}

	centroid := SearchCenters(center, 3000, model.Strategy{Mode: model.ModeCentroid, CellSizeMeters: 800})
	assert.Equal(t, []orb.Point{center}, centroid)

	coarse := SearchCenters(center, 3000, model.Strategy{Mode: model.ModeGrid, CellSizeMeters: 1600})
	fine := SearchCenters(center, 3000, model.Strategy{Mode: model.ModeGrid, CellSizeMeters: 800, OverlapMeters: 150})
	assert.Greater(t, len(fine), len(coarse))

	circle := Circle(center, 3000, 32)
	for _, p := range fine {
		assert.Len(t, FilterWithin([]orb.Point{p}, circle), 1)
	}
}

func TestDedupe(t *testing.T) {
	a := orb.Point{110.40, -7.20}
	near := orb.Point{110.40010, -7.20} // ~11 m east
	far := orb.Point{110.41, -7.20}     // ~1.1 km east
	assert.Equal(t, []int{0, 2}, Dedupe([]orb.Point{a, near, far}, 40))
	assert.Equal(t, []int{0, 1, 2}, Dedupe([]orb.Point{a, near, far}, 5))
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChart(&buf, "Kabupaten Semarang", []Place{{Name: "SD 1", Point: orb.Point{110.4, -7.2}}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Kabupaten Semarang")

	assert.Error(t, WriteChart(&buf, "empty", nil))
}

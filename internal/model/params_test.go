package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSubdistricts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank lines only", "\n  \n\t\n", []string{}},
		{"trims and drops empties", "  Ungaran Barat \n\nBergas\n", []string{"Ungaran Barat", "Bergas"}},
		{"crlf", "Ambarawa\r\nBawen\r\n", []string{"Ambarawa", "Bawen"}},
		{"keeps duplicates and order", "Bawen\nAmbarawa\nBawen", []string{"Bawen", "Ambarawa", "Bawen"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubdistricts(tt.in))
		})
	}
}

func TestNormalizeSubdistrictsIdempotent(t *testing.T) {
	in := " Bergas \r\n\n Tuntang\n"
	once := NormalizeSubdistricts(in)

	p := ParameterSet{}
	p.SetSubdistricts(once)
	assert.Equal(t, once, p.Subdistricts())
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 0.0, ClampRating(-1))
	assert.Equal(t, 0.0, ClampRating(math.NaN()))
	assert.Equal(t, 4.2, ClampRating(4.2))
	assert.Equal(t, 5.0, ClampRating(7))
}

func TestParseStrategyMode(t *testing.T) {
	m, err := ParseStrategyMode(" Centroid ")
	require.NoError(t, err)
	assert.Equal(t, ModeCentroid, m)

	_, err = ParseStrategyMode("hex")
	assert.Error(t, err)
}

func TestDefaultParameterSet(t *testing.T) {
	p := DefaultParameterSet("http://localhost:8000")

	assert.Equal(t, DefaultRegionName, p.RegionName)
	assert.Equal(t, ModeGrid, p.Strategy.Mode)
	assert.Equal(t, 800, p.Strategy.CellSizeMeters)
	assert.Equal(t, 150, p.Strategy.OverlapMeters)
	assert.Equal(t, 40, p.Strategy.DedupeRadiusMeters)
	assert.Equal(t, DefaultColumns(), p.Columns)
	assert.True(t, p.Export.SheetPerSubdistrict)
	assert.True(t, p.Export.FreezeHeaderRow)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := DefaultParameterSet("http://localhost:8000")
		p.SubdistrictText = "Bergas"
		assert.NoError(t, p.Validate())
	})

	t.Run("collects every problem", func(t *testing.T) {
		p := DefaultParameterSet("  ")
		p.SubdistrictText = "\n \n"
		p.Columns = nil

		err := p.Validate()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, []string{
			"server URL is required",
			"at least one kecamatan is required",
			"select at least one output column",
		}, verr.Problems)
		assert.Contains(t, err.Error(), "invalid parameters: ")
	})

	t.Run("unknown column", func(t *testing.T) {
		p := DefaultParameterSet("http://x")
		p.SubdistrictText = "Bergas"
		p.Columns = []string{"name", "shoe_size"}

		var verr *ValidationError
		require.ErrorAs(t, p.Validate(), &verr)
		assert.Equal(t, []string{`unknown column "shoe_size"`}, verr.Problems)
	})
}

package model

import (
	"fmt"
	"math"
	"strings"
)

// Defaults mirrored by the scrape backend's contract.
const (
	DefaultRegionName    = "Kabupaten Semarang"
	DefaultCellSize      = 800
	DefaultOverlapMeters = 150
	DefaultDedupeMeters  = 40
	MinCellSize          = 200
	MaxRating            = 5.0
)

// StrategyMode selects how the backend tiles each kecamatan.
type StrategyMode string

const (
	ModeGrid     StrategyMode = "grid"
	ModeCentroid StrategyMode = "centroid"
)

// ParseStrategyMode accepts "grid" or "centroid" in any case.
func ParseStrategyMode(s string) (StrategyMode, error) {
	switch StrategyMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeGrid:
		return ModeGrid, nil
	case ModeCentroid:
		return ModeCentroid, nil
	}
	return "", fmt.Errorf("unknown strategy mode %q (want grid or centroid)", s)
}

// Strategy describes the search tiling. CellSizeMeters doubles as the
// radius in centroid mode.
type Strategy struct {
	Mode               StrategyMode
	CellSizeMeters     int
	OverlapMeters      int
	DedupeRadiusMeters int
}

// ExportOptions are the workbook preferences forwarded to the backend.
type ExportOptions struct {
	SheetPerSubdistrict  bool
	IncludeMetadataSheet bool
	AutoFitColumns       bool
	FreezeHeaderRow      bool
}

// ParameterSet holds all user-chosen inputs for one scrape job.
type ParameterSet struct {
	ServerBaseURL   string
	RegionName      string
	SubdistrictText string // raw, one kecamatan per line
	Keyword         string // empty means not set
	MinRating       float64
	Strategy        Strategy
	Columns         []string // display order
	Export          ExportOptions
}

// DefaultParameterSet returns the initial form state.
func DefaultParameterSet(serverURL string) ParameterSet {
	return ParameterSet{
		ServerBaseURL: serverURL,
		RegionName:    DefaultRegionName,
		Strategy: Strategy{
			Mode:               ModeGrid,
			CellSizeMeters:     DefaultCellSize,
			OverlapMeters:      DefaultOverlapMeters,
			DedupeRadiusMeters: DefaultDedupeMeters,
		},
		Columns: DefaultColumns(),
		Export: ExportOptions{
			SheetPerSubdistrict:  true,
			IncludeMetadataSheet: true,
			AutoFitColumns:       true,
			FreezeHeaderRow:      true,
		},
	}
}

// Subdistricts returns the normalized kecamatan list.
func (p ParameterSet) Subdistricts() []string {
	return NormalizeSubdistricts(p.SubdistrictText)
}

// SetSubdistricts replaces the raw text with one entry per line.
func (p *ParameterSet) SetSubdistricts(list []string) {
	p.SubdistrictText = strings.Join(list, "\n")
}

// NormalizeSubdistricts splits on \n or \r\n, trims each line and drops
// empty ones. Order is kept and duplicates are not removed.
func NormalizeSubdistricts(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ClampRating bounds a rating filter to [0, 5].
func ClampRating(r float64) float64 {
	switch {
	case r < 0 || math.IsNaN(r):
		return 0
	case r > MaxRating:
		return MaxRating
	}
	return r
}

// Validate checks everything a submission needs and reports all problems
// at once.
func (p ParameterSet) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ServerBaseURL) == "" {
		problems = append(problems, "server URL is required")
	}
	if len(p.Subdistricts()) == 0 {
		problems = append(problems, "at least one kecamatan is required")
	}
	if len(p.Columns) == 0 {
		problems = append(problems, "select at least one output column")
	}
	for _, c := range p.Columns {
		if _, ok := LookupColumn(c); !ok {
			problems = append(problems, fmt.Sprintf("unknown column %q", c))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidationError lists every reason a ParameterSet cannot be submitted.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid parameters: " + strings.Join(e.Problems, "; ")
}

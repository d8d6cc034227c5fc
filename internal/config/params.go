package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rendis/kectap/internal/model"
)

// ParamsFile is the YAML shape of a saved parameter set. Omitted fields keep
// their defaults.
type ParamsFile struct {
	Server    string       `yaml:"server,omitempty"`
	Kecamatan []string     `yaml:"kecamatan"`
	Keyword   string       `yaml:"keyword,omitempty"`
	MinRating *float64     `yaml:"minRating,omitempty"`
	Strategy  StrategyFile `yaml:"strategy,omitempty"`
	Preset    string       `yaml:"preset,omitempty"`
	Columns   []string     `yaml:"columns,omitempty"`
	Excel     ExcelFile    `yaml:"excel,omitempty"`
}

type StrategyFile struct {
	Mode     string `yaml:"mode,omitempty"`
	CellSize int    `yaml:"cellSize,omitempty"`
	Overlap  int    `yaml:"overlap,omitempty"`
	Dedupe   int    `yaml:"dedupe,omitempty"`
}

type ExcelFile struct {
	SheetPerKecamatan *bool `yaml:"sheetPerKecamatan,omitempty"`
	MetadataSheet     *bool `yaml:"metadataSheet,omitempty"`
	AutoFit           *bool `yaml:"autoFit,omitempty"`
	FreezeHeader      *bool `yaml:"freezeHeader,omitempty"`
}

// LoadParams reads a YAML parameter file on top of the defaults. serverURL
// is used when the file names no server.
func LoadParams(path, serverURL string) (model.ParameterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ParameterSet{}, fmt.Errorf("reading params: %w", err)
	}
	return ParseParams(data, serverURL)
}

// ParseParams decodes YAML parameter data. Unknown keys are rejected.
func ParseParams(data []byte, serverURL string) (model.ParameterSet, error) {
	var f ParamsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return model.ParameterSet{}, fmt.Errorf("parsing params: %w", err)
	}
	return f.apply(model.DefaultParameterSet(serverURL))
}

func (f ParamsFile) apply(p model.ParameterSet) (model.ParameterSet, error) {
	if f.Server != "" {
		p.ServerBaseURL = f.Server
	}
	p.SetSubdistricts(f.Kecamatan)
	p.Keyword = f.Keyword
	if f.MinRating != nil {
		p.MinRating = model.ClampRating(*f.MinRating)
	}

	if f.Strategy.Mode != "" {
		mode, err := model.ParseStrategyMode(f.Strategy.Mode)
		if err != nil {
			return p, err
		}
		p.Strategy.Mode = mode
	}
	if f.Strategy.CellSize != 0 {
		p.Strategy.CellSizeMeters = max(f.Strategy.CellSize, model.MinCellSize)
	}
	if f.Strategy.Overlap != 0 {
		p.Strategy.OverlapMeters = f.Strategy.Overlap
	}
	if f.Strategy.Dedupe != 0 {
		p.Strategy.DedupeRadiusMeters = f.Strategy.Dedupe
	}

	if f.Preset != "" {
		preset, ok := model.Presets[f.Preset]
		if !ok {
			return p, fmt.Errorf("unknown column preset %q", f.Preset)
		}
		p.Columns = preset()
	}
	if len(f.Columns) > 0 {
		p.Columns = append([]string(nil), f.Columns...)
	}

	setBool(&p.Export.SheetPerSubdistrict, f.Excel.SheetPerKecamatan)
	setBool(&p.Export.IncludeMetadataSheet, f.Excel.MetadataSheet)
	setBool(&p.Export.AutoFitColumns, f.Excel.AutoFit)
	setBool(&p.Export.FreezeHeaderRow, f.Excel.FreezeHeader)
	return p, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// SaveParams writes p as YAML.
func SaveParams(path string, p model.ParameterSet) error {
	data, err := MarshalParams(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing params: %w", err)
	}
	return nil
}

// MarshalParams encodes p in the ParamsFile shape.
func MarshalParams(p model.ParameterSet) ([]byte, error) {
	rating := p.MinRating
	f := ParamsFile{
		Server:    p.ServerBaseURL,
		Kecamatan: p.Subdistricts(),
		Keyword:   p.Keyword,
		MinRating: &rating,
		Strategy: StrategyFile{
			Mode:     string(p.Strategy.Mode),
			CellSize: p.Strategy.CellSizeMeters,
			Overlap:  p.Strategy.OverlapMeters,
			Dedupe:   p.Strategy.DedupeRadiusMeters,
		},
		Columns: p.Columns,
		Excel: ExcelFile{
			SheetPerKecamatan: &p.Export.SheetPerSubdistrict,
			MetadataSheet:     &p.Export.IncludeMetadataSheet,
			AutoFit:           &p.Export.AutoFitColumns,
			FreezeHeader:      &p.Export.FreezeHeaderRow,
		},
	}
	if len(p.Columns) == 0 {
		f.Preset = "none"
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	return buf.Bytes(), nil
}

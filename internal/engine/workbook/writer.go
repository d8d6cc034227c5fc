package workbook

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/rendis/kectap/internal/model"
)

const (
	defaultSheet  = "Sheet1"
	resultsSheet  = "Hasil"
	MetadataSheet = "Metadata"
	// GroupKey is the row key rows are split on when writing a sheet per
	// kecamatan.
	GroupKey = "kecamatan"

	maxSheetName = 31
	minColWidth  = 8
	maxColWidth  = 60
)

// Options controls the export layout. It mirrors model.RequestExcel.
type Options struct {
	Columns           []string
	SheetPerKecamatan bool
	WithMetadataSheet bool
	AutoFit           bool
	FreezeHeader      bool
	// Metadata rows are written as key/value pairs, in order.
	Metadata [][2]string
}

// OptionsFromRequest derives the layout from a create-job body.
func OptionsFromRequest(req model.JobRequest) Options {
	return Options{
		Columns:           req.Columns,
		SheetPerKecamatan: req.Excel.SheetPerKecamatan,
		WithMetadataSheet: req.Excel.WithMetadataSheet,
		AutoFit:           req.Excel.AutoFit,
		FreezeHeader:      req.Excel.FreezeHeader,
	}
}

// Write renders rows into an XLSX workbook. The header row holds the column
// machine names in the order given.
func Write(rows []map[string]any, opts Options) ([]byte, error) {
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("no columns to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	groups := []group{{name: resultsSheet, rows: rows}}
	if opts.SheetPerKecamatan {
		groups = groupRows(rows)
	}

	for i, g := range groups {
		name := sheetName(g.name, i)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return nil, fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("creating sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, g.rows, opts); err != nil {
			return nil, err
		}
	}

	if opts.WithMetadataSheet {
		if err := writeMetadata(f, opts.Metadata); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

type group struct {
	name string
	rows []map[string]any
}

// groupRows splits rows by GroupKey in first-seen order. Rows without a
// group land in the results sheet.
func groupRows(rows []map[string]any) []group {
	var out []group
	pos := map[string]int{}
	for _, r := range rows {
		name := model.Cell(r, GroupKey)
		if name == "" {
			name = resultsSheet
		}
		i, ok := pos[name]
		if !ok {
			i = len(out)
			pos[name] = i
			out = append(out, group{name: name})
		}
		out[i].rows = append(out[i].rows, r)
	}
	if len(out) == 0 {
		out = append(out, group{name: resultsSheet})
	}
	return out
}

func writeSheet(f *excelize.File, sheet string, rows []map[string]any, opts Options) error {
	widths := make([]int, len(opts.Columns))
	for i, col := range opts.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		widths[i] = utf8.RuneCountInString(col)
	}

	for r, row := range rows {
		for i, col := range opts.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			v := model.Cell(row, col)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing %s: %w", cell, err)
			}
			widths[i] = max(widths[i], utf8.RuneCountInString(v))
		}
	}

	if opts.AutoFit {
		for i, w := range widths {
			name, _ := excelize.ColumnNumberToName(i + 1)
			_ = f.SetColWidth(sheet, name, name, float64(min(max(w+2, minColWidth), maxColWidth)))
		}
	}

	if opts.FreezeHeader {
		err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
		if err != nil {
			return fmt.Errorf("freezing header: %w", err)
		}
	}
	return nil
}

func writeMetadata(f *excelize.File, meta [][2]string) error {
	if _, err := f.NewSheet(MetadataSheet); err != nil {
		return fmt.Errorf("creating metadata sheet: %w", err)
	}
	_ = f.SetCellValue(MetadataSheet, "A1", "key")
	_ = f.SetCellValue(MetadataSheet, "B1", "value")
	for i, kv := range meta {
		_ = f.SetCellValue(MetadataSheet, fmt.Sprintf("A%d", i+2), kv[0])
		_ = f.SetCellValue(MetadataSheet, fmt.Sprintf("B%d", i+2), kv[1])
	}
	_ = f.SetColWidth(MetadataSheet, "A", "A", 22)
	_ = f.SetColWidth(MetadataSheet, "B", "B", 60)
	return nil
}

// sheetName makes name a valid, unique-enough sheet name.
func sheetName(name string, idx int) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || strings.EqualFold(name, MetadataSheet) {
		name = fmt.Sprintf("Sheet%d", idx+1)
	}
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

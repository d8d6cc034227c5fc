package workbook

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet is one data sheet of a downloaded export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string // padded to len(Header)
}

// Workbook is the parsed content of an export.
type Workbook struct {
	Sheets   []Sheet
	Metadata map[string]string
}

// RowCount is the number of data rows across sheets.
func (w *Workbook) RowCount() int {
	n := 0
	for _, s := range w.Sheets {
		n += len(s.Rows)
	}
	return n
}

// Records returns every data row as a column-keyed map, tagged with its
// sheet name under GroupKey when the row has no value there.
func (s Sheet) Records() []map[string]any {
	out := make([]map[string]any, 0, len(s.Rows))
	for _, r := range s.Rows {
		m := make(map[string]any, len(s.Header)+1)
		for i, h := range s.Header {
			m[h] = r[i]
		}
		if v, _ := m[GroupKey].(string); v == "" && s.Name != resultsSheet {
			m[GroupKey] = s.Name
		}
		out = append(out, m)
	}
	return out
}

// Open reads an export from disk.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return read(f)
}

// Read parses an export from r.
func Read(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()
	return read(f)
}

func read(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{Metadata: map[string]string{}}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		if name == MetadataSheet {
			for _, r := range rows[min(1, len(rows)):] {
				if len(r) >= 2 {
					wb.Metadata[r[0]] = r[1]
				}
			}
			continue
		}
		if len(rows) == 0 {
			continue
		}

		s := Sheet{Name: name, Header: rows[0]}
		for _, r := range rows[1:] {
			padded := make([]string, len(s.Header))
			copy(padded, r)
			s.Rows = append(s.Rows, padded)
		}
		wb.Sheets = append(wb.Sheets, s)
	}
	return wb, nil
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rendis/kectap/internal/engine/storage"
)

const sampleSize = 5

func runLoad(args []string) error {
	var xlsxPath, dbPath, sample string
	var replace bool

	fs := flag.NewFlagSet("load", flag.ExitOnError)
	fs.StringVar(&xlsxPath, "xlsx", "", "Path to a downloaded .xlsx export (required)")
	fs.StringVar(&dbPath, "db", "", "SQLite file (default: same dir and name as the export)")
	fs.BoolVar(&replace, "replace", false, "Delete rows previously imported for the same job")
	fs.StringVar(&sample, "sample", "", "Print the first values of this column per sheet, e.g. name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kectap load [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kectap load -xlsx ./kabupaten_semarang_J1.xlsx\n")
		fmt.Fprintf(os.Stderr, "  kectap load -xlsx export.xlsx -db schools.db -replace -sample name\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if xlsxPath == "" {
		return fmt.Errorf("-xlsx is required")
	}

	// Default db path
	if dbPath == "" {
		dir := filepath.Dir(xlsxPath)
		base := strings.TrimSuffix(filepath.Base(xlsxPath), filepath.Ext(xlsxPath))
		dbPath = filepath.Join(dir, base+".db")
	}

	fmt.Fprintf(os.Stderr, "Importing %s\n", xlsxPath)
	stored, err := importWorkbook(xlsxPath, dbPath, replace)
	if err != nil {
		return err
	}
	if stored == 0 {
		return fmt.Errorf("no data rows found in %s", xlsxPath)
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	bySheet, err := store.CountBySheet()
	if err != nil {
		return err
	}
	total, err := store.Count()
	if err != nil {
		return err
	}

	sheets := make([]string, 0, len(bySheet))
	for s := range bySheet {
		sheets = append(sheets, s)
	}
	sort.Strings(sheets)

	fmt.Fprintf(os.Stderr, "\nDatabase %s now holds %d rows:\n", dbPath, total)
	for _, s := range sheets {
		fmt.Fprintf(os.Stderr, "  %-24s %d\n", s, bySheet[s])
		if sample == "" {
			continue
		}
		values, err := store.Column(s, sample)
		if err != nil {
			return err
		}
		for _, v := range values[:min(len(values), sampleSize)] {
			fmt.Fprintf(os.Stderr, "    %s\n", v)
		}
	}
	return nil
}

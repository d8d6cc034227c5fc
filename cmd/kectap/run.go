package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/engine/geo"
	"github.com/rendis/kectap/internal/engine/jobs"
	"github.com/rendis/kectap/internal/engine/poller"
	"github.com/rendis/kectap/internal/engine/storage"
	"github.com/rendis/kectap/internal/engine/workbook"
	"github.com/rendis/kectap/internal/model"
)

const previewRows = 10

type runFlags struct {
	paramsPath string
	server     string
	region     string
	kecamatan  string
	keyword    string
	minRating  float64
	mode       string
	cell       int
	overlap    int
	dedupe     int
	preset     string
	columns    string
	sheetPer   bool
	metadata   bool
	autoFit    bool
	freeze     bool
	outputDir  string
	chart      bool
	dbPath     string
	noDownload bool
	saveParams string
	logLevel   string
}

func runJob(args []string) error {
	cfg := config.Load()
	var f runFlags

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&f.paramsPath, "params", "", "Parameter file (.yaml); flags override its values")
	fs.StringVar(&f.server, "server", cfg.Backend.URL, "Backend base URL")
	fs.StringVar(&f.region, "region", model.DefaultRegionName, "Kabupaten/kota name")
	fs.StringVar(&f.kecamatan, "kecamatan", "", "Comma-separated kecamatan names (required unless in -params)")
	fs.StringVar(&f.keyword, "keyword", "", "Extra search keyword, e.g. SMA")
	fs.Float64Var(&f.minRating, "min-rating", 0, "Minimum rating 0-5")
	fs.StringVar(&f.mode, "mode", string(model.ModeGrid), "Search strategy: grid or centroid")
	fs.IntVar(&f.cell, "cell", model.DefaultCellSize, "Grid cell size (or centroid radius) in meters")
	fs.IntVar(&f.overlap, "overlap", model.DefaultOverlapMeters, "Grid overlap in meters")
	fs.IntVar(&f.dedupe, "dedupe", model.DefaultDedupeMeters, "Dedupe radius in meters")
	fs.StringVar(&f.preset, "preset", "", "Column preset: minimal, places-basic, all")
	fs.StringVar(&f.columns, "columns", "", "Comma-separated column names (see 'kectap columns')")
	fs.BoolVar(&f.sheetPer, "sheet-per-kecamatan", true, "One worksheet per kecamatan")
	fs.BoolVar(&f.metadata, "metadata-sheet", true, "Include the metadata sheet")
	fs.BoolVar(&f.autoFit, "autofit", true, "Auto-fit column widths")
	fs.BoolVar(&f.freeze, "freeze-header", true, "Freeze the header row")
	fs.StringVar(&f.outputDir, "output", cfg.OutputDir, "Directory for the downloaded export")
	fs.BoolVar(&f.chart, "chart", false, "Write an HTML map of the preview rows")
	fs.StringVar(&f.dbPath, "db", "", "Also import the export into this SQLite file")
	fs.BoolVar(&f.noDownload, "no-download", false, "Skip downloading the export")
	fs.StringVar(&f.saveParams, "save-params", "", "Write the effective parameters to this .yaml file")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (default from KECTAP_LOG_LEVEL)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kectap run [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kectap run -kecamatan \"Ungaran Barat,Bergas\" -keyword SMA\n")
		fmt.Fprintf(os.Stderr, "  kectap run -params semarang.yaml -preset all -chart -db schools.db\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	params, err := buildParams(fs, f, cfg.Backend.URL)
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if f.chart && !(model.ContainsColumn(params.Columns, geo.LatKey) && model.ContainsColumn(params.Columns, geo.LngKey)) {
		return fmt.Errorf("-chart needs the %s and %s columns", geo.LatKey, geo.LngKey)
	}
	if f.saveParams != "" {
		if err := config.SaveParams(f.saveParams, params); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Params: %s\n", f.saveParams)
	}

	level := cfg.Log.Level
	if f.logLevel != "" {
		level = config.ParseLevel(f.logLevel)
	}
	logger := config.NewLogger(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := jobs.NewClient(cfg.Backend.HTTPTimeout, jobs.WithLogger(logger))
	var (
		mu   sync.Mutex
		last string
	)
	ctrl := poller.New(client, poller.Options{
		Interval:     cfg.Backend.PollInterval,
		PreviewLimit: cfg.Backend.PreviewLimit,
		Logger:       logger,
		OnChange: func(v poller.View) {
			if v.Status == nil {
				return
			}
			line := v.StatusLine()
			mu.Lock()
			defer mu.Unlock()
			if line != last {
				last = line
				fmt.Fprintf(os.Stderr, "  %s\n", line)
			}
		},
	})
	defer ctrl.Close()

	kec := params.Subdistricts()
	fmt.Fprintf(os.Stderr, "Backend: %s\n", params.ServerBaseURL)
	fmt.Fprintf(os.Stderr, "Job: %d kecamatan in %s (%s, %d columns)\n",
		len(kec), params.RegionName, params.Strategy.Mode, len(params.Columns))

	start := time.Now()
	if err := ctrl.Submit(ctx, params); err != nil {
		return err
	}
	v, err := ctrl.Wait(ctx)
	if err != nil {
		ctrl.Stop()
		fmt.Fprintln(os.Stderr, "\nCancelled.")
		return err
	}
	if v.State == poller.StateFailed {
		return v.Err
	}

	var rows []map[string]any
	total := 0
	if v.Preview != nil {
		rows = v.Preview.Rows
		total = len(rows)
		if v.Preview.Total != nil {
			total = *v.Preview.Total
		}
		printPreview(rows, params.Columns, total)
	}

	var chartPath, exportPath string
	if f.chart {
		chartPath, err = writeChartFile(f.outputDir, v.Handle.ID, rows)
		if err != nil {
			logger.Warn("run.chart_failed", "error", err)
		}
	}

	if !f.noDownload {
		url, _ := v.DownloadURL()
		fmt.Fprintf(os.Stderr, "Downloading %s\n", url)
		exportPath, err = client.Download(ctx, *v.Handle, f.outputDir)
		if err != nil {
			return fmt.Errorf("downloading export: %w", err)
		}
	}

	var stored int
	if f.dbPath != "" {
		if exportPath == "" {
			return errors.New("-db needs the export; drop -no-download")
		}
		stored, err = importWorkbook(exportPath, f.dbPath, false)
		if err != nil {
			return err
		}
	}

	duration := time.Since(start).Truncate(time.Second)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  kectap Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Job:        %s\n", v.Handle.ID)
	fmt.Fprintf(os.Stderr, "  Region:     %s\n", params.RegionName)
	fmt.Fprintf(os.Stderr, "  Kecamatan:  %s\n", strings.Join(kec, ", "))
	fmt.Fprintf(os.Stderr, "  Rows:       %d\n", total)
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	if exportPath != "" {
		fmt.Fprintf(os.Stderr, "  Export:     %s\n", exportPath)
	} else if url, ok := v.DownloadURL(); ok {
		fmt.Fprintf(os.Stderr, "  Download:   %s\n", url)
	}
	if chartPath != "" {
		fmt.Fprintf(os.Stderr, "  Chart:      %s\n", chartPath)
	}
	if f.dbPath != "" {
		fmt.Fprintf(os.Stderr, "  Database:   %s (%d rows)\n", f.dbPath, stored)
	}
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	return nil
}

// buildParams starts from -params (or the defaults) and applies only the
// flags set on the command line.
func buildParams(fs *flag.FlagSet, f runFlags, serverURL string) (model.ParameterSet, error) {
	p := model.DefaultParameterSet(serverURL)
	if f.paramsPath != "" {
		var err error
		if p, err = config.LoadParams(f.paramsPath, serverURL); err != nil {
			return p, err
		}
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "server":
			p.ServerBaseURL = f.server
		case "region":
			p.RegionName = f.region
		case "kecamatan":
			p.SetSubdistricts(splitList(f.kecamatan))
		case "keyword":
			p.Keyword = strings.TrimSpace(f.keyword)
		case "min-rating":
			p.MinRating = model.ClampRating(f.minRating)
		case "mode":
			p.Strategy.Mode, err = model.ParseStrategyMode(f.mode)
		case "cell":
			p.Strategy.CellSizeMeters = max(f.cell, model.MinCellSize)
		case "overlap":
			p.Strategy.OverlapMeters = max(f.overlap, 0)
		case "dedupe":
			p.Strategy.DedupeRadiusMeters = max(f.dedupe, 0)
		case "preset":
			preset, ok := model.Presets[f.preset]
			if !ok {
				err = fmt.Errorf("unknown preset %q", f.preset)
				return
			}
			p.Columns = preset()
		case "sheet-per-kecamatan":
			p.Export.SheetPerSubdistrict = f.sheetPer
		case "metadata-sheet":
			p.Export.IncludeMetadataSheet = f.metadata
		case "autofit":
			p.Export.AutoFitColumns = f.autoFit
		case "freeze-header":
			p.Export.FreezeHeaderRow = f.freeze
		}
	})
	if err != nil {
		return p, err
	}
	// -columns wins over -preset regardless of flag order.
	if f.columns != "" {
		p.Columns = splitList(f.columns)
	}
	return p, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printPreview(rows []map[string]any, columns []string, total int) {
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "\nNo rows.")
		return
	}
	n := min(len(rows), previewRows)
	fmt.Fprintf(os.Stderr, "\nPreview (%d of %d):\n", n, total)
	cols := columns
	if len(cols) > 4 {
		cols = cols[:4]
	}
	for _, r := range rows[:n] {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = fmt.Sprintf("%-28s", clip(model.Cell(r, c), 28))
		}
		fmt.Fprintf(os.Stderr, "  %s\n", strings.TrimRight(strings.Join(cells, " "), " "))
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func writeChartFile(dir, jobID string, rows []map[string]any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(dir, "kectap_"+jobID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating chart: %w", err)
	}
	defer f.Close()
	if err := geo.WriteChart(f, "kectap "+jobID, geo.Places(rows)); err != nil {
		return "", err
	}
	return path, nil
}

// importWorkbook loads every data sheet of the export at path into the
// SQLite file at dbPath and returns the stored row count.
func importWorkbook(path, dbPath string, replace bool) (int, error) {
	wb, err := workbook.Open(path)
	if err != nil {
		return 0, err
	}
	store, err := storage.NewStore(dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	jobID := wb.Metadata["jobId"]
	if jobID == "" {
		jobID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if replace {
		removed, err := store.DeleteJob(jobID)
		if err != nil {
			return 0, err
		}
		if removed > 0 {
			fmt.Fprintf(os.Stderr, "Replaced %d rows of job %s\n", removed, jobID)
		}
	}

	stored := 0
	for _, s := range wb.Sheets {
		n, err := store.InsertSheet(jobID, s.Name, s.Header, s.Rows)
		if err != nil {
			return stored, fmt.Errorf("importing sheet %q: %w", s.Name, err)
		}
		fmt.Fprintf(os.Stderr, "  %-24s %d rows\n", s.Name, n)
		stored += n
	}
	return stored, nil
}

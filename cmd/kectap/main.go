package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/model"
	"github.com/rendis/kectap/internal/tui"
	"github.com/rendis/kectap/internal/tui/views"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[0] != "" {
		var err error
		switch os.Args[1] {
		case "run":
			err = runJob(os.Args[2:])
		case "load":
			err = runLoad(os.Args[2:])
		case "columns":
			err = runColumns(os.Args[2:])
		case "mock-server":
			err = runMock(os.Args[2:])
		case "version":
			fmt.Println("kectap " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		default:
			err = runTUI(os.Args[1:])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// No subcommand → launch TUI
	if err := runTUI(nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(args []string) error {
	var paramsPath string

	fs := flag.NewFlagSet("kectap", flag.ExitOnError)
	fs.StringVar(&paramsPath, "params", "", "Parameter file (.yaml) to preload into the form")
	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unknown command %q (see 'kectap help')", fs.Arg(0))
	}

	cfg := config.Load()
	views.Version = version

	logFile, err := config.OpenLogFile(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := config.NewLogger(logFile, cfg.Log.Level)
	logger.Info("tui.start", "version", version, "backend", cfg.Backend.URL)

	var params *model.ParameterSet
	if paramsPath != "" {
		p, err := config.LoadParams(paramsPath, cfg.Backend.URL)
		if err != nil {
			return err
		}
		params = &p
	}
	return tui.Run(cfg, logger, params, paramsPath)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `kectap - school places per kecamatan, exported to Excel

Usage:
  kectap [-params file]      Launch interactive TUI
  kectap run [flags]         Submit a job, wait for it and download the export
  kectap load [flags]        Import a downloaded .xlsx into SQLite
  kectap columns             List the selectable output columns and presets
  kectap mock-server [flags] Serve a simulated backend for local use
  kectap version             Show version

Environment:
  KECTAP_BACKEND_URL    Backend base URL (default %s)
  KECTAP_POLL_INTERVAL  Status poll interval (default 1.4s)
  KECTAP_PREVIEW_LIMIT  Preview rows fetched after success (default 50)
  KECTAP_HTTP_TIMEOUT   Per-request timeout (default 30s)
  KECTAP_OUTPUT_DIR     Where exports are saved (default .)
  KECTAP_LOG            TUI log file
  KECTAP_LOG_LEVEL      debug, info, warn or error

Run 'kectap run --help' for flags.
`, config.DefaultBackendURL)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/kectap/internal/config"
	"github.com/rendis/kectap/internal/mockbackend"
)

func runMock(args []string) error {
	var addr, logLevel string
	var opts mockbackend.Options

	fs := flag.NewFlagSet("mock-server", flag.ExitOnError)
	fs.StringVar(&addr, "addr", ":8000", "Listen address")
	fs.IntVar(&opts.QueuedPolls, "queued", 1, "Status calls that report queued before running")
	fs.IntVar(&opts.StepsPerKecamatan, "steps", 2, "Status calls per kecamatan")
	fs.IntVar(&opts.PlacesPerCell, "places", 1, "Candidate places per search cell")
	fs.StringVar(&opts.FailMessage, "fail", "", "Fail every job halfway with this message")
	fs.BoolVar(&opts.FailPreview, "fail-preview", false, "Answer preview requests with 500")
	fs.BoolVar(&opts.RejectSubmit, "reject", false, "Reject every submission with 400")
	fs.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: kectap mock-server [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  kectap mock-server -addr :8000 -steps 3\n")
		fmt.Fprintf(os.Stderr, "  KECTAP_BACKEND_URL=http://localhost:8000 kectap\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	opts.Logger = config.NewLogger(os.Stderr, config.ParseLevel(logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mockbackend.New(opts).ListenAndServe(ctx, addr)
}

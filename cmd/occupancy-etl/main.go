package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/JamesPrial/bed-occupancy-core/internal/etl"
	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "occupancy-etl: %v\n", err)
		os.Exit(1)
	}
}

// run imports one file and prints the result summary as JSON to stdout
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("occupancy-etl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to YAML configuration file (environment variables override it)")
	input := flags.String("input", "", "CSV or XLSX file to import")
	sheet := flags.String("sheet", "", "XLSX worksheet (defaults to the first sheet)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		flags.Usage()
		return fmt.Errorf("-input is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LoggingConfig()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Shutdown()

	metrics := logging.GetGlobalMetricsCollector()

	backend, err := storage.NewBackend(ctx, cfg, storage.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	defer backend.Close()

	result, runErr := etl.NewLoader(backend, etl.WithMetrics(metrics)).Run(ctx, etl.Source{Path: *input, Sheet: *sheet})
	if result != nil {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("import failed: %w", runErr)
	}
	return nil
}

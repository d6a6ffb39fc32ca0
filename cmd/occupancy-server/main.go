package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/JamesPrial/bed-occupancy-core/internal/admin"
	"github.com/JamesPrial/bed-occupancy-core/internal/api"
	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "occupancy-server: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, selects the backend and serves until ctx is done.
// Configuration and backend failures return before anything listens.
func run(ctx context.Context, args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("occupancy-server", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to YAML configuration file (environment variables override it)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LoggingConfig()); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Shutdown()

	logger := logging.GetGlobalLogger("main")
	metrics := logging.GetGlobalMetricsCollector()

	backend, err := storage.NewBackend(ctx, cfg, storage.WithMetrics(metrics))
	if err != nil {
		logger.Error("Failed to create storage backend", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create storage backend: %w", err)
	}
	defer backend.Close()

	server := api.NewServer(backend, cfg, api.WithMetrics(metrics), api.WithVersion(version))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	if cfg.Admin.Port > 0 {
		adminServer := admin.NewAdminServer(backend, metrics)
		g.Go(func() error {
			return adminServer.Start(gctx, cfg.Admin.Port)
		})
	}

	logger.Info("Service started",
		slog.String("version", version),
		slog.String("database_type", cfg.DatabaseType),
		slog.String("address", cfg.HTTP.Addr()),
	)

	err = g.Wait()
	logger.Info("Service stopped")
	return err
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FACorreiaa/schedule-importer/cmd/api"
	"github.com/FACorreiaa/schedule-importer/pkg/config"
	"github.com/FACorreiaa/schedule-importer/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run serves until a shutdown signal arrives. Dependencies are cleaned up
// before it returns, on every path.
func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.Int64("max_file_bytes", cfg.Import.MaxFileBytes),
		slog.Bool("spreadsheet_enabled", cfg.Import.SpreadsheetEnabled),
		slog.Bool("notify_webhook", cfg.Notify.WebhookURL != ""),
	)

	deps, err := api.InitDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}
	defer deps.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Delimited text is accepted while the spreadsheet codec loads
	go deps.LoadCapabilities(ctx)

	if err := deps.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	server := api.NewServer(deps)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return err
	}
	<-shutdownDone
	return nil
}

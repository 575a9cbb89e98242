package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	importhandler "github.com/FACorreiaa/schedule-importer/internal/domain/import/handler"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/remote"
	importservice "github.com/FACorreiaa/schedule-importer/internal/domain/import/service"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"

	"github.com/FACorreiaa/schedule-importer/pkg/capability"
	"github.com/FACorreiaa/schedule-importer/pkg/config"
	"github.com/FACorreiaa/schedule-importer/pkg/cron"
	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
	"github.com/FACorreiaa/schedule-importer/pkg/push"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Capabilities
	SpreadsheetGate *capability.Gate

	// Services
	ImportService *importservice.ImportService
	RemoteClient  *remote.Client
	PushService   *push.Service
	SessionStore  *importservice.SessionStore
	Scheduler     *cron.Scheduler

	// Handlers
	ImportHandler *importhandler.ImportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initMetrics creates the process registry with runtime collectors
func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = metrics.New(d.Registry)
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.SpreadsheetGate = capability.NewGate("spreadsheet")

	policy := validator.Policy{
		AcceptedExtensions: d.Config.Import.AcceptedExtensions,
		MaxBytes:           d.Config.Import.MaxFileBytes,
	}
	decoders := parser.NewRegistry(parser.Config{
		Delimiter:       ',',
		DetectDelimiter: d.Config.Import.DetectDelimiter,
	}, d.SpreadsheetGate)

	d.ImportService = importservice.NewImportService(
		validator.New(policy, d.SpreadsheetGate),
		decoders,
		d.Logger,
	).WithMetrics(d.Metrics)

	client, err := remote.NewClient(remote.Config{
		BaseURL:            d.Config.Remote.BaseURL,
		ImportPath:         d.Config.Remote.ImportPath,
		Timeout:            d.Config.Remote.Timeout,
		RateLimitPerSecond: d.Config.Remote.RateLimitPerSecond,
		Burst:              d.Config.Remote.RateLimitBurst,
		SigningKey:         d.Config.Remote.SigningKey,
		Issuer:             d.Config.Remote.Issuer,
		Audience:           d.Config.Remote.Audience,
	}, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init remote client: %w", err)
	}
	d.RemoteClient = client

	// Webhook notifications are optional
	if d.Config.Notify.WebhookURL != "" {
		d.PushService = push.NewService(d.Config.Notify.WebhookURL, d.Config.Notify.Timeout, d.Logger)
	}

	completion := newCompletionListener(d.Metrics, d.Logger)
	d.SessionStore = importservice.NewSessionStore(d.ImportService, func() *importservice.Orchestrator {
		orch := importservice.NewOrchestrator(d.RemoteClient, d.Logger).
			WithMetrics(d.Metrics).
			WithListener(completion)
		if d.PushService != nil {
			orch.WithListener(d.PushService)
		}
		return orch
	}, d.Logger).WithMetrics(d.Metrics)

	d.Scheduler = cron.NewScheduler(
		d.SessionStore,
		d.Config.Import.SessionIdleTimeout,
		d.Config.Import.SweepSchedule,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(
		d.SessionStore,
		d.ImportService,
		d.Config.Import.MaxFileBytes,
		d.Logger,
	).WithSpreadsheetGate(d.SpreadsheetGate)

	d.Logger.Info("handlers initialized")
}

// LoadCapabilities loads the spreadsheet codec. Failure leaves spreadsheet
// uploads rejected; delimited text keeps working.
func (d *Dependencies) LoadCapabilities(ctx context.Context) {
	loader := parser.SpreadsheetLoader(d.Config.Import.SpreadsheetEnabled)
	if err := d.SpreadsheetGate.Load(ctx, loader); err != nil {
		d.Logger.Warn("spreadsheet support unavailable", slog.Any("error", err))
		return
	}
	d.Logger.Info("spreadsheet support ready")
}

// Cleanup stops background jobs
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	d.Logger.Info("cleanup completed")
}

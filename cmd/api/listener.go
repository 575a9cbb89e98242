package api

import (
	"context"
	"log/slog"

	importservice "github.com/FACorreiaa/schedule-importer/internal/domain/import/service"
	"github.com/FACorreiaa/schedule-importer/pkg/logging"
	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
)

// completionListener records every finished submission
type completionListener struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// newCompletionListener creates the listener every orchestrator shares
func newCompletionListener(m *metrics.Metrics, logger *slog.Logger) importservice.Listener {
	return &completionListener{metrics: m, logger: logger}
}

// ImportCompleted implements importservice.Listener
func (l *completionListener) ImportCompleted(ctx context.Context, success bool) {
	l.metrics.ObserveNotification(success)
	logging.FromContext(ctx, l.logger).Info("import completed", slog.Bool("success", success))
}

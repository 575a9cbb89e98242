package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/remote"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/result"
	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
)

var (
	// ErrEmptyInput is returned when there is nothing to submit
	ErrEmptyInput = errors.New("please select a file first")

	// ErrBusy is returned when a submission is already in flight
	ErrBusy = errors.New("an import is already in progress")
)

// Listener is notified once per completed submission
type Listener interface {
	ImportCompleted(ctx context.Context, success bool)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, success bool)

func (f ListenerFunc) ImportCompleted(ctx context.Context, success bool) {
	f(ctx, success)
}

// Orchestrator submits canonical payloads to the remote service. It allows
// one submission in flight; further calls are rejected, not queued.
type Orchestrator struct {
	importer  remote.Importer
	listeners []Listener
	busy      atomic.Bool
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator for one component instance
func NewOrchestrator(importer remote.Importer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		importer: importer,
		tracer:   otel.Tracer("schedule-importer/service"),
		logger:   logger,
	}
}

// WithListener registers a completion listener
func (o *Orchestrator) WithListener(l Listener) *Orchestrator {
	o.listeners = append(o.listeners, l)
	return o
}

// WithMetrics adds metrics recording to the orchestrator
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// Busy reports whether a submission is in flight
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Submit sends req and classifies the reply. Transport failures are
// reported through the returned outcome; only ErrEmptyInput and ErrBusy
// come back as errors, and neither contacts the remote service.
func (o *Orchestrator) Submit(ctx context.Context, req model.ImportRequest) (*model.Outcome, error) {
	if req.CanonicalPayload == "" {
		return nil, ErrEmptyInput
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	mode := req.Mode()
	ctx, span := o.tracer.Start(ctx, "service.Submit", trace.WithAttributes(
		attribute.String("import.mode", string(mode)),
	))
	defer span.End()

	start := time.Now()
	resp, err := o.importer.Import(ctx, req)
	o.metrics.ObserveRemote(time.Since(start))

	var outcome model.Outcome
	success := false

	if err != nil {
		outcome = result.TransportFailure(err, mode)
		o.logger.Error("import request failed",
			slog.String("mode", string(mode)),
			slog.Any("error", err),
		)
	} else {
		outcome = result.Classify(*resp, mode)
		success = outcome.Success()
		if resp.IsSuccess != nil {
			success = *resp.IsSuccess
		}
		o.logger.Info("import completed",
			slog.String("mode", string(mode)),
			slog.String("category", string(outcome.Category)),
			slog.Int("created", outcome.Created),
			slog.Int("updated", outcome.Updated),
			slog.Int("failed", outcome.Failed),
			slog.Bool("async", outcome.Async),
		)
	}

	span.SetAttributes(attribute.String("import.category", string(outcome.Category)))
	o.metrics.ObserveImport(string(outcome.Category), string(mode))
	o.notify(ctx, success)

	return &outcome, nil
}

func (o *Orchestrator) notify(ctx context.Context, success bool) {
	for _, l := range o.listeners {
		l.ImportCompleted(ctx, success)
	}
}

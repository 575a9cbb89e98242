// Package service provides the import orchestration logic: preparing an
// uploaded file for submission, submitting it once, and tracking the
// per-component session state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/normalizer"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/sniffer"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"
	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
)

// Prepared is a validated, decoded and canonicalized file ready for submission
type Prepared struct {
	File        model.UploadedFile
	Format      model.Format
	Rows        int
	Columns     int
	Payload     string
	Fingerprint string
}

// ImportService turns uploaded bytes into a canonical payload
type ImportService struct {
	validator *validator.Validator
	decoders  *parser.Registry
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(v *validator.Validator, decoders *parser.Registry, logger *slog.Logger) *ImportService {
	return &ImportService{
		validator: v,
		decoders:  decoders,
		tracer:    otel.Tracer("schedule-importer/service"),
		logger:    logger,
	}
}

// WithMetrics adds metrics recording to the import service
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// Validate checks file metadata only. Callers use it to reject a file
// before reading its content.
func (s *ImportService) Validate(file model.UploadedFile) (model.Format, error) {
	format, err := s.validator.Validate(file)
	if err != nil {
		var rejection *validator.RejectionError
		if errors.As(err, &rejection) {
			s.metrics.ObserveRejection(string(rejection.Reason))
		}
		s.logger.Info("file rejected",
			slog.String("file", file.Name),
			slog.Int64("size", file.SizeBytes),
			slog.Any("error", err),
		)
		return model.FormatUnknown, err
	}
	return format, nil
}

// Prepare validates, decodes and canonicalizes one uploaded file. The
// payload is derived in full; nothing is streamed.
func (s *ImportService) Prepare(ctx context.Context, file model.UploadedFile, data []byte) (*Prepared, error) {
	ctx, span := s.tracer.Start(ctx, "service.Prepare", trace.WithAttributes(
		attribute.String("file.name", file.Name),
		attribute.Int64("file.size", file.SizeBytes),
	))
	defer span.End()

	format, err := s.Validate(file)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	grid, err := s.decoders.Decode(ctx, format, data)
	if err != nil {
		var decodeErr *parser.DecodeError
		if errors.As(err, &decodeErr) {
			s.metrics.ObserveRejection(string(decodeErr.Reason))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("failed to decode file",
			slog.String("file", file.Name),
			slog.String("format", format.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to decode %s: %w", file.Name, err)
	}

	payload := normalizer.Canonicalize(grid)
	s.metrics.ObserveDecode(format.String(), time.Since(start))

	prepared := &Prepared{
		File:        file,
		Format:      format,
		Rows:        grid.Len(),
		Columns:     grid.Width(),
		Payload:     payload,
		Fingerprint: headerFingerprint(grid),
	}

	span.SetAttributes(
		attribute.Int("grid.rows", prepared.Rows),
		attribute.Int("grid.columns", prepared.Columns),
	)
	s.logger.Info("file prepared",
		slog.String("file", file.Name),
		slog.String("format", format.String()),
		slog.Int("rows", prepared.Rows),
		slog.Int("columns", prepared.Columns),
		slog.String("fingerprint", prepared.Fingerprint),
	)

	return prepared, nil
}

func headerFingerprint(grid model.Grid) string {
	header := grid.Header()
	if header == nil {
		return ""
	}
	names := make([]string, len(header))
	for i, c := range header {
		names[i] = normalizer.FormatCell(c)
	}
	return sniffer.Fingerprint(names)
}

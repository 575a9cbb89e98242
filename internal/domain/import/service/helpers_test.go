package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeImporter records requests and replies with a canned response
type fakeImporter struct {
	mu      sync.Mutex
	calls   []model.ImportRequest
	resp    *model.ImportResponse
	err     error
	started chan struct{} // signalled when a call begins, if set
	release chan struct{} // blocks the call until closed or ctx is done, if set
}

func (f *fakeImporter) Import(ctx context.Context, req model.ImportRequest) (*model.ImportResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	return &resp, nil
}

func (f *fakeImporter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingListener collects completion notifications
type recordingListener struct {
	mu     sync.Mutex
	events []bool
}

func (l *recordingListener) ImportCompleted(_ context.Context, success bool) {
	l.mu.Lock()
	l.events = append(l.events, success)
	l.mu.Unlock()
}

func (l *recordingListener) Events() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.events...)
}

func newTestImportService(gate *capability.Gate) *ImportService {
	return NewImportService(
		validator.New(validator.DefaultPolicy(), gate),
		parser.NewRegistry(parser.DefaultConfig(), gate),
		testLogger(),
	)
}

package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/validator"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
)

func TestImportService_Prepare(t *testing.T) {
	ctx := context.Background()
	svc := newTestImportService(nil).WithMetrics(metrics.New(prometheus.NewRegistry()))

	t.Run("csv", func(t *testing.T) {
		data := []byte("Employee,Account,Quantity\nAna,\"Acme, S.L.\",8\nLuis,Beta,4\n\n")
		file := model.NewUploadedFile("schedules.csv", int64(len(data)))

		p, err := svc.Prepare(ctx, file, data)
		require.NoError(t, err)

		assert.Equal(t, model.FormatCSV, p.Format)
		assert.Equal(t, 3, p.Rows)
		assert.Equal(t, 3, p.Columns)
		assert.Equal(t, "Employee,Account,Quantity\nAna,\"Acme, S.L.\",8\nLuis,Beta,4", p.Payload)
		assert.Len(t, p.Fingerprint, 64)
	})

	t.Run("unsupported format is rejected before decoding", func(t *testing.T) {
		_, err := svc.Prepare(ctx, model.NewUploadedFile("notes.txt", 3), []byte("\x00\x01\x02"))
		assert.ErrorIs(t, err, validator.ErrUnsupportedFormat)
	})

	t.Run("spreadsheet without capability", func(t *testing.T) {
		_, err := svc.Prepare(ctx, model.NewUploadedFile("a.xlsx", 10), []byte("whatever"))
		assert.ErrorIs(t, err, validator.ErrCapabilityNotReady)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := svc.Prepare(ctx, model.NewUploadedFile("a.csv", 6*1024*1024), nil)
		assert.ErrorIs(t, err, validator.ErrFileTooLarge)
	})

	t.Run("empty file prepares an empty payload", func(t *testing.T) {
		p, err := svc.Prepare(ctx, model.NewUploadedFile("a.csv", 0), nil)
		require.NoError(t, err)
		assert.Empty(t, p.Payload)
		assert.Empty(t, p.Fingerprint)
	})
}

func TestImportService_PrepareWorkbook(t *testing.T) {
	ctx := context.Background()
	gate := capability.NewGate("spreadsheet")
	require.NoError(t, gate.Load(ctx, parser.SpreadsheetLoader(true)))
	svc := newTestImportService(gate)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Employee", "Quantity"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ana", 8}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p, err := svc.Prepare(ctx, model.NewUploadedFile("schedules.xlsx", int64(buf.Len())), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Employee,Quantity\nAna,8", p.Payload)

	t.Run("corrupt workbook", func(t *testing.T) {
		_, err := svc.Prepare(ctx, model.NewUploadedFile("broken.xlsx", 5), []byte("hello"))
		assert.ErrorIs(t, err, parser.ErrCorruptWorkbook)
	})
}

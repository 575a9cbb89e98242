package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

// workbookBytes builds an in-memory workbook and returns its encoding
func workbookBytes(t testing.TB, build func(f *excelize.File, sheet string)) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	build(f, sheet)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func readyGate(t testing.TB) *capability.Gate {
	t.Helper()
	gate := capability.NewGate("spreadsheet")
	require.NoError(t, gate.Load(context.Background(), SpreadsheetLoader(true)))
	return gate
}

func TestExcelDecoder_Decode(t *testing.T) {
	ctx := context.Background()
	dec := NewExcelDecoder(readyGate(t))

	t.Run("types cells", func(t *testing.T) {
		data := workbookBytes(t, func(f *excelize.File, sheet string) {
			require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Employee", "Quantity", "Bill Rate", "Start Date", "Billable"}))
			require.NoError(t, f.SetCellValue(sheet, "A2", "Ana"))
			require.NoError(t, f.SetCellValue(sheet, "B2", 8))
			require.NoError(t, f.SetCellValue(sheet, "C2", 12.5))
			require.NoError(t, f.SetCellValue(sheet, "D2", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)))
			require.NoError(t, f.SetCellValue(sheet, "E2", true))
		})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)
		require.Equal(t, 2, grid.Len())

		row := grid.Rows[1]
		assert.Equal(t, model.TextCell("Ana"), row[0])
		assert.Equal(t, model.NumberCell(8), row[1])
		assert.Equal(t, model.NumberCell(12.5), row[2])
		assert.Equal(t, model.DateCell(2026, time.January, 5), row[3])
		assert.Equal(t, model.TextCell("TRUE"), row[4])
	})

	t.Run("detects date number formats", func(t *testing.T) {
		custom := "dd/mm/yyyy"
		data := workbookBytes(t, func(f *excelize.File, sheet string) {
			builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14})
			require.NoError(t, err)
			customStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
			require.NoError(t, err)

			require.NoError(t, f.SetCellValue(sheet, "A1", 46027))
			require.NoError(t, f.SetCellStyle(sheet, "A1", "A1", builtin))
			require.NoError(t, f.SetCellValue(sheet, "B1", 46112))
			require.NoError(t, f.SetCellStyle(sheet, "B1", "B1", customStyle))
			require.NoError(t, f.SetCellValue(sheet, "C1", 46027))
		})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)

		assert.Equal(t, model.DateCell(2026, time.January, 5), grid.Rows[0][0])
		assert.Equal(t, model.DateCell(2026, time.March, 31), grid.Rows[0][1])
		assert.Equal(t, model.NumberCell(46027), grid.Rows[0][2])
	})

	t.Run("pads rows to the widest row", func(t *testing.T) {
		data := workbookBytes(t, func(f *excelize.File, sheet string) {
			require.NoError(t, f.SetCellValue(sheet, "A1", "a"))
			require.NoError(t, f.SetCellValue(sheet, "C2", "c"))
		})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)

		require.Equal(t, 2, grid.Len())
		assert.Equal(t, model.Row{model.TextCell("a"), model.EmptyCell(), model.EmptyCell()}, grid.Rows[0])
		assert.Equal(t, model.Row{model.EmptyCell(), model.EmptyCell(), model.TextCell("c")}, grid.Rows[1])
	})

	t.Run("keeps interior blank rows", func(t *testing.T) {
		data := workbookBytes(t, func(f *excelize.File, sheet string) {
			require.NoError(t, f.SetCellValue(sheet, "A1", "a"))
			require.NoError(t, f.SetCellValue(sheet, "A3", "b"))
		})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)

		require.Equal(t, 3, grid.Len())
		assert.True(t, grid.Rows[1].IsBlank())
	})

	t.Run("reads only the first sheet", func(t *testing.T) {
		data := workbookBytes(t, func(f *excelize.File, sheet string) {
			require.NoError(t, f.SetCellValue(sheet, "A1", "first"))
			_, err := f.NewSheet("Second")
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Second", "A1", "second"))
			require.NoError(t, f.SetCellValue("Second", "A2", "more"))
		})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)

		require.Equal(t, 1, grid.Len())
		assert.Equal(t, "first", grid.Rows[0][0].Text)
	})

	t.Run("empty sheet", func(t *testing.T) {
		data := workbookBytes(t, func(*excelize.File, string) {})

		grid, err := dec.Decode(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, 0, grid.Len())
	})

	t.Run("empty bytes", func(t *testing.T) {
		grid, err := dec.Decode(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, grid.Len())
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		_, err := dec.Decode(ctx, []byte("Employee,Account\nAna,Acme\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCorruptWorkbook)
	})
}

func TestExcelDecoder_Gate(t *testing.T) {
	data := workbookBytes(t, func(f *excelize.File, sheet string) {
		require.NoError(t, f.SetCellValue(sheet, "A1", "a"))
	})

	t.Run("pending", func(t *testing.T) {
		dec := NewExcelDecoder(capability.NewGate("spreadsheet"))
		_, err := dec.Decode(context.Background(), data)
		assert.ErrorIs(t, err, ErrCapabilityNotReady)
	})

	t.Run("disabled", func(t *testing.T) {
		gate := capability.NewGate("spreadsheet")
		err := gate.Load(context.Background(), SpreadsheetLoader(false))
		assert.ErrorIs(t, err, ErrSpreadsheetDisabled)

		_, err = NewExcelDecoder(gate).Decode(context.Background(), data)
		assert.ErrorIs(t, err, ErrCapabilityNotReady)
	})
}

// Package template generates the downloadable example files for the
// billing-schedule import.
package template

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/normalizer"
)

const (
	CSVName  = "billing_schedule_template.csv"
	XLSXName = "billing_schedule_template.xlsx"

	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Billing Schedules"
)

// Columns is the fixed template schema
var Columns = []string{
	"Employee", "Account", "Month Number", "Start Date", "End Date", "Quantity", "Bill Rate", "Record Type",
}

func exampleRows() []model.Row {
	return []model.Row{
		{
			model.TextCell("Ana Martins"),
			model.TextCell("Acme Consulting, S.L."),
			model.NumberCell(1),
			model.DateCell(2026, time.January, 1),
			model.DateCell(2026, time.January, 31),
			model.NumberCell(160),
			model.NumberCell(85.5),
			model.TextCell("Time and Materials"),
		},
		{
			model.TextCell("Luis Ferreira"),
			model.TextCell("Northwind Traders"),
			model.NumberCell(2),
			model.DateCell(2026, time.February, 1),
			model.DateCell(2026, time.February, 28),
			model.NumberCell(120),
			model.NumberCell(92),
			model.TextCell("Fixed Fee"),
		},
	}
}

// Grid returns the header and example rows
func Grid() model.Grid {
	header := make(model.Row, len(Columns))
	for i, c := range Columns {
		header[i] = model.TextCell(c)
	}
	return model.Grid{Rows: append([]model.Row{header}, exampleRows()...)}
}

// CSV returns the template as canonical comma-separated text
func CSV() []byte {
	return []byte(normalizer.Canonicalize(Grid()))
}

// XLSX returns the template as a workbook with typed cells
func XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	for r, row := range Grid().Rows {
		for c, cell := range row {
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := writeCell(f, axis, cell, dateStyle); err != nil {
				return nil, fmt.Errorf("failed to write template cell %s: %w", axis, err)
			}
		}
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style template header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("failed to size template columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode template workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCell(f *excelize.File, axis string, cell model.Cell, dateStyle int) error {
	switch cell.Kind {
	case model.KindText:
		return f.SetCellStr(sheetName, axis, cell.Text)
	case model.KindNumber:
		return f.SetCellFloat(sheetName, axis, cell.Number, -1, 64)
	case model.KindDate:
		d := time.Date(cell.Date.Year, cell.Date.Month, cell.Date.Day, 0, 0, 0, 0, time.UTC)
		if err := f.SetCellValue(sheetName, axis, d); err != nil {
			return err
		}
		return f.SetCellStyle(sheetName, axis, axis, dateStyle)
	}
	return nil
}

// File is one downloadable template
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// ErrUnknownTemplate is returned by ByName for names other than the two templates
var ErrUnknownTemplate = fmt.Errorf("unknown template: expected %s or %s", CSVName, XLSXName)

// ByName generates the template with the given file name
func ByName(name string) (*File, error) {
	switch name {
	case CSVName:
		return &File{Name: CSVName, ContentType: CSVContentType, Content: CSV()}, nil
	case XLSXName:
		content, err := XLSX()
		if err != nil {
			return nil, err
		}
		return &File{Name: XLSXName, ContentType: XLSXContentType, Content: content}, nil
	default:
		return nil, ErrUnknownTemplate
	}
}

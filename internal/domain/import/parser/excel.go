package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

// ExcelDecoder reads the first sheet of an XLSX workbook into typed cells
type ExcelDecoder struct {
	gate *capability.Gate
}

// NewExcelDecoder creates a workbook decoder. A nil gate disables the check.
func NewExcelDecoder(gate *capability.Gate) *ExcelDecoder {
	return &ExcelDecoder{gate: gate}
}

// Decode reads the first sheet. Rows are padded to the widest row of the
// sheet and trailing blank rows are dropped.
func (d *ExcelDecoder) Decode(ctx context.Context, data []byte) (model.Grid, error) {
	if d.gate != nil && !d.gate.Ready() {
		return model.Grid{}, &DecodeError{Reason: ReasonCapabilityNotReady, Detail: d.gate.State().String()}
	}
	if len(data) == 0 {
		return model.Grid{}, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return model.Grid{}, &DecodeError{Reason: ReasonCorruptWorkbook, Detail: err.Error(), Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return model.Grid{}, nil
	}
	sheetName := sheets[0]

	raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.Grid{}, &DecodeError{
			Reason: ReasonCorruptWorkbook,
			Detail: fmt.Sprintf("failed to read sheet %s: %s", sheetName, err),
			Err:    err,
		}
	}

	width := 0
	for _, rec := range raw {
		if len(rec) > width {
			width = len(rec)
		}
	}

	reader := &cellReader{
		file:     f,
		sheet:    sheetName,
		date1904: uses1904Epoch(f),
		styles:   make(map[int]bool),
	}

	rows := make([]model.Row, 0, len(raw))
	for r, rec := range raw {
		if err := ctx.Err(); err != nil {
			return model.Grid{}, err
		}

		row := make(model.Row, width)
		for c := 0; c < width; c++ {
			if c >= len(rec) || rec[c] == "" {
				row[c] = model.EmptyCell()
				continue
			}
			cell, err := reader.read(r+1, c+1, rec[c])
			if err != nil {
				return model.Grid{}, &DecodeError{Reason: ReasonCorruptWorkbook, Detail: err.Error(), Row: r + 1, Err: err}
			}
			row[c] = cell
		}
		rows = append(rows, row)
	}

	return model.Grid{Rows: rows}.TrimTrailingBlank(), nil
}

func uses1904Epoch(f *excelize.File) bool {
	props, err := f.GetWorkbookProps()
	if err != nil || props.Date1904 == nil {
		return false
	}
	return *props.Date1904
}

// cellReader types one sheet's cells, caching date detection per style
type cellReader struct {
	file     *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

// read converts the raw value at (row, col), both 1-based
func (c *cellReader) read(row, col int, raw string) (model.Cell, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return model.Cell{}, err
	}

	typ, err := c.file.GetCellType(c.sheet, axis)
	if err != nil {
		return model.Cell{}, fmt.Errorf("cell %s: %w", axis, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return model.TextCell(raw), nil

	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return model.TextCell("TRUE"), nil
		}
		return model.TextCell("FALSE"), nil

	case excelize.CellTypeDate:
		if d, ok := parseISODate(raw); ok {
			return model.DateCell(d.Year, d.Month, d.Day), nil
		}
		return model.TextCell(raw), nil
	}

	// Unset and numeric cells: a number, possibly displayed as a date
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.TextCell(raw), nil
	}

	isDate, err := c.isDateStyled(axis)
	if err != nil {
		return model.Cell{}, fmt.Errorf("cell %s: %w", axis, err)
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(num, c.date1904)
		if err == nil {
			return model.Cell{Kind: model.KindDate, Date: model.DateOf(t)}, nil
		}
	}

	return model.NumberCell(num), nil
}

func (c *cellReader) isDateStyled(axis string) (bool, error) {
	styleID, err := c.file.GetCellStyle(c.sheet, axis)
	if err != nil {
		return false, err
	}
	if cached, ok := c.styles[styleID]; ok {
		return cached, nil
	}

	style, err := c.file.GetStyle(styleID)
	if err != nil {
		return false, err
	}

	isDate := isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	c.styles[styleID] = isDate
	return isDate, nil
}

// builtInDateFormats are the built-in number format ids that render dates.
// Pure time formats (18-21, 45-47) are left as numbers.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true,
	32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true,
	55: true, 56: true, 57: true, 58: true,
}

func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	return builtInDateFormats[id]
}

// isDateFormatCode reports whether a custom number format renders a date.
// Quoted literals, escaped characters and bracketed sections are ignored.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false

	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}

	s := strings.ToLower(b.String())
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}

	if strings.ContainsAny(s, "dy") {
		return true
	}
	// bare m without hours or seconds is a month
	return strings.Contains(s, "m") && !strings.ContainsAny(s, "hs")
}

func parseISODate(raw string) (model.Date, bool) {
	if len(raw) < len("2006-01-02") {
		return model.Date{}, false
	}
	t, err := time.Parse("2006-01-02", raw[:10])
	if err != nil {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// ErrSpreadsheetDisabled is returned by the loader when spreadsheets are turned off
var ErrSpreadsheetDisabled = errors.New("spreadsheet support disabled by configuration")

// SpreadsheetLoader returns a capability loader that round-trips a tiny
// workbook through the excelize codec.
func SpreadsheetLoader(enabled bool) capability.Loader {
	return func(ctx context.Context) error {
		if !enabled {
			return ErrSpreadsheetDisabled
		}
		return checkSpreadsheet(ctx)
	}
}

func checkSpreadsheet(ctx context.Context) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", "ready"); err != nil {
		return fmt.Errorf("failed to write sample workbook: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to encode sample workbook: %w", err)
	}

	grid, err := NewExcelDecoder(nil).Decode(ctx, buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to decode sample workbook: %w", err)
	}
	if grid.Len() != 1 || grid.Rows[0][0].Text != "ready" {
		return errors.New("sample workbook did not round-trip")
	}
	return nil
}

package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/extrame/xls"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/pkg/capability"
)

// LegacyExcelDecoder reads the first sheet of a BIFF (.xls) workbook
type LegacyExcelDecoder struct {
	gate *capability.Gate
}

// NewLegacyExcelDecoder creates a BIFF workbook decoder. A nil gate disables the check.
func NewLegacyExcelDecoder(gate *capability.Gate) *LegacyExcelDecoder {
	return &LegacyExcelDecoder{gate: gate}
}

// Decode reads the first sheet with the same shape rules as ExcelDecoder.
// Date-formatted cells become dates; every other value is kept as text.
func (d *LegacyExcelDecoder) Decode(ctx context.Context, data []byte) (grid model.Grid, err error) {
	if d.gate != nil && !d.gate.Ready() {
		return model.Grid{}, &DecodeError{Reason: ReasonCapabilityNotReady, Detail: d.gate.State().String()}
	}
	if len(data) == 0 {
		return model.Grid{}, nil
	}

	// the BIFF reader panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			grid = model.Grid{}
			err = &DecodeError{Reason: ReasonCorruptWorkbook, Detail: fmt.Sprintf("unreadable xls stream: %v", r)}
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return model.Grid{}, &DecodeError{Reason: ReasonCorruptWorkbook, Detail: err.Error(), Err: err}
	}
	if wb.NumSheets() == 0 {
		return model.Grid{}, nil
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return model.Grid{}, nil
	}

	raw := make([][]string, 0, int(sheet.MaxRow)+1)
	width := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		if err := ctx.Err(); err != nil {
			return model.Grid{}, err
		}

		row := sheet.Row(i)
		if row == nil {
			raw = append(raw, nil)
			continue
		}
		rec := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			rec = append(rec, row.Col(c))
		}
		for len(rec) > 0 && strings.TrimSpace(rec[len(rec)-1]) == "" {
			rec = rec[:len(rec)-1]
		}
		if len(rec) > width {
			width = len(rec)
		}
		raw = append(raw, rec)
	}

	rows := make([]model.Row, 0, len(raw))
	for _, rec := range raw {
		row := make(model.Row, width)
		for c := 0; c < width; c++ {
			if c >= len(rec) {
				row[c] = model.EmptyCell()
				continue
			}
			row[c] = legacyCell(rec[c])
		}
		rows = append(rows, row)
	}

	return model.Grid{Rows: rows}.TrimTrailingBlank(), nil
}

// legacyCell types a rendered BIFF value. The reader renders date-formatted
// numbers as RFC3339 timestamps.
func legacyCell(s string) model.Cell {
	if s == "" {
		return model.EmptyCell()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return model.Cell{Kind: model.KindDate, Date: model.DateOf(t)}
	}
	return model.TextCell(s)
}

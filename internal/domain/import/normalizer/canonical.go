// Package normalizer serializes a decoded grid into the canonical
// comma-separated payload sent to the import endpoint.
package normalizer

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

// Separator and line terminator of the canonical payload
const (
	Separator  = ','
	Terminator = "\n"
)

// needsQuoting lists the characters that force a field to be quoted
const needsQuoting = ",\"\n\r"

// Canonicalize serializes grid as comma-separated text. Lines are joined by
// "\n" without a trailing newline and trailing blank rows are dropped, so
// both decode strategies yield identical text for equivalent data.
func Canonicalize(grid model.Grid) string {
	grid = grid.TrimTrailingBlank()
	if grid.Len() == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range grid.Rows {
		if i > 0 {
			b.WriteString(Terminator)
		}
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, row model.Row) {
	start := b.Len()
	for i, cell := range row {
		if i > 0 {
			b.WriteByte(Separator)
		}
		b.WriteString(EscapeField(FormatCell(cell)))
	}
	// an interior row that serializes to nothing would vanish when re-read
	if b.Len() == start {
		b.WriteString(`""`)
	}
}

// FormatCell renders one cell. Dates use the calendar fields they were
// decoded with so the result never depends on the local time zone. Line
// breaks inside text are written as "\n", the form a CSV reader returns.
func FormatCell(c model.Cell) string {
	switch c.Kind {
	case model.KindText:
		return strings.ReplaceAll(c.Text, "\r\n", "\n")
	case model.KindNumber:
		return FormatNumber(c.Number)
	case model.KindDate:
		return c.Date.String()
	default:
		return ""
	}
}

// FormatNumber renders the shortest decimal form of f: 8 not 8.0, 12.5 not 12.50
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return decimal.NewFromFloat(f).String()
}

// EscapeField quotes s when it contains the separator, a quote or a line
// break. Embedded quotes are doubled.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, needsQuoting) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

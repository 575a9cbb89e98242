// Package model holds the types shared by every stage of the import pipeline:
// uploaded file metadata, the decoded grid, the remote request/response shapes
// and the classified outcome.
package model

import (
	"fmt"
	"time"
)

// Kind identifies the scalar type held by a Cell
type Kind int

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Date is a calendar date without a location. Keeping only the calendar
// fields means formatting never passes through a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar fields of t as seen in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Cell is a single decoded value
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Date   Date
}

// TextCell returns a text cell
func TextCell(s string) Cell {
	return Cell{Kind: KindText, Text: s}
}

// NumberCell returns a numeric cell
func NumberCell(f float64) Cell {
	return Cell{Kind: KindNumber, Number: f}
}

// DateCell returns a date cell from calendar fields
func DateCell(year int, month time.Month, day int) Cell {
	return Cell{Kind: KindDate, Date: Date{Year: year, Month: month, Day: day}}
}

// EmptyCell returns an empty cell
func EmptyCell() Cell {
	return Cell{}
}

// IsBlank reports whether the cell carries no content. Empty text counts as blank.
func (c Cell) IsBlank() bool {
	return c.Kind == KindEmpty || (c.Kind == KindText && c.Text == "")
}

// Row is an ordered sequence of cells
type Row []Cell

// IsBlank reports whether every cell in the row is blank
func (r Row) IsBlank() bool {
	for _, c := range r {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Grid is the decoded 2-D representation shared by both decode strategies.
// The first row is the header by convention; nothing here depends on it.
type Grid struct {
	Rows []Row
}

// TextGrid builds a grid of text cells from raw records
func TextGrid(records [][]string) Grid {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, len(rec))
		for i, v := range rec {
			row[i] = TextCell(v)
		}
		rows = append(rows, row)
	}
	return Grid{Rows: rows}
}

// Len returns the number of rows
func (g Grid) Len() int {
	return len(g.Rows)
}

// Width returns the maximum row length
func (g Grid) Width() int {
	width := 0
	for _, r := range g.Rows {
		if len(r) > width {
			width = len(r)
		}
	}
	return width
}

// TrimTrailingBlank returns the grid without its trailing entirely-blank rows
func (g Grid) TrimTrailingBlank() Grid {
	end := len(g.Rows)
	for end > 0 && g.Rows[end-1].IsBlank() {
		end--
	}
	return Grid{Rows: g.Rows[:end]}
}

// Header returns the first row, or nil for an empty grid
func (g Grid) Header() Row {
	if len(g.Rows) == 0 {
		return nil
	}
	return g.Rows[0]
}

package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// GridGenerator generates realistic billing-schedule grids using gofakeit.
type GridGenerator struct {
	faker *gofakeit.Faker
}

// NewGridGenerator creates a generator with a random seed.
func NewGridGenerator() *GridGenerator {
	return &GridGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewGridGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewGridGeneratorWithSeed(seed int64) *GridGenerator {
	return &GridGenerator{
		faker: gofakeit.New(seed),
	}
}

// ScheduleHeader is the header row used by generated grids
var ScheduleHeader = []string{
	"Employee", "Account", "Month Number", "Start Date", "End Date", "Quantity", "Bill Rate", "Record Type",
}

// ScheduleGrid generates a header plus n billing-schedule rows with mixed cell kinds.
func (g *GridGenerator) ScheduleGrid(n int) Grid {
	rows := make([]Row, 0, n+1)

	header := make(Row, len(ScheduleHeader))
	for i, h := range ScheduleHeader {
		header[i] = TextCell(h)
	}
	rows = append(rows, header)

	for i := 0; i < n; i++ {
		rows = append(rows, g.ScheduleRow())
	}
	return Grid{Rows: rows}
}

// ScheduleRow generates one billing-schedule line item.
func (g *GridGenerator) ScheduleRow() Row {
	start := g.faker.DateRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC),
	)
	end := start.AddDate(0, 1, -1)

	return Row{
		TextCell(g.faker.Name()),
		TextCell(g.AccountName()),
		NumberCell(float64(g.faker.Number(1, 12))),
		DateCell(start.Year(), start.Month(), start.Day()),
		DateCell(end.Year(), end.Month(), end.Day()),
		NumberCell(float64(g.faker.Number(1, 200)) / 4),
		NumberCell(g.faker.Price(20, 250)),
		g.RecordType(),
	}
}

// AccountName returns a company name, sometimes with punctuation that needs quoting.
func (g *GridGenerator) AccountName() string {
	name := g.faker.Company()
	switch g.faker.Number(0, 4) {
	case 0:
		return name + ", S.L."
	case 1:
		return `"` + name + `" Group`
	default:
		return name
	}
}

// RecordType returns one of the schedule record types, or an empty cell.
func (g *GridGenerator) RecordType() Cell {
	types := []string{"Forecast", "Actual", "Adjustment"}
	if g.faker.Number(0, 5) == 0 {
		return EmptyCell()
	}
	return TextCell(types[g.faker.Number(0, len(types)-1)])
}

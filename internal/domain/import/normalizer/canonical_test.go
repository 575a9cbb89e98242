package normalizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
	"github.com/FACorreiaa/schedule-importer/internal/domain/import/parser"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		grid model.Grid
		want string
	}{
		{
			name: "empty grid",
			grid: model.Grid{},
			want: "",
		},
		{
			name: "header and one row",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell("Employee"), model.TextCell("Quantity")},
				{model.TextCell("Ana"), model.NumberCell(8)},
			}},
			want: "Employee,Quantity\nAna,8",
		},
		{
			name: "quotes separators and quotes",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell("Acme, S.L."), model.TextCell(`say "hi"`), model.TextCell("two\nlines")},
			}},
			want: "\"Acme, S.L.\",\"say \"\"hi\"\"\",\"two\nlines\"",
		},
		{
			name: "dates and numbers",
			grid: model.Grid{Rows: []model.Row{
				{model.DateCell(2026, time.January, 5), model.NumberCell(12.5), model.NumberCell(0.1)},
			}},
			want: "2026-01-05,12.5,0.1",
		},
		{
			name: "empty cells keep their position",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell("a"), model.EmptyCell(), model.TextCell("c")},
			}},
			want: "a,,c",
		},
		{
			name: "trailing blank rows dropped",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell("a")},
				{model.EmptyCell(), model.EmptyCell()},
				{model.TextCell("")},
			}},
			want: "a",
		},
		{
			name: "interior empty row is kept",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell("a")},
				{model.EmptyCell()},
				{model.TextCell("b")},
			}},
			want: "a\n\"\"\nb",
		},
		{
			name: "leading spaces are not quoted",
			grid: model.Grid{Rows: []model.Row{
				{model.TextCell(" padded ")},
			}},
			want: " padded ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.grid))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "8", FormatNumber(8))
	assert.Equal(t, "12.5", FormatNumber(12.5))
	assert.Equal(t, "-3.25", FormatNumber(-3.25))
	assert.Equal(t, "0.1", FormatNumber(0.1))
	assert.Equal(t, "100000", FormatNumber(1e5))
	assert.Equal(t, "NaN", FormatNumber(math.NaN()))
}

func TestEscapeField(t *testing.T) {
	assert.Equal(t, "plain", EscapeField("plain"))
	assert.Equal(t, `"a,b"`, EscapeField("a,b"))
	assert.Equal(t, `"a""b"`, EscapeField(`a"b`))
	assert.Equal(t, "\"a\r\nb\"", EscapeField("a\r\nb"))
	assert.Equal(t, "", EscapeField(""))
}

func TestCanonicalize_DateIgnoresLocalZone(t *testing.T) {
	orig := time.Local
	t.Cleanup(func() { time.Local = orig })

	// midnight UTC is the previous evening west of Greenwich
	time.Local = time.FixedZone("UTC-8", -8*60*60)
	utc := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	grid := model.Grid{Rows: []model.Row{{{Kind: model.KindDate, Date: model.DateOf(utc)}}}}
	assert.Equal(t, "2026-01-05", Canonicalize(grid))
}

func TestCanonicalize_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dec := parser.NewCSVDecoder(parser.DefaultConfig())
	gen := model.NewGridGeneratorWithSeed(42)

	for i := 0; i < 20; i++ {
		grid := gen.ScheduleGrid(25)
		first := Canonicalize(grid)

		decoded, err := dec.Decode(ctx, []byte(first))
		require.NoError(t, err)

		assert.Equal(t, first, Canonicalize(decoded), "iteration %d", i)
		assert.Equal(t, grid.TrimTrailingBlank().Len(), decoded.Len())
	}
}

func TestCanonicalize_RoundTripLineBreaks(t *testing.T) {
	grid := model.Grid{Rows: []model.Row{
		{model.TextCell("Note"), model.TextCell("Account")},
		{model.TextCell("line1\r\nline2"), model.TextCell("Acme")},
		{model.TextCell("a\nb"), model.TextCell("x\ry")},
	}}

	first := Canonicalize(grid)
	assert.Equal(t, "Note,Account\n\"line1\nline2\",Acme\n\"a\nb\",\"x\ry\"", first)

	decoded, err := parser.NewCSVDecoder(parser.DefaultConfig()).Decode(context.Background(), []byte(first))
	require.NoError(t, err)
	assert.Equal(t, first, Canonicalize(decoded))
	assert.Equal(t, "line1\nline2", decoded.Rows[1][0].Text)
}

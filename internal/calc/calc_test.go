package calc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gridport/internal/calc"
	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

func numberRecords(col string, values ...any) []extract.Record {
	records := make([]extract.Record, len(values))

	for i, v := range values {
		rec := extract.NewRecord()

		switch v := v.(type) {
		case float64:
			rec.Set(col, grid.NumberCell(v))
		case int:
			rec.Set(col, grid.NumberCell(float64(v)))
		case string:
			rec.Set(col, grid.TextCell(v))
		case nil:
			rec.Set(col, grid.Cell{})
		}

		records[i] = rec
	}

	return records
}

func column(t *testing.T, records []extract.Record, col string) []grid.Cell {
	t.Helper()

	out := make([]grid.Cell, len(records))

	for i, rec := range records {
		cell, ok := rec.Get(col)
		require.True(t, ok, "row %d missing column %s", i, col)
		out[i] = cell
	}

	return out
}

func TestApply_CumulativeSum(t *testing.T) {
	records := numberRecords("value", 10, 20, 5)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "value"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{
		grid.NumberCell(10),
		grid.NumberCell(30),
		grid.NumberCell(35),
	}, column(t, out, "running"))
}

func TestApply_CumulativeSkipsEmptyCells(t *testing.T) {
	records := numberRecords("value", 10, nil, 5)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "value"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{
		grid.NumberCell(10),
		grid.NumberCell(10),
		grid.NumberCell(15),
	}, column(t, out, "running"))
}

func TestApply_RollingAverageShortWindow(t *testing.T) {
	records := numberRecords("value", 10, 20, 30)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "avg", Kind: spec.CalcRolling, Aggregate: spec.AggAverage, Source: "value", Window: 2},
	}, nil, time.Now())
	require.NoError(t, err)

	// The first row's window holds only itself.
	assert.Equal(t, []grid.Cell{
		grid.NumberCell(10),
		grid.NumberCell(15),
		grid.NumberCell(25),
	}, column(t, out, "avg"))
}

func TestApply_RollingMinMax(t *testing.T) {
	records := numberRecords("value", 3, 1, 4, 1, 5)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "lo", Kind: spec.CalcRolling, Aggregate: spec.AggMin, Source: "value", Window: 3},
		{Name: "hi", Kind: spec.CalcRolling, Aggregate: spec.AggMax, Source: "value", Window: 3},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, grid.NumberCell(1), column(t, out, "lo")[4])
	assert.Equal(t, grid.NumberCell(5), column(t, out, "hi")[4])
}

func TestApply_PercentageOfTotal(t *testing.T) {
	records := numberRecords("value", 25, 75)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "share", Kind: spec.CalcPercentage, Mode: spec.PercentOfTotal, Source: "value"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{
		grid.NumberCell(25),
		grid.NumberCell(75),
	}, column(t, out, "share"))
}

func TestApply_PercentageChangeFirstRowNull(t *testing.T) {
	records := numberRecords("value", 100, 150, 120)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "delta", Kind: spec.CalcPercentage, Mode: spec.PercentChange, Source: "value"},
	}, nil, time.Now())
	require.NoError(t, err)

	cells := column(t, out, "delta")
	assert.True(t, cells[0].IsEmpty())
	assert.Equal(t, grid.NumberCell(50), cells[1])
	assert.InDelta(t, -20, cells[2].Number, 1e-9)
}

func TestApply_CustomExpression(t *testing.T) {
	records := []extract.Record{}

	for _, v := range [][2]float64{{10, 3}, {20, 4}} {
		rec := extract.NewRecord()
		rec.Set("price", grid.NumberCell(v[0]))
		rec.Set("qty", grid.NumberCell(v[1]))
		records = append(records, rec)
	}

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "total", Kind: spec.CalcCustom, Expr: "price * qty"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, []grid.Cell{
		grid.NumberCell(30),
		grid.NumberCell(80),
	}, column(t, out, "total"))
}

func TestApply_CustomExpressionUsesKeyValues(t *testing.T) {
	records := numberRecords("value", 100)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "adjusted", Kind: spec.CalcCustom, Expr: "value * rate / 100"},
	}, map[string]grid.Cell{"rate": grid.NumberCell(17)}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, grid.NumberCell(17), column(t, out, "adjusted")[0])
}

func TestApply_CustomExpressionNullPropagates(t *testing.T) {
	records := numberRecords("value", 10, nil)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "double", Kind: spec.CalcCustom, Expr: "value * 2"},
	}, nil, time.Now())
	require.NoError(t, err)

	cells := column(t, out, "double")
	assert.Equal(t, grid.NumberCell(20), cells[0])
	assert.True(t, cells[1].IsEmpty())
}

func TestApply_CustomExpressionDivisionByZero(t *testing.T) {
	records := numberRecords("value", 10)

	_, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "bad", Kind: spec.CalcCustom, Expr: "value / 0"},
	}, nil, time.Now())

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, extract.ErrCalcMismatch, extractErr.Kind)
}

func TestApply_CustomExpressionParseError(t *testing.T) {
	records := numberRecords("value", 10)

	_, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "bad", Kind: spec.CalcCustom, Expr: "value +"},
	}, nil, time.Now())

	var cfgErr *spec.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestApply_NonNumericSourceFails(t *testing.T) {
	records := numberRecords("value", 10, "oops")

	_, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "value"},
	}, nil, time.Now())

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, extract.ErrCalcMismatch, extractErr.Kind)
	assert.Equal(t, 1, extractErr.Row)
}

func TestApply_MissingSourceColumnFails(t *testing.T) {
	records := numberRecords("value", 10)

	_, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "no_such"},
	}, nil, time.Now())
	assert.Error(t, err)
}

func TestApply_CurrentDate(t *testing.T) {
	records := numberRecords("value", 1, 2)
	now := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "loaded_at", Kind: spec.CalcCurrentDate, Format: "02/01/2006"},
	}, nil, now)
	require.NoError(t, err)

	assert.Equal(t, grid.TextCell("01/06/2024"), column(t, out, "loaded_at")[0])
	assert.Equal(t, grid.TextCell("01/06/2024"), column(t, out, "loaded_at")[1])
}

func TestApply_PlacementFirstAndLastRow(t *testing.T) {
	records := numberRecords("value", 1, 2, 3)
	now := time.Now()

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "first", Kind: spec.CalcCurrentDate, Placement: spec.PlaceFirstRow},
		{Name: "last", Kind: spec.CalcCurrentDate, Placement: spec.PlaceLastRow},
	}, nil, now)
	require.NoError(t, err)

	first := column(t, out, "first")
	assert.False(t, first[0].IsEmpty())
	assert.True(t, first[1].IsEmpty())
	assert.True(t, first[2].IsEmpty())

	last := column(t, out, "last")
	assert.True(t, last[0].IsEmpty())
	assert.True(t, last[1].IsEmpty())
	assert.False(t, last[2].IsEmpty())
}

func TestApply_LaterColumnSeesEarlierOne(t *testing.T) {
	records := numberRecords("value", 10, 20)

	out, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "value"},
		{Name: "double_running", Kind: spec.CalcCustom, Expr: "running * 2"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, grid.NumberCell(60), column(t, out, "double_running")[1])
}

func TestIdentifiers(t *testing.T) {
	assert.ElementsMatch(t, []string{"price", "qty", "vat rate"},
		calc.Identifiers("price * qty * (1 + `vat rate` / 100)"))
	assert.Empty(t, calc.Identifiers("1 + 2"))
	assert.Nil(t, calc.Identifiers("broken +"))
}

func TestApply_NonASCIIIdentifierUnquoted(t *testing.T) {
	rec := extract.NewRecord()
	rec.Set("ערך", grid.NumberCell(10))

	out, err := calc.Apply("t", []extract.Record{rec}, []spec.CalculatedColumnSpec{
		{Name: "doubled", Kind: spec.CalcCustom, Expr: "ערך * 2"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, grid.NumberCell(20), column(t, out, "doubled")[0])
	assert.Equal(t, []string{"ערך"}, calc.Identifiers("ערך + 1"))
}

func TestApply_QuotedIdentifierInExpression(t *testing.T) {
	rec := extract.NewRecord()
	rec.Set("net value", grid.NumberCell(100))

	out, err := calc.Apply("t", []extract.Record{rec}, []spec.CalculatedColumnSpec{
		{Name: "gross", Kind: spec.CalcCustom, Expr: "`net value` * 1.23"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.InDelta(t, 123, column(t, out, "gross")[0].Number, 1e-9)
}

func TestApply_InputRecordsUntouched(t *testing.T) {
	records := numberRecords("value", 10)

	_, err := calc.Apply("t", records, []spec.CalculatedColumnSpec{
		{Name: "running", Kind: spec.CalcCumulative, Aggregate: spec.AggSum, Source: "value"},
	}, nil, time.Now())
	require.NoError(t, err)

	assert.False(t, records[0].Has("running"))
}

package calc

import (
	"time"

	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// Apply appends every declared calculated column to the table's records and
// returns augmented clones; the input records are not modified. Columns are
// applied in declaration order, so a later column may reference an earlier
// one in a custom expression. keyValues holds the sheet's extracted
// key-values for custom expressions.
//
// Aggregates skip empty cells. A populated non-numeric cell in a numeric
// source is a type mismatch error for the whole table.
func Apply(table string, records []extract.Record, specs []spec.CalculatedColumnSpec, keyValues map[string]grid.Cell, now time.Time) ([]extract.Record, error) {
	out := make([]extract.Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}

	for _, cs := range specs {
		var (
			values []grid.Cell
			err    error
		)

		switch cs.Kind {
		case spec.CalcCumulative:
			values, err = cumulative(table, out, cs)
		case spec.CalcRolling:
			values, err = rolling(table, out, cs)
		case spec.CalcPercentage:
			values, err = percentage(table, out, cs)
		case spec.CalcCustom:
			values, err = custom(table, out, cs, keyValues)
		case spec.CalcCurrentDate:
			values = currentDate(out, cs, now)
		default:
			return nil, &spec.ConfigError{Table: table, Detail: "unknown calculated column kind " + string(cs.Kind)}
		}

		if err != nil {
			return nil, err
		}

		placed := place(values, cs.Placement)

		for i := range out {
			out[i].Set(cs.Name, placed[i])
		}
	}

	return out, nil
}

// place masks values per the column's placement: first_row and last_row keep
// only that row's value, every other row stays empty.
func place(values []grid.Cell, p spec.Placement) []grid.Cell {
	if p == "" || p == spec.PlaceAllRows || len(values) == 0 {
		return values
	}

	keep := 0
	if p == spec.PlaceLastRow {
		keep = len(values) - 1
	}

	out := make([]grid.Cell, len(values))
	out[keep] = values[keep]

	return out
}

// sourceColumn reads the numeric source column. present[i] is false for
// empty cells, which aggregates skip.
func sourceColumn(table string, records []extract.Record, cs spec.CalculatedColumnSpec) ([]float64, []bool, error) {
	nums := make([]float64, len(records))
	present := make([]bool, len(records))

	for i, rec := range records {
		cell, ok := rec.Get(cs.Source)
		if !ok {
			return nil, nil, &extract.Error{
				Kind:   extract.ErrCalcMismatch,
				Table:  table,
				Column: cs.Name,
				Row:    i,
				Col:    -1,
				Detail: "source column " + cs.Source + " does not exist",
			}
		}

		if cell.IsEmpty() {
			continue
		}

		if cell.Kind != grid.Number {
			return nil, nil, &extract.Error{
				Kind:   extract.ErrCalcMismatch,
				Table:  table,
				Column: cs.Name,
				Row:    i,
				Col:    -1,
				Detail: "source column " + cs.Source + " holds " + cell.Kind.String() + " value " + cell.String(),
			}
		}

		nums[i] = cell.Number
		present[i] = true
	}

	return nums, present, nil
}

func cumulative(table string, records []extract.Record, cs spec.CalculatedColumnSpec) ([]grid.Cell, error) {
	nums, present, err := sourceColumn(table, records, cs)
	if err != nil {
		return nil, err
	}

	values := make([]grid.Cell, len(records))

	var window []float64

	for i := range records {
		if present[i] {
			window = append(window, nums[i])
		}

		values[i] = aggregate(cs.Aggregate, window)
	}

	return values, nil
}

func rolling(table string, records []extract.Record, cs spec.CalculatedColumnSpec) ([]grid.Cell, error) {
	nums, present, err := sourceColumn(table, records, cs)
	if err != nil {
		return nil, err
	}

	values := make([]grid.Cell, len(records))

	for i := range records {
		// Trailing window over rows, shorter at the start of the table.
		start := i - cs.Window + 1
		if start < 0 {
			start = 0
		}

		var window []float64

		for j := start; j <= i; j++ {
			if present[j] {
				window = append(window, nums[j])
			}
		}

		values[i] = aggregate(cs.Aggregate, window)
	}

	return values, nil
}

// aggregate reduces a window of values. An empty window yields an empty
// cell, except count which is zero.
func aggregate(agg spec.Aggregate, window []float64) grid.Cell {
	if agg == spec.AggCount {
		return grid.NumberCell(float64(len(window)))
	}

	if len(window) == 0 {
		return grid.Cell{}
	}

	switch agg {
	case spec.AggSum, spec.AggAverage:
		sum := 0.0
		for _, v := range window {
			sum += v
		}

		if agg == spec.AggAverage {
			return grid.NumberCell(sum / float64(len(window)))
		}

		return grid.NumberCell(sum)

	case spec.AggMin:
		min := window[0]
		for _, v := range window[1:] {
			if v < min {
				min = v
			}
		}

		return grid.NumberCell(min)

	case spec.AggMax:
		max := window[0]
		for _, v := range window[1:] {
			if v > max {
				max = v
			}
		}

		return grid.NumberCell(max)
	}

	return grid.Cell{}
}

func percentage(table string, records []extract.Record, cs spec.CalculatedColumnSpec) ([]grid.Cell, error) {
	nums, present, err := sourceColumn(table, records, cs)
	if err != nil {
		return nil, err
	}

	values := make([]grid.Cell, len(records))

	switch cs.Mode {
	case spec.PercentOfTotal:
		total := 0.0
		for i := range nums {
			if present[i] {
				total += nums[i]
			}
		}

		if total == 0 {
			return nil, &extract.Error{
				Kind: extract.ErrCalcMismatch, Table: table, Column: cs.Name, Row: -1, Col: -1,
				Detail: "column total of " + cs.Source + " is zero",
			}
		}

		for i := range nums {
			if present[i] {
				values[i] = grid.NumberCell(nums[i] / total * 100)
			}
		}

	case spec.PercentChange:
		// First row has no predecessor and stays null.
		for i := 1; i < len(nums); i++ {
			if !present[i] || !present[i-1] {
				continue
			}

			if nums[i-1] == 0 {
				return nil, &extract.Error{
					Kind: extract.ErrCalcMismatch, Table: table, Column: cs.Name, Row: i, Col: -1,
					Detail: "previous row value is zero",
				}
			}

			values[i] = grid.NumberCell((nums[i] - nums[i-1]) / nums[i-1] * 100)
		}
	}

	return values, nil
}

func custom(table string, records []extract.Record, cs spec.CalculatedColumnSpec, keyValues map[string]grid.Cell) ([]grid.Cell, error) {
	node, err := parseExpr(cs.Expr)
	if err != nil {
		return nil, &spec.ConfigError{Table: table, Detail: "calculated column " + cs.Name + ": " + err.Error()}
	}

	values := make([]grid.Cell, len(records))

	for i, rec := range records {
		env := func(name string) (float64, bool, error) {
			// Row columns shadow sheet key-values of the same name.
			cell, ok := rec.Get(name)
			if !ok {
				cell, ok = keyValues[name]
			}

			if !ok {
				return 0, false, &extract.Error{
					Kind: extract.ErrCalcMismatch, Table: table, Column: cs.Name, Row: i, Col: -1,
					Detail: "unknown identifier " + name,
				}
			}

			if cell.IsEmpty() {
				return 0, false, nil
			}

			if cell.Kind != grid.Number {
				return 0, false, &extract.Error{
					Kind: extract.ErrCalcMismatch, Table: table, Column: cs.Name, Row: i, Col: -1,
					Detail: name + " holds " + cell.Kind.String() + " value " + cell.String(),
				}
			}

			return cell.Number, true, nil
		}

		v, ok, err := node.eval(env)
		if err != nil {
			if _, isExtract := err.(*extract.Error); isExtract {
				return nil, err
			}

			return nil, &extract.Error{
				Kind: extract.ErrCalcMismatch, Table: table, Column: cs.Name, Row: i, Col: -1,
				Detail: err.Error(),
			}
		}

		if ok {
			values[i] = grid.NumberCell(v)
		}
	}

	return values, nil
}

func currentDate(records []extract.Record, cs spec.CalculatedColumnSpec, now time.Time) []grid.Cell {
	var cell grid.Cell
	if cs.Format != "" {
		cell = grid.TextCell(now.Format(cs.Format))
	} else {
		cell = grid.DateCell(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
	}

	values := make([]grid.Cell, len(records))
	for i := range values {
		values[i] = cell
	}

	return values
}

package extract

import (
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

const (
	defaultSearchRows = 50
	defaultSearchCols = 20
)

// KeyValue resolves a single named value from the grid, either by direct
// coordinates or by scanning for a title within the spec's search window
// (the value sits immediately right of the title cell). The result is
// re-emitted through the spec's date format when one is declared.
func KeyValue(g *grid.Grid, s spec.KeyValueSpec) (grid.Cell, error) {
	cell, err := resolveKeyValue(g, s)
	if err != nil {
		return grid.Cell{}, err
	}

	return formatKeyValue(cell, s), nil
}

func resolveKeyValue(g *grid.Grid, s spec.KeyValueSpec) (grid.Cell, error) {
	if s.Row != nil && s.Col != nil {
		cell, ok := g.At(*s.Row, *s.Col)
		if !ok {
			return grid.Cell{}, newError(ErrMissingCell, s.Name, *s.Row, *s.Col,
				"cell outside grid of %dx%d", g.Rows(), g.Cols())
		}

		return cell, nil
	}

	rows := s.SearchRows
	if rows <= 0 {
		rows = defaultSearchRows
	}

	cols := s.SearchCols
	if cols <= 0 {
		cols = defaultSearchCols
	}

	want := strings.TrimSpace(s.Title)

	for r := 0; r < rows && r < g.Rows(); r++ {
		for c := 0; c < cols && c < g.Cols(); c++ {
			cell, _ := g.At(r, c)
			if cell.Kind == grid.Text && strings.TrimSpace(cell.Text) == want {
				value, _ := g.At(r, c+1)
				return value, nil
			}
		}
	}

	return grid.Cell{}, newError(ErrTitleNotFound, s.Name, -1, -1,
		"title %q not found in %dx%d search window", s.Title, rows, cols)
}

// formatKeyValue applies the declared date format. Values that are not
// dates, and text that does not parse as a date, pass through unchanged.
func formatKeyValue(cell grid.Cell, s spec.KeyValueSpec) grid.Cell {
	if s.DateFormat == "" {
		return cell
	}

	switch cell.Kind {
	case grid.Date:
		return grid.TextCell(cell.Date.Format(s.DateFormat))
	case grid.Text:
		if t, ok := grid.ParseDate(cell.Text); ok {
			return grid.TextCell(t.Format(s.DateFormat))
		}
	}

	return cell
}

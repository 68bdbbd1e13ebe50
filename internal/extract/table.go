package extract

import (
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// Table reads a header-delimited table into records. The header row is
// located by title search or fixed offset; data rows run from the row below
// the header until a blank row, the sheet boundary, or the declared row
// limit. Zero data rows is a valid, empty table.
func Table(g *grid.Grid, s spec.TableSpec) ([]Record, error) {
	headerRow, startCol, err := locateHeader(g, s)
	if err != nil {
		return nil, err
	}

	cols := selectColumns(g, s, headerRow, startCol)
	if len(cols) == 0 {
		return nil, newError(ErrTableNotFound, s.Table, headerRow, -1, "header row has no columns")
	}

	names := headerNames(g, s, headerRow, cols)

	return readRows(g, headerRow+1, cols, names, s.MinValues, s.MaxRows), nil
}

// locateHeader returns the header row index and the column where the title
// matched (0 for fixed header rows).
func locateHeader(g *grid.Grid, s spec.TableSpec) (int, int, error) {
	if s.HeaderRow != nil {
		if *s.HeaderRow >= g.Rows() {
			return 0, 0, newError(ErrTableNotFound, s.Table, *s.HeaderRow, -1,
				"fixed header row outside grid of %d rows", g.Rows())
		}

		return *s.HeaderRow, 0, nil
	}

	offset := s.HeaderOffset
	if offset == 0 {
		offset = 1
	}

	limit := s.SearchRows
	if limit <= 0 || limit > g.Rows() {
		limit = g.Rows()
	}

	want := strings.TrimSpace(s.Title)

	for r := 0; r < limit; r++ {
		for c := 0; c < g.Cols(); c++ {
			cell, _ := g.At(r, c)
			if cell.Kind == grid.Text && strings.TrimSpace(cell.Text) == want {
				header := r + offset
				if header >= g.Rows() {
					return 0, 0, newError(ErrTableNotFound, s.Table, r, c,
						"title matched but header row %d is outside the grid", header)
				}

				return header, c, nil
			}
		}
	}

	return 0, 0, newError(ErrTableNotFound, s.Table, -1, -1, "no row matches title %q", s.Title)
}

// selectColumns picks the grid column indices the table occupies.
func selectColumns(g *grid.Grid, s spec.TableSpec, headerRow, startCol int) []int {
	if s.ColCount > 0 {
		start := startCol

		if s.FromEnd {
			// Count the populated header cells from the title position and
			// take the trailing ColCount of them.
			total := 0

			for c := startCol; c < g.Cols(); c++ {
				if cell, _ := g.At(headerRow, c); !cell.IsEmpty() {
					total++
				}
			}

			start = startCol + total - s.ColCount
			if start < startCol {
				start = startCol
			}
		}

		cols := make([]int, 0, s.ColCount)
		for c := start; c < start+s.ColCount && c < g.Cols(); c++ {
			cols = append(cols, c)
		}

		return cols
	}

	// Autodetect: every populated header cell.
	var cols []int

	for c := 0; c < g.Cols(); c++ {
		if cell, _ := g.At(headerRow, c); !cell.IsEmpty() {
			cols = append(cols, c)
		}
	}

	return cols
}

// headerNames resolves output column names: the header cell text, a
// positional fallback for blank header cells, declared renames applied on
// top, and duplicates disambiguated with a numeric suffix.
func headerNames(g *grid.Grid, s spec.TableSpec, headerRow int, cols []int) []string {
	names := make([]string, len(cols))

	for i, c := range cols {
		cell, _ := g.At(headerRow, c)

		name := strings.TrimSpace(cell.String())
		if name == "" {
			name = fmt.Sprintf("column_%d", c+1)
		}

		names[i] = name
	}

	for i, rename := range s.Headers {
		if i >= len(names) {
			break
		}

		if rename != "" {
			names[i] = rename
		}
	}

	return uniqueNames(names)
}

func uniqueNames(names []string) []string {
	seen := make(map[string]int, len(names))

	for i, name := range names {
		seen[name]++
		if n := seen[name]; n > 1 {
			names[i] = fmt.Sprintf("%s_%d", name, n)
		}
	}

	return names
}

// readRows reads consecutive data rows until a terminating condition.
// A row terminates the table when fewer than minValues of its selected
// cells are populated (blank row with the default of 1).
func readRows(g *grid.Grid, firstRow int, cols []int, names []string, minValues, maxRows int) []Record {
	if minValues <= 0 {
		minValues = 1
	}

	records := []Record{}

	for r := firstRow; r < g.Rows(); r++ {
		if maxRows > 0 && len(records) >= maxRows {
			break
		}

		populated := 0

		for _, c := range cols {
			if cell, _ := g.At(r, c); !cell.IsEmpty() {
				populated++
			}
		}

		if populated < minValues {
			break
		}

		rec := NewRecord()

		for i, c := range cols {
			cell, _ := g.At(r, c)
			rec.Set(names[i], cell)
		}

		records = append(records, rec)
	}

	return records
}

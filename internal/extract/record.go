// Package extract pulls key-values and tables out of worksheet grids
// according to the declarative spec. Extractors are pure reads over an
// immutable grid; all failures carry enough location context to be
// actionable without re-running the pipeline.
package extract

import "github.com/MrJamesThe3rd/gridport/internal/grid"

// Record is one logical output row: an ordered mapping from column name to
// typed cell value. Column order is significant and follows the source
// header (or declared header list), with merged and calculated columns
// appended in the order they were added.
type Record struct {
	cols []string
	vals map[string]grid.Cell
}

// NewRecord returns an empty record.
func NewRecord() Record {
	return Record{vals: make(map[string]grid.Cell)}
}

// Set stores a value, appending the column on first sight.
func (r *Record) Set(col string, v grid.Cell) {
	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}

	r.vals[col] = v
}

// Get returns the value for a column and whether the column exists.
func (r Record) Get(col string) (grid.Cell, bool) {
	v, ok := r.vals[col]
	return v, ok
}

// Has reports whether the record carries the column.
func (r Record) Has(col string) bool {
	_, ok := r.vals[col]
	return ok
}

// Columns returns the column names in order. The caller must not mutate the
// returned slice.
func (r Record) Columns() []string {
	return r.cols
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.cols)
}

// Clone returns an independent copy. Calculated-column passes augment clones
// so earlier passes keep seeing the pre-calculation state.
func (r Record) Clone() Record {
	out := Record{
		cols: make([]string, len(r.cols)),
		vals: make(map[string]grid.Cell, len(r.vals)),
	}

	copy(out.cols, r.cols)

	for k, v := range r.vals {
		out.vals[k] = v
	}

	return out
}

// Rename rewrites column names positionally. Extra names are ignored,
// columns beyond the rename list keep their current name.
func (r *Record) Rename(names []string) {
	for i, name := range names {
		if i >= len(r.cols) || name == "" || name == r.cols[i] {
			continue
		}

		old := r.cols[i]
		if _, taken := r.vals[name]; taken {
			continue
		}

		r.vals[name] = r.vals[old]
		delete(r.vals, old)
		r.cols[i] = name
	}
}

package extract

import (
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// NoTitleTable reads a headerless block at fixed coordinates. Column names
// and optional value types come from the spec; the block is as wide as the
// declared header list and runs until a blank row or the declared limit.
func NoTitleTable(g *grid.Grid, s spec.NoTitleTableSpec) ([]Record, error) {
	width := len(s.Headers)

	excluded := make(map[string]bool, len(s.Exclude))
	for _, name := range s.Exclude {
		excluded[name] = true
	}

	minValues := s.MinValues
	if minValues <= 0 {
		minValues = 1
	}

	records := []Record{}

	for r := s.StartRow; r < g.Rows(); r++ {
		if s.MaxRows > 0 && len(records) >= s.MaxRows {
			break
		}

		populated := 0

		for i := 0; i < width; i++ {
			if cell, _ := g.At(r, s.StartCol+i); !cell.IsEmpty() {
				populated++
			}
		}

		if populated < minValues {
			break
		}

		rec := NewRecord()

		for i := 0; i < width; i++ {
			name := s.Headers[i]
			if excluded[name] {
				continue
			}

			cell, _ := g.At(r, s.StartCol+i)

			if i < len(s.Types) {
				coerced, err := coerce(cell, s.Types[i])
				if err != nil {
					return nil, &Error{
						Kind:   ErrTypeCoercion,
						Table:  s.Name,
						Column: name,
						Row:    r,
						Col:    s.StartCol + i,
						Detail: err.Error(),
					}
				}

				cell = coerced
			}

			rec.Set(name, cell)
		}

		records = append(records, rec)
	}

	return records, nil
}

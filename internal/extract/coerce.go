package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// coerce converts a cell to the declared value type. Empty cells pass
// through untouched; a populated cell that cannot represent the target type
// is an error rather than a silent null.
func coerce(c grid.Cell, t spec.ValueType) (grid.Cell, error) {
	if t == spec.TypeAny || c.IsEmpty() {
		return c, nil
	}

	switch t {
	case spec.TypeText:
		return grid.TextCell(c.String()), nil

	case spec.TypeNumber:
		switch c.Kind {
		case grid.Number:
			return c, nil
		case grid.Text:
			if v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(c.Text), ",", ""), 64); err == nil {
				return grid.NumberCell(v), nil
			}
		}

		return grid.Cell{}, fmt.Errorf("%s value %q is not a number", c.Kind, c.String())

	case spec.TypeBool:
		switch c.Kind {
		case grid.Bool:
			return c, nil
		case grid.Text:
			switch strings.ToLower(strings.TrimSpace(c.Text)) {
			case "true":
				return grid.BoolCell(true), nil
			case "false":
				return grid.BoolCell(false), nil
			}
		}

		return grid.Cell{}, fmt.Errorf("%s value %q is not a bool", c.Kind, c.String())

	case spec.TypeDate:
		switch c.Kind {
		case grid.Date:
			return c, nil
		case grid.Text:
			if d, ok := grid.ParseDate(c.Text); ok {
				return grid.DateCell(d), nil
			}
		}

		return grid.Cell{}, fmt.Errorf("%s value %q is not a date", c.Kind, c.String())
	}

	return grid.Cell{}, fmt.Errorf("unknown value type %q", t)
}

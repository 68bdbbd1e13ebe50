// Package grid models a worksheet as an immutable two-dimensional array of
// typed cells addressed by zero-based (row, column).
package grid

import (
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the value held by a Cell.
type Kind int

const (
	Empty Kind = iota
	Text
	Number
	Bool
	Date
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Date:
		return "date"
	}

	return "unknown"
}

// Cell is a single typed worksheet value. Only the field matching Kind is
// meaningful.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
	Date   time.Time
}

func TextCell(s string) Cell    { return Cell{Kind: Text, Text: s} }
func NumberCell(v float64) Cell { return Cell{Kind: Number, Number: v} }
func BoolCell(b bool) Cell      { return Cell{Kind: Bool, Bool: b} }
func DateCell(t time.Time) Cell { return Cell{Kind: Date, Date: t} }

// IsEmpty reports whether the cell holds no value. Whitespace-only text
// counts as empty, matching how blank worksheet cells round-trip through
// file readers.
func (c Cell) IsEmpty() bool {
	return c.Kind == Empty || (c.Kind == Text && strings.TrimSpace(c.Text) == "")
}

// String renders the cell for display and CSV export.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(c.Bool)
	case Date:
		return c.Date.Format(time.DateOnly)
	}

	return ""
}

// Grid is an immutable worksheet snapshot. The zero value is an empty grid.
type Grid struct {
	rows [][]Cell
	cols int
}

// New builds a Grid from rows. The slice is owned by the grid afterwards.
func New(rows [][]Cell) *Grid {
	cols := 0

	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	return &Grid{rows: rows, cols: cols}
}

// Rows returns the number of rows in the grid.
func (g *Grid) Rows() int {
	return len(g.rows)
}

// Cols returns the width of the widest row.
func (g *Grid) Cols() int {
	return g.cols
}

// At returns the cell at (row, col) and whether the coordinate lies inside
// the grid. Cells beyond a short row are in bounds and empty, so ragged
// source rows read uniformly.
func (g *Grid) At(row, col int) (Cell, bool) {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= g.cols {
		return Cell{}, false
	}

	if col >= len(g.rows[row]) {
		return Cell{}, true
	}

	return g.rows[row][col], true
}

// Row returns the cells of one row, or nil if out of bounds.
func (g *Grid) Row(row int) []Cell {
	if row < 0 || row >= len(g.rows) {
		return nil
	}

	return g.rows[row]
}

// RowEmpty reports whether every cell in the row is empty.
func (g *Grid) RowEmpty(row int) bool {
	for _, c := range g.Row(row) {
		if !c.IsEmpty() {
			return false
		}
	}

	return true
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

// ParseDate tries the known worksheet date layouts against a string.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// Parse converts a raw string from a file reader into a typed cell.
// Numbers and booleans are recognized before dates so "2006" stays numeric.
func Parse(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}

	if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return NumberCell(v)
	}

	switch strings.ToLower(s) {
	case "true":
		return BoolCell(true)
	case "false":
		return BoolCell(false)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateCell(t)
		}
	}

	return TextCell(s)
}

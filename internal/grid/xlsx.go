package grid

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX opens a workbook and snapshots every sheet into a Grid, keyed by
// sheet name. Cell values come back from excelize as formatted strings and
// are re-typed via Parse.
func LoadXLSX(path string) (map[string]*Grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]*Grid)

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}

		cells := make([][]Cell, len(rows))

		for r, row := range rows {
			cells[r] = make([]Cell, len(row))

			for c, raw := range row {
				cells[r][c] = Parse(raw)
			}
		}

		sheets[name] = New(cells)
	}

	return sheets, nil
}

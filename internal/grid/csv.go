package grid

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	enc "github.com/MrJamesThe3rd/gridport/internal/encoding"
)

// LoadCSV reads a single-table CSV source into a Grid. The sheet name the
// grid is registered under comes from the caller's extraction spec, since a
// CSV file has no sheet of its own. Legacy encodings are decoded via charset
// detection before parsing.
func LoadCSV(r io.Reader) (*Grid, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cells := make([][]Cell, len(rows))

	for r, row := range rows {
		cells[r] = make([]Cell, len(row))

		for c, raw := range row {
			cells[r][c] = Parse(raw)
		}
	}

	return New(cells), nil
}

// LoadCSVFile is a convenience wrapper over LoadCSV for on-disk sources.
func LoadCSVFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

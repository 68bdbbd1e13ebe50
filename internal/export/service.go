// Package export writes assembled tables as CSV files next to the database
// load, for consumers that want the flat files instead of SQL access.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/encoding"
	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/schema"
)

// Service writes table exports into one output directory.
type Service struct {
	outputDir string
}

func NewService(outputDir string) *Service {
	return &Service{outputDir: outputDir}
}

// WriteCSV renders the table to <file>__<sheet>__<table>.csv in the output
// directory and returns the written path. The file starts with a UTF-8 BOM
// so spreadsheet tools open non-ASCII content correctly.
func (s *Service) WriteCSV(fileName, sheetName string, desc schema.Descriptor, records []extract.Record) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := fmt.Sprintf("%s__%s__%s.csv",
		safeName(fileName), safeName(sheetName), safeName(desc.Table))
	path := filepath.Join(s.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(encoding.NewBOMWriter(f))

	header := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		header[i] = col.Name
	}

	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(desc.Columns))

	for _, rec := range records {
		for i, col := range desc.Columns {
			cell, _ := rec.Get(col.Source)
			row[i] = cell.String()
		}

		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing export: %w", err)
	}

	return path, nil
}

// safeName keeps path components free of separators and shell surprises.
func safeName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, name)
}

// Package assemble turns raw extracted rows into final table records:
// merging sheet key-values into table columns and collapsing duplicate
// primary keys.
package assemble

import (
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// KeyValue is an extracted sheet value destined for table columns.
type KeyValue struct {
	Name      string
	Cell      grid.Cell
	Placement spec.Placement
}

// Merge appends each key-value as a column on every record, populated on
// the rows its placement selects and empty elsewhere so the column set
// stays uniform. Records are modified in place and returned for chaining.
// A key-value with placement none is skipped entirely.
func Merge(records []extract.Record, values []KeyValue) []extract.Record {
	if len(records) == 0 {
		return records
	}

	for _, kv := range values {
		if kv.Placement == spec.PlaceNone {
			continue
		}

		for i := range records {
			records[i].Set(kv.Name, placedCell(kv, i, len(records)))
		}
	}

	return records
}

func placedCell(kv KeyValue, row, total int) grid.Cell {
	switch kv.Placement {
	case spec.PlaceFirstRow:
		if row != 0 {
			return grid.Cell{}
		}
	case spec.PlaceLastRow:
		if row != total-1 {
			return grid.Cell{}
		}
	}

	return kv.Cell
}

// Dedupe collapses records sharing a primary key. The survivor keeps the
// position of the first occurrence and the content of the last, so a later
// correction row wins without reordering the table. The input slice is
// reused for the result. Deduplication is idempotent; with no primary keys
// the records pass through unchanged.
func Dedupe(table string, records []extract.Record, primaryKeys []string) ([]extract.Record, error) {
	if len(primaryKeys) == 0 || len(records) == 0 {
		return records, nil
	}

	index := make(map[string]int, len(records))
	out := records[:0]

	for _, rec := range records {
		key, err := recordKey(table, rec, primaryKeys)
		if err != nil {
			return nil, err
		}

		if at, seen := index[key]; seen {
			out[at] = rec
			continue
		}

		index[key] = len(out)
		out = append(out, rec)
	}

	return out, nil
}

// recordKey builds the dedup key from the primary key cells. Kind is part
// of the key so the text "1" and the number 1 stay distinct rows.
func recordKey(table string, rec extract.Record, primaryKeys []string) (string, error) {
	var b strings.Builder

	for _, pk := range primaryKeys {
		cell, ok := rec.Get(pk)
		if !ok {
			return "", &spec.ConfigError{
				Table:  table,
				Detail: "primary key column " + pk + " not present in extracted records",
			}
		}

		b.WriteString(cell.Kind.String())
		b.WriteByte(':')
		b.WriteString(cell.String())
		b.WriteByte('\x1f')
	}

	return b.String(), nil
}

// Package schema derives a relational table shape from extracted records:
// the narrowest column type that fits every observed value, sanitized
// database identifiers, and the primary key set.
package schema

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// ColumnType is the inferred storage type of one column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeFloat   ColumnType = "float"
	TypeBool    ColumnType = "bool"
	TypeDate    ColumnType = "date"
)

// SQLType returns the Postgres type for the column.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger:
		return "bigint"
	case TypeFloat:
		return "double precision"
	case TypeBool:
		return "boolean"
	case TypeDate:
		return "date"
	}

	return "text"
}

// Column maps a record column to its database identity.
type Column struct {
	// Name is the sanitized database identifier.
	Name string
	// Source is the record column the values come from.
	Source string
	Type   ColumnType
}

// Descriptor is the derived shape of one destination table.
type Descriptor struct {
	Table       string
	Columns     []Column
	PrimaryKeys []string // sanitized, subset of Columns
}

// Column returns the column with the given sanitized name.
func (d Descriptor) Column(name string) (Column, bool) {
	for _, col := range d.Columns {
		if col.Name == name {
			return col, true
		}
	}

	return Column{}, false
}

// Synthesize infers the table shape from records. Column order follows
// first appearance across records. Every primary key must resolve to a
// column, otherwise the configuration is at fault and the error is fatal.
func Synthesize(table string, primaryKeys []string, records []extract.Record) (Descriptor, error) {
	sources := columnOrder(records)

	desc := Descriptor{
		Table:   SanitizeIdentifier(table),
		Columns: make([]Column, 0, len(sources)),
	}

	taken := make(map[string]bool, len(sources))

	for _, src := range sources {
		name := SanitizeIdentifier(src)
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", SanitizeIdentifier(src), n)
		}

		taken[name] = true

		desc.Columns = append(desc.Columns, Column{
			Name:   name,
			Source: src,
			Type:   inferType(records, src),
		})
	}

	for _, pk := range primaryKeys {
		name := SanitizeIdentifier(pk)
		if _, ok := desc.Column(name); !ok {
			return Descriptor{}, &spec.ConfigError{
				Table:  table,
				Detail: "primary key " + pk + " does not match any extracted column",
			}
		}

		desc.PrimaryKeys = append(desc.PrimaryKeys, name)
	}

	return desc, nil
}

func columnOrder(records []extract.Record) []string {
	var order []string

	seen := make(map[string]bool)

	for _, rec := range records {
		for _, col := range rec.Columns() {
			if !seen[col] {
				seen[col] = true
				order = append(order, col)
			}
		}
	}

	return order
}

// inferType returns the narrowest type that fits every populated cell of
// the column. Mixed kinds and all-empty columns fall back to text.
func inferType(records []extract.Record, source string) ColumnType {
	var (
		kind     grid.Kind
		sawValue bool
		integral = true
	)

	for _, rec := range records {
		cell, ok := rec.Get(source)
		if !ok || cell.IsEmpty() {
			continue
		}

		if !sawValue {
			kind = cell.Kind
			sawValue = true
		} else if cell.Kind != kind {
			return TypeText
		}

		if cell.Kind == grid.Number && cell.Number != math.Trunc(cell.Number) {
			integral = false
		}
	}

	if !sawValue {
		return TypeText
	}

	switch kind {
	case grid.Number:
		if integral {
			return TypeInteger
		}

		return TypeFloat
	case grid.Bool:
		return TypeBool
	case grid.Date:
		return TypeDate
	}

	return TypeText
}

// SanitizeIdentifier lowers a name into a safe database identifier: spaces
// and dashes become underscores, letters and digits of any script are kept
// (the store quotes every identifier, and Postgres accepts Unicode names),
// ASCII punctuation is dropped, and a leading digit gets an underscore
// prefix.
func SanitizeIdentifier(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}

	out := b.String()
	if out == "" {
		return "_"
	}

	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}

	return out
}

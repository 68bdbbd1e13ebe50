package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/schema"
)

func TestWiden(t *testing.T) {
	cases := []struct {
		have, want, result schema.ColumnType
	}{
		{schema.TypeInteger, schema.TypeInteger, schema.TypeInteger},
		{schema.TypeInteger, schema.TypeFloat, schema.TypeFloat},
		{schema.TypeFloat, schema.TypeInteger, schema.TypeFloat},
		{schema.TypeText, schema.TypeInteger, schema.TypeText},
		{schema.TypeDate, schema.TypeText, schema.TypeText},
		{schema.TypeBool, schema.TypeDate, schema.TypeText},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.result, widen(tc.have, tc.want), "%s + %s", tc.have, tc.want)
	}
}

func TestColumnTypeOf(t *testing.T) {
	assert.Equal(t, schema.TypeInteger, columnTypeOf("bigint"))
	assert.Equal(t, schema.TypeFloat, columnTypeOf("double precision"))
	assert.Equal(t, schema.TypeBool, columnTypeOf("boolean"))
	assert.Equal(t, schema.TypeDate, columnTypeOf("date"))
	assert.Equal(t, schema.TypeText, columnTypeOf("character varying"))
}

func TestCellArg(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, cellArg(grid.Cell{}, schema.TypeText))
	assert.Nil(t, cellArg(grid.TextCell("  "), schema.TypeText))
	assert.Equal(t, int64(3), cellArg(grid.NumberCell(3), schema.TypeInteger))
	assert.Equal(t, 3.5, cellArg(grid.NumberCell(3.5), schema.TypeFloat))
	assert.Equal(t, true, cellArg(grid.BoolCell(true), schema.TypeBool))
	assert.Equal(t, day, cellArg(grid.DateCell(day), schema.TypeDate))

	// A column already stored as text takes the rendered value.
	assert.Equal(t, "3.5", cellArg(grid.NumberCell(3.5), schema.TypeText))
}

func TestConflictClause(t *testing.T) {
	desc := schema.Descriptor{
		Table: "metrics",
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInteger},
			{Name: "value", Type: schema.TypeFloat},
		},
		PrimaryKeys: []string{"id"},
	}

	plain := conflictClause(desc, UpsertOptions{})
	assert.Equal(t, ` ON CONFLICT ("id") DO UPDATE SET "value" = EXCLUDED."value"`, plain)

	merge := conflictClause(desc, UpsertOptions{SkipEmptyUpdates: true})
	assert.Contains(t, merge, `COALESCE(EXCLUDED."value", "metrics"."value")`)
}

func TestConflictClause_AllColumnsKeyed(t *testing.T) {
	desc := schema.Descriptor{
		Table:       "link",
		Columns:     []schema.Column{{Name: "a"}, {Name: "b"}},
		PrimaryKeys: []string{"a", "b"},
	}

	assert.Equal(t, ` ON CONFLICT ("a", "b") DO NOTHING`, conflictClause(desc, UpsertOptions{}))
}

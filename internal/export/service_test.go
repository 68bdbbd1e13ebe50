package export_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gridport/internal/export"
	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/schema"
)

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	svc := export.NewService(dir)

	desc := schema.Descriptor{
		Table: "totals",
		Columns: []schema.Column{
			{Name: "date", Source: "date"},
			{Name: "value", Source: "value"},
		},
	}

	rec := extract.NewRecord()
	rec.Set("date", grid.TextCell("2024-01-01"))
	rec.Set("value", grid.NumberCell(12.5))

	path, err := svc.WriteCSV("report.xlsx", "Sheet 1", desc, []extract.Record{rec})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report__Sheet_1__totals.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// UTF-8 BOM first, then the rendered rows.
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3])
	assert.Equal(t, "date,value\n2024-01-01,12.5\n", string(raw[3:]))
}

func TestWriteCSV_MissingColumnRendersEmpty(t *testing.T) {
	svc := export.NewService(t.TempDir())

	desc := schema.Descriptor{
		Table: "t",
		Columns: []schema.Column{
			{Name: "a", Source: "a"},
			{Name: "b", Source: "b"},
		},
	}

	rec := extract.NewRecord()
	rec.Set("a", grid.NumberCell(1))

	path, err := svc.WriteCSV("f", "s", desc, []extract.Record{rec})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\n", string(raw[3:]))
}

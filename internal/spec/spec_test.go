package spec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

const validSpec = `{
  "files": {
    "fleet report": {
      "sheets": {
        "Summary": {
          "key_values": [
            {"name": "report_date", "row": 1, "col": 2, "add_to_tables": true, "placement": "all_rows", "date_format": "2006-01-02"}
          ],
          "tables": [
            {
              "title": "Daily Totals",
              "table": "daily_totals",
              "primary_keys": ["date", "category"],
              "merge_key_values": true,
              "export": true,
              "calculated_columns": [
                {"name": "running_total", "kind": "cumulative", "aggregate": "sum", "source": "value"}
              ]
            }
          ],
          "no_title_tables": [
            {
              "name": "areas",
              "start_row": 20,
              "headers": ["area", "count"],
              "types": ["text", "number"],
              "table": "area_counts",
              "primary_keys": ["area"],
              "export": true
            }
          ]
        }
      }
    }
  }
}`

func TestLoad_Valid(t *testing.T) {
	s, err := spec.Load(strings.NewReader(validSpec))
	require.NoError(t, err)

	fs, ok := s.Lookup("fleet report")
	require.True(t, ok)

	sheet := fs.Sheets["Summary"]
	require.Len(t, sheet.KeyValues, 1)
	require.Len(t, sheet.Tables, 1)
	require.Len(t, sheet.NoTitleTables, 1)

	assert.Equal(t, "report_date", sheet.KeyValues[0].Name)
	assert.Equal(t, spec.PlaceAllRows, sheet.KeyValues[0].Placement)
	assert.Equal(t, []string{"date", "category"}, sheet.Tables[0].PrimaryKeys)
	assert.Equal(t, spec.CalcCumulative, sheet.Tables[0].Calculated[0].Kind)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	doc := `{"files": {"f": {"sheets": {"s": {"tables": [{"title": "T", "table": "t", "export": false, "colour": "red"}]}}}}}`

	_, err := spec.Load(strings.NewReader(doc))
	require.Error(t, err)

	var cfgErr *spec.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Detail, "colour")
}

func TestLoad_UnknownCalcKind(t *testing.T) {
	doc := `{"files": {"f": {"sheets": {"s": {"tables": [
		{"title": "T", "table": "t", "export": false,
		 "calculated_columns": [{"name": "x", "kind": "median", "source": "v"}]}
	]}}}}}`

	_, err := spec.Load(strings.NewReader(doc))
	require.Error(t, err)

	var cfgErr *spec.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Detail, "median")
}

func TestLoad_ExportedTableNeedsPrimaryKeys(t *testing.T) {
	doc := `{"files": {"f": {"sheets": {"s": {"tables": [{"title": "T", "table": "t", "export": true}]}}}}}`

	_, err := spec.Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary keys")
}

func TestLoad_KeyValueNeedsTarget(t *testing.T) {
	doc := `{"files": {"f": {"sheets": {"s": {"key_values": [{"name": "k"}]}}}}}`

	_, err := spec.Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row/col or a title")
}

func TestLoad_RollingNeedsWindow(t *testing.T) {
	doc := `{"files": {"f": {"sheets": {"s": {"tables": [
		{"title": "T", "table": "t", "export": false,
		 "calculated_columns": [{"name": "x", "kind": "rolling", "aggregate": "average", "source": "v"}]}
	]}}}}}`

	_, err := spec.Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive window")
}

func TestNormalizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fleet report.xlsx", "fleet report"},
		{"vm_analysis_20240815_143022.xlsx", "vm_analysis"},
		{"fleet status 26-08-2025 21-15-00.xlsx", "fleet status"},
		{"driver summary 13.7.xlsx", "driver summary"},
		{"penalties 2024.xlsx", "penalties"},
		{"penalties 03-09-2025-1.xlsx", "penalties"},
		{"penalties 04-09-20250.xlsx", "penalties"},
		{"uploads/fleet report.xlsx", "fleet report"},
		{"plain name", "plain name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, spec.NormalizeFileName(tt.in))
		})
	}
}

func TestLookup_NormalizedMatch(t *testing.T) {
	s, err := spec.Load(strings.NewReader(validSpec))
	require.NoError(t, err)

	_, ok := s.Lookup("fleet report 26-08-2025 21-15-00.xlsx")
	assert.True(t, ok)

	_, ok = s.Lookup("unrelated.xlsx")
	assert.False(t, ok)
}

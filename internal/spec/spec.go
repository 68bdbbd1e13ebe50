// Package spec defines the declarative extraction model: which files and
// sheets to process, where key-values and tables live inside them, and how
// extracted records are derived and keyed. A Spec is loaded once at startup
// and is read-only for the whole run.
package spec

import "fmt"

// Placement controls which rows of a table receive a merged key-value or a
// calculated value.
type Placement string

const (
	PlaceAllRows  Placement = "all_rows"
	PlaceFirstRow Placement = "first_row"
	PlaceLastRow  Placement = "last_row"
	// PlaceNone extracts the value without merging it into any table. It
	// stays available to custom calculated-column expressions.
	PlaceNone Placement = "none"
)

func validPlacement(p Placement) bool {
	switch p {
	case "", PlaceAllRows, PlaceFirstRow, PlaceLastRow, PlaceNone:
		return true
	}

	return false
}

// ValueType is the declared coercion target for a no-title table column.
type ValueType string

const (
	TypeAny    ValueType = "" // keep the cell as read
	TypeText   ValueType = "text"
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "bool"
	TypeDate   ValueType = "date"
)

func validValueType(t ValueType) bool {
	switch t {
	case TypeAny, TypeText, TypeNumber, TypeBool, TypeDate:
		return true
	}

	return false
}

// Spec is the root of the extraction configuration, keyed by file name.
type Spec struct {
	Files map[string]FileSpec `json:"files"`
}

// FileSpec maps exact sheet names to their extraction layout.
type FileSpec struct {
	Sheets map[string]SheetSpec `json:"sheets"`
}

// SheetSpec lists everything to pull out of one worksheet.
type SheetSpec struct {
	KeyValues     []KeyValueSpec     `json:"key_values,omitempty"`
	Tables        []TableSpec        `json:"tables,omitempty"`
	NoTitleTables []NoTitleTableSpec `json:"no_title_tables,omitempty"`
}

// KeyValueSpec extracts a single named value from one cell, located either
// by fixed coordinates or by scanning for a title within a bounded window.
type KeyValueSpec struct {
	Name string `json:"name"`

	// Fixed coordinates. Both must be set to use direct addressing.
	Row *int `json:"row,omitempty"`
	Col *int `json:"col,omitempty"`

	// Title search. The value is taken from the cell immediately right of
	// the first cell matching Title inside the search window.
	Title      string `json:"title,omitempty"`
	SearchRows int    `json:"search_rows,omitempty"` // default 50
	SearchCols int    `json:"search_cols,omitempty"` // default 20

	// DateFormat re-emits a date value using this Go layout.
	DateFormat string `json:"date_format,omitempty"`

	// AddToTables merges the value into every table of the sheet that has
	// MergeKeyValues set, per Placement (default all_rows).
	AddToTables bool      `json:"add_to_tables,omitempty"`
	Placement   Placement `json:"placement,omitempty"`
}

// TableSpec extracts a header-delimited table. The header row is located
// either by searching for Title (header sits HeaderOffset rows below the
// title match, default 1) or by a fixed HeaderRow index.
type TableSpec struct {
	Title        string `json:"title,omitempty"`
	HeaderRow    *int   `json:"header_row,omitempty"`
	HeaderOffset int    `json:"header_offset,omitempty"` // default 1
	SearchRows   int    `json:"search_rows,omitempty"`   // title scan window, default whole sheet

	// ColCount fixes how many columns to read from the title position.
	// FromEnd counts them from the end of the header row instead.
	ColCount int  `json:"col_count,omitempty"`
	FromEnd  bool `json:"from_end,omitempty"`

	// Headers renames output columns positionally after extraction. Extra
	// names are ignored; missing names keep the source header.
	Headers []string `json:"headers,omitempty"`

	MaxRows   int `json:"max_rows,omitempty"`
	MinValues int `json:"min_values,omitempty"` // non-empty cells needed to keep reading, default 1

	Table            string                 `json:"table"`
	PrimaryKeys      []string               `json:"primary_keys"`
	MergeKeyValues   bool                   `json:"merge_key_values,omitempty"`
	Calculated       []CalculatedColumnSpec `json:"calculated_columns,omitempty"`
	Export           bool                   `json:"export"`
	ExportCSV        bool                   `json:"export_csv,omitempty"`
	SkipEmptyUpdates bool                   `json:"skip_empty_updates,omitempty"`
}

// NoTitleTableSpec extracts a headerless block whose column semantics are
// declared here instead of discovered in the sheet.
type NoTitleTableSpec struct {
	Name     string `json:"name"`
	StartRow int    `json:"start_row"`
	StartCol int    `json:"start_col,omitempty"`

	Headers []string    `json:"headers"`
	Types   []ValueType `json:"types,omitempty"` // positional, same length as Headers when present
	Exclude []string    `json:"exclude,omitempty"`

	MaxRows   int `json:"max_rows,omitempty"`
	MinValues int `json:"min_values,omitempty"`

	Table            string                 `json:"table"`
	PrimaryKeys      []string               `json:"primary_keys"`
	MergeKeyValues   bool                   `json:"merge_key_values,omitempty"`
	Calculated       []CalculatedColumnSpec `json:"calculated_columns,omitempty"`
	Export           bool                   `json:"export"`
	ExportCSV        bool                   `json:"export_csv,omitempty"`
	SkipEmptyUpdates bool                   `json:"skip_empty_updates,omitempty"`
}

// CalcKind selects the calculated-column variant.
type CalcKind string

const (
	CalcCumulative  CalcKind = "cumulative"
	CalcRolling     CalcKind = "rolling"
	CalcPercentage  CalcKind = "percentage"
	CalcCustom      CalcKind = "custom"
	CalcCurrentDate CalcKind = "current_date"
)

// Aggregate selects the aggregate family for cumulative and rolling columns.
type Aggregate string

const (
	AggSum     Aggregate = "sum"
	AggAverage Aggregate = "average"
	AggCount   Aggregate = "count"
	AggMin     Aggregate = "min"
	AggMax     Aggregate = "max"
)

// PercentMode selects how a percentage column is computed.
type PercentMode string

const (
	// PercentOfTotal is value / column total * 100.
	PercentOfTotal PercentMode = "of_total"
	// PercentChange is the change from the previous row in percent. The
	// first row has no previous row and stays null.
	PercentChange PercentMode = "change"
)

// CalculatedColumnSpec appends one derived column to a table's records.
// Kind decides which of the parameter fields apply.
type CalculatedColumnSpec struct {
	Name string   `json:"name"`
	Kind CalcKind `json:"kind"`

	Aggregate Aggregate   `json:"aggregate,omitempty"` // cumulative, rolling
	Source    string      `json:"source,omitempty"`    // cumulative, rolling, percentage
	Window    int         `json:"window,omitempty"`    // rolling
	Mode      PercentMode `json:"mode,omitempty"`      // percentage
	Expr      string      `json:"expr,omitempty"`      // custom
	Format    string      `json:"format,omitempty"`    // current_date, Go layout

	Placement Placement `json:"placement,omitempty"` // default all_rows
}

// ConfigError reports a self-inconsistent or unresolvable configuration.
// It is always fatal for the run; no retry can succeed.
type ConfigError struct {
	File   string
	Sheet  string
	Table  string
	Detail string
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Detail

	if e.File != "" {
		msg += fmt.Sprintf(" (file %q", e.File)
		if e.Sheet != "" {
			msg += fmt.Sprintf(", sheet %q", e.Sheet)
		}

		if e.Table != "" {
			msg += fmt.Sprintf(", table %q", e.Table)
		}

		msg += ")"
	}

	return msg
}

func configErr(file, sheet, table, format string, args ...any) *ConfigError {
	return &ConfigError{File: file, Sheet: sheet, Table: table, Detail: fmt.Sprintf(format, args...)}
}

package spec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load parses and validates a spec document. Unknown fields anywhere in the
// document are rejected rather than ignored, so a typo in a spec never
// silently disables an extraction.
func Load(r io.Reader) (*Spec, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var s Spec
	if err := dec.Decode(&s); err != nil {
		return nil, &ConfigError{Detail: fmt.Sprintf("parsing spec: %v", err)}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// LoadFile loads a spec from disk.
func LoadFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spec: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Validate checks the whole document for self-consistency. It returns the
// first problem found as a *ConfigError.
func (s *Spec) Validate() error {
	if len(s.Files) == 0 {
		return &ConfigError{Detail: "no files declared"}
	}

	for file, fs := range s.Files {
		if len(fs.Sheets) == 0 {
			return configErr(file, "", "", "no sheets declared")
		}

		for sheet, ss := range fs.Sheets {
			if err := ss.validate(file, sheet); err != nil {
				return err
			}
		}
	}

	return nil
}

func (ss SheetSpec) validate(file, sheet string) error {
	if len(ss.KeyValues)+len(ss.Tables)+len(ss.NoTitleTables) == 0 {
		return configErr(file, sheet, "", "sheet declares nothing to extract")
	}

	for _, kv := range ss.KeyValues {
		if err := kv.validate(file, sheet); err != nil {
			return err
		}
	}

	for _, t := range ss.Tables {
		if err := t.validate(file, sheet); err != nil {
			return err
		}
	}

	for _, t := range ss.NoTitleTables {
		if err := t.validate(file, sheet); err != nil {
			return err
		}
	}

	return nil
}

func (kv KeyValueSpec) validate(file, sheet string) error {
	if kv.Name == "" {
		return configErr(file, sheet, "", "key-value without a name")
	}

	hasCoords := kv.Row != nil && kv.Col != nil

	if !hasCoords && kv.Title == "" {
		return configErr(file, sheet, "", "key-value %q needs row/col or a title to search for", kv.Name)
	}

	if hasCoords && (*kv.Row < 0 || *kv.Col < 0) {
		return configErr(file, sheet, "", "key-value %q has negative coordinates", kv.Name)
	}

	if !validPlacement(kv.Placement) {
		return configErr(file, sheet, "", "key-value %q has unknown placement %q", kv.Name, kv.Placement)
	}

	return nil
}

func (t TableSpec) validate(file, sheet string) error {
	if t.Title == "" && t.HeaderRow == nil {
		return configErr(file, sheet, t.Table, "table needs a title or a fixed header row")
	}

	if t.HeaderRow != nil && *t.HeaderRow < 0 {
		return configErr(file, sheet, t.Table, "negative header row")
	}

	if t.Table == "" {
		return configErr(file, sheet, "", "table without a destination name")
	}

	if t.Export && len(t.PrimaryKeys) == 0 {
		return configErr(file, sheet, t.Table, "exported table needs primary keys")
	}

	if t.ColCount < 0 || t.MaxRows < 0 {
		return configErr(file, sheet, t.Table, "negative col_count or max_rows")
	}

	return validateCalculated(file, sheet, t.Table, t.Calculated)
}

func (t NoTitleTableSpec) validate(file, sheet string) error {
	name := t.Table
	if name == "" {
		name = t.Name
	}

	if t.StartRow < 0 || t.StartCol < 0 {
		return configErr(file, sheet, name, "negative start coordinates")
	}

	if len(t.Headers) == 0 {
		return configErr(file, sheet, name, "no-title table needs a declared header list")
	}

	if len(t.Types) > 0 && len(t.Types) != len(t.Headers) {
		return configErr(file, sheet, name, "types list length %d does not match %d headers", len(t.Types), len(t.Headers))
	}

	for _, vt := range t.Types {
		if !validValueType(vt) {
			return configErr(file, sheet, name, "unknown column type %q", vt)
		}
	}

	declared := make(map[string]bool, len(t.Headers))
	for _, h := range t.Headers {
		declared[h] = true
	}

	for _, ex := range t.Exclude {
		if !declared[ex] {
			return configErr(file, sheet, name, "excluded column %q is not declared", ex)
		}
	}

	if t.Table == "" {
		return configErr(file, sheet, "", "no-title table without a destination name")
	}

	if t.Export && len(t.PrimaryKeys) == 0 {
		return configErr(file, sheet, name, "exported table needs primary keys")
	}

	return validateCalculated(file, sheet, name, t.Calculated)
}

func validateCalculated(file, sheet, table string, specs []CalculatedColumnSpec) error {
	for _, c := range specs {
		if c.Name == "" {
			return configErr(file, sheet, table, "calculated column without a name")
		}

		if !validPlacement(c.Placement) || c.Placement == PlaceNone {
			return configErr(file, sheet, table, "calculated column %q has unknown placement %q", c.Name, c.Placement)
		}

		switch c.Kind {
		case CalcCumulative:
			if !validAggregate(c.Aggregate) || c.Source == "" {
				return configErr(file, sheet, table, "cumulative column %q needs an aggregate and a source column", c.Name)
			}

		case CalcRolling:
			if !validAggregate(c.Aggregate) || c.Source == "" || c.Window <= 0 {
				return configErr(file, sheet, table, "rolling column %q needs an aggregate, a source column, and a positive window", c.Name)
			}

		case CalcPercentage:
			if c.Source == "" {
				return configErr(file, sheet, table, "percentage column %q needs a source column", c.Name)
			}

			if c.Mode != PercentOfTotal && c.Mode != PercentChange {
				return configErr(file, sheet, table, "percentage column %q has unknown mode %q", c.Name, c.Mode)
			}

		case CalcCustom:
			if c.Expr == "" {
				return configErr(file, sheet, table, "custom column %q without an expression", c.Name)
			}

		case CalcCurrentDate:
			// Format defaults to the date-only layout.

		default:
			return configErr(file, sheet, table, "calculated column %q has unknown kind %q", c.Name, c.Kind)
		}
	}

	return nil
}

func validAggregate(a Aggregate) bool {
	switch a {
	case AggSum, AggAverage, AggCount, AggMin, AggMax:
		return true
	}

	return false
}

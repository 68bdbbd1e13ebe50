package pipeline

import (
	"fmt"

	"github.com/MrJamesThe3rd/gridport/internal/assemble"
	"github.com/MrJamesThe3rd/gridport/internal/calc"
	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
)

// keyValueSet holds one sheet's extracted key-values: the resolved cells for
// expression scope, the subset destined for table columns, and per-name
// failures so dependent tables can inherit them.
type keyValueSet struct {
	values map[string]grid.Cell
	merged []assemble.KeyValue
	errs   map[string]error
	specs  []spec.KeyValueSpec
}

func extractKeyValues(g *grid.Grid, specs []spec.KeyValueSpec) keyValueSet {
	set := keyValueSet{
		values: make(map[string]grid.Cell, len(specs)),
		errs:   make(map[string]error),
		specs:  specs,
	}

	for _, kvSpec := range specs {
		cell, err := extract.KeyValue(g, kvSpec)
		if err != nil {
			set.errs[kvSpec.Name] = err
			continue
		}

		set.values[kvSpec.Name] = cell

		if kvSpec.AddToTables && kvSpec.Placement != spec.PlaceNone {
			set.merged = append(set.merged, assemble.KeyValue{
				Name:      kvSpec.Name,
				Cell:      cell,
				Placement: kvSpec.Placement,
			})
		}
	}

	return set
}

// dependencyFailure reports the first failed key-value the table depends
// on: any mergeable key-value when the table merges them, and any key-value
// referenced by name in a custom calculated column.
func (s keyValueSet) dependencyFailure(job tableJob) error {
	if job.merge {
		for _, kvSpec := range s.specs {
			if !kvSpec.AddToTables || kvSpec.Placement == spec.PlaceNone {
				continue
			}

			if err := s.errs[kvSpec.Name]; err != nil {
				return fmt.Errorf("key value %s unavailable: %w", kvSpec.Name, err)
			}
		}
	}

	for _, cs := range job.calculated {
		if cs.Kind != spec.CalcCustom {
			continue
		}

		for _, name := range calc.Identifiers(cs.Expr) {
			if err := s.errs[name]; err != nil {
				return fmt.Errorf("key value %s unavailable: %w", name, err)
			}
		}
	}

	return nil
}

// Package pipeline drives one file end to end: resolve its spec entry,
// extract key-values and tables from every configured sheet, assemble and
// persist the results, and fold the per-table outcomes into one file status.
//
// Error scoping follows the error type. A *spec.ConfigError aborts the whole
// file since no retry can fix a broken configuration. Extraction and storage
// errors stay scoped to their table; unaffected tables in the same file keep
// going.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/MrJamesThe3rd/gridport/internal/assemble"
	"github.com/MrJamesThe3rd/gridport/internal/calc"
	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/schema"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
	"github.com/MrJamesThe3rd/gridport/internal/store"
)

//go:generate mockgen -source=pipeline.go -destination=pipeline_mock.go -package=pipeline

// Storage persists one assembled table atomically.
type Storage interface {
	Upsert(ctx context.Context, desc schema.Descriptor, records []extract.Record, opts store.UpsertOptions) error
}

// Exporter writes one assembled table as a flat file.
type Exporter interface {
	WriteCSV(fileName, sheetName string, desc schema.Descriptor, records []extract.Record) (string, error)
}

// Pipeline processes files against one loaded spec.
type Pipeline struct {
	spec     *spec.Spec
	storage  Storage
	exporter Exporter
	log      *slog.Logger
	now      func() time.Time
}

func New(s *spec.Spec, storage Storage, exporter Exporter, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{spec: s, storage: storage, exporter: exporter, log: log, now: time.Now}
}

// WithClock fixes the time source used for current_date columns.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// ProcessFile runs every configured extraction for one file. It always
// returns a result; the error state lives inside it.
func (p *Pipeline) ProcessFile(ctx context.Context, fileName string, sheets map[string]*grid.Grid) *FileResult {
	result := &FileResult{FileName: fileName}

	fileSpec, ok := p.spec.Lookup(fileName)
	if !ok {
		result.Err = &spec.ConfigError{File: fileName, Detail: "no spec entry matches file"}
		result.Status = store.StatusFailure

		return result
	}

	for _, sheetName := range sortedKeys(fileSpec.Sheets) {
		sheetSpec := fileSpec.Sheets[sheetName]

		g, ok := sheets[sheetName]
		if !ok {
			p.failSheet(result, sheetName, sheetSpec)
			continue
		}

		if fatal := p.processSheet(ctx, result, fileName, sheetName, g, sheetSpec); fatal != nil {
			result.Err = fatal
			break
		}
	}

	result.deriveStatus()

	p.log.Info("file processed",
		"file", fileName,
		"status", result.Status,
		"tables", len(result.Tables),
		"failed", result.failedCount(),
	)

	return result
}

// failSheet marks every unit of a missing sheet as failed.
func (p *Pipeline) failSheet(result *FileResult, sheetName string, sheetSpec spec.SheetSpec) {
	err := &extract.Error{
		Kind: extract.ErrTableNotFound, Row: -1, Col: -1,
		Detail: "sheet " + sheetName + " not present in file",
	}

	for _, kv := range sheetSpec.KeyValues {
		result.Tables = append(result.Tables, TableResult{Sheet: sheetName, Name: kv.Name, Err: err})
	}

	for _, ts := range sheetSpec.Tables {
		result.Tables = append(result.Tables, TableResult{Sheet: sheetName, Name: ts.Table, Err: err})
	}

	for _, ts := range sheetSpec.NoTitleTables {
		result.Tables = append(result.Tables, TableResult{Sheet: sheetName, Name: ts.Table, Err: err})
	}
}

// processSheet extracts one worksheet. The returned error is fatal for the
// file; table-scoped failures are recorded in the result instead.
func (p *Pipeline) processSheet(ctx context.Context, result *FileResult, fileName, sheetName string, g *grid.Grid, sheetSpec spec.SheetSpec) error {
	kvs := extractKeyValues(g, sheetSpec.KeyValues)

	for _, kv := range sheetSpec.KeyValues {
		if err := kvs.errs[kv.Name]; err != nil {
			result.Tables = append(result.Tables, TableResult{Sheet: sheetName, Name: kv.Name, Err: err})
			p.log.Warn("key value failed", "file", fileName, "sheet", sheetName, "name", kv.Name, "error", err)
		}
	}

	for _, ts := range sheetSpec.Tables {
		job := tableJob{
			name:             ts.Table,
			merge:            ts.MergeKeyValues,
			calculated:       ts.Calculated,
			primaryKeys:      ts.PrimaryKeys,
			export:           ts.Export,
			exportCSV:        ts.ExportCSV,
			skipEmptyUpdates: ts.SkipEmptyUpdates,
			extract: func() ([]extract.Record, error) {
				return extract.Table(g, ts)
			},
		}

		if fatal := p.processTable(ctx, result, fileName, sheetName, job, kvs); fatal != nil {
			return fatal
		}
	}

	for _, ts := range sheetSpec.NoTitleTables {
		job := tableJob{
			name:             ts.Table,
			merge:            ts.MergeKeyValues,
			calculated:       ts.Calculated,
			primaryKeys:      ts.PrimaryKeys,
			export:           ts.Export,
			exportCSV:        ts.ExportCSV,
			skipEmptyUpdates: ts.SkipEmptyUpdates,
			extract: func() ([]extract.Record, error) {
				return extract.NoTitleTable(g, ts)
			},
		}

		if fatal := p.processTable(ctx, result, fileName, sheetName, job, kvs); fatal != nil {
			return fatal
		}
	}

	return nil
}

// tableJob is the common shape of headered and no-title tables.
type tableJob struct {
	name             string
	merge            bool
	calculated       []spec.CalculatedColumnSpec
	primaryKeys      []string
	export           bool
	exportCSV        bool
	skipEmptyUpdates bool
	extract          func() ([]extract.Record, error)
}

func (p *Pipeline) processTable(ctx context.Context, result *FileResult, fileName, sheetName string, job tableJob, kvs keyValueSet) error {
	tr := TableResult{Sheet: sheetName, Name: job.name}

	err := p.runTable(ctx, fileName, sheetName, job, kvs, &tr)
	if err != nil {
		tr.Err = err
		p.log.Warn("table failed", "file", fileName, "sheet", sheetName, "table", job.name, "error", err)
	}

	result.Tables = append(result.Tables, tr)

	var cfgErr *spec.ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	return nil
}

func (p *Pipeline) runTable(ctx context.Context, fileName, sheetName string, job tableJob, kvs keyValueSet, tr *TableResult) error {
	// A table inherits the failure of every key-value it depends on.
	if err := kvs.dependencyFailure(job); err != nil {
		return err
	}

	records, err := job.extract()
	if err != nil {
		return err
	}

	if job.merge {
		records = assemble.Merge(records, kvs.merged)
	}

	records, err = calc.Apply(job.name, records, job.calculated, kvs.values, p.now())
	if err != nil {
		return err
	}

	records, err = assemble.Dedupe(job.name, records, job.primaryKeys)
	if err != nil {
		return err
	}

	tr.Rows = len(records)

	if len(records) == 0 {
		return nil
	}

	desc, err := schema.Synthesize(job.name, job.primaryKeys, records)
	if err != nil {
		return err
	}

	if job.export {
		opts := store.UpsertOptions{SkipEmptyUpdates: job.skipEmptyUpdates}
		if err := p.storage.Upsert(ctx, desc, records, opts); err != nil {
			return err
		}
	}

	if job.exportCSV {
		path, err := p.exporter.WriteCSV(fileName, sheetName, desc, records)
		if err != nil {
			return err
		}

		tr.CSVPath = path
	}

	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

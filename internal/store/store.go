// Package store persists assembled records into Postgres. Destination
// tables are created and widened on demand from the synthesized schema, and
// rows land through batched upserts keyed on the table's primary keys.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MrJamesThe3rd/gridport/internal/extract"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/schema"
)

const defaultBatchSize = 500

// StorageError is a table-scoped persistence failure. The table's
// transaction has been rolled back; other tables are unaffected.
type StorageError struct {
	Table string
	Op    string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(table, op string, err error) *StorageError {
	return &StorageError{Table: table, Op: op, Err: err}
}

// Writer writes synthesized tables into one database.
type Writer struct {
	db        *sql.DB
	batchSize int
}

func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db, batchSize: defaultBatchSize}
}

// WithBatchSize overrides how many rows one INSERT carries.
func (w *Writer) WithBatchSize(n int) *Writer {
	if n > 0 {
		w.batchSize = n
	}

	return w
}

// UpsertOptions tunes conflict behavior per table.
type UpsertOptions struct {
	// SkipEmptyUpdates keeps the stored value when the incoming one is
	// null, so a sparse re-extraction cannot blank out earlier data.
	SkipEmptyUpdates bool
}

// Upsert writes all records into the destination table inside a single
// transaction: the table either absorbs every row or none. The table is
// created if missing and widened column-by-column if the synthesized shape
// grew; existing columns are never narrowed.
func (w *Writer) Upsert(ctx context.Context, desc schema.Descriptor, records []extract.Record, opts UpsertOptions) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(desc.Table, "beginning transaction for", err)
	}
	defer tx.Rollback()

	if err := ensureTable(ctx, tx, desc); err != nil {
		return err
	}

	effective, err := reconcileColumns(ctx, tx, desc)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += w.batchSize {
		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}

		if err := insertBatch(ctx, tx, desc, records[start:end], effective, opts); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr(desc.Table, "committing", err)
	}

	return nil
}

func ensureTable(ctx context.Context, tx *sql.Tx, desc schema.Descriptor) error {
	var defs []string
	for _, col := range desc.Columns {
		defs = append(defs, quoteIdent(col.Name)+" "+col.Type.SQLType())
	}

	if len(desc.PrimaryKeys) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteIdents(desc.PrimaryKeys)+")")
	}

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(desc.Table), strings.Join(defs, ", "))

	if _, err := tx.ExecContext(ctx, query); err != nil {
		return storageErr(desc.Table, "creating", err)
	}

	return nil
}

// reconcileColumns aligns the live table with the synthesized shape and
// returns the effective type of every column: missing columns are added,
// an integer column widens to double precision when floats arrived, and a
// column that diverged in kind widens to text. An existing wider column
// wins over the synthesized one.
func reconcileColumns(ctx context.Context, tx *sql.Tx, desc schema.Descriptor) (map[string]schema.ColumnType, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1`,
		desc.Table)
	if err != nil {
		return nil, storageErr(desc.Table, "inspecting", err)
	}
	defer rows.Close()

	existing := map[string]schema.ColumnType{}

	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, storageErr(desc.Table, "inspecting", err)
		}

		existing[name] = columnTypeOf(dataType)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(desc.Table, "inspecting", err)
	}

	effective := make(map[string]schema.ColumnType, len(desc.Columns))

	for _, col := range desc.Columns {
		have, ok := existing[col.Name]
		if !ok {
			query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
				quoteIdent(desc.Table), quoteIdent(col.Name), col.Type.SQLType())

			if _, err := tx.ExecContext(ctx, query); err != nil {
				return nil, storageErr(desc.Table, "adding column to", err)
			}

			effective[col.Name] = col.Type
			continue
		}

		want := widen(have, col.Type)
		if want != have {
			query := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
				quoteIdent(desc.Table), quoteIdent(col.Name), want.SQLType(),
				quoteIdent(col.Name), want.SQLType())

			if _, err := tx.ExecContext(ctx, query); err != nil {
				return nil, storageErr(desc.Table, "widening column of", err)
			}
		}

		effective[col.Name] = want
	}

	return effective, nil
}

// widen picks the type that fits both the stored and the incoming values.
func widen(have, want schema.ColumnType) schema.ColumnType {
	if have == want {
		return have
	}

	if have == schema.TypeInteger && want == schema.TypeFloat {
		return schema.TypeFloat
	}

	if have == schema.TypeFloat && want == schema.TypeInteger {
		return schema.TypeFloat
	}

	return schema.TypeText
}

func columnTypeOf(dataType string) schema.ColumnType {
	switch strings.ToLower(dataType) {
	case "smallint", "integer", "bigint":
		return schema.TypeInteger
	case "real", "double precision", "numeric":
		return schema.TypeFloat
	case "boolean":
		return schema.TypeBool
	case "date":
		return schema.TypeDate
	}

	return schema.TypeText
}

func insertBatch(ctx context.Context, tx *sql.Tx, desc schema.Descriptor, records []extract.Record, effective map[string]schema.ColumnType, opts UpsertOptions) error {
	var (
		placeholders []string
		args         []any
	)

	for _, rec := range records {
		marks := make([]string, len(desc.Columns))

		for i, col := range desc.Columns {
			marks[i] = fmt.Sprintf("$%d", len(args)+1)

			cell, _ := rec.Get(col.Source)
			args = append(args, cellArg(cell, effective[col.Name]))
		}

		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
	}

	names := make([]string, len(desc.Columns))
	for i, col := range desc.Columns {
		names[i] = col.Name
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		quoteIdent(desc.Table), quoteIdents(names), strings.Join(placeholders, ", "))

	if len(desc.PrimaryKeys) > 0 {
		query += conflictClause(desc, opts)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return storageErr(desc.Table, "upserting into", err)
	}

	return nil
}

func conflictClause(desc schema.Descriptor, opts UpsertOptions) string {
	pk := make(map[string]bool, len(desc.PrimaryKeys))
	for _, name := range desc.PrimaryKeys {
		pk[name] = true
	}

	var sets []string

	for _, col := range desc.Columns {
		if pk[col.Name] {
			continue
		}

		name := quoteIdent(col.Name)

		if opts.SkipEmptyUpdates {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, %s.%s)",
				name, name, quoteIdent(desc.Table), name))
		} else {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", name, name))
		}
	}

	if len(sets) == 0 {
		return " ON CONFLICT (" + quoteIdents(desc.PrimaryKeys) + ") DO NOTHING"
	}

	return " ON CONFLICT (" + quoteIdents(desc.PrimaryKeys) + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// cellArg converts a cell into a driver argument matching the effective
// column type. Empty cells become NULL.
func cellArg(cell grid.Cell, t schema.ColumnType) any {
	if cell.IsEmpty() {
		return nil
	}

	if t == schema.TypeText {
		return cell.String()
	}

	switch cell.Kind {
	case grid.Number:
		if t == schema.TypeInteger {
			return int64(cell.Number)
		}

		return cell.Number
	case grid.Bool:
		return cell.Bool
	case grid.Date:
		return cell.Date
	}

	return cell.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}

	return strings.Join(quoted, ", ")
}

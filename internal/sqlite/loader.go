// This file implements catalog export to and import from a directory of
// JSONL files, one file per table plus a manifest.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Export writes every catalog table to dir as JSONL and a manifest with
// the row counts. Users, sessions and preferences are not exported.
func (b *Backend) Export(ctx context.Context, dir string) (*Manifest, error) {
	unlock, err := b.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	batch, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating batch id: %w", err)
	}
	manifest := &Manifest{
		BatchID:    batch.String(),
		ExportedAt: b.timestamp(),
		Tables:     make(map[string]int, len(catalogTables)),
	}

	// One transaction gives a consistent snapshot across tables.
	tx, err := b.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning export transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ct := range catalogTables {
		records, err := dumpTable(ctx, tx, ct)
		if err != nil {
			return nil, err
		}
		if err := writeJSONL(filepath.Join(dir, ct.file()), records); err != nil {
			return nil, fmt.Errorf("writing %s: %w", ct.file(), err)
		}
		manifest.Tables[ct.table] = len(records)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return manifest, nil
}

func dumpTable(ctx context.Context, q querier, ct catalogTable) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(ct.columns, ", "), ct.table, ct.orderBy))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ct.table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		vals := make([]any, len(ct.columns))
		ptrs := make([]any, len(ct.columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", ct.table, err)
		}
		obj := make(map[string]any, len(ct.columns))
		for i, col := range ct.columns {
			if raw, ok := vals[i].([]byte); ok {
				obj[col] = string(raw)
				continue
			}
			obj[col] = vals[i]
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s record: %w", ct.table, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", ct.table, err)
	}
	return records, nil
}

// Import replaces the catalog with the JSONL files in dir. Loading is
// transactional: either every table is replaced or the catalog is left as
// it was. Foreign keys are checked once every file is loaded, so files may
// reference rows that appear later. Malformed lines are skipped and unknown fields are
// ignored; a missing table file loads as an empty table.
func (b *Backend) Import(ctx context.Context, dir string) (*Manifest, error) {
	unlock, err := b.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading import dir: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("import path %s is not a directory", dir)
	}

	manifest := &Manifest{Tables: make(map[string]int, len(catalogTables))}
	if data, err := os.ReadFile(filepath.Join(dir, ManifestFile)); err == nil {
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		manifest.BatchID = m.BatchID
		manifest.ExportedAt = m.ExportedAt
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	// Pin one connection: defer_foreign_keys is per connection and must be
	// set inside the transaction that does the loading.
	conn, err := b.catalog.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("deferring foreign keys: %w", err)
	}

	for i := len(catalogTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+catalogTables[i].table); err != nil {
			return nil, fmt.Errorf("clearing %s: %w", catalogTables[i].table, err)
		}
	}

	for _, ct := range catalogTables {
		records, skipped, err := readJSONL(filepath.Join(dir, ct.file()))
		if errors.Is(err, fs.ErrNotExist) {
			manifest.Tables[ct.table] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		manifest.Skipped += skipped
		n, err := insertRecords(ctx, tx, ct, records)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", ct.file(), err)
		}
		manifest.Tables[ct.table] = n
	}

	if err := checkForeignKeys(ctx, tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", translateConstraint(err))
	}
	return manifest, nil
}

// checkForeignKeys reports the first dangling reference left by the load.
// Checking before COMMIT keeps a failed import on the rollback path.
func checkForeignKeys(ctx context.Context, q querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("checking foreign keys: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("reading foreign key check: %w", err)
		}
		return fmt.Errorf("%w: %s row %d references missing %s", types.ErrInvalidReference, table, rowid.Int64, parent)
	}
	return rows.Err()
}

// insertRecords inserts parsed JSONL records into ct.table. Only the
// mapped columns are read; a missing field inserts NULL. Records that are
// not JSON objects are skipped.
func insertRecords(ctx context.Context, tx querier, ct catalogTable, records []json.RawMessage) (int, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ct.columns)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ct.table, strings.Join(ct.columns, ", "), placeholders)

	n := 0
	for _, rec := range records {
		dec := json.NewDecoder(bytes.NewReader(rec))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			continue
		}

		args := make([]any, len(ct.columns))
		for i, col := range ct.columns {
			args[i] = sqlValue(obj[col])
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return n, fmt.Errorf("inserting record %d: %w", n+1, translateConstraint(err))
		}
		n++
	}
	return n, nil
}

// sqlValue converts a decoded JSON value into a driver value.
func sqlValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case map[string]any, []any:
		data, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		return string(data)
	default:
		return x
	}
}

// This file implements the base size and painted-by lookup tables. Both are
// seeded on first attach and may be edited afterwards; a row referenced by a
// mini cannot be deleted.
package sqlite

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// BaseSizesTable reads and writes base sizes.
type BaseSizesTable struct {
	backend *Backend
}

// List returns base sizes in display order.
func (bt *BaseSizesTable) List(ctx context.Context) ([]types.BaseSize, error) {
	unlock, err := bt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := bt.backend.catalog.QueryContext(ctx,
		"SELECT id, name, sort_order FROM base_sizes ORDER BY sort_order ASC, name COLLATE NOCASE ASC")
	if err != nil {
		return nil, fmt.Errorf("listing base sizes: %w", err)
	}
	defer rows.Close()

	results := []types.BaseSize{}
	for rows.Next() {
		var s types.BaseSize
		if err := rows.Scan(&s.ID, &s.Name, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning base size: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating base sizes: %w", err)
	}
	return results, nil
}

// Create inserts a base size. A zero SortOrder places it after the
// existing rows.
func (bt *BaseSizesTable) Create(ctx context.Context, in types.BaseSize) (*types.BaseSize, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := bt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	order := in.SortOrder
	if order == 0 {
		if order, err = count(ctx, bt.backend.catalog, "SELECT COALESCE(MAX(sort_order), 0) + 1 FROM base_sizes"); err != nil {
			return nil, fmt.Errorf("computing sort order: %w", err)
		}
	}
	res, err := bt.backend.catalog.ExecContext(ctx,
		"INSERT INTO base_sizes (name, sort_order) VALUES (?, ?)", name, order)
	if err != nil {
		return nil, fmt.Errorf("inserting base size: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading base size id: %w", err)
	}
	return &types.BaseSize{ID: id, Name: name, SortOrder: order}, nil
}

// Update renames a base size and sets its sort order when non-zero.
func (bt *BaseSizesTable) Update(ctx context.Context, id int64, in types.BaseSize) (*types.BaseSize, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := bt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, bt.backend.catalog, "base_sizes", id, name); err != nil {
		return nil, err
	}
	if in.SortOrder != 0 {
		if _, err := bt.backend.catalog.ExecContext(ctx,
			"UPDATE base_sizes SET sort_order = ? WHERE id = ?", in.SortOrder, id); err != nil {
			return nil, fmt.Errorf("updating base size %d: %w", id, err)
		}
	}
	out := &types.BaseSize{ID: id}
	err = bt.backend.catalog.QueryRowContext(ctx,
		"SELECT name, sort_order FROM base_sizes WHERE id = ?", id).Scan(&out.Name, &out.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("reading base size %d: %w", id, err)
	}
	return out, nil
}

// Delete removes a base size. Returns ErrInUse while minis reference it.
func (bt *BaseSizesTable) Delete(ctx context.Context, id int64) error {
	return deleteReferenceRow(ctx, bt.backend, "base_sizes", "base_size_id", id)
}

// PaintedByTable reads and writes painted-by values.
type PaintedByTable struct {
	backend *Backend
}

// List returns painted-by values ordered by id, which keeps the seeded
// order stable.
func (pt *PaintedByTable) List(ctx context.Context) ([]types.PaintedBy, error) {
	unlock, err := pt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := pt.backend.catalog.QueryContext(ctx, "SELECT id, name FROM painted_by ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing painted-by values: %w", err)
	}
	defer rows.Close()

	results := []types.PaintedBy{}
	for rows.Next() {
		var p types.PaintedBy
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning painted-by value: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating painted-by values: %w", err)
	}
	return results, nil
}

// Create inserts a painted-by value.
func (pt *PaintedByTable) Create(ctx context.Context, in types.NameInput) (*types.PaintedBy, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := pt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := pt.backend.catalog.ExecContext(ctx, "INSERT INTO painted_by (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("inserting painted-by value: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading painted-by id: %w", err)
	}
	return &types.PaintedBy{ID: id, Name: name}, nil
}

// Update renames a painted-by value.
func (pt *PaintedByTable) Update(ctx context.Context, id int64, in types.NameInput) (*types.PaintedBy, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := pt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, pt.backend.catalog, "painted_by", id, name); err != nil {
		return nil, err
	}
	return &types.PaintedBy{ID: id, Name: name}, nil
}

// Delete removes a painted-by value. Returns ErrInUse while minis
// reference it.
func (pt *PaintedByTable) Delete(ctx context.Context, id int64) error {
	return deleteReferenceRow(ctx, pt.backend, "painted_by", "painted_by_id", id)
}

// deleteReferenceRow deletes a lookup row unless a mini points at it
// through column.
func deleteReferenceRow(ctx context.Context, b *Backend, table, column string, id int64) error {
	unlock, err := b.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := b.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, table, id); err != nil {
		return err
	}
	minis, err := count(ctx, tx, "SELECT COUNT(*) FROM minis WHERE "+column+" = ?", id)
	if err != nil {
		return fmt.Errorf("counting minis using %s %d: %w", table, id, err)
	}
	if minis > 0 {
		return fmt.Errorf("%s %d is used by %d minis: %w", table, id, minis, types.ErrInUse)
	}
	if err := deleteRow(ctx, tx, table, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s deletion: %w", table, err)
	}
	return nil
}

// This file implements the miniature types table accessor and the
// type-category join.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// TypesTable reads and writes miniature types in the catalog store.
type TypesTable struct {
	backend *Backend
}

// List returns every type with its category count, ordered by name.
func (tt *TypesTable) List(ctx context.Context) ([]types.MiniTypeSummary, error) {
	unlock, err := tt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := tt.backend.catalog.QueryContext(ctx, `
SELECT t.id, t.name, COUNT(tc.category_id)
FROM miniature_types t
LEFT JOIN type_categories tc ON tc.type_id = t.id
GROUP BY t.id
ORDER BY t.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing types: %w", err)
	}
	defer rows.Close()

	results := []types.MiniTypeSummary{}
	for rows.Next() {
		var t types.MiniTypeSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.CategoryCount); err != nil {
			return nil, fmt.Errorf("scanning type: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating types: %w", err)
	}
	return results, nil
}

// Get retrieves a type by ID.
func (tt *TypesTable) Get(ctx context.Context, id int64) (*types.MiniType, error) {
	unlock, err := tt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var t types.MiniType
	err = tt.backend.catalog.QueryRowContext(ctx,
		"SELECT id, name FROM miniature_types WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting type %d: %w", id, err)
	}
	return &t, nil
}

// Create inserts a type. Names are unique regardless of case.
func (tt *TypesTable) Create(ctx context.Context, in types.NameInput) (*types.MiniType, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := tt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := tt.backend.catalog.ExecContext(ctx, "INSERT INTO miniature_types (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("inserting type: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading type id: %w", err)
	}
	return &types.MiniType{ID: id, Name: name}, nil
}

// Update renames a type.
func (tt *TypesTable) Update(ctx context.Context, id int64, in types.NameInput) (*types.MiniType, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := tt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, tt.backend.catalog, "miniature_types", id, name); err != nil {
		return nil, err
	}
	return &types.MiniType{ID: id, Name: name}, nil
}

// Delete removes a type. A type with assigned categories is rejected with
// ErrHasChildren; a type assigned to minis is rejected with ErrInUse.
func (tt *TypesTable) Delete(ctx context.Context, id int64) error {
	unlock, err := tt.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := tt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "miniature_types", id); err != nil {
		return err
	}
	cats, err := count(ctx, tx, "SELECT COUNT(*) FROM type_categories WHERE type_id = ?", id)
	if err != nil {
		return fmt.Errorf("counting categories of type %d: %w", id, err)
	}
	if cats > 0 {
		return fmt.Errorf("type %d has %d categories: %w", id, cats, types.ErrHasChildren)
	}
	minis, err := count(ctx, tx, "SELECT COUNT(*) FROM mini_types WHERE type_id = ?", id)
	if err != nil {
		return fmt.Errorf("counting minis of type %d: %w", id, err)
	}
	if minis > 0 {
		return fmt.Errorf("type %d is assigned to %d minis: %w", id, minis, types.ErrInUse)
	}
	if err := deleteRow(ctx, tx, "miniature_types", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing type deletion: %w", err)
	}
	return nil
}

// Categories returns the categories assigned to a type, ordered by name.
// Returns ErrNotFound if the type does not exist.
func (tt *TypesTable) Categories(ctx context.Context, typeID int64) ([]types.MiniCategory, error) {
	unlock, err := tt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := requireRow(ctx, tt.backend.catalog, "miniature_types", typeID); err != nil {
		return nil, err
	}

	rows, err := tt.backend.catalog.QueryContext(ctx, `
SELECT c.id, c.name
FROM miniature_categories c
JOIN type_categories tc ON tc.category_id = c.id
WHERE tc.type_id = ?
ORDER BY c.name COLLATE NOCASE ASC`, typeID)
	if err != nil {
		return nil, fmt.Errorf("listing categories of type %d: %w", typeID, err)
	}
	defer rows.Close()

	results := []types.MiniCategory{}
	for rows.Next() {
		var c types.MiniCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return results, nil
}

// LinkCategory assigns an existing category to a type. Returns ErrNotFound
// for a missing type, ErrInvalidReference for a missing category and
// ErrDuplicate if the link already exists.
func (tt *TypesTable) LinkCategory(ctx context.Context, typeID, categoryID int64) error {
	unlock, err := tt.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := requireRow(ctx, tt.backend.catalog, "miniature_types", typeID); err != nil {
		return err
	}
	if err := requireReference(ctx, tt.backend.catalog, "miniature_categories", categoryID); err != nil {
		return err
	}
	_, err = tt.backend.catalog.ExecContext(ctx,
		"INSERT INTO type_categories (type_id, category_id) VALUES (?, ?)", typeID, categoryID)
	if err != nil {
		return fmt.Errorf("linking category %d to type %d: %w", categoryID, typeID, translateConstraint(err))
	}
	return nil
}

// UnlinkCategory removes a category from a type. Returns ErrNotFound if
// the link does not exist.
func (tt *TypesTable) UnlinkCategory(ctx context.Context, typeID, categoryID int64) error {
	unlock, err := tt.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	res, err := tt.backend.catalog.ExecContext(ctx,
		"DELETE FROM type_categories WHERE type_id = ? AND category_id = ?", typeID, categoryID)
	if err != nil {
		return fmt.Errorf("unlinking category %d from type %d: %w", categoryID, typeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unlinking category %d from type %d: %w", categoryID, typeID, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

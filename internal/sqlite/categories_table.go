// This file implements the miniature categories table accessor. A category
// reaches minis only through the types it is assigned to.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// CategoriesTable reads and writes miniature categories in the catalog store.
type CategoriesTable struct {
	backend *Backend
}

// List returns every category with the IDs of the types it is assigned to,
// ordered by name.
func (ct *CategoriesTable) List(ctx context.Context) ([]types.CategorySummary, error) {
	unlock, err := ct.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := ct.backend.catalog.QueryContext(ctx,
		"SELECT id, name FROM miniature_categories ORDER BY name COLLATE NOCASE ASC")
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	results := []types.CategorySummary{}
	index := make(map[int64]int)
	for rows.Next() {
		var c types.CategorySummary
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.TypeIDs = []int64{}
		index[c.ID] = len(results)
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	rows.Close()

	links, err := ct.backend.catalog.QueryContext(ctx,
		"SELECT category_id, type_id FROM type_categories ORDER BY type_id")
	if err != nil {
		return nil, fmt.Errorf("listing type assignments: %w", err)
	}
	defer links.Close()
	for links.Next() {
		var catID, typeID int64
		if err := links.Scan(&catID, &typeID); err != nil {
			return nil, fmt.Errorf("scanning type assignment: %w", err)
		}
		if i, ok := index[catID]; ok {
			results[i].TypeIDs = append(results[i].TypeIDs, typeID)
		}
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("iterating type assignments: %w", err)
	}
	return results, nil
}

// Get retrieves a category and its type assignments by ID.
func (ct *CategoriesTable) Get(ctx context.Context, id int64) (*types.CategorySummary, error) {
	unlock, err := ct.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return getCategory(ctx, ct.backend.catalog, id)
}

// Create inserts a category. When in.TypeID is set the category is linked
// to that type in the same transaction; a missing type yields
// ErrInvalidReference and nothing is stored.
func (ct *CategoriesTable) Create(ctx context.Context, in types.CategoryInput) (*types.CategorySummary, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := ct.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := ct.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO miniature_categories (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("inserting category: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading category id: %w", err)
	}

	cat := &types.CategorySummary{MiniCategory: types.MiniCategory{ID: id, Name: name}, TypeIDs: []int64{}}
	if in.TypeID != nil {
		if err := requireReference(ctx, tx, "miniature_types", *in.TypeID); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO type_categories (type_id, category_id) VALUES (?, ?)", *in.TypeID, id); err != nil {
			return nil, fmt.Errorf("linking category to type: %w", translateConstraint(err))
		}
		cat.TypeIDs = append(cat.TypeIDs, *in.TypeID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category: %w", err)
	}
	return cat, nil
}

// Update renames a category.
func (ct *CategoriesTable) Update(ctx context.Context, id int64, in types.NameInput) (*types.CategorySummary, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := ct.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, ct.backend.catalog, "miniature_categories", id, name); err != nil {
		return nil, err
	}
	return getCategory(ctx, ct.backend.catalog, id)
}

// Delete removes a category together with its type assignments.
func (ct *CategoriesTable) Delete(ctx context.Context, id int64) error {
	unlock, err := ct.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := ct.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "miniature_categories", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM type_categories WHERE category_id = ?", id); err != nil {
		return fmt.Errorf("unlinking category %d: %w", id, err)
	}
	if err := deleteRow(ctx, tx, "miniature_categories", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category deletion: %w", err)
	}
	return nil
}

// SetTypes replaces the type assignments of a category atomically: either
// every link in typeIDs is stored or the previous set is kept.
func (ct *CategoriesTable) SetTypes(ctx context.Context, id int64, typeIDs []int64) (*types.CategorySummary, error) {
	unlock, err := ct.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := ct.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "miniature_categories", id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM type_categories WHERE category_id = ?", id); err != nil {
		return nil, fmt.Errorf("clearing types of category %d: %w", id, err)
	}
	for _, typeID := range dedupeIDs(typeIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO type_categories (type_id, category_id) VALUES (?, ?)", typeID, id); err != nil {
			return nil, fmt.Errorf("assigning type %d to category %d: %w", typeID, id, translateConstraint(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category types: %w", err)
	}
	return getCategory(ctx, ct.backend.catalog, id)
}

func getCategory(ctx context.Context, q querier, id int64) (*types.CategorySummary, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var c types.CategorySummary
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM miniature_categories WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT type_id FROM type_categories WHERE category_id = ? ORDER BY type_id", id)
	if err != nil {
		return nil, fmt.Errorf("loading types of category %d: %w", id, err)
	}
	defer rows.Close()
	c.TypeIDs = []int64{}
	for rows.Next() {
		var typeID int64
		if err := rows.Scan(&typeID); err != nil {
			return nil, fmt.Errorf("scanning type id: %w", err)
		}
		c.TypeIDs = append(c.TypeIDs, typeID)
	}
	return &c, rows.Err()
}

// dedupeIDs drops repeated IDs while keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// This file implements the tags table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// TagsTable reads and writes tags in the catalog store.
type TagsTable struct {
	backend *Backend
}

// List returns every tag with the number of minis carrying it.
func (tt *TagsTable) List(ctx context.Context) ([]types.TagSummary, error) {
	unlock, err := tt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := tt.backend.catalog.QueryContext(ctx, `
SELECT t.id, t.name, COUNT(mt.mini_id)
FROM tags t
LEFT JOIN mini_tags mt ON mt.tag_id = t.id
GROUP BY t.id
ORDER BY t.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	results := []types.TagSummary{}
	for rows.Next() {
		var t types.TagSummary
		if err := rows.Scan(&t.ID, &t.Name, &t.MiniCount); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}
	return results, nil
}

// Get retrieves a tag by ID.
func (tt *TagsTable) Get(ctx context.Context, id int64) (*types.Tag, error) {
	unlock, err := tt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var t types.Tag
	err = tt.backend.catalog.QueryRowContext(ctx, "SELECT id, name FROM tags WHERE id = ?", id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting tag %d: %w", id, err)
	}
	return &t, nil
}

// Create inserts a tag. Tag names are unique regardless of case.
func (tt *TagsTable) Create(ctx context.Context, in types.NameInput) (*types.Tag, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := tt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := tt.backend.catalog.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("inserting tag: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading tag id: %w", err)
	}
	return &types.Tag{ID: id, Name: name}, nil
}

// Update renames a tag.
func (tt *TagsTable) Update(ctx context.Context, id int64, in types.NameInput) (*types.Tag, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := tt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, tt.backend.catalog, "tags", id, name); err != nil {
		return nil, err
	}
	return &types.Tag{ID: id, Name: name}, nil
}

// Delete removes a tag and detaches it from every mini.
func (tt *TagsTable) Delete(ctx context.Context, id int64) error {
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

	if err := requireRow(ctx, tx, "tags", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM mini_tags WHERE tag_id = ?", id); err != nil {
		return fmt.Errorf("detaching tag %d: %w", id, err)
	}
	if err := deleteRow(ctx, tx, "tags", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tag deletion: %w", err)
	}
	return nil
}

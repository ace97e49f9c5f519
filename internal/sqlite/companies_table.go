// This file implements the companies table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// CompaniesTable reads and writes companies in the catalog store.
type CompaniesTable struct {
	backend *Backend
}

// List returns every company with its product line count, ordered by name.
func (ct *CompaniesTable) List(ctx context.Context) ([]types.CompanySummary, error) {
	unlock, err := ct.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := ct.backend.catalog.QueryContext(ctx, `
SELECT c.id, c.name, COUNT(pl.id)
FROM companies c
LEFT JOIN product_lines pl ON pl.company_id = c.id
GROUP BY c.id
ORDER BY c.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	results := []types.CompanySummary{}
	for rows.Next() {
		var c types.CompanySummary
		if err := rows.Scan(&c.ID, &c.Name, &c.LineCount); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating companies: %w", err)
	}
	return results, nil
}

// Get retrieves a company by ID.
// Returns ErrNotFound if no company exists with that ID.
func (ct *CompaniesTable) Get(ctx context.Context, id int64) (*types.Company, error) {
	unlock, err := ct.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return getCompany(ctx, ct.backend.catalog, id)
}

// Create inserts a company and returns the stored row.
func (ct *CompaniesTable) Create(ctx context.Context, in types.NameInput) (*types.Company, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := ct.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := ct.backend.catalog.ExecContext(ctx, "INSERT INTO companies (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("inserting company: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading company id: %w", err)
	}
	return &types.Company{ID: id, Name: name}, nil
}

// Update renames a company.
// Returns ErrNotFound if no company exists with that ID.
func (ct *CompaniesTable) Update(ctx context.Context, id int64, in types.NameInput) (*types.Company, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := ct.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := renameRow(ctx, ct.backend.catalog, "companies", id, name); err != nil {
		return nil, err
	}
	return &types.Company{ID: id, Name: name}, nil
}

// Delete removes a company. A company that still owns product lines is
// rejected with ErrHasChildren and left unchanged.
// Returns ErrNotFound if no company exists with that ID.
func (ct *CompaniesTable) Delete(ctx context.Context, id int64) error {
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

	if err := requireRow(ctx, tx, "companies", id); err != nil {
		return err
	}
	lines, err := count(ctx, tx, "SELECT COUNT(*) FROM product_lines WHERE company_id = ?", id)
	if err != nil {
		return fmt.Errorf("counting product lines of company %d: %w", id, err)
	}
	if lines > 0 {
		return fmt.Errorf("company %d owns %d product lines: %w", id, lines, types.ErrHasChildren)
	}
	if err := deleteRow(ctx, tx, "companies", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing company deletion: %w", err)
	}
	return nil
}

func getCompany(ctx context.Context, q querier, id int64) (*types.Company, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var c types.Company
	err := q.QueryRowContext(ctx, "SELECT id, name FROM companies WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting company %d: %w", id, err)
	}
	return &c, nil
}

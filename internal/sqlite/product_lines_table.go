// This file implements the product lines table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// ProductLinesTable reads and writes product lines in the catalog store.
type ProductLinesTable struct {
	backend *Backend
}

// List returns every product line with its company name and set count,
// ordered by company then line name.
func (pt *ProductLinesTable) List(ctx context.Context) ([]types.ProductLineSummary, error) {
	unlock, err := pt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := pt.backend.catalog.QueryContext(ctx, `
SELECT pl.id, pl.name, pl.company_id, c.name, COUNT(ps.id)
FROM product_lines pl
JOIN companies c ON c.id = pl.company_id
LEFT JOIN product_sets ps ON ps.product_line_id = pl.id
GROUP BY pl.id
ORDER BY c.name COLLATE NOCASE ASC, pl.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing product lines: %w", err)
	}
	defer rows.Close()

	results := []types.ProductLineSummary{}
	for rows.Next() {
		var l types.ProductLineSummary
		if err := rows.Scan(&l.ID, &l.Name, &l.CompanyID, &l.CompanyName, &l.SetCount); err != nil {
			return nil, fmt.Errorf("scanning product line: %w", err)
		}
		results = append(results, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product lines: %w", err)
	}
	return results, nil
}

// ListByCompany returns the product lines owned by a company, ordered by
// name. Returns ErrNotFound if the company does not exist.
func (pt *ProductLinesTable) ListByCompany(ctx context.Context, companyID int64) ([]types.ProductLine, error) {
	unlock, err := pt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := requireRow(ctx, pt.backend.catalog, "companies", companyID); err != nil {
		return nil, err
	}

	rows, err := pt.backend.catalog.QueryContext(ctx,
		"SELECT id, name, company_id FROM product_lines WHERE company_id = ? ORDER BY name COLLATE NOCASE ASC",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing product lines of company %d: %w", companyID, err)
	}
	defer rows.Close()

	results := []types.ProductLine{}
	for rows.Next() {
		var l types.ProductLine
		if err := rows.Scan(&l.ID, &l.Name, &l.CompanyID); err != nil {
			return nil, fmt.Errorf("scanning product line: %w", err)
		}
		results = append(results, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product lines: %w", err)
	}
	return results, nil
}

// Get retrieves a product line by ID.
func (pt *ProductLinesTable) Get(ctx context.Context, id int64) (*types.ProductLine, error) {
	unlock, err := pt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return getProductLine(ctx, pt.backend.catalog, id)
}

// Create inserts a product line under an existing company.
// Returns ErrInvalidReference if the company does not exist.
func (pt *ProductLinesTable) Create(ctx context.Context, in types.ProductLine) (*types.ProductLine, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := pt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := requireReference(ctx, pt.backend.catalog, "companies", in.CompanyID); err != nil {
		return nil, err
	}

	res, err := pt.backend.catalog.ExecContext(ctx,
		"INSERT INTO product_lines (name, company_id) VALUES (?, ?)", name, in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("inserting product line: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading product line id: %w", err)
	}
	return &types.ProductLine{ID: id, Name: name, CompanyID: in.CompanyID}, nil
}

// Update renames a product line and/or moves it to another company.
func (pt *ProductLinesTable) Update(ctx context.Context, id int64, in types.ProductLineUpdate) (*types.ProductLine, error) {
	unlock, err := pt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	line, err := getProductLine(ctx, pt.backend.catalog, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if line.Name, err = types.NormalizeName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.CompanyID != nil {
		if err := requireReference(ctx, pt.backend.catalog, "companies", *in.CompanyID); err != nil {
			return nil, err
		}
		line.CompanyID = *in.CompanyID
	}

	_, err = pt.backend.catalog.ExecContext(ctx,
		"UPDATE product_lines SET name = ?, company_id = ? WHERE id = ?", line.Name, line.CompanyID, id)
	if err != nil {
		return nil, fmt.Errorf("updating product line %d: %w", id, translateConstraint(err))
	}
	return line, nil
}

// Delete removes a product line. A line that still owns product sets is
// rejected with ErrHasChildren.
func (pt *ProductLinesTable) Delete(ctx context.Context, id int64) error {
	unlock, err := pt.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := pt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "product_lines", id); err != nil {
		return err
	}
	sets, err := count(ctx, tx, "SELECT COUNT(*) FROM product_sets WHERE product_line_id = ?", id)
	if err != nil {
		return fmt.Errorf("counting product sets of line %d: %w", id, err)
	}
	if sets > 0 {
		return fmt.Errorf("product line %d owns %d product sets: %w", id, sets, types.ErrHasChildren)
	}
	if err := deleteRow(ctx, tx, "product_lines", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing product line deletion: %w", err)
	}
	return nil
}

func getProductLine(ctx context.Context, q querier, id int64) (*types.ProductLine, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var l types.ProductLine
	err := q.QueryRowContext(ctx,
		"SELECT id, name, company_id FROM product_lines WHERE id = ?", id,
	).Scan(&l.ID, &l.Name, &l.CompanyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting product line %d: %w", id, err)
	}
	return &l, nil
}

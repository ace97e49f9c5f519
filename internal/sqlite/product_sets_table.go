// This file implements the product sets table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// ProductSetsTable reads and writes product sets in the catalog store.
type ProductSetsTable struct {
	backend *Backend
}

const productSetSummarySelect = `
SELECT ps.id, ps.name, ps.product_line_id, pl.name, c.id, c.name, COUNT(m.id)
FROM product_sets ps
JOIN product_lines pl ON pl.id = ps.product_line_id
JOIN companies c ON c.id = pl.company_id
LEFT JOIN minis m ON m.product_set_id = ps.id`

// List returns every product set with its ancestry and mini count.
func (st *ProductSetsTable) List(ctx context.Context) ([]types.ProductSetSummary, error) {
	unlock, err := st.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := st.backend.catalog.QueryContext(ctx, productSetSummarySelect+`
GROUP BY ps.id
ORDER BY c.name COLLATE NOCASE ASC, pl.name COLLATE NOCASE ASC, ps.name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing product sets: %w", err)
	}
	return scanProductSetSummaries(rows)
}

// ListByLine returns the product sets of a product line.
// Returns ErrNotFound if the line does not exist.
func (st *ProductSetsTable) ListByLine(ctx context.Context, lineID int64) ([]types.ProductSetSummary, error) {
	unlock, err := st.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := requireRow(ctx, st.backend.catalog, "product_lines", lineID); err != nil {
		return nil, err
	}

	rows, err := st.backend.catalog.QueryContext(ctx, productSetSummarySelect+`
WHERE ps.product_line_id = ?
GROUP BY ps.id
ORDER BY ps.name COLLATE NOCASE ASC`, lineID)
	if err != nil {
		return nil, fmt.Errorf("listing product sets of line %d: %w", lineID, err)
	}
	return scanProductSetSummaries(rows)
}

// Get retrieves a product set by ID.
func (st *ProductSetsTable) Get(ctx context.Context, id int64) (*types.ProductSet, error) {
	unlock, err := st.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return getProductSet(ctx, st.backend.catalog, id)
}

// Create inserts a product set under an existing product line.
func (st *ProductSetsTable) Create(ctx context.Context, in types.ProductSet) (*types.ProductSet, error) {
	name, err := types.NormalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	unlock, err := st.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := requireReference(ctx, st.backend.catalog, "product_lines", in.ProductLineID); err != nil {
		return nil, err
	}

	res, err := st.backend.catalog.ExecContext(ctx,
		"INSERT INTO product_sets (name, product_line_id) VALUES (?, ?)", name, in.ProductLineID)
	if err != nil {
		return nil, fmt.Errorf("inserting product set: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading product set id: %w", err)
	}
	return &types.ProductSet{ID: id, Name: name, ProductLineID: in.ProductLineID}, nil
}

// Update renames a product set and/or moves it to another line.
func (st *ProductSetsTable) Update(ctx context.Context, id int64, in types.ProductSetUpdate) (*types.ProductSet, error) {
	unlock, err := st.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	set, err := getProductSet(ctx, st.backend.catalog, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if set.Name, err = types.NormalizeName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.ProductLineID != nil {
		if err := requireReference(ctx, st.backend.catalog, "product_lines", *in.ProductLineID); err != nil {
			return nil, err
		}
		set.ProductLineID = *in.ProductLineID
	}

	_, err = st.backend.catalog.ExecContext(ctx,
		"UPDATE product_sets SET name = ?, product_line_id = ? WHERE id = ?", set.Name, set.ProductLineID, id)
	if err != nil {
		return nil, fmt.Errorf("updating product set %d: %w", id, translateConstraint(err))
	}
	return set, nil
}

// Delete removes a product set. A set still referenced by minis is rejected
// with ErrHasChildren.
func (st *ProductSetsTable) Delete(ctx context.Context, id int64) error {
	unlock, err := st.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := st.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "product_sets", id); err != nil {
		return err
	}
	minis, err := count(ctx, tx, "SELECT COUNT(*) FROM minis WHERE product_set_id = ?", id)
	if err != nil {
		return fmt.Errorf("counting minis of set %d: %w", id, err)
	}
	if minis > 0 {
		return fmt.Errorf("product set %d has %d minis: %w", id, minis, types.ErrHasChildren)
	}
	if err := deleteRow(ctx, tx, "product_sets", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing product set deletion: %w", err)
	}
	return nil
}

func getProductSet(ctx context.Context, q querier, id int64) (*types.ProductSet, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var s types.ProductSet
	err := q.QueryRowContext(ctx,
		"SELECT id, name, product_line_id FROM product_sets WHERE id = ?", id,
	).Scan(&s.ID, &s.Name, &s.ProductLineID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting product set %d: %w", id, err)
	}
	return &s, nil
}

func scanProductSetSummaries(rows *sql.Rows) ([]types.ProductSetSummary, error) {
	defer rows.Close()

	results := []types.ProductSetSummary{}
	for rows.Next() {
		var s types.ProductSetSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ProductLineID, &s.ProductLineName,
			&s.CompanyID, &s.CompanyName, &s.MiniCount); err != nil {
			return nil, fmt.Errorf("scanning product set: %w", err)
		}
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product sets: %w", err)
	}
	return results, nil
}

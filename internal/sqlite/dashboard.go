// This file computes the dashboard aggregates over the catalog store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// RecentMinis is the number of minis returned in Dashboard.Recent.
const RecentMinis = 10

// TopTags is the number of tags returned in Dashboard.TopTags.
const TopTags = 10

// Dashboard computes catalog totals and grouped counts in one read
// transaction so the numbers are mutually consistent.
func (b *Backend) Dashboard(ctx context.Context) (*types.Dashboard, error) {
	unlock, err := b.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := b.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning dashboard transaction: %w", err)
	}
	defer tx.Rollback()

	d := &types.Dashboard{}
	totals := []struct {
		dst   *int
		query string
	}{
		{&d.Totals.Minis, "SELECT COUNT(*) FROM minis"},
		{&d.Totals.Figures, "SELECT COALESCE(SUM(quantity), 0) FROM minis"},
		{&d.Totals.Unassigned, "SELECT COUNT(*) FROM minis WHERE product_set_id IS NULL"},
		{&d.Totals.Companies, "SELECT COUNT(*) FROM companies"},
		{&d.Totals.ProductLines, "SELECT COUNT(*) FROM product_lines"},
		{&d.Totals.ProductSets, "SELECT COUNT(*) FROM product_sets"},
		{&d.Totals.Types, "SELECT COUNT(*) FROM miniature_types"},
		{&d.Totals.Categories, "SELECT COUNT(*) FROM miniature_categories"},
		{&d.Totals.Tags, "SELECT COUNT(*) FROM tags"},
	}
	for _, t := range totals {
		if *t.dst, err = count(ctx, tx, t.query); err != nil {
			return nil, fmt.Errorf("computing dashboard totals: %w", err)
		}
	}

	groups := []struct {
		dst   *[]types.CountRow
		query string
	}{
		{&d.ByCompany, `
SELECT COALESCE(c.name, 'Unassigned'), COUNT(m.id), COALESCE(SUM(m.quantity), 0)
FROM minis m
LEFT JOIN product_sets ps ON ps.id = m.product_set_id
LEFT JOIN product_lines pl ON pl.id = ps.product_line_id
LEFT JOIN companies c ON c.id = pl.company_id
GROUP BY c.id
ORDER BY COUNT(m.id) DESC, COALESCE(c.name, 'Unassigned') COLLATE NOCASE ASC`},
		{&d.ByType, `
SELECT t.name, COUNT(m.id), COALESCE(SUM(m.quantity), 0)
FROM mini_types mt
JOIN miniature_types t ON t.id = mt.type_id
JOIN minis m ON m.id = mt.mini_id
WHERE mt.proxy_type = 0
GROUP BY t.id
ORDER BY COUNT(m.id) DESC, t.name COLLATE NOCASE ASC`},
		{&d.ByPaintedBy, `
SELECT pb.name, COUNT(m.id), COALESCE(SUM(m.quantity), 0)
FROM painted_by pb
LEFT JOIN minis m ON m.painted_by_id = pb.id
GROUP BY pb.id
ORDER BY pb.id ASC`},
		{&d.ByBaseSize, `
SELECT bs.name, COUNT(m.id), COALESCE(SUM(m.quantity), 0)
FROM base_sizes bs
LEFT JOIN minis m ON m.base_size_id = bs.id
GROUP BY bs.id
ORDER BY bs.sort_order ASC`},
		{&d.ByLocation, `
SELECT CASE WHEN location = '' THEN 'Unknown' ELSE location END AS place, COUNT(id), COALESCE(SUM(quantity), 0)
FROM minis
GROUP BY place
ORDER BY COUNT(id) DESC, place COLLATE NOCASE ASC`},
		{&d.TopTags, fmt.Sprintf(`
SELECT t.name, COUNT(m.id), COALESCE(SUM(m.quantity), 0)
FROM mini_tags mt
JOIN tags t ON t.id = mt.tag_id
JOIN minis m ON m.id = mt.mini_id
GROUP BY t.id
ORDER BY COUNT(m.id) DESC, t.name COLLATE NOCASE ASC
LIMIT %d`, TopTags)},
	}
	for _, g := range groups {
		if *g.dst, err = countRows(ctx, tx, g.query); err != nil {
			return nil, fmt.Errorf("computing dashboard groups: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
SELECT id, name, description, location, quantity, painted_by_id, base_size_id, product_set_id, created_at, updated_at
FROM minis
ORDER BY created_at DESC, id DESC
LIMIT %d`, RecentMinis))
	if err != nil {
		return nil, fmt.Errorf("listing recent minis: %w", err)
	}
	d.Recent = []types.Mini{}
	err = eachRow(rows, func(r *sql.Rows) error {
		var (
			m                types.Mini
			desc             sql.NullString
			setID            sql.NullInt64
			created, updated string
		)
		if err := r.Scan(&m.ID, &m.Name, &desc, &m.Location, &m.Quantity,
			&m.PaintedByID, &m.BaseSizeID, &setID, &created, &updated); err != nil {
			return err
		}
		m.Description = ptrString(desc)
		m.ProductSetID = ptrInt64(setID)
		var err error
		if m.CreatedAt, err = parseTime(created); err != nil {
			return err
		}
		if m.UpdatedAt, err = parseTime(updated); err != nil {
			return err
		}
		d.Recent = append(d.Recent, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning recent minis: %w", err)
	}
	return d, nil
}

func countRows(ctx context.Context, q querier, query string) ([]types.CountRow, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	out := []types.CountRow{}
	err = eachRow(rows, func(r *sql.Rows) error {
		var c types.CountRow
		if err := r.Scan(&c.Name, &c.Count, &c.Figures); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out, err
}

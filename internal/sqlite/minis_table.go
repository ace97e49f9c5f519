// This file implements the minis table accessor together with the
// mini-type and mini-tag join tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// MinisTable reads and writes minis in the catalog store.
type MinisTable struct {
	backend *Backend
}

const miniDetailSelect = `
SELECT m.id, m.name, m.description, m.location, m.quantity,
       m.painted_by_id, m.base_size_id, m.product_set_id, m.created_at, m.updated_at,
       pb.name, bs.name, ps.name, pl.id, pl.name, c.id, c.name
FROM minis m
JOIN painted_by pb ON pb.id = m.painted_by_id
JOIN base_sizes bs ON bs.id = m.base_size_id
LEFT JOIN product_sets ps ON ps.id = m.product_set_id
LEFT JOIN product_lines pl ON pl.id = ps.product_line_id
LEFT JOIN companies c ON c.id = pl.company_id`

// List returns every mini with joined names, types, categories and tags,
// most recently updated first.
func (mt *MinisTable) List(ctx context.Context) ([]types.MiniDetail, error) {
	unlock, err := mt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := mt.backend.catalog.QueryContext(ctx, miniDetailSelect+`
ORDER BY m.updated_at DESC, m.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing minis: %w", err)
	}
	minis, err := scanMiniDetails(rows)
	if err != nil {
		return nil, err
	}
	if err := attachMiniLinks(ctx, mt.backend.catalog, minis, 0); err != nil {
		return nil, err
	}
	return minis, nil
}

// Get retrieves a mini with its joined names and assignments.
func (mt *MinisTable) Get(ctx context.Context, id int64) (*types.MiniDetail, error) {
	unlock, err := mt.backend.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return getMiniDetail(ctx, mt.backend.catalog, id)
}

// Create validates and inserts a mini. Types and tags in the payload are
// assigned in the same transaction; a missing reference of any kind yields
// ErrInvalidReference and nothing is stored.
func (mt *MinisTable) Create(ctx context.Context, in types.MiniInput) (*types.MiniDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	unlock, err := mt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := mt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	m := types.Mini{
		Name:         in.Name,
		Description:  in.Description,
		Location:     in.Location,
		Quantity:     *in.Quantity,
		PaintedByID:  in.PaintedByID,
		BaseSizeID:   in.BaseSizeID,
		ProductSetID: in.ProductSetID,
	}
	if err := checkMiniReferences(ctx, tx, &m); err != nil {
		return nil, err
	}

	now := formatTime(mt.backend.timestamp())
	res, err := tx.ExecContext(ctx, `
INSERT INTO minis (name, description, location, quantity, painted_by_id, base_size_id, product_set_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, nullableString(m.Description), m.Location, m.Quantity,
		m.PaintedByID, m.BaseSizeID, nullableInt64(m.ProductSetID), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting mini: %w", translateConstraint(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading mini id: %w", err)
	}

	if err := replaceMiniTypes(ctx, tx, id, in.Types); err != nil {
		return nil, err
	}
	if err := replaceMiniTags(ctx, tx, id, in.TagIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mini: %w", err)
	}
	return getMiniDetail(ctx, mt.backend.catalog, id)
}

// Update merges a partial update into the stored mini. updated_at always
// advances, even for an update that changes nothing.
func (mt *MinisTable) Update(ctx context.Context, id int64, in types.MiniUpdate) (*types.MiniDetail, error) {
	unlock, err := mt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := mt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := getMini(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(m); err != nil {
		return nil, err
	}
	if err := checkMiniReferences(ctx, tx, m); err != nil {
		return nil, err
	}

	m.UpdatedAt = mt.backend.advance(m.UpdatedAt)
	_, err = tx.ExecContext(ctx, `
UPDATE minis SET name = ?, description = ?, location = ?, quantity = ?,
       painted_by_id = ?, base_size_id = ?, product_set_id = ?, updated_at = ?
WHERE id = ?`,
		m.Name, nullableString(m.Description), m.Location, m.Quantity,
		m.PaintedByID, m.BaseSizeID, nullableInt64(m.ProductSetID), formatTime(m.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating mini %d: %w", id, translateConstraint(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mini update: %w", err)
	}
	return getMiniDetail(ctx, mt.backend.catalog, id)
}

// Delete removes a mini together with its type and tag assignments.
func (mt *MinisTable) Delete(ctx context.Context, id int64) error {
	unlock, err := mt.backend.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := mt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, "minis", id); err != nil {
		return err
	}
	for _, stmt := range []string{
		"DELETE FROM mini_types WHERE mini_id = ?",
		"DELETE FROM mini_tags WHERE mini_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("unlinking mini %d: %w", id, err)
		}
	}
	if err := deleteRow(ctx, tx, "minis", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mini deletion: %w", err)
	}
	return nil
}

// SetTags replaces the tag set of a mini. The replacement is atomic: if
// any tag does not exist the call returns ErrInvalidReference and the
// previous tags are kept.
func (mt *MinisTable) SetTags(ctx context.Context, id int64, tagIDs []int64) (*types.MiniDetail, error) {
	return mt.replaceLinks(ctx, id, func(tx *sql.Tx) error {
		return replaceMiniTags(ctx, tx, id, tagIDs)
	})
}

// SetTypes replaces the type assignments of a mini with the same
// all-or-nothing behaviour as SetTags.
func (mt *MinisTable) SetTypes(ctx context.Context, id int64, links []types.MiniTypeLink) (*types.MiniDetail, error) {
	return mt.replaceLinks(ctx, id, func(tx *sql.Tx) error {
		return replaceMiniTypes(ctx, tx, id, links)
	})
}

func (mt *MinisTable) replaceLinks(ctx context.Context, id int64, replace func(*sql.Tx) error) (*types.MiniDetail, error) {
	unlock, err := mt.backend.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := mt.backend.catalog.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := getMini(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := replace(tx); err != nil {
		return nil, err
	}
	updated := mt.backend.advance(m.UpdatedAt)
	if _, err := tx.ExecContext(ctx,
		"UPDATE minis SET updated_at = ? WHERE id = ?", formatTime(updated), id); err != nil {
		return nil, fmt.Errorf("touching mini %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mini links: %w", err)
	}
	return getMiniDetail(ctx, mt.backend.catalog, id)
}

// advance returns the current time, or prev plus one microsecond when the
// clock has not moved past prev.
func (b *Backend) advance(prev time.Time) time.Time {
	now := b.timestamp()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// checkMiniReferences verifies the foreign keys of m so that a bad id is
// reported as ErrInvalidReference before the write.
func checkMiniReferences(ctx context.Context, tx *sql.Tx, m *types.Mini) error {
	if err := requireReference(ctx, tx, "painted_by", m.PaintedByID); err != nil {
		return err
	}
	if err := requireReference(ctx, tx, "base_sizes", m.BaseSizeID); err != nil {
		return err
	}
	if m.ProductSetID != nil {
		if err := requireReference(ctx, tx, "product_sets", *m.ProductSetID); err != nil {
			return err
		}
	}
	return nil
}

func replaceMiniTags(ctx context.Context, tx *sql.Tx, miniID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM mini_tags WHERE mini_id = ?", miniID); err != nil {
		return fmt.Errorf("clearing tags of mini %d: %w", miniID, err)
	}
	for _, tagID := range dedupeIDs(tagIDs) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO mini_tags (mini_id, tag_id) VALUES (?, ?)", miniID, tagID); err != nil {
			return fmt.Errorf("tagging mini %d with tag %d: %w", miniID, tagID, translateConstraint(err))
		}
	}
	return nil
}

func replaceMiniTypes(ctx context.Context, tx *sql.Tx, miniID int64, links []types.MiniTypeLink) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM mini_types WHERE mini_id = ?", miniID); err != nil {
		return fmt.Errorf("clearing types of mini %d: %w", miniID, err)
	}
	seen := make(map[int64]bool, len(links))
	for _, l := range links {
		if seen[l.TypeID] {
			continue
		}
		seen[l.TypeID] = true
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO mini_types (mini_id, type_id, proxy_type) VALUES (?, ?, ?)",
			miniID, l.TypeID, l.ProxyType); err != nil {
			return fmt.Errorf("assigning type %d to mini %d: %w", l.TypeID, miniID, translateConstraint(err))
		}
	}
	return nil
}

// getMini loads the bare mini row.
func getMini(ctx context.Context, q querier, id int64) (*types.Mini, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var (
		m                types.Mini
		desc             sql.NullString
		setID            sql.NullInt64
		created, updated string
	)
	err := q.QueryRowContext(ctx, `
SELECT id, name, description, location, quantity, painted_by_id, base_size_id, product_set_id, created_at, updated_at
FROM minis WHERE id = ?`, id).Scan(
		&m.ID, &m.Name, &desc, &m.Location, &m.Quantity,
		&m.PaintedByID, &m.BaseSizeID, &setID, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting mini %d: %w", id, err)
	}
	m.Description = ptrString(desc)
	m.ProductSetID = ptrInt64(setID)
	if m.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at of mini %d: %w", id, err)
	}
	if m.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at of mini %d: %w", id, err)
	}
	return &m, nil
}

func getMiniDetail(ctx context.Context, q querier, id int64) (*types.MiniDetail, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	rows, err := q.QueryContext(ctx, miniDetailSelect+"\nWHERE m.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("getting mini %d: %w", id, err)
	}
	minis, err := scanMiniDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(minis) == 0 {
		return nil, types.ErrNotFound
	}
	if err := attachMiniLinks(ctx, q, minis, id); err != nil {
		return nil, err
	}
	return &minis[0], nil
}

func scanMiniDetails(rows *sql.Rows) ([]types.MiniDetail, error) {
	defer rows.Close()

	results := []types.MiniDetail{}
	for rows.Next() {
		var (
			d                types.MiniDetail
			desc, setName    sql.NullString
			lineName, coName sql.NullString
			setID, lineID    sql.NullInt64
			coID             sql.NullInt64
			created, updated string
		)
		if err := rows.Scan(
			&d.ID, &d.Name, &desc, &d.Location, &d.Quantity,
			&d.PaintedByID, &d.BaseSizeID, &setID, &created, &updated,
			&d.PaintedByName, &d.BaseSizeName, &setName, &lineID, &lineName, &coID, &coName,
		); err != nil {
			return nil, fmt.Errorf("scanning mini: %w", err)
		}
		var err error
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parsing created_at of mini %d: %w", d.ID, err)
		}
		if d.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("parsing updated_at of mini %d: %w", d.ID, err)
		}
		d.Description = ptrString(desc)
		d.ProductSetID = ptrInt64(setID)
		d.ProductSetName = ptrString(setName)
		d.ProductLineID = ptrInt64(lineID)
		d.ProductLineName = ptrString(lineName)
		d.CompanyID = ptrInt64(coID)
		d.CompanyName = ptrString(coName)
		d.Types = []types.MiniTypeLink{}
		d.Categories = []types.MiniCategory{}
		d.Tags = []types.Tag{}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating minis: %w", err)
	}
	return results, nil
}

// attachMiniLinks fills Types, Categories and Tags of minis. When only is
// non-zero the join queries are restricted to that mini.
func attachMiniLinks(ctx context.Context, q querier, minis []types.MiniDetail, only int64) error {
	if len(minis) == 0 {
		return nil
	}
	index := make(map[int64]int, len(minis))
	for i := range minis {
		index[minis[i].ID] = i
	}
	where, args := "", []any{}
	if only != 0 {
		where, args = " WHERE mt.mini_id = ?", []any{only}
	}

	rows, err := q.QueryContext(ctx, `
SELECT mt.mini_id, t.id, t.name, mt.proxy_type
FROM mini_types mt JOIN miniature_types t ON t.id = mt.type_id`+where+`
ORDER BY mt.proxy_type ASC, t.name COLLATE NOCASE ASC`, args...)
	if err != nil {
		return fmt.Errorf("loading mini types: %w", err)
	}
	err = eachRow(rows, func(r *sql.Rows) error {
		var miniID int64
		var l types.MiniTypeLink
		if err := r.Scan(&miniID, &l.TypeID, &l.Name, &l.ProxyType); err != nil {
			return err
		}
		if i, ok := index[miniID]; ok {
			minis[i].Types = append(minis[i].Types, l)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning mini types: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
SELECT DISTINCT mt.mini_id, c.id, c.name
FROM mini_types mt
JOIN type_categories tc ON tc.type_id = mt.type_id
JOIN miniature_categories c ON c.id = tc.category_id`+where+`
ORDER BY c.name COLLATE NOCASE ASC`, args...)
	if err != nil {
		return fmt.Errorf("loading mini categories: %w", err)
	}
	err = eachRow(rows, func(r *sql.Rows) error {
		var miniID int64
		var c types.MiniCategory
		if err := r.Scan(&miniID, &c.ID, &c.Name); err != nil {
			return err
		}
		if i, ok := index[miniID]; ok {
			minis[i].Categories = append(minis[i].Categories, c)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning mini categories: %w", err)
	}

	rows, err = q.QueryContext(ctx, `
SELECT mt.mini_id, t.id, t.name
FROM mini_tags mt JOIN tags t ON t.id = mt.tag_id`+where+`
ORDER BY t.name COLLATE NOCASE ASC`, args...)
	if err != nil {
		return fmt.Errorf("loading mini tags: %w", err)
	}
	err = eachRow(rows, func(r *sql.Rows) error {
		var miniID int64
		var t types.Tag
		if err := r.Scan(&miniID, &t.ID, &t.Name); err != nil {
			return err
		}
		if i, ok := index[miniID]; ok {
			minis[i].Tags = append(minis[i].Tags, t)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning mini tags: %w", err)
	}
	return nil
}

// eachRow calls fn for every row and closes rows.
func eachRow(rows *sql.Rows, fn func(*sql.Rows) error) error {
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

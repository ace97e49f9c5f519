package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// timeLayout is the on-disk timestamp format. The fraction is fixed width so
// that stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// uniqueName matches a UNIQUE failure on a single name column, as in
// "UNIQUE constraint failed: tags.name".
var uniqueName = regexp.MustCompile(`UNIQUE constraint failed: \w+\.name\b`)

// duplicate picks the name or the relationship sentinel for a UNIQUE failure.
func duplicate(err error) error {
	if uniqueName.MatchString(err.Error()) {
		return fmt.Errorf("%w: %v", types.ErrDuplicateName, err)
	}
	return fmt.Errorf("%w: %v", types.ErrDuplicate, err)
}

// translateConstraint maps SQLite constraint violations onto the sentinel
// errors of package types. Other errors are returned unchanged.
func translateConstraint(err error) error {
	if err == nil {
		return nil
	}
	var serr *msqlite.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return duplicate(err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", types.ErrInvalidReference, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	if serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := serr.Error()
		switch {
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %v", types.ErrInvalidReference, err)
		case strings.Contains(msg, "UNIQUE"):
			return duplicate(err)
		}
	}
	return err
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// exists reports whether query returns at least one row.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// count runs a COUNT(*) style query.
func count(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// requireRow returns ErrNotFound unless table has a row with the given id.
// table is always a package constant, never caller input.
func requireRow(ctx context.Context, q querier, table string, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	ok, err := exists(ctx, q, "SELECT 1 FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("checking %s %d: %w", table, id, err)
	}
	if !ok {
		return types.ErrNotFound
	}
	return nil
}

// requireReference is requireRow for a foreign key supplied by the caller:
// a missing row is a validation error, not a 404.
func requireReference(ctx context.Context, q querier, table string, id int64) error {
	err := requireRow(ctx, q, table, id)
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidID) {
		return fmt.Errorf("%w: %s %d", types.ErrInvalidReference, table, id)
	}
	return err
}

// renameRow updates the name column of a simple (id, name) table.
func renameRow(ctx context.Context, db *sql.DB, table string, id int64, name string) error {
	res, err := db.ExecContext(ctx, "UPDATE "+table+" SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", table, id, translateConstraint(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", table, id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// deleteRow deletes a row by id and reports ErrNotFound when nothing was
// deleted.
func deleteRow(ctx context.Context, q querier, table string, id int64) error {
	res, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		if errors.Is(translateConstraint(err), types.ErrInvalidReference) {
			return fmt.Errorf("deleting %s %d: %w", table, id, types.ErrInUse)
		}
		return fmt.Errorf("deleting %s %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", table, id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// nullableInt64 converts a pointer into a driver value.
func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// nullableString converts a pointer into a driver value.
func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// Package sqlite implements the SQLite storage backend for MiniatureDB.
//
// The backend owns two databases in the data directory: users.db holds
// credentials, sessions and preferences; catalog.db holds companies, product
// lines and sets, classification, tags, reference tables and minis. Both are
// opened by Attach and closed by Detach; callers hold the *Backend explicitly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Database file names inside DataDir.
const (
	UsersDBFile   = "users.db"
	CatalogDBFile = "catalog.db"
)

var _ types.Store = (*Backend)(nil)

// Backend implements types.Store over two SQLite databases. Reads share
// mu; writes take it exclusively so that multi-statement transactions never
// race on SQLITE_BUSY.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	users    *sql.DB
	catalog  *sql.DB

	// now is the clock used for timestamps; tests replace it.
	now func() time.Time
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{now: time.Now}
}

// Attach initializes the backend with the given configuration.
// Creates DataDir if it does not exist, opens both databases, applies the
// schema and seeds the reference tables on first run.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	timeout := config.EffectiveBusyTimeout()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	users, err := openDB(filepath.Join(dataDir, UsersDBFile), timeout, usersSchemaDDL)
	if err != nil {
		return fmt.Errorf("opening users store: %w", err)
	}

	catalog, err := openDB(filepath.Join(dataDir, CatalogDBFile), timeout, catalogSchemaDDL)
	if err != nil {
		users.Close()
		return fmt.Errorf("opening catalog store: %w", err)
	}

	if err := seedReferenceData(context.Background(), catalog); err != nil {
		users.Close()
		catalog.Close()
		return fmt.Errorf("seeding reference data: %w", err)
	}

	b.users = users
	b.catalog = catalog
	b.config = config
	b.attached = true
	return nil
}

// Detach releases all resources held by the backend. After Detach, all
// operations return ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	var firstErr error
	if b.catalog != nil {
		if err := b.catalog.Close(); err != nil {
			firstErr = err
		}
		b.catalog = nil
	}
	if b.users != nil {
		if err := b.users.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.users = nil
	}

	b.attached = false
	return firstErr
}

// DataDir returns the directory the backend is attached to.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config.DataDir
}

// Ping checks that both databases answer.
func (b *Backend) Ping(ctx context.Context) error {
	unlock, err := b.rlock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.users.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging users store: %w", err)
	}
	if err := b.catalog.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging catalog store: %w", err)
	}
	return nil
}

// Table accessors. Each accessor is a thin handle; it is safe to call them
// before Attach, operations will then fail with ErrStoreDetached.

func (b *Backend) Companies() *CompaniesTable       { return &CompaniesTable{backend: b} }
func (b *Backend) ProductLines() *ProductLinesTable { return &ProductLinesTable{backend: b} }
func (b *Backend) ProductSets() *ProductSetsTable   { return &ProductSetsTable{backend: b} }
func (b *Backend) Types() *TypesTable               { return &TypesTable{backend: b} }
func (b *Backend) Categories() *CategoriesTable     { return &CategoriesTable{backend: b} }
func (b *Backend) Tags() *TagsTable                 { return &TagsTable{backend: b} }
func (b *Backend) Minis() *MinisTable               { return &MinisTable{backend: b} }
func (b *Backend) BaseSizes() *BaseSizesTable       { return &BaseSizesTable{backend: b} }
func (b *Backend) PaintedBy() *PaintedByTable       { return &PaintedByTable{backend: b} }
func (b *Backend) Users() *UsersTable               { return &UsersTable{backend: b} }
func (b *Backend) Sessions() *SessionsTable         { return &SessionsTable{backend: b} }
func (b *Backend) Preferences() *PreferencesTable   { return &PreferencesTable{backend: b} }

// rlock takes the shared lock and verifies the backend is attached. The
// returned func releases the lock.
func (b *Backend) rlock() (func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, types.ErrStoreDetached
	}
	return b.mu.RUnlock, nil
}

// lock is the exclusive counterpart of rlock, used by every write.
func (b *Backend) lock() (func(), error) {
	b.mu.Lock()
	if !b.attached {
		b.mu.Unlock()
		return nil, types.ErrStoreDetached
	}
	return b.mu.Unlock, nil
}

// timestamp returns the current time in UTC.
func (b *Backend) timestamp() time.Time {
	return b.now().UTC()
}

// openDB opens a SQLite database with foreign keys enforced, WAL journaling
// and a busy timeout, then applies ddl.
func openDB(path string, busyTimeout time.Duration, ddl []string) (*sql.DB, error) {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}
	return db, nil
}

// Tests for the backend lifecycle: attach, detach, schema and seeding.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// setupBackend creates an attached Backend on a fresh temp directory and
// detaches it when the test ends.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{DataDir: t.TempDir()}
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{DataDir: tmpDir}
	require.NoError(t, b.Attach(config))
	defer b.Detach()

	for _, name := range []string{UsersDBFile, CatalogDBFile} {
		_, err := os.Stat(filepath.Join(tmpDir, name))
		assert.NoError(t, err, "%s should exist", name)
	}
	assert.Equal(t, tmpDir, b.DataDir())
	assert.NoError(t, b.Ping(context.Background()))

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{"missing data dir", types.Config{}, types.ErrDataDirEmpty},
		{"negative busy timeout", types.Config{DataDir: t.TempDir(), BusyTimeout: -time.Second}, types.ErrInvalidBusyTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			assert.ErrorIs(t, b.Attach(tt.config), tt.wantErr)
		})
	}
}

func TestBackend_BusyTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantMS  int
	}{
		{"default", 0, 5000},
		{"configured", 1500 * time.Millisecond, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend()
			require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir(), BusyTimeout: tt.timeout}))
			defer b.Detach()

			for _, db := range []*sql.DB{b.users, b.catalog} {
				var ms int
				require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&ms))
				assert.Equal(t, tt.wantMS, ms)
			}
		})
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{DataDir: t.TempDir()}))

	require.NoError(t, b.Detach())
	assert.NoError(t, b.Detach(), "second Detach should be a no-op")

	ctx := context.Background()
	_, err := b.Companies().List(ctx)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	_, err = b.Users().List(ctx)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, b.Ping(ctx), types.ErrStoreDetached)
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	config := types.Config{DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	c, err := b.Companies().Create(ctx, types.NameInput{Name: "Reaper"})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	defer b2.Detach()

	got, err := b2.Companies().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reaper", got.Name)

	sizes, err := b2.BaseSizes().List(ctx)
	require.NoError(t, err)
	seed, err := loadReferenceSeed()
	require.NoError(t, err)
	assert.Len(t, sizes, len(seed.BaseSizes), "seeding must not repeat on reattach")
}

func TestSeedReferenceData(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	seed, err := loadReferenceSeed()
	require.NoError(t, err)
	require.NotEmpty(t, seed.BaseSizes)
	require.NotEmpty(t, seed.PaintedBy)

	sizes, err := b.BaseSizes().List(ctx)
	require.NoError(t, err)
	require.Len(t, sizes, len(seed.BaseSizes))
	for i, s := range sizes {
		assert.Equal(t, seed.BaseSizes[i].Name, s.Name)
		assert.Equal(t, seed.BaseSizes[i].SortOrder, s.SortOrder)
	}

	painters, err := b.PaintedBy().List(ctx)
	require.NoError(t, err)
	require.Len(t, painters, len(seed.PaintedBy))
	for i, p := range painters {
		assert.Equal(t, seed.PaintedBy[i], p.Name)
	}
}

func TestCatalogTablesMatchTypes(t *testing.T) {
	names := make([]string, len(catalogTables))
	for i, ct := range catalogTables {
		names[i] = ct.table
	}
	assert.Equal(t, types.CatalogTableNames, names)
}

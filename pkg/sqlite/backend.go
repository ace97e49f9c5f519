// Package sqlite provides the public API for the SQLite storage backend.
// It exposes the factory functions while keeping the table implementations
// internal.
package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/miniaturedb/internal/sqlite"
	"github.com/mesh-intelligence/miniaturedb/pkg/types"
)

// Backend holds the user store and the catalog store.
type Backend = sqlite.Backend

// Manifest describes a catalog export or import.
type Manifest = sqlite.Manifest

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return sqlite.NewBackend()
}

// Open creates a backend and attaches it to config.DataDir, creating both
// stores and the reference data on first use.
//
// Example:
//
//	backend, err := sqlite.Open(types.Config{DataDir: "/var/lib/miniaturedb"})
//	if err != nil {
//	    return err
//	}
//	defer backend.Detach()
func Open(config types.Config) (*Backend, error) {
	b := sqlite.NewBackend()
	if err := b.Attach(config); err != nil {
		return nil, fmt.Errorf("attach %s: %w", config.DataDir, err)
	}
	return b, nil
}

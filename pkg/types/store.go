package types

import "errors"

// Store is the lifecycle contract of a storage backend. A backend is
// constructed unattached, attached once at process start and detached at
// shutdown; there is no ambient database handle.
type Store interface {
	// Attach opens the user and catalog stores described by config,
	// creating the data directory and schema if needed. Returns
	// ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent. After Detach every
	// table operation returns ErrStoreDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Table operation errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidData      = errors.New("invalid entity data")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidQuantity  = errors.New("quantity must not be negative")
	ErrInvalidReference = errors.New("referenced entity does not exist")
	ErrDuplicate        = errors.New("relationship already exists")
	ErrDuplicateName    = errors.New("name already exists")
	ErrHasChildren      = errors.New("entity still owns child records")
	ErrInUse            = errors.New("entity is referenced by miniatures")
)

// Account and session errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters")
	ErrInvalidUsername    = errors.New("invalid username")
)

// Setting and image errors.
var (
	ErrInvalidSetting = errors.New("invalid setting")
	ErrInvalidImage   = errors.New("invalid image")
)

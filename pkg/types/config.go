package types

import (
	"errors"
	"time"
)

// DefaultBusyTimeout is how long a store connection waits on a locked
// database when Config leaves BusyTimeout zero.
const DefaultBusyTimeout = 5 * time.Second

// Config locates the stores and tunes their connections for Store.Attach.
type Config struct {
	DataDir     string        `json:"data_dir" yaml:"data_dir"`
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`
}

// Config validation errors.
var (
	ErrDataDirEmpty       = errors.New("data dir must not be empty")
	ErrInvalidBusyTimeout = errors.New("busy timeout must not be negative")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if c.BusyTimeout < 0 {
		return ErrInvalidBusyTimeout
	}
	return nil
}

// EffectiveBusyTimeout returns BusyTimeout, or DefaultBusyTimeout when unset.
func (c Config) EffectiveBusyTimeout() time.Duration {
	if c.BusyTimeout == 0 {
		return DefaultBusyTimeout
	}
	return c.BusyTimeout
}

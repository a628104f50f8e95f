package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"sitebeep/internal/core/model"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Backend names a Store implementation.
type Backend string

const (
	BackendYAML   Backend = "yaml"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// Store persists Preferences. Update applies mutate to the current state and
// writes the result; on error nothing is written.
type Store interface {
	CurrentState() (model.Preferences, error)
	Update(mutate func(*model.Preferences)) error
	Close() error
}

// Open returns the store for backend rooted at dir.
func Open(backend Backend, dir string) (Store, error) {
	switch backend {
	case BackendYAML, "":
		return NewYAMLStore(filepath.Join(dir, stateFileName)), nil
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, sqliteFileName))
	case BackendMemory:
		return NewMemoryStore(model.DefaultPreferences()), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

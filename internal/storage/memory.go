package storage

import (
	"sync"

	"sitebeep/internal/core/model"
)

// MemoryStore is a volatile Store. FailWrites makes every Update fail,
// which lets callers exercise persistence error paths.
type MemoryStore struct {
	mu       sync.Mutex
	prefs    model.Preferences
	writeErr error
	writes   int
	closed   bool
}

// NewMemoryStore returns a store seeded with prefs.
func NewMemoryStore(prefs model.Preferences) *MemoryStore {
	return &MemoryStore{prefs: prefs.Clone()}
}

func (store *MemoryStore) CurrentState() (model.Preferences, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.closed {
		return model.Preferences{}, ErrClosed
	}
	return store.prefs.Clone(), nil
}

func (store *MemoryStore) Update(mutate func(*model.Preferences)) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.closed {
		return ErrClosed
	}
	if store.writeErr != nil {
		return store.writeErr
	}
	next := store.prefs.Clone()
	mutate(&next)
	store.prefs = next
	store.writes++
	return nil
}

func (store *MemoryStore) Close() error {
	store.mu.Lock()
	store.closed = true
	store.mu.Unlock()
	return nil
}

// FailWrites makes subsequent updates return err; nil restores normal writes.
func (store *MemoryStore) FailWrites(err error) {
	store.mu.Lock()
	store.writeErr = err
	store.mu.Unlock()
}

// Writes returns the number of successful updates.
func (store *MemoryStore) Writes() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.writes
}

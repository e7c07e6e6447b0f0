package storage

import (
	"sync"

	"github.com/dougsko/rigsetup/pkg/settings"
)

// MemoryStore keeps the record in memory, for tests and the simulator. Fail
// makes the next saves return an error.
type MemoryStore struct {
	mu     sync.Mutex
	rec    settings.Record
	saved  bool
	saves  int
	failed error
}

// NewMemoryStore creates an empty store; Load returns the defaults
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a store that already holds rec
func NewMemoryStoreWith(rec settings.Record) *MemoryStore {
	return &MemoryStore{rec: rec, saved: true}
}

// Load returns the stored record
func (m *MemoryStore) Load() (settings.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return settings.Defaults(), nil
	}
	return m.rec, nil
}

// Save stores rec unless a failure is set
func (m *MemoryStore) Save(rec settings.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed != nil {
		return m.failed
	}
	m.rec = rec
	m.saved = true
	m.saves++
	return nil
}

// Fail makes every later Save return err; nil restores normal saves
func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	m.failed = err
	m.mu.Unlock()
}

// Saves returns the number of successful saves
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

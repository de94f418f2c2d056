// Package memory implements a store that keeps the ledger snapshot in memory.
// It is used by tests and by nodes that don't need to survive a restart.
package memory

import (
	"encoding/json"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/storage"
)

// Memory represents the serialization implementation for reading and storing
// the ledger snapshot in memory. This implements the storage.Store interface.
type Memory struct {
	mu       sync.RWMutex
	data     []byte
	writes   int
	writeErr error
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Read returns a copy of the last snapshot written.
func (m *Memory) Read() (storage.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var snapshot storage.Snapshot
	if m.data == nil {
		return snapshot, nil
	}

	if err := json.Unmarshal(m.data, &snapshot); err != nil {
		return storage.Snapshot{}, err
	}

	return snapshot, nil
}

// Write stores a copy of the snapshot. The snapshot is kept in its encoded
// form so later changes by the caller don't leak into the store.
func (m *Memory) Write(snapshot storage.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	m.data = data
	m.writes++

	return nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Writes returns the number of successful writes.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}

// FailWrites makes every following write fail with the error. Passing nil
// makes writes succeed again.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeErr = err
}

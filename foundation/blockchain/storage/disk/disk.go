// Package disk implements a store that keeps the ledger snapshot in a single
// JSON file.
package disk

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/storage"
)

// fileName is the name of the snapshot file inside the database directory.
const fileName = "ledger.json"

// Disk represents the serialization implementation for reading and storing
// the ledger snapshot on disk. This implements the storage.Store interface.
type Disk struct {
	mu     sync.Mutex
	dbPath string
}

// New constructs a Disk value for use, making sure the directory exists.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Read loads the snapshot from disk. A database that was never written
// returns an empty snapshot.
func (d *Disk) Read() (storage.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.Snapshot{}, nil
		}
		return storage.Snapshot{}, err
	}

	var snapshot storage.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return storage.Snapshot{}, err
	}

	return snapshot, nil
}

// Write replaces the snapshot on disk. The data is written to a temporary
// file and renamed over the old snapshot so a crash never leaves a partial
// file behind.
func (d *Disk) Write(snapshot storage.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Marshal the snapshot in a more human readable format.
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(d.dbPath, fileName+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, d.path())
}

// Close in this implementation has nothing to do since every write opens and
// closes its own file.
func (d *Disk) Close() error {
	return nil
}

// path forms the path to the snapshot file.
func (d *Disk) path() string {
	return filepath.Join(d.dbPath, fileName)
}

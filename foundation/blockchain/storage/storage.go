// Package storage defines the contract between the ledger and the place its
// chain and pending pool are persisted.
package storage

import "github.com/campusledger/blockchain/foundation/blockchain/database"

// Snapshot is the whole collection the ledger persists. Every write replaces
// the previous snapshot entirely.
type Snapshot struct {
	Blocks       []database.Block `json:"blocks"`
	Transactions []database.Tx    `json:"transactions"`
}

// Store is the behavior required by the ledger to persist its state. A write
// must be durable before it returns without error.
type Store interface {
	Read() (Snapshot, error)
	Write(snapshot Snapshot) error
	Close() error
}

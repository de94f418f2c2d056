// Package mempool maintains the pool of pending transactions for the
// blockchain.
package mempool

import (
	"fmt"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// Mempool represents a cache of pending transactions keyed by id. The order
// transactions arrived in is kept so miners select them first come, first
// served.
type Mempool struct {
	mu    sync.RWMutex
	pool  map[string]database.Tx
	order []string
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Tx),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the end of the pool. A transaction with an id
// already in the pool is reported as a duplicate.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; exists {
		return len(mp.pool), fmt.Errorf("%w: tx[%s] in pool", database.ErrDuplicate, tx.ID)
	}

	mp.pool[tx.ID] = tx
	mp.order = append(mp.order, tx.ID)

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(id string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[id]; !exists {
		return
	}

	delete(mp.pool, id)
	for i, key := range mp.order {
		if key == id {
			mp.order = append(mp.order[:i], mp.order[i+1:]...)
			break
		}
	}
}

// Exists reports whether the transaction is in the pool.
func (mp *Mempool) Exists(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Get returns the transaction with the specified id.
func (mp *Mempool) Get(id string) (database.Tx, error) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[id]
	if !exists {
		return database.Tx{}, fmt.Errorf("%w: tx[%s] in pool", database.ErrNotFound, id)
	}

	return tx, nil
}

// Consumer returns the pooled transaction that spends the output.
func (mp *Mempool) Consumer(op database.OutPoint) (database.Tx, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	for _, id := range mp.order {
		tx := mp.pool[id]
		for _, in := range tx.Inputs {
			if in.OutPoint() == op {
				return tx, true
			}
		}
	}

	return database.Tx{}, false
}

// Copy returns the transactions in the order they arrived.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.Tx, 0, len(mp.order))
	for _, id := range mp.order {
		txs = append(txs, mp.pool[id])
	}

	return txs
}

// Replace swaps the contents of the pool for the transactions provided,
// keeping their order. Later copies of an id are dropped.
func (mp *Mempool) Replace(txs []database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx, len(txs))
	mp.order = make([]string, 0, len(txs))

	for _, tx := range txs {
		if _, exists := mp.pool[tx.ID]; exists {
			continue
		}
		mp.pool[tx.ID] = tx
		mp.order = append(mp.order, tx.ID)
	}
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.Tx)
	mp.order = nil
}

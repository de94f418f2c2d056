package state

import (
	"fmt"
	"math/big"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// LatestBlock returns the head of the chain.
func (s *State) LatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blocks[len(s.blocks)-1]
}

// Length returns the number of blocks in the chain, genesis included.
func (s *State) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.blocks)
}

// Blocks returns a copy of the chain.
func (s *State) Blocks() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]database.Block, len(s.blocks))
	copy(blocks, s.blocks)

	return blocks
}

// BlockByIndex returns the block at the specified index.
func (s *State) BlockByIndex(index uint64) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index >= uint64(len(s.blocks)) {
		return database.Block{}, fmt.Errorf("%w: block[%d]", database.ErrNotFound, index)
	}

	return s.blocks[index], nil
}

// BlockByHash returns the block with the specified hash.
func (s *State) BlockByHash(hash string) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.blocks {
		if b.Hash == hash {
			return b, nil
		}
	}

	return database.Block{}, fmt.Errorf("%w: block hash %s", database.ErrNotFound, hash)
}

// CumulativeWork returns the total work of the chain.
func (s *State) CumulativeWork() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return database.CumulativeWork(s.blocks)
}

// Difficulty returns the difficulty a block at the specified index must meet
// on the current chain.
func (s *State) Difficulty(index uint64) uint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.difficulty(s.blocks, index)
}

// =============================================================================

// Pending returns a copy of the pending pool in arrival order.
func (s *State) Pending() []database.Tx {
	return s.mempool.Copy()
}

// PendingTransaction returns the pending transaction with the specified id.
func (s *State) PendingTransaction(id string) (database.Tx, error) {
	return s.mempool.Get(id)
}

// TransactionFromBlocks returns the confirmed transaction with the specified
// id and the index of the block holding it.
func (s *State) TransactionFromBlocks(id string) (database.Tx, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, exists := s.index.tx(id)
	if !exists {
		return database.Tx{}, 0, fmt.Errorf("%w: tx[%s] in chain", database.ErrNotFound, id)
	}

	return loc.tx, loc.block, nil
}

// IsConfirmed reports whether the transaction is part of an accepted block.
func (s *State) IsConfirmed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.index.tx(id)
	return exists
}

// UnspentOutputsForAddress returns the outputs paid to the address that no
// transaction in the chain or the pool spends. Payload outputs are records,
// not value, and are never returned.
func (s *State) UnspentOutputsForAddress(address string) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := s.mempool.Copy()

	pendingSpent := make(map[database.OutPoint]struct{})
	for _, tx := range pending {
		for _, in := range tx.Inputs {
			pendingSpent[in.OutPoint()] = struct{}{}
		}
	}

	var utxos []database.UTXO
	collect := func(tx database.Tx) {
		if tx.Type.IsPayload() {
			return
		}

		for i, out := range tx.Outputs {
			if out.Address != address {
				continue
			}

			op := database.OutPoint{TxID: tx.ID, Index: uint64(i)}
			if _, spent := s.index.spender(op); spent {
				continue
			}
			if _, spent := pendingSpent[op]; spent {
				continue
			}

			utxos = append(utxos, database.UTXO{
				TxID:    tx.ID,
				Index:   uint64(i),
				Amount:  out.Amount,
				Address: out.Address,
			})
		}
	}

	for _, b := range s.blocks {
		for _, tx := range b.Transactions {
			collect(tx)
		}
	}
	for _, tx := range pending {
		collect(tx)
	}

	return utxos
}

// Balance returns the sum of the unspent outputs for the address.
func (s *State) Balance(address string) uint64 {
	var total uint64
	for _, utxo := range s.UnspentOutputsForAddress(address) {
		total += utxo.Amount
	}

	return total
}

package state

import (
	"encoding/json"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// AddTransaction validates the transaction and adds it to the pending pool.
// A transaction already known to the ledger is reported with ErrDuplicate,
// which callers treat as a no-op.
func (s *State) AddTransaction(tx database.Tx) error {
	s.evHandler("state: AddTransaction: started: tx[%s]", tx)
	defer s.evHandler("state: AddTransaction: completed: tx[%s]", tx)

	s.mu.Lock()

	if err := s.validateTx(s.index, s.mempool, tx); err != nil {
		s.mu.Unlock()
		return err
	}

	pool := append(s.mempool.Copy(), tx)

	s.evHandler("state: AddTransaction: write to store")

	if err := s.persist(s.blocks, pool); err != nil {
		s.mu.Unlock()
		return err
	}

	s.mempool.Upsert(tx)

	s.unlockAndNotify(func(o Observer) {
		o.TransactionAdded(tx)
	})

	return nil
}

// AddBlock validates the block against the current head and appends it to
// the chain. The block is accepted or rejected as a whole. Transactions it
// confirms, and pending transactions it invalidates, leave the pool.
func (s *State) AddBlock(block database.Block) error {
	s.evHandler("state: AddBlock: started: blk[%d]: hash[%s]", block.Index, block.Hash)
	defer s.evHandler("state: AddBlock: completed: blk[%d]", block.Index)

	s.mu.Lock()

	if err := s.validateBlock(s.blocks, s.index, block); err != nil {
		s.mu.Unlock()
		s.evHandler("state: AddBlock: rejected: blk[%d]: %s", block.Index, err)
		return err
	}

	blocks := make([]database.Block, len(s.blocks), len(s.blocks)+1)
	copy(blocks, s.blocks)
	blocks = append(blocks, block)

	idx := newChainIndex(blocks)
	pool := s.revalidatePool(idx, s.mempool.Copy())

	s.evHandler("state: AddBlock: write to store")

	if err := s.persist(blocks, pool); err != nil {
		s.mu.Unlock()
		return err
	}

	s.blocks = blocks
	s.index = idx
	s.mempool.Replace(pool)

	s.blockEvent(block)

	s.unlockAndNotify(func(o Observer) {
		o.BlockAdded(block)
	})

	return nil
}

// blockEvent sends a viewer event describing the block.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		data = []byte("{}")
	}

	s.evHandler("viewer: block: %s", string(data))
}

package state

import (
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
)

// MiningSnapshot is a point in time view of the ledger used to build a
// candidate block outside of the ledger lock.
type MiningSnapshot struct {
	Head       database.Block
	Pending    []database.Tx
	Difficulty uint
	Genesis    genesis.Genesis

	// ChainSpent holds the outputs referenced by pending inputs that the
	// chain has already consumed.
	ChainSpent map[database.OutPoint]bool

	// ChainTxs holds the ids referenced by pending inputs that are confirmed.
	ChainTxs map[string]bool
}

// MiningSnapshot captures the chain head, the pending pool and the difficulty
// for the next block in one consistent read.
func (s *State) MiningSnapshot() MiningSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head := s.blocks[len(s.blocks)-1]
	pending := s.mempool.Copy()

	spent := make(map[database.OutPoint]bool)
	confirmed := make(map[string]bool)
	for _, tx := range pending {
		for _, in := range tx.Inputs {
			if _, exists := s.index.spender(in.OutPoint()); exists {
				spent[in.OutPoint()] = true
			}
			if _, exists := s.index.tx(in.SourceTxID); exists {
				confirmed[in.SourceTxID] = true
			}
		}
	}

	return MiningSnapshot{
		Head:       head,
		Pending:    pending,
		Difficulty: s.difficulty(s.blocks, head.Index+1),
		Genesis:    s.genesis,
		ChainSpent: spent,
		ChainTxs:   confirmed,
	}
}

package state

import (
	"fmt"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// CheckChain fully re-derives the validity of a chain: the genesis block,
// then every block against the blocks before it in the same chain. The
// ledger is not changed.
func (s *State) CheckChain(chain []database.Block) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: empty chain", database.ErrStructural)
	}

	if !database.IsGenesis(chain[0]) {
		return fmt.Errorf("%w: genesis block doesn't match", database.ErrChainLinkage)
	}

	idx := newChainIndex(chain[:1])
	for i := 1; i < len(chain); i++ {
		if err := s.validateBlock(chain[:i], idx, chain[i]); err != nil {
			return err
		}
		idx.add(chain[i])
	}

	return nil
}

// ReplaceChain adopts the candidate chain when it is longer than the current
// chain, carries more cumulative work and passes CheckChain. Otherwise the
// current chain is kept and an error returned.
//
// Transactions only found in the superseded blocks go back to the pool, ahead
// of the transactions already pending. The pool is then pruned of anything
// the candidate confirms or invalidates.
func (s *State) ReplaceChain(candidate []database.Block) error {
	s.evHandler("state: ReplaceChain: started: blocks[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	s.mu.Lock()

	if len(candidate) <= len(s.blocks) {
		s.mu.Unlock()
		return fmt.Errorf("%w: length %d, current %d", database.ErrChainNotBetter, len(candidate), len(s.blocks))
	}

	current := database.CumulativeWork(s.blocks)
	work := database.CumulativeWork(candidate)
	if work.Cmp(current) <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: work %s, current %s", database.ErrChainNotBetter, work, current)
	}

	if err := s.CheckChain(candidate); err != nil {
		s.mu.Unlock()
		s.evHandler("state: ReplaceChain: rejected: %s", err)
		return err
	}

	chain := make([]database.Block, len(candidate))
	copy(chain, candidate)

	idx := newChainIndex(chain)

	// Find where the chains diverge.
	fork := 0
	for fork < len(s.blocks) && s.blocks[fork].Hash == chain[fork].Hash {
		fork++
	}

	var returned []database.Tx
	for _, b := range s.blocks[fork:] {
		for _, tx := range b.Transactions {
			if tx.Type.IsMinted() {
				continue
			}
			if _, exists := idx.tx(tx.ID); exists {
				continue
			}
			s.evHandler("state: ReplaceChain: return tx[%s] from superseded blk[%d]", tx.ID, b.Index)
			returned = append(returned, tx)
		}
	}

	pool := s.revalidatePool(idx, append(returned, s.mempool.Copy()...))

	s.evHandler("state: ReplaceChain: write to store: fork[%d]: superseded[%d]", fork, len(s.blocks)-fork)

	if err := s.persist(chain, pool); err != nil {
		s.mu.Unlock()
		return err
	}

	s.blocks = chain
	s.index = idx
	s.mempool.Replace(pool)

	s.blockEvent(chain[len(chain)-1])

	replaced := make([]database.Block, len(chain))
	copy(replaced, chain)

	s.unlockAndNotify(func(o Observer) {
		o.ChainReplaced(replaced)
	})

	return nil
}

package state

import (
	"fmt"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/mempool"
)

// validateBlock runs the admission gates for a block extending chain, in
// order: structure, linkage, hash, difficulty, proof of work, transactions.
// The index must describe chain. Nothing is changed.
func (s *State) validateBlock(chain []database.Block, idx *chainIndex, block database.Block) error {
	s.evHandler("state: validateBlock: blk[%d]: check: structure", block.Index)

	if err := block.ValidateStructure(); err != nil {
		return err
	}

	if err := block.ValidateLinkage(chain[len(chain)-1], s.evHandler); err != nil {
		return err
	}

	s.evHandler("state: validateBlock: blk[%d]: check: difficulty matches retarget policy", block.Index)

	if exp := s.difficulty(chain, block.Index); block.Difficulty != exp {
		return fmt.Errorf("%w: block[%d]: difficulty %d, exp %d", database.ErrProofOfWork, block.Index, block.Difficulty, exp)
	}

	s.evHandler("state: validateBlock: blk[%d]: check: block hash has been solved", block.Index)

	if !database.IsHashSolved(block.Difficulty, block.Hash) {
		return fmt.Errorf("%w: block[%d]: hash %s doesn't meet difficulty %d", database.ErrProofOfWork, block.Index, block.Hash, block.Difficulty)
	}

	s.evHandler("state: validateBlock: blk[%d]: check: transactions", block.Index)

	return s.validateBlockTxs(idx, block)
}

// validateBlockTxs checks every transaction in the block against the chain
// described by the index and against the transactions before it in the block.
func (s *State) validateBlockTxs(idx *chainIndex, block database.Block) error {
	var rewards, fees int
	var feeTotal uint64
	var counted uint64

	local := make(map[string]database.Tx, len(block.Transactions))
	spent := make(map[database.OutPoint]string)

	for _, tx := range block.Transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("block[%d]: %w", block.Index, err)
		}

		if loc, exists := idx.tx(tx.ID); exists {
			return fmt.Errorf("%w: block[%d]: tx[%s] confirmed in block %d", database.ErrDoubleSpend, block.Index, tx.ID, loc.block)
		}

		switch tx.Type {
		case database.TxReward:
			rewards++
			if tx.OutputTotal() != s.genesis.MiningReward {
				return fmt.Errorf("%w: block[%d]: reward %d, exp %d", database.ErrBalance, block.Index, tx.OutputTotal(), s.genesis.MiningReward)
			}

		case database.TxFee:
			fees++
			feeTotal = tx.OutputTotal()

		default:
			counted++
		}

		for i, in := range tx.Inputs {
			op := in.OutPoint()

			if id, exists := idx.spender(op); exists {
				return fmt.Errorf("%w: block[%d]: tx[%s]: input[%d] %s spent by tx[%s]", database.ErrDoubleSpend, block.Index, tx.ID, i, op, id)
			}
			if id, exists := spent[op]; exists {
				return fmt.Errorf("%w: block[%d]: tx[%s]: input[%d] %s spent by tx[%s] in block", database.ErrDoubleSpend, block.Index, tx.ID, i, op, id)
			}

			source, found := local[in.SourceTxID]
			if !found {
				loc, exists := idx.tx(in.SourceTxID)
				if !exists {
					return fmt.Errorf("%w: block[%d]: tx[%s]: input[%d] references unknown tx[%s]", database.ErrNotFound, block.Index, tx.ID, i, in.SourceTxID)
				}
				source = loc.tx
			}

			if err := matchOutput(source, in); err != nil {
				return fmt.Errorf("block[%d]: tx[%s]: input[%d]: %w", block.Index, tx.ID, i, err)
			}

			spent[op] = tx.ID
		}

		local[tx.ID] = tx
	}

	if rewards > 1 || fees > 1 {
		return fmt.Errorf("%w: block[%d]: %d rewards and %d fees, at most one of each", database.ErrStructural, block.Index, rewards, fees)
	}

	if fees == 1 {
		exp := s.genesis.FeePerTransaction * counted
		if feeTotal != exp {
			return fmt.Errorf("%w: block[%d]: fee %d, exp %d for %d transactions", database.ErrBalance, block.Index, feeTotal, exp, counted)
		}
	}

	return nil
}

// validateTx checks a transaction for admission to the pool: against the
// chain described by the index and the transactions already in the pool.
func (s *State) validateTx(idx *chainIndex, pool *mempool.Mempool, tx database.Tx) error {
	if _, exists := idx.tx(tx.ID); exists {
		return fmt.Errorf("%w: tx[%s] confirmed", database.ErrDuplicate, tx.ID)
	}

	if pool.Exists(tx.ID) {
		return fmt.Errorf("%w: tx[%s] pending", database.ErrDuplicate, tx.ID)
	}

	if tx.Type.IsMinted() {
		return fmt.Errorf("%w: tx[%s]: %s transactions are only accepted inside a block", database.ErrStructural, tx.ID, tx.Type)
	}

	for i, in := range tx.Inputs {
		op := in.OutPoint()

		if id, exists := idx.spender(op); exists {
			return fmt.Errorf("%w: tx[%s]: input[%d] %s spent by confirmed tx[%s]", database.ErrDoubleSpend, tx.ID, i, op, id)
		}

		if other, exists := pool.Consumer(op); exists {
			return fmt.Errorf("%w: tx[%s]: input[%d] %s spent by pending tx[%s]", database.ErrDoubleSpend, tx.ID, i, op, other.ID)
		}
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	for i, in := range tx.Inputs {
		loc, exists := idx.tx(in.SourceTxID)
		source := loc.tx

		if !exists {
			pending, err := pool.Get(in.SourceTxID)
			if err != nil {
				return fmt.Errorf("%w: tx[%s]: input[%d] references unknown tx[%s]", database.ErrNotFound, tx.ID, i, in.SourceTxID)
			}
			source = pending
		}

		if err := matchOutput(source, in); err != nil {
			return fmt.Errorf("tx[%s]: input[%d]: %w", tx.ID, i, err)
		}
	}

	return nil
}

// revalidatePool returns the transactions still valid against the chain
// described by the index, in order. Each transaction is checked against the
// ones kept before it.
func (s *State) revalidatePool(idx *chainIndex, txs []database.Tx) []database.Tx {
	pool := mempool.New()

	for _, tx := range txs {
		if err := s.validateTx(idx, pool, tx); err != nil {
			s.evHandler("state: revalidatePool: drop tx[%s]: %s", tx.ID, err)
			continue
		}
		pool.Upsert(tx)
	}

	return pool.Copy()
}

// matchOutput checks the input agrees with the output it spends.
func matchOutput(source database.Tx, in database.TxInput) error {
	if source.Type.IsPayload() {
		return fmt.Errorf("%w: %s carries a record, not value", database.ErrNotFound, in.OutPoint())
	}

	if in.OutputIndex >= uint64(len(source.Outputs)) {
		return fmt.Errorf("%w: output %s", database.ErrNotFound, in.OutPoint())
	}

	out := source.Outputs[in.OutputIndex]
	if out.Amount != in.Amount || out.Address != in.Address {
		return fmt.Errorf("%w: %s holds %d for %s, input claims %d for %s", database.ErrBalance, in.OutPoint(), out.Amount, out.Address, in.Amount, in.Address)
	}

	return nil
}

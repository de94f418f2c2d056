package worker

import (
	"context"
	"errors"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// Mine runs one mining operation: a candidate is built on the current head,
// solved and submitted to the ledger. The search is abandoned when the
// context is cancelled or another block is accepted first. A stale result is
// rejected by the ledger with database.ErrIndexMismatch; there is no retry.
func (w *Worker) Mine(ctx context.Context) (database.Block, error) {
	w.evHandler("worker: Mine: MINING: started")
	defer w.evHandler("worker: Mine: MINING: completed")

	ctx, done := w.track(ctx)
	defer done()

	t := time.Now()
	candidate, err := w.miner.Mine(ctx, w.rewardAddress, w.feeAddress)
	w.evHandler("worker: Mine: MINING: mining duration[%v]", time.Since(t))

	if err != nil {
		return database.Block{}, err
	}

	if err := w.state.AddBlock(candidate.Block); err != nil {
		return database.Block{}, err
	}

	return candidate.Block, nil
}

// =============================================================================

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation takes the transactions from the mempool and mines a new
// block on top of the current head.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Make sure there are transactions in the mempool.
	length := len(w.state.Pending())
	if length == 0 {
		w.evHandler("worker: runMiningOperation: MINING: no transactions to mine: Txs[%d]", length)
		return
	}

	// After running a mining operation, check if a new operation should
	// be signaled again.
	defer func() {
		length := len(w.state.Pending())
		if length > 0 && !w.isShutdown() {
			w.evHandler("worker: runMiningOperation: MINING: signal new mining operation: Txs[%d]", length)
			w.SignalStartMining()
		}
	}()

	// Create a context that is cancelled when the worker shuts down.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-w.shut:
			cancel()
		case <-ctx.Done():
		}
	}()

	block, err := w.Mine(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
		case errors.Is(err, database.ErrIndexMismatch):
			w.evHandler("worker: runMiningOperation: MINING: WARNING: chain moved during the search: %s", err)
		default:
			w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runMiningOperation: MINING: accepted blk[%d]: hash[%s]", block.Index, block.Hash)
}

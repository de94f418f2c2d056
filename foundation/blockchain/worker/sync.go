package worker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
)

// Outcome describes what happened to blocks received from a peer.
type Outcome string

// Set of outcomes for received blocks.
const (
	NoAction Outcome = "noAction"
	Extended Outcome = "extended"
	Rejected Outcome = "rejected"
	Pending  Outcome = "pending"
	Replaced Outcome = "replaced"
	Kept     Outcome = "kept"
)

// CheckReceivedBlocks decides what to do with blocks announced by a peer.
// The highest block is compared to the local head: an older block needs no
// action, a direct successor is added, a single block that doesn't link
// means this node is behind and the full chains of the peers are requested,
// and several blocks are a candidate chain that goes through the fork choice.
func (w *Worker) CheckReceivedBlocks(ctx context.Context, blocks []database.Block) (Outcome, error) {
	return w.checkReceivedBlocks(ctx, blocks, true)
}

func (w *Worker) checkReceivedBlocks(ctx context.Context, blocks []database.Block, async bool) (Outcome, error) {
	if len(blocks) == 0 {
		return NoAction, nil
	}

	sorted := make([]database.Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	incoming := sorted[len(sorted)-1]
	head := w.state.LatestBlock()

	w.evHandler("worker: CheckReceivedBlocks: blocks[%d]: incoming blk[%d]: head blk[%d]", len(sorted), incoming.Index, head.Index)

	switch {
	case incoming.Index <= head.Index:
		return NoAction, nil

	case incoming.PreviousHash == head.Hash:
		if err := w.state.AddBlock(incoming); err != nil {
			return Rejected, err
		}
		return Extended, nil

	case len(sorted) == 1:
		w.evHandler("worker: CheckReceivedBlocks: behind: incoming blk[%d] doesn't link", incoming.Index)
		if async {
			w.SignalSyncChains()
		}
		return Pending, nil
	}

	if err := w.state.ReplaceChain(sorted); err != nil {
		if errors.Is(err, database.ErrChainNotBetter) {
			return Kept, nil
		}
		return Kept, err
	}

	return Replaced, nil
}

// SyncTransactions adds the transactions this node doesn't know yet.
// Failures are logged and skipped; it returns the number added.
func (w *Worker) SyncTransactions(txs []database.Tx) int {
	var added int

	for _, tx := range txs {
		if w.state.IsConfirmed(tx.ID) {
			continue
		}
		if _, err := w.state.PendingTransaction(tx.ID); err == nil {
			continue
		}

		if err := w.state.AddTransaction(tx); err != nil {
			w.evHandler("worker: SyncTransactions: tx[%s]: WARNING: %s", tx, err)
			continue
		}
		added++
	}

	return added
}

// Confirmations returns the number of nodes, this one included, that report
// the transaction as part of an accepted block. It is informational only.
func (w *Worker) Confirmations(ctx context.Context, txID string) int {
	var count int
	if w.state.IsConfirmed(txID) {
		count++
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	peers := w.Peers()
	wg.Add(len(peers))

	for _, p := range peers {
		go func(p peer.Peer) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, w.peerTimeout)
			defer cancel()

			confirmed, err := w.transport.Confirmed(ctx, p, txID)
			if err != nil {
				w.evHandler("worker: Confirmations: %s: WARNING: %s", p, err)
				return
			}

			if confirmed {
				mu.Lock()
				count++
				mu.Unlock()
			}
		}(p)
	}

	wg.Wait()

	return count
}

// =============================================================================

// Sync asks every known peer for its status, learns the peers it knows,
// pulls its pending pool and catches up when the peer is ahead.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, p := range w.Peers() {
		ctx, cancel := context.WithTimeout(context.Background(), w.peerTimeout)
		w.syncPeer(ctx, p)
		cancel()
	}
}

func (w *Worker) syncPeer(ctx context.Context, p peer.Peer) {

	// Retrieve the status of this peer.
	status, err := w.transport.Status(ctx, p)
	if err != nil {
		w.evHandler("worker: sync: status: %s: ERROR: %s", p, err)
		return
	}

	// Add new peers to this nodes list.
	w.addNewPeers(status.KnownPeers)

	// Retrieve the mempool from the peer.
	txs, err := w.transport.Transactions(ctx, p)
	if err != nil {
		w.evHandler("worker: sync: transactions: %s: ERROR: %s", p, err)
	}
	w.SyncTransactions(txs)

	// If this peer has blocks we don't have, we need to add them.
	if status.LatestBlockIndex <= w.state.LatestBlock().Index {
		return
	}

	w.evHandler("worker: sync: %s: latestBlockIndex[%d]", p, status.LatestBlockIndex)

	head, err := w.transport.LatestBlock(ctx, p)
	if err != nil {
		w.evHandler("worker: sync: latest block: %s: ERROR: %s", p, err)
		return
	}

	outcome, err := w.checkReceivedBlocks(ctx, []database.Block{head}, false)
	if err != nil {
		w.evHandler("worker: sync: %s: %s: ERROR: %s", p, outcome, err)
	}

	if outcome == Pending {
		if err := w.syncChain(ctx, p); err != nil {
			w.evHandler("worker: sync: chain: %s: ERROR: %s", p, err)
		}
	}
}

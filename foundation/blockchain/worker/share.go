package worker

import (
	"context"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
)

// shareTxOperations handles sharing new transactions.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation shares a new transaction with the known peers.
func (w *Worker) runShareTxOperation(tx database.Tx) {
	w.evHandler("worker: runShareTxOperation: started: tx[%s]", tx)
	defer w.evHandler("worker: runShareTxOperation: completed: tx[%s]", tx)

	w.broadcast("runShareTxOperation", func(ctx context.Context, p peer.Peer) error {
		return w.transport.SendTransaction(ctx, p, tx)
	})
}

// =============================================================================

// shareBlockOperations handles sharing accepted blocks.
func (w *Worker) shareBlockOperations() {
	w.evHandler("worker: shareBlockOperations: G started")
	defer w.evHandler("worker: shareBlockOperations: G completed")

	for {
		select {
		case blocks := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(blocks)
			}
		case <-w.shut:
			w.evHandler("worker: shareBlockOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation announces blocks to the known peers.
func (w *Worker) runShareBlockOperation(blocks []database.Block) {
	head := blocks[len(blocks)-1]

	w.evHandler("worker: runShareBlockOperation: started: blk[%d]", head.Index)
	defer w.evHandler("worker: runShareBlockOperation: completed: blk[%d]", head.Index)

	w.broadcast("runShareBlockOperation", func(ctx context.Context, p peer.Peer) error {
		return w.transport.SendLatestBlock(ctx, p, blocks)
	})
}

// =============================================================================

// broadcast runs the send function against every known peer concurrently,
// each with its own timeout. Failures are logged and the peer skipped; one
// unreachable peer never delays the others past the timeout.
func (w *Worker) broadcast(op string, send func(ctx context.Context, p peer.Peer) error) {
	peers := w.peers.Copy(w.self.URL)

	var wg sync.WaitGroup
	wg.Add(len(peers))

	for _, p := range peers {
		go func(p peer.Peer) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), w.peerTimeout)
			defer cancel()

			if err := send(ctx, p); err != nil {
				w.evHandler("worker: %s: peer[%s]: WARNING: %s", op, p, err)
				return
			}

			w.evHandler("worker: %s: sent to peer[%s]", op, p)
		}(p)
	}

	wg.Wait()
}

package worker

import (
	"context"
	"fmt"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
)

// Self returns the peer value that identifies this node.
func (w *Worker) Self() peer.Peer {
	return w.self
}

// Peers returns the known peers.
func (w *Worker) Peers() []peer.Peer {
	return w.peers.Copy(w.self.URL)
}

// AddPeer adds the peer to the set without contacting it. It reports false
// when the peer is this node or already known.
func (w *Worker) AddPeer(p peer.Peer) bool {
	if p.URL == "" || p.Match(w.self.URL) {
		return false
	}

	if !w.peers.Add(p) {
		return false
	}

	w.evHandler("worker: AddPeer: adding peer-node %s", p)
	return true
}

// Status returns the head of this node and the peers it knows.
func (w *Worker) Status() peer.Status {
	head := w.state.LatestBlock()

	return peer.Status{
		LatestBlockHash:  head.Hash,
		LatestBlockIndex: head.Index,
		Pending:          len(w.state.Pending()),
		KnownPeers:       w.Peers(),
	}
}

// Connect adds the peer, introduces this node to it and performs the initial
// sync: the peer's head block and then its pending pool. The new peer is
// then announced to the peers this node already knew. Connecting to a known
// peer is a no-op.
func (w *Worker) Connect(ctx context.Context, p peer.Peer) error {
	w.evHandler("worker: Connect: started: %s", p)
	defer w.evHandler("worker: Connect: completed: %s", p)

	p = peer.New(p.URL)
	if p.Match(w.self.URL) {
		return fmt.Errorf("%w: can't connect to self", database.ErrStructural)
	}

	existing := w.Peers()
	if !w.AddPeer(p) {
		return nil
	}

	if err := w.transport.SendPeer(ctx, p, w.self); err != nil {
		w.peers.Remove(p)
		return err
	}

	head, err := w.transport.LatestBlock(ctx, p)
	if err != nil {
		return err
	}

	outcome, err := w.checkReceivedBlocks(ctx, []database.Block{head}, false)
	if err != nil {
		w.evHandler("worker: Connect: %s: head blk[%d]: %s: %s", p, head.Index, outcome, err)
	}

	if outcome == Pending {
		if err := w.syncChain(ctx, p); err != nil {
			w.evHandler("worker: Connect: %s: sync chain: ERROR: %s", p, err)
		}
	}

	txs, err := w.transport.Transactions(ctx, p)
	if err != nil {
		return err
	}
	w.SyncTransactions(txs)

	for _, e := range existing {
		if err := w.transport.SendPeer(ctx, e, p); err != nil {
			w.evHandler("worker: Connect: announce %s to %s: WARNING: %s", p, e, err)
		}
	}

	return nil
}

// =============================================================================

// peerOperations handles the periodic sync with peers and requests for the
// full chains of peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.Sync()
			}
		case <-w.syncChains:
			if !w.isShutdown() {
				w.runSyncChainsOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runSyncChainsOperation asks every known peer for its full chain and runs
// the fork choice over each.
func (w *Worker) runSyncChainsOperation() {
	w.evHandler("worker: runSyncChainsOperation: started")
	defer w.evHandler("worker: runSyncChainsOperation: completed")

	for _, p := range w.Peers() {
		ctx, cancel := context.WithTimeout(context.Background(), w.peerTimeout)
		err := w.syncChain(ctx, p)
		cancel()

		if err != nil {
			w.evHandler("worker: runSyncChainsOperation: %s: ERROR: %s", p, err)
		}
	}
}

// syncChain requests the full chain of the peer and runs the fork choice.
func (w *Worker) syncChain(ctx context.Context, p peer.Peer) error {
	blocks, err := w.transport.Blocks(ctx, p)
	if err != nil {
		return err
	}

	outcome, err := w.checkReceivedBlocks(ctx, blocks, false)
	w.evHandler("worker: syncChain: %s: blocks[%d]: %s", p, len(blocks), outcome)

	return err
}

// addNewPeers takes the list of known peers and makes sure they are included
// in the nodes list of known peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	for _, p := range knownPeers {
		w.AddPeer(p)
	}
}

// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"net/http"

	"github.com/campusledger/blockchain/business/sys/validate"
	"github.com/campusledger/blockchain/business/web/errs"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
	"github.com/campusledger/blockchain/foundation/blockchain/worker"
	"github.com/campusledger/blockchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Worker *worker.Worker
}

// LatestBlock returns the head of the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.LatestBlock(), http.StatusOK)
}

// ReceiveBlocks takes the blocks announced by a peer and decides whether
// they extend or replace the local chain.
func (h Handlers) ReceiveBlocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var blocks []database.Block
	if err := web.Decode(r, &blocks); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	outcome, err := h.Worker.CheckReceivedBlocks(ctx, blocks)

	h.Log.Infow("receive blocks", "traceid", v.TraceID, "blocks", len(blocks), "outcome", outcome)

	if err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Outcome worker.Outcome `json:"outcome"`
	}{
		Outcome: outcome,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Blocks(), http.StatusOK)
}

// Transactions returns the pending pool in arrival order.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Pending(), http.StatusOK)
}

// SubmitTransaction adds a transaction shared by a peer to the pool. A
// transaction that is already known is accepted as a no-op.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.Tx
	if err := web.Decode(r, &tx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "tx", tx)

	status := "transaction added to pool"
	if err := h.State.AddTransaction(tx); err != nil {
		if !database.IsDuplicate(err) {
			return errs.FromLedger(err)
		}
		status = "transaction already known"
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: status,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitPeer registers a node that introduced itself.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var p peer.Peer
	if err := web.Decode(r, &p); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(p); err != nil {
		return err
	}

	added := h.Worker.AddPeer(peer.New(p.URL))
	h.Log.Infow("add peer", "traceid", v.TraceID, "peer", p.URL, "added", added)

	resp := struct {
		Added bool `json:"added"`
	}{
		Added: added,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Worker.Peers(), http.StatusOK)
}

// Confirmed reports whether the transaction is part of an accepted block.
func (h Handlers) Confirmed(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	_, index, err := h.State.TransactionFromBlocks(id)
	if err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		TxID       string `json:"txId"`
		BlockIndex uint64 `json:"blockIndex"`
	}{
		TxID:       id,
		BlockIndex: index,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Worker.Status(), http.StatusOK)
}

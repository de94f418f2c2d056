// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/campusledger/blockchain/business/sys/validate"
	"github.com/campusledger/blockchain/business/web/errs"
	"github.com/campusledger/blockchain/foundation/blockchain/balance"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
	"github.com/campusledger/blockchain/foundation/blockchain/worker"
	"github.com/campusledger/blockchain/foundation/events"
	"github.com/campusledger/blockchain/foundation/nameservice"
	"github.com/campusledger/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// dateLayout is the format of the date filters on record queries.
const dateLayout = "2006-01-02"

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	Worker   *worker.Worker
	NS       *nameservice.NameService
	Balances *balance.Sheet
	Records  *records.Index
	WS       websocket.Upgrader
	Evts     *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the chain parameters.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// =============================================================================
// Blocks

// Blocks returns the full chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Blocks(), http.StatusOK)
}

// LatestBlock returns the head of the chain.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.LatestBlock(), http.StatusOK)
}

// BlockByIndex returns the block at the specified index.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid index: %w", err), http.StatusBadRequest)
	}

	block, err := h.State.BlockByIndex(index)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// BlockByHash returns the block with the specified hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.BlockByHash(web.Param(r, "hash"))
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// Mine runs one mining operation and returns the accepted block.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	block, err := h.Worker.Mine(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errs.NewTrusted(errors.New("mining cancelled by a newer block"), http.StatusConflict)
		}
		return errs.FromLedger(err)
	}

	h.Log.Infow("mine", "traceid", v.TraceID, "index", block.Index, "hash", block.Hash)

	return web.Respond(ctx, w, block, http.StatusCreated)
}

// =============================================================================
// Transactions

// Pending returns the pending pool in arrival order.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Pending(), http.StatusOK)
}

// Transaction returns a pending or confirmed transaction.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	if trn, index, err := h.State.TransactionFromBlocks(id); err == nil {
		return web.Respond(ctx, w, tx{Tx: trn, Status: "confirmed", BlockIndex: &index}, http.StatusOK)
	}

	trn, err := h.State.PendingTransaction(id)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, tx{Tx: trn, Status: "pending"}, http.StatusOK)
}

// Proof returns the merkle proof that a confirmed transaction is part of
// its block.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	_, index, err := h.State.TransactionFromBlocks(id)
	if err != nil {
		return errs.FromLedger(err)
	}

	block, err := h.State.BlockByIndex(index)
	if err != nil {
		return errs.FromLedger(err)
	}

	hashes, order, err := block.TxProof(id)
	if err != nil {
		return errs.FromLedger(err)
	}

	prf := proof{
		TxID:       id,
		BlockIndex: index,
		TransRoot:  database.TransRoot(block.Transactions),
		Hashes:     hashes,
		Order:      order,
	}

	return web.Respond(ctx, w, prf, http.StatusOK)
}

// Confirmations returns how many nodes report the transaction as confirmed.
func (h Handlers) Confirmations(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	resp := struct {
		TxID          string `json:"txId"`
		Confirmations int    `json:"confirmations"`
	}{
		TxID:          id,
		Confirmations: h.Worker.Confirmations(ctx, id),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a signed wallet transaction to the pool. A
// transaction that is already known is accepted as a no-op.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var trn database.Tx
	if err := web.Decode(r, &trn); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return h.submit(ctx, w, v.TraceID, trn)
}

// SubmitRegistration records a student registering for a class.
func (h Handlers) SubmitRegistration(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var reg registration
	if err := web.Decode(r, &reg); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(reg); err != nil {
		return err
	}

	if reg.RecordedAt == 0 {
		reg.RecordedAt = v.Now.UnixMilli()
	}

	trn := identity.NewRegistration(reg.Recipient, identity.Registration{
		StudentID:      reg.StudentID,
		StudentAddress: reg.StudentAddress,
		ClassID:        reg.ClassID,
		RecordedAt:     reg.RecordedAt,
	})

	return h.submit(ctx, w, v.TraceID, trn)
}

// SubmitAttendance records a student attending a course.
func (h Handlers) SubmitAttendance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var att attendance
	if err := web.Decode(r, &att); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(att); err != nil {
		return err
	}

	if att.RecordedAt == 0 {
		att.RecordedAt = v.Now.UnixMilli()
	}

	trn := identity.NewAttendance(att.Recipient, identity.Attendance{
		StudentID:      att.StudentID,
		StudentAddress: att.StudentAddress,
		CourseID:       att.CourseID,
		ClassID:        att.ClassID,
		RecordedAt:     att.RecordedAt,
	})

	return h.submit(ctx, w, v.TraceID, trn)
}

func (h Handlers) submit(ctx context.Context, w http.ResponseWriter, traceID string, trn database.Tx) error {
	h.Log.Infow("add tran", "traceid", traceID, "tx", trn)

	status := "transaction added to pool"
	if err := h.State.AddTransaction(trn); err != nil {
		if !database.IsDuplicate(err) {
			return errs.FromLedger(err)
		}
		status = "transaction already known"
	}

	resp := struct {
		Status string `json:"status"`
		TxID   string `json:"txId"`
	}{
		Status: status,
		TxID:   trn.ID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================
// Addresses

// UnspentOutputs returns the outputs the address can spend.
func (h Handlers) UnspentOutputs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	utxos := h.State.UnspentOutputsForAddress(web.Param(r, "address"))
	if utxos == nil {
		utxos = []database.UTXO{}
	}

	return web.Respond(ctx, w, utxos, http.StatusOK)
}

// Balance returns the confirmed and spendable balance of the address.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	bal := addressBalance{
		Address:   address,
		Name:      h.NS.Lookup(address),
		Confirmed: h.Balances.Balance(address),
		Spendable: h.State.Balance(address),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Accounts returns the confirmed balances of every address holding value.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	values := h.Balances.Values()

	acts := make([]account, 0, len(values))
	for address, value := range values {
		acts = append(acts, account{
			Address: address,
			Name:    h.NS.Lookup(address),
			Balance: value,
		})
	}

	sort.Slice(acts, func(i, j int) bool {
		return acts[i].Address < acts[j].Address
	})

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash,
		Pending:     len(h.State.Pending()),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// =============================================================================
// Records

// StudentRecords returns the registrations and attendance of a student. The
// attendance can be narrowed with courseId, classId, startDate and endDate.
func (h Handlers) StudentRecords(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	f, err := recordFilter(r)
	if err != nil {
		return err
	}

	address := web.Param(r, "address")

	resp := struct {
		Registrations []records.Record `json:"registrations"`
		Attendance    []records.Record `json:"attendance"`
	}{
		Registrations: orEmpty(h.Records.Registrations(address)),
		Attendance:    orEmpty(h.Records.Attendance(address, f)),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CourseRecords returns the attendance recorded for a course.
func (h Handlers) CourseRecords(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	f, err := recordFilter(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, orEmpty(h.Records.ByCourse(web.Param(r, "course"), f)), http.StatusOK)
}

// ClassRecords returns the attendance recorded for a class.
func (h Handlers) ClassRecords(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	f, err := recordFilter(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, orEmpty(h.Records.ByClass(web.Param(r, "class"), f)), http.StatusOK)
}

// ReceivedRecords returns the records addressed to a recipient.
func (h Handlers) ReceivedRecords(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, orEmpty(h.Records.Received(web.Param(r, "address"))), http.StatusOK)
}

// recordFilter reads the attendance filter from the query string. The dates
// are whole days in UTC: startDate counts from the first millisecond of its
// day and endDate up to the last.
func recordFilter(r *http.Request) (records.Filter, error) {
	q := r.URL.Query()

	f := records.Filter{
		StudentID: q.Get("studentId"),
		CourseID:  q.Get("courseId"),
		ClassID:   q.Get("classId"),
	}

	if v := q.Get("startDate"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return records.Filter{}, errs.NewTrusted(fmt.Errorf("invalid startDate %q, use %s", v, dateLayout), http.StatusBadRequest)
		}
		f.From = day.UnixMilli()
	}

	if v := q.Get("endDate"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return records.Filter{}, errs.NewTrusted(fmt.Errorf("invalid endDate %q, use %s", v, dateLayout), http.StatusBadRequest)
		}
		f.To = day.Add(24*time.Hour).UnixMilli() - 1
	}

	return f, nil
}

func orEmpty(recs []records.Record) []records.Record {
	if recs == nil {
		return []records.Record{}
	}
	return recs
}

// =============================================================================
// Peers

// Connect introduces this node to another node and syncs with it.
func (h Handlers) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req connect
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	p := peer.New(req.URL)
	if err := h.Worker.Connect(ctx, p); err != nil {
		return errs.FromLedger(err)
	}

	h.Log.Infow("connect", "traceid", v.TraceID, "peer", p)

	return web.Respond(ctx, w, h.Worker.Status(), http.StatusOK)
}

// Peers returns the known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Worker.Peers(), http.StatusOK)
}

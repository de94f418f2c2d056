// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/campusledger/blockchain/app/services/node/handlers/v1/private"
	"github.com/campusledger/blockchain/app/services/node/handlers/v1/public"
	"github.com/campusledger/blockchain/foundation/blockchain/balance"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
	"github.com/campusledger/blockchain/foundation/blockchain/worker"
	"github.com/campusledger/blockchain/foundation/events"
	"github.com/campusledger/blockchain/foundation/nameservice"
	"github.com/campusledger/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	State    *state.State
	Worker   *worker.Worker
	NS       *nameservice.NameService
	Balances *balance.Sheet
	Records  *records.Index
	Evts     *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		Worker:   cfg.Worker,
		NS:       cfg.NS,
		Balances: cfg.Balances,
		Records:  cfg.Records,
		WS:       websocket.Upgrader{},
		Evts:     cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)

	app.Handle(http.MethodGet, version, "/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/latest", pbl.LatestBlock)
	app.Handle(http.MethodGet, version, "/blocks/index/:index", pbl.BlockByIndex)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)

	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Pending)
	app.Handle(http.MethodGet, version, "/tx/id/:id", pbl.Transaction)
	app.Handle(http.MethodGet, version, "/tx/id/:id/proof", pbl.Proof)
	app.Handle(http.MethodGet, version, "/tx/id/:id/confirmations", pbl.Confirmations)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, version, "/tx/registration", pbl.SubmitRegistration)
	app.Handle(http.MethodPost, version, "/tx/attendance", pbl.SubmitAttendance)

	app.Handle(http.MethodGet, version, "/accounts", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/:address/balance", pbl.Balance)
	app.Handle(http.MethodGet, version, "/accounts/:address/utxos", pbl.UnspentOutputs)

	app.Handle(http.MethodGet, version, "/records/student/:address", pbl.StudentRecords)
	app.Handle(http.MethodGet, version, "/records/course/:course", pbl.CourseRecords)
	app.Handle(http.MethodGet, version, "/records/class/:class", pbl.ClassRecords)
	app.Handle(http.MethodGet, version, "/records/recipient/:address", pbl.ReceivedRecords)

	app.Handle(http.MethodGet, version, "/peers", pbl.Peers)
	app.Handle(http.MethodPost, version, "/peers", pbl.Connect)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:    cfg.Log,
		State:  cfg.State,
		Worker: cfg.Worker,
	}

	app.Handle(http.MethodGet, version, "/node/blocks/latest", prv.LatestBlock)
	app.Handle(http.MethodPut, version, "/node/blocks/latest", prv.ReceiveBlocks)
	app.Handle(http.MethodGet, version, "/node/blocks", prv.Blocks)
	app.Handle(http.MethodGet, version, "/node/blocks/transactions/:id", prv.Confirmed)
	app.Handle(http.MethodGet, version, "/node/transactions", prv.Transactions)
	app.Handle(http.MethodPost, version, "/node/transactions", prv.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/node/peers", prv.Peers)
	app.Handle(http.MethodPost, version, "/node/peers", prv.SubmitPeer)
	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
}

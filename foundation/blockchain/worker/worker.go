// Package worker implements mining, peer updates, block and transaction
// sharing, and fork handling for the blockchain.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/miner"
	"github.com/campusledger/blockchain/foundation/blockchain/peer"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
)

// Default intervals used when the configuration leaves them empty.
const (
	peerUpdateInterval = time.Minute
	peerTimeout        = 5 * time.Second
)

// maxShareRequests represents the max number of pending network share
// requests that can be outstanding before share requests are dropped. If the
// channel does become full, new blocks and transactions won't be shared
// until the queue drains.
const maxShareRequests = 100

// =============================================================================

// Transport represents the wire operations the worker needs to talk to
// peers. The peer.Client implements this over HTTP.
type Transport interface {
	LatestBlock(ctx context.Context, p peer.Peer) (database.Block, error)
	SendLatestBlock(ctx context.Context, p peer.Peer, blocks []database.Block) error
	Blocks(ctx context.Context, p peer.Peer) ([]database.Block, error)
	Transactions(ctx context.Context, p peer.Peer) ([]database.Tx, error)
	SendTransaction(ctx context.Context, p peer.Peer, tx database.Tx) error
	SendPeer(ctx context.Context, p peer.Peer, node peer.Peer) error
	Confirmed(ctx context.Context, p peer.Peer, txID string) (bool, error)
	Status(ctx context.Context, p peer.Peer) (peer.Status, error)
}

// Config represents the configuration required to run the worker.
type Config struct {
	State         *state.State
	Self          peer.Peer
	KnownPeers    []peer.Peer
	Transport     Transport
	RewardAddress string
	FeeAddress    string
	AutoMine      bool
	SyncInterval  time.Duration
	PeerTimeout   time.Duration
	EvHandler     state.EventHandler
}

// Worker manages the POW workflows and peer synchronization for a node.
type Worker struct {
	state         *state.State
	miner         *miner.Miner
	transport     Transport
	self          peer.Peer
	peers         *peer.PeerSet
	rewardAddress string
	feeAddress    string
	autoMine      bool
	peerTimeout   time.Duration
	evHandler     state.EventHandler

	wg           sync.WaitGroup
	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	syncChains   chan bool
	txSharing    chan database.Tx
	blockSharing chan []database.Block

	miningMu sync.Mutex
	miningID int
	inFlight map[int]context.CancelFunc
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(cfg Config) (*Worker, error) {
	if cfg.State == nil || cfg.Transport == nil {
		return nil, errors.New("worker requires a state and a transport")
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = peerUpdateInterval
	}

	timeout := cfg.PeerTimeout
	if timeout <= 0 {
		timeout = peerTimeout
	}

	w := Worker{
		state:         cfg.State,
		miner:         miner.New(cfg.State, ev),
		transport:     cfg.Transport,
		self:          peer.New(cfg.Self.URL),
		peers:         peer.NewPeerSet(),
		rewardAddress: cfg.RewardAddress,
		feeAddress:    cfg.FeeAddress,
		autoMine:      cfg.AutoMine,
		peerTimeout:   timeout,
		evHandler:     ev,
		ticker:        time.NewTicker(interval),
		shut:          make(chan struct{}),
		startMining:   make(chan bool, 1),
		syncChains:    make(chan bool, 1),
		txSharing:     make(chan database.Tx, maxShareRequests),
		blockSharing:  make(chan []database.Block, maxShareRequests),
		inFlight:      make(map[int]context.CancelFunc),
	}

	for _, p := range cfg.KnownPeers {
		w.AddPeer(p)
	}

	// Register this worker with the state package.
	cfg.State.Register(&w)

	// Update this node before starting any support G's.
	w.Sync()

	// Load the set of operations we need to run.
	operations := []func(){
		w.peerOperations,
		w.miningOperations,
		w.shareTxOperations,
		w.shareBlockOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	if w.autoMine && len(w.state.Pending()) > 0 {
		w.SignalStartMining()
	}

	return &w, nil
}

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================
// These methods implement the state.Observer interface.

// BlockAdded abandons any search for the same height and shares the block.
func (w *Worker) BlockAdded(block database.Block) {
	w.SignalCancelMining()
	w.SignalShareBlocks([]database.Block{block})

	if w.autoMine && len(w.state.Pending()) > 0 {
		w.SignalStartMining()
	}
}

// TransactionAdded shares the transaction and, when auto mining, starts a
// mining operation.
func (w *Worker) TransactionAdded(tx database.Tx) {
	w.SignalShareTx(tx)

	if w.autoMine {
		w.SignalStartMining()
	}
}

// ChainReplaced abandons any search on the old chain and announces the new
// head. Peers that can't link it ask for the full chain.
func (w *Worker) ChainReplaced(chain []database.Block) {
	w.SignalCancelMining()
	w.SignalShareBlocks(chain[len(chain)-1:])

	if w.autoMine && len(w.state.Pending()) > 0 {
		w.SignalStartMining()
	}
}

// =============================================================================

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// SignalCancelMining stops every search in flight immediately.
func (w *Worker) SignalCancelMining() {
	w.miningMu.Lock()
	defer w.miningMu.Unlock()

	for _, cancel := range w.inFlight {
		cancel()
	}

	if len(w.inFlight) > 0 {
		w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled: searches[%d]", len(w.inFlight))
	}
}

// SignalShareTx signals a share transaction operation. If maxShareRequests
// signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// SignalShareBlocks signals a share blocks operation. If maxShareRequests
// signals exist in the channel, we won't send these.
func (w *Worker) SignalShareBlocks(blocks []database.Block) {
	select {
	case w.blockSharing <- blocks:
		w.evHandler("worker: SignalShareBlocks: share blocks signaled")
	default:
		w.evHandler("worker: SignalShareBlocks: queue full, blocks won't be shared.")
	}
}

// SignalSyncChains asks every peer for its full chain. If there is already a
// signal pending in the channel, just return since a sync will start.
func (w *Worker) SignalSyncChains() {
	select {
	case w.syncChains <- true:
		w.evHandler("worker: SignalSyncChains: sync signaled")
	default:
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// track registers a cancellable search so an accepted block can stop it.
func (w *Worker) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	w.miningMu.Lock()
	id := w.miningID
	w.miningID++
	w.inFlight[id] = cancel
	w.miningMu.Unlock()

	return ctx, func() {
		w.miningMu.Lock()
		delete(w.inFlight, id)
		w.miningMu.Unlock()
		cancel()
	}
}

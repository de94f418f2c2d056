// Package state is the core API for the blockchain and implements all the
// business rules and processing. A State value owns the accepted chain and
// the pending pool and is the only code that changes or persists them.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/difficulty"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
	"github.com/campusledger/blockchain/foundation/blockchain/mempool"
	"github.com/campusledger/blockchain/foundation/blockchain/storage"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Observer represents the behavior required by any package that wants to be
// told about changes to the ledger. Notifications are delivered in commit
// order with no ledger lock held, so an observer may call the read methods.
// An observer must not call a mutating ledger method from inside a
// notification; hand the work to another goroutine instead.
type Observer interface {
	BlockAdded(block database.Block)
	TransactionAdded(tx database.Tx)
	ChainReplaced(chain []database.Block)
}

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Genesis   genesis.Genesis
	Store     storage.Store
	EvHandler EventHandler
}

// State manages the blockchain database.
type State struct {
	mu         sync.RWMutex
	notifyMu   sync.Mutex
	queueMu    sync.Mutex
	queue      []func(o Observer)
	evHandler  EventHandler
	genesis    genesis.Genesis
	difficulty difficulty.Func
	store      storage.Store

	blocks  []database.Block
	index   *chainIndex
	mempool *mempool.Mempool

	obsMu     sync.RWMutex
	observers []Observer
}

// New constructs the ledger from the contents of the store. An empty store is
// seeded with the genesis block. A stored chain is fully checked before it is
// used and stored pending transactions that no longer apply are dropped.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Store == nil {
		return nil, errors.New("a store is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	diffFn, err := difficulty.Retrieve(cfg.Genesis.DifficultyStrategy, cfg.Genesis)
	if err != nil {
		return nil, err
	}

	s := State{
		evHandler:  ev,
		genesis:    cfg.Genesis,
		difficulty: diffFn,
		store:      cfg.Store,
		mempool:    mempool.New(),
	}

	snapshot, err := cfg.Store.Read()
	if err != nil {
		return nil, fmt.Errorf("reading store: %w", err)
	}

	blocks := snapshot.Blocks
	if len(blocks) == 0 {
		ev("state: New: empty store, seeding genesis block")
		blocks = []database.Block{database.GenesisBlock()}
	}

	if err := s.CheckChain(blocks); err != nil {
		return nil, fmt.Errorf("stored chain: %w", err)
	}

	idx := newChainIndex(blocks)
	pool := s.revalidatePool(idx, snapshot.Transactions)

	if err := s.persist(blocks, pool); err != nil {
		return nil, fmt.Errorf("writing store: %w", err)
	}

	s.blocks = blocks
	s.index = idx
	s.mempool.Replace(pool)

	ev("state: New: loaded: blocks[%d]: pending[%d]", len(blocks), len(pool))

	return &s, nil
}

// Register adds an observer that is told about every committed change.
func (s *State) Register(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.observers = append(s.observers, o)
}

// Shutdown cleanly releases the store.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Close()
}

// Genesis returns the chain parameters.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// =============================================================================

// persist writes the whole collection in one call.
func (s *State) persist(blocks []database.Block, pool []database.Tx) error {
	return s.store.Write(storage.Snapshot{
		Blocks:       blocks,
		Transactions: pool,
	})
}

// unlockAndNotify queues a notification while the write lock is still held,
// releases the lock and then drains the queue. Commits are serialized by the
// write lock so the queue is in commit order. Whichever writer holds the
// notify lock delivers every queued notification, including ones queued by
// writers still waiting for it.
func (s *State) unlockAndNotify(fn func(o Observer)) {
	s.queueMu.Lock()
	s.queue = append(s.queue, fn)
	s.queueMu.Unlock()

	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.queueMu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		s.obsMu.RLock()
		observers := make([]Observer, len(s.observers))
		copy(observers, s.observers)
		s.obsMu.RUnlock()

		for _, o := range observers {
			next(o)
		}
	}
}

// Package balance maintains confirmed address balances in memory. A Sheet is
// a projection of the chain: it registers with the ledger as an observer and
// applies every accepted block, rebuilding itself when the chain is replaced.
package balance

import (
	"sync"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// Sheet represents the data representation to maintain address balances.
type Sheet struct {
	mu    sync.RWMutex
	sheet map[string]uint64
	next  uint64
}

// NewSheet constructs a balance sheet for the specified chain.
func NewSheet(chain []database.Block) *Sheet {
	bs := Sheet{
		sheet: make(map[string]uint64),
	}

	bs.Rebuild(chain)

	return &bs
}

// Rebuild resets the balances to the ones produced by the chain. A chain
// shorter than the one already applied is ignored.
func (bs *Sheet) Rebuild(chain []database.Block) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if uint64(len(chain)) < bs.next {
		return
	}

	bs.sheet = make(map[string]uint64)
	bs.next = 0

	for _, block := range chain {
		bs.apply(block)
	}
}

// Balance returns the confirmed balance for the address.
func (bs *Sheet) Balance(address string) uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.sheet[address]
}

// Values makes a copy of the current balance sheet but returns the raw data.
func (bs *Sheet) Values() map[string]uint64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	sheet := make(map[string]uint64, len(bs.sheet))
	for address, value := range bs.sheet {
		sheet[address] = value
	}
	return sheet
}

// =============================================================================
// These methods implement the state.Observer interface.

// BlockAdded applies the block when it is the next one in the chain.
func (bs *Sheet) BlockAdded(block database.Block) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.apply(block)
}

// TransactionAdded has nothing to do since only confirmed value counts.
func (bs *Sheet) TransactionAdded(tx database.Tx) {}

// ChainReplaced rebuilds the sheet from the new chain.
func (bs *Sheet) ChainReplaced(chain []database.Block) {
	bs.Rebuild(chain)
}

// =============================================================================

// apply performs the business logic for applying a block to the balance
// sheet. Inputs debit the spent address and value outputs credit the
// recipient. Payload outputs are records and carry no value.
func (bs *Sheet) apply(block database.Block) {
	if block.Index != bs.next {
		return
	}
	bs.next++

	for _, tx := range block.Transactions {
		if tx.Type.IsPayload() {
			continue
		}

		for _, in := range tx.Inputs {
			bs.sheet[in.Address] -= in.Amount
			if bs.sheet[in.Address] == 0 {
				delete(bs.sheet, in.Address)
			}
		}

		for _, out := range tx.Outputs {
			bs.sheet[out.Address] += out.Amount
		}
	}
}

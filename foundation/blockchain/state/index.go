package state

import "github.com/campusledger/blockchain/foundation/blockchain/database"

// txLocation records where a confirmed transaction lives in the chain.
type txLocation struct {
	tx    database.Tx
	block uint64
}

// chainIndex provides fast lookups over a chain: confirmed transactions by
// id and the transaction spending each consumed output.
type chainIndex struct {
	txs   map[string]txLocation
	spent map[database.OutPoint]string
}

func newChainIndex(blocks []database.Block) *chainIndex {
	idx := chainIndex{
		txs:   make(map[string]txLocation),
		spent: make(map[database.OutPoint]string),
	}

	for _, b := range blocks {
		idx.add(b)
	}

	return &idx
}

// add records the transactions of a block that extends the indexed chain.
func (idx *chainIndex) add(b database.Block) {
	for _, tx := range b.Transactions {
		idx.txs[tx.ID] = txLocation{tx: tx, block: b.Index}
		for _, in := range tx.Inputs {
			idx.spent[in.OutPoint()] = tx.ID
		}
	}
}

// tx returns the confirmed transaction with the specified id.
func (idx *chainIndex) tx(id string) (txLocation, bool) {
	loc, exists := idx.txs[id]
	return loc, exists
}

// spender returns the id of the confirmed transaction spending the output.
func (idx *chainIndex) spender(op database.OutPoint) (string, bool) {
	id, exists := idx.spent[op]
	return id, exists
}

// Package miner builds candidate blocks from the pending pool and performs
// the proof of work that makes them acceptable to the ledger. Mining never
// changes the ledger; the caller submits the candidate.
package miner

import (
	"context"
	"errors"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
)

// checkEvery is the number of nonces tried between cancellation checks.
const checkEvery = 1 << 10

// ErrNoRewardAddress is returned when mining is requested without an address
// to pay the reward to.
var ErrNoRewardAddress = errors.New("a reward address is required to mine")

// Ledger represents the behavior the miner needs from the ledger.
type Ledger interface {
	MiningSnapshot() state.MiningSnapshot
}

// Candidate is a solved block waiting to be submitted to the ledger.
type Candidate struct {
	Block    database.Block
	Attempts uint64
	Elapsed  time.Duration
}

// Miner builds and solves candidate blocks.
type Miner struct {
	ledger    Ledger
	evHandler state.EventHandler
	now       func() time.Time
}

// New constructs a miner reading from the ledger.
func New(ledger Ledger, evHandler state.EventHandler) *Miner {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Miner{
		ledger:    ledger,
		evHandler: ev,
		now:       time.Now,
	}
}

// Mine builds a candidate on top of the current head and searches for a nonce
// that solves it. The only way mining fails, once started, is through the
// context being cancelled.
func (m *Miner) Mine(ctx context.Context, rewardAddress string, feeAddress string) (Candidate, error) {
	m.evHandler("miner: Mine: MINING: started")
	defer m.evHandler("miner: Mine: MINING: completed")

	if rewardAddress == "" {
		return Candidate{}, ErrNoRewardAddress
	}

	snapshot := m.ledger.MiningSnapshot()
	block := Build(snapshot, rewardAddress, feeAddress, m.now())

	m.evHandler("miner: Mine: MINING: blk[%d]: difficulty[%d]: txs[%d]", block.Index, block.Difficulty, len(block.Transactions))

	return POW(ctx, block, m.evHandler)
}

// =============================================================================

// Build assembles an unsolved block from the snapshot. Pending transactions
// are taken in arrival order, skipping any that would spend an output the
// chain or an already selected transaction consumes, or that depend on a
// transaction not in the chain or the block. Payload transactions are always
// taken. A fee transaction is added when a fee address is provided and
// transactions were selected; the reward transaction is always added.
func Build(snapshot state.MiningSnapshot, rewardAddress string, feeAddress string, now time.Time) database.Block {
	g := snapshot.Genesis

	selected := make([]database.Tx, 0, len(snapshot.Pending)+2)
	selectedIDs := make(map[string]bool)
	used := make(map[database.OutPoint]bool)

	for _, tx := range snapshot.Pending {
		if g.TransPerBlock > 0 && len(selected) >= int(g.TransPerBlock) {
			break
		}

		if tx.Type.IsMinted() {
			continue
		}

		if !tx.Type.IsPayload() && !spendable(tx, snapshot, used, selectedIDs) {
			continue
		}

		for _, in := range tx.Inputs {
			used[in.OutPoint()] = true
		}
		selectedIDs[tx.ID] = true
		selected = append(selected, tx)
	}

	count := uint64(len(selected))

	if feeAddress != "" && count > 0 && g.FeePerTransaction > 0 {
		fee := database.TxOutput{Amount: g.FeePerTransaction * count, Address: feeAddress}
		selected = append(selected, database.NewTx(database.TxFee, nil, []database.TxOutput{fee}).Finalize())
	}

	if g.MiningReward > 0 {
		reward := database.TxOutput{Amount: g.MiningReward, Address: rewardAddress}
		selected = append(selected, database.NewTx(database.TxReward, nil, []database.TxOutput{reward}).Finalize())
	}

	return database.Block{
		Index:        snapshot.Head.Index + 1,
		PreviousHash: snapshot.Head.Hash,
		Timestamp:    now.UTC().Unix(),
		Difficulty:   snapshot.Difficulty,
		Transactions: selected,
	}
}

// spendable reports whether every input of the transaction can be spent in
// the block being built.
func spendable(tx database.Tx, snapshot state.MiningSnapshot, used map[database.OutPoint]bool, selectedIDs map[string]bool) bool {
	for _, in := range tx.Inputs {
		op := in.OutPoint()
		if snapshot.ChainSpent[op] || used[op] {
			return false
		}
		if !snapshot.ChainTxs[in.SourceTxID] && !selectedIDs[in.SourceTxID] {
			return false
		}
	}
	return true
}

// =============================================================================

// POW does the work of mining to find a nonce that solves the block. The
// nonce starts at zero and is incremented until the hash has the required
// number of leading zeros or the context is cancelled.
func POW(ctx context.Context, block database.Block, evHandler state.EventHandler) (Candidate, error) {
	start := time.Now()

	// The merkle root only needs to be computed once.
	header := block.Header()
	header.Nonce = 0

	var attempts uint64
	for {
		if attempts%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				evHandler("miner: POW: MINING: CANCELLED: attempts[%d]", attempts)
				return Candidate{}, err
			}
		}

		attempts++
		if attempts%1_000_000 == 0 {
			evHandler("miner: POW: MINING: attempts[%d]", attempts)
		}

		hash := header.Hash()
		if !database.IsHashSolved(header.Difficulty, hash) {
			header.Nonce++
			continue
		}

		block.Nonce = header.Nonce
		block.Hash = hash

		elapsed := time.Since(start)
		evHandler("miner: POW: MINING: SOLVED: blk[%d]: hash[%s]: attempts[%d]: elapsed[%v]", block.Index, hash, attempts, elapsed)

		return Candidate{
			Block:    block,
			Attempts: attempts,
			Elapsed:  elapsed,
		}, nil
	}
}

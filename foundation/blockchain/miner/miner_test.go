package miner_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/genesis"
	"github.com/campusledger/blockchain/foundation/blockchain/miner"
	"github.com/campusledger/blockchain/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func noop(v string, args ...any) {}

type ledger struct {
	snapshot state.MiningSnapshot
}

func (l ledger) MiningSnapshot() state.MiningSnapshot {
	return l.snapshot
}

func spend(id string, sources ...database.OutPoint) database.Tx {
	var inputs []database.TxInput
	for _, op := range sources {
		inputs = append(inputs, database.TxInput{SourceTxID: op.TxID, OutputIndex: op.Index, Amount: 1, Address: "a"})
	}

	return database.Tx{
		ID:      id,
		Type:    database.TxRegular,
		Inputs:  inputs,
		Outputs: []database.TxOutput{{Amount: 1, Address: "b"}},
	}.Finalize()
}

func ids(txs []database.Tx) string {
	var s []string
	for _, tx := range txs {
		s = append(s, string(tx.Type)+":"+tx.ID)
	}
	return strings.Join(s, ",")
}

// =============================================================================

func Test_Mine(t *testing.T) {
	g := genesis.Default()
	head := database.GenesisBlock()

	t.Log("Given the need to mine a block on top of the genesis block.")
	{
		snapshot := state.MiningSnapshot{Head: head, Genesis: g}
		m := miner.New(ledger{snapshot: snapshot}, noop)

		c, err := m.Mine(context.Background(), "miner", "")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine.", success)

		b := c.Block
		if b.Index != 1 || b.PreviousHash != head.Hash {
			t.Fatalf("\t%s\tShould extend the head: index[%d] prev[%s]", failed, b.Index, b.PreviousHash)
		}
		t.Logf("\t%s\tShould extend the head.", success)

		if len(b.Transactions) != 1 || b.Transactions[0].Type != database.TxReward || b.Transactions[0].OutputTotal() != g.MiningReward {
			t.Fatalf("\t%s\tShould only hold the reward: %s", failed, ids(b.Transactions))
		}
		t.Logf("\t%s\tShould only hold the reward.", success)

		if c.Attempts != 1 || b.Nonce != 0 {
			t.Fatalf("\t%s\tShould solve difficulty 0 with the first nonce: attempts[%d]", failed, c.Attempts)
		}
		t.Logf("\t%s\tShould solve difficulty 0 with the first nonce.", success)

		if b.ComputeHash() != b.Hash || b.ValidateLinkage(head, noop) != nil {
			t.Fatalf("\t%s\tShould produce a block that links to the head.", failed)
		}
		t.Logf("\t%s\tShould produce a block that links to the head.", success)

		if _, err := m.Mine(context.Background(), "", ""); !errors.Is(err, miner.ErrNoRewardAddress) {
			t.Fatalf("\t%s\tShould require a reward address: %v", failed, err)
		}
		t.Logf("\t%s\tShould require a reward address.", success)
	}
}

func Test_POW(t *testing.T) {
	t.Log("Given the need to solve a block at a difficulty.")
	{
		b := database.Block{
			Index:        1,
			PreviousHash: database.GenesisBlock().Hash,
			Timestamp:    time.Now().Unix(),
			Difficulty:   2,
		}

		c, err := miner.POW(context.Background(), b, noop)
		if err != nil {
			t.Fatalf("\t%s\tShould solve difficulty 2: %s", failed, err)
		}
		if !strings.HasPrefix(c.Block.Hash, "00") || c.Block.ComputeHash() != c.Block.Hash {
			t.Fatalf("\t%s\tShould find a hash with two leading zeros: %s", failed, c.Block.Hash)
		}
		if c.Attempts != c.Block.Nonce+1 {
			t.Fatalf("\t%s\tShould count every nonce tried from zero: attempts[%d] nonce[%d]", failed, c.Attempts, c.Block.Nonce)
		}
		t.Logf("\t%s\tShould solve difficulty 2.", success)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b.Difficulty = 64
		if _, err := miner.POW(ctx, b, noop); !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould stop when cancelled: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop when cancelled.", success)

		ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if _, err := miner.POW(ctx, b, noop); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("\t%s\tShould stop an unsolvable search on timeout: %v", failed, err)
		}
		t.Logf("\t%s\tShould stop an unsolvable search on timeout.", success)
	}
}

func Test_Build(t *testing.T) {
	g := genesis.Default()

	confirmed := database.OutPoint{TxID: "confirmed", Index: 0}
	spent := database.OutPoint{TxID: "confirmed", Index: 1}

	a := spend("a", confirmed)
	b := spend("b", confirmed)
	c := spend("c", database.OutPoint{TxID: "a", Index: 0})
	d := spend("d", database.OutPoint{TxID: "unknown", Index: 0})
	e := spend("e", spent)
	reg := database.NewTx(database.TxRegistration, nil, []database.TxOutput{{Amount: 1, Address: "t"}}).Finalize()
	fee := database.NewTx(database.TxFee, nil, []database.TxOutput{{Amount: 1, Address: "x"}}).Finalize()

	snapshot := state.MiningSnapshot{
		Head:       database.GenesisBlock(),
		Pending:    []database.Tx{a, b, c, d, e, reg, fee},
		Difficulty: 3,
		Genesis:    g,
		ChainSpent: map[database.OutPoint]bool{spent: true},
		ChainTxs:   map[string]bool{"confirmed": true},
	}

	t.Log("Given the need to select pending transactions for a block.")
	{
		block := miner.Build(snapshot, "miner", "fees", time.Now())

		got := block.Transactions
		if len(got) != 5 || got[0].ID != "a" || got[1].ID != "c" || got[2].ID != reg.ID {
			t.Fatalf("\t%s\tShould select spendable transactions in arrival order: %s", failed, ids(got))
		}
		t.Logf("\t%s\tShould select spendable transactions in arrival order.", success)

		if got[3].Type != database.TxFee || got[3].OutputTotal() != 3*g.FeePerTransaction || got[3].Outputs[0].Address != "fees" {
			t.Fatalf("\t%s\tShould pay a fee for every selected transaction: %s", failed, ids(got))
		}
		t.Logf("\t%s\tShould pay a fee for every selected transaction.", success)

		if got[4].Type != database.TxReward || got[4].Outputs[0].Address != "miner" {
			t.Fatalf("\t%s\tShould end with the reward: %s", failed, ids(got))
		}
		t.Logf("\t%s\tShould end with the reward.", success)

		if block.Difficulty != 3 || block.Index != 1 {
			t.Fatalf("\t%s\tShould use the difficulty and index of the next block.", failed)
		}
		t.Logf("\t%s\tShould use the difficulty and index of the next block.", success)

		g.TransPerBlock = 1
		snapshot.Genesis = g

		block = miner.Build(snapshot, "miner", "", time.Now())
		if len(block.Transactions) != 2 || block.Transactions[0].ID != "a" || block.Transactions[1].Type != database.TxReward {
			t.Fatalf("\t%s\tShould respect the transactions per block limit: %s", failed, ids(block.Transactions))
		}
		t.Logf("\t%s\tShould respect the transactions per block limit.", success)
	}
}

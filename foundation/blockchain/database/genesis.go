package database

// Fixed content of the first block. Every valid chain starts with exactly
// this block.
const (
	genesisTimestamp = 1465154705
	genesisTxID      = "63ec3ac02f822450039df13ddf7c3c0f19bab4acd4dc928c62fcd78d5ebc6dba"
)

// GenesisBlock returns the genesis block. A new value is constructed on every
// call so callers can't change the shared copy.
func GenesisBlock() Block {
	tx := Tx{
		ID:      genesisTxID,
		Type:    TxRegular,
		Inputs:  []TxInput{},
		Outputs: []TxOutput{},
	}.Finalize()

	b := Block{
		Index:        0,
		PreviousHash: "0",
		Timestamp:    genesisTimestamp,
		Nonce:        0,
		Difficulty:   0,
		Transactions: []Tx{tx},
	}
	b.Hash = b.ComputeHash()

	return b
}

// IsGenesis reports whether the block is the genesis block.
func IsGenesis(b Block) bool {
	genesis := GenesisBlock()

	if b.Index != genesis.Index || b.Hash != genesis.Hash || b.ComputeHash() != genesis.Hash {
		return false
	}

	if len(b.Transactions) != len(genesis.Transactions) {
		return false
	}

	for i, tx := range b.Transactions {
		if tx.Hash != genesis.Transactions[i].Hash {
			return false
		}
	}

	return true
}

package database

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/campusledger/blockchain/foundation/blockchain/merkle"
	"github.com/campusledger/blockchain/foundation/blockchain/signature"
)

// BlockHeader represents the fields that are hashed to produce the block hash.
// The transactions are committed to through the merkle root.
type BlockHeader struct {
	Index        uint64 `json:"index"`
	PreviousHash string `json:"previousHash"`
	Timestamp    int64  `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint   `json:"difficulty"`
	TransRoot    string `json:"transRoot"`
}

// Hash returns the unique hash for the header.
func (bh BlockHeader) Hash() string {
	return signature.Hash(bh)
}

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64 `json:"index"`
	PreviousHash string `json:"previousHash"`
	Timestamp    int64  `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint   `json:"difficulty"`
	Transactions []Tx   `json:"transactions"`
	Hash         string `json:"hash"`
}

// Header returns the hashed portion of the block.
func (b Block) Header() BlockHeader {
	return BlockHeader{
		Index:        b.Index,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Nonce:        b.Nonce,
		Difficulty:   b.Difficulty,
		TransRoot:    TransRoot(b.Transactions),
	}
}

// ComputeHash recomputes the hash from the stored fields.
func (b Block) ComputeHash() string {
	return b.Header().Hash()
}

// Work returns the amount of work this block represents, 2^difficulty.
func (b Block) Work() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), b.Difficulty)
}

// FindTx looks for the transaction by id inside the block.
func (b Block) FindTx(id string) (Tx, bool) {
	for _, tx := range b.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return Tx{}, false
}

// TxProof returns the merkle proof that the transaction is part of this block.
func (b Block) TxProof(id string) ([]string, []int64, error) {
	tx, found := b.FindTx(id)
	if !found {
		return nil, nil, fmt.Errorf("%w: tx[%s] in block[%d]", ErrNotFound, id, b.Index)
	}

	tree, err := merkle.NewTree(leaves(b.Transactions))
	if err != nil {
		return nil, nil, err
	}

	proof, order, err := tree.Proof(txLeaf{hash: tx.ComputeHash()})
	if err != nil {
		return nil, nil, err
	}

	hashes := make([]string, len(proof))
	for i, p := range proof {
		hashes[i] = hex.EncodeToString(p)
	}

	return hashes, order, nil
}

// ValidateStructure checks the block has the shape of a block before any
// linkage or proof of work checks are attempted.
func (b Block) ValidateStructure() error {
	if !isHexHash(b.Hash) {
		return fmt.Errorf("%w: block[%d]: hash %q is not a hash", ErrStructural, b.Index, b.Hash)
	}

	if b.PreviousHash == "" {
		return fmt.Errorf("%w: block[%d]: previous hash is missing", ErrStructural, b.Index)
	}

	ids := make(map[string]struct{}, len(b.Transactions))
	for _, tx := range b.Transactions {
		if _, exists := ids[tx.ID]; exists {
			return fmt.Errorf("%w: block[%d]: tx[%s] appears twice", ErrStructural, b.Index, tx.ID)
		}
		ids[tx.ID] = struct{}{}
	}

	return nil
}

// ValidateLinkage checks the block extends the previous block and that its
// hash matches its contents.
func (b Block) ValidateLinkage(previous Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateLinkage: validate: blk[%d]: check: block index is the next index", b.Index)

	if b.Index != previous.Index+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrIndexMismatch, b.Index, previous.Index+1)
	}

	evHandler("database: ValidateLinkage: validate: blk[%d]: check: previous hash does match previous block", b.Index)

	if b.PreviousHash != previous.Hash {
		return fmt.Errorf("%w: block[%d]: previous hash doesn't match, got %s, exp %s", ErrChainLinkage, b.Index, b.PreviousHash, previous.Hash)
	}

	evHandler("database: ValidateLinkage: validate: blk[%d]: check: hash does match contents", b.Index)

	if hash := b.ComputeHash(); b.Hash != hash {
		return fmt.Errorf("%w: block[%d]: hash doesn't match contents, got %s, exp %s", ErrChainLinkage, b.Index, b.Hash, hash)
	}

	return nil
}

// =============================================================================

// TransRoot returns the merkle root of the transactions. The leaves are the
// recomputed transaction hashes so any change to a transaction changes the
// root.
func TransRoot(txs []Tx) string {
	if len(txs) == 0 {
		return signature.ZeroHash
	}

	tree, err := merkle.NewTree(leaves(txs))
	if err != nil {
		return signature.ZeroHash
	}

	return tree.RootHex()
}

// LeadingZeros counts the leading '0' characters of the hash text.
func LeadingZeros(hash string) uint {
	var n uint
	for n < uint(len(hash)) && hash[n] == '0' {
		n++
	}
	return n
}

// IsHashSolved checks the hash complies with the proof of work rules. The
// hash must start with difficulty '0' characters.
func IsHashSolved(difficulty uint, hash string) bool {
	if !isHexHash(hash) {
		return false
	}
	return LeadingZeros(hash) >= difficulty
}

// CumulativeWork returns the sum of 2^difficulty over the blocks.
func CumulativeWork(blocks []Block) *big.Int {
	total := new(big.Int)
	for _, b := range blocks {
		total.Add(total, b.Work())
	}
	return total
}

// =============================================================================

// txLeaf is the value stored in the merkle tree for a transaction.
type txLeaf struct {
	hash string
}

// Hash implements the merkle Hashable interface.
func (l txLeaf) Hash() ([]byte, error) {
	return hex.DecodeString(l.hash)
}

// Equals implements the merkle Hashable interface.
func (l txLeaf) Equals(other txLeaf) bool {
	return l.hash == other.hash
}

func leaves(txs []Tx) []txLeaf {
	values := make([]txLeaf, len(txs))
	for i, tx := range txs {
		values[i] = txLeaf{hash: tx.ComputeHash()}
	}
	return values
}

func isHexHash(hash string) bool {
	if len(hash) != len(signature.ZeroHash) {
		return false
	}
	return strings.Trim(hash, "0123456789abcdef") == ""
}

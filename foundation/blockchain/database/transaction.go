package database

import (
	"encoding/json"
	"fmt"

	"github.com/campusledger/blockchain/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// TxType identifies the kind of transaction.
type TxType string

// Set of transaction types the ledger understands.
const (
	TxRegular      TxType = "regular"
	TxFee          TxType = "fee"
	TxReward       TxType = "reward"
	TxRegistration TxType = "registration"
	TxAttendance   TxType = "attendance"
)

// Valid reports whether the type is one the ledger understands.
func (t TxType) Valid() bool {
	switch t {
	case TxRegular, TxFee, TxReward, TxRegistration, TxAttendance:
		return true
	}
	return false
}

// IsPayload reports whether the type only carries a record. Payload outputs
// are not value: they are never spendable and are not balance checked.
func (t TxType) IsPayload() bool {
	return t == TxRegistration || t == TxAttendance
}

// IsMinted reports whether the type is created by a miner out of nothing.
func (t TxType) IsMinted() bool {
	return t == TxFee || t == TxReward
}

// =============================================================================

// OutPoint identifies a single output of a transaction.
type OutPoint struct {
	TxID  string `json:"txId"`
	Index uint64 `json:"index"`
}

// String implements the Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// TxInput spends an output of an earlier transaction.
type TxInput struct {
	SourceTxID  string `json:"sourceTxId"`
	OutputIndex uint64 `json:"outputIndex"`
	Amount      uint64 `json:"amount"`
	Address     string `json:"address"`
	Signature   string `json:"signature"`
}

// OutPoint returns the output this input spends.
func (in TxInput) OutPoint() OutPoint {
	return OutPoint{TxID: in.SourceTxID, Index: in.OutputIndex}
}

// TxOutput assigns an amount to an address. Payload transactions use the
// metadata to carry their record.
type TxOutput struct {
	Amount   uint64            `json:"amount"`
	Address  string            `json:"address"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Tx is the transactional information between parties.
type Tx struct {
	ID      string     `json:"id"`
	Hash    string     `json:"hash"`
	Type    TxType     `json:"type"`
	Inputs  []TxInput  `json:"inputs"`
	Outputs []TxOutput `json:"outputs"`
}

// NewTx constructs a new transaction with a fresh id. The transaction still
// needs to be signed and finalized.
func NewTx(typ TxType, inputs []TxInput, outputs []TxOutput) Tx {
	return Tx{
		ID:      uuid.NewString(),
		Type:    typ,
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// ComputeHash derives the transaction hash from the id, type and body.
func (tx Tx) ComputeHash() string {
	body := struct {
		Inputs  []TxInput  `json:"inputs"`
		Outputs []TxOutput `json:"outputs"`
	}{
		Inputs:  tx.Inputs,
		Outputs: tx.Outputs,
	}

	// A missing list and an empty list must hash the same.
	if body.Inputs == nil {
		body.Inputs = []TxInput{}
	}
	if body.Outputs == nil {
		body.Outputs = []TxOutput{}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return signature.ZeroHash
	}

	return signature.HashString(tx.ID + string(tx.Type) + string(data))
}

// SigningHash returns the digest the owner of the specified input signs. It
// binds the input to the transaction id and its outputs.
func (tx Tx) SigningHash(index int) string {
	in := tx.Inputs[index]

	outputs := tx.Outputs
	if outputs == nil {
		outputs = []TxOutput{}
	}

	return signature.Hash(struct {
		ID          string     `json:"id"`
		Type        TxType     `json:"type"`
		Outputs     []TxOutput `json:"outputs"`
		SourceTxID  string     `json:"sourceTxId"`
		OutputIndex uint64     `json:"outputIndex"`
		Amount      uint64     `json:"amount"`
		Address     string     `json:"address"`
	}{
		ID:          tx.ID,
		Type:        tx.Type,
		Outputs:     outputs,
		SourceTxID:  in.SourceTxID,
		OutputIndex: in.OutputIndex,
		Amount:      in.Amount,
		Address:     in.Address,
	})
}

// Sign signs every input with the secret key returned for the input's address
// and finalizes the transaction.
func (tx Tx) Sign(secretKeyFor func(address string) (string, error)) (Tx, error) {
	inputs := make([]TxInput, len(tx.Inputs))
	copy(inputs, tx.Inputs)
	tx.Inputs = inputs

	for i := range tx.Inputs {
		key, err := secretKeyFor(tx.Inputs[i].Address)
		if err != nil {
			return Tx{}, err
		}

		sig, err := signature.Sign(key, tx.SigningHash(i))
		if err != nil {
			return Tx{}, err
		}
		tx.Inputs[i].Signature = sig
	}

	return tx.Finalize(), nil
}

// Finalize returns the transaction with its hash set.
func (tx Tx) Finalize() Tx {
	tx.Hash = tx.ComputeHash()
	return tx
}

// Validate checks the transaction on its own: shape, hash, amounts and
// signatures. Whether the inputs exist and are unspent is for the ledger.
func (tx Tx) Validate() error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is missing", ErrStructural)
	}

	if !tx.Type.Valid() {
		return fmt.Errorf("%w: tx[%s]: unknown type %q", ErrStructural, tx.ID, tx.Type)
	}

	if tx.Hash != tx.ComputeHash() {
		return fmt.Errorf("%w: tx[%s]: hash does not match contents", ErrStructural, tx.ID)
	}

	if len(tx.Outputs) == 0 {
		return fmt.Errorf("%w: tx[%s]: no outputs", ErrStructural, tx.ID)
	}

	var outTotal uint64
	for i, out := range tx.Outputs {
		if out.Amount == 0 {
			return fmt.Errorf("%w: tx[%s]: output[%d] has no amount", ErrStructural, tx.ID, i)
		}
		if out.Address == "" {
			return fmt.Errorf("%w: tx[%s]: output[%d] has no address", ErrStructural, tx.ID, i)
		}
		if outTotal+out.Amount < outTotal {
			return fmt.Errorf("%w: tx[%s]: output total overflows", ErrBalance, tx.ID)
		}
		outTotal += out.Amount
	}

	if tx.Type != TxRegular {
		if len(tx.Inputs) != 0 {
			return fmt.Errorf("%w: tx[%s]: %s transactions carry no inputs", ErrStructural, tx.ID, tx.Type)
		}
		return nil
	}

	if len(tx.Inputs) == 0 {
		return fmt.Errorf("%w: tx[%s]: no inputs", ErrStructural, tx.ID)
	}

	var inTotal uint64
	spent := make(map[OutPoint]struct{}, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if in.SourceTxID == "" || in.Address == "" {
			return fmt.Errorf("%w: tx[%s]: input[%d] is incomplete", ErrStructural, tx.ID, i)
		}

		if _, exists := spent[in.OutPoint()]; exists {
			return fmt.Errorf("%w: tx[%s]: input[%d] repeats %s", ErrDoubleSpend, tx.ID, i, in.OutPoint())
		}
		spent[in.OutPoint()] = struct{}{}

		if inTotal+in.Amount < inTotal {
			return fmt.Errorf("%w: tx[%s]: input total overflows", ErrBalance, tx.ID)
		}
		inTotal += in.Amount

		if !signature.Verify(in.Address, in.Signature, tx.SigningHash(i)) {
			return fmt.Errorf("%w: tx[%s]: input[%d]", ErrSignature, tx.ID, i)
		}
	}

	if inTotal != outTotal {
		return fmt.Errorf("%w: tx[%s]: inputs %d, outputs %d", ErrBalance, tx.ID, inTotal, outTotal)
	}

	return nil
}

// OutputTotal returns the sum of the output amounts.
func (tx Tx) OutputTotal() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Amount
	}
	return total
}

// String implements the Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s", tx.Type, tx.ID)
}

// =============================================================================

// UTXO represents an unspent output that can be used as an input.
type UTXO struct {
	TxID    string `json:"txId"`
	Index   uint64 `json:"index"`
	Amount  uint64 `json:"amount"`
	Address string `json:"address"`
}

// OutPoint returns the output this value refers to.
func (u UTXO) OutPoint() OutPoint {
	return OutPoint{TxID: u.TxID, Index: u.Index}
}

// Input returns an unsigned input spending this output.
func (u UTXO) Input() TxInput {
	return TxInput{
		SourceTxID:  u.TxID,
		OutputIndex: u.Index,
		Amount:      u.Amount,
		Address:     u.Address,
	}
}

// =============================================================================

// Metadata keys carried by payload transaction outputs.
const (
	MetaStudentID      = "studentId"
	MetaStudentAddress = "studentAddress"
	MetaClassID        = "classId"
	MetaCourseID       = "courseId"
	MetaRecordedAt     = "recordedAt"
)

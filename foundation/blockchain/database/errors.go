package database

import "errors"

// Set of error kinds the ledger reports. Errors are wrapped with context
// using fmt.Errorf and the %w verb so callers can test with errors.Is.
var (
	ErrStructural        = errors.New("malformed record")
	ErrChainLinkage      = errors.New("chain linkage mismatch")
	ErrProofOfWork       = errors.New("proof of work not satisfied")
	ErrBalance           = errors.New("balance mismatch")
	ErrSignature         = errors.New("invalid signature")
	ErrDoubleSpend       = errors.New("output already spent")
	ErrDuplicate         = errors.New("already known")
	ErrNotFound          = errors.New("not found")
	ErrPeerCommunication = errors.New("peer communication failure")
	ErrChainNotBetter    = errors.New("chain is not better than the current chain")
)

// ErrIndexMismatch is returned when a block doesn't extend the current head.
// It is a linkage error and usually means the chain moved on while the block
// was being mined.
var ErrIndexMismatch = errorKind(ErrChainLinkage, "index mismatch")

// IsDuplicate reports whether the error only says the record is already known.
// Callers treat this as a successful no-op.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// =============================================================================

// kindError attaches a more specific message to one of the error kinds.
type kindError struct {
	kind error
	msg  string
}

func errorKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (ke *kindError) Error() string {
	return ke.kind.Error() + ": " + ke.msg
}

func (ke *kindError) Unwrap() error {
	return ke.kind
}

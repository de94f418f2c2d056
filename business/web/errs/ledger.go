package errs

import (
	"errors"
	"net/http"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/miner"
)

// statuses maps the ledger error kinds to the status reported to a caller.
var statuses = []struct {
	kind   error
	status int
}{
	{database.ErrDuplicate, http.StatusOK},
	{database.ErrNotFound, http.StatusNotFound},
	{database.ErrDoubleSpend, http.StatusConflict},
	{database.ErrChainNotBetter, http.StatusConflict},
	{database.ErrPeerCommunication, http.StatusBadGateway},
	{database.ErrStructural, http.StatusBadRequest},
	{database.ErrBalance, http.StatusBadRequest},
	{database.ErrSignature, http.StatusBadRequest},
	{database.ErrProofOfWork, http.StatusBadRequest},
	{database.ErrChainLinkage, http.StatusBadRequest},
	{miner.ErrNoRewardAddress, http.StatusBadRequest},
}

// StatusOf returns the status for a ledger error. Errors of an unknown kind
// report an internal server error.
func StatusOf(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// FromLedger wraps a ledger error as a trusted error carrying its status.
// Errors of an unknown kind are returned unchanged so they are never shown
// to the caller.
func FromLedger(err error) error {
	if err == nil {
		return nil
	}

	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		return err
	}

	return NewTrusted(err, status)
}

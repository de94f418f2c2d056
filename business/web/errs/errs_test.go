package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/campusledger/blockchain/business/web/errs"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_StatusOf(t *testing.T) {
	type table struct {
		name   string
		err    error
		status int
	}

	tt := []table{
		{"structural", fmt.Errorf("%w: no outputs", database.ErrStructural), http.StatusBadRequest},
		{"index", database.ErrIndexMismatch, http.StatusBadRequest},
		{"pow", database.ErrProofOfWork, http.StatusBadRequest},
		{"double", fmt.Errorf("%w: a:0", database.ErrDoubleSpend), http.StatusConflict},
		{"notbetter", database.ErrChainNotBetter, http.StatusConflict},
		{"duplicate", database.ErrDuplicate, http.StatusOK},
		{"notfound", database.ErrNotFound, http.StatusNotFound},
		{"peer", database.ErrPeerCommunication, http.StatusBadGateway},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	t.Log("Given the need to map ledger errors to statuses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				if got := errs.StatusOf(tst.err); got != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould map to %d, got %d.", failed, testID, tst.status, got)
				}
				t.Logf("\t%s\tTest %d:\tShould map to %d.", success, testID, tst.status)

				trusted := errs.IsTrusted(errs.FromLedger(tst.err))
				if trusted != (tst.status != http.StatusInternalServerError) {
					t.Fatalf("\t%s\tTest %d:\tShould only trust known kinds.", failed, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Trusted(t *testing.T) {
	t.Log("Given the need to carry a status with a handler error.")
	{
		inner := fmt.Errorf("%w: a:0", database.ErrDoubleSpend)
		err := fmt.Errorf("submit: %w", errs.FromLedger(inner))

		te := errs.GetTrusted(err)
		if te == nil {
			t.Fatalf("\t%s\tShould find the trusted error through wrapping.", failed)
		}
		t.Logf("\t%s\tShould find the trusted error through wrapping.", success)

		if te.Status != http.StatusConflict {
			t.Fatalf("\t%s\tShould carry status %d, got %d.", failed, http.StatusConflict, te.Status)
		}
		t.Logf("\t%s\tShould carry status %d.", success, http.StatusConflict)

		if !errors.Is(err, database.ErrDoubleSpend) {
			t.Fatalf("\t%s\tShould still match the ledger kind.", failed)
		}
		t.Logf("\t%s\tShould still match the ledger kind.", success)

		if errs.GetTrusted(errors.New("disk on fire")) != nil {
			t.Fatalf("\t%s\tShould return nil for an untrusted error.", failed)
		}
		t.Logf("\t%s\tShould return nil for an untrusted error.", success)
	}
}

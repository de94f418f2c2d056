// Package commands contains the functionality for the set of commands
// currently supported by the admin tooling.
package commands

import (
	"fmt"
	"io"

	"github.com/campusledger/blockchain/foundation/blockchain/storage"
	"github.com/pterm/pterm"
)

// Ledger is the persisted state the commands report on.
type Ledger struct {
	storage.Snapshot
}

// render writes the table with a header row to w.
func render(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, out)
	return err
}

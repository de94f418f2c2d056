package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/pterm/pterm"
)

// Blocks lists the blocks of the chain.
func Blocks(w io.Writer, ldg Ledger) error {
	data := pterm.TableData{{"Index", "Hash", "Previous", "Time", "Difficulty", "Nonce", "Txs"}}

	for _, block := range ldg.Blocks {
		data = append(data, []string{
			strconv.FormatUint(block.Index, 10),
			block.Hash,
			block.PreviousHash,
			time.Unix(block.Timestamp, 0).UTC().Format(time.RFC3339),
			strconv.FormatUint(uint64(block.Difficulty), 10),
			strconv.FormatUint(block.Nonce, 10),
			strconv.Itoa(len(block.Transactions)),
		})
	}

	if err := render(w, data); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Cumulative work: %s\n", database.CumulativeWork(ldg.Blocks))
	return err
}

// Transactions lists the confirmed transactions. When an address is given
// only transactions with an input or output for it are listed.
func Transactions(w io.Writer, ldg Ledger, address string) error {
	data := pterm.TableData{{"Block", "ID", "Type", "Inputs", "Outputs", "Total"}}

	for _, block := range ldg.Blocks {
		for _, tx := range block.Transactions {
			if address != "" && !touches(tx, address) {
				continue
			}
			data = append(data, txRow(strconv.FormatUint(block.Index, 10), tx))
		}
	}

	return render(w, data)
}

// Pending lists the transactions waiting in the pool.
func Pending(w io.Writer, ldg Ledger) error {
	data := pterm.TableData{{"Block", "ID", "Type", "Inputs", "Outputs", "Total"}}

	for _, tx := range ldg.Transactions {
		data = append(data, txRow("-", tx))
	}

	return render(w, data)
}

func txRow(block string, tx database.Tx) []string {
	return []string{
		block,
		tx.ID,
		string(tx.Type),
		strconv.Itoa(len(tx.Inputs)),
		strconv.Itoa(len(tx.Outputs)),
		strconv.FormatUint(tx.OutputTotal(), 10),
	}
}

func touches(tx database.Tx, address string) bool {
	for _, in := range tx.Inputs {
		if in.Address == address {
			return true
		}
	}
	for _, out := range tx.Outputs {
		if out.Address == address {
			return true
		}
	}
	return false
}

package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/campusledger/blockchain/foundation/blockchain/balance"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
	"github.com/pterm/pterm"
)

// Balances returns the confirmed balances, or the balance of a single
// address.
func Balances(w io.Writer, ldg Ledger, address string) error {
	sheet := balance.NewSheet(ldg.Blocks)

	if len(ldg.Blocks) > 0 {
		fmt.Fprintf(w, "LatestBlockHash: %s\n\n", ldg.Blocks[len(ldg.Blocks)-1].Hash)
	}

	data := pterm.TableData{{"Address", "Balance"}}

	if address != "" {
		data = append(data, []string{address, strconv.FormatUint(sheet.Balance(address), 10)})
		return render(w, data)
	}

	values := sheet.Values()
	addrs := make([]string, 0, len(values))
	for addr := range values {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		data = append(data, []string{addr, strconv.FormatUint(values[addr], 10)})
	}

	return render(w, data)
}

// Records lists the registrations and attendance of a student.
func Records(w io.Writer, ldg Ledger, studentAddress string) error {
	idx := records.New(ldg.Blocks)

	data := pterm.TableData{{"Block", "Type", "Student", "Class", "Course", "Recipient", "Recorded"}}

	rows := append(idx.Registrations(studentAddress), idx.Attendance(studentAddress, records.Filter{})...)
	for _, rec := range rows {
		data = append(data, []string{
			strconv.FormatUint(rec.BlockIndex, 10),
			string(rec.Type),
			rec.StudentID,
			rec.ClassID,
			rec.CourseID,
			rec.Recipient,
			strconv.FormatInt(rec.RecordedAt, 10),
		})
	}

	return render(w, data)
}

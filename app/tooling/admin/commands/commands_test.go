package commands_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/campusledger/blockchain/app/tooling/admin/commands"
	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/campusledger/blockchain/foundation/blockchain/storage"
	"github.com/pterm/pterm"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Commands(t *testing.T) {
	pterm.DisableStyling()

	reward := database.NewTx(database.TxReward, nil, []database.TxOutput{{Amount: 50, Address: "miner"}})
	reg := identity.NewRegistration("teacher", identity.Registration{
		StudentID:      "s-1",
		StudentAddress: "student",
		ClassID:        "cs-101",
		RecordedAt:     100,
	})
	pending := identity.NewAttendance("teacher", identity.Attendance{
		StudentID:      "s-1",
		StudentAddress: "student",
		CourseID:       "math",
		RecordedAt:     200,
	})

	ldg := commands.Ledger{
		Snapshot: storage.Snapshot{
			Blocks: []database.Block{
				database.GenesisBlock(),
				{Index: 1, Hash: "blockone", Transactions: []database.Tx{reward, reg}},
			},
			Transactions: []database.Tx{pending},
		},
	}

	tests := []struct {
		name string
		run  func(buf *bytes.Buffer) error
		want []string
		skip []string
	}{
		{"blocks", func(buf *bytes.Buffer) error { return commands.Blocks(buf, ldg) }, []string{"blockone", "Cumulative work"}, nil},
		{"trans", func(buf *bytes.Buffer) error { return commands.Transactions(buf, ldg, "") }, []string{reward.ID, reg.ID}, []string{pending.ID}},
		{"transaddr", func(buf *bytes.Buffer) error { return commands.Transactions(buf, ldg, "miner") }, []string{reward.ID}, []string{reg.ID}},
		{"pending", func(buf *bytes.Buffer) error { return commands.Pending(buf, ldg) }, []string{pending.ID}, []string{reg.ID}},
		{"bals", func(buf *bytes.Buffer) error { return commands.Balances(buf, ldg, "") }, []string{"miner", "50", "blockone"}, nil},
		{"records", func(buf *bytes.Buffer) error { return commands.Records(buf, ldg, "student") }, []string{"cs-101", "registration"}, []string{"math"}},
	}

	t.Log("Given the need to report on a stored ledger.")
	{
		for testID, tst := range tests {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen running the %s command.", testID, tst.name)
				{
					var buf bytes.Buffer
					if err := tst.run(&buf); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to render: %s", failed, testID, err)
					}
					out := buf.String()

					for _, want := range tst.want {
						if !strings.Contains(out, want) {
							t.Fatalf("\t%s\tTest %d:\tShould list %q:\n%s", failed, testID, want, out)
						}
					}
					for _, skip := range tst.skip {
						if strings.Contains(out, skip) {
							t.Fatalf("\t%s\tTest %d:\tShould not list %q:\n%s", failed, testID, skip, out)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould render the expected rows.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

package records_test

import (
	"testing"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/campusledger/blockchain/foundation/blockchain/records"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Index(t *testing.T) {
	reg := identity.NewRegistration("teacher", identity.Registration{
		StudentID:      "s-1",
		StudentAddress: "student",
		ClassID:        "cs-101",
		RecordedAt:     100,
	})
	att1 := identity.NewAttendance("teacher", identity.Attendance{
		StudentID:      "s-1",
		StudentAddress: "student",
		CourseID:       "math",
		ClassID:        "cs-101",
		RecordedAt:     300,
	})
	att2 := identity.NewAttendance("teacher", identity.Attendance{
		StudentID:      "s-1",
		StudentAddress: "student",
		CourseID:       "art",
		ClassID:        "cs-102",
		RecordedAt:     200,
	})

	chain := []database.Block{
		database.GenesisBlock(),
		{Index: 1, Transactions: []database.Tx{reg, att1}},
		{Index: 2, Transactions: []database.Tx{att2}},
	}

	t.Log("Given the need to query confirmed records.")
	{
		idx := records.New(chain[:2])

		if got := idx.Registrations("student"); len(got) != 1 || got[0].ClassID != "cs-101" || got[0].RecordedAt != 100 {
			t.Fatalf("\t%s\tShould find the registration: %+v", failed, got)
		}
		t.Logf("\t%s\tShould find the registration.", success)

		idx.BlockAdded(chain[2])

		got := idx.Attendance("student", records.Filter{})
		if len(got) != 2 || got[0].CourseID != "art" || got[1].CourseID != "math" {
			t.Fatalf("\t%s\tShould list attendance in recorded order: %+v", failed, got)
		}
		t.Logf("\t%s\tShould list attendance in recorded order.", success)

		if got := idx.Attendance("student", records.Filter{CourseID: "math"}); len(got) != 1 || got[0].BlockIndex != 1 {
			t.Fatalf("\t%s\tShould filter attendance by course: %+v", failed, got)
		}
		if got := idx.ByCourse("art", records.Filter{}); len(got) != 1 || got[0].TxID != att2.ID {
			t.Fatalf("\t%s\tShould list a course: %+v", failed, got)
		}
		t.Logf("\t%s\tShould filter attendance by course.", success)

		if got := idx.ByClass("cs-101", records.Filter{}); len(got) != 1 || got[0].CourseID != "math" {
			t.Fatalf("\t%s\tShould list the attendance of a class: %+v", failed, got)
		}
		if got := idx.ByClass("cs-101", records.Filter{StudentID: "s-2"}); len(got) != 0 {
			t.Fatalf("\t%s\tShould filter a class by student: %+v", failed, got)
		}
		t.Logf("\t%s\tShould list the attendance of a class.", success)

		ranges := []struct {
			from, to int64
			want     int
		}{
			{0, 0, 2},
			{150, 0, 2},
			{0, 250, 1},
			{200, 200, 1},
			{250, 299, 0},
			{301, 0, 0},
		}
		for _, rng := range ranges {
			got := idx.Attendance("student", records.Filter{From: rng.from, To: rng.to})
			if len(got) != rng.want {
				t.Fatalf("\t%s\tShould filter attendance from %d to %d: got %d, exp %d", failed, rng.from, rng.to, len(got), rng.want)
			}
		}
		t.Logf("\t%s\tShould filter attendance by the time it was recorded.", success)

		if got := idx.Received("teacher"); len(got) != 3 {
			t.Fatalf("\t%s\tShould list the records received by the teacher: %d", failed, len(got))
		}
		t.Logf("\t%s\tShould list the records received by the teacher.", success)

		idx.ChainReplaced(chain[:2])
		if got := idx.Received("teacher"); len(got) != 3 {
			t.Fatalf("\t%s\tShould ignore a shorter chain: %d", failed, len(got))
		}
		t.Logf("\t%s\tShould ignore a shorter chain.", success)

		idx.ChainReplaced(append(chain[:1:1], database.Block{Index: 1}, database.Block{Index: 2}, database.Block{Index: 3}))
		if got := idx.Received("teacher"); len(got) != 0 {
			t.Fatalf("\t%s\tShould drop records of a superseded chain: %d", failed, len(got))
		}
		t.Logf("\t%s\tShould drop records of a superseded chain.", success)
	}
}

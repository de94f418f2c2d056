package identity_test

import (
	"errors"
	"testing"

	"github.com/campusledger/blockchain/foundation/blockchain/database"
	"github.com/campusledger/blockchain/foundation/blockchain/identity"
	"github.com/campusledger/blockchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Derivation(t *testing.T) {
	t.Log("Given the need to derive the same addresses from the same password.")
	{
		w1 := identity.New("correct horse battery staple")
		w2 := identity.New("correct horse battery staple")
		w3 := identity.New("another password")

		a1, err := w1.GenerateAddresses(3)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive addresses: %s", failed, err)
		}
		a2, err := w2.GenerateAddresses(3)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive addresses: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to derive addresses.", success)

		for i := range a1 {
			if a1[i] != a2[i] {
				t.Fatalf("\t%s\tShould derive the same address %d from the same password.", failed, i)
			}
		}
		t.Logf("\t%s\tShould derive the same addresses from the same password.", success)

		if a1[0] == a1[1] || a1[1] == a1[2] {
			t.Fatalf("\t%s\tShould derive a new address each time.", failed)
		}
		t.Logf("\t%s\tShould derive a new address each time.", success)

		a3, err := w3.GenerateAddress()
		if err != nil || a3 == a1[0] {
			t.Fatalf("\t%s\tShould derive a different address from a different password.", failed)
		}
		t.Logf("\t%s\tShould derive a different address from a different password.", success)

		if w1.ID() != w2.ID() || w1.ID() == w3.ID() {
			t.Fatalf("\t%s\tShould identify the wallet by its secret.", failed)
		}
		t.Logf("\t%s\tShould identify the wallet by its secret.", success)
	}

	t.Log("Given the need to sign with a derived key.")
	{
		w := identity.New("signing")
		addr, err := w.GenerateAddress()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to derive an address: %s", failed, err)
		}

		hash := signature.HashString("payload")
		sig, err := w.Sign(addr, hash)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to sign: %s", failed, err)
		}

		if !signature.Verify(addr, sig, hash) {
			t.Fatalf("\t%s\tShould verify the signature with the address.", failed)
		}
		t.Logf("\t%s\tShould verify the signature with the address.", success)

		if _, err := w.Sign("unknown", hash); !errors.Is(err, identity.ErrUnknownAddress) {
			t.Fatalf("\t%s\tShould not sign for an address it doesn't hold: %v", failed, err)
		}
		t.Logf("\t%s\tShould not sign for an address it doesn't hold.", success)
	}
}

func Test_BuildTransaction(t *testing.T) {
	w := identity.New("builder")
	addrs, err := w.GenerateAddresses(2)
	if err != nil {
		t.Fatalf("Should be able to derive addresses: %s", err)
	}

	utxos := []database.UTXO{
		{TxID: "tx1", Index: 0, Amount: 30, Address: addrs[0]},
		{TxID: "tx2", Index: 1, Amount: 50, Address: addrs[1]},
		{TxID: "tx3", Index: 0, Amount: 99, Address: "someone-else"},
	}

	t.Log("Given the need to build a signed transfer.")
	{
		tx, err := w.BuildTransaction(utxos, "bob", 60, addrs[0])
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to build the transaction.", success)

		if err := tx.Validate(); err != nil {
			t.Fatalf("\t%s\tShould build a valid transaction: %s", failed, err)
		}
		t.Logf("\t%s\tShould build a valid transaction.", success)

		if len(tx.Inputs) != 2 || len(tx.Outputs) != 2 || tx.Outputs[0].Amount != 60 || tx.Outputs[1].Amount != 20 {
			t.Fatalf("\t%s\tShould pay the amount and return the change: %+v", failed, tx.Outputs)
		}
		t.Logf("\t%s\tShould pay the amount and return the change.", success)

		if _, err := w.BuildTransaction(utxos, "bob", 81, addrs[0]); !errors.Is(err, database.ErrBalance) {
			t.Fatalf("\t%s\tShould not spend outputs it doesn't own: %v", failed, err)
		}
		t.Logf("\t%s\tShould not spend outputs it doesn't own.", success)
	}

	t.Log("Given the need to build payload records.")
	{
		reg := identity.NewRegistration(addrs[0], identity.Registration{StudentID: "s1", StudentAddress: addrs[1], ClassID: "c1", RecordedAt: 1700000000})
		if err := reg.Validate(); err != nil || reg.Type != database.TxRegistration {
			t.Fatalf("\t%s\tShould build a valid registration: %v", failed, err)
		}
		if reg.Outputs[0].Metadata[database.MetaClassID] != "c1" {
			t.Fatalf("\t%s\tShould carry the class in the metadata.", failed)
		}
		t.Logf("\t%s\tShould build a valid registration.", success)

		att := identity.NewAttendance(addrs[0], identity.Attendance{StudentID: "s1", StudentAddress: addrs[1], CourseID: "course-1", RecordedAt: 1700000100})
		if err := att.Validate(); err != nil || att.Type != database.TxAttendance {
			t.Fatalf("\t%s\tShould build a valid attendance: %v", failed, err)
		}
		t.Logf("\t%s\tShould build a valid attendance.", success)
	}
}

// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.

package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"testing"

	"github.com/campusledger/blockchain/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the sha256 hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the values using sha256.
func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func leaf(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func join(a, b []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, a...), b...))
	return h[:]
}

// =============================================================================

func Test_MerkleRoot(t *testing.T) {
	type table struct {
		name string
		data []Data
		root []byte
	}

	tt := []table{
		{
			name: "single",
			data: []Data{{"a"}},
			root: join(leaf("a"), leaf("a")),
		},
		{
			name: "pair",
			data: []Data{{"a"}, {"b"}},
			root: join(leaf("a"), leaf("b")),
		},
		{
			name: "odd",
			data: []Data{{"a"}, {"b"}, {"c"}},
			root: join(join(leaf("a"), leaf("b")), join(leaf("c"), leaf("c"))),
		},
		{
			name: "six",
			data: []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}, {"f"}},
			root: join(
				join(join(leaf("a"), leaf("b")), join(leaf("c"), leaf("d"))),
				join(join(leaf("e"), leaf("f")), join(leaf("e"), leaf("f"))),
			),
		},
	}

	t.Log("Given the need to commit to a list of values.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				tree, err := merkle.NewTree(tst.data)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the tree: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to build the tree.", success, testID)

				if !bytes.Equal(tree.MerkleRoot, tst.root) {
					t.Logf("\t\tTest %d:\tgot: %x", testID, tree.MerkleRoot)
					t.Logf("\t\tTest %d:\texp: %x", testID, tst.root)
					t.Fatalf("\t%s\tTest %d:\tShould get the expected root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the expected root.", success, testID)

				if err := tree.Verify(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould verify the tree: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould verify the tree.", success, testID)

				if got := len(tree.Values()); got != len(tst.data) {
					t.Fatalf("\t%s\tTest %d:\tShould get back %d values, got %d.", failed, testID, len(tst.data), got)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the unique values.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Proof(t *testing.T) {
	data := []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	t.Log("Given the need to prove a value is part of a tree.")
	{
		tree, err := merkle.NewTree(data)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the tree: %v", failed, err)
		}

		for testID, d := range data {
			proof, order, err := tree.Proof(d)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould get a proof for %q: %v", failed, testID, d.x, err)
			}

			if !merkle.VerifyProof(leaf(d.x), proof, order, tree.MerkleRoot, nil) {
				t.Fatalf("\t%s\tTest %d:\tShould replay the proof for %q to the root.", failed, testID, d.x)
			}

			if err := tree.VerifyData(d); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould verify the data %q: %v", failed, testID, d.x, err)
			}
			t.Logf("\t%s\tTest %d:\tShould prove %q is in the tree.", success, testID, d.x)
		}

		if _, _, err := tree.Proof(Data{"z"}); err == nil {
			t.Fatalf("\t%s\tShould not get a proof for a missing value.", failed)
		}
		t.Logf("\t%s\tShould not get a proof for a missing value.", success)

		proof, order, _ := tree.Proof(data[0])
		if merkle.VerifyProof(leaf("z"), proof, order, tree.MerkleRoot, nil) {
			t.Fatalf("\t%s\tShould not replay a proof for the wrong leaf.", failed)
		}
		t.Logf("\t%s\tShould not replay a proof for the wrong leaf.", success)

		tree.MerkleRoot = []byte{1}
		if err := tree.Verify(); err == nil {
			t.Fatalf("\t%s\tShould detect a tampered root.", failed)
		}
		t.Logf("\t%s\tShould detect a tampered root.", success)
	}
}

func Test_HashStrategy(t *testing.T) {
	data := []Data{{"a"}, {"b"}}

	t.Log("Given the need to use a different hash strategy.")
	{
		tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](md5.New))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the tree: %v", failed, err)
		}

		exp := md5.Sum(append(leaf("a"), leaf("b")...))
		if !bytes.Equal(tree.MerkleRoot, exp[:]) {
			t.Fatalf("\t%s\tShould use md5 for the intermediate nodes.", failed)
		}
		t.Logf("\t%s\tShould use md5 for the intermediate nodes.", success)
	}

	t.Log("Given the need to refuse an empty tree.")
	{
		if _, err := merkle.NewTree([]Data{}); err == nil {
			t.Fatalf("\t%s\tShould not build a tree with no content.", failed)
		}
		t.Logf("\t%s\tShould not build a tree with no content.", success)
	}
}

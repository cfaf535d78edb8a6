package txdir

import (
	"testing"

	"github.com/chainledger/chainledger/pkg/types"
)

func txWithID(b byte, seq uint64) types.Transaction {
	var id types.HashId256
	id[0] = b
	return types.Transaction{ID: id, FileIndex: 1, FileOffset: 100, Length: 50, Sequence: seq}
}

func TestInsertAndLookup(t *testing.T) {
	d := New(16)
	tx := txWithID(7, 3)
	if err := d.Insert(tx); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}

	entry, ok := d.Lookup(tx.ID)
	if !ok {
		t.Fatal("expected lookup to succeed")
	}
	if entry.FileOffset != 100 || entry.Sequence != 3 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestInsertDuplicateIsNoOp(t *testing.T) {
	d := New(16)
	tx := txWithID(1, 0)
	if err := d.Insert(tx); err != nil {
		t.Fatal(err)
	}
	dup := tx
	dup.Sequence = 99
	if err := d.Insert(dup); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}
	entry, _ := d.Lookup(tx.ID)
	if entry.Sequence != 0 {
		t.Fatal("expected original entry to be preserved, not overwritten")
	}
}

func TestLookupMissing(t *testing.T) {
	d := New(16)
	var id types.HashId256
	id[0] = 0xAB
	if _, ok := d.Lookup(id); ok {
		t.Fatal("expected lookup of unknown id to fail")
	}
}

func TestCapacityExhausted(t *testing.T) {
	d := New(2)
	if err := d.Insert(txWithID(1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(txWithID(2, 1)); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert(txWithID(3, 2)); err != ErrCapacityExhausted {
		t.Fatalf("err = %v, want ErrCapacityExhausted", err)
	}
}

func TestIterPreservesInsertionOrder(t *testing.T) {
	d := New(16)
	for i := byte(1); i <= 5; i++ {
		if err := d.Insert(txWithID(i, uint64(i))); err != nil {
			t.Fatal(err)
		}
	}
	var seqs []uint64
	d.Iter(func(e types.TxDirectoryEntry) bool {
		seqs = append(seqs, e.Sequence)
		return true
	})
	for i, s := range seqs {
		if s != uint64(i+1) {
			t.Fatalf("seqs[%d] = %d, want %d", i, s, i+1)
		}
	}
}

func TestIterStopsEarly(t *testing.T) {
	d := New(16)
	for i := byte(1); i <= 5; i++ {
		_ = d.Insert(txWithID(i, uint64(i)))
	}
	count := 0
	d.Iter(func(e types.TxDirectoryEntry) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

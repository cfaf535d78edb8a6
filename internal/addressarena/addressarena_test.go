package addressarena

import (
	"testing"

	"github.com/chainledger/chainledger/pkg/types"
)

func hashWith(b byte) types.AddressHash160 {
	var h types.AddressHash160
	h[0] = b
	return h
}

func TestInternAssignsStableIncreasingIds(t *testing.T) {
	a := New(16)

	id1, err := a.Intern(hashWith(1))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := a.Intern(hashWith(2))
	if err != nil {
		t.Fatal(err)
	}
	if id1 == 0 || id2 == 0 {
		t.Fatal("ids must be nonzero")
	}
	if id1 == id2 {
		t.Fatal("distinct hashes must get distinct ids")
	}

	again, err := a.Intern(hashWith(1))
	if err != nil {
		t.Fatal(err)
	}
	if again != id1 {
		t.Fatalf("re-interning the same hash returned %d, want %d", again, id1)
	}
}

func TestLookupDoesNotIntern(t *testing.T) {
	a := New(16)
	if _, ok := a.Lookup(hashWith(9)); ok {
		t.Fatal("expected lookup of un-interned hash to fail")
	}
	if a.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", a.Len())
	}
}

func TestHashRoundTrip(t *testing.T) {
	a := New(16)
	h := hashWith(5)
	id, err := a.Intern(h)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := a.Hash(id)
	if !ok || got != h {
		t.Fatalf("Hash(%d) = %v, %v; want %v, true", id, got, ok, h)
	}
}

func TestZeroIdMeansNone(t *testing.T) {
	a := New(16)
	if _, ok := a.Hash(0); ok {
		t.Fatal("id 0 must never resolve to a hash")
	}
}

func TestCapacityExhausted(t *testing.T) {
	a := New(2)
	if _, err := a.Intern(hashWith(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Intern(hashWith(2)); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Intern(hashWith(3)); err != ErrCapacityExhausted {
		t.Fatalf("err = %v, want ErrCapacityExhausted", err)
	}
}

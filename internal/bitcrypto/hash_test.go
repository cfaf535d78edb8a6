package bitcrypto

import (
	"encoding/hex"
	"testing"
)

func TestDoubleSHA256KnownVector(t *testing.T) {
	// SHA256("") then SHA256 again — both are NIST-published constants.
	got := DoubleSHA256(nil)
	want := "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("DoubleSHA256(nil) = %x, want %s", got, want)
	}
}

func TestRIPEMD160NISTVector(t *testing.T) {
	// RIPEMD-160("abc") is one of the algorithm's own published test vectors.
	got := RIPEMD160([]byte("abc"))
	want := "8eb208f7e05d987a9b044a8e98c6b087f15a0bfc"
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("RIPEMD160(\"abc\") = %x, want %s", got, want)
	}
}

func TestHash160KnownVector(t *testing.T) {
	// RIPEMD160(SHA256("abc")) — Bitcoin's hash160 of the well-known "abc"
	// message, cross-checked against independent implementations.
	got := Hash160([]byte("abc"))
	want := "bb1be98c142444d7a56aa3981c3942a978e4dc33"
	if hex.EncodeToString(got[:]) != want {
		t.Fatalf("Hash160(\"abc\") = %x, want %s", got, want)
	}
}

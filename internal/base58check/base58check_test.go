package base58check

import (
	"encoding/hex"
	"testing"

	"github.com/chainledger/chainledger/internal/bitcrypto"
)

func TestRoundTrip25Bytes(t *testing.T) {
	payload, err := hex.DecodeString("0062E907B15CBF27D5425399EBF6F0FB50EBB88F18")
	if err != nil {
		t.Fatal(err)
	}
	sum := checksum4(payload)
	full := append(append([]byte{}, payload...), sum...)

	encoded := Encode(full)
	const want = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	if encoded != want {
		t.Fatalf("Encode = %s, want %s", encoded, want)
	}

	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(decoded) != hex.EncodeToString(full) {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, full)
	}
}

func TestCheckEncodeDecodeRoundTrip(t *testing.T) {
	payload, _ := hex.DecodeString("0062E907B15CBF27D5425399EBF6F0FB50EBB88F18")
	encoded := CheckEncode(payload)
	const want = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	if encoded != want {
		t.Fatalf("CheckEncode = %s, want %s", encoded, want)
	}

	got, err := CheckDecode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if hex.EncodeToString(got) != hex.EncodeToString(payload) {
		t.Fatalf("CheckDecode mismatch: got %x want %x", got, payload)
	}
}

func TestCheckDecodeRejectsPartialChecksumMatch(t *testing.T) {
	payload, _ := hex.DecodeString("0062E907B15CBF27D5425399EBF6F0FB50EBB88F18")
	encoded := CheckEncode(payload)
	full, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt only the last checksum byte; a buggy "any byte matches" check
	// (the source's original `||` bug) would still accept this.
	full[len(full)-1] ^= 0xFF
	if _, err := CheckDecode(Encode(full)); err == nil {
		t.Fatal("expected checksum rejection on corrupted final byte")
	}
}

func TestEncodeP2PKHWorkedExampleVector(t *testing.T) {
	// The hash160 of the P2PK-to-address worked example's public key
	// (04 50 86 3A D6 ...) in spec.md scenario 5.
	var hash [20]byte
	hashBytes, _ := hex.DecodeString("010966776006953d5567439e5e39f86a0d273bee")
	copy(hash[:], hashBytes)
	got := EncodeP2PKH(hash)
	const want = "16UwLL9Risc3QfPqBUvKofHmBQ7wMtjvM"
	if got != want {
		t.Fatalf("EncodeP2PKH = %s, want %s", got, want)
	}
}

func checksum4(payload []byte) []byte {
	sum := bitcrypto.DoubleSHA256(payload)
	return sum[:4]
}

// Package bitcrypto supplies the two hash primitives the core needs:
// double-SHA256 (block and transaction ids) and hash160 (RIPEMD160 of
// SHA256, for P2PKH/P2PK recipient derivation). Both are byte-in/byte-out;
// neither retains state across calls.
package bitcrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // intentional: matches Bitcoin's hash160
)

// SHA256 is the plain single-pass hash, exposed for testing against
// published vectors and for building compound hashes.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// RIPEMD160 is the plain single-pass hash, exposed for testing against
// published vectors.
func RIPEMD160(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DoubleSHA256 returns SHA256(SHA256(data)).
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hash160 returns RIPEMD160(SHA256(data)) — the compact recipient
// identifier committed to by P2PKH scripts and derived from P2PK public
// keys.
func Hash160(data []byte) [20]byte {
	sum := sha256.Sum256(data)
	return RIPEMD160(sum[:])
}

// Package base58check implements the bidirectional Base58Check codec used
// to render a 25-byte (version || hash160 || checksum) address as ASCII and
// back. It is hand-rolled per the core's contract rather than delegated to
// an address library, since this module never needs anything but the raw
// byte<->ASCII conversion.
package base58check

import (
	"errors"
	"math/big"

	"github.com/chainledger/chainledger/internal/bitcrypto"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	bigRadix = big.NewInt(58)
	bigZero  = big.NewInt(0)

	decodeMap = func() [256]int8 {
		var m [256]int8
		for i := range m {
			m[i] = -1
		}
		for i, c := range alphabet {
			m[byte(c)] = int8(i)
		}
		return m
	}()
)

// ErrChecksum is returned by CheckDecode when the trailing 4 checksum bytes
// do not all match. The source's equivalent check used "||" instead of
// "&&", accepting a single matching byte — see Design Notes in spec.md;
// this implementation requires all four bytes to match.
var ErrChecksum = errors.New("base58check: invalid checksum")

// ErrTooShort is returned by CheckDecode when the decoded payload is
// shorter than the 4-byte checksum it must contain.
var ErrTooShort = errors.New("base58check: payload too short for checksum")

// Encode base58-encodes raw bytes with no checksum framing.
func Encode(b []byte) string {
	x := new(big.Int).SetBytes(b)

	var out []byte
	for x.Cmp(bigZero) > 0 {
		mod := new(big.Int)
		x.DivMod(x, bigRadix, mod)
		out = append(out, alphabet[mod.Int64()])
	}

	// Leading zero bytes become leading '1's (alphabet[0]).
	for _, c := range b {
		if c != 0 {
			break
		}
		out = append(out, alphabet[0])
	}
	reverse(out)
	return string(out)
}

// Decode reverses Encode. It returns an error only when the input contains
// a byte outside the Base58 alphabet.
func Decode(s string) ([]byte, error) {
	x := big.NewInt(0)
	for i := 0; i < len(s); i++ {
		v := decodeMap[s[i]]
		if v < 0 {
			return nil, errors.New("base58check: invalid character")
		}
		x.Mul(x, bigRadix)
		x.Add(x, big.NewInt(int64(v)))
	}

	decoded := x.Bytes()

	// Leading '1's become leading zero bytes.
	var leadingZeros int
	for i := 0; i < len(s) && s[i] == alphabet[0]; i++ {
		leadingZeros++
	}

	out := make([]byte, leadingZeros+len(decoded))
	copy(out[leadingZeros:], decoded)
	return out, nil
}

// CheckEncode appends the 4-byte double-SHA256 checksum to payload and
// base58-encodes the result: Base58(payload || checksum(payload)).
func CheckEncode(payload []byte) string {
	sum := bitcrypto.DoubleSHA256(payload)
	full := make([]byte, 0, len(payload)+4)
	full = append(full, payload...)
	full = append(full, sum[:4]...)
	return Encode(full)
}

// CheckDecode reverses CheckEncode, requiring every one of the 4 checksum
// bytes to match (see ErrChecksum).
func CheckDecode(s string) ([]byte, error) {
	full, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(full) < 4 {
		return nil, ErrTooShort
	}
	payload := full[:len(full)-4]
	checksum := full[len(full)-4:]

	sum := bitcrypto.DoubleSHA256(payload)
	if checksum[0] != sum[0] || checksum[1] != sum[1] || checksum[2] != sum[2] || checksum[3] != sum[3] {
		return nil, ErrChecksum
	}
	return payload, nil
}

// EncodeP2PKH renders a hash160 as a mainnet P2PKH address:
// Base58Check(0x00 || hash160).
func EncodeP2PKH(hash160 [20]byte) string {
	payload := make([]byte, 0, 21)
	payload = append(payload, 0x00)
	payload = append(payload, hash160[:]...)
	return CheckEncode(payload)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

package block

import "github.com/chainledger/chainledger/internal/bitcrypto"

// Bitcoin script opcode constants this decoder needs to recognise.
const (
	opDUP         = 0x76
	opHASH160     = 0xA9
	opEQUALVERIFY = 0x88
	opCHECKSIG    = 0xAC
	opPushPubKey  = 0x41 // direct push of 65 bytes
)

// recipient holds the outcome of pattern-matching an output script against
// the recognised P2PK/P2PKH shapes in §4.2 of spec.md.
type recipient struct {
	hash [20]byte
	kind recipientKind
}

type recipientKind uint8

const (
	kindUnknown recipientKind = iota
	kindP2PK
	kindP2PKH
)

// classifyScript applies the five-rule recognition order from §4.2:
//  1. [0x41][65-byte pubkey][OP_CHECKSIG]
//  2. 66-byte script: 65-byte pubkey directly followed by OP_CHECKSIG
//  3. OP_DUP OP_HASH160 0x14 <20B> … prefix match, len >= 25
//  4. embedded OP_DUP OP_HASH160 0x14 <20B> OP_EQUALVERIFY OP_CHECKSIG window
//  5. otherwise unknown
func classifyScript(script []byte) recipient {
	if r, ok := matchP2PKPrefixed(script); ok {
		return r
	}
	if r, ok := matchP2PKBare(script); ok {
		return r
	}
	if r, ok := matchP2PKHPrefix(script); ok {
		return r
	}
	if r, ok := matchP2PKHEmbedded(script); ok {
		return r
	}
	return recipient{kind: kindUnknown}
}

// matchP2PKPrefixed: [0x41][65 bytes pubkey][OP_CHECKSIG] — 67 bytes total.
func matchP2PKPrefixed(script []byte) (recipient, bool) {
	if len(script) != 67 {
		return recipient{}, false
	}
	if script[0] != opPushPubKey || script[66] != opCHECKSIG {
		return recipient{}, false
	}
	return recipient{hash: bitcrypto.Hash160(script[1:66]), kind: kindP2PK}, true
}

// matchP2PKBare: 65-byte pubkey directly followed by OP_CHECKSIG, no push
// opcode prefix — 66 bytes total.
func matchP2PKBare(script []byte) (recipient, bool) {
	if len(script) != 66 {
		return recipient{}, false
	}
	if script[65] != opCHECKSIG {
		return recipient{}, false
	}
	return recipient{hash: bitcrypto.Hash160(script[0:65]), kind: kindP2PK}, true
}

// matchP2PKHPrefix: OP_DUP OP_HASH160 0x14 <20B hash> …, length >= 25.
func matchP2PKHPrefix(script []byte) (recipient, bool) {
	if len(script) < 25 {
		return recipient{}, false
	}
	if script[0] != opDUP || script[1] != opHASH160 || script[2] != 0x14 {
		return recipient{}, false
	}
	var hash [20]byte
	copy(hash[:], script[3:23])
	return recipient{hash: hash, kind: kindP2PKH}, true
}

// matchP2PKHEmbedded scans for an embedded
// OP_DUP OP_HASH160 0x14 <20B> OP_EQUALVERIFY OP_CHECKSIG window anywhere
// in the script (rule 4 — used when the script doesn't start with the
// pattern, e.g. it is wrapped by other pushes).
func matchP2PKHEmbedded(script []byte) (recipient, bool) {
	const winLen = 25
	for i := 0; i+winLen <= len(script); i++ {
		w := script[i : i+winLen]
		if w[0] == opDUP && w[1] == opHASH160 && w[2] == 0x14 &&
			w[23] == opEQUALVERIFY && w[24] == opCHECKSIG {
			var hash [20]byte
			copy(hash[:], w[3:23])
			return recipient{hash: hash, kind: kindP2PKH}, true
		}
	}
	return recipient{}, false
}

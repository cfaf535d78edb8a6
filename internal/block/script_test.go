package block

import "testing"

func TestClassifyScriptP2PKPrefixed(t *testing.T) {
	var pubkey [65]byte
	pubkey[0] = 0x04
	script := append([]byte{opPushPubKey}, pubkey[:]...)
	script = append(script, opCHECKSIG)

	r := classifyScript(script)
	if r.kind != kindP2PK {
		t.Fatalf("kind = %v, want kindP2PK", r.kind)
	}
}

func TestClassifyScriptP2PKBare(t *testing.T) {
	var pubkey [65]byte
	pubkey[0] = 0x04
	script := append(append([]byte{}, pubkey[:]...), opCHECKSIG)

	r := classifyScript(script)
	if r.kind != kindP2PK {
		t.Fatalf("kind = %v, want kindP2PK", r.kind)
	}
}

func TestClassifyScriptP2PKHPrefix(t *testing.T) {
	script := []byte{opDUP, opHASH160, 0x14}
	script = append(script, make([]byte, 20)...)
	script = append(script, opEQUALVERIFY, opCHECKSIG)

	r := classifyScript(script)
	if r.kind != kindP2PKH {
		t.Fatalf("kind = %v, want kindP2PKH", r.kind)
	}
}

func TestClassifyScriptP2PKHEmbedded(t *testing.T) {
	window := []byte{opDUP, opHASH160, 0x14}
	window = append(window, make([]byte, 20)...)
	window = append(window, opEQUALVERIFY, opCHECKSIG)

	script := append([]byte{0x00, 0x01, 0x02}, window...)
	script = append(script, 0x03, 0x04)

	r := classifyScript(script)
	if r.kind != kindP2PKH {
		t.Fatalf("kind = %v, want kindP2PKH", r.kind)
	}
}

func TestClassifyScriptUnknown(t *testing.T) {
	r := classifyScript([]byte{0x6a, 0x04, 0xde, 0xad, 0xbe, 0xef})
	if r.kind != kindUnknown {
		t.Fatalf("kind = %v, want kindUnknown", r.kind)
	}
}

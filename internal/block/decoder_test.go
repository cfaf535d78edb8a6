package block

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/chainledger/chainledger/internal/binreader"
	"github.com/chainledger/chainledger/pkg/types"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// buildCoinbasePayload constructs a synthetic single-transaction block
// payload: an 80-byte header prefix followed by one coinbase transaction
// paying a bare P2PK output, matching the shape of spec.md's genesis-block
// worked example (scenario 1) without reusing its literal bytes.
func buildCoinbasePayload(t *testing.T, pubkey [65]byte) []byte {
	t.Helper()

	var payload []byte
	payload = append(payload, le32(1)...)           // version
	payload = append(payload, make([]byte, 32)...)  // prev_id
	payload = append(payload, make([]byte, 32)...)  // merkle_root
	payload = append(payload, le32(1231006505)...)  // timestamp
	payload = append(payload, le32(0x1d00ffff)...)  // bits
	payload = append(payload, le32(2083236893)...)  // nonce
	payload = append(payload, 0x01)                 // tx_count = 1

	// Transaction: version, 1 coinbase input, 1 output, locktime.
	payload = append(payload, le32(1)...) // tx version
	payload = append(payload, 0x01)       // in_count = 1

	payload = append(payload, make([]byte, 32)...) // prev_tx = zero
	payload = append(payload, le32(0xFFFFFFFF)...) // prev_index = coinbase marker
	coinbaseScript := []byte{0x04, 0xff, 0xff, 0x00, 0x1d, 0x01, 0x04}
	payload = append(payload, byte(len(coinbaseScript)))
	payload = append(payload, coinbaseScript...)
	payload = append(payload, le32(0xFFFFFFFF)...) // sequence

	payload = append(payload, 0x01) // out_count = 1
	payload = append(payload, le64(5000000000)...)
	script := append([]byte{0x41}, pubkey[:]...)
	script = append(script, opCHECKSIG)
	payload = append(payload, byte(len(script)))
	payload = append(payload, script...)

	payload = append(payload, le32(0)...) // lock_time

	return payload
}

func TestDecodeBlockCoinbaseScenario(t *testing.T) {
	var pubkey [65]byte
	pubkey[0] = 0x04
	for i := 1; i < 65; i++ {
		pubkey[i] = byte(i)
	}

	payload := buildCoinbasePayload(t, pubkey)

	rec := types.BlockHeaderRecord{FileIndex: 0, PayloadLength: uint32(len(payload))}
	d := NewDecoder(nil)
	block, err := d.DecodeBlock(rec, payload, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if len(tx.Inputs) != 1 {
		t.Fatalf("got %d inputs, want 1", len(tx.Inputs))
	}
	if !tx.Inputs[0].IsCoinbase() {
		t.Fatal("expected coinbase input")
	}
	if len(tx.Outputs) != 1 {
		t.Fatalf("got %d outputs, want 1", len(tx.Outputs))
	}
	out := tx.Outputs[0]
	if out.Value != 5000000000 {
		t.Fatalf("value = %d, want 5000000000", out.Value)
	}
	if out.RecipientKind != types.RecipientP2PK {
		t.Fatalf("recipient kind = %v, want P2PK", out.RecipientKind)
	}
	if tx.Sequence != 0 {
		t.Fatalf("sequence = %d, want 0", tx.Sequence)
	}
}

func TestDecodeBlockAssignsIncreasingSequence(t *testing.T) {
	var pubkey [65]byte
	pubkey[0] = 0x04
	payload := buildCoinbasePayload(t, pubkey)

	// Patch tx_count to 2 by duplicating the single transaction body.
	txBody := payload[80+1:] // everything after header + tx_count byte
	full := append([]byte{}, payload[:80]...)
	full = append(full, 0x02)
	full = append(full, txBody...)
	full = append(full, txBody...)

	rec := types.BlockHeaderRecord{FileIndex: 3, PayloadLength: uint32(len(full))}
	d := NewDecoder(nil)
	block, err := d.DecodeBlock(rec, full, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(block.Transactions))
	}
	if block.Transactions[0].Sequence != 10 || block.Transactions[1].Sequence != 11 {
		t.Fatalf("sequences = %d, %d; want 10, 11", block.Transactions[0].Sequence, block.Transactions[1].Sequence)
	}
	if block.Transactions[0].ID == block.Transactions[1].ID {
		t.Fatal("expected distinct transaction ids for distinct byte ranges")
	}
}

func TestDecodeOutputFlagsOversizedScript(t *testing.T) {
	var buf []byte
	buf = append(buf, le64(1000)...)
	oversized := make([]byte, MaxScriptLen+1)
	buf = append(buf, 0xFD)
	buf = append(buf, le32(uint32(len(oversized)))[:2]...)
	buf = append(buf, oversized...)

	d := NewDecoder(nil)
	r := binreader.New(buf)
	out, err := d.decodeOutput(r)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Flagged {
		t.Fatal("expected oversized output script to be flagged")
	}
	if d.Diagnostics().ScriptBoundsExceeded != 1 {
		t.Fatalf("ScriptBoundsExceeded = %d, want 1", d.Diagnostics().ScriptBoundsExceeded)
	}
}

func TestDecodeTransactionRejectsAnomalousVarint(t *testing.T) {
	var buf []byte
	buf = append(buf, le32(1)...) // version
	buf = append(buf, 0xFF)       // anomalous in_count tag
	buf = append(buf, make([]byte, 8)...)

	d := NewDecoder(nil)
	r := binreader.New(buf)
	_, err := d.decodeTransaction(r, 0, 0, 0)
	if !errors.Is(err, binreader.ErrAnomalousVarint) {
		t.Fatalf("err = %v, want ErrAnomalousVarint", err)
	}
}

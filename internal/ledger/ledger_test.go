package ledger

import (
	"testing"

	"github.com/chainledger/chainledger/internal/addressarena"
	"github.com/chainledger/chainledger/internal/txdir"
	"github.com/chainledger/chainledger/pkg/types"
)

type fakeSource struct {
	byID map[types.HashId256]types.Transaction
}

func (f *fakeSource) DecodeAt(entry types.TxDirectoryEntry) (types.Transaction, error) {
	return f.byID[entry.ID], nil
}

func hash160With(b byte) types.AddressHash160 {
	var h types.AddressHash160
	h[0] = b
	return h
}

func txID(b byte) types.HashId256 {
	var h types.HashId256
	h[0] = b
	return h
}

func TestApplyCreditsOutputAndDebitsInput(t *testing.T) {
	arena := addressarena.New(16)
	dir := txdir.New(16)
	src := &fakeSource{byID: make(map[types.HashId256]types.Transaction)}

	fundingTx := types.Transaction{
		ID:       txID(1),
		Sequence: 0,
		Outputs: []types.Output{
			{Value: 1000, Recipient: hash160With(0xAA), RecipientKind: types.RecipientP2PKH},
		},
	}
	src.byID[fundingTx.ID] = fundingTx
	if err := dir.Insert(fundingTx); err != nil {
		t.Fatal(err)
	}

	l := New(arena, dir, src, nil)
	if err := l.Apply(fundingTx, 1000); err != nil {
		t.Fatal(err)
	}

	id, ok := arena.Lookup(hash160With(0xAA))
	if !ok {
		t.Fatal("expected address to be interned")
	}
	rec, _ := l.Get(id)
	if rec.TotalReceived != 1000 {
		t.Fatalf("TotalReceived = %d, want 1000", rec.TotalReceived)
	}
	if rec.TransactionCount != 1 {
		t.Fatalf("TransactionCount = %d, want 1", rec.TransactionCount)
	}

	spendingTx := types.Transaction{
		ID:       txID(2),
		Sequence: 1,
		Inputs: []types.Input{
			{PrevTx: fundingTx.ID, PrevIndex: 0},
		},
	}
	if err := l.Apply(spendingTx, 2000); err != nil {
		t.Fatal(err)
	}

	rec, _ = l.Get(id)
	if rec.TotalSent != 1000 {
		t.Fatalf("TotalSent = %d, want 1000", rec.TotalSent)
	}
	if rec.Balance() != 0 {
		t.Fatalf("Balance() = %d, want 0", rec.Balance())
	}
	if rec.TransactionCount != 2 {
		t.Fatalf("TransactionCount = %d, want 2", rec.TransactionCount)
	}
}

func TestApplyCoinbaseInputProducesNoDebit(t *testing.T) {
	arena := addressarena.New(16)
	dir := txdir.New(16)
	src := &fakeSource{byID: make(map[types.HashId256]types.Transaction)}
	l := New(arena, dir, src, nil)

	coinbase := types.Transaction{
		ID:       txID(9),
		Sequence: 0,
		Inputs: []types.Input{
			{PrevIndex: 0xFFFFFFFF},
		},
		Outputs: []types.Output{
			{Value: 5000000000, Recipient: hash160With(0x01), RecipientKind: types.RecipientP2PK},
		},
	}
	if err := l.Apply(coinbase, 1231006505); err != nil {
		t.Fatal(err)
	}
	if l.Stats().CoinbaseInputs != 1 {
		t.Fatalf("CoinbaseInputs = %d, want 1", l.Stats().CoinbaseInputs)
	}
	if l.Stats().UnresolvedInputs != 0 {
		t.Fatalf("UnresolvedInputs = %d, want 0", l.Stats().UnresolvedInputs)
	}

	id, _ := arena.Lookup(hash160With(0x01))
	rec, _ := l.Get(id)
	if rec.TotalSent != 0 {
		t.Fatalf("TotalSent = %d, want 0 for coinbase-only activity", rec.TotalSent)
	}
}

func TestApplyFlagsUnresolvedInput(t *testing.T) {
	arena := addressarena.New(16)
	dir := txdir.New(16)
	src := &fakeSource{byID: make(map[types.HashId256]types.Transaction)}
	l := New(arena, dir, src, nil)

	tx := types.Transaction{
		ID:       txID(3),
		Sequence: 0,
		Inputs: []types.Input{
			{PrevTx: txID(99), PrevIndex: 0},
		},
	}
	if err := l.Apply(tx, 1000); err != nil {
		t.Fatal(err)
	}
	if l.Stats().UnresolvedInputs != 1 {
		t.Fatalf("UnresolvedInputs = %d, want 1", l.Stats().UnresolvedInputs)
	}
}

func TestApplyDedupesTransactionCountWithinOneTransaction(t *testing.T) {
	arena := addressarena.New(16)
	dir := txdir.New(16)
	src := &fakeSource{byID: make(map[types.HashId256]types.Transaction)}
	l := New(arena, dir, src, nil)

	tx := types.Transaction{
		ID:       txID(4),
		Sequence: 0,
		Outputs: []types.Output{
			{Value: 100, Recipient: hash160With(0x02), RecipientKind: types.RecipientP2PKH},
			{Value: 200, Recipient: hash160With(0x02), RecipientKind: types.RecipientP2PKH},
		},
	}
	if err := l.Apply(tx, 1000); err != nil {
		t.Fatal(err)
	}

	id, _ := arena.Lookup(hash160With(0x02))
	rec, _ := l.Get(id)
	if rec.TransactionCount != 1 {
		t.Fatalf("TransactionCount = %d, want 1 (deduped across two outputs in one tx)", rec.TransactionCount)
	}
	if rec.OutputCount != 2 {
		t.Fatalf("OutputCount = %d, want 2", rec.OutputCount)
	}
	if rec.TotalReceived != 300 {
		t.Fatalf("TotalReceived = %d, want 300", rec.TotalReceived)
	}
}

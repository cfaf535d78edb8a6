// Package ledger implements the ledger aggregator (component I): it walks
// resolved transactions in main-chain order and maintains per-address
// totals, crediting outputs and debiting resolved inputs.
package ledger

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/chainledger/chainledger/internal/addressarena"
	"github.com/chainledger/chainledger/internal/txdir"
	"github.com/chainledger/chainledger/pkg/types"
)

// ErrUnresolvedInput is recorded (not returned) when an input's prev_tx is
// missing from the directory — a resolve-miss per spec.md §7. The caller
// never sees this as a hard error; Apply counts it in Stats instead.
var ErrUnresolvedInput = errors.New("ledger: input references unknown prev_tx")

// PayloadSource re-reads and decodes a transaction's bytes, given its
// directory entry — the directory only knows where a transaction lives,
// not its content.
type PayloadSource interface {
	DecodeAt(entry types.TxDirectoryEntry) (types.Transaction, error)
}

// Stats counts resolve outcomes across an Apply run, for the end-of-run
// warning summary.
type Stats struct {
	UnresolvedInputs int
	CoinbaseInputs   int
}

// Ledger holds every address record touched so far, indexed by AddressId.
type Ledger struct {
	log      *zap.Logger
	arena    *addressarena.Arena
	dir      *txdir.Directory
	src      PayloadSource
	records  map[types.AddressId]*types.LedgerAddress
	stats    Stats
}

// New returns an empty Ledger backed by arena (for interning recipient
// hashes) and dir+src (for resolving an input's funding output).
func New(arena *addressarena.Arena, dir *txdir.Directory, src PayloadSource, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		log:     log,
		arena:   arena,
		dir:     dir,
		src:     src,
		records: make(map[types.AddressId]*types.LedgerAddress),
	}
}

// Stats returns a snapshot of the ledger's run counters.
func (l *Ledger) Stats() Stats { return l.stats }

// Get returns the ledger record for id, if any.
func (l *Ledger) Get(id types.AddressId) (types.LedgerAddress, bool) {
	rec, ok := l.records[id]
	if !ok {
		return types.LedgerAddress{}, false
	}
	return *rec, true
}

// Len returns the number of distinct addresses with a ledger record.
func (l *Ledger) Len() int { return len(l.records) }

// Apply walks one transaction, crediting its outputs and debiting its
// resolved inputs, per §4.5 of spec.md.
func (l *Ledger) Apply(tx types.Transaction, blockTimestamp uint32) error {
	touched := make(map[types.AddressId]bool)

	for _, out := range tx.Outputs {
		if !out.HasRecipient() {
			continue
		}
		id, err := l.arena.Intern(out.Recipient)
		if err != nil {
			return err
		}
		rec := l.recordFor(id)
		rec.TotalReceived += out.Value
		rec.OutputCount++
		if rec.FirstOutputTime == 0 {
			rec.FirstOutputTime = blockTimestamp
		}
		rec.LastOutputTime = blockTimestamp
		touched[id] = true
	}

	for _, in := range tx.Inputs {
		if in.IsCoinbase() {
			l.stats.CoinbaseInputs++
			continue
		}

		entry, ok := l.dir.Lookup(in.PrevTx)
		if !ok {
			l.stats.UnresolvedInputs++
			l.log.Warn("ledger: unresolved input, skipping debit", zap.Stringer("prev_tx", in.PrevTx))
			continue
		}

		fundingTx, err := l.src.DecodeAt(entry)
		if err != nil {
			l.stats.UnresolvedInputs++
			l.log.Warn("ledger: failed to re-read funding transaction", zap.Error(err))
			continue
		}
		if int(in.PrevIndex) >= len(fundingTx.Outputs) {
			l.stats.UnresolvedInputs++
			l.log.Warn("ledger: prev_index out of range", zap.Uint32("prev_index", in.PrevIndex))
			continue
		}

		fundingOut := fundingTx.Outputs[in.PrevIndex]
		if !fundingOut.HasRecipient() {
			continue
		}
		id, err := l.arena.Intern(fundingOut.Recipient)
		if err != nil {
			return err
		}
		rec := l.recordFor(id)
		rec.TotalSent += fundingOut.Value
		rec.InputCount++
		rec.LastInputTime = blockTimestamp
		touched[id] = true
	}

	for id := range touched {
		rec := l.records[id]
		if last, seen := rec.LastSeenTx(); !seen || last != tx.Sequence {
			rec.TransactionCount++
			rec.MarkSeenTx(tx.Sequence)
		}
	}

	return nil
}

func (l *Ledger) recordFor(id types.AddressId) *types.LedgerAddress {
	rec, ok := l.records[id]
	if !ok {
		rec = &types.LedgerAddress{}
		l.records[id] = rec
	}
	return rec
}

// RankedAddress pairs an id with its record for the query methods below.
type RankedAddress struct {
	ID     types.AddressId
	Record types.LedgerAddress
}

// TopByBalance returns the n addresses with the highest balance, descending.
func (l *Ledger) TopByBalance(n int) []RankedAddress {
	all := l.allRanked()
	sort.Slice(all, func(i, j int) bool { return all[i].Record.Balance() > all[j].Record.Balance() })
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// OldestByFirstSeen returns the n addresses with the earliest
// first_output_time, ascending.
func (l *Ledger) OldestByFirstSeen(n int) []RankedAddress {
	all := l.allRanked()
	sort.Slice(all, func(i, j int) bool { return all[i].Record.FirstOutputTime < all[j].Record.FirstOutputTime })
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// AboveBalance returns every address with balance >= minSatoshi, descending
// by balance.
func (l *Ledger) AboveBalance(minSatoshi uint64) []RankedAddress {
	var out []RankedAddress
	for id, rec := range l.records {
		if rec.Balance() >= minSatoshi {
			out = append(out, RankedAddress{ID: id, Record: *rec})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.Balance() > out[j].Record.Balance() })
	return out
}

// ZombiesOlderThan returns every address whose LastUsedTime is before
// cutoff (a UNIX timestamp), sorted by balance descending.
func (l *Ledger) ZombiesOlderThan(cutoff uint32) []RankedAddress {
	var out []RankedAddress
	for id, rec := range l.records {
		if rec.LastUsedTime() < cutoff {
			out = append(out, RankedAddress{ID: id, Record: *rec})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.Balance() > out[j].Record.Balance() })
	return out
}

// Range calls fn once for every address record currently held. fn must not
// mutate the ledger.
func (l *Ledger) Range(fn func(id types.AddressId, rec types.LedgerAddress)) {
	for id, rec := range l.records {
		fn(id, *rec)
	}
}

func (l *Ledger) allRanked() []RankedAddress {
	out := make([]RankedAddress, 0, len(l.records))
	for id, rec := range l.records {
		out = append(out, RankedAddress{ID: id, Record: *rec})
	}
	return out
}

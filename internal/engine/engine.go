// Package engine wires the pipeline D→E→F→G→I→J→K together behind a
// cooperative, single-step interface: the command dispatcher (cmd/
// chainledger) drives one step at a time and nothing in here spawns a
// goroutine or blocks waiting on anything but local disk I/O.
package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chainledger/chainledger/internal/addressarena"
	"github.com/chainledger/chainledger/internal/block"
	"github.com/chainledger/chainledger/internal/chainindex"
	"github.com/chainledger/chainledger/internal/checkpoint"
	"github.com/chainledger/chainledger/internal/config"
	"github.com/chainledger/chainledger/internal/container"
	"github.com/chainledger/chainledger/internal/ledger"
	"github.com/chainledger/chainledger/internal/metrics"
	"github.com/chainledger/chainledger/internal/snapshot"
	"github.com/chainledger/chainledger/internal/txdir"
	"github.com/chainledger/chainledger/pkg/types"
)

// ErrDataFileMissing is fatal: the configured data directory does not exist
// or blk00000.dat could not be opened at all.
var ErrDataFileMissing = errors.New("engine: data directory or blk00000.dat not found")

// ErrCapacityExhausted wraps the fixed-capacity arena/directory errors,
// which are fatal per §7 of spec.md.
var ErrCapacityExhausted = errors.New("engine: capacity exhausted, rerun with larger caps")

// Stats is the end-of-run summary the dispatcher prints on exit.
type Stats struct {
	Container      container.Stats
	Chain          chainindex.Stats
	Ledger         ledger.Stats
	Decoder        block.Diagnostics
	BlocksResolved int
}

// Engine owns every mutable structure in the pipeline: the address arena,
// transaction directory, and ledger are process-wide state exclusively
// owned here, never touched directly by the CLI.
type Engine struct {
	cfg config.Config
	log *zap.Logger

	scanner   *container.Scanner
	decoder   *block.Decoder
	index     *chainindex.Index
	directory *txdir.Directory
	arena     *addressarena.Arena
	book      *ledger.Ledger
	snap      *snapshot.Engine
	cp        *checkpoint.Store

	headers      map[types.HashId256]types.BlockHeaderRecord
	mainChain    []types.BlockHeaderRecord
	chainStats   chainindex.Stats
	resolvedUpTo int
	nextSeq      uint64
	rows         []types.SnapshotRow
}

// New assembles an Engine from cfg. It does not touch the filesystem beyond
// opening the checkpoint database.
func New(cfg config.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	cp, err := checkpoint.Open(cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	scanner := container.New(cfg.DataDir, cfg.HandleCacheLimit, log)
	directory := txdir.New(cfg.TxDirectoryCapacity)
	arena := addressarena.New(cfg.AddressArenaCapacity)

	e := &Engine{
		cfg:       cfg,
		log:       log,
		scanner:   scanner,
		decoder:   block.NewDecoder(log),
		index:     chainindex.New(log),
		directory: directory,
		arena:     arena,
		snap:      snapshot.New(zombieCutoff(cfg), cfg.IncludePerAddressSnapshots),
		cp:        cp,
		headers:   make(map[types.HashId256]types.BlockHeaderRecord),
	}
	e.book = ledger.New(arena, directory, e, log)
	return e, nil
}

// Close releases the scanner's cached file handles and the checkpoint
// database.
func (e *Engine) Close() error {
	err1 := e.scanner.Close()
	err2 := e.cp.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// zombieCutoff converts cfg.ZombieThresholdDays into a UNIX timestamp that
// many days before the current wall-clock time.
func zombieCutoff(cfg config.Config) uint32 {
	const secondsPerDay = 86400
	cutoff := time.Now().Unix() - int64(cfg.ZombieThresholdDays)*secondsPerDay
	if cutoff < 0 {
		return 0
	}
	return uint32(cutoff)
}

// Scan walks every blk*.dat file under the configured data directory and
// records every header it finds. It is a single cooperative step even
// though it internally visits many files — the source treats "scan" as one
// dispatcher command.
func (e *Engine) Scan() error {
	if _, err := os.Stat(e.cfg.DataDir); err != nil {
		return fmt.Errorf("%w: %s", ErrDataFileMissing, e.cfg.DataDir)
	}

	headers, err := e.scanner.ScanAll(func(rec types.BlockHeaderRecord) {
		e.index.Add(rec)
	})
	if err != nil {
		return fmt.Errorf("engine: scan: %w", err)
	}
	if e.scanner.Stats().FilesScanned == 0 {
		return fmt.Errorf("%w: blk00000.dat could not be opened in %s", ErrDataFileMissing, e.cfg.DataDir)
	}
	e.headers = headers
	metrics.BlocksScanned.Set(float64(e.scanner.Stats().RecordsFound))
	metrics.GapsRecovered.Add(float64(e.scanner.Stats().GapsRecovered))
	return nil
}

// ReconstructChain selects the main chain from every header Scan has found
// so far. It may be called again after further scanning to extend the
// chain with newly discovered headers.
func (e *Engine) ReconstructChain() ([]types.BlockHeaderRecord, error) {
	chain, stats := e.index.Reconstruct()
	e.mainChain = chain
	e.chainStats = stats
	metrics.BlocksOnMainChain.Set(float64(stats.Length))
	metrics.BlocksOrphaned.Set(float64(stats.Orphans))
	return chain, nil
}

// ProcessNext decodes and resolves the next unprocessed block on the main
// chain, applying its transactions to the ledger. It returns false once
// every block on the chain (or the configured MaxBlocks cap) has been
// processed.
func (e *Engine) ProcessNext() (bool, error) {
	if e.resolvedUpTo >= len(e.mainChain) {
		return false, nil
	}
	if e.cfg.MaxBlocks > 0 && e.resolvedUpTo >= e.cfg.MaxBlocks {
		return false, nil
	}

	unresolvedBefore := e.book.Stats().UnresolvedInputs
	unknownBefore := e.decoder.Diagnostics().UnknownScripts

	rec := e.mainChain[e.resolvedUpTo]
	payload, err := e.scanner.ReadPayload(rec)
	if err != nil {
		return false, fmt.Errorf("engine: reading block %s: %w", rec.ID, err)
	}

	decoded, err := e.decoder.DecodeBlock(rec, payload, e.nextSeq)
	if err != nil {
		return false, fmt.Errorf("engine: decoding block %s: %w", rec.ID, err)
	}

	for _, tx := range decoded.Transactions {
		if err := e.directory.Insert(tx); err != nil {
			if errors.Is(err, txdir.ErrCapacityExhausted) {
				return false, fmt.Errorf("%w: %v", ErrCapacityExhausted, err)
			}
			return false, err
		}
		if err := e.book.Apply(tx, rec.Timestamp); err != nil {
			if errors.Is(err, addressarena.ErrCapacityExhausted) {
				return false, fmt.Errorf("%w: %v", ErrCapacityExhausted, err)
			}
			return false, err
		}
		metrics.TransactionsResolved.Inc()
	}

	e.nextSeq += uint64(len(decoded.Transactions))
	e.resolvedUpTo++
	metrics.ArenaOccupancy.Set(float64(e.arena.Len()))
	metrics.DirectoryOccupancy.Set(float64(e.directory.Len()))
	metrics.InputsUnresolved.Add(float64(e.book.Stats().UnresolvedInputs - unresolvedBefore))
	metrics.ScriptsUnknown.Add(float64(e.decoder.Diagnostics().UnknownScripts - unknownBefore))

	return true, nil
}

// RunTimeSeries resolves every remaining block on the main chain, taking one
// snapshot per distinct granularity boundary crossed by the blocks'
// timestamps (the `by_day`/`by_month`/`by_year` driving commands, and
// `statistics` under the configured --granularity). It returns every row
// recorded so far, including rows from any earlier call.
func (e *Engine) RunTimeSeries(g config.Granularity) ([]types.SnapshotRow, error) {
	for e.resolvedUpTo < len(e.mainChain) {
		if e.cfg.MaxBlocks > 0 && e.resolvedUpTo >= e.cfg.MaxBlocks {
			break
		}

		boundary := boundaryFor(e.mainChain[e.resolvedUpTo].Timestamp, g)

		more, err := e.ProcessNext()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}

		atEnd := e.resolvedUpTo >= len(e.mainChain) ||
			(e.cfg.MaxBlocks > 0 && e.resolvedUpTo >= e.cfg.MaxBlocks)
		crossedBoundary := !atEnd && boundaryFor(e.mainChain[e.resolvedUpTo].Timestamp, g) != boundary
		if atEnd || crossedBoundary {
			e.Snapshot(boundary)
		}
	}
	return e.rows, nil
}

// boundaryFor floors t to the start of its day/month/year in UTC, per the
// configured granularity.
func boundaryFor(t uint32, g config.Granularity) uint32 {
	tm := time.Unix(int64(t), 0).UTC()
	switch g {
	case config.GranularityMonth:
		tm = time.Date(tm.Year(), tm.Month(), 1, 0, 0, 0, 0, time.UTC)
	case config.GranularityYear:
		tm = time.Date(tm.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		tm = time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC)
	}
	return uint32(tm.Unix())
}

// DecodeAt implements ledger.PayloadSource by re-reading and decoding the
// single transaction at entry's location.
func (e *Engine) DecodeAt(entry types.TxDirectoryEntry) (types.Transaction, error) {
	raw, err := e.scanner.ReadPayload(types.BlockHeaderRecord{
		FileIndex:     entry.FileIndex,
		FileOffset:    entry.FileOffset,
		PayloadLength: entry.Length,
	})
	if err != nil {
		return types.Transaction{}, err
	}
	tx, err := e.decoder.DecodeSingleTransaction(raw, entry.FileIndex, entry.FileOffset, entry.Sequence)
	if err != nil {
		return types.Transaction{}, err
	}
	return *tx, nil
}

// Snapshot builds a SnapshotRow at boundaryTime, diffs it against the
// previous row, records it, and returns it.
func (e *Engine) Snapshot(boundaryTime uint32) types.SnapshotRow {
	row := e.snap.Build(e.book, boundaryTime)
	if len(e.rows) > 0 {
		snapshot.Diff(&e.rows[len(e.rows)-1], &row, zombieCutoff(e.cfg))
	}
	e.rows = append(e.rows, row)
	return row
}

// Rows returns every snapshot row recorded so far.
func (e *Engine) Rows() []types.SnapshotRow { return e.rows }

// Ledger exposes the underlying ledger for query commands (top_balance,
// oldest, min_balance, zombie, adr).
func (e *Engine) Ledger() *ledger.Ledger { return e.book }

// Arena exposes the address arena, needed by report.WriteBinary and by the
// "adr" command to resolve a Base58 address back to its AddressId.
func (e *Engine) Arena() *addressarena.Arena { return e.arena }

// Checkpoint persists the engine's current progress.
func (e *Engine) Checkpoint() error {
	return e.cp.Save(checkpoint.Progress{
		ScanFileIndex:    uint32(e.scanner.Stats().FilesScanned),
		ResolvedSequence: e.nextSeq,
		BlocksResolved:   uint32(e.resolvedUpTo),
	})
}

// LastCheckpoint reports the progress markers saved by a previous run of the
// engine, if any. Since only these scalar markers are persisted (the
// ledger, arena, and directory are rebuilt from scratch every run), this is
// informational only: it does not let ProcessNext skip blocks.
func (e *Engine) LastCheckpoint() (checkpoint.Progress, error) {
	return e.cp.Load()
}

// BlockAt returns the main-chain header at height n, the "block <n>"
// command's lookup.
func (e *Engine) BlockAt(n int) (types.BlockHeaderRecord, bool) {
	if n < 0 || n >= len(e.mainChain) {
		return types.BlockHeaderRecord{}, false
	}
	return e.mainChain[n], true
}

// Stats returns the end-of-run summary across every pipeline stage.
func (e *Engine) Stats() Stats {
	return Stats{
		Container:      e.scanner.Stats(),
		Chain:          e.chainStats,
		Ledger:         e.book.Stats(),
		Decoder:        e.decoder.Diagnostics(),
		BlocksResolved: e.resolvedUpTo,
	}
}

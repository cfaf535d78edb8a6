// Package txdir implements the transaction directory (component F): a
// hash-indexed, fixed-capacity lookup from transaction id to where that
// transaction's bytes live in the blk files, so an input's prevout can be
// re-read on demand rather than kept resident.
package txdir

import (
	"errors"

	"github.com/chainledger/chainledger/pkg/types"
)

// ErrCapacityExhausted is returned once the directory has reached its fixed
// capacity and cannot accept another entry. The capacity is sized generously
// (tens of millions of entries) so hitting this indicates a misconfigured
// run rather than ordinary operation.
var ErrCapacityExhausted = errors.New("txdir: capacity exhausted")

const defaultChunkSize = 1 << 20 // entries per slab

// Directory is an insert-only map from transaction id to TxDirectoryEntry,
// backed by fixed-size slabs so it never needs to copy existing entries
// when it grows — only append a new slab.
type Directory struct {
	chunkSize int
	capacity  int
	count     int
	slabs     [][]types.TxDirectoryEntry
	index     map[types.HashId256]int // id -> global slot, for O(1) lookup
}

// New returns a Directory capped at capacity entries.
func New(capacity int) *Directory {
	if capacity <= 0 {
		capacity = 40_000_000
	}
	return &Directory{
		chunkSize: defaultChunkSize,
		capacity:  capacity,
		index:     make(map[types.HashId256]int, 1<<16),
	}
}

// Len returns the number of entries currently stored.
func (d *Directory) Len() int { return d.count }

// Insert records tx's location. Re-inserting the same id is a no-op (the
// directory never updates an existing entry, matching the append-only blk
// file model it indexes).
func (d *Directory) Insert(tx types.Transaction) error {
	if _, exists := d.index[tx.ID]; exists {
		return nil
	}
	if d.count >= d.capacity {
		return ErrCapacityExhausted
	}

	slabIdx := d.count / d.chunkSize
	if slabIdx == len(d.slabs) {
		d.slabs = append(d.slabs, make([]types.TxDirectoryEntry, 0, d.chunkSize))
	}

	entry := types.TxDirectoryEntry{
		ID:         tx.ID,
		FileIndex:  tx.FileIndex,
		FileOffset: tx.FileOffset,
		Length:     tx.Length,
		Sequence:   tx.Sequence,
	}
	d.slabs[slabIdx] = append(d.slabs[slabIdx], entry)
	d.index[tx.ID] = d.count
	d.count++
	return nil
}

// Lookup returns the directory entry for id, if any.
func (d *Directory) Lookup(id types.HashId256) (types.TxDirectoryEntry, bool) {
	slot, ok := d.index[id]
	if !ok {
		return types.TxDirectoryEntry{}, false
	}
	slabIdx := slot / d.chunkSize
	offset := slot % d.chunkSize
	return d.slabs[slabIdx][offset], true
}

// Iter calls fn for every entry in insertion (sequence) order. It stops
// early if fn returns false.
func (d *Directory) Iter(fn func(types.TxDirectoryEntry) bool) {
	for _, slab := range d.slabs {
		for _, e := range slab {
			if !fn(e) {
				return
			}
		}
	}
}

// Package addressarena interns 20-byte recipient hashes into a dense,
// stable AddressId (component H). Entries never relocate once assigned,
// so an AddressId handed out early in a run stays valid for the life of
// the run, including across the chunked slabs the arena grows by.
package addressarena

import (
	"errors"

	"github.com/chainledger/chainledger/pkg/types"
)

// ErrCapacityExhausted is returned once the arena has reached its maximum
// configured capacity.
var ErrCapacityExhausted = errors.New("addressarena: capacity exhausted")

const defaultChunkSize = 1 << 20

// Arena interns AddressHash160 values to AddressId. Id 0 is reserved to
// mean "none" — the first real interned address gets id 1.
type Arena struct {
	chunkSize int
	capacity  int
	slabs     [][]types.AddressHash160
	index     map[types.AddressHash160]types.AddressId
}

// New returns an empty Arena capped at capacity addresses.
func New(capacity int) *Arena {
	if capacity <= 0 {
		capacity = 40_000_000
	}
	return &Arena{
		chunkSize: defaultChunkSize,
		capacity:  capacity,
		index:     make(map[types.AddressHash160]types.AddressId, 1<<16),
	}
}

// Len returns the number of distinct addresses interned so far.
func (a *Arena) Len() int { return len(a.index) }

// Intern returns the AddressId for hash, assigning a new one if this is the
// first time hash has been seen.
func (a *Arena) Intern(hash types.AddressHash160) (types.AddressId, error) {
	if id, ok := a.index[hash]; ok {
		return id, nil
	}
	if len(a.index) >= a.capacity {
		return 0, ErrCapacityExhausted
	}

	slot := len(a.index) // 0-based slot; AddressId is slot+1
	slabIdx := slot / a.chunkSize
	if slabIdx == len(a.slabs) {
		a.slabs = append(a.slabs, make([]types.AddressHash160, 0, a.chunkSize))
	}
	a.slabs[slabIdx] = append(a.slabs[slabIdx], hash)

	id := types.AddressId(slot + 1)
	a.index[hash] = id
	return id, nil
}

// Lookup returns the AddressId already assigned to hash, if any, without
// interning it.
func (a *Arena) Lookup(hash types.AddressHash160) (types.AddressId, bool) {
	id, ok := a.index[hash]
	return id, ok
}

// Hash returns the 20-byte hash interned under id. id must have been
// produced by Intern on this Arena.
func (a *Arena) Hash(id types.AddressId) (types.AddressHash160, bool) {
	if id == 0 {
		return types.AddressHash160{}, false
	}
	slot := int(id) - 1
	slabIdx := slot / a.chunkSize
	offset := slot % a.chunkSize
	if slabIdx >= len(a.slabs) || offset >= len(a.slabs[slabIdx]) {
		return types.AddressHash160{}, false
	}
	return a.slabs[slabIdx][offset], true
}

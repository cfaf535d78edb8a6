// Package snapshot implements the snapshot & delta engine (component J):
// time-bucketed balance statistics and new/changed/deleted/rose-from-dead
// diffs against the previous snapshot row.
package snapshot

import (
	"sort"

	"github.com/chainledger/chainledger/internal/ledger"
	"github.com/chainledger/chainledger/pkg/types"
)

const oneBTCSatoshi = satoshiPerBTC

// Engine builds SnapshotRows from a ledger at successive time boundaries.
type Engine struct {
	zombieThreshold   uint32
	includePerAddress bool
}

// New returns an Engine. zombieThreshold is a UNIX timestamp: an address
// whose last activity falls before it counts as a zombie. includePerAddress controls whether per-address snapshot entries
// (and therefore delta sets) are materialised.
func New(zombieThreshold uint32, includePerAddress bool) *Engine {
	return &Engine{zombieThreshold: zombieThreshold, includePerAddress: includePerAddress}
}

// Build produces one SnapshotRow at boundaryTime from the ledger's current
// state. It fills PerAddress only when includePerAddress is set; the delta
// sets are left empty for Diff to compute against the previous row.
func (e *Engine) Build(l *ledger.Ledger, boundaryTime uint32) types.SnapshotRow {
	row := types.SnapshotRow{
		BoundaryTime: boundaryTime,
		Buckets:      make([]types.BucketClass, numBuckets),
	}

	var perAddress []types.AddressSnapshotEntry

	l.Range(func(id types.AddressId, rec types.LedgerAddress) {
		balance := rec.Balance()
		row.AddressCount++
		row.TotalValue += balance

		idx := bucketIndex(balance)
		row.Buckets[idx].Count++
		row.Buckets[idx].Value += balance

		if rec.LastUsedTime() < e.zombieThreshold {
			row.ZombieCount++
			row.ZombieValue += balance
		}

		if e.includePerAddress && balance >= oneBTCSatoshi {
			perAddress = append(perAddress, types.AddressSnapshotEntry{
				AddressID:         id,
				TotalSentMilliBTC: toMilliBTC(rec.TotalSent),
				TotalRecvMilliBTC: toMilliBTC(rec.TotalReceived),
				FirstTime:         rec.FirstOutputTime,
				LastTime:          rec.LastUsedTime(),
				TxCount:           clampU8(rec.TransactionCount),
				InputCount:        clampU8(rec.InputCount),
				OutputCount:       clampU8(rec.OutputCount),
			})
		}
	})

	if e.includePerAddress {
		sort.Slice(perAddress, func(i, j int) bool {
			return (perAddress[i].TotalRecvMilliBTC - perAddress[i].TotalSentMilliBTC) >
				(perAddress[j].TotalRecvMilliBTC - perAddress[j].TotalSentMilliBTC)
		})
	}
	row.PerAddress = perAddress

	return row
}

// Diff computes new/changed/deleted/rose-from-dead sets for cur against
// prev, per §4.7 of spec.md, and writes them into cur's fields. prev may be
// the zero value for the first boundary (everything in cur.PerAddress is
// "new").
func Diff(prev, cur *types.SnapshotRow, zombieThreshold uint32) {
	prevIndex := make(map[types.AddressId]int, len(prev.PerAddress))
	for i, e := range prev.PerAddress {
		prevIndex[e.AddressID] = i
	}
	curIndex := make(map[types.AddressId]int, len(cur.PerAddress))
	for i, e := range cur.PerAddress {
		curIndex[e.AddressID] = i
	}

	var newAddrs, changed, deleted []types.AddressId
	var roseCount, roseAmount uint64

	for _, e := range cur.PerAddress {
		prevPos, existed := prevIndex[e.AddressID]
		if !existed {
			newAddrs = append(newAddrs, e.AddressID)
			continue
		}
		if !e.Equal(prev.PerAddress[prevPos]) {
			changed = append(changed, e.AddressID)
		}
		prevEntry := prev.PerAddress[prevPos]
		if prevEntry.LastTime < zombieThreshold && e.LastTime >= zombieThreshold {
			roseCount++
			roseAmount += prevEntry.TotalRecvMilliBTC - prevEntry.TotalSentMilliBTC
		}
	}

	for _, e := range prev.PerAddress {
		if _, stillPresent := curIndex[e.AddressID]; !stillPresent {
			deleted = append(deleted, e.AddressID)
		}
	}

	cur.NewAddresses = newAddrs
	cur.ChangedAddresses = changed
	cur.DeletedAddresses = deleted
	cur.RoseFromDeadCount = roseCount
	cur.RoseFromDeadAmount = roseAmount
}

func toMilliBTC(satoshi uint64) uint64 {
	return satoshi / 100_000 // 1 mBTC = 100,000 satoshi
}

func clampU8(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

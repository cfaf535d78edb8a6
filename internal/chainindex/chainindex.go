// Package chainindex reconstructs the single main chain from the set of
// block headers the container scanner recovers, by walking previous_id
// links backward from the most recently seen tip.
package chainindex

import (
	"go.uber.org/zap"

	"github.com/chainledger/chainledger/pkg/types"
)

// Stats counts reconstruction outcomes for the end-of-run summary.
type Stats struct {
	Orphans int
	Length  int
}

// Index holds every header the scanner has produced, keyed by id, and
// tracks which one was seen most recently (the chain tip candidate).
type Index struct {
	log     *zap.Logger
	headers map[types.HashId256]types.BlockHeaderRecord
	order   []types.HashId256 // insertion order of distinct ids; ties are broken by tip, the last Add
	tip     types.HashId256
	hasTip  bool
}

// New returns an empty Index.
func New(log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{
		log:     log,
		headers: make(map[types.HashId256]types.BlockHeaderRecord),
	}
}

// Add records a header as observed. The most recently added header becomes
// the tip candidate, matching the source's "last write wins" tie-break
// between sibling sinks that share no descendant.
func (idx *Index) Add(rec types.BlockHeaderRecord) {
	if _, exists := idx.headers[rec.ID]; !exists {
		idx.order = append(idx.order, rec.ID)
	}
	idx.headers[rec.ID] = rec
	idx.tip = rec.ID
	idx.hasTip = true
}

// Len returns the number of distinct headers recorded.
func (idx *Index) Len() int { return len(idx.headers) }

// Reconstruct walks previous_id backward from the tip candidate to the
// first header with no matching predecessor (treated as genesis for this
// run), then reverses the walk so the result is genesis-to-tip ordered.
// Headers that were added but never reached by this walk are orphans —
// side branches dropped per spec.md's "tip plus its ancestry only" model.
func (idx *Index) Reconstruct() ([]types.BlockHeaderRecord, Stats) {
	if !idx.hasTip {
		return nil, Stats{}
	}

	var chain []types.BlockHeaderRecord
	seen := make(map[types.HashId256]bool)

	cur, ok := idx.headers[idx.tip]
	for ok {
		chain = append(chain, cur)
		seen[cur.ID] = true
		next, exists := idx.headers[cur.PreviousID]
		if !exists {
			break
		}
		if seen[next.ID] {
			idx.log.Warn("chainindex: cycle detected while walking previous_id, stopping", zap.Stringer("id", next.ID))
			break
		}
		cur = next
		ok = true
	}

	reverse(chain)

	orphans := len(idx.headers) - len(chain)
	if orphans > 0 {
		idx.log.Info("chainindex: dropped orphaned headers not on the reconstructed chain", zap.Int("count", orphans))
	}

	return chain, Stats{Orphans: orphans, Length: len(chain)}
}

func reverse(chain []types.BlockHeaderRecord) {
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
}

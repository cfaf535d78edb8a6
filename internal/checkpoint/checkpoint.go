// Package checkpoint persists scalar progress markers across runs (§5 of
// spec.md): how many files the scanner visited, how far resolution got,
// and the last snapshot time. The ledger, arena and directory are not
// persisted, so a later "scan"/"process" command restarts from the first
// block; the markers only report how far a previous run got.
package checkpoint

import (
	"encoding/binary"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("progress")

var keyScanFileIndex = []byte("scan_file_index")
var keyResolvedSequence = []byte("resolved_sequence")
var keyLastSnapshotTime = []byte("last_snapshot_time")
var keyBlocksResolved = []byte("blocks_resolved")

// Store wraps a bbolt database holding the scalar progress markers of the
// last checkpointed run.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the checkpoint database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: creating bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Progress is the full set of markers checkpointed at once.
type Progress struct {
	ScanFileIndex    uint32
	ResolvedSequence uint64
	LastSnapshotTime uint32

	// BlocksResolved is how many main-chain blocks ProcessNext had resolved
	// onto the ledger as of this checkpoint. A later run uses it only to
	// report how far a previous run got — the ledger/arena/directory
	// themselves are rebuilt from scratch every run, since only these
	// scalar markers are persisted.
	BlocksResolved uint32
}

// Save writes p, replacing whatever was previously checkpointed.
func (s *Store) Save(p Progress) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if err := b.Put(keyScanFileIndex, encodeU32(p.ScanFileIndex)); err != nil {
			return err
		}
		if err := b.Put(keyResolvedSequence, encodeU64(p.ResolvedSequence)); err != nil {
			return err
		}
		if err := b.Put(keyBlocksResolved, encodeU32(p.BlocksResolved)); err != nil {
			return err
		}
		return b.Put(keyLastSnapshotTime, encodeU32(p.LastSnapshotTime))
	})
}

// Load reads back the last checkpointed progress. It returns the zero value
// with no error if nothing has been saved yet.
func (s *Store) Load() (Progress, error) {
	var p Progress
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return errors.New("checkpoint: missing progress bucket")
		}
		if v := b.Get(keyScanFileIndex); v != nil {
			p.ScanFileIndex = decodeU32(v)
		}
		if v := b.Get(keyResolvedSequence); v != nil {
			p.ResolvedSequence = decodeU64(v)
		}
		if v := b.Get(keyBlocksResolved); v != nil {
			p.BlocksResolved = decodeU32(v)
		}
		if v := b.Get(keyLastSnapshotTime); v != nil {
			p.LastSnapshotTime = decodeU32(v)
		}
		return nil
	})
	if err != nil {
		return Progress{}, err
	}
	return p, nil
}

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func decodeU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeU64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

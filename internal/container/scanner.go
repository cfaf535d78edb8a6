// Package container walks the append-only blk%05d.dat files a reference
// full node writes and recovers block header records from them, resyncing
// past gaps byte-by-byte when the expected magic isn't where it should be.
// It is strictly single-threaded, forward-only, and never rewrites a file.
package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/chainledger/chainledger/internal/bitcrypto"
	"github.com/chainledger/chainledger/pkg/types"
)

// MainNetMagic is the four-byte record delimiter the source requires at
// the start of every block record.
const MainNetMagic uint32 = 0xD9B4BEF9

// MaxBlockSize bounds both a record's payload length and how far the gap
// scanner will search forward for the next magic before giving up on a
// file. The source uses 10 MiB; very long zero-padded stretches longer than
// this window will not be found — see Design Notes in spec.md.
const MaxBlockSize = 10 * 1024 * 1024

const headerPrefixLen = 80 // version + prev_id + merkle_root + timestamp + bits + nonce

// Scanner recovers BlockHeaderRecords from a directory of blk*.dat files.
type Scanner struct {
	dir    string
	log    *zap.Logger
	stats  Stats
	cache  *handleCache
}

// Stats counts the non-fatal conditions the scanner encountered, for the
// end-of-run summary required by §7 of spec.md.
type Stats struct {
	FilesScanned   int
	RecordsFound   int
	GapsRecovered  int
	FilesTruncated int
}

// New returns a Scanner rooted at dir. cacheLimit bounds how many blk*.dat
// file handles stay open simultaneously (the source caches 512).
func New(dir string, cacheLimit int, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{dir: dir, log: log, cache: newHandleCache(cacheLimit)}
}

// Close releases all cached file handles.
func (s *Scanner) Close() error { return s.cache.closeAll() }

// Stats returns a snapshot of the scanner's run counters.
func (s *Scanner) Stats() Stats { return s.stats }

// ScanAll walks blk00000.dat, blk00001.dat, … in order until one is missing,
// emitting every BlockHeaderRecord it recovers via emit. It returns the set
// of headers keyed by id.
func (s *Scanner) ScanAll(emit func(types.BlockHeaderRecord)) (map[types.HashId256]types.BlockHeaderRecord, error) {
	headers := make(map[types.HashId256]types.BlockHeaderRecord)
	for fileIndex := uint32(0); ; fileIndex++ {
		path := s.blkPath(fileIndex)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return headers, nil
		}
		if err != nil {
			s.log.Warn("container: failed to open blk file, stopping scan", zap.String("path", path), zap.Error(err))
			return headers, nil
		}
		s.stats.FilesScanned++

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.log.Warn("container: I/O error reading blk file", zap.String("path", path), zap.Error(err))
			continue
		}

		s.scanFile(fileIndex, data, headers, emit)
	}
}

// scanFile recovers every record in one file's bytes, starting at offset 0
// and resyncing on gaps.
func (s *Scanner) scanFile(fileIndex uint32, data []byte, headers map[types.HashId256]types.BlockHeaderRecord, emit func(types.BlockHeaderRecord)) {
	offset := 0
	for offset < len(data) {
		if offset+8 > len(data) {
			s.stats.FilesTruncated++
			return
		}
		magic := binary.LittleEndian.Uint32(data[offset : offset+4])
		if magic != MainNetMagic {
			next, found := findMagic(data, offset, MaxBlockSize)
			if !found {
				return
			}
			s.stats.GapsRecovered++
			offset = next
			continue
		}

		payloadLen := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		if payloadLen == 0 || payloadLen > MaxBlockSize {
			// Treat as a bad length the same as a missing magic: resync
			// forward past this tag rather than trusting the length.
			next, found := findMagic(data, offset+1, MaxBlockSize)
			if !found {
				return
			}
			s.stats.GapsRecovered++
			offset = next
			continue
		}

		payloadStart := offset + 8
		payloadEnd := payloadStart + int(payloadLen)
		if payloadEnd > len(data) {
			s.stats.FilesTruncated++
			return
		}
		if payloadLen < headerPrefixLen {
			// Can't even hold the 80-byte header prefix; skip past it.
			offset = payloadEnd
			continue
		}

		prefix := data[payloadStart : payloadStart+headerPrefixLen]
		id := bitcrypto.DoubleSHA256(prefix)

		rec := types.BlockHeaderRecord{
			ID:            id,
			PreviousID:    readHash(prefix[4:36]),
			MerkleRoot:    readHash(prefix[36:68]),
			Version:       binary.LittleEndian.Uint32(prefix[0:4]),
			Timestamp:     binary.LittleEndian.Uint32(prefix[68:72]),
			Bits:          binary.LittleEndian.Uint32(prefix[72:76]),
			Nonce:         binary.LittleEndian.Uint32(prefix[76:80]),
			FileIndex:     fileIndex,
			FileOffset:    uint32(payloadStart),
			PayloadLength: payloadLen,
		}
		headers[rec.ID] = rec
		s.stats.RecordsFound++
		if emit != nil {
			emit(rec)
		}

		offset = payloadEnd
	}
}

// ReadPayload re-reads the raw payload bytes for a recovered header record,
// for the block decoder (component E) to parse on demand.
func (s *Scanner) ReadPayload(rec types.BlockHeaderRecord) ([]byte, error) {
	f, err := s.cache.open(s.blkPath(rec.FileIndex))
	if err != nil {
		return nil, fmt.Errorf("container: open blk%05d.dat: %w", rec.FileIndex, err)
	}
	buf := make([]byte, rec.PayloadLength)
	if _, err := f.ReadAt(buf, int64(rec.FileOffset)); err != nil {
		return nil, fmt.Errorf("container: read payload at offset %d: %w", rec.FileOffset, err)
	}
	return buf, nil
}

func (s *Scanner) blkPath(fileIndex uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("blk%05d.dat", fileIndex))
}

func readHash(b []byte) types.HashId256 {
	var h types.HashId256
	copy(h[:], b)
	return h
}

// findMagic scans forward from start (exclusive of the byte already known
// bad, i.e. it tries start+1 first conceptually by scanning byte-by-byte)
// for the next occurrence of MainNetMagic, bounded by window bytes.
func findMagic(data []byte, start int, window int) (int, bool) {
	limit := start + window
	if limit > len(data) {
		limit = len(data)
	}
	for i := start + 1; i+4 <= limit; i++ {
		if binary.LittleEndian.Uint32(data[i:i+4]) == MainNetMagic {
			return i, true
		}
	}
	return 0, false
}

package report

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/chainledger/chainledger/internal/addressarena"
	"github.com/chainledger/chainledger/pkg/types"
)

// binHeader is the fixed magic string BlockChainAddresses.bin begins with.
var binHeader = []byte("BLOCK_CHAIN_ADDRESSES\x00")

const binVersion uint32 = 1

// ErrBadHeader is returned by ReadBinary when the file doesn't start with
// the expected magic string.
var ErrBadHeader = fmt.Errorf("report: header mismatch, not a BlockChainAddresses file")

// RowBlocks holds one snapshot row's new/changed/deleted address id lists,
// the unit the binary format repeats per row.
type RowBlocks struct {
	StartTime    uint32
	NewAddrs     []types.AddressId
	ChangedAddrs []types.AddressId
	DeletedAddrs []types.AddressId
}

// WriteBinary writes the BlockChainAddresses.bin layout documented in §6 of
// spec.md: header, version, unique address hashes, then per-row
// new/changed/deleted id blocks.
func WriteBinary(w io.Writer, arena *addressarena.Arena, rows []types.SnapshotRow) error {
	bw := newByteWriter(w)

	bw.bytes(binHeader)
	bw.u32(binVersion)

	bw.u32(uint32(arena.Len()))
	for id := types.AddressId(1); int(id) <= arena.Len(); id++ {
		hash, ok := arena.Hash(id)
		if !ok {
			return fmt.Errorf("report: arena missing hash for id %d", id)
		}
		bw.bytes(hash[:])
	}

	bw.u32(uint32(len(rows)))
	for _, row := range rows {
		bw.u32(row.BoundaryTime)
		bw.u32(uint32(len(row.NewAddresses)))
		bw.u32(uint32(len(row.ChangedAddresses)))
		bw.u32(uint32(len(row.DeletedAddresses)))
	}
	for _, row := range rows {
		for _, id := range row.NewAddresses {
			bw.u32(uint32(id))
		}
		for _, id := range row.ChangedAddresses {
			bw.u32(uint32(id))
		}
		for _, id := range row.DeletedAddresses {
			bw.u32(uint32(id))
		}
	}

	return bw.err
}

// ReadBinary parses a BlockChainAddresses.bin stream written by WriteBinary.
func ReadBinary(r io.Reader) ([]types.AddressHash160, []RowBlocks, error) {
	br := newByteReader(r)

	got := br.bytes(len(binHeader))
	if br.err != nil {
		return nil, nil, br.err
	}
	if !bytes.Equal(got, binHeader) {
		return nil, nil, ErrBadHeader
	}

	version := br.u32()
	if version != binVersion {
		return nil, nil, fmt.Errorf("report: unsupported version %d", version)
	}

	addrCount := br.u32()
	hashes := make([]types.AddressHash160, addrCount)
	for i := range hashes {
		copy(hashes[i][:], br.bytes(20))
	}

	rowCount := br.u32()
	counts := make([]struct{ newN, changedN, deletedN uint32 }, rowCount)
	rows := make([]RowBlocks, rowCount)
	for i := range rows {
		rows[i].StartTime = br.u32()
		counts[i].newN = br.u32()
		counts[i].changedN = br.u32()
		counts[i].deletedN = br.u32()
	}
	for i := range rows {
		rows[i].NewAddrs = readIDs(br, counts[i].newN)
		rows[i].ChangedAddrs = readIDs(br, counts[i].changedN)
		rows[i].DeletedAddrs = readIDs(br, counts[i].deletedN)
	}

	if br.err != nil {
		return nil, nil, br.err
	}
	return hashes, rows, nil
}

func readIDs(br *byteReader, n uint32) []types.AddressId {
	out := make([]types.AddressId, n)
	for i := range out {
		out[i] = types.AddressId(br.u32())
	}
	return out
}

type byteWriter struct {
	w   io.Writer
	err error
}

func newByteWriter(w io.Writer) *byteWriter { return &byteWriter{w: w} }

func (bw *byteWriter) bytes(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	bw.bytes(b[:])
}

type byteReader struct {
	r   io.Reader
	err error
}

func newByteReader(r io.Reader) *byteReader { return &byteReader{r: r} }

func (br *byteReader) bytes(n int) []byte {
	if br.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(br.r, b); err != nil {
		br.err = err
	}
	return b
}

func (br *byteReader) u32() uint32 {
	b := br.bytes(4)
	return binary.LittleEndian.Uint32(b)
}

// Package types holds the record shapes shared across the parsing,
// indexing, and reporting layers. Nothing in here does any work; it is
// the vocabulary the rest of the module is written in.
package types

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// HashId256 identifies a block or a transaction. It is stored little-endian
// (as it appears on disk) and rendered human-reversed (big-endian) by
// String(), matching the long-standing Bitcoin display convention.
type HashId256 = chainhash.Hash

// AddressHash160 is the RIPEMD160(SHA256(pubkey)) recipient hash for a
// P2PKH/P2PK output.
type AddressHash160 [20]byte

// AddressId is a dense id assigned by the address arena. 0 means
// "none/unresolved".
type AddressId uint32

// RecipientKind classifies how (or whether) an output's script committed to
// a recipient hash.
type RecipientKind uint8

const (
	RecipientUnknown RecipientKind = iota
	RecipientP2PK
	RecipientP2PKH
)

func (k RecipientKind) String() string {
	switch k {
	case RecipientP2PK:
		return "p2pk"
	case RecipientP2PKH:
		return "p2pkh"
	default:
		return "unknown"
	}
}

// BlockHeaderRecord is created once the container scanner recovers a valid
// record and is never mutated afterward.
type BlockHeaderRecord struct {
	ID             HashId256
	PreviousID     HashId256
	MerkleRoot     HashId256
	Version        uint32
	Timestamp      uint32
	Bits           uint32
	Nonce          uint32
	FileIndex      uint32
	FileOffset     uint32
	PayloadLength  uint32
}

// Input is one transaction input as decoded from a block payload.
type Input struct {
	PrevTx     HashId256
	PrevIndex  uint32
	Script     []byte
	SequenceNo uint32
}

// IsCoinbase reports whether this input is the synthetic coinbase input.
func (in Input) IsCoinbase() bool {
	return in.PrevIndex == 0xFFFFFFFF
}

// Output is one transaction output as decoded from a block payload.
type Output struct {
	Value         uint64
	Script        []byte
	Recipient     AddressHash160
	RecipientKind RecipientKind
	Flagged       bool // script or length exceeded limits; decoded-but-flagged
}

// HasRecipient reports whether the output's script resolved to a known
// recipient hash.
func (o Output) HasRecipient() bool {
	return o.RecipientKind != RecipientUnknown
}

// Transaction is a transient decode result; its byte-range fields let callers
// re-materialize it later via the transaction directory without retaining
// the decoder's buffer.
type Transaction struct {
	ID         HashId256
	Version    uint32
	Inputs     []Input
	Outputs    []Output
	LockTime   uint32
	FileIndex  uint32
	FileOffset uint32
	Length     uint32
	Sequence   uint64
}

// BlockPayload is the fully decoded body of one block. It is never
// persisted; callers extract what they need (transactions, for the
// directory and ledger) and let it go.
type BlockPayload struct {
	Header       BlockHeaderRecord
	Transactions []Transaction
}

// TxDirectoryEntry is the durable record kept for every transaction ever
// observed on the main chain.
type TxDirectoryEntry struct {
	ID         HashId256
	FileIndex  uint32
	FileOffset uint32
	Length     uint32
	Sequence   uint64
}

// LedgerAddress is the per-interned-address accounting record.
type LedgerAddress struct {
	TotalReceived    uint64
	TotalSent        uint64
	FirstOutputTime  uint32
	LastOutputTime   uint32
	LastInputTime    uint32
	InputCount       uint32
	OutputCount      uint32
	TransactionCount uint32

	// lastTxSeen dedupes TransactionCount increments within one transaction.
	// It is not part of the public contract of the record; the ledger reads
	// it through LastSeenTx/MarkSeenTx.
	lastTxSeen uint64
	touched    bool
}

// LastSeenTx reports the sequence number of the last transaction this
// address's counters were updated for.
func (a *LedgerAddress) LastSeenTx() (uint64, bool) { return a.lastTxSeen, a.touched }

// MarkSeenTx records that this address was touched by transaction seq.
func (a *LedgerAddress) MarkSeenTx(seq uint64) { a.lastTxSeen = seq; a.touched = true }

// LastUsedTime implements the §4.7 "last-used" semantics: last_input_time if
// non-zero, otherwise first_output_time.
func (a LedgerAddress) LastUsedTime() uint32 {
	if a.LastInputTime != 0 {
		return a.LastInputTime
	}
	return a.FirstOutputTime
}

// Balance returns total_received - total_sent; callers must not call this
// on a record where TotalSent could exceed TotalReceived (invariant in
// §4.5 of the spec this module implements).
func (a LedgerAddress) Balance() uint64 {
	return a.TotalReceived - a.TotalSent
}

// AddressSnapshotEntry is the compressed per-address record used in
// snapshots and delta classification.
type AddressSnapshotEntry struct {
	AddressID         AddressId
	TotalSentMilliBTC uint64
	TotalRecvMilliBTC uint64
	FirstTime         uint32
	LastTime          uint32
	TxCount           uint8
	InputCount        uint8
	OutputCount       uint8
}

// Equal compares two entries field-by-field; used to classify "changed".
func (e AddressSnapshotEntry) Equal(o AddressSnapshotEntry) bool {
	return e.TotalSentMilliBTC == o.TotalSentMilliBTC &&
		e.TotalRecvMilliBTC == o.TotalRecvMilliBTC &&
		e.FirstTime == o.FirstTime &&
		e.LastTime == o.LastTime &&
		e.TxCount == o.TxCount &&
		e.InputCount == o.InputCount &&
		e.OutputCount == o.OutputCount
}

// BucketClass is one balance size class in a snapshot row.
type BucketClass struct {
	Count uint64
	Value uint64
}

// SnapshotRow is one time-bucketed statistics row.
type SnapshotRow struct {
	BoundaryTime    uint32
	AddressCount    uint64
	TotalValue      uint64
	ZombieCount     uint64
	ZombieValue     uint64
	Buckets         []BucketClass // indexed by size-class id
	PerAddress      []AddressSnapshotEntry
	NewAddresses    []AddressId
	ChangedAddresses []AddressId
	DeletedAddresses []AddressId
	RoseFromDeadCount  uint64
	RoseFromDeadAmount uint64
}

package binreader

import (
	"errors"
	"testing"
)

func TestReadVarIntDirect(t *testing.T) {
	r := New([]byte{0xFC})
	v, err := r.ReadVarInt()
	if err != nil || v != 0xFC {
		t.Fatalf("got (%d, %v), want (252, nil)", v, err)
	}
}

func TestReadVarIntFDReadsExactlyTwoBytes(t *testing.T) {
	r := New([]byte{0xFD, 0x34, 0x12, 0xAA})
	v, err := r.ReadVarInt()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x1234 {
		t.Fatalf("got %#x, want 0x1234", v)
	}
	if r.Pos() != 3 {
		t.Fatalf("cursor at %d, want 3 (1 tag + 2 data)", r.Pos())
	}
}

func TestReadVarIntFEReadsExactlyFourBytes(t *testing.T) {
	r := New([]byte{0xFE, 0x78, 0x56, 0x34, 0x12, 0xAA})
	v, err := r.ReadVarInt()
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x12345678 {
		t.Fatalf("got %#x, want 0x12345678", v)
	}
	if r.Pos() != 5 {
		t.Fatalf("cursor at %d, want 5 (1 tag + 4 data)", r.Pos())
	}
}

func TestReadVarIntFFReadsExactlyEightBytesAndFlagsAnomaly(t *testing.T) {
	r := New([]byte{0xFF, 1, 2, 3, 4, 5, 6, 7, 8, 0xAA})
	_, err := r.ReadVarInt()
	if !errors.Is(err, ErrAnomalousVarint) {
		t.Fatalf("got err=%v, want ErrAnomalousVarint", err)
	}
	if r.Pos() != 9 {
		t.Fatalf("cursor at %d, want 9 (1 tag + 8 data)", r.Pos())
	}
}

func TestReadBytesBoundsCheck(t *testing.T) {
	r := New([]byte{1, 2, 3})
	if _, err := r.ReadBytes(4); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("got %v, want ErrShortBuffer", err)
	}
}

func TestReadU32LittleEndian(t *testing.T) {
	r := New([]byte{0x01, 0x00, 0x00, 0x00})
	v, err := r.ReadU32()
	if err != nil || v != 1 {
		t.Fatalf("got (%d, %v), want (1, nil)", v, err)
	}
}

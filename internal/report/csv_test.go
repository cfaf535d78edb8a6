package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/chainledger/chainledger/pkg/types"
)

func TestWriteCSVHeaderAndRowCount(t *testing.T) {
	rows := []types.SnapshotRow{
		{
			BoundaryTime: 1609459200, // 2021-01-01
			AddressCount: 10,
			TotalValue:   5 * satoshiPerBTC,
			Buckets:      make([]types.BucketClass, 19),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records (header+rows), want 2", len(records))
	}
	if records[0][0] != "date" {
		t.Fatalf("header[0] = %q, want date", records[0][0])
	}
	if records[1][0] != "2021-01-01" {
		t.Fatalf("date = %q, want 2021-01-01", records[1][0])
	}
	if len(records[1]) != len(csvHeader) {
		t.Fatalf("row has %d columns, want %d", len(records[1]), len(csvHeader))
	}
}

func TestWriteCSVConvertsRoseFromDeadAmountFromMilliBTC(t *testing.T) {
	rows := []types.SnapshotRow{
		{
			BoundaryTime:       1609459200,
			Buckets:            make([]types.BucketClass, 19),
			RoseFromDeadAmount: 5000, // milli-BTC, as internal/snapshot stores it: 5 BTC
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatal(err)
	}

	r := csv.NewReader(&buf)
	records, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	got := records[1][len(csvHeader)-1]
	if got != "5.00000000" {
		t.Fatalf("rose_from_dead_amount = %q, want 5.00000000", got)
	}
}

func TestBTCStringFormatting(t *testing.T) {
	if got := btcString(5 * satoshiPerBTC); got != "5.00000000" {
		t.Fatalf("btcString = %q, want 5.00000000", got)
	}
	if got := btcString(1); got != "0.00000001" {
		t.Fatalf("btcString = %q, want 0.00000001", got)
	}
}

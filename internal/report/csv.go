// Package report implements the output serializers (component K): the
// stats.csv time-series writer and the BlockChainAddresses.bin
// per-address history writer/reader.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/chainledger/chainledger/pkg/types"
)

var csvHeader = []string{
	"date", "zombie_value", "zombie_count", "total_btc", "total_active_btc",
	"addresses_used", "addresses_with_balance", "zero_count", "dust_count",
	"dust_value", "1btc_count", "1btc_value", "1kbtc_count", "1kbtc_value",
	"new_count", "deleted_count", "changed_count", "same_count",
	"rose_from_dead_count", "rose_from_dead_amount",
}

const satoshiPerBTC = 100_000_000

// milliBTCSatoshi converts RoseFromDeadAmount (stored in milli-BTC by
// internal/snapshot) into satoshi for btcString.
const milliBTCSatoshi = 100_000

// WriteCSV writes one header row followed by one row per snapshot in rows,
// in the column order documented in §6 of spec.md.
func WriteCSV(w io.Writer, rows []types.SnapshotRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: writing csv header: %w", err)
	}

	for _, row := range rows {
		record, err := csvRow(row)
		if err != nil {
			return err
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("report: writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(row types.SnapshotRow) ([]string, error) {
	oneBTC, thousandBTC := bucketAt(row, 5), bucketAt(row, 14)
	dust := bucketAt(row, 1)
	zero := bucketAt(row, 0)

	sameCount := row.AddressCount - uint64(len(row.NewAddresses)) - uint64(len(row.ChangedAddresses)) - uint64(len(row.DeletedAddresses))

	return []string{
		time.Unix(int64(row.BoundaryTime), 0).UTC().Format("2006-01-02"),
		btcString(row.ZombieValue),
		strconv.FormatUint(row.ZombieCount, 10),
		btcString(row.TotalValue),
		btcString(row.TotalValue - row.ZombieValue),
		strconv.FormatUint(row.AddressCount, 10),
		strconv.FormatUint(row.AddressCount-zero.Count, 10),
		strconv.FormatUint(zero.Count, 10),
		strconv.FormatUint(dust.Count, 10),
		btcString(dust.Value),
		strconv.FormatUint(oneBTC.Count, 10),
		btcString(oneBTC.Value),
		strconv.FormatUint(thousandBTC.Count, 10),
		btcString(thousandBTC.Value),
		strconv.Itoa(len(row.NewAddresses)),
		strconv.Itoa(len(row.DeletedAddresses)),
		strconv.Itoa(len(row.ChangedAddresses)),
		strconv.FormatUint(sameCount, 10),
		strconv.FormatUint(row.RoseFromDeadCount, 10),
		btcString(row.RoseFromDeadAmount * milliBTCSatoshi),
	}, nil
}

func bucketAt(row types.SnapshotRow, idx int) types.BucketClass {
	if idx >= len(row.Buckets) {
		return types.BucketClass{}
	}
	return row.Buckets[idx]
}

func btcString(satoshi uint64) string {
	whole := satoshi / satoshiPerBTC
	frac := satoshi % satoshiPerBTC
	return fmt.Sprintf("%d.%08d", whole, frac)
}

// Command chainledger drives the batch parser and analysis engine from the
// command line: scan the data directory, reconstruct the main chain, walk
// it into the ledger, take periodic snapshots, and answer ad-hoc address
// queries. It is a thin dispatcher over internal/engine — every command
// below is one cooperative step, never a background task.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/chainledger/chainledger/internal/base58check"
	"github.com/chainledger/chainledger/internal/config"
	"github.com/chainledger/chainledger/internal/engine"
	"github.com/chainledger/chainledger/internal/logging"
	"github.com/chainledger/chainledger/internal/report"
	"github.com/chainledger/chainledger/pkg/types"
)

func nowUnix() int64 { return time.Now().Unix() }

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "chainledger:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cfg config.Config
	var log *zap.Logger
	var eng *engine.Engine

	app := &cli.App{
		Name:  "chainledger",
		Usage: "batch-mode parser and analysis engine for the Bitcoin block-chain",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Value: config.Default().DataDir, EnvVars: []string{"CHAINLEDGER_DATA_DIR"}},
			&cli.StringFlag{Name: "checkpoint", Value: config.Default().CheckpointPath, EnvVars: []string{"CHAINLEDGER_CHECKPOINT"}},
			&cli.StringFlag{Name: "report-dir", Value: config.Default().ReportDir, EnvVars: []string{"CHAINLEDGER_REPORT_DIR"}},
			&cli.StringFlag{Name: "log-level", Value: config.Default().LogLevel, EnvVars: []string{"CHAINLEDGER_LOG_LEVEL"}},
			&cli.StringFlag{Name: "granularity", Value: string(config.Default().Granularity)},
			&cli.IntFlag{Name: "zombie-days", Value: config.Default().ZombieThresholdDays},
			&cli.IntFlag{Name: "max-blocks", Value: config.Default().MaxBlocks},
		},
		Before: func(c *cli.Context) error {
			cfg = config.Default()
			cfg.DataDir = c.String("data-dir")
			cfg.CheckpointPath = c.String("checkpoint")
			cfg.ReportDir = c.String("report-dir")
			cfg.LogLevel = c.String("log-level")
			cfg.Granularity = config.Granularity(c.String("granularity"))
			cfg.ZombieThresholdDays = c.Int("zombie-days")
			cfg.MaxBlocks = c.Int("max-blocks")

			var err error
			log, err = logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			eng, err = engine.New(cfg, log)
			return err
		},
		After: func(c *cli.Context) error {
			if eng != nil {
				eng.Close()
			}
			if log != nil {
				log.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "walk blk*.dat and record every header found",
				Action: func(c *cli.Context) error {
					if err := eng.Scan(); err != nil {
						return err
					}
					stats := eng.Stats()
					fmt.Printf("scanned %d records across %d files (%d gaps recovered)\n",
						stats.Container.RecordsFound, stats.Container.FilesScanned, stats.Container.GapsRecovered)
					return eng.Checkpoint()
				},
			},
			{
				Name:  "process",
				Usage: "reconstruct the main chain and resolve every block onto the ledger",
				Action: func(c *cli.Context) error {
					if prev, err := eng.LastCheckpoint(); err == nil && prev.BlocksResolved > 0 {
						fmt.Printf("previous run resolved %d blocks (ledger state is not persisted and will be rebuilt from scratch)\n", prev.BlocksResolved)
					}

					chain, err := eng.ReconstructChain()
					if err != nil {
						return err
					}
					fmt.Printf("main chain: %d blocks\n", len(chain))
					for {
						more, err := eng.ProcessNext()
						if err != nil {
							return err
						}
						if !more {
							break
						}
					}
					stats := eng.Stats()
					fmt.Printf("resolved %d blocks, %d unresolved inputs, %d unknown scripts\n",
						stats.BlocksResolved, stats.Ledger.UnresolvedInputs, stats.Decoder.UnknownScripts)
					return eng.Checkpoint()
				},
			},
			{
				Name:  "statistics",
				Usage: "walk the remaining main chain, snapshotting at each --granularity boundary",
				Action: func(c *cli.Context) error {
					return runTimeSeries(eng, cfg.Granularity)
				},
			},
			{
				Name:  "by_day",
				Usage: "walk the remaining main chain, snapshotting once per calendar day",
				Action: func(c *cli.Context) error {
					return runTimeSeries(eng, config.GranularityDay)
				},
			},
			{
				Name:  "by_month",
				Usage: "walk the remaining main chain, snapshotting once per calendar month",
				Action: func(c *cli.Context) error {
					return runTimeSeries(eng, config.GranularityMonth)
				},
			},
			{
				Name:  "by_year",
				Usage: "walk the remaining main chain, snapshotting once per calendar year",
				Action: func(c *cli.Context) error {
					return runTimeSeries(eng, config.GranularityYear)
				},
			},
			{
				Name:  "counts",
				Usage: "print end-of-run diagnostic counters",
				Action: func(c *cli.Context) error {
					stats := eng.Stats()
					fmt.Printf("%+v\n", stats)
					return nil
				},
			},
			{
				Name:      "top_balance",
				Usage:     "list the n addresses with the highest balance",
				ArgsUsage: "<n>",
				Action: func(c *cli.Context) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("top_balance: %w", err)
					}
					for _, r := range eng.Ledger().TopByBalance(n) {
						fmt.Printf("%d\t%d\n", r.ID, r.Record.Balance())
					}
					return nil
				},
			},
			{
				Name:      "oldest",
				Usage:     "list the n addresses with the earliest first-seen time",
				ArgsUsage: "<n>",
				Action: func(c *cli.Context) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("oldest: %w", err)
					}
					for _, r := range eng.Ledger().OldestByFirstSeen(n) {
						fmt.Printf("%d\t%d\n", r.ID, r.Record.FirstOutputTime)
					}
					return nil
				},
			},
			{
				Name:      "min_balance",
				Usage:     "list every address with balance at or above the given satoshi amount",
				ArgsUsage: "<satoshi>",
				Action: func(c *cli.Context) error {
					min, err := strconv.ParseUint(c.Args().First(), 10, 64)
					if err != nil {
						return fmt.Errorf("min_balance: %w", err)
					}
					for _, r := range eng.Ledger().AboveBalance(min) {
						fmt.Printf("%d\t%d\n", r.ID, r.Record.Balance())
					}
					return nil
				},
			},
			{
				Name:      "zombie",
				Usage:     "list every address whose last activity predates <days> ago",
				ArgsUsage: "<days>",
				Action: func(c *cli.Context) error {
					days, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("zombie: %w", err)
					}
					cutoff := uint32(nowUnix()) - uint32(days*86400)
					for _, r := range eng.Ledger().ZombiesOlderThan(cutoff) {
						fmt.Printf("%d\t%d\n", r.ID, r.Record.LastUsedTime())
					}
					return nil
				},
			},
			{
				Name:  "record_addresses",
				Usage: "write stats.csv and BlockChainAddresses.bin to the report directory",
				Action: func(c *cli.Context) error {
					return writeReports(eng, cfg.ReportDir)
				},
			},
			{
				Name:      "block",
				Usage:     "print the main-chain header at height <n>",
				ArgsUsage: "<n>",
				Action: func(c *cli.Context) error {
					n, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return fmt.Errorf("block: %w", err)
					}
					rec, ok := eng.BlockAt(n)
					if !ok {
						return fmt.Errorf("block: no main-chain block at height %d", n)
					}
					fmt.Printf("%d\t%s\ttimestamp=%d\n", n, rec.ID, rec.Timestamp)
					return nil
				},
			},
			{
				Name:      "adr",
				Usage:     "look up a Base58Check address's ledger record",
				ArgsUsage: "<base58>",
				Action: func(c *cli.Context) error {
					return lookupAddress(eng, c.Args().First())
				},
			},
			{
				Name:  "load_record",
				Usage: "read BlockChainAddresses.bin back from the report directory and summarize it",
				Action: func(c *cli.Context) error {
					return loadRecord(cfg.ReportDir)
				},
			},
		},
	}

	return app.Run(args)
}

// runTimeSeries drives Engine.RunTimeSeries for the "statistics"/"by_day"/
// "by_month"/"by_year" commands and prints the rows it produced.
func runTimeSeries(eng *engine.Engine, g config.Granularity) error {
	rows, err := eng.RunTimeSeries(g)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Printf("snapshot at %d: %d addresses, %d satoshi total\n", row.BoundaryTime, row.AddressCount, row.TotalValue)
	}
	return nil
}

// lookupAddress implements "adr <base58>": decode the address, resolve it
// to an AddressId via the arena, and print its ledger record.
func lookupAddress(eng *engine.Engine, addr string) error {
	payload, err := base58check.CheckDecode(addr)
	if err != nil {
		return fmt.Errorf("adr: %w", err)
	}
	if len(payload) != 21 {
		return fmt.Errorf("adr: unexpected payload length %d, want 21 (version + hash160)", len(payload))
	}
	if payload[0] != 0x00 {
		return fmt.Errorf("adr: unsupported version byte 0x%02x, only mainnet P2PKH (0x00) is supported", payload[0])
	}

	var hash types.AddressHash160
	copy(hash[:], payload[1:])

	id, ok := eng.Arena().Lookup(hash)
	if !ok {
		return fmt.Errorf("adr: %s has never appeared in a processed block", addr)
	}
	rec, ok := eng.Ledger().Get(id)
	if !ok {
		return fmt.Errorf("adr: %s resolved to address id %d but has no ledger record", addr, id)
	}
	fmt.Printf("%s\tid=%d\tbalance=%d\tfirst_seen=%d\tlast_used=%d\n",
		addr, id, rec.Balance(), rec.FirstOutputTime, rec.LastUsedTime())
	return nil
}

// loadRecord implements "load_record": read BlockChainAddresses.bin back
// and print a summary of what it contains.
func loadRecord(dir string) error {
	f, err := os.Open(dir + "/BlockChainAddresses.bin")
	if err != nil {
		return fmt.Errorf("load_record: %w", err)
	}
	defer f.Close()

	hashes, blocks, err := report.ReadBinary(f)
	if err != nil {
		return fmt.Errorf("load_record: %w", err)
	}

	fmt.Printf("%d interned addresses, %d snapshot rows\n", len(hashes), len(blocks))
	for _, b := range blocks {
		fmt.Printf("row %d: %d new, %d changed, %d deleted\n",
			b.StartTime, len(b.NewAddrs), len(b.ChangedAddrs), len(b.DeletedAddrs))
	}
	return nil
}

func writeReports(eng *engine.Engine, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	csvFile, err := os.Create(dir + "/stats.csv")
	if err != nil {
		return err
	}
	defer csvFile.Close()
	if err := report.WriteCSV(csvFile, eng.Rows()); err != nil {
		return err
	}

	binFile, err := os.Create(dir + "/BlockChainAddresses.bin")
	if err != nil {
		return err
	}
	defer binFile.Close()
	return report.WriteBinary(binFile, eng.Arena(), eng.Rows())
}

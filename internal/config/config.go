// Package config holds the run configuration assembled from CLI flags
// (see cmd/chainledger) with environment-variable fallbacks. There is no
// config file format; every setting has a default in Default(), and the
// ones cmd/chainledger defines a flag for can be overridden from the command
// line, per the source's original command-line-only surface.
package config

import (
	"fmt"
	"os"
)

// Granularity selects the time bucket a snapshot boundary falls on.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// Config is the full set of knobs a run needs.
type Config struct {
	// DataDir is the directory containing blk%05d.dat files.
	DataDir string

	// CheckpointPath is where the scalar progress markers of
	// internal/checkpoint are persisted between runs.
	CheckpointPath string

	// HandleCacheLimit bounds how many blk file handles stay open at once.
	HandleCacheLimit int

	// TxDirectoryCapacity and AddressArenaCapacity bound the two fixed
	// arenas (component F and H).
	TxDirectoryCapacity  int
	AddressArenaCapacity int

	// Granularity selects the snapshot boundary cadence.
	Granularity Granularity

	// ZombieThresholdDays is how many days of inactivity mark an address a
	// zombie, converted to a UNIX-epoch cutoff at report time.
	ZombieThresholdDays int

	// IncludePerAddressSnapshots controls whether §4.7's per-address
	// entries (and therefore new/changed/deleted deltas) are computed.
	IncludePerAddressSnapshots bool

	// MaxBlocks caps how many main-chain blocks one run will process; 0
	// means unlimited.
	MaxBlocks int

	// ReportDir is where stats.csv and BlockChainAddresses.bin are written.
	ReportDir string

	// LogLevel is passed to internal/logging.New.
	LogLevel string
}

// Default returns a Config with the source's original defaults.
func Default() Config {
	return Config{
		DataDir:                    "./blocks",
		CheckpointPath:             "./chainledger.checkpoint",
		HandleCacheLimit:           512,
		TxDirectoryCapacity:        40_000_000,
		AddressArenaCapacity:       40_000_000,
		Granularity:                GranularityDay,
		ZombieThresholdDays:        365,
		IncludePerAddressSnapshots: true,
		MaxBlocks:                  0,
		ReportDir:                  "./reports",
		LogLevel:                   "info",
	}
}

// Validate checks that the configuration is usable before the engine opens
// any file.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data dir must not be empty")
	}
	if _, err := os.Stat(c.DataDir); err != nil {
		return fmt.Errorf("config: data dir %q: %w", c.DataDir, err)
	}
	switch c.Granularity {
	case GranularityDay, GranularityMonth, GranularityYear:
	default:
		return fmt.Errorf("config: unknown granularity %q", c.Granularity)
	}
	if c.TxDirectoryCapacity <= 0 || c.AddressArenaCapacity <= 0 {
		return fmt.Errorf("config: capacities must be positive")
	}
	return nil
}

// EnvOrDefault reads an environment variable, falling back to def if unset.
func EnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Package metrics exposes the engine's run counters as prometheus gauges
// and counters, served on /metrics by cmd/chainledger-api.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksScanned = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainledger",
		Name:      "blocks_scanned_total",
		Help:      "Block header records recovered by the container scanner.",
	})

	BlocksOnMainChain = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainledger",
		Name:      "blocks_main_chain",
		Help:      "Blocks on the reconstructed main chain.",
	})

	BlocksOrphaned = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainledger",
		Name:      "blocks_orphaned_total",
		Help:      "Headers observed but not on the main chain.",
	})

	TransactionsResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainledger",
		Name:      "transactions_resolved_total",
		Help:      "Transactions decoded and applied to the ledger.",
	})

	InputsUnresolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainledger",
		Name:      "inputs_unresolved_total",
		Help:      "Inputs whose prev_tx could not be found in the directory.",
	})

	ScriptsUnknown = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainledger",
		Name:      "scripts_unknown_total",
		Help:      "Output scripts that matched no recognised recipient pattern.",
	})

	ArenaOccupancy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainledger",
		Name:      "address_arena_occupancy",
		Help:      "Distinct addresses interned so far.",
	})

	DirectoryOccupancy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainledger",
		Name:      "tx_directory_occupancy",
		Help:      "Transactions recorded in the transaction directory.",
	})

	GapsRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chainledger",
		Name:      "container_gaps_recovered_total",
		Help:      "Byte-level resyncs the container scanner performed.",
	})
)

func init() {
	prometheus.MustRegister(
		BlocksScanned,
		BlocksOnMainChain,
		BlocksOrphaned,
		TransactionsResolved,
		InputsUnresolved,
		ScriptsUnknown,
		ArenaOccupancy,
		DirectoryOccupancy,
		GapsRecovered,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

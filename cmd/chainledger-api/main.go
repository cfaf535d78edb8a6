// Command chainledger-api exposes the report directory and a handful of
// ledger queries over HTTP. At startup it scans the data directory and
// reconstructs the main chain; it resolves no blocks onto the ledger, so
// the ledger query endpoints answer from an empty ledger. No endpoint
// triggers a scan or process step.
package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chainledger/chainledger/internal/config"
	"github.com/chainledger/chainledger/internal/engine"
	"github.com/chainledger/chainledger/internal/logging"
	"github.com/chainledger/chainledger/internal/metrics"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	cfg := config.Default()
	if dir := os.Getenv("CHAINLEDGER_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if cp := os.Getenv("CHAINLEDGER_CHECKPOINT"); cp != "" {
		cfg.CheckpointPath = cp
	}
	if rd := os.Getenv("CHAINLEDGER_REPORT_DIR"); rd != "" {
		cfg.ReportDir = rd
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	eng, err := engine.New(cfg, log)
	if err != nil {
		log.Fatal("engine init failed", zap.Error(err))
	}
	defer eng.Close()

	if err := eng.Scan(); err != nil {
		log.Warn("initial scan failed, serving with an empty chain", zap.Error(err))
	} else if _, err := eng.ReconstructChain(); err != nil {
		log.Warn("chain reconstruction failed", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	r.GET("/api/stats", handleStats(eng))
	r.GET("/api/top-balance/:n", handleTopBalance(eng))
	r.GET("/api/zombies/:days", handleZombies(eng))
	r.GET("/api/reports/stats.csv", handleCSVReport(cfg))
	r.GET("/api/reports/addresses.bin", handleBinaryReport(cfg))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	log.Info("listening", zap.String("addr", ":"+port))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func handleStats(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := eng.Stats()
		c.JSON(200, gin.H{
			"blocksResolved":    stats.BlocksResolved,
			"mainChainLength":   stats.Chain.Length,
			"orphans":           stats.Chain.Orphans,
			"unresolvedInputs":  stats.Ledger.UnresolvedInputs,
			"coinbaseInputs":    stats.Ledger.CoinbaseInputs,
			"unknownScripts":    stats.Decoder.UnknownScripts,
			"scriptsOverBounds": stats.Decoder.ScriptBoundsExceeded,
			"filesScanned":      stats.Container.FilesScanned,
			"gapsRecovered":     stats.Container.GapsRecovered,
		})
	}
}

func handleTopBalance(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
		ranked := eng.Ledger().TopByBalance(n)
		out := make([]gin.H, 0, len(ranked))
		for _, r := range ranked {
			out = append(out, gin.H{
				"addressId":        r.ID,
				"balance":          r.Record.Balance(),
				"transactionCount": r.Record.TransactionCount,
			})
		}
		c.JSON(200, out)
	}
}

func handleZombies(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := strconv.Atoi(c.Param("days"))
		if err != nil || days < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		cutoff := uint32(0)
		if secs := int64(days) * 86400; secs < 1<<32 {
			cutoff = uint32(secs)
		}
		ranked := eng.Ledger().ZombiesOlderThan(cutoff)
		out := make([]gin.H, 0, len(ranked))
		for _, r := range ranked {
			out = append(out, gin.H{
				"addressId":    r.ID,
				"lastUsedTime": r.Record.LastUsedTime(),
				"balance":      r.Record.Balance(),
			})
		}
		c.JSON(200, out)
	}
}

func handleCSVReport(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(cfg.ReportDir + "/stats.csv")
	}
}

func handleBinaryReport(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(cfg.ReportDir + "/BlockChainAddresses.bin")
	}
}

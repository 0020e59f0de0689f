// Candlestick retriever CLI
// Downloads historical candlestick data for all trading pairs on Binance and
// persists one parquet file per pair, ready for bulk upload to a dataset
// hosting platform by an external tool.
//
// Usage:
//
//	retriever            full update of all pairs (same as "retriever update")
//	retriever update     full update of all pairs
//	retriever pairs      list the exchange's trading pairs
//	retriever --version  print version information
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/onchainification/candlestick-retriever/internal/config"
	"github.com/onchainification/candlestick-retriever/internal/exchange"
	"github.com/onchainification/candlestick-retriever/internal/logger"
	"github.com/onchainification/candlestick-retriever/internal/retriever"
	"github.com/onchainification/candlestick-retriever/internal/store"
)

const (
	version = "2.0.0"
	appName = "retriever"
)

// Exit codes following standard conventions.
const (
	exitSuccess     = 0
	exitUsageError  = 1
	exitConfigError = 2
	exitRunError    = 4
	exitInterrupt   = 130
)

func main() {
	command := "update"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "--version", "-v", "version":
		fmt.Printf("%s version %s\n", appName, version)
		os.Exit(exitSuccess)
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	case "update", "pairs":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(exitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfigError)
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfigError)
	}
	defer closer.Close()

	log = log.With("run_id", uuid.NewString())

	adapter := exchange.NewBinanceAdapter(cfg.Exchange, logger.Component(log, "exchange"))

	var runErr error
	switch command {
	case "pairs":
		runErr = listPairs(ctx, adapter)
	case "update":
		runErr = runUpdate(ctx, cfg, adapter, log)
	}

	if runErr != nil {
		if ctx.Err() != nil {
			log.Warn("run interrupted")
			os.Exit(exitInterrupt)
		}
		log.Error("run failed", "error", runErr)
		os.Exit(exitRunError)
	}
}

func runUpdate(ctx context.Context, cfg *config.Config, adapter *exchange.BinanceAdapter, log *slog.Logger) error {
	intervalDuration, err := cfg.Exchange.IntervalDuration()
	if err != nil {
		return err
	}

	st, err := store.NewParquetStore(cfg.Store.DataDir, logger.Component(log, "store"))
	if err != nil {
		return err
	}

	r := retriever.New(adapter, st, retriever.NewConsoleReporter(os.Stdout), retriever.Config{
		Interval:         cfg.Exchange.Interval,
		IntervalDuration: intervalDuration,
		BatchSize:        cfg.Exchange.BatchSize,
		ShaveOffToday:    cfg.Store.ShaveOffToday,
		SkipDelisted:     cfg.Retriever.SkipDelisted,
		Shuffle:          cfg.Retriever.Shuffle,
		Logger:           logger.Component(log, "retriever"),
	})

	return r.Run(ctx)
}

func listPairs(ctx context.Context, adapter *exchange.BinanceAdapter) error {
	pairs, err := adapter.TradingPairs(ctx)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		fmt.Printf("%-24s %s\n", p.Slug(), p.Status)
	}
	return nil
}

func printUsage() {
	fmt.Printf(`%s - Binance candlestick dataset retriever

Usage:
  %s [command]

Commands:
  update    Fetch new candles for every trading pair and update the
            per-pair parquet files (default)
  pairs     List the exchange's trading pairs and their status
  version   Print version information
  help      Show this help

Configuration is read from environment variables, optionally via a .env
file. See internal/config for the full list; the important ones:

  DATA_DIR          Directory for per-pair parquet files (default "data")
  CANDLE_INTERVAL   Candle interval (default "1m")
  SHAVE_OFF_TODAY   Cut all files at the last UTC midnight (default true)
  SKIP_DELISTED     Skip pairs that are not actively trading (default false)
  MAX_RETRIES       Retries per request on transient failures (default 3)
`, appName, appName)
}

// Package retriever implements the update run: enumerate trading pairs, and
// for each one read the last stored open time, page new candles from the
// exchange, merge them with the existing history, and atomically replace the
// pair's store file.
//
// The run is deliberately sequential. One pair is fully processed before the
// next begins; pairs share no state, so a failure on one pair never affects
// the others.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/errs"
	"github.com/onchainification/candlestick-retriever/internal/exchange"
	"github.com/onchainification/candlestick-retriever/internal/models"
	"github.com/onchainification/candlestick-retriever/internal/store"
)

// Exchange is the subset of exchange capabilities the run loop needs.
type Exchange interface {
	exchange.PairProvider
	exchange.CandleFetcher
}

// Config configures an update run.
type Config struct {
	// Interval is the candle interval requested from the exchange.
	Interval string

	// IntervalDuration is the same interval as a duration, used to filter
	// incomplete candles.
	IntervalDuration time.Duration

	// BatchSize is the number of candles requested per page.
	BatchSize int

	// ShaveOffToday drops candles after the last UTC midnight so every
	// pair's file ends at the same timestamp.
	ShaveOffToday bool

	// SkipDelisted drops pairs that are not actively trading.
	SkipDelisted bool

	// Shuffle randomizes processing order.
	Shuffle bool

	Logger *slog.Logger
}

// Retriever drives the sequential update run.
type Retriever struct {
	exchange Exchange
	store    store.Store
	reporter Reporter
	cfg      Config
	metrics  *RunMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Retriever. The reporter may be nil, in which case progress
// lines are suppressed.
func New(ex Exchange, st store.Store, reporter Reporter, cfg Config) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Retriever{
		exchange: ex,
		store:    st,
		reporter: reporter,
		cfg:      cfg,
		metrics:  &RunMetrics{},
		logger:   logger,
		now:      time.Now,
	}
}

// Metrics returns the run's counters.
func (r *Retriever) Metrics() MetricsSnapshot {
	return r.metrics.Snapshot()
}

// Run performs one full update over all trading pairs. Enumeration failure
// aborts the run; any later failure is isolated to its pair. Run returns an
// error only for enumeration failure or cancellation.
func (r *Retriever) Run(ctx context.Context) error {
	pairs, err := r.exchange.TradingPairs(ctx)
	if err != nil {
		return fmt.Errorf("pair enumeration failed: %w", err)
	}

	active := 0
	for _, p := range pairs {
		if p.Active() {
			active++
		}
	}
	r.logger.Info("fetched trading pairs", "total", len(pairs), "active", active)

	if r.cfg.SkipDelisted {
		kept := pairs[:0]
		for _, p := range pairs {
			if p.Active() {
				kept = append(kept, p)
			}
		}
		r.logger.Info("dropped inactive pairs", "dropped", len(pairs)-len(kept))
		pairs = kept
	}

	if r.cfg.Shuffle {
		rand.Shuffle(len(pairs), func(i, j int) {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		})
	}

	var cutoff time.Time
	if r.cfg.ShaveOffToday {
		cutoff = store.LastMidnightUTC(r.now())
	}

	total := len(pairs)
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}

		newRows, err := r.updatePair(ctx, pair, cutoff)
		r.metrics.recordProcessed()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.metrics.recordFailed()
			r.logger.Error("pair update failed",
				"pair", pair.Slug(), "error", err)
			r.reporter.Failure(i+1, total, pair, err)
			continue
		}

		r.reporter.Progress(i+1, total, pair, newRows)
	}

	snap := r.metrics.Snapshot()
	r.logger.Info("update run completed",
		"pairs", snap.PairsProcessed,
		"up_to_date", snap.PairsUpToDate,
		"failed", snap.PairsFailed,
		"candles_fetched", snap.CandlesFetched,
		"rows_written", snap.RowsWritten)

	return nil
}

// updatePair processes a single pair and returns the number of new rows
// written, zero meaning the store was already up to date.
func (r *Retriever) updatePair(ctx context.Context, pair models.Pair, cutoff time.Time) (int, error) {
	last, err := r.store.LastOpenTime(ctx, pair)
	if err != nil {
		return 0, errs.NewSymbolError("read", pair.Symbol, err)
	}

	if last.IsZero() {
		r.logger.Debug("no prior data, fetching full history", "pair", pair.Slug())
	} else {
		r.logger.Debug("fetching from last known candle",
			"pair", pair.Slug(), "last_open_time", last)
	}

	fresh, fetchErr := r.gather(ctx, pair, last)
	r.metrics.recordFetched(len(fresh))
	if fetchErr != nil {
		if len(fresh) == 0 {
			return 0, errs.NewSymbolError("fetch", pair.Symbol, fetchErr)
		}
		// Keep what was fetched; the next run picks up from here.
		r.logger.Warn("fetch truncated, keeping partial data",
			"pair", pair.Slug(),
			"candles", len(fresh),
			"error", fetchErr)
	}

	fresh = store.Clean(fresh, r.cfg.IntervalDuration, cutoff)
	if len(fresh) == 0 {
		r.metrics.recordUpToDate()
		return 0, nil
	}

	old, err := r.store.ReadAll(ctx, pair)
	if err != nil {
		return 0, errs.NewSymbolError("read", pair.Symbol, err)
	}

	merged := store.Merge(old, fresh)
	newRows := len(merged) - len(old)
	if newRows <= 0 {
		r.metrics.recordUpToDate()
		return 0, nil
	}

	if err := r.store.Replace(ctx, pair, merged); err != nil {
		return 0, errs.NewSymbolError("write", pair.Symbol, err)
	}
	r.metrics.recordRowsWritten(newRows)
	return newRows, nil
}

// gather pages candles forward from the candle after last until the exchange
// returns no further data. Each page's final open time seeds the next page's
// start parameter, which guarantees forward progress. On a request error the
// candles collected so far are returned along with the error.
func (r *Retriever) gather(ctx context.Context, pair models.Pair, last time.Time) ([]models.Candle, error) {
	var all []models.Candle

	var lastMs int64
	if !last.IsZero() {
		lastMs = last.UnixMilli()
	}

	for {
		prev := lastMs
		batch, err := r.exchange.FetchCandles(ctx, exchange.FetchRequest{
			Symbol:    pair.Symbol,
			Interval:  r.cfg.Interval,
			StartTime: lastMs + 1,
			Limit:     r.cfg.BatchSize,
		})
		if err != nil {
			return all, err
		}

		// Requesting candles from the future returns an empty page.
		if len(batch) == 0 {
			break
		}

		lastMs = batch[len(batch)-1].OpenTime.UnixMilli()

		// No trades since the last stored candle leave the page stuck on
		// the same open time.
		if lastMs == prev {
			break
		}

		all = append(all, batch...)
	}

	return all, nil
}

type nopReporter struct{}

func (nopReporter) Progress(int, int, models.Pair, int) {}
func (nopReporter) Failure(int, int, models.Pair, error) {}

// Package exchange defines the interfaces for exchange adapters that provide
// trading pair enumeration and historical candle retrieval, and the Binance
// implementation used in production.
//
// The interfaces are small and composable; the run loop depends only on the
// capabilities it uses, which keeps tests simple.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// PairProvider enumerates the exchange's tradable symbols.
type PairProvider interface {
	// TradingPairs returns every trading pair the exchange knows about,
	// active or not, in the order the exchange reports them. The order is
	// not guaranteed to be stable across calls.
	TradingPairs(ctx context.Context) ([]models.Pair, error)
}

// CandleFetcher retrieves one page of historical candles.
type CandleFetcher interface {
	// FetchCandles returns up to req.Limit candles with open time at or
	// after req.StartTime, in chronological order. An empty slice without
	// error means no data exists at or after the requested time, which is
	// how a paging loop detects it has caught up to the present.
	FetchCandles(ctx context.Context, req FetchRequest) ([]models.Candle, error)
}

// RateLimitInfo exposes the adapter's client-side request pacing.
type RateLimitInfo interface {
	// Limits returns the configured request rate.
	Limits() RateLimit

	// WaitForLimit blocks until the rate limiter allows another request
	// or the context is cancelled.
	WaitForLimit(ctx context.Context) error
}

// HealthChecker verifies the exchange is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Adapter combines all exchange capabilities.
type Adapter interface {
	PairProvider
	CandleFetcher
	RateLimitInfo
	HealthChecker
}

// FetchRequest specifies one kline page request.
type FetchRequest struct {
	// Symbol is the exchange symbol, e.g. "DOGEBTC".
	Symbol string

	// Interval is the candle interval, e.g. "1m".
	Interval string

	// StartTime is the earliest open time to include, in milliseconds
	// since the epoch (inclusive). Zero means the earliest available
	// history.
	StartTime int64

	// Limit caps the number of candles returned.
	Limit int
}

// Validate checks the request parameters.
func (r *FetchRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if r.Interval == "" {
		return fmt.Errorf("interval cannot be empty")
	}
	if r.StartTime < 0 {
		return fmt.Errorf("start time cannot be negative")
	}
	if r.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	return nil
}

// RateLimit describes the client-side request pacing configuration.
type RateLimit struct {
	RequestsPerSecond int
	BurstSize         int
	WindowDuration    time.Duration
}

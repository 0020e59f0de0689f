// Binance adapter built on the official REST API via go-binance. Includes
// client-side rate limiting and bounded retry with exponential backoff on
// transient failures.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/onchainification/candlestick-retriever/internal/config"
	"github.com/onchainification/candlestick-retriever/internal/errs"
	"github.com/onchainification/candlestick-retriever/internal/models"
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
	retryMultiplier   = 2.0
	retryJitter       = 0.5

	healthCheckTimeout = 5 * time.Second
)

// BinanceAdapter implements the Adapter interface against the Binance
// public REST API.
type BinanceAdapter struct {
	client      *binance.Client
	rateLimiter *rate.Limiter
	cfg         config.ExchangeConfig
	logger      *slog.Logger
}

// NewBinanceAdapter creates a Binance adapter from the exchange
// configuration. The kline and exchange info endpoints are public, so empty
// credentials are fine.
func NewBinanceAdapter(cfg config.ExchangeConfig, logger *slog.Logger) *BinanceAdapter {
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	client.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BinanceAdapter{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:         cfg,
		logger:      logger,
	}
}

// TradingPairs implements the PairProvider interface. Enumeration is fatal
// for the run on failure, so it retries transient errors like any other
// request but does not cache: a run enumerates exactly once.
func (b *BinanceAdapter) TradingPairs(ctx context.Context) ([]models.Pair, error) {
	if err := b.WaitForLimit(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var info *binance.ExchangeInfo
	err := b.withRetry(ctx, "exchangeInfo", func() error {
		var err error
		info, err = b.client.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trading pairs: %w", err)
	}

	pairs := make([]models.Pair, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		pairs = append(pairs, models.Pair{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Status:     s.Status,
		})
	}

	b.logger.Debug("fetched trading pairs", "count", len(pairs))
	return pairs, nil
}

// FetchCandles implements the CandleFetcher interface.
func (b *BinanceAdapter) FetchCandles(ctx context.Context, req FetchRequest) ([]models.Candle, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if err := b.WaitForLimit(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var klines []*binance.Kline
	err := b.withRetry(ctx, "klines", func() error {
		var err error
		klines, err = b.client.NewKlinesService().
			Symbol(req.Symbol).
			Interval(req.Interval).
			StartTime(req.StartTime).
			Limit(req.Limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", req.Symbol, err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, convertKline(k))
	}

	b.logger.Debug("fetched candles",
		"symbol", req.Symbol,
		"start", req.StartTime,
		"count", len(candles))

	return candles, nil
}

// Limits implements the RateLimitInfo interface.
func (b *BinanceAdapter) Limits() RateLimit {
	return RateLimit{
		RequestsPerSecond: b.cfg.RequestsPerSecond,
		BurstSize:         b.cfg.Burst,
		WindowDuration:    time.Second,
	}
}

// WaitForLimit implements the RateLimitInfo interface.
func (b *BinanceAdapter) WaitForLimit(ctx context.Context) error {
	return b.rateLimiter.Wait(ctx)
}

// HealthCheck implements the HealthChecker interface using the exchange's
// ping endpoint.
func (b *BinanceAdapter) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := b.client.NewPingService().Do(healthCtx); err != nil {
		return fmt.Errorf("exchange ping failed: %w", err)
	}
	return nil
}

// withRetry runs op with bounded exponential backoff. Permanent errors and
// exhausted retries surface to the caller; MaxRetries of zero makes a single
// attempt, restoring the original fetch-once-and-truncate behavior.
func (b *BinanceAdapter) withRetry(ctx context.Context, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialRetryDelay
	policy.MaxInterval = maxRetryDelay
	policy.Multiplier = retryMultiplier
	policy.RandomizationFactor = retryJitter
	policy.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	bounded := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(b.cfg.MaxRetries))

	return backoff.RetryNotify(
		func() error {
			err := fn()
			if err == nil {
				return nil
			}
			if !errs.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		bounded,
		func(err error, delay time.Duration) {
			b.logger.Warn("request failed, retrying",
				"op", op,
				"error", err,
				"retry_delay", delay)
		},
	)
}

// convertKline maps an exchange kline to the internal candle model. String
// prices pass through untouched; the exchange's precision is the source of
// truth.
func convertKline(k *binance.Kline) models.Candle {
	return models.Candle{
		OpenTime:            time.UnixMilli(k.OpenTime).UTC(),
		Open:                k.Open,
		High:                k.High,
		Low:                 k.Low,
		Close:               k.Close,
		Volume:              k.Volume,
		CloseTime:           time.UnixMilli(k.CloseTime).UTC(),
		QuoteAssetVolume:    k.QuoteAssetVolume,
		TradeCount:          k.TradeNum,
		TakerBuyBaseVolume:  k.TakerBuyBaseAssetVolume,
		TakerBuyQuoteVolume: k.TakerBuyQuoteAssetVolume,
	}
}

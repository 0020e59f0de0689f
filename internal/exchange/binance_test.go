package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onchainification/candlestick-retriever/internal/config"
)

func testConfig(baseURL string, maxRetries int) config.ExchangeConfig {
	return config.ExchangeConfig{
		BaseURL:           baseURL,
		Interval:          "1m",
		BatchSize:         1000,
		RequestsPerSecond: 100,
		Burst:             10,
		MaxRetries:        maxRetries,
		Timeout:           5 * time.Second,
	}
}

// klineJSON renders one kline in the exchange's array-of-arrays wire format.
func klineJSON(openMs int64) string {
	closeMs := openMs + 59999
	return fmt.Sprintf(`[%d,"0.001","0.002","0.0005","0.0015","100.5",%d,"0.15",42,"50.25","0.075","0"]`,
		openMs, closeMs)
}

func TestBinanceAdapterFetchCandles(t *testing.T) {
	openMs := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "DOGEBTC", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		fmt.Fprintf(w, "[%s,%s]", klineJSON(openMs), klineJSON(openMs+60_000))
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 0), slog.Default())

	candles, err := adapter.FetchCandles(context.Background(), FetchRequest{
		Symbol:    "DOGEBTC",
		Interval:  "1m",
		StartTime: openMs,
		Limit:     1000,
	})
	require.NoError(t, err)
	require.Len(t, candles, 2)

	c := candles[0]
	assert.Equal(t, time.UnixMilli(openMs).UTC(), c.OpenTime)
	assert.Equal(t, time.UnixMilli(openMs+59999).UTC(), c.CloseTime)
	assert.Equal(t, "0.001", c.Open)
	assert.Equal(t, "0.002", c.High)
	assert.Equal(t, "0.0005", c.Low)
	assert.Equal(t, "0.0015", c.Close)
	assert.Equal(t, "100.5", c.Volume)
	assert.Equal(t, "0.15", c.QuoteAssetVolume)
	assert.Equal(t, int64(42), c.TradeCount)
	assert.Equal(t, "50.25", c.TakerBuyBaseVolume)
	assert.Equal(t, "0.075", c.TakerBuyQuoteVolume)

	require.NoError(t, c.Validate())
}

func TestBinanceAdapterFetchCandlesValidation(t *testing.T) {
	adapter := NewBinanceAdapter(testConfig("http://localhost:0", 0), slog.Default())

	_, err := adapter.FetchCandles(context.Background(), FetchRequest{Interval: "1m", Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")

	_, err = adapter.FetchCandles(context.Background(), FetchRequest{Symbol: "DOGEBTC", Interval: "1m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestBinanceAdapterTradingPairs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"DOGEBTC","status":"TRADING","baseAsset":"DOGE","quoteAsset":"BTC"},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT"}
		]}`)
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 0), slog.Default())

	pairs, err := adapter.TradingPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, "DOGE-BTC", pairs[0].Slug())
	assert.True(t, pairs[0].Active())
	assert.Equal(t, "LUNA-USDT", pairs[1].Slug())
	assert.False(t, pairs[1].Active())
}

func TestBinanceAdapterRetriesTransientErrors(t *testing.T) {
	openMs := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
			return
		}
		fmt.Fprintf(w, "[%s]", klineJSON(openMs))
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 2), slog.Default())

	candles, err := adapter.FetchCandles(context.Background(), FetchRequest{
		Symbol:    "DOGEBTC",
		Interval:  "1m",
		StartTime: 1,
		Limit:     1000,
	})
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestBinanceAdapterDoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 3), slog.Default())

	_, err := adapter.FetchCandles(context.Background(), FetchRequest{
		Symbol:    "NOPEBTC",
		Interval:  "1m",
		StartTime: 1,
		Limit:     1000,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBinanceAdapterZeroRetriesFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 0), slog.Default())

	_, err := adapter.FetchCandles(context.Background(), FetchRequest{
		Symbol:    "DOGEBTC",
		Interval:  "1m",
		StartTime: 1,
		Limit:     1000,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBinanceAdapterHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/ping", r.URL.Path)
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	adapter := NewBinanceAdapter(testConfig(server.URL, 0), slog.Default())
	require.NoError(t, adapter.HealthCheck(context.Background()))

	limits := adapter.Limits()
	assert.Equal(t, 100, limits.RequestsPerSecond)
}

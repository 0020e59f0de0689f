// Package config provides centralized configuration for the candlestick
// retriever. Configuration is assembled from environment variables (with an
// optional .env file) on top of defaults, validated once, and passed
// explicitly to the components that need it. There is no hidden global state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete application configuration.
type Config struct {
	Exchange  ExchangeConfig
	Store     StoreConfig
	Retriever RetrieverConfig
	Logging   LoggingConfig
}

// ExchangeConfig configures the exchange adapter.
type ExchangeConfig struct {
	// BaseURL overrides the exchange API endpoint. Empty means production.
	BaseURL string `env:"EXCHANGE_BASE_URL"`

	// APIKey and APISecret are optional; the kline and exchange info
	// endpoints are public, but authenticated requests get higher limits.
	APIKey    string `env:"EXCHANGE_API_KEY"`
	APISecret string `env:"EXCHANGE_API_SECRET"`

	// Interval is the candle interval requested from the exchange.
	Interval string `env:"CANDLE_INTERVAL"`

	// BatchSize is the number of candles requested per kline call.
	BatchSize int `env:"BATCH_SIZE"`

	// RequestsPerSecond and Burst bound the client-side request rate.
	RequestsPerSecond int `env:"RATE_LIMIT"`
	Burst             int `env:"RATE_LIMIT_BURST"`

	// MaxRetries bounds retry attempts on transient request failures.
	// Zero disables retries entirely, truncating a symbol's new data at
	// the first failed request.
	MaxRetries int `env:"MAX_RETRIES"`

	// Timeout applies to each individual HTTP request.
	Timeout time.Duration `env:"HTTP_TIMEOUT"`
}

// StoreConfig configures the per-symbol parquet store.
type StoreConfig struct {
	// DataDir is the directory holding one parquet file per pair.
	DataDir string `env:"DATA_DIR"`

	// ShaveOffToday drops candles after the last UTC midnight so every
	// pair's file ends at the same timestamp.
	ShaveOffToday bool `env:"SHAVE_OFF_TODAY"`
}

// RetrieverConfig configures the update run itself.
type RetrieverConfig struct {
	// SkipDelisted drops pairs that are not in TRADING status.
	SkipDelisted bool `env:"SKIP_DELISTED"`

	// Shuffle randomizes pair processing order. Helpful during testing;
	// makes no difference to the result.
	Shuffle bool `env:"SHUFFLE_PAIRS"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `env:"LOG_LEVEL"`  // debug, info, warn, error
	Format   string `env:"LOG_FORMAT"` // json, text
	Output   string `env:"LOG_OUTPUT"` // stdout, stderr, file
	FilePath string `env:"LOG_FILE_PATH"`

	// Rotation settings, used when Output is "file".
	MaxSizeMB  int  `env:"LOG_MAX_SIZE"`
	MaxBackups int  `env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int  `env:"LOG_MAX_AGE"`
	Compress   bool `env:"LOG_COMPRESS"`
}

// Default returns the configuration defaults, matching the behavior of the
// production dataset updates: 1-minute candles, 1000 per request, all pairs.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Interval:          "1m",
			BatchSize:         1000,
			RequestsPerSecond: 10,
			Burst:             1,
			MaxRetries:        3,
			Timeout:           30 * time.Second,
		},
		Store: StoreConfig{
			DataDir:       "data",
			ShaveOffToday: true,
		},
		Retriever: RetrieverConfig{
			SkipDelisted: false,
			Shuffle:      true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, and
// process environment variables, then validates it.
func Load() (*Config, error) {
	// A missing .env file is not an error; the environment still applies.
	_ = godotenv.Load()

	cfg := Default()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Exchange.BaseURL, "EXCHANGE_BASE_URL")
	setString(&c.Exchange.APIKey, "EXCHANGE_API_KEY")
	setString(&c.Exchange.APISecret, "EXCHANGE_API_SECRET")
	setString(&c.Exchange.Interval, "CANDLE_INTERVAL")
	setInt(&c.Exchange.BatchSize, "BATCH_SIZE")
	setInt(&c.Exchange.RequestsPerSecond, "RATE_LIMIT")
	setInt(&c.Exchange.Burst, "RATE_LIMIT_BURST")
	setInt(&c.Exchange.MaxRetries, "MAX_RETRIES")
	setDuration(&c.Exchange.Timeout, "HTTP_TIMEOUT")

	setString(&c.Store.DataDir, "DATA_DIR")
	setBool(&c.Store.ShaveOffToday, "SHAVE_OFF_TODAY")

	setBool(&c.Retriever.SkipDelisted, "SKIP_DELISTED")
	setBool(&c.Retriever.Shuffle, "SHUFFLE_PAIRS")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Logging.Output, "LOG_OUTPUT")
	setString(&c.Logging.FilePath, "LOG_FILE_PATH")
	setInt(&c.Logging.MaxSizeMB, "LOG_MAX_SIZE")
	setInt(&c.Logging.MaxBackups, "LOG_MAX_BACKUPS")
	setInt(&c.Logging.MaxAgeDays, "LOG_MAX_AGE")
	setBool(&c.Logging.Compress, "LOG_COMPRESS")
}

// Validate verifies the configuration is usable.
func (c *Config) Validate() error {
	if c.Exchange.BatchSize <= 0 {
		return fmt.Errorf("exchange batch size must be positive, got %d", c.Exchange.BatchSize)
	}
	if c.Exchange.RequestsPerSecond <= 0 {
		return fmt.Errorf("exchange rate limit must be positive, got %d", c.Exchange.RequestsPerSecond)
	}
	if c.Exchange.Burst <= 0 {
		return fmt.Errorf("exchange rate limit burst must be positive, got %d", c.Exchange.Burst)
	}
	if c.Exchange.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative, got %d", c.Exchange.MaxRetries)
	}
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.Exchange.Timeout)
	}
	if _, err := c.Exchange.IntervalDuration(); err != nil {
		return err
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("log file path is required when log output is 'file'")
		}
	default:
		return fmt.Errorf("unsupported log output %q", c.Logging.Output)
	}
	return nil
}

// IntervalDuration converts the configured interval name to a duration.
func (e ExchangeConfig) IntervalDuration() (time.Duration, error) {
	switch e.Interval {
	case "1m":
		return time.Minute, nil
	case "3m":
		return 3 * time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "30m":
		return 30 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "2h":
		return 2 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "6h":
		return 6 * time.Hour, nil
	case "12h":
		return 12 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported candle interval %q", e.Interval)
	}
}

// Environment parsing helpers. Unset or malformed values leave the
// destination untouched so defaults survive.

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

// Package models provides the data structures for candlestick retrieval:
// klines as returned by the exchange and the trading pairs they belong to.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one kline exactly as the exchange reports it: OHLCV data
// for a fixed interval plus the derived trade statistics. Prices and volumes
// are kept as decimal strings to preserve exchange precision. A candle is
// uniquely keyed by its open time.
type Candle struct {
	OpenTime            time.Time `json:"open_time"`
	Open                string    `json:"open"`
	High                string    `json:"high"`
	Low                 string    `json:"low"`
	Close               string    `json:"close"`
	Volume              string    `json:"volume"`
	CloseTime           time.Time `json:"close_time"`
	QuoteAssetVolume    string    `json:"quote_asset_volume"`
	TradeCount          int64     `json:"number_of_trades"`
	TakerBuyBaseVolume  string    `json:"taker_buy_base_asset_volume"`
	TakerBuyQuoteVolume string    `json:"taker_buy_quote_asset_volume"`
}

// ValidationError reports which candle field failed validation and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate checks that the candle is internally consistent: all numeric
// fields parse as decimals, prices are positive, volumes are non-negative,
// the OHLC relationships hold, and the close time follows the open time.
func (c *Candle) Validate() error {
	if c.OpenTime.IsZero() {
		return &ValidationError{Field: "open_time", Message: "open time cannot be zero"}
	}
	if !c.CloseTime.After(c.OpenTime) {
		return &ValidationError{Field: "close_time", Message: "close time must be after open time"}
	}

	open, err := decimal.NewFromString(c.Open)
	if err != nil {
		return &ValidationError{Field: "open", Message: fmt.Sprintf("invalid open price: %v", err)}
	}
	high, err := decimal.NewFromString(c.High)
	if err != nil {
		return &ValidationError{Field: "high", Message: fmt.Sprintf("invalid high price: %v", err)}
	}
	low, err := decimal.NewFromString(c.Low)
	if err != nil {
		return &ValidationError{Field: "low", Message: fmt.Sprintf("invalid low price: %v", err)}
	}
	close, err := decimal.NewFromString(c.Close)
	if err != nil {
		return &ValidationError{Field: "close", Message: fmt.Sprintf("invalid close price: %v", err)}
	}

	for field, v := range map[string]decimal.Decimal{
		"open": open, "high": high, "low": low, "close": close,
	} {
		if v.LessThanOrEqual(decimal.Zero) {
			return &ValidationError{Field: field, Message: field + " price must be greater than 0"}
		}
	}

	for field, s := range map[string]string{
		"volume":                       c.Volume,
		"quote_asset_volume":           c.QuoteAssetVolume,
		"taker_buy_base_asset_volume":  c.TakerBuyBaseVolume,
		"taker_buy_quote_asset_volume": c.TakerBuyQuoteVolume,
	} {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return &ValidationError{Field: field, Message: fmt.Sprintf("invalid decimal: %v", err)}
		}
		if v.LessThan(decimal.Zero) {
			return &ValidationError{Field: field, Message: field + " must be greater than or equal to 0"}
		}
	}

	if high.LessThan(decimal.Max(open, close)) {
		return &ValidationError{Field: "high", Message: "high must be >= max(open, close)"}
	}
	if low.GreaterThan(decimal.Min(open, close)) {
		return &ValidationError{Field: "low", Message: "low must be <= min(open, close)"}
	}
	if c.TradeCount < 0 {
		return &ValidationError{Field: "number_of_trades", Message: "trade count must be >= 0"}
	}

	return nil
}

// Covers reports whether the candle spans a complete interval. The exchange
// closes a kline one millisecond before the next one opens, so a full candle
// satisfies close = open + interval - 1ms. Shorter candles appear around
// listing time and trading halts and are not reliable data points.
func (c *Candle) Covers(interval time.Duration) bool {
	return c.CloseTime.Sub(c.OpenTime) == interval-time.Millisecond
}

func (c *Candle) String() string {
	return fmt.Sprintf("Candle{%s O:%s H:%s L:%s C:%s V:%s}",
		c.OpenTime.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close, c.Volume)
}

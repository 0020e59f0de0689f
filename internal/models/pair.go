package models

import "fmt"

// StatusTrading is the exchange status for pairs that are actively trading.
const StatusTrading = "TRADING"

// Pair identifies one tradable base/quote combination on the exchange.
type Pair struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
	Status     string `json:"status"`
}

// Active reports whether the pair is currently trading. Delisted pairs keep
// their historical data but produce no new candles.
func (p Pair) Active() bool {
	return p.Status == StatusTrading
}

// Slug returns the dashed "BASE-QUOTE" form used in file names and operator
// output, e.g. "DOGE-BTC".
func (p Pair) Slug() string {
	return p.BaseAsset + "-" + p.QuoteAsset
}

// FileName returns the deterministic store file name for the pair.
func (p Pair) FileName() string {
	return p.Slug() + ".parquet"
}

// Validate checks that the pair carries the fields the pipeline relies on.
func (p Pair) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("pair symbol cannot be empty")
	}
	if p.BaseAsset == "" || p.QuoteAsset == "" {
		return fmt.Errorf("pair %s: base and quote assets cannot be empty", p.Symbol)
	}
	return nil
}

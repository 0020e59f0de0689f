package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// candleRow is the on-disk parquet schema, one row per candle. Column names
// and types match the published dataset: timestamps as epoch milliseconds,
// prices and volumes as doubles.
type candleRow struct {
	OpenTime                 int64   `parquet:"open_time"`
	Open                     float64 `parquet:"open"`
	High                     float64 `parquet:"high"`
	Low                      float64 `parquet:"low"`
	Close                    float64 `parquet:"close"`
	Volume                   float64 `parquet:"volume"`
	CloseTime                int64   `parquet:"close_time"`
	QuoteAssetVolume         float64 `parquet:"quote_asset_volume"`
	NumberOfTrades           int64   `parquet:"number_of_trades"`
	TakerBuyBaseAssetVolume  float64 `parquet:"taker_buy_base_asset_volume"`
	TakerBuyQuoteAssetVolume float64 `parquet:"taker_buy_quote_asset_volume"`
}

// ParquetStore keeps one parquet file per trading pair under a single
// directory, named "<BASE>-<QUOTE>.parquet".
type ParquetStore struct {
	dir    string
	logger *slog.Logger
}

// NewParquetStore creates a parquet store rooted at dir, creating the
// directory if needed.
func NewParquetStore(dir string, logger *slog.Logger) (*ParquetStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParquetStore{dir: dir, logger: logger}, nil
}

// LastOpenTime implements the Reader interface. Missing and corrupt files
// both read as "no prior data": the next run refetches from the beginning
// rather than failing the pair.
func (s *ParquetStore) LastOpenTime(ctx context.Context, pair models.Pair) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, newStoreError("read", pair.Slug(), err)
	}

	rows, err := parquet.ReadFile[candleRow](s.path(pair))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("unreadable store file, treating as no prior data",
				"pair", pair.Slug(), "error", err)
		}
		return time.Time{}, nil
	}
	if len(rows) == 0 {
		return time.Time{}, nil
	}

	// Rows are written sorted, but scan anyway; the file may predate us.
	last := rows[0].OpenTime
	for _, r := range rows[1:] {
		if r.OpenTime > last {
			last = r.OpenTime
		}
	}
	return time.UnixMilli(last).UTC(), nil
}

// ReadAll implements the Reader interface.
func (s *ParquetStore) ReadAll(ctx context.Context, pair models.Pair) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, newStoreError("read", pair.Slug(), err)
	}

	rows, err := parquet.ReadFile[candleRow](s.path(pair))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("unreadable store file, treating as empty",
				"pair", pair.Slug(), "error", err)
		}
		return nil, nil
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, r.toCandle())
	}
	return candles, nil
}

// Replace implements the Writer interface. The file is written to a
// temporary sibling and renamed into place, so an interrupted run leaves the
// previous file intact.
func (s *ParquetStore) Replace(ctx context.Context, pair models.Pair, candles []models.Candle) error {
	if err := ctx.Err(); err != nil {
		return newStoreError("write", pair.Slug(), err)
	}

	rows := make([]candleRow, 0, len(candles))
	for _, c := range candles {
		row, err := toRow(c)
		if err != nil {
			return newStoreError("write", pair.Slug(), err)
		}
		rows = append(rows, row)
	}

	path := s.path(pair)
	tmp := path + ".tmp"

	if err := parquet.WriteFile(tmp, rows); err != nil {
		os.Remove(tmp)
		return newStoreError("write", pair.Slug(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return newStoreError("write", pair.Slug(), err)
	}

	s.logger.Debug("replaced store file", "pair", pair.Slug(), "rows", len(rows))
	return nil
}

func (s *ParquetStore) path(pair models.Pair) string {
	return filepath.Join(s.dir, pair.FileName())
}

func toRow(c models.Candle) (candleRow, error) {
	parse := func(field, v string) (float64, error) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", field, v, err)
		}
		return f, nil
	}

	var (
		row candleRow
		err error
	)
	row.OpenTime = c.OpenTime.UnixMilli()
	row.CloseTime = c.CloseTime.UnixMilli()
	row.NumberOfTrades = c.TradeCount
	if row.Open, err = parse("open", c.Open); err != nil {
		return row, err
	}
	if row.High, err = parse("high", c.High); err != nil {
		return row, err
	}
	if row.Low, err = parse("low", c.Low); err != nil {
		return row, err
	}
	if row.Close, err = parse("close", c.Close); err != nil {
		return row, err
	}
	if row.Volume, err = parse("volume", c.Volume); err != nil {
		return row, err
	}
	if row.QuoteAssetVolume, err = parse("quote_asset_volume", c.QuoteAssetVolume); err != nil {
		return row, err
	}
	if row.TakerBuyBaseAssetVolume, err = parse("taker_buy_base_asset_volume", c.TakerBuyBaseVolume); err != nil {
		return row, err
	}
	if row.TakerBuyQuoteAssetVolume, err = parse("taker_buy_quote_asset_volume", c.TakerBuyQuoteVolume); err != nil {
		return row, err
	}
	return row, nil
}

func (r candleRow) toCandle() models.Candle {
	format := func(f float64) string {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return models.Candle{
		OpenTime:            time.UnixMilli(r.OpenTime).UTC(),
		Open:                format(r.Open),
		High:                format(r.High),
		Low:                 format(r.Low),
		Close:               format(r.Close),
		Volume:              format(r.Volume),
		CloseTime:           time.UnixMilli(r.CloseTime).UTC(),
		QuoteAssetVolume:    format(r.QuoteAssetVolume),
		TradeCount:          r.NumberOfTrades,
		TakerBuyBaseVolume:  format(r.TakerBuyBaseAssetVolume),
		TakerBuyQuoteVolume: format(r.TakerBuyQuoteAssetVolume),
	}
}

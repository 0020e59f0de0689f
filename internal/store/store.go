// Package store persists candle history as one columnar file per trading
// pair. It defines the reader/writer interfaces the run loop depends on, a
// parquet-backed implementation for production, and an in-memory
// implementation for tests.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// Reader provides read-only access to a pair's persisted history.
type Reader interface {
	// LastOpenTime returns the open time of the newest stored candle for
	// the pair, or the zero time when no prior data exists. A missing or
	// unreadable file is treated as "no prior data", never as an error.
	LastOpenTime(ctx context.Context, pair models.Pair) (time.Time, error)

	// ReadAll returns every stored candle for the pair in chronological
	// order. A missing file yields an empty slice.
	ReadAll(ctx context.Context, pair models.Pair) ([]models.Candle, error)
}

// Writer replaces a pair's persisted history.
type Writer interface {
	// Replace atomically rewrites the pair's store file with the given
	// candles, which must be sorted by open time with no duplicates.
	// Readers never observe a partially written file.
	Replace(ctx context.Context, pair models.Pair, candles []models.Candle) error
}

// Store combines read and write access to the per-pair history files.
type Store interface {
	Reader
	Writer
}

// StoreError wraps a storage failure with operation context.
type StoreError struct {
	Op   string
	Pair string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Pair != "" {
		return fmt.Sprintf("store %s for %s failed: %v", e.Op, e.Pair, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func newStoreError(op, pair string, err error) *StoreError {
	return &StoreError{Op: op, Pair: pair, Err: err}
}

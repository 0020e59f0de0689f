package store

import (
	"context"
	"sync"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// MemoryStore is a thread-safe in-memory implementation of the Store
// interface. It backs tests and dry runs where no files should be written.
type MemoryStore struct {
	mu      sync.RWMutex
	candles map[string][]models.Candle

	// Failures injected per pair slug, returned by Replace. Tests use this
	// to exercise per-symbol write fault isolation.
	writeErrs map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candles:   make(map[string][]models.Candle),
		writeErrs: make(map[string]error),
	}
}

// LastOpenTime implements the Reader interface.
func (m *MemoryStore) LastOpenTime(ctx context.Context, pair models.Pair) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, newStoreError("read", pair.Slug(), err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.candles[pair.Slug()]
	if len(stored) == 0 {
		return time.Time{}, nil
	}

	last := stored[0].OpenTime
	for _, c := range stored[1:] {
		if c.OpenTime.After(last) {
			last = c.OpenTime
		}
	}
	return last, nil
}

// ReadAll implements the Reader interface.
func (m *MemoryStore) ReadAll(ctx context.Context, pair models.Pair) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, newStoreError("read", pair.Slug(), err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.candles[pair.Slug()]
	out := make([]models.Candle, len(stored))
	copy(out, stored)
	return out, nil
}

// Replace implements the Writer interface.
func (m *MemoryStore) Replace(ctx context.Context, pair models.Pair, candles []models.Candle) error {
	if err := ctx.Err(); err != nil {
		return newStoreError("write", pair.Slug(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErrs[pair.Slug()]; err != nil {
		return newStoreError("write", pair.Slug(), err)
	}

	stored := make([]models.Candle, len(candles))
	copy(stored, candles)
	m.candles[pair.Slug()] = stored
	return nil
}

// FailWrites makes every Replace for the pair return the given error.
func (m *MemoryStore) FailWrites(pair models.Pair, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErrs[pair.Slug()] = err
}

package store

import (
	"sort"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// Merge combines previously stored candles with newly fetched ones into a
// single sequence sorted by open time with no duplicate open times. On a
// duplicate the new candle wins: a refetched candle supersedes what was on
// disk. Merge is pure and does not touch storage, so the invariant it
// maintains is testable without file I/O.
func Merge(old, fresh []models.Candle) []models.Candle {
	merged := make([]models.Candle, 0, len(old)+len(fresh))
	seen := make(map[int64]int, len(old)+len(fresh))

	for _, c := range old {
		key := c.OpenTime.UnixMilli()
		if i, dup := seen[key]; dup {
			merged[i] = c
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range fresh {
		key := c.OpenTime.UnixMilli()
		if i, dup := seen[key]; dup {
			merged[i] = c
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OpenTime.Before(merged[j].OpenTime)
	})
	return merged
}

// Clean filters freshly fetched candles before they are merged. Candles that
// do not span a complete interval are dropped; they show up around listing
// time and trading halts and are not reliable data points. When cutoff is
// non-zero, candles opening at or after it are dropped too, giving every
// pair's file the same end point.
func Clean(candles []models.Candle, interval time.Duration, cutoff time.Time) []models.Candle {
	kept := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !c.Covers(interval) {
			continue
		}
		if !cutoff.IsZero() && !c.OpenTime.Before(cutoff) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// LastMidnightUTC returns the most recent UTC midnight at or before now,
// used as the Clean cutoff when shaving off the current day.
func LastMidnightUTC(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package retriever

import "sync/atomic"

// RunMetrics accumulates counters over one update run. All methods are safe
// for concurrent use even though the run loop itself is sequential.
type RunMetrics struct {
	pairsProcessed int64
	pairsUpToDate  int64
	pairsFailed    int64
	candlesFetched int64
	rowsWritten    int64
}

// MetricsSnapshot is a point-in-time copy of the run counters.
type MetricsSnapshot struct {
	PairsProcessed int64
	PairsUpToDate  int64
	PairsFailed    int64
	CandlesFetched int64
	RowsWritten    int64
}

func (m *RunMetrics) recordProcessed() { atomic.AddInt64(&m.pairsProcessed, 1) }
func (m *RunMetrics) recordUpToDate() { atomic.AddInt64(&m.pairsUpToDate, 1) }
func (m *RunMetrics) recordFailed() { atomic.AddInt64(&m.pairsFailed, 1) }
func (m *RunMetrics) recordFetched(n int) { atomic.AddInt64(&m.candlesFetched, int64(n)) }
func (m *RunMetrics) recordRowsWritten(n int) { atomic.AddInt64(&m.rowsWritten, int64(n)) }

// Snapshot returns a copy of the current counters.
func (m *RunMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		PairsProcessed: atomic.LoadInt64(&m.pairsProcessed),
		PairsUpToDate:  atomic.LoadInt64(&m.pairsUpToDate),
		PairsFailed:    atomic.LoadInt64(&m.pairsFailed),
		CandlesFetched: atomic.LoadInt64(&m.candlesFetched),
		RowsWritten:    atomic.LoadInt64(&m.rowsWritten),
	}
}

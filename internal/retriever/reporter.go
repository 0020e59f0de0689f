package retriever

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/onchainification/candlestick-retriever/internal/models"
)

// Reporter emits the operator-visible progress line for each processed pair.
// It is purely observational; a reporter never influences the run.
type Reporter interface {
	// Progress reports the outcome for one pair: its position in the run,
	// the total pair count, and how many new rows were written. Zero rows
	// means the pair was already up to date.
	Progress(n, total int, pair models.Pair, newRows int)

	// Failure reports a pair whose update could not be completed.
	Failure(n, total int, pair models.Pair, err error)
}

// ConsoleReporter writes one timestamped line per pair, matching the output
// format of the production dataset updates.
type ConsoleReporter struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewConsoleReporter creates a reporter writing to w.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w, now: time.Now}
}

// Progress implements the Reporter interface.
func (r *ConsoleReporter) Progress(n, total int, pair models.Pair, newRows int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if newRows > 0 {
		fmt.Fprintf(r.w, "%s %04d/%d Wrote %d new lines to file for %s\n",
			r.timestamp(), n, total, newRows, pair.Slug())
		return
	}
	fmt.Fprintf(r.w, "%s %04d/%d Already up to date with %s\n",
		r.timestamp(), n, total, pair.Slug())
}

// Failure implements the Reporter interface.
func (r *ConsoleReporter) Failure(n, total int, pair models.Pair, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.w, "%s %04d/%d Failed to update %s: %v\n",
		r.timestamp(), n, total, pair.Slug(), err)
}

func (r *ConsoleReporter) timestamp() string {
	return r.now().Format("2006-01-02 15:04:05")
}

// Package errs provides error classification for the candlestick retriever.
// Errors are sorted into retryable (transient network and server-side
// conditions) and permanent classes; the exchange adapter's retry policy and
// the run loop's fault isolation both key off this classification.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/adshao/go-binance/v2/common"
)

// Class is the coarse classification of an error.
type Class string

const (
	// ClassTransient marks errors worth retrying: connectivity loss,
	// timeouts, rate limiting, and server-side failures.
	ClassTransient Class = "transient"

	// ClassPermanent marks errors where retrying cannot help: bad requests,
	// invalid symbols, cancelled contexts.
	ClassPermanent Class = "permanent"

	// ClassFatal marks errors that should abort the whole run, such as a
	// failed pair enumeration.
	ClassFatal Class = "fatal"
)

// Binance API error codes that indicate a transient server-side condition.
// See the exchange's error code documentation; negative codes are returned in
// the JSON body of non-2xx responses.
const (
	codeUnknown         = -1000
	codeDisconnected    = -1001
	codeTooManyRequests = -1003
	codeTimeout         = -1007
	codeServiceDown     = -1016
)

// SymbolError wraps an error with the trading pair it occurred on, so the run
// loop can report per-symbol failures without losing the cause.
type SymbolError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *SymbolError) Unwrap() error { return e.Err }

// NewSymbolError creates a SymbolError for the given operation and pair.
func NewSymbolError(op, symbol string, err error) *SymbolError {
	return &SymbolError{Symbol: symbol, Op: op, Err: err}
}

// Classify determines the class of an error.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}

	// Cancelled or expired contexts are never retried.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassPermanent
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeUnknown, codeDisconnected, codeTooManyRequests, codeTimeout, codeServiceDown:
			return ClassTransient
		}
		return ClassPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	// Connection-level failures surface as wrapped syscall errors whose text
	// is the only stable signal across platforms.
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"network is unreachable",
		"eof",
	} {
		if strings.Contains(msg, s) {
			return ClassTransient
		}
	}

	return ClassPermanent
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	return Classify(err) == ClassTransient
}

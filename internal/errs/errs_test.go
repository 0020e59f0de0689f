package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassPermanent},
		{"context canceled", context.Canceled, ClassPermanent},
		{"deadline exceeded", context.DeadlineExceeded, ClassPermanent},
		{"wrapped cancellation", fmt.Errorf("fetch: %w", context.Canceled), ClassPermanent},
		{"rate limited", &common.APIError{Code: -1003, Message: "Too many requests."}, ClassTransient},
		{"server disconnected", &common.APIError{Code: -1001, Message: "Internal error."}, ClassTransient},
		{"request timeout", &common.APIError{Code: -1007, Message: "Timeout."}, ClassTransient},
		{"service down", &common.APIError{Code: -1016, Message: "Out of service."}, ClassTransient},
		{"invalid symbol", &common.APIError{Code: -1121, Message: "Invalid symbol."}, ClassPermanent},
		{"bad parameter", &common.APIError{Code: -1102, Message: "Mandatory parameter missing."}, ClassPermanent},
		{"wrapped api error", fmt.Errorf("klines: %w", &common.APIError{Code: -1003}), ClassTransient},
		{"net timeout", timeoutError{}, ClassTransient},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), ClassTransient},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ClassTransient},
		{"dns failure", errors.New("lookup api.binance.com: no such host"), ClassTransient},
		{"unexpected eof", errors.New("unexpected EOF"), ClassTransient},
		{"plain error", errors.New("something unexpected"), ClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&common.APIError{Code: -1003}))
	assert.False(t, IsRetryable(&common.APIError{Code: -1121}))
	assert.False(t, IsRetryable(nil))
}

func TestSymbolError(t *testing.T) {
	cause := &common.APIError{Code: -1121, Message: "Invalid symbol."}
	err := NewSymbolError("fetch", "DOGEBTC", cause)

	assert.Equal(t, "fetch DOGEBTC: <APIError> code=-1121, msg=Invalid symbol.", err.Error())

	var apiErr *common.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int64(-1121), apiErr.Code)
}

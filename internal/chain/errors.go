package chain

import (
	"errors"
	"fmt"
)

// NetworkError wraps transport-level failures (connection refused, timeouts,
// rate limiting). Always transient: the same call may be retried.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RPCError is a JSON-RPC 2.0 error returned by the ledger node. Ledger-side
// refusals are terminal: retrying the identical call cannot succeed.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// IsRetryable reports whether an error is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return false
	}

	// Unclassified errors (context cancellation, marshaling) are not retried.
	return false
}

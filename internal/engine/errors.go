package engine

import "errors"

var (
	// ErrInvalidParameter indicates a malformed intent. Never retried.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInsufficientFunds indicates the spending balance cannot cover the
	// amount plus the estimated fee. Terminal.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAssetNotFound indicates the target asset does not resolve to a
	// bonding curve on the ledger. Terminal.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrRejected indicates the ledger refused the operation. Terminal;
	// wraps the ledger error detail.
	ErrRejected = errors.New("rejected by ledger")

	// ErrExhaustedRetries indicates the retry budget ran out without
	// reaching a terminal ledger state.
	ErrExhaustedRetries = errors.New("exhausted retries")

	// ErrInFlight indicates another execution of the same intent is still
	// in progress.
	ErrInFlight = errors.New("operation already in flight")
)

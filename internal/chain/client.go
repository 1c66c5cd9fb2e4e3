package chain

import (
	"context"

	"solana-trade-engine/internal/domain"
)

// ConfirmationState is the ledger-side view of one submission.
type ConfirmationState string

const (
	// StatePending means the ledger has seen the submission but not
	// finalized it.
	StatePending ConfirmationState = "PENDING"

	// StateConfirmed means the submission finalized without error.
	StateConfirmed ConfirmationState = "CONFIRMED"

	// StateRejected means the submission finalized with a ledger error.
	StateRejected ConfirmationState = "REJECTED"

	// StateUnknown means the ledger has no record of the submission. After a
	// timeout this is the only state that permits resubmission.
	StateUnknown ConfirmationState = "UNKNOWN"
)

// SignatureStatus reports the confirmation state of one submission.
type SignatureStatus struct {
	State ConfirmationState
	Slot  int64
	Err   string // ledger error detail when rejected
}

// Client abstracts submit/confirm/query operations against a remote ledger.
type Client interface {
	// SubmitTransaction hands a signed operation to the ledger and returns
	// its signature. The call is made exactly once; resubmission decisions
	// belong to the caller.
	SubmitTransaction(ctx context.Context, signedTx []byte) (string, error)

	// GetSignatureStatus queries the confirmation state of a submission.
	GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)

	// GetBalance retrieves the quote (lamport) balance of an account.
	GetBalance(ctx context.Context, account string) (uint64, error)

	// EstimateFee returns the current base fee per submission in lamports.
	EstimateFee(ctx context.Context) (uint64, error)

	// GetTokenBalance retrieves the total token balance an owner holds for a
	// mint, summed across token accounts.
	GetTokenBalance(ctx context.Context, owner, mint string) (uint64, error)

	// GetCurveState reads and decodes the bonding curve account for a mint.
	// Returns (nil, nil) when the curve account does not exist.
	GetCurveState(ctx context.Context, curveAddress string) (*domain.BondingCurveState, error)
}

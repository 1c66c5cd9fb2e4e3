package domain

import "time"

// SubmissionStatus is the lifecycle state of one logical operation.
type SubmissionStatus string

const (
	// StatusCreated means the intent hash is reserved in the operation log
	// but no submission has been handed to the ledger yet.
	StatusCreated SubmissionStatus = "CREATED"

	// StatusSubmitted means the operation was handed to the ledger and is
	// awaiting confirmation.
	StatusSubmitted SubmissionStatus = "SUBMITTED"

	// StatusConfirmed is terminal: the ledger finalized the operation.
	StatusConfirmed SubmissionStatus = "CONFIRMED"

	// StatusRejected is terminal: the ledger finalized the operation with an
	// error (slippage floor hit, funds gone at execution time, stale).
	StatusRejected SubmissionStatus = "REJECTED"

	// StatusFailed is terminal: the engine gave up locally (retry budget
	// exhausted or a precondition failure after the hash was reserved).
	StatusFailed SubmissionStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s SubmissionStatus) Terminal() bool {
	switch s {
	case StatusConfirmed, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// SubmissionRecord is the durable record of one logical operation, keyed by
// the intent hash. Owned exclusively by the engine while non-terminal.
type SubmissionRecord struct {
	IntentHash string
	Intent     TradeIntent

	// Signature of the most recent ledger submission, empty before the first
	// successful handoff.
	Signature string

	// ExpectedOut and MinOut are the quoted output and slippage floor carried
	// into the signed operation.
	ExpectedOut uint64
	MinOut      uint64

	Status      SubmissionStatus
	RetryCount  uint32
	LastError   string
	Slot        int64 // finalized slot, zero until confirmed
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// ConfirmationResult reports the outcome of one confirmation wait.
type ConfirmationResult struct {
	Status SubmissionStatus
	Slot   int64
	Err    string
}

// OperationOutcome is what Execute returns to the caller. Exactly one of the
// terminal statuses; Signature and Slot are set when the ledger saw the
// operation.
type OperationOutcome struct {
	IntentHash string
	Status     SubmissionStatus
	Signature  string
	Slot       int64

	// ExpectedOut and MinOut echo the quote the operation was submitted with.
	ExpectedOut uint64
	MinOut      uint64

	// Err carries terminal error detail, empty on confirmation.
	Err string

	// Replayed is true when the outcome was served from the operation log
	// instead of a fresh ledger submission.
	Replayed bool
}

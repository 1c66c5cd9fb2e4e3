package storage

import (
	"context"

	"solana-trade-engine/internal/domain"
)

// OperationLog provides durable, append-mostly access to submission records.
// Insert is a compare-and-insert on intent hash: it is the serialization
// point that makes duplicate intents observable across concurrent callers.
type OperationLog interface {
	// Insert adds a new record. Returns ErrDuplicateKey if intent_hash exists.
	Insert(ctx context.Context, rec *domain.SubmissionRecord) error

	// GetByIntentHash retrieves a record by intent hash. Returns ErrNotFound
	// if not exists.
	GetByIntentHash(ctx context.Context, intentHash string) (*domain.SubmissionRecord, error)

	// Update replaces the mutable fields (status, signature, retry count,
	// last error, slot) of an existing record. Returns ErrNotFound if the
	// record does not exist and ErrTerminalRecord if it already reached a
	// terminal status.
	Update(ctx context.Context, rec *domain.SubmissionRecord) error

	// ListUnresolved retrieves all non-terminal records, ordered by
	// submitted_at ASC. Used for crash recovery and reconciliation.
	ListUnresolved(ctx context.Context) ([]*domain.SubmissionRecord, error)
}

// AuditStore archives terminal operations and observed ledger trade events
// for offline analysis. Append-only; writes are best-effort from the
// caller's point of view (an audit failure never fails the operation).
type AuditStore interface {
	// InsertOperation archives a terminal submission record.
	InsertOperation(ctx context.Context, rec *domain.SubmissionRecord) error

	// InsertEvents archives observed ledger trade events.
	InsertEvents(ctx context.Context, events []*domain.TradeEvent) error
}

package clickhouse

import (
	"context"
	"fmt"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// AuditStore implements storage.AuditStore using ClickHouse. MergeTree does
// not enforce uniqueness; duplicate archive rows are tolerated and collapsed
// at query time by (intent_hash, updated_at) ordering.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// InsertOperation archives a terminal submission record.
func (s *AuditStore) InsertOperation(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.IntentHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO operation_audit (
			intent_hash, account, kind, mint, amount, slippage_bps,
			signature, expected_out, min_out,
			status, retry_count, last_error, slot,
			submitted_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?
		)
	`

	err := s.conn.Exec(ctx, query,
		rec.IntentHash, rec.Intent.Account, string(rec.Intent.Kind), rec.Intent.Mint,
		rec.Intent.Amount, rec.Intent.SlippageBps,
		rec.Signature, rec.ExpectedOut, rec.MinOut,
		string(rec.Status), rec.RetryCount, rec.LastError, uint64(rec.Slot),
		rec.SubmittedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert operation audit row: %w", err)
	}
	return nil
}

// InsertEvents archives observed ledger trade events.
func (s *AuditStore) InsertEvents(ctx context.Context, events []*domain.TradeEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_events (
			signature, slot, mint, account, kind, base_amount, quote_amount, block_time_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Signature, uint64(e.Slot), e.Mint, e.Account, string(e.Kind),
			e.BaseAmount, e.QuoteAmount, uint64(e.BlockTime),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

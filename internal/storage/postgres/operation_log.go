package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// OperationLog implements storage.OperationLog using PostgreSQL. The unique
// constraint on intent_hash is the compare-and-insert dedup point.
type OperationLog struct {
	pool *Pool
}

// NewOperationLog creates a new OperationLog.
func NewOperationLog(pool *Pool) *OperationLog {
	return &OperationLog{pool: pool}
}

// Compile-time interface check.
var _ storage.OperationLog = (*OperationLog)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if intent_hash exists.
func (l *OperationLog) Insert(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.IntentHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO operation_log (
			intent_hash, account, kind, mint, amount, slippage_bps, priority_fee, nonce,
			signature, expected_out, min_out,
			status, retry_count, last_error, slot,
			submitted_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, NOW()
		)
	`

	_, err := l.pool.Exec(ctx, query,
		rec.IntentHash, rec.Intent.Account, string(rec.Intent.Kind), rec.Intent.Mint,
		int64(rec.Intent.Amount), int32(rec.Intent.SlippageBps), int64(rec.Intent.PriorityFee), rec.Intent.Nonce,
		rec.Signature, int64(rec.ExpectedOut), int64(rec.MinOut),
		string(rec.Status), int32(rec.RetryCount), rec.LastError, rec.Slot,
		rec.SubmittedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert operation record: %w", err)
	}
	return nil
}

// GetByIntentHash retrieves a record by intent hash. Returns ErrNotFound if
// not exists.
func (l *OperationLog) GetByIntentHash(ctx context.Context, intentHash string) (*domain.SubmissionRecord, error) {
	query := `
		SELECT
			intent_hash, account, kind, mint, amount, slippage_bps, priority_fee, nonce,
			signature, expected_out, min_out,
			status, retry_count, last_error, slot,
			submitted_at, updated_at
		FROM operation_log
		WHERE intent_hash = $1
	`

	row := l.pool.QueryRow(ctx, query, intentHash)
	rec, err := scanRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get operation record by intent hash: %w", err)
	}
	return rec, nil
}

// Update replaces the mutable fields of an existing record. The status guard
// in the WHERE clause keeps terminal records immutable under concurrency.
func (l *OperationLog) Update(ctx context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.IntentHash == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE operation_log
		SET signature = $2, status = $3, retry_count = $4, last_error = $5,
			slot = $6, expected_out = $7, min_out = $8, updated_at = NOW()
		WHERE intent_hash = $1
		  AND status NOT IN ('CONFIRMED', 'REJECTED', 'FAILED')
	`

	tag, err := l.pool.Exec(ctx, query,
		rec.IntentHash, rec.Signature, string(rec.Status), int32(rec.RetryCount), rec.LastError,
		rec.Slot, int64(rec.ExpectedOut), int64(rec.MinOut),
	)
	if err != nil {
		return fmt.Errorf("update operation record: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// No rows updated: distinguish missing from terminal.
	var exists bool
	err = l.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM operation_log WHERE intent_hash = $1)`,
		rec.IntentHash,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check operation record existence: %w", err)
	}
	if exists {
		return storage.ErrTerminalRecord
	}
	return storage.ErrNotFound
}

// ListUnresolved retrieves all non-terminal records, ordered by submitted_at ASC.
func (l *OperationLog) ListUnresolved(ctx context.Context) ([]*domain.SubmissionRecord, error) {
	query := `
		SELECT
			intent_hash, account, kind, mint, amount, slippage_bps, priority_fee, nonce,
			signature, expected_out, min_out,
			status, retry_count, last_error, slot,
			submitted_at, updated_at
		FROM operation_log
		WHERE status NOT IN ('CONFIRMED', 'REJECTED', 'FAILED')
		ORDER BY submitted_at ASC, intent_hash ASC
	`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list unresolved operation records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// scanRecord scans a single row into a SubmissionRecord.
func scanRecord(row pgx.Row) (*domain.SubmissionRecord, error) {
	var (
		rec                               domain.SubmissionRecord
		kind, status                      string
		amount, priorityFee, expOut, mOut int64
		slippageBps, retryCount           int32
	)

	err := row.Scan(
		&rec.IntentHash, &rec.Intent.Account, &kind, &rec.Intent.Mint,
		&amount, &slippageBps, &priorityFee, &rec.Intent.Nonce,
		&rec.Signature, &expOut, &mOut,
		&status, &retryCount, &rec.LastError, &rec.Slot,
		&rec.SubmittedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Intent.Kind = domain.OperationKind(kind)
	rec.Intent.Amount = uint64(amount)
	rec.Intent.SlippageBps = uint32(slippageBps)
	rec.Intent.PriorityFee = uint64(priorityFee)
	rec.ExpectedOut = uint64(expOut)
	rec.MinOut = uint64(mOut)
	rec.Status = domain.SubmissionStatus(status)
	rec.RetryCount = uint32(retryCount)

	return &rec, nil
}

// scanRecords scans multiple rows into a slice of SubmissionRecord.
func scanRecords(rows pgx.Rows) ([]*domain.SubmissionRecord, error) {
	var records []*domain.SubmissionRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan operation record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operation record rows: %w", err)
	}

	return records, nil
}

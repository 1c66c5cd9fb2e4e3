package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// OperationLog is an in-memory implementation of storage.OperationLog.
type OperationLog struct {
	mu   sync.RWMutex
	data map[string]*domain.SubmissionRecord // keyed by intent_hash
}

// NewOperationLog creates a new in-memory operation log.
func NewOperationLog() *OperationLog {
	return &OperationLog{
		data: make(map[string]*domain.SubmissionRecord),
	}
}

// Compile-time interface check.
var _ storage.OperationLog = (*OperationLog)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if intent_hash exists.
func (l *OperationLog) Insert(_ context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.IntentHash == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.data[rec.IntentHash]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *rec
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	l.data[rec.IntentHash] = &cp
	return nil
}

// GetByIntentHash retrieves a record by intent hash. Returns ErrNotFound if
// not exists.
func (l *OperationLog) GetByIntentHash(_ context.Context, intentHash string) (*domain.SubmissionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, exists := l.data[intentHash]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *rec
	return &cp, nil
}

// Update replaces the mutable fields of an existing record.
func (l *OperationLog) Update(_ context.Context, rec *domain.SubmissionRecord) error {
	if rec == nil || rec.IntentHash == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, exists := l.data[rec.IntentHash]
	if !exists {
		return storage.ErrNotFound
	}
	if existing.Status.Terminal() {
		return storage.ErrTerminalRecord
	}

	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	l.data[rec.IntentHash] = &cp
	return nil
}

// ListUnresolved retrieves all non-terminal records, ordered by submitted_at ASC.
func (l *OperationLog) ListUnresolved(_ context.Context) ([]*domain.SubmissionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*domain.SubmissionRecord
	for _, rec := range l.data {
		if !rec.Status.Terminal() {
			cp := *rec
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.Before(result[j].SubmittedAt)
	})

	return result, nil
}

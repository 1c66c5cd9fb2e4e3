package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

func testRecord(hash string) *domain.SubmissionRecord {
	return &domain.SubmissionRecord{
		IntentHash: hash,
		Intent: domain.TradeIntent{
			Kind:        domain.OpBuy,
			Account:     "acct",
			Mint:        "mint",
			Amount:      1_000_000,
			SlippageBps: 500,
			Nonce:       1,
		},
		Status:      domain.StatusCreated,
		SubmittedAt: time.Now().UTC(),
	}
}

func TestOperationLog_InsertAndGet(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	rec := testRecord("hash1")
	rec.ExpectedOut = 29_971
	rec.MinOut = 28_472

	if err := log.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := log.GetByIntentHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("GetByIntentHash failed: %v", err)
	}

	if got.MinOut != 28_472 {
		t.Errorf("MinOut mismatch: got %d, want %d", got.MinOut, 28_472)
	}
	if got.Status != domain.StatusCreated {
		t.Errorf("Status mismatch: got %s", got.Status)
	}
}

func TestOperationLog_DuplicateKey(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	if err := log.Insert(ctx, testRecord("hash1")); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := log.Insert(ctx, testRecord("hash1"))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestOperationLog_NotFound(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	_, err := log.GetByIntentHash(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	err = log.Update(ctx, testRecord("nonexistent"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
}

func TestOperationLog_Update(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	rec := testRecord("hash1")
	if err := log.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec.Status = domain.StatusSubmitted
	rec.Signature = "sig1"
	rec.RetryCount = 1
	if err := log.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := log.GetByIntentHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("GetByIntentHash failed: %v", err)
	}
	if got.Status != domain.StatusSubmitted || got.Signature != "sig1" || got.RetryCount != 1 {
		t.Errorf("Update not applied: %+v", got)
	}
}

func TestOperationLog_TerminalImmutable(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	rec := testRecord("hash1")
	if err := log.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec.Status = domain.StatusConfirmed
	if err := log.Update(ctx, rec); err != nil {
		t.Fatalf("Update to terminal failed: %v", err)
	}

	rec.Status = domain.StatusFailed
	err := log.Update(ctx, rec)
	if !errors.Is(err, storage.ErrTerminalRecord) {
		t.Errorf("Expected ErrTerminalRecord, got %v", err)
	}
}

func TestOperationLog_ListUnresolved(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	older := testRecord("old")
	older.Status = domain.StatusSubmitted
	older.SubmittedAt = time.Now().UTC().Add(-time.Minute)

	newer := testRecord("new")
	newer.Status = domain.StatusSubmitted

	done := testRecord("done")
	done.Status = domain.StatusConfirmed

	for _, r := range []*domain.SubmissionRecord{newer, older, done} {
		if err := log.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.IntentHash, err)
		}
	}

	got, err := log.ListUnresolved(ctx)
	if err != nil {
		t.Fatalf("ListUnresolved failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 unresolved records, got %d", len(got))
	}
	if got[0].IntentHash != "old" || got[1].IntentHash != "new" {
		t.Errorf("Wrong order: %s, %s", got[0].IntentHash, got[1].IntentHash)
	}
}

func TestOperationLog_InsertCopiesRecord(t *testing.T) {
	log := NewOperationLog()
	ctx := context.Background()

	rec := testRecord("hash1")
	if err := log.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Caller mutation after insert must not leak into the store.
	rec.Status = domain.StatusConfirmed

	got, _ := log.GetByIntentHash(ctx, "hash1")
	if got.Status != domain.StatusCreated {
		t.Errorf("stored record aliased caller memory: %s", got.Status)
	}
}

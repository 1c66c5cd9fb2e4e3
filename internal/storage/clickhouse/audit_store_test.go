package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-trade-engine/internal/domain"
)

func TestAuditStore_InsertOperation(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(conn)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	rec := &domain.SubmissionRecord{
		IntentHash: "audit-hash-001",
		Intent: domain.TradeIntent{
			Kind:        domain.OpBuy,
			Account:     "acct-1",
			Mint:        "mint-1",
			Amount:      1_000_000,
			SlippageBps: 500,
			Nonce:       1700000000000,
		},
		Signature:   "sig-1",
		ExpectedOut: 29_971,
		MinOut:      28_472,
		Status:      domain.StatusConfirmed,
		Slot:        123_456,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	require.NoError(t, store.InsertOperation(ctx, rec))

	var count uint64
	require.NoError(t, conn.QueryRow(ctx,
		"SELECT count() FROM operation_audit WHERE intent_hash = ?", "audit-hash-001",
	).Scan(&count))
	assert.Equal(t, uint64(1), count)
}

func TestAuditStore_InsertEvents(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAuditStore(conn)
	ctx := context.Background()

	events := []*domain.TradeEvent{
		{Signature: "sig-a", Slot: 100, Mint: "mint-1", Account: "acct-1", Kind: domain.OpBuy, BaseAmount: 500, QuoteAmount: 1_000, BlockTime: 1700000000000},
		{Signature: "sig-b", Slot: 101, Mint: "mint-1", Account: "acct-2", Kind: domain.OpSell, BaseAmount: 300, QuoteAmount: 600, BlockTime: 1700000001000},
	}

	require.NoError(t, store.InsertEvents(ctx, events))

	var count uint64
	require.NoError(t, conn.QueryRow(ctx,
		"SELECT count() FROM trade_events WHERE mint = ?", "mint-1",
	).Scan(&count))
	assert.Equal(t, uint64(2), count)
}

func TestAuditStore_InsertEventsEmpty(t *testing.T) {
	store := NewAuditStore(nil)

	// Empty batch must not touch the connection.
	require.NoError(t, store.InsertEvents(context.Background(), nil))
}

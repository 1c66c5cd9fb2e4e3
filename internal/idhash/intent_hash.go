package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-trade-engine/internal/domain"
)

// ComputeIntentHash computes the deterministic idempotency key for an intent
// using SHA256.
// Formula: SHA256(account|kind|mint|amount|slippage_bps|nonce)
// Returns hex-encoded hash (64 characters).
func ComputeIntentHash(i *domain.TradeIntent) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%d",
		i.Account,
		string(i.Kind),
		i.Mint,
		i.Amount,
		i.SlippageBps,
		i.Nonce,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRetryKey derives a fresh submission key for a resubmission attempt.
// A resubmission must not collide with the original submission on the ledger
// side, so the key folds the retry counter into the original intent hash.
// Formula: SHA256(intent_hash|retry_count)
func ComputeRetryKey(intentHash string, retryCount uint32) string {
	data := fmt.Sprintf("%s|%d", intentHash, retryCount)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

package domain

import "fmt"

// OperationKind identifies the logical trade operation.
type OperationKind string

const (
	// OpBuy spends quote (lamports) for base tokens on an existing curve.
	OpBuy OperationKind = "BUY"

	// OpSell spends base tokens for quote on an existing curve.
	OpSell OperationKind = "SELL"

	// OpCreateAndBuy creates a new curve and performs the initial buy.
	OpCreateAndBuy OperationKind = "CREATE_AND_BUY"
)

// MaxSlippageBps is the upper bound of the slippage tolerance range.
const MaxSlippageBps = 10_000

// TradeIntent describes one logical trade operation. Immutable once handed
// to the engine; Nonce distinguishes otherwise-identical intents issued at
// different times.
type TradeIntent struct {
	Kind        OperationKind
	Account     string // base58 wallet address of the spending account
	Mint        string // base58 mint address of the target token
	Amount      uint64 // input amount in smallest units (lamports for BUY)
	SlippageBps uint32 // 0..10000 basis points
	PriorityFee uint64 // optional priority fee hint, lamports
	Nonce       int64  // caller-supplied, typically unix ms at creation
}

// Validate checks intent fields that do not require ledger access.
func (i *TradeIntent) Validate() error {
	switch i.Kind {
	case OpBuy, OpSell, OpCreateAndBuy:
	default:
		return fmt.Errorf("unknown operation kind %q", i.Kind)
	}
	if i.Account == "" {
		return fmt.Errorf("account is required")
	}
	if i.Mint == "" {
		return fmt.Errorf("mint is required")
	}
	if i.Amount == 0 {
		return fmt.Errorf("amount must be positive")
	}
	if i.SlippageBps > MaxSlippageBps {
		return fmt.Errorf("slippage %d bps out of range [0, %d]", i.SlippageBps, MaxSlippageBps)
	}
	return nil
}

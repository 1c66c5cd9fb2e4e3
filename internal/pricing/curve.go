// Package pricing implements constant-product bonding curve quoting.
// All arithmetic is integer-only: the ledger program computes the same
// quantities in u64/u128, and a floor computed with floats could exceed the
// ledger's own value and spuriously reject legitimate trades.
package pricing

import (
	"errors"
	"math/big"

	"solana-trade-engine/internal/domain"
)

// ErrEmptyCurve is returned when a curve has no virtual reserves to quote
// against.
var ErrEmptyCurve = errors.New("bonding curve has empty reserves")

// ErrCurveComplete is returned when quoting against a graduated curve.
var ErrCurveComplete = errors.New("bonding curve is complete")

// QuoteOutput computes the expected output amount for spending inputAmount
// into the curve. Division rounds down, matching the ledger's integer
// semantics; the result is therefore never optimistic.
func QuoteOutput(state *domain.BondingCurveState, inputAmount uint64, dir domain.TradeDirection) (uint64, error) {
	if state == nil || state.VirtualBase == 0 || state.VirtualQuote == 0 {
		return 0, ErrEmptyCurve
	}
	if state.Complete {
		return 0, ErrCurveComplete
	}
	if inputAmount == 0 {
		return 0, nil
	}

	// k = virtualBase * virtualQuote needs 128 bits.
	vBase := new(big.Int).SetUint64(state.VirtualBase)
	vQuote := new(big.Int).SetUint64(state.VirtualQuote)
	k := new(big.Int).Mul(vBase, vQuote)
	in := new(big.Int).SetUint64(inputAmount)

	var out *big.Int
	switch dir {
	case domain.QuoteToBase:
		// out = vBase - k/(vQuote + in)
		newQuote := new(big.Int).Add(vQuote, in)
		out = new(big.Int).Sub(vBase, new(big.Int).Quo(k, newQuote))
	case domain.BaseToQuote:
		// out = vQuote - k/(vBase + in)
		newBase := new(big.Int).Add(vBase, in)
		out = new(big.Int).Sub(vQuote, new(big.Int).Quo(k, newBase))
	default:
		return 0, errors.New("unknown trade direction")
	}

	if out.Sign() < 0 {
		out.SetUint64(0)
	}
	result := out.Uint64()

	// A buy cannot dispense more tokens than the curve actually holds.
	if dir == domain.QuoteToBase && result > state.RealBase {
		result = state.RealBase
	}
	return result, nil
}

// MinAcceptable computes the slippage floor for an expected output:
// floor = expected * (10000 - slippageBps) / 10000, rounded down.
func MinAcceptable(expectedOutput uint64, slippageBps uint32) uint64 {
	if slippageBps >= domain.MaxSlippageBps {
		return 0
	}
	e := new(big.Int).SetUint64(expectedOutput)
	e.Mul(e, big.NewInt(int64(domain.MaxSlippageBps-slippageBps)))
	e.Quo(e, big.NewInt(domain.MaxSlippageBps))
	return e.Uint64()
}

package chain

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"solana-trade-engine/internal/domain"
)

// Bonding curve account layout:
// discriminator(8) | virtual_base(8) | virtual_quote(8) | real_base(8) |
// real_quote(8) | total_supply(8) | complete(1)
// All integers little-endian u64.
const curveAccountSize = 8 + 8*5 + 1

// SPL token account layout: mint(32) | owner(32) | amount(8) | ...
const tokenAmountOffset = 64

// ParseCurveAccount decodes base64 bonding curve account data.
func ParseCurveAccount(data string) (*domain.BondingCurveState, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode curve account data: %w", err)
	}
	if len(decoded) < curveAccountSize {
		return nil, fmt.Errorf("curve account data too short: %d", len(decoded))
	}

	// Skip the 8-byte discriminator.
	buf := decoded[8:]
	state := &domain.BondingCurveState{
		VirtualBase:  binary.LittleEndian.Uint64(buf[0:8]),
		VirtualQuote: binary.LittleEndian.Uint64(buf[8:16]),
		RealBase:     binary.LittleEndian.Uint64(buf[16:24]),
		RealQuote:    binary.LittleEndian.Uint64(buf[24:32]),
		TotalSupply:  binary.LittleEndian.Uint64(buf[32:40]),
		Complete:     buf[40] != 0,
	}
	return state, nil
}

// ParseTokenAccountAmount decodes base64 SPL token account data and returns
// the token amount.
func ParseTokenAccountAmount(data string) (uint64, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode token account data: %w", err)
	}
	if len(decoded) < tokenAmountOffset+8 {
		return 0, fmt.Errorf("token account data too short: %d", len(decoded))
	}
	return binary.LittleEndian.Uint64(decoded[tokenAmountOffset : tokenAmountOffset+8]), nil
}

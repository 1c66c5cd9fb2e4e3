package chain

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// pdaMarker is appended to the hash input when deriving program addresses,
// per the Solana runtime convention.
const pdaMarker = "ProgramDerivedAddress"

// curveSeed is the seed prefix for bonding curve accounts.
const curveSeed = "bonding-curve"

// IsOnCurve reports whether a 32-byte public key is a valid ed25519 curve
// point. Wallet addresses are on-curve; program-derived addresses must not be.
func IsOnCurve(pubkey []byte) bool {
	if len(pubkey) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(pubkey)
	return err == nil
}

// DeriveProgramAddress finds the program-derived address for the given seeds
// and program ID by walking bump seeds downward from 255 until the candidate
// falls off the curve.
func DeriveProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", 0, fmt.Errorf("program id must be 32 bytes, got %d", len(program))
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		candidate := h.Sum(nil)

		if !IsOnCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}

	return "", 0, fmt.Errorf("no valid program address for seeds")
}

// DeriveCurveAddress computes the bonding curve account address for a mint.
func DeriveCurveAddress(mint, programID string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint: %w", err)
	}

	addr, _, err := DeriveProgramAddress([][]byte{[]byte(curveSeed), mintBytes}, programID)
	if err != nil {
		return "", fmt.Errorf("derive curve address for %s: %w", mint, err)
	}
	return addr, nil
}

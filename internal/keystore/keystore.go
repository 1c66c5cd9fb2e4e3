// Package keystore loads signing keys and produces signed operation
// envelopes for ledger submission.
package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mr-tron/base58"
)

var (
	// ErrInvalidKeyFile indicates the keypair file is malformed.
	ErrInvalidKeyFile = errors.New("invalid keypair file")
	// ErrOffCurveKey indicates the public key is not a valid curve point.
	ErrOffCurveKey = errors.New("public key is not on the ed25519 curve")
)

// Keypair holds an ed25519 signing key and its derived address.
type Keypair struct {
	private ed25519.PrivateKey
	address string
}

// Load reads a keypair from a JSON file containing a 64-byte array, the
// standard Solana CLI wallet format. The first 32 bytes are the seed, the
// last 32 the public key.
func Load(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	var bytes []byte
	if err := json.Unmarshal(raw, &bytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if len(bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyFile, ed25519.PrivateKeySize, len(bytes))
	}

	return FromBytes(bytes)
}

// FromBytes constructs a keypair from a raw 64-byte ed25519 private key.
func FromBytes(bytes []byte) (*Keypair, error) {
	if len(bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyFile, ed25519.PrivateKeySize, len(bytes))
	}

	private := ed25519.PrivateKey(bytes)
	public := private.Public().(ed25519.PublicKey)

	// The embedded public key must match the seed. A mismatched file would
	// otherwise produce signatures for a different address.
	derived := ed25519.NewKeyFromSeed(private.Seed())
	if !derived.Public().(ed25519.PublicKey).Equal(public) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeyFile)
	}

	return &Keypair{
		private: private,
		address: base58.Encode(public),
	}, nil
}

// Address returns the base58-encoded public key.
func (k *Keypair) Address() string {
	return k.address
}

// Sign signs the payload and returns a self-contained signed envelope:
// signature(64) | pubkey(32) | payload. Verification needs nothing beyond
// the envelope itself.
func (k *Keypair) Sign(payload []byte) []byte {
	sig := ed25519.Sign(k.private, payload)
	public := k.private.Public().(ed25519.PublicKey)

	envelope := make([]byte, 0, len(sig)+len(public)+len(payload))
	envelope = append(envelope, sig...)
	envelope = append(envelope, public...)
	envelope = append(envelope, payload...)
	return envelope
}

// Verify checks a signed envelope produced by Sign and returns the payload.
func Verify(envelope []byte) ([]byte, error) {
	const headerSize = ed25519.SignatureSize + ed25519.PublicKeySize
	if len(envelope) < headerSize {
		return nil, errors.New("envelope too short")
	}

	sig := envelope[:ed25519.SignatureSize]
	public := ed25519.PublicKey(envelope[ed25519.SignatureSize:headerSize])
	payload := envelope[headerSize:]

	if !ed25519.Verify(public, payload, sig) {
		return nil, errors.New("signature verification failed")
	}
	return payload, nil
}

package domain

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateWalletAddress checks that addr is a plausible Solana wallet
// public key: valid base58, exactly 32 bytes, and on the ed25519 curve.
// Program derived addresses are off-curve by construction and cannot hold
// a user wallet, so they are rejected.
func ValidateWalletAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address must decode to 32 bytes, got %d", len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("address is not on the ed25519 curve")
	}
	return nil
}

// ValidateMintAddress checks that addr decodes to a 32-byte public key.
// Mints may be PDAs, so no curve check is applied.
func ValidateMintAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 mint: %w", err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("mint must decode to 32 bytes, got %d", len(decoded))
	}
	return nil
}

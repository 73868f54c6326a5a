package keyring

import (
	"crypto/rand"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Seed length bounds in bytes.
const (
	MinSeedSize     = 32
	MaxSeedSize     = 252
	DefaultSeedSize = 32
)

// GenerateSeed returns length cryptographically secure random bytes.
// The length must be between MinSeedSize and MaxSeedSize.
func GenerateSeed(length int) ([]byte, error) {
	if length < MinSeedSize || length > MaxSeedSize {
		return nil, fmt.Errorf("%w: seed length must be in [%d, %d] bytes, got %d",
			ErrInvalidSeed, MinSeedSize, MaxSeedSize, length)
	}
	seed := make([]byte, length)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return seed, nil
}

// SeedFromMnemonic derives a 512-bit seed from a BIP-39 mnemonic and
// optional passphrase, for operators restoring an issuer identity from
// a spoken-word backup.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrInvalidSeed)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}

// NewMnemonic generates a fresh 24-word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

package gacha

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var tokenIDMax = new(big.Int).Lsh(big.NewInt(1), 63)

// NewTokenID returns a 63-bit crypto-random token id as a decimal string.
// Uniqueness is ultimately enforced by the storage layer's unique constraint;
// the generator only makes collisions improbable, and the service checks for
// an existing token before minting.
func NewTokenID() (string, error) {
	n, err := rand.Int(rand.Reader, tokenIDMax)
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return n.String(), nil
}

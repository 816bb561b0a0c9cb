package gacha

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// LocalMinter fabricates transaction hashes without touching a chain. It
// stands in for the contract minter in local development and tests.
type LocalMinter struct{}

// NewLocalMinter creates a minter that mints nothing.
func NewLocalMinter() *LocalMinter { return &LocalMinter{} }

func (m *LocalMinter) Mint(_ context.Context, _, tokenID, _, _ string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate local tx hash: %w", err)
	}
	return "0xlocal" + hex.EncodeToString(buf) + tokenID, nil
}

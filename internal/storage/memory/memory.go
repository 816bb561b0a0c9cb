// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/domain/user"
	"github.com/garagemint/garagemint/internal/storage"
)

// Store is the in-memory store.
type Store struct {
	mu          sync.Mutex
	users       map[string]user.User
	carsByToken map[string]car.Car
	carsByOwner map[string][]string
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]user.User),
		carsByToken: make(map[string]car.Car),
		carsByOwner: make(map[string][]string),
	}
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) UpsertUser(_ context.Context, id, wallet string, startingCoins int64) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.users[id]; ok {
		existing.WalletAddress = wallet
		existing.UpdatedAt = now
		s.users[id] = existing
		return existing, nil
	}

	u := user.User{
		ID:            id,
		WalletAddress: wallet,
		Coins:         startingCoins,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.users[id] = u
	return u, nil
}

func (s *Store) GetCarByTokenID(_ context.Context, tokenID string) (car.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carsByToken[tokenID]
	if !ok {
		return car.Car{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCarsByOwner(_ context.Context, ownerID string) ([]car.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.carsByOwner[ownerID]
	result := make([]car.Car, 0, len(tokens))
	for _, token := range tokens {
		result = append(result, s.carsByToken[token])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MintedAt.Before(result[j].MintedAt) })
	return result, nil
}

// SettleDraw applies the debit and the insert under one lock so concurrent
// draws observe the same all-or-nothing semantics as the SQL transaction.
func (s *Store) SettleDraw(_ context.Context, userID string, cost int64, c car.Car) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	if u.Coins < cost {
		return 0, storage.ErrInsufficientFunds
	}
	if _, exists := s.carsByToken[c.TokenID]; exists {
		return 0, storage.ErrDuplicateToken
	}

	now := time.Now().UTC()
	u.Coins -= cost
	u.UpdatedAt = now
	s.users[userID] = u

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.MintedAt.IsZero() {
		c.MintedAt = now
	}
	s.carsByToken[c.TokenID] = c
	s.carsByOwner[c.OwnerID] = append(s.carsByOwner[c.OwnerID], c.TokenID)

	return u.Coins, nil
}

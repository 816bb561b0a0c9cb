// Package storage defines the persistence interfaces for the service.
package storage

import (
	"context"
	"errors"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/domain/user"
)

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientFunds is returned by SettleDraw when the conditional
	// debit guard fails.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDuplicateToken is returned when a car insert violates the token id
	// uniqueness constraint.
	ErrDuplicateToken = errors.New("duplicate token id")
)

// UserStore persists user records.
type UserStore interface {
	GetUser(ctx context.Context, id string) (user.User, error)
	// UpsertUser creates the user with the given starting balance, or
	// refreshes the wallet address of an existing user without touching the
	// balance.
	UpsertUser(ctx context.Context, id, wallet string, startingCoins int64) (user.User, error)
}

// CarStore persists minted car records.
type CarStore interface {
	GetCarByTokenID(ctx context.Context, tokenID string) (car.Car, error)
	ListCarsByOwner(ctx context.Context, ownerID string) ([]car.Car, error)
}

// Settler applies draw settlements atomically: the car insert and the coin
// debit happen together or not at all.
type Settler interface {
	// SettleDraw debits cost from the user's balance if and only if
	// coins >= cost, inserts the car record, and returns the remaining
	// balance. ErrNotFound, ErrInsufficientFunds and ErrDuplicateToken
	// identify the failure mode; any of them rolls the whole unit back.
	SettleDraw(ctx context.Context, userID string, cost int64, c car.Car) (int64, error)
}

// Store is the full persistence surface consumed by the gacha service.
type Store interface {
	UserStore
	CarStore
	Settler
}

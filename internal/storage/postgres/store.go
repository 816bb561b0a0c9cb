// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/domain/user"
	"github.com/garagemint/garagemint/internal/storage"
)

// Store implements the storage interfaces using a database handle.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const uniqueViolation = "23505"

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, wallet_address, coins, created_at, updated_at
		FROM garage_users
		WHERE id = $1
	`, id)

	var u user.User
	if err := row.Scan(&u.ID, &u.WalletAddress, &u.Coins, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpsertUser(ctx context.Context, id, wallet string, startingCoins int64) (user.User, error) {
	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO garage_users (id, wallet_address, coins, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET wallet_address = EXCLUDED.wallet_address, updated_at = EXCLUDED.updated_at
		RETURNING id, wallet_address, coins, created_at, updated_at
	`, id, wallet, startingCoins, now)

	var u user.User
	if err := row.Scan(&u.ID, &u.WalletAddress, &u.Coins, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetCarByTokenID(ctx context.Context, tokenID string) (car.Car, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token_id, owner_id, model_name, series, rarity, mint_tx_hash, minted_at
		FROM garage_cars
		WHERE token_id = $1
	`, tokenID)

	var c car.Car
	if err := row.Scan(&c.ID, &c.TokenID, &c.OwnerID, &c.ModelName, &c.Series, &c.Rarity, &c.MintTxHash, &c.MintedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return car.Car{}, storage.ErrNotFound
		}
		return car.Car{}, err
	}
	return c, nil
}

func (s *Store) ListCarsByOwner(ctx context.Context, ownerID string) ([]car.Car, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_id, owner_id, model_name, series, rarity, mint_tx_hash, minted_at
		FROM garage_cars
		WHERE owner_id = $1
		ORDER BY minted_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []car.Car
	for rows.Next() {
		var c car.Car
		if err := rows.Scan(&c.ID, &c.TokenID, &c.OwnerID, &c.ModelName, &c.Series, &c.Rarity, &c.MintTxHash, &c.MintedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// SettleDraw debits the user's balance and records the car in one
// transaction. The conditional debit doubles as the double-spend guard: two
// concurrent settlements both reach the UPDATE, but only balances still
// covering the cost are debited, whatever the isolation level.
func (s *Store) SettleDraw(ctx context.Context, userID string, cost int64, c car.Car) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE garage_users
		SET coins = coins - $2, updated_at = $3
		WHERE id = $1 AND coins >= $2
		RETURNING coins
	`, userID, cost, time.Now().UTC())

	var remaining int64
	if err := row.Scan(&remaining); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		// Distinguish an unknown user from a failed guard.
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM garage_users WHERE id = $1)
		`, userID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, storage.ErrNotFound
		}
		return 0, storage.ErrInsufficientFunds
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.MintedAt.IsZero() {
		c.MintedAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO garage_cars (id, token_id, owner_id, model_name, series, rarity, mint_tx_hash, minted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.TokenID, c.OwnerID, c.ModelName, c.Series, c.Rarity, c.MintTxHash, c.MintedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return 0, storage.ErrDuplicateToken
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return remaining, nil
}

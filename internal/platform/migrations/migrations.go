// Package migrations applies the database schema in order. Statements are
// idempotent so Apply can run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS garage_users (
		id             TEXT PRIMARY KEY,
		wallet_address TEXT NOT NULL,
		coins          BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS garage_cars (
		id           TEXT PRIMARY KEY,
		token_id     TEXT NOT NULL,
		owner_id     TEXT NOT NULL REFERENCES garage_users(id),
		model_name   TEXT NOT NULL,
		series       TEXT NOT NULL,
		rarity       TEXT NOT NULL,
		mint_tx_hash TEXT NOT NULL,
		minted_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS garage_cars_token_id_idx ON garage_cars (token_id)`,
	`CREATE INDEX IF NOT EXISTS garage_cars_owner_id_idx ON garage_cars (owner_id)`,
}

// Apply executes all migrations against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

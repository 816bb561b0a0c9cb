package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/platform/migrations"
	"github.com/garagemint/garagemint/internal/storage"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	u, err := store.UpsertUser(ctx, "itest-user", "NWallet1", 100)
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if u.Coins != 100 {
		t.Fatalf("starting coins not granted: %d", u.Coins)
	}

	// Upsert again must refresh the wallet without resetting the balance.
	u, err = store.UpsertUser(ctx, "itest-user", "NWallet2", 100)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if u.WalletAddress != "NWallet2" || u.Coins != 100 {
		t.Fatalf("upsert changed balance or missed wallet: %+v", u)
	}

	remaining, err := store.SettleDraw(ctx, "itest-user", 60, car.Car{
		TokenID:    "itest-token-1",
		OwnerID:    "itest-user",
		ModelName:  "Test Model",
		Series:     "Test Series",
		Rarity:     "common",
		MintTxHash: "0xabc",
	})
	if err != nil {
		t.Fatalf("settle draw: %v", err)
	}
	if remaining != 40 {
		t.Fatalf("remaining = %d, want 40", remaining)
	}

	if _, err := store.SettleDraw(ctx, "itest-user", 60, car.Car{
		TokenID: "itest-token-2", OwnerID: "itest-user",
	}); !errors.Is(err, storage.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if _, err := store.SettleDraw(ctx, "itest-user", 10, car.Car{
		TokenID: "itest-token-1", OwnerID: "itest-user",
	}); !errors.Is(err, storage.ErrDuplicateToken) {
		t.Fatalf("expected duplicate token, got %v", err)
	}

	// Duplicate insert must have rolled back its debit.
	u, err = store.GetUser(ctx, "itest-user")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Coins != 40 {
		t.Fatalf("debit not rolled back: %d", u.Coins)
	}

	cars, err := store.ListCarsByOwner(ctx, "itest-user")
	if err != nil {
		t.Fatalf("list cars: %v", err)
	}
	if len(cars) != 1 || cars[0].TokenID != "itest-token-1" {
		t.Fatalf("unexpected cars: %+v", cars)
	}

	if _, err := store.SettleDraw(ctx, "itest-ghost", 1, car.Car{TokenID: "t"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

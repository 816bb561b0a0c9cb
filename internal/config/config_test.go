package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.HTTP.Addr)
	}
	if cfg.Chain.MintTimeout != 90*time.Second {
		t.Errorf("mint timeout = %s, want 90s", cfg.Chain.MintTimeout)
	}
	if cfg.Gacha.CatalogPath != "config/catalog.yaml" {
		t.Errorf("catalog path = %s", cfg.Gacha.CatalogPath)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %s, want info", cfg.Logging.Level)
	}
}

func TestLoadRequiresVerifier(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_PROVIDER_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without a token verifier")
	}
}

func TestLoadChainRequiresContract(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("NEO_RPC_URL", "http://localhost:10332")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for RPC URL without contract hash")
	}

	t.Setenv("CAR_CONTRACT_HASH", "0xabc")
	t.Setenv("CAR_MINTER_ADDRESS", "NMinter")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chain.ContractHash != "0xabc" {
		t.Errorf("contract hash = %s", cfg.Chain.ContractHash)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/garagemint")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("addr = %s", cfg.HTTP.Addr)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/garagemint" {
		t.Errorf("database url = %s", cfg.Store.DatabaseURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
}

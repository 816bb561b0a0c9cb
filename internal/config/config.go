// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the full service configuration, decoded from environment
// variables. A .env file may populate the environment beforehand.
type Config struct {
	HTTP    HTTPConfig
	Auth    AuthConfig
	Store   StoreConfig
	Chain   ChainConfig
	Gacha   GachaConfig
	Logging LoggingConfig
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr              string        `env:"HTTP_ADDR,default=:8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT,default=5s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=15s"`
	AllowedOrigins    []string      `env:"HTTP_ALLOWED_ORIGINS,default=*"`
	RateLimitPerSec   int           `env:"HTTP_RATE_LIMIT_PER_SEC,default=10"`
	RateLimitBurst    int           `env:"HTTP_RATE_LIMIT_BURST,default=20"`
}

// AuthConfig configures token verification. JWTSecret enables local HMAC
// verification; ProviderURL enables the remote fallback.
type AuthConfig struct {
	JWTSecret   string `env:"AUTH_JWT_SECRET"`
	ProviderURL string `env:"AUTH_PROVIDER_URL"`
	ProviderKey string `env:"AUTH_PROVIDER_KEY"`
}

// StoreConfig configures persistence. An empty DatabaseURL selects the
// in-memory store.
type StoreConfig struct {
	DatabaseURL string `env:"DATABASE_URL"`
}

// ChainConfig configures the Neo N3 RPC binding. An empty RPCURL selects the
// local pseudo minter.
type ChainConfig struct {
	RPCURL        string        `env:"NEO_RPC_URL"`
	NetworkID     uint32        `env:"NEO_NETWORK_ID,default=894710606"`
	ContractHash  string        `env:"CAR_CONTRACT_HASH"`
	MinterAddress string        `env:"CAR_MINTER_ADDRESS"`
	MintTimeout   time.Duration `env:"MINT_TIMEOUT,default=90s"`
}

// GachaConfig locates the box catalog.
type GachaConfig struct {
	CatalogPath string `env:"GACHA_CATALOG_PATH,default=config/catalog.yaml"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Load decodes configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces cross-field constraints that envdecode cannot express.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && c.Auth.ProviderURL == "" {
		return fmt.Errorf("either AUTH_JWT_SECRET or AUTH_PROVIDER_URL must be set")
	}
	if c.Chain.RPCURL != "" {
		if c.Chain.ContractHash == "" {
			return fmt.Errorf("CAR_CONTRACT_HASH required when NEO_RPC_URL is set")
		}
		if c.Chain.MinterAddress == "" {
			return fmt.Errorf("CAR_MINTER_ADDRESS required when NEO_RPC_URL is set")
		}
	}
	if c.HTTP.RateLimitPerSec <= 0 {
		return fmt.Errorf("HTTP_RATE_LIMIT_PER_SEC must be positive")
	}
	return nil
}

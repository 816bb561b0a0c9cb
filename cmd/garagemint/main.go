package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/garagemint/garagemint/internal/app"
	"github.com/garagemint/garagemint/internal/app/httpapi"
	"github.com/garagemint/garagemint/internal/chain"
	"github.com/garagemint/garagemint/internal/config"
	"github.com/garagemint/garagemint/internal/gacha"
	"github.com/garagemint/garagemint/internal/httputil"
	"github.com/garagemint/garagemint/internal/logging"
	"github.com/garagemint/garagemint/internal/middleware"
	"github.com/garagemint/garagemint/internal/platform/migrations"
	"github.com/garagemint/garagemint/internal/storage"
	"github.com/garagemint/garagemint/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("garagemint", cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("service exited with error")
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	catalog, err := gacha.LoadCatalog(cfg.Gacha.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"boxes":   len(catalog.Boxes),
		"catalog": cfg.Gacha.CatalogPath,
	}).Info("catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	minter, err := buildMinter(cfg, log)
	if err != nil {
		return err
	}

	application, err := app.New(app.Options{
		Store:   store,
		Catalog: catalog,
		Minter:  minter,
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if minter != nil {
		application.Gacha.WithMintTimeout(cfg.Chain.MintTimeout)
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	handler := buildHandler(cfg, log, application)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}

	log.Info("shutdown complete")
	return nil
}

// buildStore selects postgres when DATABASE_URL is set, the in-memory store
// otherwise. A nil store makes the application default to memory.
func buildStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (storage.Store, *sql.DB, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, nil
	}

	db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	log.Info("postgres store ready")
	return postgres.New(db), db, nil
}

// buildMinter binds the chain minter when an RPC URL is configured.
func buildMinter(cfg *config.Config, log *logging.Logger) (gacha.Minter, error) {
	if cfg.Chain.RPCURL == "" {
		return nil, nil
	}

	client, err := chain.NewClient(chain.Config{
		RPCURL:    cfg.Chain.RPCURL,
		NetworkID: cfg.Chain.NetworkID,
	})
	if err != nil {
		return nil, fmt.Errorf("chain client: %w", err)
	}

	minter, err := chain.NewCarMinter(client, chain.MinterConfig{
		ContractHash:  cfg.Chain.ContractHash,
		MinterAddress: cfg.Chain.MinterAddress,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("car minter: %w", err)
	}

	log.WithField("contract", cfg.Chain.ContractHash).Info("chain minter ready")
	return minter, nil
}

// buildHandler assembles the middleware chain around the API handler.
func buildHandler(cfg *config.Config, log *logging.Logger, application *app.Application) http.Handler {
	var provider *httputil.AuthClient
	if cfg.Auth.ProviderURL != "" {
		p, err := httputil.NewAuthClient(httputil.AuthClientConfig{
			BaseURL: cfg.Auth.ProviderURL,
			APIKey:  cfg.Auth.ProviderKey,
		})
		if err != nil {
			log.WithError(err).Warn("auth provider client disabled")
		} else {
			provider = p
		}
	}

	auth := middleware.NewAuthMiddleware([]byte(cfg.Auth.JWTSecret), provider, log, []string{"/healthz", "/metrics"})
	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitPerSec, cfg.HTTP.RateLimitBurst, log)
	cors := middleware.NewCORSMiddleware(cfg.HTTP.AllowedOrigins)

	handler := httpapi.NewHandler(application)
	chained := limiter.Handler(handler)
	chained = auth.Handler(chained)
	chained = cors.Handler(chained)
	chained = middleware.Metrics(chained)
	chained = middleware.Logging(log)(chained)
	return chained
}

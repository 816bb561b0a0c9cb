package app

import (
	"context"
	"fmt"

	"github.com/garagemint/garagemint/internal/app/system"
	"github.com/garagemint/garagemint/internal/gacha"
	"github.com/garagemint/garagemint/internal/logging"
	"github.com/garagemint/garagemint/internal/storage"
	"github.com/garagemint/garagemint/internal/storage/memory"
)

// Options holds the application's injectable dependencies. Nil values fall
// back to local implementations: the in-memory store and the local minter.
type Options struct {
	Store   storage.Store
	Catalog *gacha.Catalog
	Minter  gacha.Minter
	Log     *logging.Logger
}

// Application ties the gacha service and its lifecycle-managed components
// together.
type Application struct {
	manager *system.Manager
	log     *logging.Logger

	Gacha   *gacha.Service
	Retrier *gacha.SettlementRetrier
}

// New builds a fully initialised application.
func New(opts Options) (*Application, error) {
	log := opts.Log
	if log == nil {
		log = logging.NewDefault("app")
	}

	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}

	store := opts.Store
	if store == nil {
		log.Warn("no store configured; using in-memory storage")
		store = memory.New()
	}

	minter := opts.Minter
	if minter == nil {
		log.Warn("no minter configured; using local pseudo minter")
		minter = gacha.NewLocalMinter()
	}

	manager := system.NewManager()

	service := gacha.New(store, opts.Catalog, minter, log)
	retrier := gacha.NewSettlementRetrier(store, log)
	service.AttachRetrier(retrier)

	if err := manager.Register(system.NoopService{ServiceName: "gacha"}); err != nil {
		return nil, fmt.Errorf("register gacha service: %w", err)
	}
	if err := manager.Register(retrier); err != nil {
		return nil, fmt.Errorf("register %s: %w", retrier.Name(), err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Gacha:   service,
		Retrier: retrier,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

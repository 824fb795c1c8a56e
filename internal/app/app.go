package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/webauth/internal/bridge"
	httpapi "github.com/aussiebroadwan/webauth/internal/bridge/http"
	"github.com/aussiebroadwan/webauth/internal/metrics"
	"github.com/aussiebroadwan/webauth/internal/service"
	"github.com/aussiebroadwan/webauth/internal/store"
	"github.com/aussiebroadwan/webauth/internal/store/drivers/file"
	"github.com/aussiebroadwan/webauth/internal/store/drivers/keyring"
	"github.com/aussiebroadwan/webauth/internal/store/drivers/sqlite"
	"github.com/aussiebroadwan/webauth/internal/surface"
	"github.com/aussiebroadwan/webauth/internal/surface/browser"
	"github.com/aussiebroadwan/webauth/internal/surface/headless"
	"github.com/aussiebroadwan/webauth/pkg/cryptox"
	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application is the host bridge daemon with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store // nil for the memory store
	tokens  identity.TokenStore
	purger  service.ExpiredTokenPurger
	surface identity.Surface

	metrics             *metrics.Metrics
	registry            *identity.Registry
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// Option customises New.
type Option func(*Application)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// WithSurface replaces the surface selected by Config.Surface.
func WithSurface(s identity.Surface) Option {
	return func(a *Application) { a.surface = s }
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{cfg: cfg}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "webauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if app.surface == nil {
		app.surface = app.newSurface()
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the bridge's HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Bridge returns a bridge over the application's registry, for in-process
// callers such as the CLI.
func (app *Application) Bridge() *bridge.Bridge { return bridge.New(app.registry, app.logger) }

// PurgeExpired removes expired tokens from the store once.
func (app *Application) PurgeExpired(ctx context.Context) (int64, error) {
	return app.purger.DeleteExpiredTokens(ctx, time.Now())
}

// Close releases the token store without serving. Use it when Run was
// never called.
func (app *Application) Close() error { return app.closeStore() }

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (app *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.cfg.Addr, err)
	}

	app.housekeepingService.Start()
	app.logger.Info("webauth bridge starting", "addr", ln.Addr().String(), "store", app.cfg.Store, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.closeStore()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	}

	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down webauth bridge...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeStore(); err != nil {
		return err
	}

	app.logger.Info("webauth bridge stopped")
	return nil
}

func (app *Application) closeStore() error {
	if app.db == nil {
		return nil
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing token store", "error", err)
		return err
	}
	return nil
}

// initStore opens the configured token store and wraps persistent drivers
// in a sealing adapter.
func (app *Application) initStore() error {
	var keyStore *keyring.Store

	switch app.cfg.Store {
	case StoreMemory:
		mem := identity.NewMemoryTokenStore()
		app.tokens, app.purger = mem, mem
		app.logger.Info("using in-memory token store")
		return nil

	case StoreSQLite:
		db, err := sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.logger.Info("database migrations applied successfully")
		app.db = db

	case StoreFile:
		db, err := file.NewStore(app.cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("failed to open token file: %w", err)
		}
		app.db = db

	case StoreKeyring:
		keyStore = keyring.NewStore(app.cfg.KeyringService)
		app.db = keyStore
	}

	sealer, err := app.loadSealer(keyStore)
	if err != nil {
		_ = app.db.Close()
		return err
	}

	adapter := store.NewTokenStoreAdapter(app.db, sealer, app.logger)
	app.tokens, app.purger = adapter, adapter
	return nil
}

func (app *Application) loadSealer(keyStore *keyring.Store) (*cryptox.Sealer, error) {
	if keyStore != nil && app.cfg.MasterKey == "" && app.cfg.MasterKeyPath == "" {
		material, err := keyStore.MasterKey()
		if err != nil {
			return nil, fmt.Errorf("failed to load master key from keyring: %w", err)
		}
		return cryptox.NewSealer(material)
	}

	if app.cfg.MasterKey == "" && app.cfg.MasterKeyPath == "" {
		app.logger.Warn("no master key configured, cached tokens will not survive a restart")
	}
	sealer, err := cryptox.LoadSealer(app.cfg.MasterKey, app.cfg.MasterKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return sealer, nil
}

func (app *Application) newSurface() identity.Surface {
	hidden := &headless.Surface{Logger: app.logger.With("surface", "headless")}
	if app.cfg.Surface == SurfaceHeadless {
		return surface.Split{Hidden: hidden}
	}
	return surface.Split{
		Visible: &browser.Surface{
			Input:  os.Stdin,
			Prompt: os.Stderr,
			Logger: app.logger.With("surface", "browser"),
		},
		Hidden: hidden,
	}
}

func (app *Application) initServices() {
	app.metrics = metrics.New()
	app.registry = identity.NewRegistry(app.tokens, app.surface,
		identity.WithLogger(app.logger),
		identity.WithObserver(app.metrics),
		identity.WithNonInteractiveTimeout(app.cfg.NonInteractiveTimeout),
		identity.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)

	app.housekeepingService = service.NewHousekeepingService(
		app.purger,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(bridge.New(app.registry, app.logger), BuildVersion, app.logger)
	if app.db != nil {
		router.Store = app.db
	}
	router.Metrics = app.metrics.Handler()
	router.BridgeToken = app.cfg.BridgeToken
	router.TokenLimit = app.cfg.TokenLimit()
	router.ApplyRoutes()

	app.router = router

	// No write timeout: token operations block while the user signs in.
	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

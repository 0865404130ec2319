// Package app wires the token subsystem together: config, logging, the
// sqlite store, the revocation cache, metrics, and the service layer.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ledgerline/shopauth/internal/token/cache"
	"github.com/ledgerline/shopauth/internal/token/keysource"
	"github.com/ledgerline/shopauth/internal/token/metrics"
	"github.com/ledgerline/shopauth/internal/token/service"
	"github.com/ledgerline/shopauth/internal/token/store"
	"github.com/ledgerline/shopauth/internal/token/store/drivers/sqlite"
	"github.com/ledgerline/shopauth/pkg/limitx"
	"github.com/ledgerline/shopauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns every long-lived component of the token subsystem.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	cache    cache.Client
	registry *prometheus.Registry
	recorder metrics.Recorder

	keys      *service.KeyStore
	builder   *service.ClaimsBuilder
	codec     *service.TokenCodec
	ledger    *service.RevocationLedger
	validator *service.TokenValidator
	metadata  *service.MetadataCache
	users     *service.UserService
	flows     *service.AuthFlows

	housekeeping *service.HousekeepingService
}

// New builds a fully wired Application. Key material is loaded lazily on
// first use; everything else is initialized here so misconfiguration
// surfaces at startup.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "shopauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initMetrics()
	app.initServices()

	return app, nil
}

// Start launches the background workers. Non-blocking.
func (app *Application) Start() {
	app.housekeeping.Start()
	app.logger.Info("token subsystem started", "version", BuildVersion)
}

// Run starts the application and blocks until a shutdown signal arrives.
func (app *Application) Run() error {
	app.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	app.logger.Info("shutdown signal received", "signal", sig)

	return app.Shutdown()
}

// Shutdown stops background workers and releases resources.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down token subsystem...")

	app.housekeeping.Stop()
	app.metadata.Stop()

	if err := app.cache.Close(); err != nil {
		app.logger.Error("error closing cache", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("token subsystem stopped")
	return nil
}

func (app *Application) Logger() *slog.Logger                  { return app.logger }
func (app *Application) Store() store.Store                    { return app.db }
func (app *Application) Registry() *prometheus.Registry        { return app.registry }
func (app *Application) Users() *service.UserService           { return app.users }
func (app *Application) Flows() *service.AuthFlows             { return app.flows }
func (app *Application) Validator() *service.TokenValidator    { return app.validator }
func (app *Application) Codec() *service.TokenCodec            { return app.codec }
func (app *Application) Ledger() *service.RevocationLedger     { return app.ledger }
func (app *Application) MetadataCache() *service.MetadataCache { return app.metadata }

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initCache() error {
	if app.cfg.RedisAddr == "" {
		app.cache = cache.NewMemoryClient()
		app.logger.Info("revocation cache: in-process")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.NewRedisClient(ctx,
		app.cfg.RedisAddr, app.cfg.RedisPassword, app.cfg.RedisDB, app.cfg.CacheKeyPrefix)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.cache = client
	app.logger.Info("revocation cache: redis", "addr", app.cfg.RedisAddr)
	return nil
}

func (app *Application) initMetrics() {
	if !app.cfg.MetricsEnabled {
		app.recorder = metrics.Noop{}
		return
	}

	app.registry = prometheus.NewRegistry()
	rec, err := metrics.NewPrometheusRecorder(app.registry)
	if err != nil {
		app.logger.Error("failed to register prometheus collectors", "error", err)
		app.recorder = metrics.Noop{}
		return
	}
	app.recorder = rec
}

func (app *Application) initServices() {
	app.keys = service.NewKeyStore(keysource.NewEnvSource(), app.logger)

	app.builder = &service.ClaimsBuilder{
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Audience,
		Clock:    time.Now,
		Caller:   service.ContextCaller{},
		Scopes:   service.StoreScopeSource{Users: app.db.Users()},
		Keys:     app.keys,
	}

	app.codec = &service.TokenCodec{
		Keys:            app.keys,
		Claims:          app.builder,
		RefreshTokens:   app.db.RefreshTokens(),
		Metrics:         app.recorder,
		RefreshValidity: app.cfg.RefreshTTL,
	}

	app.ledger = &service.RevocationLedger{
		Store:   app.db.RevokedTokens(),
		Cache:   app.cache,
		Metrics: app.recorder,
		TTL:     app.cfg.RevocationTTL,
	}

	app.validator = &service.TokenValidator{
		Keys:          app.keys,
		Ledger:        app.ledger,
		Users:         app.db.Users(),
		RefreshTokens: app.db.RefreshTokens(),
		Caller:        service.ContextCaller{},
		Limiter:       limitx.New(limitx.ParseConfigFromEnv("VALIDATE", limitx.LenientLimit)),
		Metrics:       app.recorder,
		Issuer:        app.cfg.Issuer,
		Audience:      app.cfg.Audience,
		ClockSkew:     app.cfg.ClockSkew,
	}

	app.metadata = service.NewMetadataCache(app.validator, app.recorder, app.cfg.MetadataTTL)
	app.users = &service.UserService{Store: app.db}

	app.flows = &service.AuthFlows{
		Users:          app.users,
		Builder:        app.builder,
		Codec:          app.codec,
		Validator:      app.validator,
		Ledger:         app.ledger,
		Store:          app.db,
		AccessValidity: app.cfg.AccessTTL,
		PublicAccess:   app.cfg.PublicAccess,
	}

	app.housekeeping = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RevocationRetention,
	)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/techauth/internal/auth/http"
	"github.com/aussiebroadwan/techauth/internal/auth/notify"
	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/techauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/techauth/internal/auth/store/sqldb"
	"github.com/aussiebroadwan/techauth/internal/auth/tracing"
	"github.com/aussiebroadwan/techauth/pkg/cryptox"
	"github.com/aussiebroadwan/techauth/pkg/jwtx"
	"github.com/aussiebroadwan/techauth/pkg/slogx"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "techauth"

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       *sqldb.Store
	hasher   *cryptox.Hasher
	codec    *jwtx.Codec
	notifier notify.Notifier
	redis    *redis.Client // nil unless AUTH_NOTIFIER=redis
	linkFor  func(key string) string

	// Services
	projectService      *service.ProjectService
	accountService      *service.AccountService
	sessionService      *service.SessionService
	invitationService   *service.InvitationService
	provisioningService *service.ProvisioningService
	housekeepingService *service.HousekeepingService

	shutdownTracing func(context.Context) error

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, app.logger, serviceName, BuildVersion, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdownTracing = shutdownTracing

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCrypto(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initNotifier(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"notifier", app.cfg.Notifier,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error("error flushing traces", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// OpenStore opens the configured driver and applies migrations.
func OpenStore(driver, file, databaseURL string) (*sqldb.Store, error) {
	var (
		db  *sqldb.Store
		err error
	)
	switch driver {
	case "postgres":
		db, err = postgres.NewStore(databaseURL)
	default:
		db, err = sqlite.NewStore(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", file))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg.DatabaseDriver, app.cfg.DatabaseFile, app.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initCrypto loads the password pepper and builds the token codec
func (app *Application) initCrypto() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.NewHasher(pepper)

	codec, err := jwtx.NewCodec(jwtx.CodecConfig{
		Issuer:        app.cfg.Issuer,
		AccessSecret:  app.cfg.AccessSecret,
		RefreshSecret: app.cfg.RefreshSecret,
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec
	return nil
}

// initNotifier picks the delivery channel for outbound messages
func (app *Application) initNotifier(ctx context.Context) error {
	renderer, err := notify.NewRenderer(notify.RendererConfig{
		AppName:     app.cfg.AppName,
		AppURL:      app.cfg.AppURL,
		FrontendURL: app.cfg.FrontendURL,
	})
	if err != nil {
		return fmt.Errorf("failed to load notification templates: %w", err)
	}

	var n notify.Notifier
	switch app.cfg.Notifier {
	case "redis":
		client, err := notify.NewRedisClient(ctx, app.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redis = client
		n = notify.NewRedisNotifier(renderer, client, app.cfg.NotifyQueue, app.cfg.EmailFrom)
	case "smtp":
		n = notify.NewSMTPNotifier(renderer, notify.SMTPConfig{
			Host:     app.cfg.SMTP.Host,
			Port:     app.cfg.SMTP.Port,
			Username: app.cfg.SMTP.Username,
			Password: app.cfg.SMTP.Password,
			From:     app.cfg.EmailFrom,
			FromName: app.cfg.SMTP.FromName,
		})
	default:
		n = notify.NewLogNotifier(renderer, app.logger)
	}

	app.notifier = notify.Instrument(n)
	app.linkFor = renderer.InvitationLink
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.projectService = &service.ProjectService{
		Store:  app.db,
		Hasher: app.hasher,
	}

	app.accountService = &service.AccountService{
		Store:             app.db,
		Hasher:            app.hasher,
		Notifier:          app.notifier,
		Projects:          app.projectService,
		BootstrapSentinel: app.cfg.BootstrapSentinel,
	}
	if app.cfg.BootstrapSentinel != "" {
		app.logger.Info("bootstrap sentinel configured; the first registration may claim global admin")
	}

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Hasher:     app.hasher,
		Codec:      app.codec,
		Projects:   app.projectService,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.invitationService = &service.InvitationService{
		Store:    app.db,
		Notifier: app.notifier,
		LinkFor:  app.linkFor,
	}

	app.provisioningService = &service.ProvisioningService{
		Store:    app.db,
		Hasher:   app.hasher,
		Notifier: app.notifier,
		Projects: app.projectService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.HousekeepingRetention,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)

	router.AccountService = app.accountService
	router.SessionService = app.sessionService
	router.InvitationService = app.invitationService
	router.ProvisioningService = app.provisioningService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr(),
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 3 * time.Second,
	}
}

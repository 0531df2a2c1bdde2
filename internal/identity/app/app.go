package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/expohall/expohall/internal/identity/http"
	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/internal/identity/store/drivers/sqlite"
	"github.com/expohall/expohall/pkg/cryptox"
	"github.com/expohall/expohall/pkg/jwtx"
	"github.com/expohall/expohall/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	verifier jwtx.Verifier // nil when federated login is not configured

	sessionService      *service.SessionService
	accountService      *service.AccountService
	twoFactorService    *service.TwoFactorService
	resolver            *service.Resolver
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initVerifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase opens the store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initVerifier loads the identity provider's public key, when configured.
func (app *Application) initVerifier() error {
	if !app.cfg.OAuthEnabled() {
		app.logger.Info("federated login disabled, no OAuth issuer configured")
		return nil
	}

	verifier, err := jwtx.NewPublicKeyVerifierFromFile(
		app.cfg.OAuthPublicKeyFile,
		app.cfg.OAuthIssuer,
		app.cfg.OAuthAudience,
	)
	if err != nil {
		return fmt.Errorf("failed to load OAuth public key: %w", err)
	}
	app.verifier = verifier

	app.logger.Info("federated login enabled", "issuer", app.cfg.OAuthIssuer)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.sessionService = service.NewSessionService(app.db, app.cfg.AccessTTL, app.cfg.RefreshTTL)

	app.accountService = &service.AccountService{
		Store:    app.db,
		Sessions: app.sessionService,
	}

	app.twoFactorService = &service.TwoFactorService{
		Store:  app.db,
		Vault:  &service.Vault{Store: app.db},
		Audit:  &service.SlogAudit{Logger: app.logger},
		Issuer: app.cfg.Issuer,
	}

	app.resolver = service.NewResolver(
		app.db,
		app.sessionService,
		service.NewAuthorizer(service.DefaultHierarchy()),
	)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger, BuildVersion)

	router.Resolver = app.resolver
	router.Accounts = app.accountService
	router.Sessions = app.sessionService
	router.TwoFactor = app.twoFactorService
	router.AssertionVerifier = app.verifier
	router.Cookies = httpapi.CookieConfig{
		Domain: app.cfg.CookieDomain,
		Secure: app.cfg.CookieSecure,
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

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

	httpapi "github.com/shelfmark/shelfmark/internal/auth/http"
	"github.com/shelfmark/shelfmark/internal/auth/service"
	"github.com/shelfmark/shelfmark/internal/auth/store"
	"github.com/shelfmark/shelfmark/internal/auth/store/drivers/sqlite"
	"github.com/shelfmark/shelfmark/internal/auth/token"
	"github.com/shelfmark/shelfmark/pkg/httpx"
	"github.com/shelfmark/shelfmark/pkg/jwtx"
	"github.com/shelfmark/shelfmark/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg              Config
	logger           *slog.Logger
	identityVerifier service.IdentityVerifier

	db     store.Store
	codec  *jwtx.HS256Codec
	events *token.Dispatcher

	revoked *token.RevocationStore
	refresh *token.RefreshTokenStore

	issuer   *token.Issuer
	verifier *token.Verifier
	advisor  *token.Advisor
	tracker  *token.Tracker

	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
// identityVerifier is the external credential-verification collaborator;
// pass nil to accept locally-signed tokens only.
func New(cfg Config, identityVerifier service.IdentityVerifier) (*Application, error) {
	app := &Application{
		cfg:              cfg,
		identityVerifier: identityVerifier,
		logger: slogx.New(slogx.Config{
			Service: "shelfmark",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	codec, err := jwtx.NewHS256([]byte(cfg.Secret), cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, fmt.Errorf("configure claims codec: %w", err)
	}
	app.codec = codec

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initTokenEngine()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("shelfmark starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down shelfmark...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// Drain buffered security events before losing them.
	app.events.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("shelfmark stopped")
	return nil
}

// initDatabase opens the principal store and applies migrations.
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

// initTokenEngine wires the credential lifecycle components.
func (app *Application) initTokenEngine() {
	app.events = token.NewDispatcher(app.cfg.EventBufferSize, token.SlogSink{Logger: app.logger})

	app.revoked = token.NewRevocationStore(app.cfg.RevocationRetention)
	app.refresh = token.NewRefreshTokenStore(app.cfg.RefreshTokenTTL)

	app.issuer = token.NewIssuer(
		app.codec, app.refresh,
		app.cfg.Issuer, app.cfg.Audience,
		app.cfg.AccessTokenTTL, app.cfg.RefreshTokenTTL,
	)
	app.verifier = token.NewVerifier(app.codec, app.revoked, app.cfg.MaxTokenAge)
	app.advisor = token.NewAdvisor(
		app.issuer, app.revoked, app.events, app.logger,
		app.cfg.RotationWindow, app.cfg.RotationGrace,
	)
	app.tracker = token.NewTracker(
		app.db.Principals(), app.events, app.logger,
		app.cfg.ReactivationWindow,
	)
}

// initServices wires the orchestration layer.
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:      app.db,
		Issuer:     app.issuer,
		Verifier:   app.verifier,
		Refresh:    app.refresh,
		Revoked:    app.revoked,
		Events:     app.events,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.refresh, app.revoked, app.logger, app.cfg.HousekeepingInterval,
	)
}

// initHTTP wires the router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger)
	router.AuthService = app.authService
	router.Advisor = app.advisor
	router.Tracker = app.tracker
	router.Authenticators = app.authenticators(app.identityVerifier)
	router.LoginLimit = httpx.RateLimitConfig{
		RequestsPerWindow: app.cfg.LoginRatePerMinute,
		Window:            time.Minute,
		Burst:             app.cfg.LoginRateBurst,
	}
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}

// authenticators builds the priority-ordered chain: external identity
// first when a verifier is configured, then locally-signed credentials.
func (app *Application) authenticators(identityVerifier service.IdentityVerifier) service.Chain {
	var chain service.Chain
	if identityVerifier != nil {
		chain = append(chain, &service.ExternalIdentityAuthenticator{
			Verifier: identityVerifier,
			Store:    app.db,
		})
	}
	chain = append(chain, &service.LocalCredentialAuthenticator{Verifier: app.verifier})
	return chain
}

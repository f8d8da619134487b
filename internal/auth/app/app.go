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

	httpapi "github.com/copperlane/gatehouse/internal/auth/http"
	"github.com/copperlane/gatehouse/internal/auth/mail"
	"github.com/copperlane/gatehouse/internal/auth/metrics"
	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/internal/auth/store"
	"github.com/copperlane/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/copperlane/gatehouse/pkg/jwtx"
	"github.com/copperlane/gatehouse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db        store.Store
	mailer    mail.Mailer
	collector *metrics.Collector

	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initMailer(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.collector = metrics.NewCollector()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

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

	app.logger.Info("gatehouse stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
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

// initMailer picks SMTP when configured, otherwise emails are logged. The
// log fallback keeps local development working without a mail server, but
// note that password reset responses depend on delivery succeeding.
func (app *Application) initMailer() error {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		app.mailer = &mail.LogMailer{Logger: app.logger}
		return nil
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.MailFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize SMTP mailer: %w", err)
	}
	app.mailer = mailer
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	accessCodec := &jwtx.Codec{
		Secret:   []byte(app.cfg.JWTSecret),
		Issuer:   app.cfg.JWTIssuer,
		Audience: jwtx.DefaultAudience,
		TTL:      app.cfg.AccessTokenTTL,
	}
	refreshCodec := &jwtx.Codec{
		Secret:   []byte(app.cfg.JWTRefreshSecret),
		Issuer:   app.cfg.JWTIssuer,
		Audience: jwtx.DefaultAudience,
		TTL:      app.cfg.RefreshTokenTTL,
	}

	app.authService = &service.AuthService{
		Store:        app.db,
		Mailer:       app.mailer,
		Metrics:      app.collector,
		AccessCodec:  accessCodec,
		RefreshCodec: refreshCodec,
		AppOrigin:    app.cfg.AppOrigin,
		SessionTTL:   app.cfg.RefreshTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.authService.AccessCodec,
		app.cfg.AccessTokenTTL,
		app.cfg.RefreshTokenTTL,
		BuildVersion,
		app.db,
		app.collector,
		app.logger,
	)

	router.AuthService = app.authService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

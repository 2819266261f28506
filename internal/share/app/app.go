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

	"github.com/vizboard/vizboard/internal/share/data"
	"github.com/vizboard/vizboard/internal/share/email"
	httpapi "github.com/vizboard/vizboard/internal/share/http"
	"github.com/vizboard/vizboard/internal/share/service"
	"github.com/vizboard/vizboard/internal/share/store/drivers/sqlite"
	"github.com/vizboard/vizboard/pkg/cryptox"
	"github.com/vizboard/vizboard/pkg/jwtx"
	"github.com/vizboard/vizboard/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the share service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       *sqlite.Store
	sessions *jwtx.SessionSigner

	tokenService  *service.TokenService
	shareService  *service.ShareService
	inviteService *service.InviteService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "share-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.CipherKey == "" {
		return nil, errors.New("SHARE_CIPHER_KEY is required")
	}
	if cfg.EnvelopeSecret == "" {
		return nil, errors.New("SHARE_ENVELOPE_SECRET is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("share service starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down share service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("share service stopped")
	return nil
}

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

func (app *Application) initServices() error {
	cipher, err := cryptox.NewAESCipher([]byte(app.cfg.CipherKey))
	if err != nil {
		return fmt.Errorf("failed to initialize token cipher: %w", err)
	}

	envelope, err := jwtx.NewEnvelope([]byte(app.cfg.EnvelopeSecret))
	if err != nil {
		return fmt.Errorf("failed to initialize token envelope: %w", err)
	}

	app.sessions, err = jwtx.NewSessionSigner(
		[]byte(app.cfg.SessionSecret),
		app.cfg.SessionIssuer,
		app.cfg.SessionTTL,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}

	app.tokenService = &service.TokenService{
		Store:    app.db,
		Cipher:   cipher,
		Envelope: envelope,
	}

	app.shareService = &service.ShareService{
		Store:  app.db,
		Tokens: app.tokenService,
		Runner: data.NewRunner(app.db.DB()),
		CSVDir: app.cfg.CSVDir,
	}

	app.inviteService = &service.InviteService{
		Store:  app.db,
		Tokens: app.tokenService,
		Mailer: &email.Mailer{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			From:     app.cfg.SMTPFrom,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			BaseURL:  app.cfg.BaseURL,
		},
	}

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessions,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TokenService = app.tokenService
	router.ShareService = app.shareService
	router.InviteService = app.inviteService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

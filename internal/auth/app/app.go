// Package app wires configuration, stores, services, and the HTTP
// server into a runnable auth service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	httpapi "github.com/voluntree/voluntree/internal/auth/http"
	"github.com/voluntree/voluntree/internal/auth/notify"
	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/internal/auth/store"
	redisdrv "github.com/voluntree/voluntree/internal/auth/store/drivers/redis"
	"github.com/voluntree/voluntree/internal/auth/store/drivers/sqlite"
	"github.com/voluntree/voluntree/pkg/cryptox"
	"github.com/voluntree/voluntree/pkg/jwtx"
	"github.com/voluntree/voluntree/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          store.Store
	challenges  store.Challenges
	redisClient *goredis.Client // nil unless the redis challenge store is selected
	signer      *jwtx.HS256

	credentialsService  *service.CredentialsService
	challengeService    *service.ChallengeService
	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "voluntree-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initSecrets(); err != nil {
		return nil, err
	}
	if err := app.initStores(); err != nil {
		return nil, err
	}
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown drains in-flight requests, stops housekeeping, and closes
// the stores.
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

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initSecrets resolves the signing and fingerprint secrets. Outside
// dev both must be configured; in dev missing secrets are generated
// per process, which invalidates tokens and challenges on restart.
func (app *Application) initSecrets() error {
	if app.cfg.SigningSecret == "" {
		if app.cfg.Env != "dev" {
			return fmt.Errorf("AUTH_SIGNING_SECRET is required when ENV=%s", app.cfg.Env)
		}
		app.cfg.SigningSecret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("AUTH_SIGNING_SECRET not set, generated an ephemeral one (dev only)")
	}

	if app.cfg.OTPHashSecret == "" {
		if app.cfg.Env != "dev" {
			return fmt.Errorf("AUTH_OTP_HASH_SECRET is required when ENV=%s", app.cfg.Env)
		}
		app.cfg.OTPHashSecret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("AUTH_OTP_HASH_SECRET not set, generated an ephemeral one (dev only)")
	}

	signer, err := jwtx.NewHS256([]byte(app.cfg.SigningSecret), app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	return nil
}

// initStores opens the sqlite store, applies migrations, and selects
// the challenge store backend.
func (app *Application) initStores() error {
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

	switch app.cfg.ChallengeStore {
	case "redis":
		app.redisClient = goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
		app.challenges = redisdrv.NewChallengeStore(app.redisClient)
		app.logger.Info("challenge store: redis", "addr", app.cfg.RedisAddr)
	case "sqlite", "":
		app.challenges = db.Challenges()
		app.logger.Info("challenge store: sqlite")
	default:
		_ = db.Close()
		return fmt.Errorf("unknown AUTH_CHALLENGE_STORE %q (want sqlite or redis)", app.cfg.ChallengeStore)
	}

	return nil
}

func (app *Application) initServices() {
	hashKey := []byte(app.cfg.OTPHashSecret)

	app.credentialsService = &service.CredentialsService{Store: app.db}

	app.challengeService = &service.ChallengeService{
		Challenges:  app.challenges,
		Dispatcher:  app.dispatcher(),
		Logger:      app.logger,
		HashKey:     hashKey,
		TTL:         app.cfg.OTPTTL,
		Cooldown:    app.cfg.OTPCooldown,
		MaxAttempts: app.cfg.OTPMaxAttempts,
		CodeLength:  app.cfg.OTPCodeLength,
	}

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Signer:     app.signer,
		Logger:     app.logger,
		HashKey:    hashKey,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.challenges,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// dispatcher picks SMTP when configured, otherwise the dev log sink.
func (app *Application) dispatcher() notify.Dispatcher {
	if app.cfg.SMTPAddr == "" {
		app.logger.Warn("AUTH_SMTP_ADDR not set, one-time codes go to the log (dev only)")
		return notify.NewLogDispatcher(app.logger)
	}

	host, portStr, err := net.SplitHostPort(app.cfg.SMTPAddr)
	if err != nil {
		app.logger.Error("invalid AUTH_SMTP_ADDR, falling back to log dispatch", "error", err)
		return notify.NewLogDispatcher(app.logger)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		app.logger.Error("invalid AUTH_SMTP_ADDR port, falling back to log dispatch", "error", err)
		return notify.NewLogDispatcher(app.logger)
	}

	return notify.NewSMTPDispatcher(notify.SMTPConfig{
		Host:     host,
		Port:     port,
		Username: app.cfg.SMTPUser,
		Password: app.cfg.SMTPPass,
		From:     app.cfg.SMTPFrom,
	})
}

func (app *Application) initHTTP() {
	cookies := httpapi.CookieCodec{
		Domain: app.cfg.CookieDomain,
		Secure: app.cfg.CookieSecure,
	}

	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.challenges,
		cookies,
		app.logger,
	)

	router.Credentials = app.credentialsService
	router.Challenges = app.challengeService
	router.Sessions = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Package server wires configuration, storage, dispatch and the HTTP API
// into a runnable application with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/dbx"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/server/config"
	"github.com/dmitrijs2005/playerhub/internal/server/dispatch"
	httpapi "github.com/dmitrijs2005/playerhub/internal/server/http"
	"github.com/dmitrijs2005/playerhub/internal/server/mailer"
	"github.com/dmitrijs2005/playerhub/internal/server/ratelimit"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/memory"
	"github.com/dmitrijs2005/playerhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/playerhub/internal/server/services"
	"github.com/dmitrijs2005/playerhub/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	limiter *ratelimit.Limiter
	handler http.Handler
	closers []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	runner, m, err := app.openStorage(ctx)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	app.closers = append(app.closers, rdb.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		app.close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	presigner, err := storage.NewS3Presigner(ctx, storage.S3Config{
		User:         c.S3RootUser,
		Password:     c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Expires:      c.PresignTTL,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	clk := clock.Real()
	invoker := dispatch.NewGRPCInvoker(c.ConnectTimeout)
	app.closers = append(app.closers, invoker.Close)

	d := dispatch.NewDispatcher(
		invoker,
		dispatch.NewRedisQueue(rdb, c.StreamPrefix, c.StreamMaxLen),
		clk,
		dispatch.NewMetrics(prometheus.DefaultRegisterer),
		logger,
		dispatch.Options{DirectTimeout: c.DirectTimeout, FallbackTimeout: c.FallbackTimeout},
	)

	secret := []byte(c.SecretKey)
	app.limiter = ratelimit.New(c.RateLimitMax, c.RateLimitWindow)

	api := httpapi.NewServer(httpapi.Deps{
		Auth: services.NewAuthService(runner, m, app.newMailer(), clk, logger, services.AuthConfig{
			SecretKey:         secret,
			SetupTokenTTL:     c.SetupTokenTTL,
			SessionTokenTTL:   c.SessionTokenTTL,
			CodeTTL:           c.CodeTTL,
			MaxFailedAttempts: c.MaxFailedAttempts,
			LockoutDuration:   c.LockoutDuration,
		}),
		Guard:    services.NewAccessGuard(runner, m, clk, logger, secret),
		Devices:  services.NewDeviceService(runner, m, clk, logger),
		Content:  services.NewContentService(runner, m, presigner, clk, logger),
		Commands: services.NewCommandService(app.limiter, d, clk, logger),
	}, logger)
	app.handler = api.Router()

	return app, nil
}

// openStorage connects to Postgres and migrates it. An empty DSN selects
// the in-memory store, which keeps nothing across restarts.
func (app *App) openStorage(ctx context.Context) (dbx.Runner, repomanager.RepositoryManager, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, using in-memory store")
		store := memory.NewStore()
		return store, store, nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	app.closers = append(app.closers, db.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, nil, err
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	return dbx.NewSQLRunner(db, nil), m, nil
}

func (app *App) newMailer() mailer.Mailer {
	c := app.config
	if c.SMTPHost == "" {
		app.logger.Warn(context.Background(), "no SMTP host configured, verification codes are logged")
		return mailer.NewLogMailer(app.logger)
	}
	return mailer.NewSMTPMailer(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runLimiterCleanup drops expired rate-limit windows so idle keys do not
// accumulate. A non-positive interval disables it.
func (app *App) runLimiterCleanup(ctx context.Context) {
	if app.config.LimiterCleanupInterval <= 0 {
		app.logger.Warn(ctx, "rate limiter cleanup disabled", "interval", app.config.LimiterCleanupInterval)
		return
	}

	ticker := time.NewTicker(app.config.LimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := app.limiter.Cleanup(now); n > 0 {
				app.logger.Debug(ctx, "rate limiter cleanup", "removed", n, "remaining", app.limiter.Len())
			}
		}
	}
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runLimiterCleanup(ctx)
	}()

	wg.Wait()
}

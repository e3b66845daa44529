package player

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/playerhub/internal/client/client"
	"github.com/dmitrijs2005/playerhub/internal/clock"
	"github.com/dmitrijs2005/playerhub/internal/logging"
	"github.com/dmitrijs2005/playerhub/internal/player/config"
	"github.com/redis/go-redis/v9"
)

// Announcer tells the hub who owns this device.
type Announcer interface {
	Announce(ctx context.Context, deviceID, email, friendlyName string) (string, error)
}

type App struct {
	config    *config.Config
	logger    logging.Logger
	player    *Player
	grpc      *GRPCServer
	consumer  *Consumer
	announcer Announcer
	closers   []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if c.DeviceID == "" {
		return nil, errors.New("device id is required (-i)")
	}

	logger := logging.New(os.Stdout, c.LogLevel).With("device_id", c.DeviceID)

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	p := New(clock.Real())
	app := &App{
		config: c,
		logger: logger,
		player: p,
		grpc:   NewGRPCServer(c.GRPCAddr, logger, p),
		consumer: NewConsumer(rdb, p, logger, ConsumerOptions{
			Stream: c.StreamPrefix + c.DeviceID,
			Group:  c.ConsumerGroup,
			Name:   c.DeviceID,
			Block:  c.BlockTimeout,
		}),
		announcer: client.NewHTTPClient(c.HubURL, &http.Client{Timeout: c.RequestTimeout}),
		closers:   []func() error{rdb.Close},
	}
	return app, nil
}

// announce is best effort: a hub that is down must not keep the player
// from serving queued commands.
func (app *App) announce(ctx context.Context) {
	c := app.config
	if c.MasterEmail == "" {
		app.logger.Info(ctx, "no master email configured, skipping announce")
		return
	}
	status, err := app.announcer.Announce(ctx, c.DeviceID, c.MasterEmail, c.FriendlyName)
	if err != nil {
		app.logger.Warn(ctx, "announce failed", "error", err)
		return
	}
	app.logger.Info(ctx, "announced to hub", "status", status, "master", c.MasterEmail)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error(context.Background(), "close error", "error", err)
		}
	}
}

// Run serves direct calls and drains the command stream until a signal
// arrives or either loop fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.initSignalHandler(cancelFunc)
	app.announce(ctx)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.grpc.Run(ctx); err != nil {
			errs <- fmt.Errorf("grpc server: %w", err)
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.consumer.Run(ctx); err != nil {
			errs <- fmt.Errorf("stream consumer: %w", err)
			cancelFunc()
		}
	}()

	wg.Wait()
	close(errs)

	var joined []error
	for err := range errs {
		joined = append(joined, err)
	}
	app.logger.Info(context.Background(), "player agent stopped")
	return errors.Join(joined...)
}

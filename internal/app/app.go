package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/manjushapaul/Crypto-sub001/internal/catalog"
	"github.com/manjushapaul/Crypto-sub001/internal/config"
	"github.com/manjushapaul/Crypto-sub001/internal/document"
	httphandler "github.com/manjushapaul/Crypto-sub001/internal/handler/http"
	"github.com/manjushapaul/Crypto-sub001/internal/metrics"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
	"github.com/manjushapaul/Crypto-sub001/internal/repository"
	"github.com/manjushapaul/Crypto-sub001/internal/service"
	"github.com/manjushapaul/Crypto-sub001/internal/websocket"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
	"github.com/manjushapaul/Crypto-sub001/storage/postgres"
	"github.com/manjushapaul/Crypto-sub001/storage/redis"
	"github.com/manjushapaul/Crypto-sub001/storage/sqlite"
)

const (
	transportLocal = "local"
	transportRedis = "redis"
)

type App struct {
	cfg             *config.Config
	log             *slog.Logger
	httpServer      *http.Server
	wsManager       *websocket.Manager
	redisClient     *goredis.Client
	redisSubscriber *redis.Subscriber
	closers         []func() error
	stopOnce        sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	repo, err := a.openRepository()
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store := persist.New(repo, log,
		persist.WithPrefix(cfg.Storage.KeyPrefix),
		persist.WithTimeout(cfg.Storage.OpTimeout),
		persist.WithShared(cfg.Storage.Shared),
	)

	cat, err := catalog.Load()
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.wsManager = websocket.NewManager(log)

	notifier, err := a.notifier()
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	root := document.NewRoot()
	services := httphandler.Services{
		Portfolio: service.NewPortfolioService(store, notifier, log, nil),
		Theme:     service.NewThemeService(store, root, log),
		Users:     service.NewUsersService(store, log),
		Messages:  service.NewMessagesService(store, log),
		Favorites: service.NewFavoritesService(store, log, nil),
	}

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), metrics.Middleware())
	ginEngine.GET("/metrics", gin.WrapH(metrics.Handler()))

	httpHandler := httphandler.NewHandler(services, cat, root, a.wsManager, log, cfg.Security.JWTSecret)
	httpHandler.RegisterRoutes(ginEngine)

	a.httpServer = &http.Server{
		Addr:    net.JoinHostPort("", strconv.FormatUint(uint64(cfg.HTTP.Port), 10)),
		Handler: ginEngine,
	}

	return a, nil
}

// openRepository picks the key/value backend named by the storage driver.
func (a *App) openRepository() (repository.KVRepository, error) {
	const op = "app.openRepository"

	switch a.cfg.Storage.Driver {
	case "memory":
		a.log.Warn("using in-memory storage, state is lost on restart")
		return repository.NewMemoryKVRepository(), nil
	case "sqlite":
		storage, err := sqlite.New(a.cfg.Storage.SQLitePath, a.log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, storage.Stop)
		return repository.NewGormKVRepository(storage.DB), nil
	case "postgres":
		storage, err := postgres.New(a.cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, storage.Stop)
		return repository.NewGormKVRepository(storage.DB), nil
	case "redis":
		client, err := a.redis()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return redis.NewKV(client), nil
	default:
		return nil, fmt.Errorf("%s: %q: %w", op, a.cfg.Storage.Driver, errs.ErrUnknownDriver)
	}
}

// notifier returns where portfolio notifications go. With the redis
// transport every instance publishes to one channel and relays it to its
// own websocket clients.
func (a *App) notifier() (service.Notifier, error) {
	const op = "app.notifier"

	switch a.cfg.Notifications.Transport {
	case transportLocal, "":
		return a.wsManager, nil
	case transportRedis:
		client, err := a.redis()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.redisSubscriber = redis.NewSubscriber(client, a.cfg.Redis.NotificationsChannel, a.log)
		return redis.NewPublisher(client, a.cfg.Redis.NotificationsChannel, a.log), nil
	default:
		return nil, fmt.Errorf("%s: unknown transport %q", op, a.cfg.Notifications.Transport)
	}
}

// redis connects once and shares the client between storage and pub/sub.
func (a *App) redis() (*goredis.Client, error) {
	if a.redisClient != nil {
		return a.redisClient, nil
	}

	client, err := redis.Connect(a.ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.log.Info("connected to redis", "addr", a.cfg.Redis.Addr)

	a.redisClient = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) Run() error {
	errChan := make(chan error, 2)
	a.log.Info("starting application components...")

	go func() {
		a.log.Info("websocket manager started")
		a.wsManager.Run(a.ctx)
		a.log.Info("websocket manager stopped")
	}()

	if a.redisSubscriber != nil {
		go func() {
			if err := a.redisSubscriber.Run(a.ctx, a.wsManager.Broadcast); err != nil {
				errChan <- fmt.Errorf("redis subscriber error: %w", err)
			}
		}()
	}

	go func() {
		if err := a.runHTTP(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		a.log.Warn("shutting down application due to an error", "error", err)
		a.Stop()
		return err
	case <-a.ctx.Done():
		return nil
	}
}

func (a *App) Stop() {
	a.stopOnce.Do(a.stop)
}

func (a *App) stop() {
	a.log.Info("stopping application components gracefully...")

	a.cancel()

	if a.httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.Timeout)
		defer shutdownCancel()

		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("failed to gracefully shutdown HTTP server", "error", err)
		} else {
			a.log.Info("HTTP server stopped")
		}
	}

	if a.redisSubscriber != nil {
		a.redisSubscriber.Close()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("failed to close storage", "error", err)
		}
	}
	a.log.Info("storage connections closed")
}

func (a *App) runHTTP() error {
	const op = "app.runHTTP"

	a.log.Info("HTTP server is running", "addr", a.httpServer.Addr)

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

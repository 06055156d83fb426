package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/config"
	"github.com/iliyamo/property-reservation/internal/database"
	"github.com/iliyamo/property-reservation/internal/handler"
	"github.com/iliyamo/property-reservation/internal/lock"
	"github.com/iliyamo/property-reservation/internal/logging"
	"github.com/iliyamo/property-reservation/internal/middleware"
	"github.com/iliyamo/property-reservation/internal/queue"
	"github.com/iliyamo/property-reservation/internal/repository"
	"github.com/iliyamo/property-reservation/internal/router"
	"github.com/iliyamo/property-reservation/internal/service"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer store.Close()

	// Redis is optional: without it the cache and rate limiter are off
	// and LOCK_BACKEND=redis falls back to the local locker.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.WithError(err).Warn("redis unavailable; cache, rate limiting and distributed locks disabled")
		rdb = nil
	} else {
		defer rdb.Close()
	}

	events := newPublisher(logger)
	if c, ok := events.(interface{ Close() error }); ok {
		defer c.Close()
	}

	deps := service.Deps{
		Store:  store,
		Locker: newLocker(cfg, rdb, logger),
		Events: events,
		Logger: logger,
	}
	bookings := handler.NewBookingHandler(service.NewBookingService(deps), logger, nil)
	blocks := handler.NewBlockHandler(service.NewBlockService(deps), logger, nil)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAPI(e, bookings, blocks,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	)

	addr := ":" + cfg.Port
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver, "lock": cfg.LockBackend}).
			Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		return repository.NewMemoryStore(), nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.Migrate(mctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.NewMySQLStore(db), nil
}

func newLocker(cfg config.Config, rdb *redis.Client, logger *logrus.Logger) lock.Locker {
	switch cfg.LockBackend {
	case config.LockNone:
		return lock.Nop{}
	case config.LockRedis:
		if rdb != nil {
			return lock.NewRedis(rdb, cfg.LockPrefix, cfg.LockTTL, cfg.LockWait)
		}
		logger.Warn("LOCK_BACKEND=redis but redis is unavailable; using local locks")
	}
	return lock.NewLocal()
}

func newPublisher(logger *logrus.Logger) service.EventPublisher {
	ev := config.LoadEventsConfig()
	if !ev.Enabled {
		return service.NopPublisher{}
	}
	logger.WithField("queue", ev.Queue).Info("publishing reservation events")
	return queue.NewPublisher(queue.PublisherConfig{
		URL:         ev.URL,
		Queue:       ev.Queue,
		MaxFailures: ev.BreakerMaxFailures,
		OpenFor:     ev.BreakerOpenFor,
	}, logger)
}

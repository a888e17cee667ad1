package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"articleregistry/backend/internal/cache"
	"articleregistry/backend/internal/cloudsync"
	"articleregistry/backend/internal/config"
	"articleregistry/backend/internal/httpapi"
	"articleregistry/backend/internal/logging"
	"articleregistry/backend/internal/service"
	"articleregistry/backend/internal/store"
	"articleregistry/backend/internal/store/memory"
	pgstore "articleregistry/backend/internal/store/postgres"
	"articleregistry/backend/internal/store/redisstore"
	"articleregistry/backend/internal/store/sqlite"
)

const redisKeyPrefix = "articleregistry:kv:"

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("store unavailable, refusing to start", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))
	closers := []func() error{backend.Close}

	statsCache, closeCache := newStatsCache(ctx, cfg, logger)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	sync := cloudsync.NewClient(cloudsync.Options{
		BaseURL: cfg.SyncURL,
		Token:   cfg.SyncToken,
		Timeout: cfg.SyncTimeout(),
	}, logger)
	if sync.Enabled() {
		logger.Info("cloud sync enabled", zap.String("url", cfg.SyncURL))
	}

	svc := service.New(backend, service.Options{
		Logger:      logger,
		Pinger:      backend,
		StatsCache:  statsCache,
		StatsTTL:    cfg.StatsCacheTTL(),
		Sync:        sync,
		SyncTimeout: cfg.SyncTimeout(),
	})

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL(), cfg.AgentUsername, cfg.AgentPassword)
	if err != nil {
		logger.Fatal("auth setup failed", zap.Error(err))
	}
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		MaxImportBytes: cfg.MaxImportBytes,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("article registry listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	svc.Wait()

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// openBackend connects the key-value backend selected by cfg.StoreDriver.
// A configured backend that cannot be reached is an error; there is no
// silent fallback to memory.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return pgstore.New(ctx, cfg.DatabaseURL)
	case config.DriverRedis:
		rs := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// newStatsCache prefers redis when configured and reachable, and falls back
// to the in-process cache otherwise.
func newStatsCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (cache.StatisticsCache, func() error) {
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisStatisticsCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process statistics cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			logger.Info("statistics cache: redis")
			return redisCache, redisCache.Close
		}
	}
	logger.Info("statistics cache: memory")
	return cache.NewMemoryStatisticsCache(time.Minute), nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/learnstyle/internal/adapters/cache"
	"github.com/okian/learnstyle/internal/adapters/mq/publisher"
	workerpool "github.com/okian/learnstyle/internal/adapters/mq/worker"
	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/adapters/repository/mongostore"
	"github.com/okian/learnstyle/internal/adapters/repository/sqlstore"
	service "github.com/okian/learnstyle/internal/app"
	"github.com/okian/learnstyle/internal/config"
	"github.com/okian/learnstyle/pkg/logger"
)

// buildService opens the configured backends and assembles the service.
// Every backend opened here is released if a later one fails.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err = withTemplateCache(ctx, cfg, store, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	pub, err := openPublisher(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithPublisher(pub),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithIdempotencySize(cfg.IdempotencySize),
	), nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repository.NewMemoryStore(ctx, repository.WithShardCount(cfg.ShardCount)), nil
	case config.StoreSQLite:
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.StoreDSN)
	case config.StorePostgres:
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.StoreDSN)
	case config.StoreMongo:
		return mongostore.Connect(ctx, cfg.StoreDSN, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}

// withTemplateCache wraps store with the configured template cache. On error
// the returned store is the unwrapped one.
func withTemplateCache(ctx context.Context, cfg *config.Config, store repository.Store, log logger.Logger) (repository.Store, error) {
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	opt := repository.WithCacheLogger(log.Named("template_cache"))

	switch cfg.CacheDriver {
	case config.CacheNone:
		return store, nil
	case config.CacheMemory:
		return repository.WithCache(store, cache.NewMemory(cache.WithSize(cfg.CacheSize), cache.WithTTL(ttl)), opt), nil
	case config.CacheRedis:
		c, err := cache.DialRedis(ctx, cfg.RedisAddr, ttl)
		if err != nil {
			return store, err
		}
		return repository.WithCache(store, c, opt), nil
	default:
		return store, fmt.Errorf("%w: unknown cache_driver %q", config.ErrInvalidConfig, cfg.CacheDriver)
	}
}

func openPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (workerpool.Publisher, error) {
	switch cfg.Publisher {
	case config.PublisherLog:
		return publisher.NewLog(log.Named("classification")), nil
	case config.PublisherRedis:
		return publisher.DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel)
	default:
		return nil, fmt.Errorf("%w: unknown publisher %q", config.ErrInvalidConfig, cfg.Publisher)
	}
}

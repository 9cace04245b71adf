// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) returns a Config populated with defaults.
// - Load(ctx) layers an optional YAML file and LEARNSTYLE_* env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Template cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Classification publishers.
const (
	PublisherLog   = "log"
	PublisherRedis = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `koanf:"cors_origins"`

	// StoreDriver selects the persistence backend: memory, sqlite, postgres, mongo.
	StoreDriver string `koanf:"store_driver"`
	// StoreDSN is the driver-specific connection string (file path, postgres URL, mongo URI).
	StoreDSN string `koanf:"store_dsn"`
	// MongoDatabase names the database used by the mongo driver.
	MongoDatabase string `koanf:"mongo_database"`
	// ShardCount configures the number of shards in the in-memory submission store.
	ShardCount int `koanf:"shard_count"`

	// CacheDriver selects the template cache: none, memory, redis.
	CacheDriver string `koanf:"cache_driver"`
	// CacheTTLSeconds bounds how long a cached template lives in redis.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`
	// CacheSize bounds the number of templates kept by the in-process cache.
	CacheSize int `koanf:"cache_size"`

	// RedisAddr is used by the redis cache and the redis publisher.
	RedisAddr string `koanf:"redis_addr"`
	// RedisChannel is the pub/sub channel classification events are published on.
	RedisChannel string `koanf:"redis_channel"`

	// Publisher selects where classification events go: log or redis.
	Publisher string `koanf:"publisher"`
	// EventQueueSize bounds the in-memory classification event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of publishing workers.
	WorkerCount int `koanf:"worker_count"`

	// IdempotencySize bounds how many Idempotency-Key values are remembered.
	IdempotencySize int `koanf:"idempotency_size"`
}

// New creates a Config populated with defaults. The context is reserved for
// loaders that need it and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		CORSOrigins:     "http://localhost:3000,http://localhost:5173",
		StoreDriver:     StoreMemory,
		StoreDSN:        "",
		MongoDatabase:   "learnstyle",
		ShardCount:      8,
		CacheDriver:     CacheMemory,
		CacheTTLSeconds: 3600,
		CacheSize:       1024,
		RedisAddr:       "localhost:6379",
		RedisChannel:    "learnstyle.classifications",
		Publisher:       PublisherLog,
		EventQueueSize:  10_000,
		WorkerCount:     runtime.NumCPU(),
		IdempotencySize: 100_000,
	}
}

// Origins splits CORSOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
	case StorePostgres, StoreMongo:
		if strings.TrimSpace(c.StoreDSN) == "" {
			return fmt.Errorf("%w: store_dsn is required for the %s driver", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch c.CacheDriver {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("%w: unknown cache_driver %q", ErrInvalidConfig, c.CacheDriver)
	}
	switch c.Publisher {
	case PublisherLog, PublisherRedis:
	default:
		return fmt.Errorf("%w: unknown publisher %q", ErrInvalidConfig, c.Publisher)
	}
	if (c.CacheDriver == CacheRedis || c.Publisher == PublisherRedis) && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("%w: redis_addr must not be empty", ErrInvalidConfig)
	}
	return nil
}

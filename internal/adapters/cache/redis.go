package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/learnstyle/internal/domain/model"
)

const templateKeyPrefix = "learnstyle:template:"

// Redis is a TemplateCache shared between service instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	owned  bool
}

// NewRedis wraps an existing client. The client is not closed by Close.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client, ttl: ttl, owned: true}, nil
}

func (c *Redis) Get(ctx context.Context, id string) (model.Template, bool, error) {
	data, err := c.client.Get(ctx, templateKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Template{}, false, nil
	}
	if err != nil {
		return model.Template{}, false, err
	}
	var t model.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return model.Template{}, false, fmt.Errorf("decode cached template %s: %w", id, err)
	}
	return t, true, nil
}

func (c *Redis) Set(ctx context.Context, t model.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, templateKeyPrefix+t.ID, data, c.ttl).Err()
}

// Delete drops id from the cache.
func (c *Redis) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, templateKeyPrefix+id).Err()
}

func (c *Redis) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by GetStatus when no cached entry exists.
var ErrCacheMiss = errors.New("redis: cache miss")

type Cache struct {
	Client *redis.Client
}

func New(addr, pass string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	return &Cache{Client: rdb}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// GetStatus returns a short-TTL cached GET /status read model, sparing the
// database a lock-free read on hot workshops. The payload is opaque JSON:
// the REST handler owns its shape.
func (c *Cache) GetStatus(ctx context.Context, workshopID uuid.UUID, dest any) error {
	val, err := c.Client.Get(ctx, "status:"+workshopID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Cache) SetStatus(ctx context.Context, workshopID uuid.UUID, payload any, ttl time.Duration) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, "status:"+workshopID.String(), b, ttl).Err()
}

func (c *Cache) InvalidateStatus(ctx context.Context, workshopID uuid.UUID) error {
	return c.Client.Del(ctx, "status:"+workshopID.String()).Err()
}

// AllowRequest implements a simple fixed-window rate limit, failing open on
// Redis errors so an outage never blocks traffic outright.
func (c *Cache) AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:" + ip
	count, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, nil
	}
	if count == 1 {
		_ = c.Client.Expire(ctx, key, window).Err()
	}
	return count <= int64(limit), nil
}

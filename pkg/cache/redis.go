package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/orgloom/livemap/backend/pkg/common"
)

// Redis is the shared backend for multi-worker deployments: every process
// sees the same entries, so one worker's Invalidate clears the neighbors
// another worker cached.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

type NewRedisParams struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping before
// returning. A non-positive TTL falls back to five minutes.
func NewRedis(params NewRedisParams) (*Redis, error) {
	if params.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if params.TTL <= 0 {
		params.TTL = 5 * time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        params.Addr,
		Password:    params.Password,
		DB:          params.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: params.TTL}, nil
}

func (r *Redis) Get(ctx context.Context, tenantID int64, entityID string, depth int) (common.NeighborSet, bool, error) {
	raw, err := r.rdb.Get(ctx, cacheKey(tenantID, entityID, depth)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var ns common.NeighborSet
	if err := json.Unmarshal(raw, &ns); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached neighbors: %w", err)
	}
	return ns, true, nil
}

func (r *Redis) Set(ctx context.Context, tenantID int64, entityID string, depth int, ns common.NeighborSet) error {
	raw, err := json.Marshal(ns)
	if err != nil {
		return fmt.Errorf("failed to encode neighbors: %w", err)
	}
	if err := r.rdb.Set(ctx, cacheKey(tenantID, entityID, depth), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, tenantID int64, entityID string) error {
	keys := make([]string, 0, maxDepth)
	for depth := 1; depth <= maxDepth; depth++ {
		keys = append(keys, cacheKey(tenantID, entityID, depth))
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

var _ NeighborCache = (*Redis)(nil)

// Package cache keeps the public scream list in Redis between writes
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anonto42/socialape/backend/internal/metrics"
	"github.com/anonto42/socialape/backend/internal/models"
)

const (
	recentScreamsKey = "screams:recent"
	recentScreamsTTL = 5 * time.Minute
)

// ErrMiss is returned when nothing is cached
var ErrMiss = errors.New("cache miss")

// ScreamCache holds the GET /screams response
type ScreamCache interface {
	GetRecent(ctx context.Context) ([]models.Scream, error)
	SetRecent(ctx context.Context, screams []models.Scream) error
	Invalidate(ctx context.Context) error
}

// NewRedisClient parses a redis:// URL and checks the server is reachable
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type RedisScreamCache struct {
	client *redis.Client
}

func NewRedisScreamCache(client *redis.Client) *RedisScreamCache {
	return &RedisScreamCache{client: client}
}

func (c *RedisScreamCache) GetRecent(ctx context.Context) ([]models.Scream, error) {
	raw, err := c.client.Get(ctx, recentScreamsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, ErrMiss
	}
	if err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var screams []models.Scream
	if err := json.Unmarshal(raw, &screams); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode cached screams: %w", err)
	}
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return screams, nil
}

// SetRecent caches the list for five minutes
func (c *RedisScreamCache) SetRecent(ctx context.Context, screams []models.Scream) error {
	raw, err := json.Marshal(screams)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recentScreamsKey, raw, recentScreamsTTL).Err()
}

func (c *RedisScreamCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, recentScreamsKey).Err()
}

// NopScreamCache never holds anything
type NopScreamCache struct{}

func (NopScreamCache) GetRecent(ctx context.Context) ([]models.Scream, error) {
	return nil, ErrMiss
}

func (NopScreamCache) SetRecent(ctx context.Context, screams []models.Scream) error {
	return nil
}

func (NopScreamCache) Invalidate(ctx context.Context) error {
	return nil
}

// Package cache implements the projection cache on Redis. Summaries are
// invalidated synchronously with every transition commit, so a hit is never
// staler than the latest committed transition.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/config"
)

type RedisProjectionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProjectionCache(cfg config.RedisConfig) *RedisProjectionCache {
	return &RedisProjectionCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
	}
}

func summaryKey(projectID string) string {
	return "projevo:summary:" + projectID
}

func (c *RedisProjectionCache) GetSummary(ctx context.Context, projectID string) (*application.ProjectSummary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKey(projectID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get summary from cache: %w", err)
	}

	var summary application.ProjectSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// a corrupt entry is treated as a miss and recomputed
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *RedisProjectionCache) SetSummary(ctx context.Context, projectID string, summary *application.ProjectSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(projectID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary in cache: %w", err)
	}
	return nil
}

func (c *RedisProjectionCache) Invalidate(ctx context.Context, projectID string) error {
	if err := c.client.Del(ctx, summaryKey(projectID)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

func (c *RedisProjectionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisProjectionCache) Close() error {
	return c.client.Close()
}

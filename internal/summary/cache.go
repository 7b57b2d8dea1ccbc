package summary

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 60 * time.Second

// RedisCache stores summaries as JSON under a per-account key. All errors are
// logged and swallowed: a broken cache degrades to recomputation, never to a
// failed request.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func cacheKey(accountID uuid.UUID) string {
	return "summary:account:" + accountID.String()
}

func (c *RedisCache) Get(ctx context.Context, accountID uuid.UUID) (*AccountSummary, bool) {
	payload, err := c.client.Get(ctx, cacheKey(accountID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("summary cache read failed", "error", err)
		}

		return nil, false
	}

	var summary AccountSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		c.logger.Warn("summary cache entry corrupt", "error", err)
		return nil, false
	}

	return &summary, true
}

func (c *RedisCache) Set(ctx context.Context, s *AccountSummary) {
	payload, err := json.Marshal(s)
	if err != nil {
		c.logger.Warn("summary cache encode failed", "error", err)
		return
	}

	if err := c.client.Set(ctx, cacheKey(s.AccountID), payload, cacheTTL).Err(); err != nil {
		c.logger.Warn("summary cache write failed", "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(accountID)).Err()
}

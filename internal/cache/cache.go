package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealradar/deal-aggregator/internal/matcher"
	"github.com/dealradar/deal-aggregator/internal/models"
)

// SearchTTL is how long a cached search result stays fresh.
const SearchTTL = 300 * time.Second

const searchPrefix = "search:"

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SearchCache stores grouped search results in Redis. Every operation
// degrades silently: a Redis failure is logged and treated as a miss, never
// surfaced to the caller.
type SearchCache struct {
	client RedisClient
	logger *slog.Logger
}

func New(client RedisClient, logger *slog.Logger) *SearchCache {
	return &SearchCache{
		client: client,
		logger: logger.With("component", "cache"),
	}
}

// SearchKey builds the cache key for a search. The query goes through title
// normalization and unset bounds take their defaults, so equivalent searches
// share a key.
func SearchKey(query string, platforms []models.Platform, minPrice, maxPrice float64, sortBy string) string {
	normalized := matcher.NormalizeTitle(query)

	platformPart := "all"
	if len(platforms) > 0 {
		parts := make([]string, len(platforms))
		for i, p := range platforms {
			parts[i] = string(p)
		}
		platformPart = strings.Join(parts, "|")
	}

	if maxPrice <= 0 {
		maxPrice = 999999
	}
	if sortBy == "" {
		sortBy = "relevance"
	}

	return searchPrefix + normalized + ":" + platformPart + ":" +
		strconv.FormatFloat(minPrice, 'f', -1, 64) + ":" +
		strconv.FormatFloat(maxPrice, 'f', -1, 64) + ":" + sortBy
}

// Get returns the cached groups for a key. found is false on a miss, on a
// decode failure, and on any Redis error.
func (c *SearchCache) Get(ctx context.Context, key string) ([]models.ProductGroup, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}

	var groups []models.ProductGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}

	return groups, true
}

// Set stores groups under a key for SearchTTL.
func (c *SearchCache) Set(ctx context.Context, key string, groups []models.ProductGroup) {
	data, err := json.Marshal(groups)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, SearchTTL).Err(); err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// InvalidateSearch removes every cached search result. Called after
// ingestion writes so stale groups never outlive fresh deals.
func (c *SearchCache) InvalidateSearch(ctx context.Context) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := c.client.Scan(ctx, cursor, searchPrefix+"*", 100).Result()
		if err != nil {
			c.logger.Warn("cache scan failed", "error", err)
			return
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("cache delete failed", "error", err)
				return
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if deleted > 0 {
		c.logger.Info("invalidated search cache", "keys", deleted)
	}
}

// Ping verifies the Redis connection at startup.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/deal-aggregator/internal/models"
)

// fakeRedis backs the cache with a map; failing simulates a Redis outage.
type fakeRedis struct {
	data    map[string]string
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	if f.failing {
		return redis.NewScanCmdResult(nil, 0, errors.New("connection refused"))
	}
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.failing {
		return redis.NewIntResult(0, errors.New("connection refused"))
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearchKey(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		platforms []models.Platform
		min, max  float64
		sortBy    string
		want      string
	}{
		{
			name:  "defaults applied",
			query: "iphone 15",
			want:  "search:iphone 15:all:0:999999:relevance",
		},
		{
			name:      "platforms joined in order",
			query:     "shoes",
			platforms: []models.Platform{models.PlatformAmazon, models.PlatformFlipkart},
			min:       500, max: 5000,
			sortBy: "price_low",
			want:   "search:shoes:amazon|flipkart:500:5000:price_low",
		},
		{
			name:  "query casing and spacing normalized",
			query: "  IPhone   15 ",
			want:  "search:iphone 15:all:0:999999:relevance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SearchKey(tt.query, tt.platforms, tt.min, tt.max, tt.sortBy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	c := New(fake, testLogger())

	key := SearchKey("iphone", nil, 0, 0, "")

	_, found := c.Get(ctx, key)
	assert.False(t, found)

	groups := []models.ProductGroup{{
		ProductName:     "Apple iPhone 15",
		NormalizedTitle: "apple iphone 15",
		LowestPrice:     77999,
	}}
	c.Set(ctx, key, groups)

	got, found := c.Get(ctx, key)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "apple iphone 15", got[0].NormalizedTitle)
	assert.Equal(t, 77999.0, got[0].LowestPrice)
}

func TestSearchCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.data["search:bad:all:0:999999:relevance"] = "{not json"

	c := New(fake, testLogger())
	_, found := c.Get(ctx, "search:bad:all:0:999999:relevance")
	assert.False(t, found)
}

func TestSearchCacheDegradesSilently(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	fake.failing = true
	c := New(fake, testLogger())

	key := SearchKey("iphone", nil, 0, 0, "")

	// A down Redis reads as a miss and writes are dropped, no panics and
	// no errors escape.
	_, found := c.Get(ctx, key)
	assert.False(t, found)
	c.Set(ctx, key, []models.ProductGroup{{ProductName: "x"}})
	c.InvalidateSearch(ctx)
}

func TestInvalidateSearchRemovesOnlySearchKeys(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()

	payload, err := json.Marshal([]models.ProductGroup{})
	require.NoError(t, err)
	fake.data["search:iphone:all:0:999999:relevance"] = string(payload)
	fake.data["search:shoes:amazon:0:999999:relevance"] = string(payload)
	fake.data["session:abc"] = "keep"

	c := New(fake, testLogger())
	c.InvalidateSearch(ctx)

	assert.NotContains(t, fake.data, "search:iphone:all:0:999999:relevance")
	assert.NotContains(t, fake.data, "search:shoes:amazon:0:999999:relevance")
	assert.Contains(t, fake.data, "session:abc")
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(vals ...string) []map[string]any {
	out := make([]map[string]any, 0, len(vals))
	for _, v := range vals {
		out = append(out, map[string]any{"name": v})
	}
	return out
}

func TestGetFetchesOnceWhileFresh(t *testing.T) {
	calls := 0
	c := NewTTLCache("t", time.Hour, func(ctx context.Context) ([]map[string]any, error) {
		calls++
		return rows("a", "b"), nil
	}, nil, nil)

	ctx := context.Background()
	first := c.Get(ctx)
	second := c.Get(ctx)
	assert.Equal(t, 1, calls)
	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestGetCachesEmptyDataset(t *testing.T) {
	calls := 0
	c := NewTTLCache("t", time.Hour, func(ctx context.Context) ([]map[string]any, error) {
		calls++
		return nil, nil
	}, nil, nil)

	// 上游返回空数据集也算一次成功抓取：TTL 内不再回源
	ctx := context.Background()
	first := c.Get(ctx)
	second := c.Get(ctx)
	assert.Equal(t, 1, calls)
	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.False(t, c.Entry().Timestamp.IsZero())
}

func TestGetRefetchesAfterTTL(t *testing.T) {
	calls := 0
	c := NewTTLCache("t", 10*time.Millisecond, func(ctx context.Context) ([]map[string]any, error) {
		calls++
		return rows("a"), nil
	}, nil, nil)

	ctx := context.Background()
	c.Get(ctx)
	time.Sleep(20 * time.Millisecond)
	c.Get(ctx)
	assert.Equal(t, 2, calls)
}

func TestGetFallsBackToSeedAndResetsClock(t *testing.T) {
	calls := 0
	seed := rows("seed")
	c := NewTTLCache("t", time.Hour, func(ctx context.Context) ([]map[string]any, error) {
		calls++
		return nil, errors.New("upstream down")
	}, seed, nil)

	ctx := context.Background()
	got := c.Get(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "seed", got[0]["name"])

	// 回退也写入条目并重置时钟：TTL 内不再探测上游
	c.Get(ctx)
	assert.Equal(t, 1, calls)
	assert.False(t, c.Entry().Timestamp.IsZero())
}

func TestGetPublishesToRegistry(t *testing.T) {
	reg := NewRegistry()
	c := NewTTLCache("restrooms", time.Hour, func(ctx context.Context) ([]map[string]any, error) {
		return rows("a", "b", "c"), nil
	}, nil, reg)

	c.Get(context.Background())
	e, ok := reg.Get("restrooms")
	require.True(t, ok)
	assert.Len(t, e.Data, 3)
}

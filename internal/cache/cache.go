// 包 cache：单数据集 TTL 缓存与进程内缓存注册表
package cache

import (
	"context"
	"sync"
	"time"

	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
)

// Entry：缓存条目，数据加最后一次写入时间
type Entry struct {
	Data      []map[string]any `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// FetchFunc：上游抓取函数；超时控制由实现方的 HTTP 客户端承担
type FetchFunc func(ctx context.Context) ([]map[string]any, error)

// TTLCache：持有单个上游数据集的惰性缓存
// 背景：数据集在 TTL 內直接命中返回；过期后尝试一次抓取，任何失败回退到内置种子数据。
// 回退同样重置时钟——上游故障在下一个 TTL 周期前不会被再次探测。
// 约束：不做并发抓取去重，两个同时到来的过期读取可能各自抓取一次；
// 注册表发布在每次写入后同步进行。
type TTLCache struct {
	key      string
	ttl      time.Duration
	fetch    FetchFunc
	seed     []map[string]any
	registry *Registry

	mu    sync.Mutex
	entry Entry
}

// NewTTLCache：创建缓存
// 约束：registry 可为 nil（不发布）；seed 在抓取失败时原样返回
func NewTTLCache(key string, ttl time.Duration, fetch FetchFunc, seed []map[string]any, registry *Registry) *TTLCache {
	return &TTLCache{key: key, ttl: ttl, fetch: fetch, seed: seed, registry: registry}
}

// Get：读取数据集；必要时抓取或回退
// 约束：锁仅保护条目读写，抓取期间释放，保持"过期并发读取各自抓取"的原语义
func (c *TTLCache) Get(ctx context.Context) []map[string]any {
	now := time.Now()
	c.mu.Lock()
	// 新鲜度以时间戳判定：抓取成功但数据集为空同样在 TTL 内命中
	if !c.entry.Timestamp.IsZero() && now.Sub(c.entry.Timestamp) < c.ttl {
		data := c.entry.Data
		c.mu.Unlock()
		metrics.CacheHitsTotal.WithLabelValues(c.key).Inc()
		return data
	}
	c.mu.Unlock()
	metrics.CacheMissesTotal.WithLabelValues(c.key).Inc()

	records, err := c.fetch(ctx)
	if err != nil {
		// 上游不可用对调用方不可见：回退种子数据并重置时钟
		logger.L().Warn("cache_fetch_fallback", "key", c.key, "err", err)
		records = c.seed
	}
	e := Entry{Data: records, Timestamp: now}
	c.mu.Lock()
	c.entry = e
	c.mu.Unlock()
	if c.registry != nil {
		c.registry.Register(c.key, e)
	}
	logger.L().Debug("cache_refreshed", "key", c.key, "count", len(records), "fallback", err != nil)
	return e.Data
}

// Entry：当前条目快照（用于自检接口）
func (c *TTLCache) Entry() Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

package cache

import (
	"sync"
	"time"
)

// Info：单个缓存的概要信息（自检接口返回）
type Info struct {
	Key             string     `json:"key"`
	Timestamp       *time.Time `json:"timestamp"`
	DataCount       int        `json:"data_count"`
	CacheAgeSeconds *float64   `json:"cache_age_seconds"`
}

// Registry：进程内命名缓存目录
// 背景：各模块把自己的缓存条目发布到这里供自检/调试接口读取；
// 原实现是模块级字典，这里改为显式注入的结构体，测试无需全局重置。
// 约束：按键覆盖写入（last-write-wins），不做合并；业务逻辑不读取注册表。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register：发布或覆盖一个缓存条目
func (r *Registry) Register(key string, e Entry) {
	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
}

// Get：按键读取
func (r *Registry) Get(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

// Keys：已注册键列表
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Caches：全部条目的浅拷贝
func (r *Registry) Caches() map[string]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Entry, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// Summary：为每个键派生条目数与年龄
func (r *Registry) Summary() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	out := make(map[string]Info, len(r.entries))
	for k, e := range r.entries {
		info := Info{Key: k, DataCount: len(e.Data)}
		if !e.Timestamp.IsZero() {
			ts := e.Timestamp
			age := now.Sub(ts).Seconds()
			info.Timestamp = &ts
			info.CacheAgeSeconds = &age
		}
		out[k] = info
	}
	return out
}

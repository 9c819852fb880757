package restrooms

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"mapable-api/internal/cache"
	"mapable-api/internal/geo"
	"mapable-api/internal/logger"
	"mapable-api/internal/metrics"
)

// CacheKey：注册表与 redis 中使用的数据集键名
const CacheKey = "restrooms"

const redisKey = "mapable:restrooms"

// Restroom：对外返回的厕所条目；上游数据不保证完整，全部字段可空
type Restroom struct {
	Name         *string  `json:"name"`
	Location     *string  `json:"location"`
	Address      *string  `json:"address"`
	Hours        *string  `json:"hours"`
	Neighborhood *string  `json:"neighborhood"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// Service：TTL 缓存 + 可选 redis 读穿的厕所查询服务
// 背景：redis 为空（未配置）时仅用进程内缓存，与其余路径无耦合
type Service struct {
	cache *cache.TTLCache
	rc    *redis.Client
}

// NewService：装配客户端、进程内缓存与注册表发布
func NewService(url string, ttl time.Duration, rc *redis.Client, registry *cache.Registry) *Service {
	client := NewClient(url)
	return &Service{
		cache: cache.NewTTLCache(CacheKey, ttl, client.Fetch, Seed(), registry),
		rc:    rc,
	}
}

// records：读取原始记录集；redis 命中优先，未命中回源进程内缓存并回填
func (s *Service) records(ctx context.Context) []map[string]any {
	if s.rc != nil {
		if raw, err := s.rc.Get(ctx, redisKey).Result(); err == nil && raw != "" {
			var out []map[string]any
			if json.Unmarshal([]byte(raw), &out) == nil {
				metrics.RedisHitsTotal.Inc()
				return out
			}
		}
		metrics.RedisMissesTotal.Inc()
	}
	data := s.cache.Get(ctx)
	if s.rc != nil {
		if b, err := json.Marshal(data); err == nil {
			s.rc.Set(ctx, redisKey, string(b), time.Hour)
		}
	}
	return data
}

func strField(m map[string]any, key string) *string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return &s
		}
	}
	return nil
}

// floatField：上游经纬度可能是数值或字符串，宽松解析
func floatField(m map[string]any, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		return &x
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return &f
		}
	}
	return nil
}

func toRestroom(m map[string]any) Restroom {
	return Restroom{
		Name:         strField(m, "name"),
		Location:     strField(m, "location"),
		Address:      strField(m, "address"),
		Hours:        strField(m, "hours"),
		Neighborhood: strField(m, "neighborhood"),
		Latitude:     floatField(m, "latitude"),
		Longitude:    floatField(m, "longitude"),
	}
}

// List：完整数据集
func (s *Service) List(ctx context.Context) []Restroom {
	records := s.records(ctx)
	out := make([]Restroom, 0, len(records))
	for _, m := range records {
		out = append(out, toRestroom(m))
	}
	return out
}

// Nearby：半径内（含边界）过滤；坐标缺失或不可解析的行跳过
func (s *Service) Nearby(ctx context.Context, lat, lon, radiusMiles float64) []Restroom {
	records := s.records(ctx)
	out := make([]Restroom, 0)
	for _, m := range records {
		r := toRestroom(m)
		if r.Latitude == nil || r.Longitude == nil || !geo.ValidCoords(*r.Latitude, *r.Longitude) {
			continue
		}
		if geo.Miles(lat, lon, *r.Latitude, *r.Longitude) <= radiusMiles {
			out = append(out, r)
		}
	}
	logger.L().Debug("restrooms_nearby", "lat", lat, "lon", lon, "radius", radiusMiles, "hits", len(out))
	return out
}

// ByNeighborhood：社区名大小写不敏感的等值过滤
func (s *Service) ByNeighborhood(ctx context.Context, neighborhood string) []Restroom {
	records := s.records(ctx)
	out := make([]Restroom, 0)
	for _, m := range records {
		r := toRestroom(m)
		if r.Neighborhood != nil && strings.EqualFold(*r.Neighborhood, neighborhood) {
			out = append(out, r)
		}
	}
	return out
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_requests_total",
		Help: "Total number of API requests",
	}, []string{"endpoint"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapable_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_cache_hits_total",
		Help: "Total TTL cache hits",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_cache_misses_total",
		Help: "Total TTL cache misses (stale or empty)",
	}, []string{"cache"})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapable_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapable_redis_misses_total",
		Help: "Total redis cache misses",
	})
	UpstreamFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_upstream_fetch_total",
		Help: "Upstream open-data fetch attempts by outcome",
	}, []string{"outcome"})
	UpstreamFetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mapable_upstream_fetch_duration_ms",
		Help:    "Upstream open-data fetch duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	ChatRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mapable_chat_requests_total",
		Help: "Total chat requests",
	})
	ChatFunctionCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_chat_function_calls_total",
		Help: "Chat function dispatches by operation and outcome",
	}, []string{"function", "outcome"})
	StoreMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mapable_store_mutations_total",
		Help: "Snapshot store mutations by table and operation",
	}, []string{"table", "op"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(UpstreamFetchTotal)
	prometheus.MustRegister(UpstreamFetchDurationMs)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatFunctionCallsTotal)
	prometheus.MustRegister(StoreMutationsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }

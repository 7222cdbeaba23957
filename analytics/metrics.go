// Package analytics 是只读的反馈回路：度量个性化效果（命中率、多样性、
// 偏置），不影响当前 feed，只为权重调优提供依据。
package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇集 feed 链路的 Prometheus 指标。
type Metrics struct {
	// FeedsServed 按模式（personalized / basic / fallback / cached）计数
	FeedsServed *prometheus.CounterVec

	// CacheHits / CacheMisses 缓存命中情况
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// AssembleLatency 一次装配的耗时分布
	AssembleLatency prometheus.Histogram

	// Interactions 按动作类型计数
	Interactions *prometheus.CounterVec

	// FeedDiversity 最近一次个性化 feed 的类型多样性（归一化熵）
	FeedDiversity prometheus.Gauge
}

// NewMetrics 注册并返回指标集合。reg 为 nil 时使用默认注册表。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FeedsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "feeds_served_total",
			Help:      "Feeds served, partitioned by serving mode.",
		}, []string{"mode"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "cache_hits_total",
			Help:      "Feed cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "cache_misses_total",
			Help:      "Feed cache misses.",
		}),
		AssembleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feedkit",
			Name:      "assemble_duration_seconds",
			Help:      "Feed assembly latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		Interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "interactions_total",
			Help:      "Tracked interactions, partitioned by action.",
		}, []string{"action"}),
		FeedDiversity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedkit",
			Name:      "feed_diversity",
			Help:      "Normalized type entropy of the most recent personalized feed.",
		}),
	}
}

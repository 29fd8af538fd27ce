package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for a cache instance.
type Metrics struct {
	HitsTotal      prometheus.Counter
	MissesTotal    prometheus.Counter
	EvictionsTotal prometheus.Counter
	Size           prometheus.Gauge
	BytesSaved     prometheus.Counter
}

// NewMetrics creates and registers the package's Prometheus metrics,
// guarded by sync.Once so repeated calls never hit "duplicate metrics
// collector registration" panics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "codemem_cache_hits_total",
				Help: "Total number of cache hits.",
			}),
			MissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "codemem_cache_misses_total",
				Help: "Total number of cache misses.",
			}),
			EvictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "codemem_cache_evictions_total",
				Help: "Total number of LRU evictions.",
			}),
			Size: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "codemem_cache_size",
				Help: "Current number of entries in the cache.",
			}),
			BytesSaved: promauto.NewCounter(prometheus.CounterOpts{
				Name: "codemem_cache_bytes_saved_total",
				Help: "Estimated bytes of recomputation avoided by cache hits.",
			}),
		}
	})
	return globalMetrics
}

// RecordCacheHit records a hit and its estimated byte footprint.
func (m *Metrics) RecordCacheHit(size int) {
	m.HitsTotal.Inc()
	m.BytesSaved.Add(float64(size))
}

// RecordCacheMiss records a miss.
func (m *Metrics) RecordCacheMiss() {
	m.MissesTotal.Inc()
}

// RecordEviction records an LRU eviction.
func (m *Metrics) RecordEviction() {
	m.EvictionsTotal.Inc()
}

// SetCacheSize updates the current entry-count gauge.
func (m *Metrics) SetCacheSize(size int) {
	m.Size.Set(float64(size))
}

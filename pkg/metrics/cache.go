package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unfound-os/unfoundfs/pkg/cache"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	lookups   *prometheus.CounterVec
	evictions prometheus.Counter
	resident  prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called);
// passing the nil on to a cache constructor disables collection with
// zero overhead.
func NewCacheMetrics() cache.Metrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "unfoundfs_cache_lookups_total",
				Help: "Total number of page cache lookups by outcome",
			},
			[]string{"status"}, // "hit", "miss"
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "unfoundfs_cache_evictions_total",
				Help: "Total number of pages evicted to admit new ones",
			},
		),
		resident: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "unfoundfs_cache_resident_pages",
				Help: "Number of pages currently resident in the cache",
			},
		),
	}
}

func (m *cacheMetrics) RecordHit() {
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *cacheMetrics) RecordMiss() {
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *cacheMetrics) RecordEviction() {
	m.evictions.Inc()
}

func (m *cacheMetrics) RecordResident(count int) {
	m.resident.Set(float64(count))
}

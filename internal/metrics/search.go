package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search, result cache and index metrics.
var (
	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	IndexProducts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_products",
			Help:      "Products in the published snapshot",
		},
		[]string{"state"}, // indexed / unindexed
	)

	IndexVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_version",
			Help:      "Version of the published snapshot",
		},
	)

	IndexRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rebuilds_total",
			Help:      "Index rebuilds by status",
		},
		[]string{"status"},
	)

	IndexRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_rejected_records_total",
			Help:      "Catalog records excluded from the index for data quality reasons",
		},
	)

	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Full index rebuild duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

var registerSearch sync.Once

// RegisterSearchMetrics registers search, cache and index metrics. Must be called once from main.
func RegisterSearchMetrics() {
	registerSearch.Do(func() {
		prometheus.MustRegister(
			ResultCacheTotal,
			IndexProducts,
			IndexVersion,
			IndexRebuildsTotal,
			IndexRejectedTotal,
			IndexRebuildDuration,
		)
	})
}

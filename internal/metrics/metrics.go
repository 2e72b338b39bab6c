// Package metrics exposes Prometheus instrumentation for the heatmap service.
//
// Metrics:
//   - heatmap_cache_hits_total / heatmap_cache_misses_total (counter)
//   - heatmap_cache_evictions_total (counter)
//   - heatmap_cache_entries (gauge)
//   - heatmap_aggregation_duration_seconds (histogram), labels: col_name
//   - heatmap_records_loaded (gauge)
//   - heatmap_load_errors_total (counter)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered for one service instance
type Metrics struct {
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CacheEvictions      prometheus.Counter
	CacheEntries        prometheus.Gauge
	AggregationDuration *prometheus.HistogramVec
	RecordsLoaded       prometheus.Gauge
	LoadErrors          prometheus.Counter
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "heatmap_cache_hits_total",
			Help: "Total number of heatmap cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "heatmap_cache_misses_total",
			Help: "Total number of heatmap cache misses",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Name: "heatmap_cache_evictions_total",
			Help: "Total number of entries evicted for capacity",
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "heatmap_cache_entries",
			Help: "Current number of cached heatmap responses",
		}),
		AggregationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heatmap_aggregation_duration_seconds",
			Help:    "Duration of load plus hex aggregation in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"col_name"}),
		RecordsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "heatmap_records_loaded",
			Help: "Number of records read by the last successful load",
		}),
		LoadErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "heatmap_load_errors_total",
			Help: "Total number of failed record loads",
		}),
	}
}

// ObserveAggregation records how long a load and aggregate took
func (m *Metrics) ObserveAggregation(column string, d time.Duration) {
	m.AggregationDuration.WithLabelValues(column).Observe(d.Seconds())
}

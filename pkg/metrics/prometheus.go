package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"MarketLens/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheLookups  *prometheus.CounterVec
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	lastPrice     *prometheus.GaugeVec
	sweepRemoved  prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_cache_lookups_total",
				Help: "Cache lookups by dataset kind and outcome",
			},
			[]string{"kind", "source"},
		),
		fetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketlens_fetches_total",
				Help: "Upstream fetches by dataset kind and result",
			},
			[]string{"kind", "result"},
		),
		fetchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketlens_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketlens_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		sweepRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "marketlens_sweep_removed_total",
				Help: "Snapshot artifacts removed by retention sweeps",
			},
		),
	}
}

// RecordCacheLookup records a cache lookup outcome.
func (r *Recorder) RecordCacheLookup(kind string, source models.CacheSource) {
	r.cacheLookups.WithLabelValues(kind, string(source)).Inc()
}

// RecordFetch records an upstream fetch result. A nil err counts as success,
// otherwise the error kind becomes the result label.
func (r *Recorder) RecordFetch(kind string, err *models.FetchError) {
	result := "ok"
	if err != nil {
		result = string(err.Kind)
	}
	r.fetchesTotal.WithLabelValues(kind, result).Inc()
}

// RecordFetchDuration records upstream fetch latency in seconds.
func (r *Recorder) RecordFetchDuration(seconds float64) {
	r.fetchDuration.Observe(seconds)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordSweep records the number of artifacts removed by a retention sweep.
func (r *Recorder) RecordSweep(removed int) {
	r.sweepRemoved.Add(float64(removed))
}

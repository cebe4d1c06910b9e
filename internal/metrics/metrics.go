package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "niftyfetcher"

// Metrics holds the collectors shared by the fetch pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchResults     *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	rateLimitWait    prometheus.Histogram
	batchDuration    *prometheus.HistogramVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fetchResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_results_total",
				Help:      "Per-ticker fetch results by kind and status.",
			},
			[]string{"kind", "status"},
		),
		providerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Provider requests by outcome (hit, miss, error).",
			},
			[]string{"outcome"},
		),
		rateLimitWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds",
				Help:      "Time provider calls spent blocked on the rate limiter.",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		batchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Wall time of a dispatched batch.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"kind"},
		),
	}
}

// ObserveResult counts one per-ticker result
func (m *Metrics) ObserveResult(kind, status string) {
	if m == nil {
		return
	}
	m.fetchResults.WithLabelValues(kind, status).Inc()
}

// ObserveProviderRequest counts a provider request outcome
func (m *Metrics) ObserveProviderRequest(outcome string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitWait records time spent waiting for quota
func (m *Metrics) ObserveRateLimitWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.Observe(d.Seconds())
}

// ObserveBatch records the duration of a dispatched batch
func (m *Metrics) ObserveBatch(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

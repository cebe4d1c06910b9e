package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveResult("live", "success")
	m.ObserveResult("live", "success")
	m.ObserveResult("historical", "error")
	m.ObserveProviderRequest("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("live", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchResults.WithLabelValues("historical", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerRequests.WithLabelValues("hit")))
}

func TestMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRateLimitWait(2 * time.Second)
	m.ObserveBatch("live", 150*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.rateLimitWait))
	assert.Equal(t, 1, testutil.CollectAndCount(m.batchDuration))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveResult("live", "success")
		m.ObserveProviderRequest("miss")
		m.ObserveRateLimitWait(time.Second)
		m.ObserveBatch("live", time.Second)
	})
}

package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}

	m.Counter("test", 1)
	m.Gauge("test", 1.0)
	m.Timing("test", time.Second)
}

func TestInMemoryMetrics(t *testing.T) {
	t.Run("counter with tags", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Counter(MetricHTTPRequests, 1, T("route", "assign"), T("status", "200"))
		m.Counter(MetricHTTPRequests, 1, T("status", "200"), T("route", "assign"))
		m.Counter(MetricHTTPRequests, 1, T("route", "assign"), T("status", "409"))

		assert.Equal(t, int64(2), m.GetCounter(MetricHTTPRequests, T("route", "assign"), T("status", "200")))
		assert.Equal(t, int64(1), m.GetCounter(MetricHTTPRequests, T("status", "409"), T("route", "assign")))
	})

	t.Run("gauge keeps the last value", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Gauge(MetricBreakerState, 2, T("name", "agenda"))
		m.Gauge(MetricBreakerState, 0, T("name", "agenda"))

		assert.Equal(t, 0.0, m.GetGauge(MetricBreakerState, T("name", "agenda")))
	})

	t.Run("timings", func(t *testing.T) {
		m := NewInMemoryMetrics()

		m.Timing(MetricHTTPDuration, 10*time.Millisecond)
		m.Timing(MetricHTTPDuration, 20*time.Millisecond)

		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, m.GetTimings(MetricHTTPDuration))
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		m := NewInMemoryMetrics()
		m.Counter(MetricCacheHits, 3)

		snap := m.Snapshot()
		m.Counter(MetricCacheHits, 1)

		assert.Equal(t, int64(3), snap.Counters[MetricCacheHits])
		assert.Equal(t, int64(4), m.GetCounter(MetricCacheHits))
	})
}

func TestFormatKey(t *testing.T) {
	tests := []struct {
		name     string
		tags     []Tag
		expected string
	}{
		{"no tags", nil, "requests"},
		{"single tag", []Tag{T("method", "GET")}, "requests:method=GET"},
		{"sorted tags", []Tag{T("status", "200"), T("method", "GET")}, "requests:method=GET:status=200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatKey("requests", tt.tags))
		})
	}
}

package observability

import (
	"time"
)

// Timer measures one operation and records it as a counter plus a timing.
type Timer struct {
	name    string
	start   time.Time
	metrics Metrics
	tags    []Tag
}

// StartTimer starts timing an operation reported under name.
func StartTimer(metrics Metrics, name string, tags ...Tag) *Timer {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Timer{name: name, start: time.Now(), metrics: metrics, tags: tags}
}

// Stop records the duration with extra tags, e.g. the outcome.
func (t *Timer) Stop(extra ...Tag) time.Duration {
	duration := time.Since(t.start)
	tags := append(append([]Tag{}, t.tags...), extra...)
	t.metrics.Timing(t.name+".duration", duration, tags...)
	t.metrics.Counter(t.name+".total", 1, tags...)
	return duration
}

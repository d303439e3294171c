package authclient

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes cache behavior to Prometheus. All methods are nil-safe so
// an AuthClient without metrics skips instrumentation entirely.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

// NewMetrics creates and registers the cache metric set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_user_cache_hits_total",
			Help: "Revalidated user cache hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_user_cache_misses_total",
			Help: "User cache misses resulting in a directory fetch.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_user_cache_evictions_total",
			Help: "Entries evicted by staleness, age, or the sweeper.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "auth_user_cache_entries",
			Help: "Current number of cached user identities.",
		}),
	}

	reg.MustRegister(m.hits, m.misses, m.evictions, m.entries)
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) evict(n int) {
	if m != nil {
		m.evictions.Add(float64(n))
	}
}

func (m *Metrics) setEntries(n int) {
	if m != nil {
		m.entries.Set(float64(n))
	}
}

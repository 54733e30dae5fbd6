package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports the Cache Fabric's hit/miss and traversal latency
// statistics to Prometheus, additive to the in-memory Stats structure
// which remains the authoritative source.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	traversal *prometheus.HistogramVec

	lastHits   map[string]int64
	lastMisses map[string]int64
}

// NewMetrics registers the Fabric's counters and histogram on reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gograph",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache fabric hits by cache key.",
		}, []string{"key"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gograph",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache fabric misses by cache key.",
		}, []string{"key"}),
		traversal: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gograph",
			Subsystem: "cache",
			Name:      "traversal_seconds",
			Help:      "Traversal memo response time.",
		}, []string{"key"}),
	}
	reg.MustRegister(m.hits, m.misses, m.traversal)
	m.lastHits = make(map[string]int64)
	m.lastMisses = make(map[string]int64)
	return m
}

// Observe copies a Stats snapshot's counters into the registered
// Prometheus series, adding only the delta since the last Observe call
// (the Snapshot itself is a cumulative lifetime total). Intended to be
// called periodically, e.g. by the same timer driving warm-cache
// persistence.
func (m *Metrics) Observe(snap Snapshot) {
	for k, v := range snap.Hits {
		m.hits.WithLabelValues(k).Add(float64(v - m.lastHits[k]))
		m.lastHits[k] = v
	}
	for k, v := range snap.Misses {
		m.misses.WithLabelValues(k).Add(float64(v - m.lastMisses[k]))
		m.lastMisses[k] = v
	}
	for k, d := range snap.TraversalMean {
		m.traversal.WithLabelValues(k).Observe(d.Seconds())
	}
}

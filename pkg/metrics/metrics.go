// Package metrics holds the Prometheus collectors for catalog traffic, the
// cache, and recommendations. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	catalogCalls     *prometheus.CounterVec
	catalogDuration  *prometheus.HistogramVec
	rateLimitWait    *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	recommendations  *prometheus.CounterVec
	recommendLatency prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		catalogCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "partscope_catalog_calls_total",
			Help: "Catalog API calls by vendor and outcome",
		}, []string{"vendor", "outcome"}),
		catalogDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "partscope_catalog_call_duration_seconds",
			Help:    "Catalog API call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 9), // 50ms to ~13s
		}, []string{"vendor"}),
		rateLimitWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "partscope_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate limiter token",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"vendor"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "partscope_cache_lookups_total",
			Help: "Cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "partscope_recommendations_total",
			Help: "Recommendation requests by category and outcome",
		}, []string{"category", "outcome"}),
		recommendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "partscope_recommendation_duration_seconds",
			Help:    "End to end recommendation latency",
			Buckets: prometheus.ExponentialBuckets(0.001, 3, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.catalogCalls, m.catalogDuration, m.rateLimitWait,
		m.cacheLookups, m.recommendations, m.recommendLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) CatalogCall(vendor, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.catalogCalls.WithLabelValues(vendor, outcome).Inc()
	m.catalogDuration.WithLabelValues(vendor).Observe(d.Seconds())
}

func (m *Metrics) RateLimitWait(vendor string, d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimitWait.WithLabelValues(vendor).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Recommendation(category, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(category, outcome).Inc()
	m.recommendLatency.Observe(d.Seconds())
}

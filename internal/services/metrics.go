package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KokiWakatsuki/lingua-path/back/internal/cache"
)

const metricsNamespace = "lingua_ai"

// CacheStatsSource is implemented by the response cache backends.
type CacheStatsSource interface {
	Stats() cache.Stats
}

// Collector is a prometheus.Collector for the AI orchestration pipeline.
type Collector struct {
	requests         *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	tokens           *prometheus.CounterVec
	cost             *prometheus.CounterVec
	coursesGenerated *prometheus.CounterVec
	cacheHits        prometheus.CounterFunc
	cacheMisses      prometheus.CounterFunc
}

// NewMetricsCollector returns a new Collector. stats may be nil when the
// response cache is disabled.
func NewMetricsCollector(stats CacheStatsSource) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "AI requests by outcome (provider, cache, rate_limited, failed).",
			}, []string{"outcome"},
		),
		providerAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "provider_attempts_total",
				Help:      "Provider calls by provider and result.",
			}, []string{"provider", "result"},
		),
		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "provider_latency_seconds",
				Help:      "Time taken by a provider call.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			}, []string{"provider"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "tokens_total",
				Help:      "Tokens consumed by successful provider calls.",
			}, []string{"provider"},
		),
		cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "estimated_cost_usd_total",
				Help:      "Estimated spend of successful provider calls in USD.",
			}, []string{"provider"},
		),
		coursesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "courses_generated_total",
				Help:      "Course generation attempts by result.",
			}, []string{"result"},
		),
	}
	if stats != nil {
		c.cacheHits = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hits_total",
			Help:      "Response cache hits.",
		}, func() float64 { return float64(stats.Stats().Hits) })
		c.cacheMisses = prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_misses_total",
			Help:      "Response cache misses.",
		}, func() float64 { return float64(stats.Stats().Misses) })
	}
	return c
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.providerAttempts.Describe(ch)
	c.providerLatency.Describe(ch)
	c.tokens.Describe(ch)
	c.cost.Describe(ch)
	c.coursesGenerated.Describe(ch)
	if c.cacheHits != nil {
		c.cacheHits.Describe(ch)
		c.cacheMisses.Describe(ch)
	}
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.providerAttempts.Collect(ch)
	c.providerLatency.Collect(ch)
	c.tokens.Collect(ch)
	c.cost.Collect(ch)
	c.coursesGenerated.Collect(ch)
	if c.cacheHits != nil {
		c.cacheHits.Collect(ch)
		c.cacheMisses.Collect(ch)
	}
}

// The record helpers accept a nil receiver so the pipeline runs without metrics.

func (c *Collector) recordRequest(outcome string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(outcome).Inc()
}

func (c *Collector) recordAttempt(provider string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.providerAttempts.WithLabelValues(provider, result).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (c *Collector) recordUsage(provider string, tokens int, cost float64) {
	if c == nil {
		return
	}
	c.tokens.WithLabelValues(provider).Add(float64(tokens))
	c.cost.WithLabelValues(provider).Add(cost)
}

func (c *Collector) recordCourse(result string) {
	if c == nil {
		return
	}
	c.coursesGenerated.WithLabelValues(result).Inc()
}

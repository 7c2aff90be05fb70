// Package metrics provides Prometheus metrics export for the chat pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "shoptalk"
	subsystem = "ai"
)

// PrometheusExporter exports chat pipeline metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	chatRequests *prometheus.CounterVec
	chatLatency  *prometheus.HistogramVec
	llmFallbacks prometheus.Counter

	cacheLookups *prometheus.CounterVec

	catalogSize    *prometheus.GaugeVec
	catalogReloads prometheus.Counter

	matchThreshold      prometheus.Gauge
	similarityThreshold prometheus.Gauge
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_requests_total",
			Help:      "Total chat requests by intent and cache tier outcome",
		},
		[]string{"intent", "cache"},
	)

	e.chatLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_latency_seconds",
			Help:      "Chat request latency by cache tier outcome",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"cache"},
	)

	e.llmFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_fallbacks_total",
			Help:      "Chat requests answered with the fallback because the LLM was unavailable",
		},
	)

	e.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by outcome (exact, similarity, miss)",
		},
		[]string{"outcome"},
	)

	e.catalogSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_records",
			Help:      "Records in the active catalog index by kind",
		},
		[]string{"kind"},
	)

	e.catalogReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_reloads_total",
			Help:      "Successful catalog index swaps",
		},
	)

	e.matchThreshold = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "match_threshold",
			Help:      "Configured fuzzy match acceptance threshold",
		},
	)

	e.similarityThreshold = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_similarity_threshold",
			Help:      "Configured cache similarity acceptance threshold",
		},
	)

	registry.MustRegister(
		e.chatRequests,
		e.chatLatency,
		e.llmFallbacks,
		e.cacheLookups,
		e.catalogSize,
		e.catalogReloads,
		e.matchThreshold,
		e.similarityThreshold,
	)

	return e
}

// RecordChatRequest records one completed chat request.
func (e *PrometheusExporter) RecordChatRequest(intent, cacheOutcome string, duration time.Duration) {
	e.chatRequests.WithLabelValues(intent, cacheOutcome).Inc()
	e.chatLatency.WithLabelValues(cacheOutcome).Observe(duration.Seconds())
}

// RecordCacheLookup records a response cache lookup outcome.
func (e *PrometheusExporter) RecordCacheLookup(outcome string) {
	e.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordFallback records a request answered with the unavailable fallback.
func (e *PrometheusExporter) RecordFallback() {
	e.llmFallbacks.Inc()
}

// RecordCatalogReload records a successful index swap and its new sizes.
func (e *PrometheusExporter) RecordCatalogReload(sizes map[string]int) {
	e.catalogReloads.Inc()
	for kind, n := range sizes {
		e.catalogSize.WithLabelValues(kind).Set(float64(n))
	}
}

// SetThresholds publishes the configured score thresholds.
func (e *PrometheusExporter) SetThresholds(match, similarity float64) {
	e.matchThreshold.Set(match)
	e.similarityThreshold.Set(similarity)
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

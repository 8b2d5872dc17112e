// Package telemetry defines the Prometheus collectors for the retrieval
// pipeline and exposes an HTTP handler for scraping. Metric emission is a
// side effect and must never fail a request.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal  *prometheus.CounterVec
	SearchLatency  *prometheus.HistogramVec
	SearchResults  *prometheus.HistogramVec
	IndexedChunks  prometheus.Gauge
	ThresholdTotal *prometheus.CounterVec

	AssembleTotal    *prometheus.CounterVec
	AssembleDuration prometheus.Histogram
	ContextItems     prometheus.Histogram
	ContextTokens    prometheus.Histogram

	CompressionsTotal     *prometheus.CounterVec
	BudgetViolationsTotal *prometheus.CounterVec
}

// New creates and registers all pipeline metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_searches_total",
				Help: "Total retrieval searches by path (lexical, vector) and status (ok, empty, error).",
			},
			[]string{"path", "status"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_search_latency_seconds",
				Help:    "Search latency in seconds by retrieval path.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"path"},
		),
		SearchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "retrieval_search_results",
				Help:    "Number of results returned per search by retrieval path.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"path"},
		),
		IndexedChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "retrieval_indexed_chunks",
				Help: "Number of chunks currently held by the lexical index.",
			},
		),
		ThresholdTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_threshold_strategy_total",
				Help: "Threshold optimizations by chosen strategy.",
			},
			[]string{"strategy"},
		),
		AssembleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_assemble_total",
				Help: "Context assembly requests by status (ok, degraded, error).",
			},
			[]string{"status"},
		),
		AssembleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_assemble_duration_seconds",
				Help:    "End to end context assembly latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		ContextItems: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_context_items",
				Help:    "Items per assembled context.",
				Buckets: []float64{0, 1, 2, 5, 10, 15, 25},
			},
		),
		ContextTokens: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "retrieval_context_tokens",
				Help:    "Token count per assembled context.",
				Buckets: []float64{100, 500, 1000, 2500, 5000, 10000, 25000},
			},
		),
		CompressionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_compressions_total",
				Help: "Compression passes by outcome (compressed, passthrough).",
			},
			[]string{"outcome"},
		),
		BudgetViolationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "retrieval_budget_violations_total",
				Help: "Budget checks that exceeded an allocation, by kind (slice, total).",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.SearchesTotal,
		m.SearchLatency,
		m.SearchResults,
		m.IndexedChunks,
		m.ThresholdTotal,
		m.AssembleTotal,
		m.AssembleDuration,
		m.ContextItems,
		m.ContextTokens,
		m.CompressionsTotal,
		m.BudgetViolationsTotal,
	)

	return m
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

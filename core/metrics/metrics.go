package metrics

import (
	"net/http"

	"media-reconciler/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the reconciliation engine.
// It implements reconcile.Observer.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RoundsPerRun     prometheus.Histogram
	ResultsPerRun    prometheus.Histogram
	ItemsTotal       *prometheus.CounterVec
	RequestSize      prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	FetchErrorsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_reconcile_runs_total",
				Help: "Completed reconciliation runs by stop reason.",
			},
			[]string{"stop"},
		),
		RoundsPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "media_reconcile_rounds",
				Help:    "Round trips per reconciliation run.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50},
			},
		),
		ResultsPerRun: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "media_reconcile_results",
				Help:    "Qualified items returned per run.",
				Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
			},
		),
		ItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_reconcile_items_total",
				Help: "Items seen by the batch reconciler by outcome (qualified, excluded, deferred, disqualified).",
			},
			[]string{"outcome"},
		),
		RequestSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "media_reconcile_request_size",
				Help:    "Items requested per round trip.",
				Buckets: []float64{1, 2, 5, 10, 15, 20},
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_result_cache_lookups_total",
				Help: "Result cache lookups by status (hit, miss).",
			},
			[]string{"status"},
		),
		FetchErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_search_errors_total",
				Help: "Failed media searches by kind (invalid, not_found, upstream, transport, cancelled).",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RoundsPerRun,
		m.ResultsPerRun,
		m.ItemsTotal,
		m.RequestSize,
		m.CacheLookups,
		m.FetchErrorsTotal,
	)

	return m
}

// ObserveRound implements reconcile.Observer.
func (m *Metrics) ObserveRound(req reconcile.Request, outcome reconcile.BatchOutcome) {
	m.RequestSize.Observe(float64(req.Size))
	m.ItemsTotal.WithLabelValues("qualified").Add(float64(len(outcome.Qualified)))
	m.ItemsTotal.WithLabelValues("excluded").Add(float64(outcome.Excluded))
	m.ItemsTotal.WithLabelValues("deferred").Add(float64(outcome.Deferred))
	m.ItemsTotal.WithLabelValues("disqualified").Add(float64(outcome.Disqualified))
}

// ObserveRun implements reconcile.Observer.
func (m *Metrics) ObserveRun(summary reconcile.RunSummary) {
	m.RunsTotal.WithLabelValues(string(summary.Stop)).Inc()
	m.RoundsPerRun.Observe(float64(summary.Rounds))
	m.ResultsPerRun.Observe(float64(summary.Qualified))
}

// ObserveCache records a result cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	status := "miss"
	if hit {
		status = "hit"
	}
	m.CacheLookups.WithLabelValues(status).Inc()
}

// ObserveError records a failed search of the given kind.
func (m *Metrics) ObserveError(kind string) {
	m.FetchErrorsTotal.WithLabelValues(kind).Inc()
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

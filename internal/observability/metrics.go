package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the predictor.
type Metrics struct {
	Predictions        *prometheus.CounterVec // labels: outcome={chance,no_chance}
	PredictionErrors   *prometheus.CounterVec // labels: class={missing_field,invalid_input,missing_artifact,schema_mismatch,inference}
	PredictionDuration prometheus.Histogram
	UnseenCategories   *prometheus.CounterVec // labels: column

	// Artifact metrics.
	ArtifactLoads   *prometheus.CounterVec // labels: result={success,failure}
	ArtifactsLoaded prometheus.Gauge

	// Sink metrics.
	EventsPublished *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all predictor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Predictions,
		m.PredictionErrors,
		m.PredictionDuration,
		m.UnseenCategories,
		m.ArtifactLoads,
		m.ArtifactsLoaded,
		m.EventsPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "predictions_total",
			Help:      "Predictions served by outcome.",
		}, []string{"outcome"}),
		PredictionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "prediction_errors_total",
			Help:      "Failed prediction requests by error class.",
		}, []string{"class"}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rainfall",
			Name:      "prediction_duration_seconds",
			Help:      "Time from parsed form to prediction, including any lazy artifact load.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		UnseenCategories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "unseen_categories_total",
			Help:      "Categorical values replaced by the fallback code, by column.",
		}, []string{"column"}),
		ArtifactLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "artifact_loads_total",
			Help:      "Artifact bundle load attempts by result.",
		}, []string{"result"}),
		ArtifactsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainfall",
			Name:      "artifacts_loaded",
			Help:      "1 when a complete artifact bundle is in memory, 0 otherwise.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainfall",
			Name:      "events_published_total",
			Help:      "Prediction events handed to sinks by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}

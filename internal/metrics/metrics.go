// Package metrics provides the centralized Prometheus registry for blending runs.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/oscar-odds/internal/models"
)

const namespace = "oscar_odds"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	CategoriesBlendedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "categories_blended_total",
		Help:      "Total number of category distributions produced",
	}, []string{"stage"})
	CategoriesSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "categories_skipped_total",
		Help:      "Total number of categories skipped for lack of a usable prior",
	}, []string{"stage"})
	SignalsAttachedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_attached_total",
		Help:      "Total number of precursor signals attached to candidates",
	}, []string{"tier"})
	UnmatchedSignalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unmatched_signals_total",
		Help:      "Total number of precursor signals that matched no candidate",
	}, []string{"category"})
	AmbiguousMatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ambiguous_matches_total",
		Help:      "Total number of signals that matched more than one candidate",
	}, []string{"category"})
	ModelPredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_predictions_total",
		Help:      "Total number of base probability predictions",
	}, []string{"cache_hit"})
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Total number of pipeline runs",
	}, []string{"status"})
)

// Gauge metrics
var (
	TopProbability = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "top_probability",
		Help:      "Final probability of the leading candidate per category and stage",
	}, []string{"stage", "category"})
	ModelCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_cache_hit_ratio",
		Help:      "Base probability prediction cache hit ratio",
	})
)

// Histogram metrics
var (
	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(CategoriesBlendedTotal)
		registry.MustRegister(CategoriesSkippedTotal)
		registry.MustRegister(SignalsAttachedTotal)
		registry.MustRegister(UnmatchedSignalsTotal)
		registry.MustRegister(AmbiguousMatchesTotal)
		registry.MustRegister(ModelPredictionsTotal)
		registry.MustRegister(PipelineRunsTotal)

		registry.MustRegister(TopProbability)
		registry.MustRegister(ModelCacheHitRatio)

		registry.MustRegister(PipelineDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry in text exposition format for the node
// exporter textfile collector. Batch runs have no scrape window.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, GetRegistry())
}

// RecordCategoryBlended records a produced distribution and its leading probability.
func RecordCategoryBlended(stage, category string, top float64) {
	CategoriesBlendedTotal.WithLabelValues(stage).Inc()
	TopProbability.WithLabelValues(stage, category).Set(top)
}

// RecordCategorySkipped records a category skipped for invalid input.
func RecordCategorySkipped(stage string) {
	CategoriesSkippedTotal.WithLabelValues(stage).Inc()
}

// RecordSignalAttached records a signal attached to at least one candidate.
func RecordSignalAttached(tier models.BoostTier) {
	label := string(tier)
	if label == "" {
		label = "ungrouped"
	}
	SignalsAttachedTotal.WithLabelValues(label).Inc()
}

// RecordModelPrediction records a base probability prediction.
func RecordModelPrediction(cacheHit bool) {
	label := "false"
	if cacheHit {
		label = "true"
	}
	ModelPredictionsTotal.WithLabelValues(label).Inc()
}

// UpdateModelCacheHitRatio updates the prediction cache hit ratio gauge.
func UpdateModelCacheHitRatio(ratio float64) {
	ModelCacheHitRatio.Set(ratio)
}

// RecordPipelineRun records a finished pipeline run.
func RecordPipelineRun(durationSeconds float64, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	PipelineRunsTotal.WithLabelValues(status).Inc()
	PipelineDuration.Observe(durationSeconds)
}

// EventSink counts unmatched and ambiguous signal events.
type EventSink struct{}

// UnmatchedSignal implements blend.EventSink.
func (EventSink) UnmatchedSignal(categoryID, _ string, _ models.PrecursorSignal) {
	UnmatchedSignalsTotal.WithLabelValues(categoryID).Inc()
}

// AmbiguousMatch implements blend.EventSink.
func (EventSink) AmbiguousMatch(categoryID, _ string, _ models.PrecursorSignal, _ []string) {
	AmbiguousMatchesTotal.WithLabelValues(categoryID).Inc()
}

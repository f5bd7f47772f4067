// Package prometheus records assistant measurements as Prometheus metrics.
// Each Recorder owns a private registry.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/workorder-assistant/internal/core/ports/driven"
)

const namespace = "workorder"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder implements driven.MetricsRecorder on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	turnsTotal      *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	llmCallsTotal   *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	candidates      prometheus.Histogram
	sessionsExpired prometheus.Counter
}

// NewRecorder creates a recorder with Go runtime and process collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		// Labels: scenario (free_text, context_continuation, identifier_lookup), state
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "turns_total",
			Help:      "Total handled turns by scenario and resulting session state",
		}, []string{"scenario", "state"}),
		turnDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency including model calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"scenario"}),
		// Labels: operation (extract, normalize, work_details), success
		llmCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total model completion attempts by operation and outcome",
		}, []string{"operation", "success"}),
		llmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Model completion latency by operation",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recommender",
			Name:      "candidates",
			Help:      "Number of records above the score floor per recommendation",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 25, 50, 100},
		}),
		sessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "expired_total",
			Help:      "Sessions removed for inactivity",
		}),
	}
}

// TurnHandled implements driven.MetricsRecorder.
func (r *Recorder) TurnHandled(scenario, state string, duration time.Duration) {
	r.turnsTotal.WithLabelValues(scenario, state).Inc()
	r.turnDuration.WithLabelValues(scenario).Observe(duration.Seconds())
}

// LLMCall implements driven.MetricsRecorder.
func (r *Recorder) LLMCall(operation string, success bool, duration time.Duration) {
	r.llmCallsTotal.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
	r.llmDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Recommendations implements driven.MetricsRecorder.
func (r *Recorder) Recommendations(candidates int) {
	r.candidates.Observe(float64(candidates))
}

// SessionsExpired implements driven.MetricsRecorder.
func (r *Recorder) SessionsExpired(count int) {
	if count > 0 {
		r.sessionsExpired.Add(float64(count))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

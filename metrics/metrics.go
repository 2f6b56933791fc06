// Package metrics exposes Prometheus collectors for advisor runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the advisor collectors. A nil *Recorder records nothing.
type Recorder struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	ToolCallsTotal   *prometheus.CounterVec
	ToolLatency      *prometheus.HistogramVec
	RefinementsTotal *prometheus.CounterVec
	ResultQuality    prometheus.Histogram
	LLMRetriesTotal  prometheus.Counter
	FallbacksTotal   *prometheus.CounterVec
}

// New registers the collectors on reg under namespace. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer, namespace string) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "marketadvisor"
	}
	f := promauto.With(reg)

	return &Recorder{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of advisor runs",
			},
			[]string{"outcome"}, // outcome: success, synthesis_error, error
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Advisor run duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"refined"},
		),
		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of retrieval tool calls",
			},
			[]string{"tool", "outcome"}, // outcome: success, error
		),
		ToolLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_latency_seconds",
				Help:      "Retrieval tool latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"tool"},
		),
		RefinementsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refinements_total",
				Help:      "Total number of query refinements",
			},
			[]string{"strategy"},
		),
		ResultQuality: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "result_quality",
				Help:      "Overall result quality per evaluation",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),
		LLMRetriesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_retries_total",
				Help:      "Total number of LLM calls retried after a rate limit",
			},
		),
		FallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Total number of planner and refiner fallbacks",
			},
			[]string{"step"}, // step: planner, refiner
		),
	}
}

// Run records a finished run.
func (r *Recorder) Run(outcome string, refined bool, d time.Duration) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(outcome).Inc()
	label := "false"
	if refined {
		label = "true"
	}
	r.RunDuration.WithLabelValues(label).Observe(d.Seconds())
}

// ToolCall records one tool invocation.
func (r *Recorder) ToolCall(tool string, failed bool, d time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	r.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	r.ToolLatency.WithLabelValues(tool).Observe(d.Seconds())
}

// Refinement records a query refinement.
func (r *Recorder) Refinement(strategy string) {
	if r == nil {
		return
	}
	r.RefinementsTotal.WithLabelValues(strategy).Inc()
}

// Quality records the overall quality of an evaluation.
func (r *Recorder) Quality(q float64) {
	if r == nil {
		return
	}
	r.ResultQuality.Observe(q)
}

// LLMRetry records a rate-limited LLM call that is retried.
func (r *Recorder) LLMRetry() {
	if r == nil {
		return
	}
	r.LLMRetriesTotal.Inc()
}

// Fallback records a planner or refiner fallback.
func (r *Recorder) Fallback(step string) {
	if r == nil {
		return
	}
	r.FallbacksTotal.WithLabelValues(step).Inc()
}

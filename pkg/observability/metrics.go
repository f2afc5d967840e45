package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
)

const namespace = "essay"

// Metrics records step and run outcomes.
type Metrics struct {
	registry *prometheus.Registry

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
	runSteps     prometheus.Histogram
}

// NewMetrics creates the collectors on a private registry, so several
// engines can live in one process (and in tests) without clashing.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Agent steps by role and outcome.",
		}, []string{"role", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of agent invocations.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"role"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Finished runs by status and completion reason.",
		}, []string{"status", "completion"}),
		runSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_steps",
			Help:      "Number of steps taken by finished runs.",
			Buckets:   prometheus.LinearBuckets(4, 4, 8),
		}),
	}
	m.registry.MustRegister(
		m.stepsTotal, m.stepDuration, m.runsTotal, m.runSteps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepComplete: func(_ context.Context, e *domain.StepEvent) {
			m.stepDone(e)
		},
		OnStepFailed: func(_ context.Context, e *domain.StepEvent) {
			m.stepDone(e)
		},
		OnRunFinished: func(_ context.Context, e *domain.RunEvent) {
			m.runsTotal.WithLabelValues(string(e.Status), string(e.Completion)).Inc()
			m.runSteps.Observe(float64(e.Steps))
		},
	}
}

func (m *Metrics) stepDone(e *domain.StepEvent) {
	role := string(e.Role)
	m.stepsTotal.WithLabelValues(role, string(e.Outcome)).Inc()
	m.stepDuration.WithLabelValues(role).Observe(e.Duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

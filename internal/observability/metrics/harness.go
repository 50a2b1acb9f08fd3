package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// HarnessMetrics implements ports.RunObserver.
type HarnessMetrics struct {
	registry *prometheus.Registry
	service  string

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	outputBytes    *prometheus.HistogramVec
	decisionsTotal *prometheus.CounterVec
	confidence     *prometheus.HistogramVec
}

func NewHarnessMetrics(service string) *HarnessMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docroute",
			Subsystem: "harness",
			Name:      "engine_runs_total",
			Help:      "Total engine runs by engine and outcome.",
		},
		[]string{"service", "engine", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docroute",
			Subsystem: "harness",
			Name:      "engine_run_duration_seconds",
			Help:      "Engine subprocess wall-clock duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "engine", "status"},
	)
	outputBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docroute",
			Subsystem: "harness",
			Name:      "output_bytes",
			Help:      "Size of captured engine output in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"service", "engine"},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docroute",
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Routing decisions by selected engine.",
		},
		[]string{"service", "engine"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docroute",
			Subsystem: "router",
			Name:      "decision_confidence",
			Help:      "Confidence attached to routing decisions.",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"service", "engine"},
	)

	registry.MustRegister(runsTotal, runDuration, outputBytes, decisionsTotal, confidence)

	return &HarnessMetrics{
		registry:       registry,
		service:        service,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		outputBytes:    outputBytes,
		decisionsTotal: decisionsTotal,
		confidence:     confidence,
	}
}

func (m *HarnessMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *HarnessMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HarnessMetrics) ObserveDecision(decision domain.RoutingDecision) {
	engine := string(decision.Engine)
	m.decisionsTotal.WithLabelValues(m.service, engine).Inc()
	m.confidence.WithLabelValues(m.service, engine).Observe(decision.Confidence)
}

func (m *HarnessMetrics) ObserveRun(result domain.EngineRunResult) {
	status := result.Status()
	m.runsTotal.WithLabelValues(m.service, result.EngineName, status).Inc()
	m.runDuration.WithLabelValues(m.service, result.EngineName, status).Observe(result.RuntimeSeconds)
	if result.OutputPath != "" {
		m.outputBytes.WithLabelValues(m.service, result.EngineName).Observe(float64(result.OutputBytes))
	}
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *HarnessMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

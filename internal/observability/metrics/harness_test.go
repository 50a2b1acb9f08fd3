package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/docroute/internal/core/domain"
)

func TestObserveRunCountsByStatus(t *testing.T) {
	m := NewHarnessMetrics("test")

	m.ObserveRun(domain.EngineRunResult{EngineName: "ocr", OutputPath: "out/doc.ocr/", OutputBytes: 2048, RuntimeSeconds: 1})
	m.ObserveRun(domain.EngineRunResult{EngineName: "ocr", ExitCode: domain.ExitCodeTimeout, StderrTail: domain.TimeoutMarker})
	m.ObserveRun(domain.EngineRunResult{EngineName: "text", ExitCode: 1})

	if got := counterValue(t, m.Gatherer(), "docroute_harness_engine_runs_total", "ocr", "success"); got != 1 {
		t.Fatalf("expected 1 ocr success, got %v", got)
	}
	if got := counterValue(t, m.Gatherer(), "docroute_harness_engine_runs_total", "ocr", "timeout"); got != 1 {
		t.Fatalf("expected 1 ocr timeout, got %v", got)
	}
	if got := counterValue(t, m.Gatherer(), "docroute_harness_engine_runs_total", "text", "failed"); got != 1 {
		t.Fatalf("expected 1 text failure, got %v", got)
	}
}

func TestObserveDecisionAndTextfile(t *testing.T) {
	m := NewHarnessMetrics("test")
	m.ObserveDecision(domain.RoutingDecision{Engine: domain.EngineOCR, Confidence: 0.8})

	if got := counterValue(t, m.Gatherer(), "docroute_router_decisions_total", "ocr"); got != 1 {
		t.Fatalf("expected 1 ocr decision, got %v", got)
	}

	path := filepath.Join(t.TempDir(), "docroute.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), "docroute_router_decisions_total") {
		t.Fatalf("textfile missing decisions counter:\n%s", raw)
	}
}

// counterValue finds the counter whose label values, after "service", match want.
func counterValue(t *testing.T, g prometheus.Gatherer, name string, want ...string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			var values []string
			for _, label := range metric.GetLabel() {
				if label.GetName() != "service" {
					values = append(values, label.GetValue())
				}
			}
			if strings.Join(values, ",") == strings.Join(want, ",") {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

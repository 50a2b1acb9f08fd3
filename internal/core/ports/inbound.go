package ports

import (
	"context"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// DocumentRouter is the inbound contract for engine selection.
type DocumentRouter interface {
	Probe(ctx context.Context, path string) (domain.ProbeMetrics, error)
	Route(ctx context.Context, path string) (domain.RoutingDecision, error)
}

// EngineHarness runs a single engine. Failures are reported in the result,
// never as an error.
type EngineHarness interface {
	RunEngine(ctx context.Context, kind domain.Engine, inputPath, outputDir string, timeout time.Duration) domain.EngineRunResult
}

// DocumentConverter is the inbound contract for a full route+run+log invocation.
type DocumentConverter interface {
	Convert(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertReport, error)
}

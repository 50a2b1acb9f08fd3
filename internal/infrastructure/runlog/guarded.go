package runlog

import (
	"context"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
	"github.com/kirillkom/docroute/internal/infrastructure/resilience"
)

// Guarded retries a mirror append and stops calling it while its circuit is open.
type Guarded struct {
	next      ports.RunLog
	executor  *resilience.Executor
	operation string
}

func NewGuarded(next ports.RunLog, executor *resilience.Executor, operation string) *Guarded {
	return &Guarded{next: next, executor: executor, operation: operation}
}

func (g *Guarded) Append(ctx context.Context, logPath string, rows []domain.EngineRunResult) error {
	return g.executor.Execute(ctx, g.operation, func(ctx context.Context) error {
		return g.next.Append(ctx, logPath, rows)
	}, resilience.TransientClassifier)
}

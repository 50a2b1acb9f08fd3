package runlog

import (
	"context"
	"log/slog"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
)

// Tee writes to a primary log whose failure is fatal, then to best-effort
// mirrors whose failures are only logged.
type Tee struct {
	primary ports.RunLog
	mirrors []ports.RunLog
}

func NewTee(primary ports.RunLog, mirrors ...ports.RunLog) *Tee {
	return &Tee{primary: primary, mirrors: mirrors}
}

func (t *Tee) Append(ctx context.Context, logPath string, rows []domain.EngineRunResult) error {
	if err := t.primary.Append(ctx, logPath, rows); err != nil {
		return err
	}
	for _, mirror := range t.mirrors {
		if err := mirror.Append(ctx, logPath, rows); err != nil {
			slog.Warn("run_log_mirror_failed", "log_path", logPath, "rows", len(rows), "error", err)
		}
	}
	return nil
}

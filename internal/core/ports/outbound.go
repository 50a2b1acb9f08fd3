package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// DocumentAnalyzer inspects a document without modifying it.
type DocumentAnalyzer interface {
	ExtractText(ctx context.Context, path string) (string, error)
	PageImages(ctx context.Context, path string) ([]domain.PageImages, error)
}

// Command is an explicit argument vector; it is never passed through a shell.
type Command struct {
	Name string
	Args []string
	Dir  string
}

type ProcessResult struct {
	ExitCode int
	Duration time.Duration
	Stdout   string
	Stderr   string
	TimedOut bool
	// Err is set when the process could not be started or waited on.
	Err error
}

// ProcessRunner executes one external command under a wall-clock timeout.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command, timeout time.Duration) ProcessResult
}

// RunLog persists engine run rows append-only.
type RunLog interface {
	Append(ctx context.Context, logPath string, rows []domain.EngineRunResult) error
}

// RunObserver receives routing and run outcomes for metrics.
type RunObserver interface {
	ObserveDecision(decision domain.RoutingDecision)
	ObserveRun(result domain.EngineRunResult)
}

// MessageQueue publishes/consumes conversion requests.
type MessageQueue interface {
	PublishConversion(ctx context.Context, req domain.ConvertRequest) error
	SubscribeConversions(ctx context.Context, handler func(context.Context, domain.ConvertRequest) error) error
}

// UploadStore holds documents received over the network while they are
// analyzed.
type UploadStore interface {
	Save(ctx context.Context, data io.Reader) (string, error)
	Remove(path string) error
}

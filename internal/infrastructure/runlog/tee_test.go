package runlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/infrastructure/resilience"
)

type logFake struct {
	err   error
	calls int
	rows  []domain.EngineRunResult
}

func (f *logFake) Append(_ context.Context, _ string, rows []domain.EngineRunResult) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func TestTeePrimaryFailureIsReturnedAndSkipsMirrors(t *testing.T) {
	primary := &logFake{err: errors.New("read-only fs")}
	mirror := &logFake{}

	err := NewTee(primary, mirror).Append(context.Background(), "runs.csv", []domain.EngineRunResult{{EngineName: "ocr"}})
	if err == nil {
		t.Fatalf("expected primary error")
	}
	if mirror.calls != 0 {
		t.Fatalf("mirror must not be written when primary fails, got %d calls", mirror.calls)
	}
}

func TestTeeMirrorFailureIsSwallowed(t *testing.T) {
	primary := &logFake{}
	broken := &logFake{err: errors.New("db down")}
	healthy := &logFake{}

	rows := []domain.EngineRunResult{{EngineName: "ocr"}, {EngineName: "text"}}
	if err := NewTee(primary, broken, healthy).Append(context.Background(), "runs.csv", rows); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(primary.rows) != 2 || len(healthy.rows) != 2 {
		t.Fatalf("expected rows in primary and healthy mirror, got %d and %d", len(primary.rows), len(healthy.rows))
	}
}

func TestGuardedRetriesMirror(t *testing.T) {
	flaky := &flakyLog{failures: 2}
	guarded := NewGuarded(flaky, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	}), "postgres.append")

	if err := guarded.Append(context.Background(), "runs.csv", []domain.EngineRunResult{{EngineName: "ocr"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if flaky.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", flaky.calls)
	}
}

type flakyLog struct {
	failures int
	calls    int
}

func (f *flakyLog) Append(context.Context, string, []domain.EngineRunResult) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

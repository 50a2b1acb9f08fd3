package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
)

type ConvertDefaults struct {
	Selector  domain.Engine
	OutputDir string
	LogPath   string
	Timeout   time.Duration
}

type ConvertUseCase struct {
	router   ports.DocumentRouter
	harness  ports.EngineHarness
	runLog   ports.RunLog
	observer ports.RunObserver
	defaults ConvertDefaults
}

func NewConvertUseCase(
	router ports.DocumentRouter,
	harness ports.EngineHarness,
	runLog ports.RunLog,
	observer ports.RunObserver,
	defaults ConvertDefaults,
) *ConvertUseCase {
	if defaults.Selector == "" {
		defaults.Selector = domain.EngineBoth
	}
	if defaults.OutputDir == "" {
		defaults.OutputDir = "out"
	}
	if defaults.LogPath == "" {
		defaults.LogPath = "runs_log.csv"
	}
	if defaults.Timeout == 0 {
		defaults.Timeout = 120 * time.Second
	}
	return &ConvertUseCase{
		router:   router,
		harness:  harness,
		runLog:   runLog,
		observer: observer,
		defaults: defaults,
	}
}

// Convert routes (when asked to), runs the selected engines one after the
// other and appends one log row per run. Engine failures are data in the
// report; only routing and log failures are returned as errors.
func (uc *ConvertUseCase) Convert(ctx context.Context, req domain.ConvertRequest) (*domain.ConvertReport, error) {
	req = uc.withDefaults(req)
	if err := validateInput(req.Path); err != nil {
		return nil, err
	}

	report := &domain.ConvertReport{Engine: req.Selector}
	if req.Selector == domain.EngineAuto {
		decision, err := uc.route(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		report.Decision = &decision
		report.Engine = decision.Engine
	}

	kinds := report.Engine.Kinds()
	if len(kinds) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "select engines", fmt.Errorf("unsupported engine %q", report.Engine))
	}

	for _, kind := range kinds {
		row := uc.harness.RunEngine(ctx, kind, req.Path, req.OutputDir, req.Timeout)
		if uc.observer != nil {
			uc.observer.ObserveRun(row)
		}
		report.Rows = append(report.Rows, row)
	}

	if err := uc.runLog.Append(ctx, req.LogPath, report.Rows); err != nil {
		return report, fmt.Errorf("append run log: %w", err)
	}
	return report, nil
}

func (uc *ConvertUseCase) route(ctx context.Context, path string) (domain.RoutingDecision, error) {
	decision, err := uc.router.Route(ctx, path)
	if err != nil {
		return domain.RoutingDecision{}, fmt.Errorf("route document: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ObserveDecision(decision)
	}
	return decision, nil
}

func (uc *ConvertUseCase) withDefaults(req domain.ConvertRequest) domain.ConvertRequest {
	if req.Selector == "" {
		req.Selector = uc.defaults.Selector
	}
	if req.OutputDir == "" {
		req.OutputDir = uc.defaults.OutputDir
	}
	if req.LogPath == "" {
		req.LogPath = uc.defaults.LogPath
	}
	if req.Timeout == 0 {
		req.Timeout = uc.defaults.Timeout
	}
	return req
}

func validateInput(path string) error {
	if path == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("document path is required"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate input", err)
	}
	if !info.Mode().IsRegular() {
		return domain.WrapError(domain.ErrInvalidInput, "validate input", fmt.Errorf("%s is not a regular file", path))
	}
	slog.Debug("input_validated", "path", path, "bytes", info.Size())
	return nil
}

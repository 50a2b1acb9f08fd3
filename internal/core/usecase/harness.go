package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
	"github.com/kirillkom/docroute/internal/infrastructure/staging"
)

type HarnessConfig struct {
	Engines map[domain.Engine]domain.EngineSpec
	// StagingDir is the parent of per-run staging areas; empty means os.TempDir().
	StagingDir string
	// Progress receives human-readable START/END lines; nil discards them.
	Progress io.Writer
}

type HarnessUseCase struct {
	engines    map[domain.Engine]domain.EngineSpec
	runner     ports.ProcessRunner
	stagingDir string
	progress   io.Writer
}

func NewHarnessUseCase(runner ports.ProcessRunner, cfg HarnessConfig) *HarnessUseCase {
	engines := cfg.Engines
	if len(engines) == 0 {
		engines = domain.DefaultEngineSpecs()
	}
	progress := cfg.Progress
	if progress == nil {
		progress = io.Discard
	}
	return &HarnessUseCase{
		engines:    engines,
		runner:     runner,
		stagingDir: cfg.StagingDir,
		progress:   progress,
	}
}

// RunEngine runs one engine against a private copy of inputPath. Every
// failure is folded into the returned result.
func (uc *HarnessUseCase) RunEngine(
	ctx context.Context,
	kind domain.Engine,
	inputPath, outputDir string,
	timeout time.Duration,
) domain.EngineRunResult {
	result := domain.EngineRunResult{EngineName: string(kind), InputPath: inputPath}

	spec, ok := uc.engines[kind]
	if !ok {
		return harnessFailure(result, "resolve engine", fmt.Errorf("no engine configured for %q", kind))
	}
	if spec.Name != "" {
		result.EngineName = spec.Name
	}

	area, err := staging.New(uc.stagingDir)
	if err != nil {
		return harnessFailure(result, "create staging area", err)
	}
	defer func() {
		if err := area.Close(); err != nil {
			slog.Warn("staging_cleanup_failed", "engine", result.EngineName, "dir", area.Root(), "error", err)
		}
	}()

	stagedInput, err := area.StageInput(inputPath)
	if err != nil {
		return harnessFailure(result, "stage input", err)
	}
	engineInput := stagedInput
	if spec.InputMode == domain.InputDirectory {
		engineInput = area.InputDir()
	}

	cmd := ports.Command{Name: spec.Binary, Args: spec.Argv(engineInput, area.OutputDir())}
	label := strings.ToUpper(result.EngineName)
	fmt.Fprintf(uc.progress, "[%s] START: %s\n", label, strings.Join(append([]string{cmd.Name}, cmd.Args...), " "))
	slog.Info("engine_run_start", "engine", result.EngineName, "input", inputPath, "timeout_s", timeout.Seconds())

	proc := uc.runner.Run(ctx, cmd, timeout)
	result.RuntimeSeconds = proc.Duration.Seconds()
	result.ExitCode = proc.ExitCode
	result.StderrTail = diagnosticTail(proc)

	switch {
	case proc.TimedOut:
		result.ExitCode = domain.ExitCodeTimeout
		result.StderrTail = appendDiagnostic(result.StderrTail, domain.TimeoutMarker)
		fmt.Fprintf(uc.progress, "[%s] TIMEOUT after %.2fs\n", label, result.RuntimeSeconds)
	case proc.Err != nil:
		result.StderrTail = appendDiagnostic(result.StderrTail, proc.Err.Error())
		fmt.Fprintf(uc.progress, "[%s] END rc=%d dt=%.2fs (%v)\n", label, result.ExitCode, result.RuntimeSeconds, proc.Err)
	default:
		fmt.Fprintf(uc.progress, "[%s] END rc=%d dt=%.2fs\n", label, result.ExitCode, result.RuntimeSeconds)
	}

	if result.ExitCode == 0 {
		uc.captureOutput(&result, spec, area.OutputDir(), outputDir)
	}

	slog.Info("engine_run_end",
		"engine", result.EngineName,
		"input", inputPath,
		"status", result.Status(),
		"return_code", result.ExitCode,
		"runtime_s", result.RuntimeSeconds,
		"output_path", result.OutputPath,
		"output_bytes", result.OutputBytes,
		"output_files", result.OutputFiles,
	)
	return result
}

func (uc *HarnessUseCase) captureOutput(result *domain.EngineRunResult, spec domain.EngineSpec, stagedOut, outputDir string) {
	outputPath, err := normalizeOutput(spec, stagedOut, outputDir, result.InputPath)
	if err != nil {
		slog.Warn("output_capture_failed", "engine", result.EngineName, "error", err)
		result.StderrTail = appendDiagnostic(result.StderrTail, "[capture] "+err.Error())
		return
	}
	if outputPath == "" {
		return
	}

	result.OutputBytes, result.OutputFiles = staging.TreeSize(outputPath)
	result.OutputPath = outputPath
	if spec.Layout == domain.LayoutDirectory {
		result.OutputPath += string(filepath.Separator)
	}
}

// normalizeOutput moves the staged output to its canonical location and
// returns that location, or "" when the engine produced nothing usable.
func normalizeOutput(spec domain.EngineSpec, stagedOut, outputDir, inputPath string) (string, error) {
	stem := staging.Stem(inputPath)

	switch spec.Layout {
	case domain.LayoutDirectory:
		dest := filepath.Join(outputDir, stem+"."+spec.Suffix)
		if err := staging.ReplaceDir(stagedOut, dest); err != nil {
			return "", fmt.Errorf("copy output dir: %w", err)
		}
		return dest, nil
	case domain.LayoutFile:
		newest, ok, err := staging.NewestFile(stagedOut, spec.OutputExt)
		if err != nil {
			return "", fmt.Errorf("search output files: %w", err)
		}
		if !ok {
			return "", nil
		}
		dest := filepath.Join(outputDir, stem+"."+spec.Suffix+spec.OutputExt)
		if err := staging.ReplaceFile(newest, dest); err != nil {
			return "", fmt.Errorf("copy output file: %w", err)
		}
		return dest, nil
	default:
		return "", fmt.Errorf("unknown output layout %q", spec.Layout)
	}
}

func diagnosticTail(proc ports.ProcessResult) string {
	if proc.Stderr != "" {
		return proc.Stderr
	}
	return proc.Stdout
}

func appendDiagnostic(tail, line string) string {
	if tail == "" {
		return line
	}
	return tail + "\n" + line
}

func harnessFailure(result domain.EngineRunResult, operation string, err error) domain.EngineRunResult {
	slog.Error("engine_run_harness_failure", "engine", result.EngineName, "operation", operation, "error", err)
	result.ExitCode = domain.ExitCodeHarnessFailure
	result.StderrTail = fmt.Sprintf("%s: %v", operation, err)
	return result
}

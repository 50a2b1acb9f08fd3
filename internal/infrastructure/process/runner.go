package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
)

// DiagnosticTailRunes is how many characters of each output stream are kept.
const DiagnosticTailRunes = 800

type Options struct {
	TailRunes int
	// WaitDelay bounds how long Wait keeps draining pipes after the process
	// was killed.
	WaitDelay time.Duration
}

type Runner struct {
	tailRunes int
	waitDelay time.Duration
}

func NewRunner(options Options) *Runner {
	tailRunes := options.TailRunes
	if tailRunes <= 0 {
		tailRunes = DiagnosticTailRunes
	}
	waitDelay := options.WaitDelay
	if waitDelay <= 0 {
		waitDelay = 2 * time.Second
	}
	return &Runner{tailRunes: tailRunes, waitDelay: waitDelay}
}

// Run starts cmd and waits for it. A non-positive timeout disables the
// deadline. On timeout the whole process group is killed.
func (r *Runner) Run(ctx context.Context, cmd ports.Command, timeout time.Duration) ports.ProcessResult {
	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	stdout := newTailBuffer(r.tailRunes)
	stderr := newTailBuffer(r.tailRunes)

	c := exec.CommandContext(runCtx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = r.waitDelay
	configureProcessGroup(c)

	start := time.Now()
	err := c.Run()
	result := ports.ProcessResult{
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		result.ExitCode = domain.ExitCodeTimeout
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitCode(exitErr)
		if ctx.Err() != nil {
			result.Err = fmt.Errorf("run canceled: %w", ctx.Err())
		}
	case c.ProcessState != nil:
		// Process exited but Wait failed, e.g. pipes still held open past WaitDelay.
		result.ExitCode = c.ProcessState.ExitCode()
		result.Err = err
	default:
		result.ExitCode = domain.ExitCodeLaunchFailure
		result.Err = fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	return result
}

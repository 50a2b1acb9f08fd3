package domain

import (
	"strconv"
	"strings"
)

const (
	ExitCodeTimeout        = 124
	ExitCodeLaunchFailure  = 127
	ExitCodeHarnessFailure = -1

	TimeoutMarker = "[timeout]"
)

var RunLogHeader = []string{
	"tool",
	"input_pdf",
	"output_path",
	"runtime_s",
	"return_code",
	"output_bytes",
	"output_files",
	"stderr_tail",
}

type EngineRunResult struct {
	EngineName     string  `json:"tool"`
	InputPath      string  `json:"input_pdf"`
	OutputPath     string  `json:"output_path"`
	RuntimeSeconds float64 `json:"runtime_s"`
	ExitCode       int     `json:"return_code"`
	OutputBytes    int64   `json:"output_bytes"`
	OutputFiles    int     `json:"output_files"`
	StderrTail     string  `json:"stderr_tail"`
}

func (r EngineRunResult) Succeeded() bool {
	return r.ExitCode == 0 && r.OutputPath != ""
}

func (r EngineRunResult) TimedOut() bool {
	return r.ExitCode == ExitCodeTimeout && strings.Contains(r.StderrTail, TimeoutMarker)
}

// Status is the coarse outcome label used by metrics and summaries.
func (r EngineRunResult) Status() string {
	switch {
	case r.TimedOut():
		return "timeout"
	case r.ExitCode != 0:
		return "failed"
	case r.OutputPath == "":
		return "no_output"
	default:
		return "success"
	}
}

// Record renders the row in RunLogHeader column order.
func (r EngineRunResult) Record() []string {
	return []string{
		r.EngineName,
		r.InputPath,
		r.OutputPath,
		strconv.FormatFloat(r.RuntimeSeconds, 'f', 3, 64),
		strconv.Itoa(r.ExitCode),
		strconv.FormatInt(r.OutputBytes, 10),
		strconv.Itoa(r.OutputFiles),
		r.StderrTail,
	}
}

package xlsx

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docroute/internal/core/domain"
)

const (
	RunsSheet    = "runs"
	SummarySheet = "summary"
)

var summaryHeader = []string{"tool", "runs", "success", "failed", "timeout", "no_output", "mean_runtime_s", "total_output_bytes"}

type toolSummary struct {
	runs, success, failed, timeout, noOutput int
	runtime                                  float64
	outputBytes                              int64
}

// Export writes the run rows to an XLSX workbook with one row per run and a
// per-tool summary sheet.
func Export(rows []domain.EngineRunResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RunsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRuns(f, rows); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, rows); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRuns(f *excelize.File, rows []domain.EngineRunResult) error {
	if err := writeHeader(f, RunsSheet, domain.RunLogHeader); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			row.EngineName,
			row.InputPath,
			row.OutputPath,
			row.RuntimeSeconds,
			row.ExitCode,
			row.OutputBytes,
			row.OutputFiles,
			row.StderrTail,
		}
		if err := f.SetSheetRow(RunsSheet, cell, &values); err != nil {
			return fmt.Errorf("write run row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(RunsSheet, "A", "C", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(RunsSheet, "H", "H", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(domain.RunLogHeader), len(rows)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(RunsSheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, rows []domain.EngineRunResult) error {
	if err := writeHeader(f, SummarySheet, summaryHeader); err != nil {
		return err
	}

	byTool := map[string]*toolSummary{}
	for _, row := range rows {
		s, ok := byTool[row.EngineName]
		if !ok {
			s = &toolSummary{}
			byTool[row.EngineName] = s
		}
		s.runs++
		s.runtime += row.RuntimeSeconds
		s.outputBytes += row.OutputBytes
		switch row.Status() {
		case "success":
			s.success++
		case "timeout":
			s.timeout++
		case "no_output":
			s.noOutput++
		default:
			s.failed++
		}
	}

	tools := make([]string, 0, len(byTool))
	for tool := range byTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	for i, tool := range tools {
		s := byTool[tool]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{tool, s.runs, s.success, s.failed, s.timeout, s.noOutput, s.runtime / float64(s.runs), s.outputBytes}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	values := make([]any, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

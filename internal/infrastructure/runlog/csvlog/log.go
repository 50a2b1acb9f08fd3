package csvlog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// Log appends engine run rows to a header-bearing CSV file. It never rewrites
// or truncates existing content; each row goes out in a single write.
type Log struct{}

func New() *Log {
	return &Log{}
}

func (l *Log) Append(ctx context.Context, logPath string, rows []domain.EngineRunResult) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrLogWrite, "append run log", err)
	}
	if err := appendRows(logPath, rows); err != nil {
		return domain.WrapError(domain.ErrLogWrite, "append run log", err)
	}
	return nil
}

func appendRows(logPath string, rows []domain.EngineRunResult) error {
	if logPath == "" {
		return errors.New("log path is required")
	}
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	if info.Size() == 0 {
		if err := writeRecord(f, domain.RunLogHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := writeRecord(f, row.Record()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return f.Close()
}

func writeRecord(f *os.File, record []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	_, err := f.Write(buf.Bytes())
	return err
}

// ReadAll parses an existing run log. A missing file yields no rows.
func ReadAll(logPath string) ([]domain.EngineRunResult, error) {
	f, err := os.Open(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(domain.RunLogHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]domain.EngineRunResult, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (domain.EngineRunResult, error) {
	runtime, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return domain.EngineRunResult{}, fmt.Errorf("runtime_s: %w", err)
	}
	code, err := strconv.Atoi(rec[4])
	if err != nil {
		return domain.EngineRunResult{}, fmt.Errorf("return_code: %w", err)
	}
	outBytes, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return domain.EngineRunResult{}, fmt.Errorf("output_bytes: %w", err)
	}
	outFiles, err := strconv.Atoi(rec[6])
	if err != nil {
		return domain.EngineRunResult{}, fmt.Errorf("output_files: %w", err)
	}
	return domain.EngineRunResult{
		EngineName:     rec[0],
		InputPath:      rec[1],
		OutputPath:     rec[2],
		RuntimeSeconds: runtime,
		ExitCode:       code,
		OutputBytes:    outBytes,
		OutputFiles:    outFiles,
		StderrTail:     rec[7],
	}, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docroute/internal/core/domain"
)

// RunRepository mirrors run log rows into Postgres for querying.
type RunRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent invocations.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS engine_runs (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	log_path TEXT NOT NULL,
	tool TEXT NOT NULL,
	input_pdf TEXT NOT NULL,
	output_path TEXT NOT NULL,
	runtime_s DOUBLE PRECISION NOT NULL,
	return_code INTEGER NOT NULL,
	output_bytes BIGINT NOT NULL,
	output_files INTEGER NOT NULL,
	stderr_tail TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

ALTER TABLE engine_runs ADD COLUMN IF NOT EXISTS seq BIGSERIAL;

CREATE INDEX IF NOT EXISTS idx_engine_runs_tool ON engine_runs(tool);
CREATE INDEX IF NOT EXISTS idx_engine_runs_created_at ON engine_runs(created_at DESC, seq DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Append inserts all rows in one transaction. Rows are only ever inserted.
func (r *RunRepository) Append(ctx context.Context, logPath string, rows []domain.EngineRunResult) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	createdAt := r.now()
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
INSERT INTO engine_runs (
	id, log_path, tool, input_pdf, output_path, runtime_s, return_code, output_bytes, output_files, stderr_tail, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
			uuid.NewString(), logPath, row.EngineName, row.InputPath, row.OutputPath, row.RuntimeSeconds,
			row.ExitCode, row.OutputBytes, row.OutputFiles, row.StderrTail, createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert engine run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	return nil
}

// Recent returns the latest rows, newest first. An empty tool matches every engine.
// Rows from one Append share created_at and keep their insertion order via seq.
func (r *RunRepository) Recent(ctx context.Context, tool string, limit int) ([]domain.EngineRunResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT tool, input_pdf, output_path, runtime_s, return_code, output_bytes, output_files, stderr_tail
FROM engine_runs
WHERE ($1 = '' OR tool = $1)
ORDER BY created_at DESC, seq DESC
LIMIT $2
`, tool, limit)
	if err != nil {
		return nil, fmt.Errorf("query engine runs: %w", err)
	}
	defer rows.Close()

	var out []domain.EngineRunResult
	for rows.Next() {
		var row domain.EngineRunResult
		if err := rows.Scan(
			&row.EngineName, &row.InputPath, &row.OutputPath, &row.RuntimeSeconds,
			&row.ExitCode, &row.OutputBytes, &row.OutputFiles, &row.StderrTail,
		); err != nil {
			return nil, fmt.Errorf("scan engine run: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engine runs: %w", err)
	}
	return out, nil
}

package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/docroute/internal/config"
	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
	"github.com/kirillkom/docroute/internal/core/usecase"
	"github.com/kirillkom/docroute/internal/infrastructure/analyzer/pdfprobe"
	"github.com/kirillkom/docroute/internal/infrastructure/process"
	"github.com/kirillkom/docroute/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docroute/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docroute/internal/infrastructure/resilience"
	"github.com/kirillkom/docroute/internal/infrastructure/runlog"
	"github.com/kirillkom/docroute/internal/infrastructure/runlog/csvlog"
	"github.com/kirillkom/docroute/internal/observability/metrics"
)

type Options struct {
	// Service labels metrics and logs, e.g. docroute-cli or docroute-worker.
	Service string
	// Progress receives the human-readable START/END lines; nil discards them.
	Progress io.Writer
}

type App struct {
	Config config.Config

	Router    *usecase.RouterUseCase
	Harness   *usecase.HarnessUseCase
	Converter *usecase.ConvertUseCase
	Metrics   *metrics.HarnessMetrics
	Executor  *resilience.Executor
	// Runs is nil unless POSTGRES_DSN is set and reachable.
	Runs *postgres.RunRepository

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	engines, err := cfg.Engines()
	if err != nil {
		return nil, fmt.Errorf("load engines: %w", err)
	}
	if opts.Service == "" {
		opts.Service = "docroute"
	}

	app := &App{
		Config:   cfg,
		Metrics:  metrics.NewHarnessMetrics(opts.Service),
		Executor: resilience.NewExecutor(resilienceConfig(cfg)),
	}

	app.Router = usecase.NewRouterUseCase(pdfprobe.New(cfg.MaxTextBytes), usecase.DefaultRoutingThresholds())
	app.Harness = usecase.NewHarnessUseCase(
		process.NewRunner(process.Options{WaitDelay: cfg.ProcessWait}),
		usecase.HarnessConfig{
			Engines:    engines,
			StagingDir: cfg.StagingDir,
			Progress:   opts.Progress,
		},
	)

	var runLog ports.RunLog = csvlog.New()
	if cfg.PostgresDSN != "" {
		if repo, db := openRunMirror(ctx, cfg.PostgresDSN); repo != nil {
			app.Runs = repo
			app.closeFns = append(app.closeFns, func() { _ = db.Close() })
			runLog = runlog.NewTee(runLog, runlog.NewGuarded(repo, app.Executor, "postgres.append_runs"))
		}
	}

	app.Converter = usecase.NewConvertUseCase(app.Router, app.Harness, runLog, app.Metrics, usecase.ConvertDefaults{
		Selector:  parseSelectorOrDefault(cfg.Engine),
		OutputDir: cfg.OutputDir,
		LogPath:   cfg.LogPath,
		Timeout:   cfg.Timeout,
	})
	return app, nil
}

// OpenQueue connects to NATS. Only the worker and enqueue paths need it.
func (a *App) OpenQueue() (*nats.Queue, error) {
	queue, err := nats.New(a.Config.NATSURL, a.Config.NATSSubject, nats.Options{
		ResilienceExecutor: a.Executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	a.closeFns = append(a.closeFns, queue.Close)
	return queue, nil
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}

// openRunMirror returns nil when the mirror cannot be used; the CSV log stays
// authoritative either way.
func openRunMirror(ctx context.Context, dsn string) (*postgres.RunRepository, *sql.DB) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		slog.Warn("run_mirror_disabled", "reason", "open", "error", err)
		return nil, nil
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Warn("run_mirror_disabled", "reason", "schema", "error", err)
		_ = db.Close()
		return nil, nil
	}
	return repo, db
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	rc.BreakerEnabled = cfg.BreakerEnabled
	return rc
}

func parseSelectorOrDefault(raw string) domain.Engine {
	selector, err := domain.ParseSelector(raw)
	if err != nil {
		slog.Warn("invalid_default_engine", "value", raw, "fallback", domain.EngineBoth)
		return domain.EngineBoth
	}
	return selector
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	httpadapter "github.com/kirillkom/docroute/internal/adapters/http"
	mcpadapter "github.com/kirillkom/docroute/internal/adapters/mcp"
	"github.com/kirillkom/docroute/internal/bootstrap"
	"github.com/kirillkom/docroute/internal/config"
	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/docroute/internal/infrastructure/runlog/csvlog"
	"github.com/kirillkom/docroute/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docroute/internal/observability/logging"
	"github.com/kirillkom/docroute/internal/observability/metrics"
)

func setup(c *cli.Context, service string, opts bootstrap.Options) (*bootstrap.App, error) {
	cfg := config.Load()
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	opts.Service = service
	app, err := bootstrap.New(c.Context, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}

func documentArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("usage: docroute %s <pdf>", c.Command.Name), 2)
	}
	return c.Args().First(), nil
}

// conversionRequest builds a request from flags; unset flags fall through to
// the configured defaults.
func conversionRequest(c *cli.Context, path string) (domain.ConvertRequest, error) {
	req := domain.ConvertRequest{
		Path:      path,
		OutputDir: c.String("outdir"),
		LogPath:   c.String("log"),
	}
	if raw := c.String("engine"); raw != "" {
		selector, err := domain.ParseSelector(raw)
		if err != nil {
			return req, cli.Exit(err.Error(), 2)
		}
		req.Selector = selector
	}
	if c.IsSet("timeout") {
		req.Timeout = time.Duration(c.Float64("timeout") * float64(time.Second))
		if req.Timeout <= 0 {
			req.Timeout = domain.NoTimeout
		}
	}
	return req, nil
}

func RunAction(c *cli.Context) error {
	path, err := documentArg(c)
	if err != nil {
		return err
	}
	req, err := conversionRequest(c, path)
	if err != nil {
		return err
	}
	app, err := setup(c, "docroute-cli", bootstrap.Options{Progress: c.App.Writer})
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Converter.Convert(c.Context, req)
	if report != nil {
		if report.Decision != nil {
			fmt.Fprintf(c.App.Writer, "Routed to %s (confidence %.1f)\n", report.Decision.Engine, report.Decision.Confidence)
		}
		printRuns(c, report.Rows)
	}
	if textfile := app.Config.MetricsTextfile; textfile != "" {
		if werr := app.Metrics.WriteTextfile(textfile); werr != nil {
			slog.Warn("metrics_textfile_failed", "path", textfile, "error", werr)
		}
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func printRuns(c *cli.Context, rows []domain.EngineRunResult) {
	fmt.Fprintln(c.App.Writer, "Logged runs:")
	for _, row := range rows {
		fmt.Fprintf(c.App.Writer, "   %s rc=%d status=%s dt=%.3fs out=%q bytes=%d files=%d\n",
			row.EngineName, row.ExitCode, row.Status(), row.RuntimeSeconds, row.OutputPath, row.OutputBytes, row.OutputFiles)
	}
}

func ProbeAction(c *cli.Context) error {
	path, err := documentArg(c)
	if err != nil {
		return err
	}
	app, err := setup(c, "docroute-cli", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	decision, err := app.Router.Route(c.Context, path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	raw, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	fmt.Fprintln(c.App.Writer, string(raw))
	return nil
}

func ExportAction(c *cli.Context) error {
	cfg := config.Load()
	logPath := c.String("log")
	if logPath == "" {
		logPath = cfg.LogPath
	}
	rows, err := csvlog.ReadAll(logPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := xlsx.Export(rows, c.String("out")); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "Exported %d runs to %s\n", len(rows), c.String("out"))
	return nil
}

func HistoryAction(c *cli.Context) error {
	app, err := setup(c, "docroute-cli", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()
	if app.Runs == nil {
		return cli.Exit("history needs a reachable POSTGRES_DSN", 1)
	}

	rows, err := app.Runs.Recent(c.Context, c.String("tool"), c.Int("limit"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(c.App.Writer, "No runs found")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%-6s %-9s %-6s %-10s %s\n", "TOOL", "STATUS", "RC", "RUNTIME_S", "INPUT")
	for _, row := range rows {
		fmt.Fprintf(c.App.Writer, "%-6s %-9s %-6d %-10.3f %s\n", row.EngineName, row.Status(), row.ExitCode, row.RuntimeSeconds, row.InputPath)
	}
	return nil
}

func ServeAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(c, "docroute-api", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	uploads, err := localfs.New(app.Config.UploadDir, ".pdf")
	if err != nil {
		return fmt.Errorf("init upload storage: %w", err)
	}
	handler := httpadapter.NewRouter(app.Config, app.Router, uploads, nil, app.Metrics.Gatherer()).Handler()
	server := httpadapter.NewServer(app.Config, handler)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func WorkerAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(c, "docroute-worker", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	queue, err := app.OpenQueue()
	if err != nil {
		return err
	}

	metricsServer := startMetricsServer(app.Config.WorkerMetricsPort, app.Metrics)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", app.Config.NATSSubject)
	return queue.SubscribeConversions(ctx, func(handlerCtx context.Context, req domain.ConvertRequest) error {
		_, err := app.Converter.Convert(handlerCtx, req)
		return err
	})
}

func startMetricsServer(port string, harnessMetrics *metrics.HarnessMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", harnessMetrics.Handler())
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	return server
}

func EnqueueAction(c *cli.Context) error {
	path, err := documentArg(c)
	if err != nil {
		return err
	}
	req, err := conversionRequest(c, path)
	if err != nil {
		return err
	}
	app, err := setup(c, "docroute-cli", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	queue, err := app.OpenQueue()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := queue.PublishConversion(c.Context, req); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	fmt.Fprintf(c.App.Writer, "Enqueued %s on %s\n", path, app.Config.NATSSubject)
	return nil
}

func MCPAction(c *cli.Context) error {
	app, err := setup(c, "docroute-mcp", bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()

	return mcpadapter.NewTools(app.Router, app.Converter).ServeStdio(version)
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "docroute:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "docroute",
		Usage:   "route PDFs to an OCR or text engine and run them under a harness",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run one or both engines on a PDF and append the run log",
				ArgsUsage: "<pdf>",
				Flags:     conversionFlags(),
				Action:    RunAction,
			},
			{
				Name:      "probe",
				Usage:     "print the routing decision for a PDF as JSON",
				ArgsUsage: "<pdf>",
				Action:    ProbeAction,
			},
			{
				Name:  "export",
				Usage: "render a run log to an XLSX workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log", Usage: "run log CSV to read"},
					&cli.StringFlag{Name: "out", Value: "runs.xlsx", Usage: "workbook to write"},
				},
				Action: ExportAction,
			},
			{
				Name:  "history",
				Usage: "list recent runs from the Postgres mirror",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tool", Usage: "only rows for this engine name (default: all engines)"},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: HistoryAction,
			},
			{
				Name:   "serve",
				Usage:  "serve the routing HTTP API",
				Action: ServeAction,
			},
			{
				Name:   "worker",
				Usage:  "consume conversion requests from NATS",
				Action: WorkerAction,
			},
			{
				Name:      "enqueue",
				Usage:     "publish a conversion request to NATS",
				ArgsUsage: "<pdf>",
				Flags:     conversionFlags(),
				Action:    EnqueueAction,
			},
			{
				Name:   "mcp",
				Usage:  "serve route_document and convert_document as MCP tools over stdio",
				Action: MCPAction,
			},
		},
	}
}

func conversionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "engine", Aliases: []string{"e"}, Usage: "ocr|text|both|auto (surya and marker are accepted aliases)"},
		&cli.StringFlag{Name: "outdir", Aliases: []string{"o"}, Usage: "directory receiving normalized output"},
		&cli.StringFlag{Name: "log", Usage: "run log CSV path"},
		&cli.Float64Flag{Name: "timeout", Usage: "per-engine timeout in seconds; 0 disables it"},
	}
}

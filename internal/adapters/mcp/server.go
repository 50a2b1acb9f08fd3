package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docroute/internal/core/domain"
	"github.com/kirillkom/docroute/internal/core/ports"
)

const (
	toolRouteDocument   = "route_document"
	toolConvertDocument = "convert_document"
)

// Tools exposes routing and conversion to MCP clients.
type Tools struct {
	router    ports.DocumentRouter
	converter ports.DocumentConverter
}

func NewTools(router ports.DocumentRouter, converter ports.DocumentConverter) *Tools {
	return &Tools{router: router, converter: converter}
}

func (t *Tools) Server(version string) *server.MCPServer {
	s := server.NewMCPServer("docroute", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(toolRouteDocument,
		mcp.WithDescription("Probe a local PDF and report which conversion engine fits it (ocr or text) with a confidence and the probe metrics."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF on the server's filesystem")),
	), t.routeDocument)

	s.AddTool(mcp.NewTool(toolConvertDocument,
		mcp.WithDescription("Run conversion engines on a local PDF and append the runs to the CSV run log."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF on the server's filesystem")),
		mcp.WithString("engine",
			mcp.Description("Engine selection; auto routes first"),
			mcp.Enum("auto", "ocr", "text", "both"),
		),
	), t.convertDocument)

	return s
}

// ServeStdio blocks serving the tools on stdin/stdout.
func (t *Tools) ServeStdio(version string) error {
	return server.ServeStdio(t.Server(version))
}

func (t *Tools) routeDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decision, err := t.router.Route(ctx, path)
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolRouteDocument, "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(decision)
}

func (t *Tools) convertDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selector, err := domain.ParseSelector(request.GetString("engine", string(domain.EngineAuto)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := t.converter.Convert(ctx, domain.ConvertRequest{Path: path, Selector: selector})
	if err != nil {
		slog.Warn("mcp_tool_failed", "tool", toolConvertDocument, "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// Package mcpserver 분석 기능을 MCP 도구로 노출한다.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"code-intel/internal/analyzer"
	"code-intel/internal/security"
)

const (
	serverName    = "code-intel"
	serverVersion = "1.0.0"
)

// Tools MCP 도구 핸들러 모음
type Tools struct {
	analyzer *analyzer.Analyzer
	security *security.Analyzer
	logger   *slog.Logger
}

// NewTools 도구 핸들러 생성
func NewTools(a *analyzer.Analyzer, sec *security.Analyzer, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{analyzer: a, security: sec, logger: logger}
}

// NewServer 도구가 등록된 MCP 서버 생성
func NewServer(t *Tools) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithLogging(),
		server.WithInstructions("Python 코드 구조, 품질 지표, 패턴, 보안 취약점을 분석합니다."),
	)
	t.Register(mcpServer)
	return mcpServer
}

// Register 도구 정의를 서버에 등록
func (t *Tools) Register(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("analyze_file",
		mcp.WithDescription("Analyzes a single source file and returns its structure, metrics, issues and detected patterns as JSON."),
		mcp.WithString("path",
			mcp.Description("The path of the file to analyze"),
			mcp.Required(),
		),
	), t.HandleAnalyzeFile)

	mcpServer.AddTool(mcp.NewTool("analyze_directory",
		mcp.WithDescription("Analyzes every matching file under a directory and returns the aggregated result as JSON."),
		mcp.WithString("path",
			mcp.Description("The directory to analyze"),
			mcp.Required(),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Whether to descend into subdirectories (default: true)"),
		),
		mcp.WithString("pattern",
			mcp.Description("Glob pattern for file names, e.g. *.py (default: all supported extensions)"),
		),
	), t.HandleAnalyzeDirectory)

	mcpServer.AddTool(mcp.NewTool("security_scan",
		mcp.WithDescription("Scans a file or directory for security vulnerabilities and returns the report with a 0-100 security score."),
		mcp.WithString("path",
			mcp.Description("The file or directory to scan"),
			mcp.Required(),
		),
	), t.HandleSecurityScan)

	t.logger.Info("mcp tools registered", slog.Int("count", 3))
}

// HandleAnalyzeFile analyze_file 도구 핸들러
func (t *Tools) HandleAnalyzeFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := stringArg(request, "path")
	if err != nil {
		return errorResult(err), nil
	}

	module, err := t.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	if module == nil {
		return errorResult(fmt.Errorf("%w: %s", analyzer.ErrUnsupportedLanguage, path)), nil
	}
	return jsonResult(module)
}

// HandleAnalyzeDirectory analyze_directory 도구 핸들러
func (t *Tools) HandleAnalyzeDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := stringArg(request, "path")
	if err != nil {
		return errorResult(err), nil
	}

	opts := t.analyzer.DefaultDirectoryOptions()
	if recursive, ok := request.Params.Arguments["recursive"].(bool); ok {
		opts.Recursive = recursive
	}
	if pattern, ok := request.Params.Arguments["pattern"].(string); ok && pattern != "" {
		opts.Patterns = []string{pattern}
	}

	result, err := t.analyzer.AnalyzeDirectory(ctx, path, opts)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

// HandleSecurityScan security_scan 도구 핸들러. 디렉토리면 전체를 검사한다.
func (t *Tools) HandleSecurityScan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := stringArg(request, "path")
	if err != nil {
		return errorResult(err), nil
	}

	if isDir(path) {
		report, err := t.security.AnalyzeDirectory(ctx, path, nil)
		if err != nil {
			return errorResult(err), nil
		}
		return jsonResult(report)
	}

	report, err := t.security.AnalyzeFile(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(report)
}

// ServeSSE ctx 가 취소될 때까지 SSE 전송으로 서비스한다
func ServeSSE(ctx context.Context, mcpServer *server.MCPServer, addr, baseURL string, logger *slog.Logger) error {
	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/"),
		server.WithMessageEndpoint("/messages"),
	)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           sseServer,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mcp server listening", slog.String("addr", addr), slog.String("base_url", baseURL))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func stringArg(request mcp.CallToolRequest, name string) (string, error) {
	value, ok := request.Params.Arguments[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s must be a non-empty string", name)
	}
	return value, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("JSON 마샬링 실패: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: err.Error()},
		},
		IsError: true,
	}
}

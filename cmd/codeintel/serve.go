package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"code-intel/internal/analyzer"
	"code-intel/internal/mcpserver"
	"code-intel/internal/security"
	"code-intel/internal/server"
	"code-intel/internal/types"
	"code-intel/internal/watch"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP API 서버 실행",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			shutdown, err := initTracing(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			logger := slog.Default()
			srv := server.New(
				analyzer.New(cfg, analyzer.WithLogger(logger)),
				security.NewAnalyzer(cfg, security.WithLogger(logger), security.WithWorkers(cfg.Analyzer.Workers)),
				server.WithLogger(logger),
			)
			return srv.Run(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "수신 주소 (기본값: 설정 파일 server.addr)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	var addr, baseURL string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP SSE 서버 실행",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.MCP.Addr
			}
			if baseURL == "" {
				baseURL = cfg.MCP.BaseURL
			}

			logger := slog.Default()
			tools := mcpserver.NewTools(
				analyzer.New(cfg, analyzer.WithLogger(logger)),
				security.NewAnalyzer(cfg, security.WithLogger(logger)),
				logger,
			)
			return mcpserver.ServeSSE(cmd.Context(), mcpserver.NewServer(tools), addr, baseURL, logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "수신 주소 (기본값: 설정 파일 mcp.addr)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "클라이언트에 알릴 기본 URL (기본값: 설정 파일 mcp.base_url)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "디렉토리 변경을 감시하며 바뀐 파일을 다시 분석",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a := analyzer.New(cfg, analyzer.WithLogger(slog.Default()))
			result, err := a.AnalyzeDirectory(cmd.Context(), args[0], a.DefaultDirectoryOptions())
			if err != nil {
				return fmt.Errorf("초기 분석 실패: %w", err)
			}
			fmt.Printf("👀 %s 감시 시작 (파일 %d개, 이슈 %d개)\n", args[0], result.FilesAnalyzed, len(result.AllIssues))

			w, err := watch.New(args[0], a, printUpdate, watch.WithPatterns(cfg.Analyzer.Patterns))
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
	addScanFlags(cmd)
	return cmd
}

func printUpdate(u watch.Update) {
	switch {
	case u.Removed:
		fmt.Printf("🗑  %s 삭제됨\n", u.Path)
	case u.Err != nil:
		fmt.Printf("❌ %s: %v\n", u.Path, u.Err)
	case u.Module == nil:
		return
	default:
		critical := 0
		issues := u.Module.AllIssues()
		for _, issue := range issues {
			if issue.Severity >= types.SeverityCritical {
				critical++
			}
		}
		mi := 0.0
		if u.Module.Metrics != nil {
			mi = u.Module.Metrics.MaintainabilityIndex
		}
		fmt.Printf("🔄 %s: 이슈 %d개 (Critical %d개), 유지보수 지수 %.1f\n", u.Path, len(issues), critical, mi)
	}
}

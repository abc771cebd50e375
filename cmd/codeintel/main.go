package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"code-intel/internal/config"
	"code-intel/internal/telemetry"
)

var (
	configFile   string
	outputFormat string
	outputFile   string
	minSeverity  string
	rulesFilter  string
	patterns     []string
	noRecursive  bool
	workers      int
	verbose      bool
	trace        bool
)

// errCriticalFound 분석 결과에 Critical 이슈가 있을 때. 메시지 없이 종료 코드 1.
var errCriticalFound = errors.New("critical issues found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCriticalFound) {
			fmt.Fprintf(os.Stderr, "오류 발생: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "codeintel",
		Short: "Code Intel - Python 코드 구조/품질/보안 분석 도구",
		Long: `Code Intel

Python 소스코드의 구조를 추출하고 복잡도와 유지보수 지표를 계산하며,
디자인 패턴과 안티패턴, 보안 취약점을 탐지합니다.

사용 예시:
  codeintel analyze ./src                      # 디렉토리 분석
  codeintel analyze app.py --output=json       # 단일 파일 JSON 리포트
  codeintel analyze ./src -s error             # error 이상만 표시
  codeintel security ./src                     # 보안 검사
  codeintel diff old.py new.py                 # 변경 영향 분석
  codeintel serve --addr :8080                 # HTTP API
  codeintel mcp --addr :8081                   # MCP SSE 서버
  codeintel watch ./src                        # 변경 감시`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "configs/codeintel.yaml", "설정 파일 경로")
	flags.BoolVarP(&verbose, "verbose", "v", false, "상세 출력")
	flags.BoolVar(&trace, "trace", false, "스팬을 표준 에러로 출력")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSecurityCmd(),
		newDiffCmd(),
		newServeCmd(),
		newMCPCmd(),
		newWatchCmd(),
	)
	return rootCmd
}

// addOutputFlags 리포트를 출력하는 명령의 공통 플래그
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "console", "출력 형식 (console/json/html)")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "출력 파일 경로 (기본값: stdout)")
}

// addScanFlags 디렉토리 탐색 공통 플래그
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&patterns, "pattern", nil, "분석할 파일 패턴 (반복 가능, 기본값: 설정 파일)")
	cmd.Flags().BoolVar(&noRecursive, "no-recursive", false, "하위 디렉토리를 탐색하지 않음")
	cmd.Flags().IntVar(&workers, "workers", 0, "동시 분석 파일 수 (기본값: 설정 파일 또는 CPU 수)")
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig 설정 로드 후 명령줄 플래그를 덮어쓴다
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(configFile)
	if err != nil {
		return nil, fmt.Errorf("설정 파일 로드 실패: %w", err)
	}

	flags := cmd.Flags()
	if flags.Lookup("no-recursive") != nil && noRecursive {
		cfg.Analyzer.Recursive = false
	}
	if flags.Lookup("workers") != nil && workers > 0 {
		cfg.Analyzer.Workers = workers
	}
	if flags.Lookup("pattern") != nil && len(patterns) > 0 {
		cfg.Analyzer.Patterns = patterns
		cfg.Security.Patterns = patterns
	}

	slog.Debug("config loaded",
		slog.String("file", configFile),
		slog.Any("enabled_rules", cfg.EnabledRules()),
		slog.Int("workers", cfg.Analyzer.Workers))
	return cfg, nil
}

// initTracing --trace 일 때 stdout 스팬 익스포터를 켠다
func initTracing(ctx context.Context) (func(), error) {
	tcfg := telemetry.DefaultConfig()
	if trace {
		tcfg.TraceExporter = "stdout"
		tcfg.Writer = os.Stderr
	}
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}

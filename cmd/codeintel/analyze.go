package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"code-intel/internal/analyzer"
	"code-intel/internal/config"
	"code-intel/internal/reporter"
	"code-intel/internal/security"
	"code-intel/internal/types"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "파일 또는 디렉토리의 구조, 지표, 패턴, 보안 이슈 분석",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalysis,
	}
	addOutputFlags(cmd)
	addScanFlags(cmd)
	cmd.Flags().StringVarP(&minSeverity, "min-severity", "s", "info", "최소 심각도 (info/warning/error/critical)")
	cmd.Flags().StringVar(&rulesFilter, "rules", "", "표시할 이슈 카테고리 (쉼표로 구분)")
	return cmd
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	targetPath := args[0]

	if verbose {
		fmt.Fprintf(os.Stderr, "Code Intel 시작\n")
		fmt.Fprintf(os.Stderr, "대상 경로: %s\n", targetPath)
		fmt.Fprintf(os.Stderr, "설정 파일: %s\n", configFile)
		fmt.Fprintf(os.Stderr, "출력 형식: %s\n", outputFormat)
	}

	// 1. 설정 로드
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	severity := config.ParseSeverity(minSeverity)
	rep, err := reporter.New(outputFormat)
	if err != nil {
		return err
	}

	shutdown, err := initTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	// 2. 분석 실행
	a := analyzer.New(cfg)
	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("대상 경로 확인 실패: %w", err)
	}

	var result *types.AnalysisResult
	if info.IsDir() {
		result, err = a.AnalyzeDirectory(ctx, targetPath, a.DefaultDirectoryOptions())
	} else {
		result, err = a.AnalyzeFileResult(ctx, targetPath)
	}
	if err != nil {
		return fmt.Errorf("분석 실패: %w", err)
	}
	critical := result.HasCriticalIssues()

	// 3. 결과 필터링
	result.FilterIssues(severity)
	if rulesFilter != "" {
		result.FilterCategories(parseCategories(rulesFilter))
	}

	// 4. 결과 리포팅
	if err := rep.Generate(result, outputFile); err != nil {
		return fmt.Errorf("리포트 생성 실패: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "\n분석 완료! 총 %d개 이슈 발견\n", len(result.AllIssues))
	}

	// 5. 심각한 이슈가 있으면 종료 코드 1 반환
	if critical {
		return errCriticalFound
	}
	return nil
}

func parseCategories(s string) []types.IssueCategory {
	var categories []types.IssueCategory
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			categories = append(categories, types.IssueCategory(part))
		}
	}
	return categories
}

func newSecurityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "security <path>",
		Short: "파일 또는 디렉토리의 보안 취약점 검사",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecurity,
	}
	addOutputFlags(cmd)
	addScanFlags(cmd)
	return cmd
}

func runSecurity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	targetPath := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	shutdown, err := initTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("대상 경로 확인 실패: %w", err)
	}

	sec := security.NewAnalyzer(cfg, security.WithWorkers(cfg.Analyzer.Workers))
	var report *security.DirectoryReport
	if info.IsDir() {
		report, err = sec.AnalyzeDirectory(ctx, targetPath, cfg.Security.Patterns)
		if err != nil {
			return fmt.Errorf("보안 분석 실패: %w", err)
		}
	} else {
		fileReport, err := sec.AnalyzeFile(ctx, targetPath)
		if err != nil {
			return fmt.Errorf("보안 분석 실패: %w", err)
		}
		report = singleFileReport(fileReport, cfg.Security.Weights)
	}

	switch strings.ToLower(outputFormat) {
	case "json":
		return reporter.WriteJSON(os.Stdout, report, outputFile)
	case "console", "text":
		return reporter.WriteSecurityConsole(os.Stdout, report)
	default:
		return fmt.Errorf("지원하지 않는 출력 형식: %s", outputFormat)
	}
}

func singleFileReport(r *security.FileReport, w config.SeverityWeights) *security.DirectoryReport {
	return &security.DirectoryReport{
		Directory:       r.File,
		FilesAnalyzed:   1,
		Vulnerabilities: r.Vulnerabilities,
		FileResults:     []*security.FileReport{r},
		Summary:         security.Summarize(r.Vulnerabilities, w),
	}
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "두 버전의 파일을 비교해 복잡도와 문서화 변화 분석",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}
	addOutputFlags(cmd)
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	oldContent, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("이전 파일 읽기 실패: %w", err)
	}
	newContent, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("새 파일 읽기 실패: %w", err)
	}

	old, cur, suggestions, err := analyzer.New(cfg).AnalyzeChanges(cmd.Context(), string(oldContent), string(newContent), args[1])
	if err != nil {
		return fmt.Errorf("변경 분석 실패: %w", err)
	}

	if strings.ToLower(outputFormat) == "json" {
		return reporter.WriteJSON(os.Stdout, map[string]any{
			"old":         old,
			"new":         cur,
			"suggestions": suggestions,
		}, outputFile)
	}

	fmt.Printf("🔀 변경 분석: %s → %s\n", args[0], args[1])
	fmt.Printf("  순환 복잡도: %.1f → %.1f\n", old.Metrics.CyclomaticComplexity, cur.Metrics.CyclomaticComplexity)
	fmt.Printf("  유지보수 지수: %.1f → %.1f\n", old.Metrics.MaintainabilityIndex, cur.Metrics.MaintainabilityIndex)
	fmt.Printf("  이슈: %d개 → %d개\n", len(old.AllIssues()), len(cur.AllIssues()))
	if len(suggestions) == 0 {
		fmt.Println("✅ 주의할 변화가 없습니다.")
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("  💡 %s: %s\n", s.Title, s.Description)
	}
	return nil
}

package security

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"code-intel/internal/config"
	"code-intel/internal/parser"
	"code-intel/internal/telemetry"
	"code-intel/internal/types"
)

var tracer = otel.Tracer("code-intel.security")

// DefaultPatterns 디렉토리 스캔 기본 파일 패턴
var DefaultPatterns = []string{"*.py", "*.js", "*.ts", "*.java", "*.rb", "*.php"}

// FileSummary 파일 단위 요약
type FileSummary struct {
	Total         int            `json:"total"`
	BySeverity    map[string]int `json:"by_severity"`
	SecurityScore float64        `json:"security_score"`
}

// TypeCount 취약점 타입별 건수
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// DirectorySummary 디렉토리 단위 요약
type DirectorySummary struct {
	FileSummary
	ByCategory map[types.SecurityCategory]int `json:"by_category"`
	ByType     map[string]int                 `json:"by_type"`
	MostCommon []TypeCount                    `json:"most_common"`
}

// FileReport 파일 보안 분석 결과
type FileReport struct {
	File            string                `json:"file"`
	Vulnerabilities []types.Vulnerability `json:"vulnerabilities"`
	Summary         FileSummary           `json:"summary"`
}

// DirectoryReport 디렉토리 보안 분석 결과
type DirectoryReport struct {
	Directory       string                `json:"directory"`
	FilesAnalyzed   int                   `json:"files_analyzed"`
	Vulnerabilities []types.Vulnerability `json:"vulnerabilities"`
	FileResults     []*FileReport         `json:"file_results"`
	Summary         DirectorySummary      `json:"summary"`
}

// Option Analyzer 설정 함수
type Option func(*Analyzer)

// WithLogger 로거 지정
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithParsers 구문 트리 패스에 쓸 추출기 레지스트리 지정
func WithParsers(r *parser.Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.parsers = r
		}
	}
}

// WithWorkers 디렉토리 스캔 동시 작업 수
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// Analyzer 파일과 디렉토리 단위 보안 분석기
type Analyzer struct {
	scanner  *Scanner
	parsers  *parser.Registry
	weights  config.SeverityWeights
	patterns []string
	workers  int
	logger   *slog.Logger
}

// NewAnalyzer 설정으로 분석기 생성. cfg 가 nil 이면 기본 설정.
func NewAnalyzer(cfg *config.Config, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &Analyzer{
		scanner:  NewScanner(cfg.Security),
		weights:  cfg.Security.Weights,
		patterns: cfg.Security.Patterns,
		workers:  runtime.GOMAXPROCS(0),
		logger:   slog.Default(),
	}
	if len(a.patterns) == 0 {
		a.patterns = DefaultPatterns
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.parsers == nil {
		// 파이썬 추출기 하나만 등록하므로 중복 오류가 날 수 없다
		a.parsers, _ = parser.NewRegistry(parser.NewPythonExtractor(parser.WithLogger(a.logger)))
	}
	return a
}

// Scanner 내부 스캐너
func (a *Analyzer) Scanner() *Scanner { return a.scanner }

// AnalyzeFile 파일 하나를 검사한다
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*FileReport, error) {
	ctx, span := tracer.Start(ctx, "security.AnalyzeFile")
	defer span.End()
	span.SetAttributes(attribute.String("file", path))

	content, err := os.ReadFile(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("파일 읽기 실패: %w", err)
	}

	tree, closeTree := a.parse(ctx, path, content)
	defer closeTree()

	vulns := a.scanner.Scan(string(content), path, tree)
	for _, v := range vulns {
		telemetry.VulnerabilitiesFound.WithLabelValues(v.Severity.String()).Inc()
	}
	span.SetAttributes(attribute.Int("vulnerabilities", len(vulns)))

	return &FileReport{
		File:            path,
		Vulnerabilities: vulns,
		Summary: FileSummary{
			Total:         len(vulns),
			BySeverity:    severityCounts(vulns),
			SecurityScore: Score(vulns, a.weights),
		},
	}, nil
}

// parse 지원 언어면 구문 트리를 만든다. 실패는 트리 없이 진행한다.
func (a *Analyzer) parse(ctx context.Context, path string, content []byte) (*sitter.Tree, func()) {
	noop := func() {}
	extractor, err := a.parsers.ForPath(path)
	if err != nil {
		return nil, noop
	}
	file, err := extractor.Extract(ctx, path, content)
	if err != nil {
		a.logger.Debug("security tree pass skipped",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return nil, noop
	}
	return file.Tree, file.Close
}

// AnalyzeDirectory 패턴과 일치하는 모든 하위 파일을 검사한다. 읽을 수 없는 파일은 기록 후 건너뛴다.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, root string, patterns []string) (*DirectoryReport, error) {
	ctx, span := tracer.Start(ctx, "security.AnalyzeDirectory")
	defer span.End()

	if len(patterns) == 0 {
		patterns = a.patterns
	}
	files, err := matchFiles(root, patterns)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("directory", root), attribute.Int("files", len(files)))

	results := make([]*FileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := a.AnalyzeFile(gctx, path)
			if err != nil {
				a.logger.Warn("security scan failed",
					slog.String("file", path),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("보안 분석 중단: %w", err)
	}

	report := &DirectoryReport{Directory: root}
	for _, r := range results {
		if r == nil {
			continue
		}
		report.FileResults = append(report.FileResults, r)
		report.Vulnerabilities = append(report.Vulnerabilities, r.Vulnerabilities...)
	}
	report.FilesAnalyzed = len(report.FileResults)
	report.Summary = Summarize(report.Vulnerabilities, a.weights)
	return report, nil
}

// matchFiles 기본 이름이 패턴과 일치하는 하위 파일. 정렬, 중복 제거.
func matchFiles(root string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		for _, pattern := range patterns {
			if ok, _ := filepath.Match(pattern, d.Name()); ok && !seen[path] {
				seen[path] = true
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("디렉토리 탐색 실패: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// Score 100 에서 심각도 가중치 합을 뺀 점수. 0 미만은 0.
func Score(vulns []types.Vulnerability, w config.SeverityWeights) float64 {
	penalty := 0
	for _, v := range vulns {
		switch v.Severity {
		case types.VulnCritical:
			penalty += w.Critical
		case types.VulnHigh:
			penalty += w.High
		case types.VulnMedium:
			penalty += w.Medium
		case types.VulnLow:
			penalty += w.Low
		}
	}
	return float64(max(0, 100-penalty))
}

func severityCounts(vulns []types.Vulnerability) map[string]int {
	counts := map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0}
	for _, v := range vulns {
		counts[v.Severity.String()]++
	}
	return counts
}

// Summarize 심각도, 분류, 타입별 집계와 상위 5개 타입
func Summarize(vulns []types.Vulnerability, w config.SeverityWeights) DirectorySummary {
	byCategory := make(map[types.SecurityCategory]int)
	byType := make(map[string]int)
	var order []string
	for _, v := range vulns {
		byCategory[v.Category]++
		if _, seen := byType[v.Type]; !seen {
			order = append(order, v.Type)
		}
		byType[v.Type]++
	}

	common := make([]TypeCount, 0, len(order))
	for _, t := range order {
		common = append(common, TypeCount{Type: t, Count: byType[t]})
	}
	sort.SliceStable(common, func(i, j int) bool { return common[i].Count > common[j].Count })
	if len(common) > 5 {
		common = common[:5]
	}

	return DirectorySummary{
		FileSummary: FileSummary{
			Total:         len(vulns),
			BySeverity:    severityCounts(vulns),
			SecurityScore: Score(vulns, w),
		},
		ByCategory: byCategory,
		ByType:     byType,
		MostCommon: common,
	}
}

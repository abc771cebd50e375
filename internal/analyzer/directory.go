package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"code-intel/internal/telemetry"
	"code-intel/internal/types"
)

// DefaultPatterns 디렉토리 분석 기본 파일 패턴
var DefaultPatterns = []string{
	"*.py", "*.js", "*.jsx", "*.ts", "*.tsx",
	"*.java", "*.cpp", "*.cc", "*.go", "*.rs", "*.rb",
}

// skipDirs 탐색하지 않는 디렉토리
var skipDirs = map[string]bool{
	".git": true, ".svn": true, ".hg": true,
	"node_modules": true, "vendor": true, "target": true,
	"build": true, "dist": true, ".gradle": true,
	"__pycache__": true, ".pytest_cache": true, ".mypy_cache": true,
	".venv": true, "venv": true, ".tox": true,
	".idea": true, ".vscode": true,
}

// IsSkippedDir 분석과 감시에서 제외되는 디렉토리 이름인지 확인
func IsSkippedDir(name string) bool {
	return skipDirs[name]
}

// DirectoryOptions 디렉토리 분석 옵션
type DirectoryOptions struct {
	Recursive bool
	Patterns  []string
	Workers   int
}

// DefaultDirectoryOptions 설정 파일의 analyzer 섹션으로 만든 기본 옵션
func (a *Analyzer) DefaultDirectoryOptions() DirectoryOptions {
	return DirectoryOptions{
		Recursive: a.config.Analyzer.Recursive,
		Patterns:  a.config.Analyzer.Patterns,
		Workers:   a.config.Analyzer.Workers,
	}
}

type fileOutcome struct {
	entry *cacheEntry
	err   error
}

// AnalyzeDirectory 디렉토리의 파일을 병렬로 분석하고 경로 순서로 집계한다.
//
// 파일 단위 실패는 ErrorFiles 에 기록되고 전체 분석을 멈추지 않는다. 컨텍스트 취소만 중단 사유다.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, root string, opts DirectoryOptions) (*types.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "analyzer.AnalyzeDirectory")
	defer span.End()
	startTime := time.Now()

	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	// 대상 파일 수집
	files, err := collectFiles(root, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: 파일 수집 실패: %w", ErrIO, err)
	}
	span.SetAttributes(attribute.String("root", root), attribute.Int("files", len(files)))

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := a.analyzeFile(gctx, file)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			outcomes[i] = fileOutcome{entry: entry, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("디렉토리 분석 중단: %w", err)
	}

	result := newResult(root, startTime)
	for i, file := range files {
		out := outcomes[i]
		if out.err != nil {
			a.logger.Warn("file analysis failed",
				slog.String("file", file),
				slog.String("error", out.err.Error()))
		}
		if out.err != nil || out.entry == nil {
			result.ErrorFiles = append(result.ErrorFiles, file)
			continue
		}
		addEntry(result, out.entry)
	}

	finishResult(result, startTime)
	telemetry.AnalyzeDuration.WithLabelValues("directory").Observe(result.AnalysisTime.Seconds())
	return result, nil
}

// AnalyzeFileResult 단일 파일 분석을 디렉토리 결과 형태로 감싼다
func (a *Analyzer) AnalyzeFileResult(ctx context.Context, path string) (*types.AnalysisResult, error) {
	startTime := time.Now()
	entry, err := a.analyzeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	result := newResult(path, startTime)
	if entry == nil {
		result.ErrorFiles = append(result.ErrorFiles, path)
	} else {
		addEntry(result, entry)
	}
	finishResult(result, startTime)
	return result, nil
}

func newResult(root string, startTime time.Time) *types.AnalysisResult {
	return &types.AnalysisResult{
		ID:                uuid.NewString(),
		Timestamp:         startTime,
		Root:              root,
		LanguageBreakdown: make(map[types.Language]int),
		AllIssues:         []types.Issue{},
		AllPatterns:       []types.Pattern{},
		ErrorFiles:        []string{},
	}
}

func addEntry(result *types.AnalysisResult, entry *cacheEntry) {
	module := entry.module
	result.Modules = append(result.Modules, module)
	result.LanguageBreakdown[module.Language]++
	if module.Metrics != nil {
		result.TotalLines += module.Metrics.LinesOfCode
	}
	result.AllIssues = append(result.AllIssues, module.AllIssues()...)
	result.AllPatterns = append(result.AllPatterns, module.Patterns...)
	result.Warnings = append(result.Warnings, entry.warnings...)
}

func finishResult(result *types.AnalysisResult, startTime time.Time) {
	result.FilesAnalyzed = len(result.Modules)
	result.AggregateMetrics = aggregateMetrics(result.Modules)
	result.Suggestions = directorySuggestions(result.AllIssues, result.AllPatterns)
	result.AnalysisTime = time.Since(startTime)
}

// collectFiles 분석할 파일 수집. 정렬되고 중복이 없다.
func collectFiles(root string, opts DirectoryOptions) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			// 제외할 디렉토리 스킵
			if !opts.Recursive || skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || seen[path] {
			return nil
		}
		if MatchesAny(info.Name(), opts.Patterns) {
			seen[path] = true
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// MatchesAny 파일 이름이 패턴 중 하나와 일치하는지 확인
func MatchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// aggregateMetrics 모듈 지표 합산. 평균 지표는 LOC 가중 평균이다.
func aggregateMetrics(modules []*types.ModuleAnalysis) types.Metrics {
	agg := types.Metrics{MaintainabilityIndex: 100}
	var withMetrics []*types.Metrics
	for _, m := range modules {
		if m.Metrics != nil {
			withMetrics = append(withMetrics, m.Metrics)
		}
	}
	if len(withMetrics) == 0 {
		return agg
	}

	var cc, cognitive, mi, debt, avgLen float64
	for _, m := range withMetrics {
		agg.LinesOfCode += m.LinesOfCode
		agg.LinesOfComments += m.LinesOfComments
		agg.NumberOfFunctions += m.NumberOfFunctions
		agg.NumberOfClasses += m.NumberOfClasses
		agg.DuplicateLines += m.DuplicateLines
		agg.MaxFunctionLength = max(agg.MaxFunctionLength, m.MaxFunctionLength)
		avgLen += m.AverageFunctionLength
	}

	totalLOC := float64(agg.LinesOfCode)
	for _, m := range withMetrics {
		weight := 1.0
		if totalLOC > 0 {
			weight = float64(m.LinesOfCode)
		}
		cc += m.CyclomaticComplexity * weight
		cognitive += m.CognitiveComplexity * weight
		mi += m.MaintainabilityIndex * weight
		debt += m.TechnicalDebtRatio * weight
	}
	denom := totalLOC
	if denom == 0 {
		denom = float64(len(withMetrics))
	}

	agg.CyclomaticComplexity = cc / denom
	agg.CognitiveComplexity = cognitive / denom
	agg.MaintainabilityIndex = mi / denom
	agg.TechnicalDebtRatio = debt / denom
	agg.AverageFunctionLength = avgLen / float64(len(withMetrics))
	agg.CodeToCommentRatio = totalLOC / float64(agg.LinesOfComments+1)
	return agg
}

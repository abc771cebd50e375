package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"code-intel/internal/config"
	"code-intel/internal/metrics"
	"code-intel/internal/parser"
	"code-intel/internal/patterns"
	"code-intel/internal/rules"
	"code-intel/internal/security"
	"code-intel/internal/telemetry"
	"code-intel/internal/types"
)

var tracer = otel.Tracer("code-intel.analyzer")

var (
	// ErrUnsupportedLanguage 라우팅 표에 없는 확장자
	ErrUnsupportedLanguage = parser.ErrUnsupportedLanguage
	// ErrIO 파일 조회나 읽기 실패
	ErrIO = errors.New("io failure")
	// ErrParse 추출기가 결과를 만들지 못함. 구문 오류는 여기에 해당하지 않는다.
	ErrParse = errors.New("parse failure")
)

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

// WithParsers 추출기 레지스트리 교체
func WithParsers(r *parser.Registry) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.parsers = r
		}
	}
}

// Analyzer 코드 분석기. 구성 요소는 생성 시 한 번 만들어진다.
type Analyzer struct {
	config     *config.Config
	parsers    *parser.Registry
	calculator *metrics.Calculator
	ruleEngine *rules.Engine
	patterns   *patterns.Registry
	scanner    *security.Scanner
	cache      *moduleCache
	flight     singleflight.Group
	logger     *slog.Logger
}

// New 새로운 분석기 생성. cfg 가 nil 이면 기본 설정.
func New(cfg *config.Config, opts ...Option) *Analyzer {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &Analyzer{
		config: cfg,
		cache:  newModuleCache(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.parsers == nil {
		// 파이썬 추출기 하나만 등록하므로 중복 오류가 날 수 없다
		a.parsers, _ = parser.NewRegistry(parser.NewPythonExtractor(
			parser.WithPythonMaxFileSize(cfg.Analyzer.MaxFileSize),
			parser.WithParameterLimit(cfg.Thresholds.TooManyParameters),
			parser.WithDisabledRules(cfg.DisabledRules()...),
			parser.WithLogger(a.logger),
		))
	}
	a.calculator = metrics.NewCalculator(cfg.Metrics)
	a.ruleEngine = rules.NewEngine(cfg)
	a.patterns = patterns.NewDefaultRegistry(cfg.Patterns, a.logger)
	a.scanner = security.NewScanner(cfg.Security)
	return a
}

// Config 분석기 설정
func (a *Analyzer) Config() *config.Config { return a.config }

// Patterns 패턴 탐지 레지스트리
func (a *Analyzer) Patterns() *patterns.Registry { return a.patterns }

// AnalyzeFile 파일 하나를 분석한다.
//
// 지원하지 않는 확장자는 (nil, nil) 을 반환한다. 캐시된 결과는 같은 포인터로 돌려준다.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*types.ModuleAnalysis, error) {
	entry, err := a.analyzeFile(ctx, path)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.module, nil
}

func (a *Analyzer) analyzeFile(ctx context.Context, path string) (*cacheEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 절대 경로 변환 실패: %w", ErrIO, err)
	}

	extractor, err := a.parsers.ForPath(abs)
	if err != nil {
		return nil, nil
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if entry, ok := a.cache.get(abs, info.ModTime()); ok {
		telemetry.CacheLookups.WithLabelValues("hit").Inc()
		return entry, nil
	}
	telemetry.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := a.flight.Do(abs, func() (any, error) {
		if entry, ok := a.cache.get(abs, info.ModTime()); ok {
			return entry, nil
		}
		content, err := os.ReadFile(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		module, warnings, err := a.analyzeContent(ctx, extractor, abs, content)
		if err != nil {
			return nil, err
		}
		entry := &cacheEntry{module: module, warnings: warnings, mtime: info.ModTime()}
		a.cache.put(abs, entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cacheEntry), nil
}

// analyzeContent 추출부터 보안 검사까지 내용 하나에 대한 전체 파이프라인. 캐시와 디스크를 쓰지 않는다.
func (a *Analyzer) analyzeContent(ctx context.Context, extractor parser.Extractor, path string, content []byte) (*types.ModuleAnalysis, []string, error) {
	ctx, span := tracer.Start(ctx, "analyzer.AnalyzeFile", trace.WithAttributes(attribute.String("file", path)))
	defer span.End()
	start := time.Now()

	file, err := extractor.Extract(ctx, path, content)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		telemetry.FilesAnalyzed.WithLabelValues(string(extractor.Language()), "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer file.Close()

	module := file.Module
	m, complexity := a.calculator.Compute(module, file)
	module.Metrics = &m
	mergeComplexity(module, complexity)

	module.Issues = append(module.Issues, a.ruleEngine.CheckModule(module)...)

	found, failures := a.patterns.DetectAll(ctx, module, string(content))
	module.Patterns = found
	var warnings []string
	for _, f := range failures {
		telemetry.DetectorFailures.WithLabelValues(f.Detector).Inc()
		span.AddEvent("detector failed", trace.WithAttributes(attribute.String("detector", f.Detector)))
		warnings = append(warnings, fmt.Sprintf("%s: %s", path, f.Error()))
	}

	for _, v := range a.scanner.Scan(string(content), path, file.Tree) {
		module.Issues = append(module.Issues, vulnerabilityIssue(v))
	}

	span.SetAttributes(
		attribute.Int("issues", len(module.Issues)),
		attribute.Int("patterns", len(module.Patterns)),
	)
	telemetry.FilesAnalyzed.WithLabelValues(string(module.Language), "ok").Inc()
	telemetry.AnalyzeDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	return module, warnings, nil
}

// mergeComplexity 복잡도를 채운 새 함수 레코드로 교체한다
func mergeComplexity(module *types.ModuleAnalysis, complexity metrics.ComplexityMap) {
	module.Functions = withComplexity(module.Functions, complexity)
	classes := make([]types.ClassRecord, len(module.Classes))
	for i, cls := range module.Classes {
		cls.Methods = withComplexity(cls.Methods, complexity)
		classes[i] = cls
	}
	module.Classes = classes
}

func withComplexity(fns []types.FunctionRecord, complexity metrics.ComplexityMap) []types.FunctionRecord {
	out := make([]types.FunctionRecord, len(fns))
	for i, fn := range fns {
		fn.Complexity = 1
		if c, ok := complexity.Lookup(fn); ok {
			fn.Complexity = c
		}
		out[i] = fn
	}
	return out
}

// vulnerabilityIssue 취약점을 security 분류 이슈로 변환
func vulnerabilityIssue(v types.Vulnerability) types.Issue {
	return types.Issue{
		Severity:   v.Severity.IssueSeverity(),
		Category:   types.CategorySecurity,
		Message:    v.Description,
		RuleID:     "security-" + v.Type,
		Location:   v.Location,
		Suggestion: v.FixSuggestion,
		Confidence: v.Confidence,
	}
}

// Invalidate 경로 하나의 캐시 항목 제거
func (a *Analyzer) Invalidate(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	a.cache.delete(abs)
}

// ClearCache 캐시 전체 비우기
func (a *Analyzer) ClearCache() { a.cache.clear() }

// CacheSize 캐시된 모듈 수
func (a *Analyzer) CacheSize() int { return a.cache.size() }

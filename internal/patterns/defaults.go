package patterns

import (
	"fmt"
	"log/slog"
	"strings"

	"code-intel/internal/config"
	"code-intel/internal/parser"
	"code-intel/internal/types"
)

// base 탐지기 공통 속성
type base struct {
	name        string
	kind        types.PatternKind
	description string
}

func (b base) Name() string                { return b.name }
func (b base) Kind() types.PatternKind     { return b.kind }
func (b base) Description() string         { return b.description }
func (b base) Languages() []types.Language { return []types.Language{types.LanguagePython} }

func (b base) pattern(description string, loc types.CodeLocation, confidence float64, meta map[string]any) types.Pattern {
	return types.Pattern{
		Kind:        b.kind,
		Name:        b.name,
		Description: description,
		Location:    loc,
		Confidence:  confidence,
		Metadata:    meta,
	}
}

// NewDefaultRegistry 내장 탐지기 12종을 등록한 레지스트리
func NewDefaultRegistry(cfg config.PatternConfig, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	builtins := []Detector{
		NewSingletonDetector(),
		NewFactoryDetector(),
		NewObserverDetector(),
		NewStrategyDetector(),
		NewDecoratorDetector(),
		NewGodClassDetector(cfg.GodClassMethods, cfg.GodClassAttributes, cfg.GodClassLines),
		NewSpaghettiCodeDetector(cfg.SpaghettiComplexity, cfg.SpaghettiNesting, cfg.IndentWidth),
		NewLongParameterListDetector(cfg.LongParameterList),
		NewDuplicateCodeDetector(cfg.DuplicateSimilarity),
		NewMagicNumbersDetector(cfg.MagicNumberAllowed),
		NewFeatureEnvyDetector(cfg.FeatureEnvyRatio, cfg.FeatureEnvyMinAccesses),
		NewDataClumpDetector(cfg.DataClumpMinParams, cfg.DataClumpMinFunctions),
	}
	for _, d := range builtins {
		if !cfg.DetectorEnabled(d.Name()) {
			continue
		}
		if err := r.Register(d); err != nil {
			panic(fmt.Sprintf("내장 탐지기 등록 실패: %v", err))
		}
	}
	return r
}

// source 탐지기 입력 소스의 라인 뷰
type source struct {
	lines []string
}

func newSource(content string) source {
	return source{lines: parser.SplitLines(content)}
}

// span 위치 범위의 소스. 범위를 벗어나면 false.
func (s source) span(loc types.CodeLocation) (string, bool) {
	return parser.LineSpan(s.lines, loc)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func inSet(v string, set []string) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}

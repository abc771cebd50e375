package metrics

import (
	"math"

	"code-intel/internal/config"
	"code-intel/internal/parser"
	"code-intel/internal/types"
)

// FunctionKey 함수 식별 키. 같은 이름의 함수가 여러 개일 수 있어 시작 라인을 함께 쓴다.
type FunctionKey struct {
	Name string
	Line int
}

// ComplexityMap 함수별 순환 복잡도
type ComplexityMap map[FunctionKey]int

// Lookup 함수 레코드에 해당하는 복잡도
func (c ComplexityMap) Lookup(fn types.FunctionRecord) (int, bool) {
	v, ok := c[FunctionKey{Name: fn.Name, Line: fn.Location.LineStart}]
	return v, ok
}

// 구문 트리가 없을 때 쓰는 고정값
const (
	degradedComplexity      = 1
	degradedMaintainability = 50
	degradedDebt            = 0.5
)

// Calculator 모듈 단위 지표 계산기
type Calculator struct {
	cfg config.MetricsConfig
}

// NewCalculator 지표 계산기 생성
func NewCalculator(cfg config.MetricsConfig) *Calculator {
	if cfg.HalsteadVolumePerLine <= 0 {
		cfg.HalsteadVolumePerLine = 10
	}
	return &Calculator{cfg: cfg}
}

// Compute 구조 모델과 구문 트리로 지표를 계산한다. 실패하지 않는다.
func (c *Calculator) Compute(module *types.ModuleAnalysis, file *parser.ParsedFile) (types.Metrics, ComplexityMap) {
	complexity := make(ComplexityMap)
	if module == nil {
		return types.Metrics{MaintainabilityIndex: 100}, complexity
	}

	var lines []string
	if file != nil {
		lines = file.Lines
	}

	m := types.Metrics{
		LinesOfCode:       CountLOC(lines),
		NumberOfFunctions: len(module.Functions),
		NumberOfClasses:   len(module.Classes),
	}
	m.AverageFunctionLength, m.MaxFunctionLength = functionLengths(module.AllFunctions())

	if m.LinesOfCode == 0 {
		m.MaintainabilityIndex = 100
		return m, complexity
	}

	root := file.Root()
	if root == nil || module.HasSyntaxError() {
		m.CyclomaticComplexity = degradedComplexity
		m.CognitiveComplexity = degradedComplexity
		m.MaintainabilityIndex = degradedMaintainability
		m.TechnicalDebtRatio = degradedDebt
		m.CodeToCommentRatio = float64(m.LinesOfCode)
		return m, complexity
	}

	for _, fn := range functionNodes(root, file.Content) {
		key := FunctionKey{Name: fn.Name, Line: fn.Line}
		if _, seen := complexity[key]; !seen {
			complexity[key] = Cyclomatic(fn.Node)
		}
	}

	fnAverage, hasFunctions := averageComplexity(module, complexity)
	if hasFunctions {
		m.CyclomaticComplexity = fnAverage
	} else {
		m.CyclomaticComplexity = float64(Cyclomatic(root))
		fnAverage = 1
	}

	m.CognitiveComplexity = float64(Cognitive(root))
	m.LinesOfComments = CommentLines(module.Language, lines)
	m.DuplicateLines = DuplicateLines(lines, c.cfg.DuplicateMinLineLength)
	m.CodeToCommentRatio = float64(m.LinesOfCode) / float64(m.LinesOfComments+1)
	m.MaintainabilityIndex = MaintainabilityIndex(m.LinesOfCode, m.LinesOfComments, fnAverage, c.cfg.HalsteadVolumePerLine)
	m.TechnicalDebtRatio = TechnicalDebt(m.CyclomaticComplexity, m.LinesOfCode)

	h := Halstead(root, file.Content)
	m.Halstead = &h

	return m, complexity
}

// averageComplexity 함수와 메소드 복잡도의 평균. 함수가 없으면 false.
func averageComplexity(module *types.ModuleAnalysis, complexity ComplexityMap) (float64, bool) {
	fns := module.AllFunctions()
	if len(fns) == 0 {
		return 0, false
	}
	total := 0
	for _, fn := range fns {
		if cc, ok := complexity.Lookup(fn); ok {
			total += cc
		} else {
			total++
		}
	}
	return float64(total) / float64(len(fns)), true
}

func functionLengths(fns []types.FunctionRecord) (float64, int) {
	if len(fns) == 0 {
		return 0, 0
	}
	total, longest := 0, 0
	for _, fn := range fns {
		n := fn.Location.Lines()
		total += n
		if n > longest {
			longest = n
		}
	}
	return float64(total) / float64(len(fns)), longest
}

// MaintainabilityIndex 유지보수성 지수 (0~100)
//
// 할스테드 볼륨은 라인당 volumePerLine 으로 근사한다.
func MaintainabilityIndex(loc, comments int, avgComplexity, volumePerLine float64) float64 {
	if loc <= 0 {
		return 100
	}
	volume := float64(loc) * volumePerLine
	mi := 171 - 5.2*math.Log(volume) - 0.23*avgComplexity - 16.2*math.Log(float64(loc))

	if cm := float64(comments) / float64(loc+comments); cm > 0 {
		mi += 50 * math.Sin(math.Sqrt(2.4*cm))
	}
	return clamp(mi, 0, 100)
}

// TechnicalDebt 기술 부채 비율 (0~1)
func TechnicalDebt(avgComplexity float64, loc int) float64 {
	if loc <= 0 {
		return 0
	}
	return clamp((avgComplexity/10)*(float64(loc)/1000), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package patterns

import (
	"fmt"
	"strings"

	"code-intel/internal/types"
)

// GodClassDetector 책임이 너무 많은 클래스
type GodClassDetector struct {
	base
	maxMethods    int
	maxAttributes int
	maxLines      int
}

func NewGodClassDetector(maxMethods, maxAttributes, maxLines int) *GodClassDetector {
	return &GodClassDetector{
		base: base{
			name:        "God Class",
			kind:        types.KindAntiPattern,
			description: "Class with too many responsibilities",
		},
		maxMethods:    orDefault(maxMethods, 20),
		maxAttributes: orDefault(maxAttributes, 15),
		maxLines:      orDefault(maxLines, 500),
	}
}

func (d *GodClassDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	var found []types.Pattern
	for _, cls := range module.Classes {
		methods, attrs, lines := len(cls.Methods), len(cls.Attributes), cls.Location.Lines()

		var violations []string
		confidence := 0.5
		if methods > d.maxMethods {
			violations = append(violations, fmt.Sprintf("too many methods (%d)", methods))
			confidence += 0.2
		}
		if attrs > d.maxAttributes {
			violations = append(violations, fmt.Sprintf("too many attributes (%d)", attrs))
			confidence += 0.2
		}
		if lines > d.maxLines {
			violations = append(violations, fmt.Sprintf("too many lines (%d)", lines))
			confidence += 0.1
		}
		if len(violations) == 0 {
			continue
		}

		if confidence > 0.95 {
			confidence = 0.95
		}
		found = append(found, d.pattern(
			"Class has too many responsibilities: "+strings.Join(violations, ", "),
			cls.Location, confidence, map[string]any{
				"class_name":      cls.Name,
				"method_count":    methods,
				"attribute_count": attrs,
				"line_count":      lines,
				"violations":      violations,
			}))
	}
	return found, nil
}

// SpaghettiCodeDetector 복잡도와 들여쓰기 깊이가 모두 큰 함수
type SpaghettiCodeDetector struct {
	base
	maxComplexity int
	maxNesting    int
	indentWidth   int
}

func NewSpaghettiCodeDetector(maxComplexity, maxNesting, indentWidth int) *SpaghettiCodeDetector {
	return &SpaghettiCodeDetector{
		base: base{
			name:        "Spaghetti Code",
			kind:        types.KindAntiPattern,
			description: "Complex, tangled control flow",
		},
		maxComplexity: orDefault(maxComplexity, 15),
		maxNesting:    orDefault(maxNesting, 4),
		indentWidth:   orDefault(indentWidth, 4),
	}
}

func (d *SpaghettiCodeDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	src := newSource(content)
	var found []types.Pattern

	check := func(fn types.FunctionRecord, kind, className string) {
		if fn.Complexity <= d.maxComplexity {
			return
		}
		body, ok := src.span(fn.Location)
		if !ok {
			return
		}
		nesting := d.nestingDepth(body)
		if nesting <= d.maxNesting {
			return
		}
		meta := map[string]any{
			"complexity":  fn.Complexity,
			"max_nesting": nesting,
		}
		if className != "" {
			meta["class_name"] = className
		}
		found = append(found, d.pattern(
			fmt.Sprintf("%s has complex control flow (complexity: %d, nesting: %d)", kind, fn.Complexity, nesting),
			fn.Location, 0.8, meta))
	}

	for _, fn := range module.Functions {
		check(fn, "Function", "")
	}
	for _, cls := range module.Classes {
		for _, m := range cls.Methods {
			check(m, "Method", cls.Name)
		}
	}
	return found, nil
}

// nestingDepth 들여쓰기 폭으로 나눈 최대 들여쓰기 수준
func (d *SpaghettiCodeDetector) nestingDepth(code string) int {
	depth := 0
	for _, line := range strings.Split(code, "\n") {
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" {
			continue
		}
		if level := (len(line) - len(stripped)) / d.indentWidth; level > depth {
			depth = level
		}
	}
	return depth
}

// LongParameterListDetector 매개변수가 너무 많은 함수
type LongParameterListDetector struct {
	base
	threshold int
}

func NewLongParameterListDetector(threshold int) *LongParameterListDetector {
	return &LongParameterListDetector{
		base: base{
			name:        "Long Parameter List",
			kind:        types.KindAntiPattern,
			description: "Function with too many parameters",
		},
		threshold: orDefault(threshold, 5),
	}
}

func (d *LongParameterListDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	var found []types.Pattern
	for _, fn := range module.AllFunctions() {
		if len(fn.Parameters) <= d.threshold {
			continue
		}
		found = append(found, d.pattern(
			fmt.Sprintf("Function has too many parameters (%d)", len(fn.Parameters)),
			fn.Location, 0.9, map[string]any{
				"parameter_count": len(fn.Parameters),
				"parameters":      fn.Parameters,
				"threshold":       d.threshold,
			}))
	}
	return found, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

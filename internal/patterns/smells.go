package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"code-intel/internal/types"
)

var (
	lineComment      = regexp.MustCompile(`(?m)#.*$`)
	tripleDouble     = regexp.MustCompile(`(?s)""".*?"""`)
	tripleSingle     = regexp.MustCompile(`(?s)'''.*?'''`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	lowerIdentifier  = regexp.MustCompile(`\b[a-z_]\w*\b`)
	stringLiteral    = regexp.MustCompile(`["'].*?["']`)
	numericLiteral   = regexp.MustCompile(`-?\d+\.?\d*`)
	constantAssign   = regexp.MustCompile(`^\s*[A-Z_][A-Z0-9_]*\s*=`)
	objectAccess     = regexp.MustCompile(`\b([A-Za-z_]\w*)\.\w+`)
	defaultAllowed   = []float64{0, 1, -1, 2, 10, 100}
	selfReceiverName = []string{"self", "cls"}
)

// DuplicateCodeDetector 정규화한 본문의 토큰 집합이 비슷한 함수 쌍
type DuplicateCodeDetector struct {
	base
	threshold float64
}

func NewDuplicateCodeDetector(threshold float64) *DuplicateCodeDetector {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}
	return &DuplicateCodeDetector{
		base: base{
			name:        "Duplicate Code",
			kind:        types.KindCodeSmell,
			description: "Similar code in multiple locations",
		},
		threshold: threshold,
	}
}

type normalizedBody struct {
	fn     types.FunctionRecord
	tokens map[string]struct{}
}

func (d *DuplicateCodeDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	src := newSource(content)
	var bodies []normalizedBody
	for _, fn := range module.AllFunctions() {
		body, ok := src.span(fn.Location)
		if !ok {
			continue
		}
		bodies = append(bodies, normalizedBody{fn: fn, tokens: tokenSet(NormalizeCode(body))})
	}

	var found []types.Pattern
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			sim := jaccard(a.tokens, b.tokens)
			if sim <= d.threshold {
				continue
			}
			found = append(found, d.pattern(
				fmt.Sprintf("Functions '%s' and '%s' have similar implementation", a.fn.Name, b.fn.Name),
				a.fn.Location, sim, map[string]any{
					"duplicate_function": b.fn.Name,
					"duplicate_line":     b.fn.Location.LineStart,
					"similarity":         sim,
				}))
		}
	}
	return found, nil
}

// NormalizeCode 주석과 문서 문자열 제거, 공백 압축, 소문자 식별자를 VAR 로 치환
func NormalizeCode(code string) string {
	code = lineComment.ReplaceAllString(code, "")
	code = tripleDouble.ReplaceAllString(code, "")
	code = tripleSingle.ReplaceAllString(code, "")
	code = whitespaceRun.ReplaceAllString(code, " ")
	code = lowerIdentifier.ReplaceAllString(code, "VAR")
	return strings.TrimSpace(code)
}

func tokenSet(code string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(code) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// MagicNumbersDetector 이름 없는 숫자 리터럴
type MagicNumbersDetector struct {
	base
	allowed []float64
}

func NewMagicNumbersDetector(allowed []float64) *MagicNumbersDetector {
	if len(allowed) == 0 {
		allowed = defaultAllowed
	}
	return &MagicNumbersDetector{
		base: base{
			name:        "Magic Numbers",
			kind:        types.KindCodeSmell,
			description: "Hard-coded numeric values",
		},
		allowed: allowed,
	}
}

func (d *MagicNumbersDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	var found []types.Pattern
	for i, line := range newSource(content).lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.Contains(line, `"""`) || strings.Contains(line, `'''`) {
			continue
		}
		if constantAssign.MatchString(line) {
			continue
		}

		cleaned := stringLiteral.ReplaceAllString(line, "")
		if idx := strings.IndexByte(cleaned, '#'); idx >= 0 {
			cleaned = cleaned[:idx]
		}

		for _, m := range numericLiterals(cleaned) {
			number := cleaned[m[0]:m[1]]
			value, err := strconv.ParseFloat(strings.TrimSuffix(number, "."), 64)
			if err != nil || d.isAllowed(value) {
				continue
			}
			loc := types.CodeLocation{
				File:        module.FilePath,
				LineStart:   i + 1,
				LineEnd:     i + 1,
				ColumnStart: types.IntPtr(m[0]),
			}
			found = append(found, d.pattern(
				fmt.Sprintf("Magic number %s should be a named constant", number),
				loc, 0.7, map[string]any{"value": number, "line": trimmed}))
		}
	}
	return found, nil
}

func (d *MagicNumbersDetector) isAllowed(v float64) bool {
	for _, a := range d.allowed {
		if a == v {
			return true
		}
	}
	return false
}

// numericLiterals 앞뒤가 식별자 문자가 아닌 숫자 리터럴의 위치
func numericLiterals(line string) [][]int {
	var out [][]int
	for _, m := range numericLiteral.FindAllStringIndex(line, -1) {
		start, end := m[0], m[1]
		if start > 0 && isWordByte(line[start-1]) {
			if line[start] != '-' {
				continue
			}
			// `a-5` 의 빼기 기호는 리터럴에 포함하지 않는다
			start++
		}
		if end < len(line) && isWordByte(line[end]) {
			continue
		}
		out = append(out, []int{start, end})
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || b < 0x80 && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}

// FeatureEnvyDetector 자기 객체보다 다른 객체를 더 많이 다루는 메소드
type FeatureEnvyDetector struct {
	base
	ratio       float64
	minAccesses int
}

func NewFeatureEnvyDetector(ratio float64, minAccesses int) *FeatureEnvyDetector {
	if ratio <= 0 {
		ratio = 1.5
	}
	if minAccesses < 0 {
		minAccesses = 0
	}
	return &FeatureEnvyDetector{
		base: base{
			name:        "Feature Envy",
			kind:        types.KindCodeSmell,
			description: "Method uses another object more than its own",
		},
		ratio:       ratio,
		minAccesses: minAccesses,
	}
}

func (d *FeatureEnvyDetector) Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error) {
	src := newSource(content)

	var found []types.Pattern
	for _, cls := range module.Classes {
		for _, m := range cls.Methods {
			if strings.HasPrefix(m.Name, "__") && strings.HasSuffix(m.Name, "__") {
				continue
			}
			body, ok := src.span(m.Location)
			if !ok {
				continue
			}

			counts, order := accessCounts(body)
			selfCount := counts["self"]
			for _, obj := range order {
				if obj == "self" {
					continue
				}
				n := counts[obj]
				if float64(n) <= float64(selfCount)*d.ratio || n < d.minAccesses {
					continue
				}
				found = append(found, d.pattern(
					fmt.Sprintf("Method '%s' accesses '%s' more than its own class", m.Name, obj),
					m.Location, 0.8, map[string]any{
						"method":         m.Name,
						"envied_object":  obj,
						"self_accesses":  selfCount,
						"other_accesses": n,
					}))
			}
		}
	}
	return found, nil
}

// accessCounts `obj.attr` 접근 횟수와 처음 등장한 순서
func accessCounts(code string) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for _, m := range objectAccess.FindAllStringSubmatch(code, -1) {
		obj := m[1]
		if _, seen := counts[obj]; !seen {
			order = append(order, obj)
		}
		counts[obj]++
	}
	return counts, order
}

// DataClumpDetector 여러 함수에 함께 등장하는 매개변수 묶음
type DataClumpDetector struct {
	base
	minParams    int
	minFunctions int
}

func NewDataClumpDetector(minParams, minFunctions int) *DataClumpDetector {
	if minParams < 2 {
		minParams = 3
	}
	if minFunctions < 2 {
		minFunctions = 2
	}
	return &DataClumpDetector{
		base: base{
			name:        "Data Clump",
			kind:        types.KindCodeSmell,
			description: "Parameters that always travel together",
		},
		minParams:    minParams,
		minFunctions: minFunctions,
	}
}

func (d *DataClumpDetector) Detect(module *types.ModuleAnalysis, _ string) ([]types.Pattern, error) {
	groups := make(map[string][]types.FunctionRecord)
	params := make(map[string][]string)
	var order []string

	for _, fn := range module.AllFunctions() {
		ps := withoutReceiver(fn.Parameters)
		seen := make(map[string]bool)
		for i := 0; i+d.minParams <= len(ps); i++ {
			for j := i + d.minParams; j <= len(ps); j++ {
				group := append([]string(nil), ps[i:j]...)
				sort.Strings(group)
				key := strings.Join(group, ",")
				if seen[key] {
					continue
				}
				seen[key] = true
				if _, exists := groups[key]; !exists {
					order = append(order, key)
					params[key] = group
				}
				groups[key] = append(groups[key], fn)
			}
		}
	}

	var found []types.Pattern
	for _, key := range order {
		fns := groups[key]
		if len(fns) < d.minFunctions {
			continue
		}
		occurrences := make([]map[string]any, 0, len(fns))
		for _, fn := range fns {
			occurrences = append(occurrences, map[string]any{"function": fn.Name, "line": fn.Location.LineStart})
		}
		found = append(found, d.pattern(
			fmt.Sprintf("Parameters %s appear together in multiple functions", strings.Join(params[key], ", ")),
			fns[0].Location, 0.8, map[string]any{
				"parameters":  params[key],
				"occurrences": occurrences,
			}))
	}
	return found, nil
}

func withoutReceiver(params []string) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		if !inSet(p, selfReceiverName) {
			out = append(out, p)
		}
	}
	return out
}

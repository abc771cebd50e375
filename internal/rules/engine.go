package rules

import (
	"code-intel/internal/config"
	"code-intel/internal/types"
)

// Rule 규칙 인터페이스
type Rule interface {
	ID() string
	Name() string
	Severity() types.Severity
	Category() types.IssueCategory
	Description() string
	Check(module *types.ModuleAnalysis) []types.Issue
}

// Engine 규칙 엔진
type Engine struct {
	config *config.Config
	rules  []Rule
}

// NewEngine 새로운 규칙 엔진 생성
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	engine := &Engine{config: cfg}

	engine.initializeRules()

	return engine
}

// initializeRules 설정에서 켜진 규칙만 등록
func (e *Engine) initializeRules() {
	th := e.config.Thresholds
	candidates := []Rule{
		NewLongFunctionRule(th.LongFunctionLines, e.config.RuleSeverity(config.RuleLongFunction, types.SeverityWarning)),
		NewMissingDocstringRule(e.config.RuleSeverity(config.RuleMissingDocstring, types.SeverityInfo)),
		NewHighComplexityRule(th.HighComplexity, e.config.RuleSeverity(config.RuleHighComplexity, types.SeverityWarning)),
	}

	for _, rule := range candidates {
		if e.config.RuleEnabled(rule.ID()) {
			e.rules = append(e.rules, rule)
		}
	}
}

// Rules 활성 규칙 목록
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// CheckModule 모듈 검사. 함수 복잡도가 채워진 뒤에 호출해야 한다.
func (e *Engine) CheckModule(module *types.ModuleAnalysis) []types.Issue {
	var allIssues []types.Issue
	if module == nil {
		return allIssues
	}

	// 각 규칙 실행
	for _, rule := range e.rules {
		issues := rule.Check(module)
		allIssues = append(allIssues, issues...)
	}

	return allIssues
}

package rules

import (
	"fmt"

	"code-intel/internal/config"
	"code-intel/internal/types"
)

// LongFunctionRule 함수/메소드 길이 검사
type LongFunctionRule struct {
	maxLines int
	severity types.Severity
}

func NewLongFunctionRule(maxLines int, severity types.Severity) Rule {
	return &LongFunctionRule{maxLines: maxLines, severity: severity}
}

func (r *LongFunctionRule) ID() string                    { return config.RuleLongFunction }
func (r *LongFunctionRule) Name() string                  { return "Long Function" }
func (r *LongFunctionRule) Severity() types.Severity      { return r.severity }
func (r *LongFunctionRule) Category() types.IssueCategory { return types.CategoryMaintainability }
func (r *LongFunctionRule) Description() string           { return "함수가 너무 길면 이해와 테스트가 어렵습니다" }

func (r *LongFunctionRule) Check(module *types.ModuleAnalysis) []types.Issue {
	var issues []types.Issue

	for _, fn := range module.AllFunctions() {
		length := fn.Location.Lines()
		if length <= r.maxLines {
			continue
		}
		issue := types.NewIssue(r.Severity(), r.Category(), r.ID(),
			fmt.Sprintf("Function '%s' is too long (%d lines)", fn.Name, length), fn.Location)
		issue.Suggestion = "Consider breaking this function into smaller, more focused functions"
		issues = append(issues, issue)
	}

	return issues
}

// MissingDocstringRule 최상위 함수 문서 문자열 누락 검사
type MissingDocstringRule struct {
	severity types.Severity
}

func NewMissingDocstringRule(severity types.Severity) Rule {
	return &MissingDocstringRule{severity: severity}
}

func (r *MissingDocstringRule) ID() string                    { return config.RuleMissingDocstring }
func (r *MissingDocstringRule) Name() string                  { return "Missing Docstring" }
func (r *MissingDocstringRule) Severity() types.Severity      { return r.severity }
func (r *MissingDocstringRule) Category() types.IssueCategory { return types.CategoryDocumentation }
func (r *MissingDocstringRule) Description() string           { return "공개 함수에는 문서 문자열이 필요합니다" }

func (r *MissingDocstringRule) Check(module *types.ModuleAnalysis) []types.Issue {
	var issues []types.Issue

	// 메소드는 검사하지 않는다
	for _, fn := range module.Functions {
		if fn.HasDocstring() {
			continue
		}
		issue := types.NewIssue(r.Severity(), r.Category(), r.ID(),
			fmt.Sprintf("Function '%s' is missing a docstring", fn.Name), fn.Location)
		issue.Suggestion = "Add a docstring to document the function's purpose and parameters"
		issues = append(issues, issue)
	}

	return issues
}

// HighComplexityRule 순환 복잡도 검사
type HighComplexityRule struct {
	threshold int
	severity  types.Severity
}

func NewHighComplexityRule(threshold int, severity types.Severity) Rule {
	return &HighComplexityRule{threshold: threshold, severity: severity}
}

func (r *HighComplexityRule) ID() string                    { return config.RuleHighComplexity }
func (r *HighComplexityRule) Name() string                  { return "High Complexity" }
func (r *HighComplexityRule) Severity() types.Severity      { return r.severity }
func (r *HighComplexityRule) Category() types.IssueCategory { return types.CategoryComplexity }
func (r *HighComplexityRule) Description() string           { return "분기가 많은 함수는 결함 위험이 높습니다" }

func (r *HighComplexityRule) Check(module *types.ModuleAnalysis) []types.Issue {
	var issues []types.Issue

	for _, fn := range module.AllFunctions() {
		if fn.Complexity <= r.threshold {
			continue
		}
		issue := types.NewIssue(r.Severity(), r.Category(), r.ID(),
			fmt.Sprintf("Function '%s' has high cyclomatic complexity (%d)", fn.Name, fn.Complexity), fn.Location)
		issue.Suggestion = "Consider simplifying this function by extracting complex logic"
		issues = append(issues, issue)
	}

	return issues
}

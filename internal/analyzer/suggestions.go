package analyzer

import (
	"fmt"

	"code-intel/internal/types"
)

const complexityIssueLimit = 5

// directorySuggestions 디렉토리 전체 이슈와 패턴에서 개선 제안 생성
func directorySuggestions(issues []types.Issue, found []types.Pattern) []types.Suggestion {
	suggestions := []types.Suggestion{}

	complexityIssues, critical := 0, false
	for _, issue := range issues {
		if issue.Category == types.CategoryComplexity {
			complexityIssues++
		}
		if issue.Category == types.CategorySecurity && issue.Severity == types.SeverityCritical {
			critical = true
		}
	}

	if critical {
		suggestions = append(suggestions, types.Suggestion{
			Title:           "Address Critical Security Vulnerabilities",
			Description:     "Critical security issues were found. Fix them before the next release.",
			Location:        types.CodeLocation{File: "project-wide"},
			Category:        types.CategorySecurity,
			Priority:        1,
			EstimatedEffort: "medium",
			Rationale:       "Critical vulnerabilities can be exploited to compromise the system",
		})
	}

	if complexityIssues > complexityIssueLimit {
		suggestions = append(suggestions, types.Suggestion{
			Title:           "Reduce Overall Code Complexity",
			Description:     "Multiple functions have high complexity. Consider a refactoring sprint.",
			Location:        types.CodeLocation{File: "project-wide"},
			Category:        types.CategoryMaintainability,
			Priority:        2,
			EstimatedEffort: "large",
			Rationale:       "High complexity makes code harder to understand and maintain",
		})
	}

	for _, p := range found {
		if p.Name != "God Class" {
			continue
		}
		name, _ := p.Metadata["class_name"].(string)
		if name == "" {
			name = p.Location.File
		}
		suggestions = append(suggestions, types.Suggestion{
			Title:           fmt.Sprintf("Refactor %s", name),
			Description:     "This class has too many responsibilities. Consider splitting it.",
			Location:        p.Location,
			Category:        types.CategoryMaintainability,
			Priority:        3,
			EstimatedEffort: "large",
			Rationale:       "Large classes violate the Single Responsibility Principle",
		})
	}
	return suggestions
}

// changeSuggestions 두 버전의 모듈을 비교해 제안 생성
func changeSuggestions(old, cur *types.ModuleAnalysis) []types.Suggestion {
	suggestions := []types.Suggestion{}
	loc := types.CodeLocation{File: cur.FilePath}

	var oldCC, newCC float64
	if old.Metrics != nil {
		oldCC = old.Metrics.CyclomaticComplexity
	}
	if cur.Metrics != nil {
		newCC = cur.Metrics.CyclomaticComplexity
	}
	if newCC > oldCC*1.2 {
		suggestions = append(suggestions, types.Suggestion{
			Title:           "Complexity Increase Detected",
			Description:     fmt.Sprintf("Code complexity increased from %.1f to %.1f", oldCC, newCC),
			Location:        loc,
			Category:        types.CategoryComplexity,
			Priority:        2,
			EstimatedEffort: "medium",
			Rationale:       "Increasing complexity makes code harder to maintain",
		})
	}

	if documented(cur) < documented(old) {
		suggestions = append(suggestions, types.Suggestion{
			Title:           "Documentation Coverage Decreased",
			Description:     "Some functions lost their documentation",
			Location:        loc,
			Category:        types.CategoryDocumentation,
			Priority:        3,
			EstimatedEffort: "small",
			Rationale:       "Documentation helps other developers understand the code",
		})
	}
	return suggestions
}

// documented 문서 문자열이 있는 함수와 메소드 수
func documented(module *types.ModuleAnalysis) int {
	n := 0
	for _, fn := range module.AllFunctions() {
		if fn.HasDocstring() {
			n++
		}
	}
	return n
}

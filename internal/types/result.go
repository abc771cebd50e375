package types

import (
	"fmt"
	"strings"
	"time"
)

// HalsteadMetrics 할스테드 측정값
type HalsteadMetrics struct {
	DistinctOperators int     `json:"n1"`
	DistinctOperands  int     `json:"n2"`
	TotalOperators    int     `json:"N1"`
	TotalOperands     int     `json:"N2"`
	Vocabulary        int     `json:"vocabulary"`
	Length            int     `json:"length"`
	Volume            float64 `json:"volume"`
	Difficulty        float64 `json:"difficulty"`
	Effort            float64 `json:"effort"`
	Time              float64 `json:"time"`
	Bugs              float64 `json:"bugs"`
}

// Metrics 복잡도 및 품질 지표
type Metrics struct {
	LinesOfCode           int              `json:"lines_of_code"`
	LinesOfComments       int              `json:"lines_of_comments"`
	CyclomaticComplexity  float64          `json:"cyclomatic_complexity"`
	CognitiveComplexity   float64          `json:"cognitive_complexity"`
	MaintainabilityIndex  float64          `json:"maintainability_index"`
	TestCoverage          *float64         `json:"test_coverage,omitempty"`
	DuplicateLines        int              `json:"duplicate_lines"`
	TechnicalDebtRatio    float64          `json:"technical_debt_ratio"`
	CodeToCommentRatio    float64          `json:"code_to_comment_ratio"`
	AverageFunctionLength float64          `json:"average_function_length"`
	MaxFunctionLength     int              `json:"max_function_length"`
	NumberOfFunctions     int              `json:"number_of_functions"`
	NumberOfClasses       int              `json:"number_of_classes"`
	Halstead              *HalsteadMetrics `json:"halstead,omitempty"`
}

// VulnSeverity 취약점 심각도
type VulnSeverity int

const (
	VulnLow VulnSeverity = iota
	VulnMedium
	VulnHigh
	VulnCritical
)

func (s VulnSeverity) String() string {
	switch s {
	case VulnLow:
		return "low"
	case VulnMedium:
		return "medium"
	case VulnHigh:
		return "high"
	case VulnCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText 문자열로 직렬화
func (s VulnSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 문자열을 VulnSeverity로 역직렬화
func (s *VulnSeverity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "low":
		*s = VulnLow
	case "medium":
		*s = VulnMedium
	case "high":
		*s = VulnHigh
	case "critical":
		*s = VulnCritical
	default:
		return fmt.Errorf("알 수 없는 취약점 심각도: %q", text)
	}
	return nil
}

// IssueSeverity 취약점 심각도를 이슈 심각도로 매핑
func (s VulnSeverity) IssueSeverity() Severity {
	switch s {
	case VulnCritical:
		return SeverityCritical
	case VulnHigh:
		return SeverityError
	case VulnMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// SecurityCategory 취약점 분류
type SecurityCategory string

const (
	SecInjection       SecurityCategory = "injection"
	SecAuthentication  SecurityCategory = "authentication"
	SecAuthorization   SecurityCategory = "authorization"
	SecDataExposure    SecurityCategory = "data_exposure"
	SecConfiguration   SecurityCategory = "configuration"
	SecCryptography    SecurityCategory = "cryptography"
	SecInputValidation SecurityCategory = "input_validation"
	SecPathTraversal   SecurityCategory = "path_traversal"
)

// Vulnerability 보안 취약점
type Vulnerability struct {
	Type          string           `json:"type"`
	Severity      VulnSeverity     `json:"severity"`
	Category      SecurityCategory `json:"category"`
	Description   string           `json:"description"`
	Location      CodeLocation     `json:"location"`
	CodeSnippet   string           `json:"code_snippet"`
	FixSuggestion string           `json:"fix_suggestion"`
	References    []string         `json:"references,omitempty"`
	Confidence    float64          `json:"confidence"`
}

// Suggestion 개선 제안
type Suggestion struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Location        CodeLocation  `json:"location"`
	Category        IssueCategory `json:"category"`
	Priority        int           `json:"priority"`
	EstimatedEffort string        `json:"estimated_effort"`
	BeforeCode      string        `json:"before_code,omitempty"`
	AfterCode       string        `json:"after_code,omitempty"`
	Rationale       string        `json:"rationale,omitempty"`
	References      []string      `json:"references,omitempty"`
}

// AnalysisResult 디렉토리 분석 결과
type AnalysisResult struct {
	ID                string            `json:"id"`
	Timestamp         time.Time         `json:"timestamp"`
	Root              string            `json:"root"`
	FilesAnalyzed     int               `json:"files_analyzed"`
	TotalLines        int               `json:"total_lines"`
	LanguageBreakdown map[Language]int  `json:"language_breakdown"`
	Modules           []*ModuleAnalysis `json:"modules"`
	AggregateMetrics  Metrics           `json:"aggregate_metrics"`
	AllIssues         []Issue           `json:"all_issues"`
	AllPatterns       []Pattern         `json:"all_patterns"`
	Suggestions       []Suggestion      `json:"suggestions"`
	AnalysisTime      time.Duration     `json:"analysis_time"`
	ErrorFiles        []string          `json:"error_files"`
	Warnings          []string          `json:"warnings,omitempty"`
}

// HasCriticalIssues 심각한 이슈가 있는지 확인
func (r *AnalysisResult) HasCriticalIssues() bool {
	return r.SeverityCounts()[SeverityCritical] > 0
}

// SeverityCounts 심각도별 이슈 수
func (r *AnalysisResult) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range r.AllIssues {
		counts[issue.Severity]++
	}
	return counts
}

// CategoryCounts 카테고리별 이슈 수
func (r *AnalysisResult) CategoryCounts() map[IssueCategory]int {
	counts := make(map[IssueCategory]int)
	for _, issue := range r.AllIssues {
		counts[issue.Category]++
	}
	return counts
}

// FilterIssues 최소 심각도 이상의 이슈만 남긴다
func (r *AnalysisResult) FilterIssues(min Severity) {
	filtered := r.AllIssues[:0]
	for _, issue := range r.AllIssues {
		if issue.Severity >= min {
			filtered = append(filtered, issue)
		}
	}
	r.AllIssues = filtered
}

// FilterCategories 지정한 카테고리의 이슈만 남긴다. 비어 있으면 그대로 둔다.
func (r *AnalysisResult) FilterCategories(categories []IssueCategory) {
	if len(categories) == 0 {
		return
	}
	allowed := make(map[IssueCategory]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}
	filtered := r.AllIssues[:0]
	for _, issue := range r.AllIssues {
		if allowed[issue.Category] {
			filtered = append(filtered, issue)
		}
	}
	r.AllIssues = filtered
}

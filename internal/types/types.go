package types

import (
	"fmt"
	"strings"
)

// Language 분석 대상 언어 태그
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageJava       Language = "java"
	LanguageCPP        Language = "cpp"
	LanguageGo         Language = "go"
	LanguageRust       Language = "rust"
	LanguageRuby       Language = "ruby"
)

// Severity 이슈 심각도
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText JSON/YAML 출력 시 문자열로 직렬화
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 문자열을 Severity로 역직렬화
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity 문자열을 Severity로 변환
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "low":
		return SeverityInfo, nil
	case "warning", "medium":
		return SeverityWarning, nil
	case "error", "high":
		return SeverityError, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("알 수 없는 심각도: %q", s)
	}
}

// IssueCategory 이슈 분류
type IssueCategory string

const (
	CategoryStyle           IssueCategory = "style"
	CategoryComplexity      IssueCategory = "complexity"
	CategoryBugRisk         IssueCategory = "bug_risk"
	CategorySecurity        IssueCategory = "security"
	CategoryPerformance     IssueCategory = "performance"
	CategoryMaintainability IssueCategory = "maintainability"
	CategoryDocumentation   IssueCategory = "documentation"
	CategoryBestPractice    IssueCategory = "best_practice"
)

// PatternKind 패턴 종류
type PatternKind string

const (
	KindDesignPattern PatternKind = "design_pattern"
	KindAntiPattern   PatternKind = "anti_pattern"
	KindCodeSmell     PatternKind = "code_smell"
	KindIdiom         PatternKind = "idiom"
)

// CodeLocation 소스 위치 (라인은 1부터, 컬럼은 0부터)
type CodeLocation struct {
	File        string `json:"file"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart *int   `json:"column_start,omitempty"`
	ColumnEnd   *int   `json:"column_end,omitempty"`
}

// Lines 위치가 차지하는 라인 수
func (l CodeLocation) Lines() int {
	return l.LineEnd - l.LineStart + 1
}

// IntPtr 선택 필드용 헬퍼
func IntPtr(v int) *int { return &v }

// StringPtr 선택 필드용 헬퍼
func StringPtr(v string) *string { return &v }

// Issue 코드 품질 이슈
type Issue struct {
	Severity   Severity      `json:"severity"`
	Category   IssueCategory `json:"category"`
	Message    string        `json:"message"`
	RuleID     string        `json:"rule_id"`
	Location   CodeLocation  `json:"location"`
	Suggestion string        `json:"suggestion,omitempty"`
	Confidence float64       `json:"confidence"`
}

// NewIssue 기본 신뢰도 1.0의 이슈 생성
func NewIssue(severity Severity, category IssueCategory, ruleID, message string, loc CodeLocation) Issue {
	return Issue{
		Severity:   severity,
		Category:   category,
		Message:    message,
		RuleID:     ruleID,
		Location:   loc,
		Confidence: 1.0,
	}
}

// Pattern 탐지된 패턴
//
// Metadata 값은 원시 타입, []string, []map[string]any 로 제한된다.
type Pattern struct {
	Kind        PatternKind    `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Location    CodeLocation   `json:"location"`
	Confidence  float64        `json:"confidence"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// FunctionRecord 함수/메소드 구조 정보
type FunctionRecord struct {
	Name       string       `json:"name"`
	Location   CodeLocation `json:"location"`
	Parameters []string     `json:"parameters"`
	ReturnType *string      `json:"return_type,omitempty"`
	Docstring  *string      `json:"docstring,omitempty"`
	Decorators []string     `json:"decorators,omitempty"`
	IsAsync    bool         `json:"is_async,omitempty"`
	Complexity int          `json:"complexity"`
	Issues     []Issue      `json:"issues,omitempty"`
}

// HasDocstring 문서 문자열 존재 여부
func (f FunctionRecord) HasDocstring() bool {
	return f.Docstring != nil && strings.TrimSpace(*f.Docstring) != ""
}

// ClassRecord 클래스 구조 정보
type ClassRecord struct {
	Name          string           `json:"name"`
	Location      CodeLocation     `json:"location"`
	Methods       []FunctionRecord `json:"methods"`
	Attributes    []string         `json:"attributes"`
	ParentClasses []string         `json:"parent_classes"`
	Docstring     *string          `json:"docstring,omitempty"`
	Decorators    []string         `json:"decorators,omitempty"`
}

// ModuleAnalysis 파일 단위 분석 결과. 캐시와 탐지기의 기본 단위.
type ModuleAnalysis struct {
	FilePath        string           `json:"file_path"`
	Language        Language         `json:"language"`
	Imports         []string         `json:"imports"`
	Functions       []FunctionRecord `json:"functions"`
	Classes         []ClassRecord    `json:"classes"`
	GlobalVariables []string         `json:"global_variables"`
	Docstring       *string          `json:"docstring,omitempty"`
	Metrics         *Metrics         `json:"metrics,omitempty"`
	Issues          []Issue          `json:"issues"`
	Patterns        []Pattern        `json:"patterns"`
}

// AllFunctions 최상위 함수 다음에 클래스 메소드 순서로 반환
func (m *ModuleAnalysis) AllFunctions() []FunctionRecord {
	all := make([]FunctionRecord, 0, len(m.Functions))
	all = append(all, m.Functions...)
	for _, cls := range m.Classes {
		all = append(all, cls.Methods...)
	}
	return all
}

// AllIssues 모듈 이슈와 함수/메소드에 중첩된 이슈를 모두 반환
func (m *ModuleAnalysis) AllIssues() []Issue {
	issues := make([]Issue, 0, len(m.Issues))
	issues = append(issues, m.Issues...)
	for _, fn := range m.AllFunctions() {
		issues = append(issues, fn.Issues...)
	}
	return issues
}

// HasSyntaxError 구문 오류로 축소된 모델인지 확인
func (m *ModuleAnalysis) HasSyntaxError() bool {
	for _, issue := range m.Issues {
		if issue.RuleID == RuleSyntaxError {
			return true
		}
	}
	return false
}

// RuleSyntaxError 구문 오류 이슈 규칙 ID
const RuleSyntaxError = "syntax-error"

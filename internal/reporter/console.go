package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"code-intel/internal/security"
	"code-intel/internal/types"
)

// maxIssuesPerSeverity 심각도별로 표시할 최대 이슈 수
const maxIssuesPerSeverity = 10

var severityOrder = []types.Severity{
	types.SeverityCritical,
	types.SeverityError,
	types.SeverityWarning,
	types.SeverityInfo,
}

var (
	colorCritical = lipgloss.Color("#E74C3C")
	colorError    = lipgloss.Color("#F39C12")
	colorWarning  = lipgloss.Color("#F4D03F")
	colorInfo     = lipgloss.Color("#2CD7C7")
	colorMuted    = lipgloss.Color("#7F8C8D")
)

type consoleStyles struct {
	title    lipgloss.Style
	section  lipgloss.Style
	muted    lipgloss.Style
	severity map[types.Severity]lipgloss.Style
}

func newConsoleStyles() consoleStyles {
	return consoleStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorInfo),
		section: lipgloss.NewStyle().Bold(true),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		severity: map[types.Severity]lipgloss.Style{
			types.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(colorCritical),
			types.SeverityError:    lipgloss.NewStyle().Foreground(colorError),
			types.SeverityWarning:  lipgloss.NewStyle().Foreground(colorWarning),
			types.SeverityInfo:     lipgloss.NewStyle().Foreground(colorInfo),
		},
	}
}

// ConsoleReporter 콘솔 출력 리포터
type ConsoleReporter struct {
	out    io.Writer
	color  bool
	styles consoleStyles
}

func newConsoleReporter(o *options) *ConsoleReporter {
	color := isTerminal(o.out)
	if o.color != nil {
		color = *o.color
	}
	return &ConsoleReporter{out: o.out, color: color, styles: newConsoleStyles()}
}

func (r *ConsoleReporter) paint(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

func (r *ConsoleReporter) Generate(result *types.AnalysisResult, outputFile string) error {
	if outputFile != "" {
		// 파일에는 색상 코드를 남기지 않는다
		plain := &ConsoleReporter{out: r.out, styles: r.styles}
		return emit(r.out, []byte(plain.render(result)), outputFile)
	}
	return emit(r.out, []byte(r.render(result)), "")
}

func (r *ConsoleReporter) render(result *types.AnalysisResult) string {
	var output strings.Builder

	// 헤더 출력
	output.WriteString(r.paint(r.styles.title, "🔍 Code Intel 분석 결과") + "\n")
	output.WriteString(strings.Repeat("=", 50) + "\n\n")

	// 요약 정보
	counts := result.SeverityCounts()
	m := result.AggregateMetrics
	output.WriteString(r.paint(r.styles.section, "📊 분석 요약") + "\n")
	output.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&output, "검사 파일 수: %d개\n", result.FilesAnalyzed)
	fmt.Fprintf(&output, "코드 라인 수: %d줄\n", result.TotalLines)
	fmt.Fprintf(&output, "발견된 이슈: %d개\n", len(result.AllIssues))
	fmt.Fprintf(&output, "탐지된 패턴: %d개\n", len(result.AllPatterns))
	fmt.Fprintf(&output, "분석 시간: %.2f초\n\n", result.AnalysisTime.Seconds())

	output.WriteString(r.paint(r.styles.section, "📈 품질 지표") + "\n")
	output.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&output, "  순환 복잡도: %.2f\n", m.CyclomaticComplexity)
	fmt.Fprintf(&output, "  인지 복잡도: %.2f\n", m.CognitiveComplexity)
	fmt.Fprintf(&output, "  유지보수 지수: %.1f\n", m.MaintainabilityIndex)
	fmt.Fprintf(&output, "  기술 부채 비율: %.3f\n", m.TechnicalDebtRatio)
	fmt.Fprintf(&output, "  함수 %d개, 클래스 %d개, 평균 함수 길이 %.1f줄\n\n",
		m.NumberOfFunctions, m.NumberOfClasses, m.AverageFunctionLength)

	if len(result.AllIssues) > 0 {
		// 심각도별 통계
		output.WriteString(r.paint(r.styles.section, "⚠️  심각도별 통계") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		for _, severity := range severityOrder {
			if counts[severity] > 0 {
				label := fmt.Sprintf("%s %s: %d개", severityEmoji(severity), severity, counts[severity])
				output.WriteString(r.paint(r.styles.severity[severity], label) + "\n")
			}
		}
		output.WriteString("\n")

		// 카테고리별 통계
		output.WriteString(r.paint(r.styles.section, "📂 카테고리별 통계") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		categories := result.CategoryCounts()
		for _, category := range sortedKeys(categories) {
			fmt.Fprintf(&output, "  %s: %d개\n", category, categories[category])
		}
		output.WriteString("\n")

		r.writeIssues(&output, result.AllIssues)
	} else {
		output.WriteString("✅ 이슈가 발견되지 않았습니다!\n\n")
	}

	if len(result.AllPatterns) > 0 {
		output.WriteString(r.paint(r.styles.section, "🧩 탐지된 패턴") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		for _, p := range result.AllPatterns {
			fmt.Fprintf(&output, "  [%s] %s (%.0f%%) %s\n", p.Kind, p.Name, p.Confidence*100,
				r.paint(r.styles.muted, fmt.Sprintf("%s:%d", p.Location.File, p.Location.LineStart)))
		}
		output.WriteString("\n")
	}

	// 언어별 통계
	if len(result.LanguageBreakdown) > 0 {
		output.WriteString(r.paint(r.styles.section, "💻 언어별 파일 수") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		for _, lang := range sortedKeys(result.LanguageBreakdown) {
			fmt.Fprintf(&output, "  %s: %d개\n", lang, result.LanguageBreakdown[lang])
		}
		output.WriteString("\n")
	}

	if len(result.Suggestions) > 0 {
		output.WriteString(r.paint(r.styles.section, "🛠  개선 제안") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		for _, s := range result.Suggestions {
			fmt.Fprintf(&output, "  (P%d, %s) %s\n", s.Priority, s.EstimatedEffort, s.Title)
			fmt.Fprintf(&output, "     %s\n", s.Description)
		}
		output.WriteString("\n")
	}

	if len(result.ErrorFiles) > 0 || len(result.Warnings) > 0 {
		output.WriteString(r.paint(r.styles.section, "❗ 분석하지 못한 항목") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")
		for _, f := range result.ErrorFiles {
			output.WriteString("  " + r.paint(r.styles.muted, f) + "\n")
		}
		for _, w := range result.Warnings {
			output.WriteString("  " + r.paint(r.styles.muted, w) + "\n")
		}
		output.WriteString("\n")
	}

	// 권장사항
	if len(result.AllIssues) > 0 {
		output.WriteString(r.paint(r.styles.section, "💡 권장사항") + "\n")
		output.WriteString(strings.Repeat("-", 20) + "\n")

		if counts[types.SeverityCritical] > 0 {
			output.WriteString("🚨 Critical 이슈는 즉시 수정이 필요합니다!\n")
		}
		if counts[types.SeverityError] > 0 {
			output.WriteString("⚠️  Error 이슈는 릴리즈 전에 수정하세요.\n")
		}
		if counts[types.SeverityWarning] > 0 {
			output.WriteString("📝 Warning 이슈는 점진적으로 개선하세요.\n")
		}
	}

	return output.String()
}

func (r *ConsoleReporter) writeIssues(output *strings.Builder, issues []types.Issue) {
	output.WriteString(r.paint(r.styles.section, "🐛 발견된 이슈 목록") + "\n")
	output.WriteString(strings.Repeat("=", 50) + "\n\n")

	// 심각도별로 그룹화하여 출력
	grouped := make(map[types.Severity][]types.Issue)
	for _, issue := range issues {
		grouped[issue.Severity] = append(grouped[issue.Severity], issue)
	}

	for _, severity := range severityOrder {
		group := grouped[severity]
		if len(group) == 0 {
			continue
		}

		header := fmt.Sprintf("%s %s 이슈 (%d개)", severityEmoji(severity), strings.ToUpper(severity.String()), len(group))
		output.WriteString(r.paint(r.styles.severity[severity], header) + "\n")
		output.WriteString(strings.Repeat("-", 30) + "\n")

		for i, issue := range group {
			if i >= maxIssuesPerSeverity {
				fmt.Fprintf(output, "  ... 및 %d개 추가 이슈\n", len(group)-i)
				break
			}
			fmt.Fprintf(output, "  📁 %s\n", formatLocation(issue.Location))
			fmt.Fprintf(output, "     [%s] %s\n", issue.RuleID, issue.Message)
			if issue.Suggestion != "" {
				fmt.Fprintf(output, "     💡 %s\n", issue.Suggestion)
			}
			output.WriteString("\n")
		}
	}
}

// WriteSecurityConsole 보안 분석 결과를 콘솔 형식으로 출력
func WriteSecurityConsole(out io.Writer, report *security.DirectoryReport) error {
	var output strings.Builder
	output.WriteString("🔐 보안 분석 결과\n")
	output.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&output, "대상: %s\n", report.Directory)
	fmt.Fprintf(&output, "검사 파일 수: %d개\n", report.FilesAnalyzed)
	fmt.Fprintf(&output, "발견된 취약점: %d개\n", report.Summary.Total)
	fmt.Fprintf(&output, "보안 점수: %.0f/100\n\n", report.Summary.SecurityScore)

	for _, sev := range []string{"critical", "high", "medium", "low"} {
		fmt.Fprintf(&output, "  %s: %d개\n", sev, report.Summary.BySeverity[sev])
	}
	output.WriteString("\n")

	for _, v := range report.Vulnerabilities {
		fmt.Fprintf(&output, "  📁 %s\n", formatLocation(v.Location))
		fmt.Fprintf(&output, "     [%s/%s] %s\n", v.Severity, v.Type, v.Description)
		if v.CodeSnippet != "" {
			fmt.Fprintf(&output, "     📋 %s\n", strings.TrimSpace(v.CodeSnippet))
		}
		if v.FixSuggestion != "" {
			fmt.Fprintf(&output, "     💡 %s\n", v.FixSuggestion)
		}
		output.WriteString("\n")
	}
	return emit(out, []byte(output.String()), "")
}

func formatLocation(loc types.CodeLocation) string {
	if loc.ColumnStart != nil {
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.LineStart, *loc.ColumnStart)
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.LineStart)
}

func severityEmoji(severity types.Severity) string {
	switch severity {
	case types.SeverityCritical:
		return "🚨"
	case types.SeverityError:
		return "⚠️"
	case types.SeverityWarning:
		return "📝"
	case types.SeverityInfo:
		return "💡"
	default:
		return "❓"
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

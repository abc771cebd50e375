package reporter

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"code-intel/internal/types"
)

var htmlFuncs = template.FuncMap{
	"upper":    func(s fmt.Stringer) string { return strings.ToUpper(s.String()) },
	"location": formatLocation,
	"percent":  func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}

var reportTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Code Intel Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; }
        .header { background: #2c3e50; color: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
        .summary, .issues, .patterns, .suggestions { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .issue { border-left: 4px solid #e74c3c; margin-bottom: 15px; padding: 15px; background: #fafafa; }
        .issue.critical { border-left-color: #e74c3c; }
        .issue.error { border-left-color: #f39c12; }
        .issue.warning { border-left-color: #3498db; }
        .issue.info { border-left-color: #27ae60; }
        .severity-badge { display: inline-block; padding: 4px 8px; border-radius: 4px; color: white; font-size: 12px; font-weight: bold; }
        .critical { background-color: #e74c3c; }
        .error { background-color: #f39c12; }
        .warning { background-color: #3498db; }
        .info { background-color: #27ae60; }
        .stats { display: flex; gap: 20px; flex-wrap: wrap; }
        .stat-card { background: #ecf0f1; padding: 15px; border-radius: 8px; flex: 1; min-width: 200px; }
        h1, h2, h3 { margin-top: 0; }
        .file-path { color: #7f8c8d; font-family: monospace; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🔍 Code Intel Report</h1>
            <p>대상: {{.Result.Root}}</p>
            <p>분석 시작 시간: {{.Result.Timestamp.Format "2006-01-02 15:04:05"}}</p>
            <p>분석 시간: {{printf "%.2f" .Result.AnalysisTime.Seconds}}초</p>
        </div>

        <div class="summary">
            <h2>📊 분석 요약</h2>
            <div class="stats">
                <div class="stat-card"><h3>{{.Result.FilesAnalyzed}}</h3><p>검사된 파일</p></div>
                <div class="stat-card"><h3>{{.Result.TotalLines}}</h3><p>코드 라인</p></div>
                <div class="stat-card"><h3>{{len .Result.AllIssues}}</h3><p>발견된 이슈</p></div>
                <div class="stat-card"><h3>{{printf "%.1f" .Result.AggregateMetrics.MaintainabilityIndex}}</h3><p>유지보수 지수</p></div>
                {{- range .Severities}}
                <div class="stat-card"><h3>{{.Count}}</h3><p><span class="severity-badge {{.Severity}}">{{upper .Severity}}</span></p></div>
                {{- end}}
            </div>
        </div>
        {{- if .Result.AllIssues}}

        <div class="issues">
            <h2>🐛 발견된 이슈</h2>
            {{- range .Result.AllIssues}}
            <div class="issue {{.Severity}}">
                <div class="file-path">{{location .Location}}</div>
                <h3>{{.Message}} <span class="severity-badge {{.Severity}}">{{upper .Severity}}</span></h3>
                <p><strong>규칙:</strong> {{.RuleID}}</p>
                <p><strong>카테고리:</strong> {{.Category}}</p>
                {{- if .Suggestion}}
                <p><strong>💡 권장사항:</strong> {{.Suggestion}}</p>
                {{- end}}
            </div>
            {{- end}}
        </div>
        {{- end}}
        {{- if .Result.AllPatterns}}

        <div class="patterns">
            <h2>🧩 탐지된 패턴</h2>
            {{- range .Result.AllPatterns}}
            <p><strong>[{{.Kind}}] {{.Name}}</strong> ({{percent .Confidence}}) <span class="file-path">{{location .Location}}</span><br>{{.Description}}</p>
            {{- end}}
        </div>
        {{- end}}
        {{- if .Result.Suggestions}}

        <div class="suggestions">
            <h2>🛠 개선 제안</h2>
            {{- range .Result.Suggestions}}
            <p><strong>P{{.Priority}} {{.Title}}</strong> ({{.EstimatedEffort}})<br>{{.Description}}</p>
            {{- end}}
        </div>
        {{- end}}
    </div>
</body>
</html>
`))

type severityCount struct {
	Severity types.Severity
	Count    int
}

// HTMLReporter HTML 출력 리포터
type HTMLReporter struct {
	out io.Writer
}

func (r *HTMLReporter) Generate(result *types.AnalysisResult, outputFile string) error {
	counts := result.SeverityCounts()
	data := struct {
		Result     *types.AnalysisResult
		Severities []severityCount
	}{Result: result}
	for _, severity := range severityOrder {
		if counts[severity] > 0 {
			data.Severities = append(data.Severities, severityCount{Severity: severity, Count: counts[severity]})
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("HTML 렌더링 실패: %w", err)
	}
	return emit(r.out, buf.Bytes(), outputFile)
}

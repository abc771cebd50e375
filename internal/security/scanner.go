// Package security 정규식과 구문 트리 기반 취약점 스캐너
package security

import (
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"code-intel/internal/config"
	"code-intel/internal/parser"
	"code-intel/internal/types"
)

// 스캐너 패스 이름
const (
	PassPatterns  = "patterns"
	PassTree      = "tree"
	PassSensitive = "sensitive"
	PassImports   = "imports"
)

// 취약점 타입
const (
	TypeSQLInjection            = "sql_injection"
	TypeCommandInjection        = "command_injection"
	TypePathTraversal           = "path_traversal"
	TypeHardcodedCredentials    = "hardcoded_credentials"
	TypeInsecureRandom          = "insecure_random"
	TypeWeakEncryption          = "weak_encryption"
	TypeInsecureDeserialization = "insecure_deserialization"
	TypeSSRF                    = "server_side_request_forgery"
	TypeSensitiveDataExposure   = "sensitive_data_exposure"
	TypeInsufficientValidation  = "insufficient_validation"
	TypeDeprecatedAPI           = "deprecated_api"
)

// regexRule 정규식 한 개로 판정하는 규칙
type regexRule struct {
	vulnType    string
	severity    types.VulnSeverity
	category    types.SecurityCategory
	description string
	pattern     *regexp.Regexp
	fix         string
	references  []string
}

func defaultRegexRules() []regexRule {
	return []regexRule{
		{
			vulnType:    TypeSQLInjection,
			severity:    types.VulnHigh,
			category:    types.SecInjection,
			description: "Potential SQL injection vulnerability",
			pattern:     regexp.MustCompile(`(?im)(execute|cursor\.execute)\s*\(\s*["'].*?%[sd].*?["'].*?%`),
			fix:         "Use parameterized queries instead of string formatting",
			references:  []string{"https://owasp.org/www-community/attacks/SQL_Injection"},
		},
		{
			vulnType:    TypeSQLInjection,
			severity:    types.VulnHigh,
			category:    types.SecInjection,
			description: "SQL query with string concatenation",
			pattern:     regexp.MustCompile(`(?im)(SELECT|INSERT|UPDATE|DELETE).*?\+.*?('|")`),
			fix:         "Use parameterized queries instead of string concatenation",
			references:  []string{"CWE-89"},
		},
		{
			vulnType:    TypeCommandInjection,
			severity:    types.VulnCritical,
			category:    types.SecInjection,
			description: "Potential command injection vulnerability",
			pattern:     regexp.MustCompile(`(?im)(os\.system|subprocess\.(call|run|Popen))\s*\([^)]*\+[^)]*\)`),
			fix:         "Use subprocess with shell=False and pass arguments as a list",
			references:  []string{"CWE-78"},
		},
		{
			vulnType:    TypePathTraversal,
			severity:    types.VulnHigh,
			category:    types.SecPathTraversal,
			description: "Potential path traversal vulnerability",
			pattern:     regexp.MustCompile(`(?im)open\s*\([^)]*\+[^)]*\)|Path\s*\([^)]*\+[^)]*\)`),
			fix:         "Validate and sanitize file paths before use",
			references:  []string{"CWE-22"},
		},
		{
			vulnType:    TypeHardcodedCredentials,
			severity:    types.VulnCritical,
			category:    types.SecAuthentication,
			description: "Hardcoded credentials detected",
			pattern:     regexp.MustCompile(`(?im)(password|passwd|pwd|secret|api_key|token)\s*=\s*["'][^"']+["']`),
			fix:         "Use environment variables or secure credential storage",
			references:  []string{"CWE-798"},
		},
		{
			vulnType:    TypeInsecureRandom,
			severity:    types.VulnMedium,
			category:    types.SecCryptography,
			description: "Use of insecure random number generator",
			pattern:     regexp.MustCompile(`(?im)random\.(random|randint|choice)\s*\(`),
			fix:         "Use secrets module for cryptographic purposes",
			references:  []string{"CWE-330"},
		},
		{
			vulnType:    TypeWeakEncryption,
			severity:    types.VulnHigh,
			category:    types.SecCryptography,
			description: "Use of weak encryption algorithm",
			pattern:     regexp.MustCompile(`(?im)\b(MD5|SHA1|DES|RC4)\s*\(`),
			fix:         "Use strong encryption algorithms like SHA-256 or AES",
			references:  []string{"CWE-327"},
		},
		{
			vulnType:    TypeInsecureDeserialization,
			severity:    types.VulnHigh,
			category:    types.SecInjection,
			description: "Potential insecure deserialization",
			pattern:     regexp.MustCompile(`(?im)pickle\.(load|loads)\s*\(`),
			fix:         "Validate input before deserialization or use safer formats like JSON",
			references:  []string{"CWE-502"},
		},
		{
			vulnType:    TypeSSRF,
			severity:    types.VulnHigh,
			category:    types.SecInjection,
			description: "Potential Server-Side Request Forgery",
			pattern:     regexp.MustCompile(`(?im)requests\.(get|post|put|delete)\s*\([^)]*\+[^)]*\)`),
			fix:         "Validate and whitelist URLs before making requests",
			references:  []string{"CWE-918"},
		},
	}
}

// dangerousCall 구문 트리 패스의 호출 표 항목
type dangerousCall struct {
	vulnType    string
	severity    types.VulnSeverity
	description string
	fix         string
	references  []string
	confidence  float64
}

const (
	fallbackFix       = "Consider using a safer alternative"
	fallbackReference = "CWE-676"
)

func processCall(fix string, refs ...string) dangerousCall {
	return dangerousCall{vulnType: TypeCommandInjection, severity: types.VulnHigh, fix: fix, references: refs, confidence: 0.9}
}

func codeExecution(fix string) dangerousCall {
	return dangerousCall{
		vulnType:    TypeCommandInjection,
		severity:    types.VulnCritical,
		description: "Use of %s can lead to arbitrary code execution",
		fix:         fix,
		references:  []string{"CWE-94", "CWE-95"},
		confidence:  1.0,
	}
}

func deserialization(fix string) dangerousCall {
	return dangerousCall{vulnType: TypeInsecureDeserialization, severity: types.VulnMedium, fix: fix, references: []string{"CWE-502"}, confidence: 0.9}
}

// dangerousCalls 정규화한 호출 이름 -> 판정
var dangerousCalls = map[string]dangerousCall{
	"os.system":        processCall("Use subprocess.run() with shell=False", "CWE-78"),
	"os.popen":         processCall("Use subprocess.run() with shell=False", "CWE-78"),
	"os.execl":         processCall(fallbackFix, "CWE-78"),
	"os.execle":        processCall(fallbackFix, "CWE-78"),
	"os.execlp":        processCall(fallbackFix, "CWE-78"),
	"os.execv":         processCall(fallbackFix, "CWE-78"),
	"os.execve":        processCall(fallbackFix, "CWE-78"),
	"os.execvp":        processCall(fallbackFix, "CWE-78"),
	"subprocess.call":  processCall("Pass arguments as a list with shell=False", "CWE-78"),
	"subprocess.run":   processCall("Pass arguments as a list with shell=False", "CWE-78"),
	"subprocess.Popen": processCall("Pass arguments as a list with shell=False", "CWE-78"),
	"eval":             codeExecution("Use ast.literal_eval() for safe evaluation"),
	"exec":             codeExecution("Avoid using exec, consider alternative approaches"),
	"compile":          codeExecution("Avoid using compile, consider safer alternatives"),
	"__import__":       codeExecution("Use importlib.import_module() with an allow list"),
	"pickle.load":      deserialization("Consider using JSON for serialization"),
	"pickle.loads":     deserialization("Consider using JSON for serialization"),
	"marshal.load":     deserialization("Consider using JSON for serialization"),
	"marshal.loads":    deserialization("Consider using JSON for serialization"),
	"yaml.load":        deserialization("Use yaml.safe_load() instead"),
	"yaml.load_all":    deserialization("Use yaml.safe_load_all() instead"),
	"urlopen":          {vulnType: TypeSSRF, severity: types.VulnMedium, fix: "Validate and whitelist URLs before making requests", references: []string{"CWE-918"}, confidence: 0.9},
	"urlretrieve":      {vulnType: TypeSSRF, severity: types.VulnMedium, fix: "Validate and whitelist URLs before making requests", references: []string{"CWE-918"}, confidence: 0.9},
}

// anyReceiver 수신 객체와 무관하게 마지막 이름으로 조회하는 호출
var anyReceiver = map[string]bool{"urlopen": true, "urlretrieve": true}

var (
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Za-z0-9]{32,}`),
		regexp.MustCompile(`-----BEGIN (RSA |EC )?PRIVATE KEY-----`),
		regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`),
		regexp.MustCompile(`\b(?:\d{3}[-.]?)?\d{3}[-.]?\d{4}\b`),
		regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`),
	}
	sensitiveKeywords = []string{"password", "secret", "key", "token", "credential", "auth"}

	importLine = regexp.MustCompile(`(?m)^\s*(?:from\s+(\w+)|import\s+(\w+))`)
)

// dangerousImports 모듈 -> (설명, 수정 제안)
var dangerousImports = map[string][2]string{
	"telnetlib": {"Use of insecure Telnet protocol", "Use SSH instead of Telnet"},
	"ftplib":    {"Use of insecure FTP protocol", "Use SFTP or FTPS instead"},
	"pickle":    {"Use of pickle can lead to arbitrary code execution", "Consider using JSON for serialization"},
	"marshal":   {"Use of marshal can be insecure", "Consider using JSON for serialization"},
	"imp":       {"Deprecated import mechanism", "Use importlib instead"},
}

// Scanner 네 개의 독립 패스로 취약점을 찾는다. 생성 후에는 상태가 없다.
type Scanner struct {
	rules         []regexRule
	contextWindow int
	passes        config.SecurityConfig
}

// NewScanner 보안 설정으로 스캐너 생성
func NewScanner(cfg config.SecurityConfig) *Scanner {
	s := &Scanner{
		rules:         defaultRegexRules(),
		contextWindow: cfg.ContextWindow,
		passes:        cfg,
	}
	if s.contextWindow <= 0 {
		s.contextWindow = 50
	}
	return s
}

// Scan 내용을 검사한다. tree 가 nil 이거나 파이썬 파일이 아니면 구문 트리 패스는 건너뛴다.
func (s *Scanner) Scan(content, path string, tree *sitter.Tree) []types.Vulnerability {
	src := newScanSource(content, path)

	var vulns []types.Vulnerability
	if s.passes.PassEnabled(PassPatterns) {
		vulns = append(vulns, s.scanPatterns(src)...)
	}
	if s.passes.PassEnabled(PassTree) && tree != nil && strings.EqualFold(filepath.Ext(path), ".py") {
		for _, v := range s.scanTree(src, tree.RootNode()) {
			if !shadowed(vulns, v) {
				vulns = append(vulns, v)
			}
		}
	}
	if s.passes.PassEnabled(PassSensitive) {
		vulns = append(vulns, s.scanSensitive(src)...)
	}
	if s.passes.PassEnabled(PassImports) {
		vulns = append(vulns, s.scanImports(src)...)
	}
	return vulns
}

// shadowed 같은 라인, 같은 타입에 같거나 높은 심각도의 발견이 이미 있는지
func shadowed(existing []types.Vulnerability, v types.Vulnerability) bool {
	for _, e := range existing {
		if e.Location.LineStart == v.Location.LineStart && e.Type == v.Type && e.Severity >= v.Severity {
			return true
		}
	}
	return false
}

type scanSource struct {
	content string
	path    string
	lines   []string
}

func newScanSource(content, path string) scanSource {
	if path == "" {
		path = "unknown"
	}
	return scanSource{content: content, path: path, lines: parser.SplitLines(content)}
}

func (s scanSource) snippet(line int) string {
	if line < 1 || line > len(s.lines) {
		return ""
	}
	return s.lines[line-1]
}

// locate 바이트 범위를 라인과 0부터 시작하는 컬럼으로 변환
func (s scanSource) locate(start, end int) types.CodeLocation {
	line := parser.LineNumber(s.content, start)
	lineStart := strings.LastIndexByte(s.content[:start], '\n') + 1
	return types.CodeLocation{
		File:        s.path,
		LineStart:   line,
		LineEnd:     line,
		ColumnStart: types.IntPtr(start - lineStart),
		ColumnEnd:   types.IntPtr(end - lineStart),
	}
}

func (s *Scanner) scanPatterns(src scanSource) []types.Vulnerability {
	var vulns []types.Vulnerability
	for _, rule := range s.rules {
		for _, m := range rule.pattern.FindAllStringIndex(src.content, -1) {
			loc := src.locate(m[0], m[1])
			vulns = append(vulns, types.Vulnerability{
				Type:          rule.vulnType,
				Severity:      rule.severity,
				Category:      rule.category,
				Description:   rule.description,
				Location:      loc,
				CodeSnippet:   src.snippet(loc.LineStart),
				FixSuggestion: rule.fix,
				References:    rule.references,
				Confidence:    0.8,
			})
		}
	}
	return vulns
}

func (s *Scanner) scanSensitive(src scanSource) []types.Vulnerability {
	var vulns []types.Vulnerability
	for _, pattern := range sensitivePatterns {
		for _, m := range pattern.FindAllStringIndex(src.content, -1) {
			if !s.likelySensitive(src.content, m[0], m[1]) {
				continue
			}
			loc := src.locate(m[0], m[1])
			vulns = append(vulns, types.Vulnerability{
				Type:          TypeSensitiveDataExposure,
				Severity:      types.VulnHigh,
				Category:      types.SecDataExposure,
				Description:   "Potential sensitive data exposure",
				Location:      loc,
				CodeSnippet:   src.snippet(loc.LineStart),
				FixSuggestion: "Remove or encrypt sensitive data",
				References:    []string{"CWE-200", "CWE-312"},
				Confidence:    0.7,
			})
		}
	}
	return vulns
}

// likelySensitive 주변 문맥에 민감 키워드가 있고 앞쪽에 주석 기호가 없는지
func (s *Scanner) likelySensitive(content string, start, end int) bool {
	from := max(0, start-s.contextWindow)
	to := min(len(content), end+s.contextWindow)
	if strings.Contains(content[from:start], "#") {
		return false
	}
	return containsAny(strings.ToLower(content[from:to]), sensitiveKeywords)
}

func (s *Scanner) scanImports(src scanSource) []types.Vulnerability {
	var vulns []types.Vulnerability
	for _, m := range importLine.FindAllStringSubmatchIndex(src.content, -1) {
		// 앞쪽 \s* 가 빈 줄을 삼킬 수 있으므로 위치는 모듈 이름 기준
		start, end := m[2], m[3]
		if start < 0 {
			start, end = m[4], m[5]
		}
		entry, ok := dangerousImports[src.content[start:end]]
		if !ok {
			continue
		}
		loc := src.locate(start, end)
		vulns = append(vulns, types.Vulnerability{
			Type:          TypeDeprecatedAPI,
			Severity:      types.VulnMedium,
			Category:      types.SecConfiguration,
			Description:   entry[0],
			Location:      loc,
			CodeSnippet:   src.snippet(loc.LineStart),
			FixSuggestion: entry[1],
			References:    []string{fallbackReference},
			Confidence:    0.9,
		})
	}
	return vulns
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

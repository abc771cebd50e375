package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/config"
	"code-intel/internal/parser"
	"code-intel/internal/types"
)

func scanPython(t *testing.T, s *Scanner, src string) []types.Vulnerability {
	t.Helper()
	file, err := parser.NewPythonExtractor().Extract(context.Background(), "app.py", []byte(src))
	require.NoError(t, err)
	defer file.Close()
	require.NotNil(t, file.Tree, "fixture must parse")
	return s.Scan(src, "app.py", file.Tree)
}

func defaultScanner() *Scanner {
	return NewScanner(config.Default().Security)
}

func TestScan_CommandInjectionReportedOnce(t *testing.T) {
	vulns := scanPython(t, defaultScanner(), `import os

def run(user_input):
    os.system("echo " + user_input)
`)
	require.Len(t, vulns, 1)
	v := vulns[0]
	assert.Equal(t, TypeCommandInjection, v.Type)
	assert.Equal(t, types.VulnCritical, v.Severity)
	assert.Equal(t, 4, v.Location.LineStart)
	require.NotNil(t, v.Location.ColumnStart)
	assert.Equal(t, 4, *v.Location.ColumnStart)
	assert.Equal(t, `    os.system("echo " + user_input)`, v.CodeSnippet)
	assert.Equal(t, []string{"CWE-78"}, v.References)
}

func TestScan_TreePassWithoutRegexMatch(t *testing.T) {
	vulns := scanPython(t, defaultScanner(), `def run(cmd, expr):
    os.system(cmd)
    return eval(expr)
`)
	require.Len(t, vulns, 2)

	assert.Equal(t, TypeCommandInjection, vulns[0].Type)
	assert.Equal(t, types.VulnHigh, vulns[0].Severity)
	assert.Equal(t, "Use of dangerous function: os.system", vulns[0].Description)
	assert.Equal(t, "Use subprocess.run() with shell=False", vulns[0].FixSuggestion)

	assert.Equal(t, types.VulnCritical, vulns[1].Severity)
	assert.Equal(t, "Use of eval can lead to arbitrary code execution", vulns[1].Description)
	assert.Equal(t, []string{"CWE-94", "CWE-95"}, vulns[1].References)
	assert.Equal(t, 1.0, vulns[1].Confidence)
}

func TestScan_Assert(t *testing.T) {
	vulns := scanPython(t, defaultScanner(), "def check(x):\n    assert x > 0\n    return x\n")
	require.Len(t, vulns, 1)
	assert.Equal(t, TypeInsufficientValidation, vulns[0].Type)
	assert.Equal(t, types.VulnLow, vulns[0].Severity)
	assert.Equal(t, types.SecInputValidation, vulns[0].Category)
	assert.Equal(t, 2, vulns[0].Location.LineStart)
}

func TestScan_DeserializationAndImports(t *testing.T) {
	vulns := scanPython(t, defaultScanner(), `import pickle

def load(data):
    return pickle.loads(data)
`)
	require.Len(t, vulns, 2)

	assert.Equal(t, TypeInsecureDeserialization, vulns[0].Type)
	assert.Equal(t, types.VulnHigh, vulns[0].Severity)
	assert.Equal(t, 4, vulns[0].Location.LineStart)

	assert.Equal(t, TypeDeprecatedAPI, vulns[1].Type)
	assert.Equal(t, types.VulnMedium, vulns[1].Severity)
	assert.Equal(t, "Use of pickle can lead to arbitrary code execution", vulns[1].Description)
	assert.Equal(t, 1, vulns[1].Location.LineStart)
}

func TestScan_WithoutTree(t *testing.T) {
	vulns := defaultScanner().Scan("from telnetlib import Telnet\nx = eval(s)\n", "app.py", nil)
	require.Len(t, vulns, 1)
	assert.Equal(t, "Use of insecure Telnet protocol", vulns[0].Description)
	assert.Equal(t, "Use SSH instead of Telnet", vulns[0].FixSuggestion)
	assert.Equal(t, "app.py", vulns[0].Location.File)
}

func TestScan_RegexBank(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		vulnType string
		severity types.VulnSeverity
	}{
		{"sql formatting", `cursor.execute("SELECT * FROM t WHERE id = %s" % uid)`, TypeSQLInjection, types.VulnHigh},
		{"credentials", `password = "hunter2"`, TypeHardcodedCredentials, types.VulnCritical},
		{"random", `n = random.randint(1, 6)`, TypeInsecureRandom, types.VulnMedium},
		{"weak hash", `h = MD5(data)`, TypeWeakEncryption, types.VulnHigh},
		{"path", `f = open(base + name)`, TypePathTraversal, types.VulnHigh},
		{"ssrf", `requests.get(host + path)`, TypeSSRF, types.VulnHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vulns := defaultScanner().Scan(tt.code+"\n", "x.js", nil)
			require.NotEmpty(t, vulns)
			assert.Equal(t, tt.vulnType, vulns[0].Type)
			assert.Equal(t, tt.severity, vulns[0].Severity)
			assert.Equal(t, 0.8, vulns[0].Confidence)
		})
	}
}

func TestScan_SensitiveData(t *testing.T) {
	s := defaultScanner()

	vulns := s.Scan(`auth_header = build("0123456789abcdef0123456789abcdef")`+"\n", "x.py", nil)
	require.Len(t, vulns, 1)
	assert.Equal(t, TypeSensitiveDataExposure, vulns[0].Type)
	assert.Equal(t, types.SecDataExposure, vulns[0].Category)
	assert.Equal(t, 0.7, vulns[0].Confidence)

	assert.Empty(t, s.Scan(`# auth "0123456789abcdef0123456789abcdef"`+"\n", "x.py", nil))
	assert.Empty(t, s.Scan(`digest = "0123456789abcdef0123456789abcdef"`+"\n", "x.py", nil))
}

func TestScan_DisabledPasses(t *testing.T) {
	cfg := config.Default().Security
	cfg.DisabledPasses = []string{"patterns"}

	vulns := scanPython(t, NewScanner(cfg), "import os\nos.system(\"ls \" + d)\n")
	require.Len(t, vulns, 1)
	assert.Equal(t, types.VulnHigh, vulns[0].Severity)

	cfg.DisabledPasses = []string{"patterns", "TREE", "sensitive", "imports"}
	assert.Empty(t, scanPython(t, NewScanner(cfg), "import os\nos.system(\"ls \" + d)\n"))
}

func TestQualifiedName_UrlopenAnyReceiver(t *testing.T) {
	vulns := scanPython(t, defaultScanner(), "import urllib.request\nurllib.request.urlopen(url)\n")
	require.Len(t, vulns, 1)
	assert.Equal(t, TypeSSRF, vulns[0].Type)
	assert.Equal(t, types.VulnMedium, vulns[0].Severity)
}

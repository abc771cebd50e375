package security

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/config"
	"code-intel/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScore(t *testing.T) {
	w := config.Default().Security.Weights
	assert.Equal(t, 100.0, Score(nil, w))

	vulns := []types.Vulnerability{
		{Severity: types.VulnCritical},
		{Severity: types.VulnHigh},
		{Severity: types.VulnMedium},
		{Severity: types.VulnLow},
	}
	assert.Equal(t, 54.0, Score(vulns, w))

	many := make([]types.Vulnerability, 10)
	for i := range many {
		many[i].Severity = types.VulnCritical
	}
	assert.Equal(t, 0.0, Score(many, w))
}

func TestSummarize(t *testing.T) {
	var vulns []types.Vulnerability
	add := func(typ string, n int, sev types.VulnSeverity) {
		for i := 0; i < n; i++ {
			vulns = append(vulns, types.Vulnerability{Type: typ, Severity: sev, Category: types.SecInjection})
		}
	}
	add("a", 1, types.VulnLow)
	add("b", 3, types.VulnLow)
	add("c", 1, types.VulnLow)
	add("d", 2, types.VulnLow)
	add("e", 1, types.VulnLow)
	add("f", 1, types.VulnLow)

	s := Summarize(vulns, config.Default().Security.Weights)
	assert.Equal(t, 9, s.Total)
	assert.Equal(t, map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 9}, s.BySeverity)
	assert.Equal(t, 9, s.ByCategory[types.SecInjection])
	assert.Equal(t, []TypeCount{{"b", 3}, {"d", 2}, {"a", 1}, {"c", 1}, {"e", 1}}, s.MostCommon)
	assert.Equal(t, 91.0, s.SecurityScore)
}

func TestAnalyzer_AnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.py")
	writeFile(t, path, "import os\n\ndef run(user_input):\n    os.system(\"echo \" + user_input)\n")

	report, err := NewAnalyzer(nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, report.File)
	assert.Equal(t, 1, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.BySeverity["critical"])
	assert.Equal(t, 75.0, report.Summary.SecurityScore)
}

func TestAnalyzer_AnalyzeFileMissing(t *testing.T) {
	_, err := NewAnalyzer(nil).AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "nope.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzer_AnalyzeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "import os\nos.system(\"ls \" + d)\n")
	writeFile(t, filepath.Join(root, "pkg", "b.py"), "x = eval(s)\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "password = \"hunter2\"\n")

	report, err := NewAnalyzer(nil, WithWorkers(2)).AnalyzeDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesAnalyzed)
	require.Len(t, report.FileResults, 2)
	assert.Equal(t, filepath.Join(root, "a.py"), report.FileResults[0].File)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 2, report.Summary.BySeverity["critical"])
	assert.Equal(t, 50.0, report.Summary.SecurityScore)
	assert.Equal(t, []TypeCount{{TypeCommandInjection, 2}}, report.Summary.MostCommon)
}

func TestAnalyzer_AnalyzeDirectoryCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer(nil).AnalyzeDirectory(ctx, root, []string{"*.py"})
	assert.ErrorIs(t, err, context.Canceled)
}

package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/config"
	"code-intel/internal/types"
)

const simpleSource = "def f(x, y):\n    return x + y\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAnalyzeFile_CacheHitReturnsSamePointer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	a := New(nil)
	first, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, a.CacheSize())
}

func TestAnalyzeFile_ConcurrentCallsShareResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	a := New(nil)
	results := make([]*types.ModuleAnalysis, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := a.AnalyzeFile(context.Background(), path)
			assert.NoError(t, err)
			results[i] = m
		}()
	}
	wg.Wait()

	for _, m := range results[1:] {
		assert.Same(t, results[0], m)
	}
}

func TestAnalyzeFile_MtimeInvalidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	a := New(nil)
	first, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, first.Functions, 1)

	writeFile(t, path, simpleSource+"\ndef g():\n    return 1\n")
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, second.Functions, 2)
}

func TestAnalyzeFile_Invalidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	a := New(nil)
	first, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	a.Invalidate(path)
	assert.Equal(t, 0, a.CacheSize())

	second, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	a.ClearCache()
	assert.Equal(t, 0, a.CacheSize())
}

func TestAnalyzeFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "hello")

	m, err := New(nil).AnalyzeFile(context.Background(), path)
	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	_, err := New(nil).AnalyzeFile(context.Background(), filepath.Join(t.TempDir(), "gone.py"))
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAnalyzeFile_SimpleFunction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	m, err := New(nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, m.Functions, 1)
	assert.Equal(t, 1, m.Functions[0].Complexity)
	require.NotNil(t, m.Metrics)
	assert.Equal(t, 1.0, m.Metrics.CyclomaticComplexity)
	for _, issue := range m.AllIssues() {
		assert.NotEqual(t, types.CategoryComplexity, issue.Category)
	}
}

func TestAnalyzeFile_SecurityIssues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.py")
	writeFile(t, path, "import os\n\ndef run(user_input):\n    os.system(\"echo \" + user_input)\n")

	m, err := New(nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	var security []types.Issue
	for _, issue := range m.Issues {
		if issue.Category == types.CategorySecurity {
			security = append(security, issue)
		}
	}
	require.Len(t, security, 1)
	assert.Equal(t, "security-command_injection", security[0].RuleID)
	assert.Equal(t, types.SeverityCritical, security[0].Severity)
	assert.Equal(t, "Use subprocess with shell=False and pass arguments as a list", security[0].Suggestion)
	assert.Equal(t, 0.8, security[0].Confidence)
}

func TestAnalyzeFile_SyntaxErrorDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.py")
	writeFile(t, path, "def f(:\n    pass\n")

	m, err := New(nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, m.HasSyntaxError())
	assert.Equal(t, 50.0, m.Metrics.MaintainabilityIndex)
	assert.Empty(t, m.Patterns)
}

type panicDetector struct{}

func (panicDetector) Name() string                { return "Exploder" }
func (panicDetector) Kind() types.PatternKind     { return types.KindIdiom }
func (panicDetector) Description() string         { return "always panics" }
func (panicDetector) Languages() []types.Language { return []types.Language{types.LanguagePython} }
func (panicDetector) Detect(*types.ModuleAnalysis, string) ([]types.Pattern, error) {
	panic("boom")
}

func TestAnalyzeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "import os\nos.system(\"ls \" + d)\n")
	writeFile(t, filepath.Join(root, "pkg", "b.py"), simpleSource)
	writeFile(t, filepath.Join(root, "c.js"), "console.log(1)\n")
	writeFile(t, filepath.Join(root, "node_modules", "d.py"), simpleSource)

	a := New(nil)
	require.NoError(t, a.Patterns().Register(panicDetector{}))

	result, err := a.AnalyzeDirectory(context.Background(), root, DirectoryOptions{Recursive: true, Workers: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, 2, result.FilesAnalyzed)
	assert.Equal(t, []string{filepath.Join(root, "c.js")}, result.ErrorFiles)
	assert.Equal(t, 2, result.LanguageBreakdown[types.LanguagePython])
	assert.Equal(t, 4, result.TotalLines)
	assert.Equal(t, 4, result.AggregateMetrics.LinesOfCode)
	assert.True(t, result.HasCriticalIssues())

	require.Len(t, result.Modules, 2)
	assert.Equal(t, filepath.Join(root, "a.py"), result.Modules[0].FilePath)

	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "a.py: Exploder:")

	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "Address Critical Security Vulnerabilities", result.Suggestions[0].Title)
}

func TestAnalyzeDirectory_NonRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), simpleSource)
	writeFile(t, filepath.Join(root, "pkg", "b.py"), simpleSource)

	result, err := New(nil).AnalyzeDirectory(context.Background(), root, DirectoryOptions{Patterns: []string{"*.py"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAnalyzed)
}

func TestAnalyzeDirectory_Empty(t *testing.T) {
	result, err := New(nil).AnalyzeDirectory(context.Background(), t.TempDir(), DirectoryOptions{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesAnalyzed)
	assert.Equal(t, 100.0, result.AggregateMetrics.MaintainabilityIndex)
	assert.Empty(t, result.Suggestions)
}

func TestAnalyzeDirectory_MissingRoot(t *testing.T) {
	_, err := New(nil).AnalyzeDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), DirectoryOptions{})
	assert.ErrorIs(t, err, ErrIO)
}

func TestAnalyzeDirectory_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), simpleSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).AnalyzeDirectory(ctx, root, DirectoryOptions{Recursive: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeChanges(t *testing.T) {
	oldSrc := "def f(x):\n    \"\"\"Return a code.\"\"\"\n    return 0\n"
	newSrc := "def f(x):\n    if x > 1:\n        return 1\n    elif x < 0:\n        return 2\n    return 0\n"

	old, cur, suggestions, err := New(nil).AnalyzeChanges(context.Background(), oldSrc, newSrc, "pkg/f.py")
	require.NoError(t, err)
	assert.Equal(t, 1.0, old.Metrics.CyclomaticComplexity)
	assert.Equal(t, 3.0, cur.Metrics.CyclomaticComplexity)

	require.Len(t, suggestions, 2)
	assert.Equal(t, "Complexity Increase Detected", suggestions[0].Title)
	assert.Equal(t, "Code complexity increased from 1.0 to 3.0", suggestions[0].Description)
	assert.Equal(t, "pkg/f.py", suggestions[0].Location.File)
	assert.Equal(t, "Documentation Coverage Decreased", suggestions[1].Title)
	assert.Equal(t, types.CategoryDocumentation, suggestions[1].Category)
}

func TestAnalyzeChanges_Unsupported(t *testing.T) {
	_, _, _, err := New(nil).AnalyzeChanges(context.Background(), "", "", "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestNew_DisabledExtractorRules(t *testing.T) {
	disabled := false
	cfg := config.Default()
	cfg.Rules = []config.RuleConfig{{ID: config.RuleMissingDocstring, Enabled: &disabled}}

	path := filepath.Join(t.TempDir(), "a.py")
	writeFile(t, path, simpleSource)

	m, err := New(cfg).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	for _, issue := range m.AllIssues() {
		assert.NotEqual(t, config.RuleMissingDocstring, issue.RuleID)
	}
}

func TestAnalyzeFileResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeFile(t, path, simpleSource)

	a := New(nil)
	result, err := a.AnalyzeFileResult(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesAnalyzed)
	assert.Equal(t, path, result.Root)
	assert.Empty(t, result.ErrorFiles)

	txt := filepath.Join(dir, "notes.txt")
	writeFile(t, txt, "hello")
	result, err = a.AnalyzeFileResult(context.Background(), txt)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesAnalyzed)
	assert.Equal(t, []string{txt}, result.ErrorFiles)
}

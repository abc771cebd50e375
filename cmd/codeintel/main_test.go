package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/types"
)

func TestParseCategories(t *testing.T) {
	assert.Equal(t,
		[]types.IssueCategory{types.CategorySecurity, types.CategoryComplexity},
		parseCategories(" security, complexity ,,"))
	assert.Nil(t, parseCategories(""))
}

func TestAnalyzeCommand_CriticalExit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.py"),
		[]byte("import os\n\ndef run(user_input):\n    os.system(\"echo \" + user_input)\n"), 0o644))
	out := filepath.Join(dir, "report.json")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"analyze", dir, "-c", filepath.Join(dir, "missing.yaml"), "-o", "json", "--output-file", out, "-s", "critical"})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errCriticalFound)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.FilesAnalyzed)
	require.Len(t, result.AllIssues, 1)
	assert.Equal(t, "security-command_injection", result.AllIssues[0].RuleID)
}

func TestAnalyzeCommand_BadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("patterns:\n  disabled: [\"God Clas\"]\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"analyze", dir, "-c", cfgPath})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "설정 파일 로드 실패")
}

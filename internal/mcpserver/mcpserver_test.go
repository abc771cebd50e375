package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/analyzer"
	"code-intel/internal/security"
)

func newTools(t *testing.T) (*Tools, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.py"),
		[]byte("import os\n\ndef run(cmd):\n    os.system(\"echo \" + cmd)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.py"),
		[]byte("def add(a, b):\n    return a + b\n"), 0o644))
	return NewTools(analyzer.New(nil), security.NewAnalyzer(nil), nil), dir
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, res)
	require.False(t, res.IsError, "unexpected tool error")
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestHandleAnalyzeFile(t *testing.T) {
	tools, dir := newTools(t)
	res, err := tools.HandleAnalyzeFile(context.Background(), call(map[string]any{"path": filepath.Join(dir, "run.py")}))
	require.NoError(t, err)

	body := resultJSON(t, res)
	assert.Equal(t, "python", body["language"])
	assert.NotEmpty(t, body["issues"])
}

func TestHandleAnalyzeFile_Errors(t *testing.T) {
	tools, dir := newTools(t)

	res, err := tools.HandleAnalyzeFile(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	res, err = tools.HandleAnalyzeFile(context.Background(), call(map[string]any{"path": filepath.Join(dir, "notes.txt")}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "unsupported language")
}

func TestHandleAnalyzeDirectory(t *testing.T) {
	tools, dir := newTools(t)

	res, err := tools.HandleAnalyzeDirectory(context.Background(), call(map[string]any{"path": dir}))
	require.NoError(t, err)
	assert.EqualValues(t, 2, resultJSON(t, res)["files_analyzed"])

	res, err = tools.HandleAnalyzeDirectory(context.Background(), call(map[string]any{
		"path":      dir,
		"recursive": false,
		"pattern":   "*.py",
	}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, resultJSON(t, res)["files_analyzed"])
}

func TestHandleSecurityScan(t *testing.T) {
	tools, dir := newTools(t)

	res, err := tools.HandleSecurityScan(context.Background(), call(map[string]any{"path": filepath.Join(dir, "run.py")}))
	require.NoError(t, err)
	body := resultJSON(t, res)
	assert.Len(t, body["vulnerabilities"], 1)

	res, err = tools.HandleSecurityScan(context.Background(), call(map[string]any{"path": dir}))
	require.NoError(t, err)
	body = resultJSON(t, res)
	assert.EqualValues(t, 2, body["files_analyzed"])

	res, err = tools.HandleSecurityScan(context.Background(), call(map[string]any{"path": filepath.Join(dir, "gone.py")}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestNewServer_RegistersTools(t *testing.T) {
	tools, _ := newTools(t)
	assert.NotNil(t, NewServer(tools))
}

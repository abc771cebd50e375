package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/analyzer"
	"code-intel/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const vulnerableSource = "import os\n\ndef run(user_input):\n    os.system(\"echo \" + user_input)\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.py"), []byte(vulnerableSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	return New(analyzer.New(nil), security.NewAnalyzer(nil)), dir
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, target, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAnalyzeFile(t *testing.T) {
	s, dir := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{"path": filepath.Join(dir, "run.py")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "python", body["language"])
	assert.Len(t, body["functions"], 1)
}

func TestAnalyzeFile_Errors(t *testing.T) {
	s, dir := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w), "error")

	w = do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{"path": filepath.Join(dir, "notes.txt")})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{"path": filepath.Join(dir, "gone.py")})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAnalyzeDirectory(t *testing.T) {
	s, dir := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/analyze/directory", gin.H{"path": dir, "patterns": []string{"*.py", "*.txt"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 1, body["files_analyzed"])
	assert.Len(t, body["error_files"], 1)
}

func TestAnalyzeChanges(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/v1/analyze/changes", gin.H{
		"path":        "f.py",
		"old_content": "def f(x):\n    return 0\n",
		"new_content": "def f(x):\n    if x:\n        return 1\n    elif x < 0:\n        return 2\n    return 0\n",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.NotNil(t, body["old"])
	assert.NotNil(t, body["new"])
	assert.NotEmpty(t, body["suggestions"])

	w = do(t, s, http.MethodPost, "/v1/analyze/changes", gin.H{"path": "notes.txt"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSecurityEndpoints(t *testing.T) {
	s, dir := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/security/file", gin.H{"path": filepath.Join(dir, "run.py")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)["summary"].(map[string]any)
	assert.EqualValues(t, 75, summary["security_score"])

	w = do(t, s, http.MethodPost, "/v1/security/directory", gin.H{"path": dir})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["files_analyzed"])
}

func TestClearCache(t *testing.T) {
	s, dir := newTestServer(t)
	path := filepath.Join(dir, "run.py")
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{"path": path}).Code)

	w := do(t, s, http.MethodDelete, "/v1/cache?path="+path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["cached_files"])

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/analyze/file", gin.H{"path": path}).Code)
	w = do(t, s, http.MethodDelete, "/v1/cache", nil)
	assert.EqualValues(t, 0, decode(t, w)["cached_files"])
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

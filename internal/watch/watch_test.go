package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intel/internal/analyzer"
	"code-intel/internal/types"
)

type recordingAnalyzer struct {
	inner       *analyzer.Analyzer
	mu          sync.Mutex
	invalidated []string
}

func (r *recordingAnalyzer) AnalyzeFile(ctx context.Context, path string) (*types.ModuleAnalysis, error) {
	return r.inner.AnalyzeFile(ctx, path)
}

func (r *recordingAnalyzer) Invalidate(path string) {
	r.mu.Lock()
	r.invalidated = append(r.invalidated, path)
	r.mu.Unlock()
	r.inner.Invalidate(path)
}

func startWatcher(t *testing.T, root string, a Analyzer) <-chan Update {
	t.Helper()
	updates := make(chan Update, 16)
	w, err := New(root, a, func(u Update) { updates <- u }, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return updates
}

func waitFor(t *testing.T, updates <-chan Update, path string) Update {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Path == path {
				return u
			}
		case <-deadline:
			t.Fatalf("no update for %s", path)
		}
	}
}

func TestWatcher_ReanalyzesChangedFile(t *testing.T) {
	root := t.TempDir()
	a := &recordingAnalyzer{inner: analyzer.New(nil)}
	updates := startWatcher(t, root, a)

	path := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    return 1\n"), 0o644))

	u := waitFor(t, updates, path)
	require.NoError(t, u.Err)
	require.NotNil(t, u.Module)
	assert.Len(t, u.Module.Functions, 1)

	a.mu.Lock()
	assert.Contains(t, a.invalidated, path)
	a.mu.Unlock()
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	updates := startWatcher(t, root, analyzer.New(nil))
	require.NoError(t, os.Remove(path))

	u := waitFor(t, updates, path)
	assert.True(t, u.Removed)
	assert.Nil(t, u.Module)
}

func TestWatcher_IgnoresUnmatchedFiles(t *testing.T) {
	root := t.TempDir()
	updates := startWatcher(t, root, analyzer.New(nil))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))
	path := filepath.Join(root, "b.py")
	require.NoError(t, os.WriteFile(path, []byte("y = 2\n"), 0o644))

	u := waitFor(t, updates, path)
	assert.Equal(t, path, u.Path)
	select {
	case extra := <-updates:
		assert.NotEqual(t, filepath.Join(root, "notes.txt"), extra.Path)
	default:
	}
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), analyzer.New(nil), nil)
	assert.Error(t, err)
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	w, err := New(t.TempDir(), analyzer.New(nil), nil, WithLogger(nil))
	require.NoError(t, err)
	defer w.fsw.Close()
	assert.NotNil(t, w.logger)
}

// Package watch 디렉토리 변경을 감시하고 바뀐 파일의 캐시를 무효화한 뒤 다시 분석한다.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"code-intel/internal/analyzer"
	"code-intel/internal/types"
)

// DefaultDebounce 변경 이벤트를 묶는 기본 대기 시간
const DefaultDebounce = 300 * time.Millisecond

// Analyzer 감시자가 사용하는 분석기 기능
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path string) (*types.ModuleAnalysis, error)
	Invalidate(path string)
}

// Update 파일 하나에 대한 재분석 결과
type Update struct {
	Path    string
	Removed bool
	Module  *types.ModuleAnalysis
	Err     error
}

// Handler 재분석 결과 수신 함수
type Handler func(Update)

// Option 감시자 설정 함수
type Option func(*Watcher)

// WithPatterns 감시할 파일 이름 패턴
func WithPatterns(patterns []string) Option {
	return func(w *Watcher) {
		if len(patterns) > 0 {
			w.patterns = patterns
		}
	}
}

// WithDebounce 이벤트 묶음 대기 시간
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger 로거 지정. nil 이면 기본 로거를 유지한다.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher 디렉토리 감시자
type Watcher struct {
	root     string
	analyzer Analyzer
	handler  Handler
	patterns []string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// New root 이하 디렉토리를 감시 목록에 등록한 감시자 생성. Run 으로 시작한다.
func New(root string, a Analyzer, handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:     root,
		analyzer: a,
		handler:  handler,
		patterns: analyzer.DefaultPatterns,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("파일 감시자 생성 실패: %w", err)
	}
	w.fsw = fsw

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("감시 디렉토리 등록 실패: %w", err)
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && analyzer.IsSkippedDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run ctx 가 취소될 때까지 이벤트를 처리한다. 반환 시 감시자를 닫는다.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := make(map[string]fsnotify.Op)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !analyzer.IsSkippedDir(info.Name()) {
						if err := w.addRecursive(event.Name); err != nil {
							w.logger.Warn("watch add failed", slog.String("dir", event.Name), slog.String("error", err.Error()))
						}
					}
					continue
				}
			}
			if !analyzer.MatchesAny(filepath.Base(event.Name), w.patterns) {
				continue
			}
			pending[event.Name] |= event.Op

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))

		case <-timerC:
			timer, timerC = nil, nil
			w.flush(ctx, pending)
			pending = make(map[string]fsnotify.Op)
		}
	}
}

// flush 경로 순서로 무효화와 재분석을 수행한다
func (w *Watcher) flush(ctx context.Context, pending map[string]fsnotify.Op) {
	paths := make([]string, 0, len(pending))
	for path := range pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		w.analyzer.Invalidate(path)

		if _, err := os.Stat(path); err != nil {
			w.logger.Debug("file removed", slog.String("file", path))
			w.emit(Update{Path: path, Removed: true})
			continue
		}

		module, err := w.analyzer.AnalyzeFile(ctx, path)
		if err != nil {
			w.logger.Warn("re-analysis failed", slog.String("file", path), slog.String("error", err.Error()))
		}
		w.emit(Update{Path: path, Module: module, Err: err})
	}
}

func (w *Watcher) emit(u Update) {
	if w.handler != nil {
		w.handler(u)
	}
}

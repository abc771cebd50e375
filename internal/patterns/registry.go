package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"code-intel/internal/types"
)

var (
	// ErrDuplicateDetector 같은 이름의 탐지기를 두 번 등록
	ErrDuplicateDetector = errors.New("detector already registered")
	// ErrDetectorPanic 탐지기 실행 중 panic
	ErrDetectorPanic = errors.New("detector panicked")
)

// Detector 패턴 탐지기 인터페이스
type Detector interface {
	Name() string
	Kind() types.PatternKind
	Description() string
	Languages() []types.Language
	Detect(module *types.ModuleAnalysis, content string) ([]types.Pattern, error)
}

// DetectorFailure 실패한 탐지기와 원인
type DetectorFailure struct {
	Detector string
	Err      error
}

func (f DetectorFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Detector, f.Err)
}

func (f DetectorFailure) Unwrap() error { return f.Err }

// Registry 이름별 탐지기 레지스트리. 등록 순서대로 실행한다.
type Registry struct {
	mu        sync.RWMutex
	detectors []Detector
	byName    map[string]Detector
	logger    *slog.Logger
}

// NewRegistry 빈 레지스트리 생성
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]Detector),
		logger: logger,
	}
}

// Register 탐지기 등록
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, d.Name())
	}
	r.byName[d.Name()] = d
	r.detectors = append(r.detectors, d)
	return nil
}

// Get 이름으로 탐지기 조회
func (r *Registry) Get(name string) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Names 등록 순서의 탐지기 이름
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	return names
}

// DetectAll 모듈 언어를 지원하는 모든 탐지기 실행
//
// 실패한 탐지기는 결과에 기여하지 않고 DetectorFailure 로 보고된다.
func (r *Registry) DetectAll(ctx context.Context, module *types.ModuleAnalysis, content string) ([]types.Pattern, []DetectorFailure) {
	r.mu.RLock()
	detectors := append([]Detector(nil), r.detectors...)
	r.mu.RUnlock()

	found := []types.Pattern{}
	var failures []DetectorFailure
	if module == nil {
		return found, failures
	}

	for _, d := range detectors {
		if err := ctx.Err(); err != nil {
			failures = append(failures, DetectorFailure{Detector: d.Name(), Err: err})
			break
		}
		if !supports(d, module.Language) {
			continue
		}

		patterns, err := runDetector(d, module, content)
		if err != nil {
			r.logger.Warn("pattern detector failed",
				slog.String("detector", d.Name()),
				slog.String("file", module.FilePath),
				slog.Any("error", err))
			failures = append(failures, DetectorFailure{Detector: d.Name(), Err: err})
			continue
		}
		for _, p := range patterns {
			p.Confidence = clampConfidence(p.Confidence)
			found = append(found, p)
		}
	}
	return found, failures
}

func runDetector(d Detector, module *types.ModuleAnalysis, content string) (patterns []types.Pattern, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			patterns = nil
			err = fmt.Errorf("%w: %v", ErrDetectorPanic, rec)
		}
	}()
	return d.Detect(module, content)
}

func supports(d Detector, lang types.Language) bool {
	for _, l := range d.Languages() {
		if l == lang {
			return true
		}
	}
	return false
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"code-intel/internal/types"
)

var (
	// ErrUnsupportedLanguage 라우팅 표에 없거나 추출기가 없는 확장자
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrDuplicateExtractor 같은 언어의 추출기를 두 번 등록
	ErrDuplicateExtractor = errors.New("extractor already registered")
	// ErrFileTooLarge 크기 제한 초과
	ErrFileTooLarge = errors.New("file too large")
)

// extensionTable 확장자 -> 언어 라우팅 표
var extensionTable = map[string]types.Language{
	".py":   types.LanguagePython,
	".js":   types.LanguageJavaScript,
	".jsx":  types.LanguageJavaScript,
	".ts":   types.LanguageTypeScript,
	".tsx":  types.LanguageTypeScript,
	".java": types.LanguageJava,
	".cpp":  types.LanguageCPP,
	".cc":   types.LanguageCPP,
	".cxx":  types.LanguageCPP,
	".go":   types.LanguageGo,
	".rs":   types.LanguageRust,
	".rb":   types.LanguageRuby,
}

// LanguageFor 파일 확장자로 언어 감지
func LanguageFor(path string) (types.Language, bool) {
	lang, ok := extensionTable[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// ParsedFile 추출 결과. 구조 모델과 구문 트리를 함께 보관한다.
type ParsedFile struct {
	Path     string
	Language types.Language
	Content  []byte
	Lines    []string
	// Tree 구문 오류가 있으면 nil
	Tree   *sitter.Tree
	Module *types.ModuleAnalysis
}

// Root 루트 노드. 트리가 없으면 nil.
func (f *ParsedFile) Root() *sitter.Node {
	if f == nil || f.Tree == nil {
		return nil
	}
	return f.Tree.RootNode()
}

// Close 구문 트리 해제
func (f *ParsedFile) Close() {
	if f != nil && f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

// Extractor 언어별 구조 추출기
type Extractor interface {
	Language() types.Language
	Supports(path string) bool
	Extract(ctx context.Context, path string, content []byte) (*ParsedFile, error)
}

// Registry 언어 태그별 추출기 레지스트리
type Registry struct {
	mu         sync.RWMutex
	extractors map[types.Language]Extractor
}

// NewRegistry 추출기 목록으로 레지스트리 생성
func NewRegistry(extractors ...Extractor) (*Registry, error) {
	r := &Registry{extractors: make(map[types.Language]Extractor)}
	for _, e := range extractors {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 추출기 등록. 같은 언어는 거부한다.
func (r *Registry) Register(e Extractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extractors[e.Language()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExtractor, e.Language())
	}
	r.extractors[e.Language()] = e
	return nil
}

// ForPath 경로에 맞는 추출기 조회
func (r *Registry) ForPath(path string) (Extractor, error) {
	lang, ok := LanguageFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Ext(path))
	}

	r.mu.RLock()
	e, exists := r.extractors[lang]
	r.mu.RUnlock()

	if !exists || !e.Supports(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return e, nil
}

// Languages 등록된 언어 목록
func (r *Registry) Languages() []types.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]types.Language, 0, len(r.extractors))
	for lang := range r.extractors {
		langs = append(langs, lang)
	}
	return langs
}

// ParseFile 파일을 읽어 알맞은 추출기로 파싱
func (r *Registry) ParseFile(ctx context.Context, path string) (*ParsedFile, error) {
	e, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("파일 읽기 실패: %w", err)
	}
	return e.Extract(ctx, path, content)
}

// SplitLines 줄 단위 분리. 마지막 개행 뒤의 빈 줄은 포함하지 않는다.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineSpan 위치 범위에 해당하는 소스 라인. 범위를 벗어나면 false.
func LineSpan(lines []string, loc types.CodeLocation) (string, bool) {
	if loc.LineStart < 1 || loc.LineEnd > len(lines) || loc.LineStart > loc.LineEnd {
		return "", false
	}
	return strings.Join(lines[loc.LineStart-1:loc.LineEnd], "\n"), true
}

// LineNumber 바이트 오프셋의 1부터 시작하는 라인 번호
func LineNumber(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}

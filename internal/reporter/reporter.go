package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"code-intel/internal/types"
)

// Reporter 리포터 인터페이스
type Reporter interface {
	Generate(result *types.AnalysisResult, outputFile string) error
}

// Option 리포터 설정 함수
type Option func(*options)

type options struct {
	out   io.Writer
	color *bool
}

// WithWriter outputFile 이 비었을 때 쓸 출력 대상. 기본은 표준 출력.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithColor 색상 사용 여부를 강제한다. 지정하지 않으면 터미널일 때만 색을 쓴다.
func WithColor(enabled bool) Option {
	return func(o *options) { o.color = &enabled }
}

// New 새로운 리포터 생성
func New(format string, opts ...Option) (Reporter, error) {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	switch strings.ToLower(format) {
	case "console", "text":
		return newConsoleReporter(o), nil
	case "json":
		return &JSONReporter{out: o.out}, nil
	case "html":
		return &HTMLReporter{out: o.out}, nil
	default:
		return nil, fmt.Errorf("지원하지 않는 출력 형식: %s", format)
	}
}

// isTerminal 출력 대상이 터미널인지 확인
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// emit 파일이 지정되면 파일에, 아니면 out 에 쓴다
func emit(out io.Writer, data []byte, outputFile string) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, data, 0o644); err != nil {
			return fmt.Errorf("리포트 파일 쓰기 실패: %w", err)
		}
		return nil
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("리포트 출력 실패: %w", err)
	}
	return nil
}

// JSONReporter JSON 출력 리포터
type JSONReporter struct {
	out io.Writer
}

func (r *JSONReporter) Generate(result *types.AnalysisResult, outputFile string) error {
	return WriteJSON(r.out, result, outputFile)
}

// WriteJSON 임의의 결과를 들여쓴 JSON 으로 출력
func WriteJSON(out io.Writer, v any, outputFile string) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON 마샬링 실패: %w", err)
	}
	return emit(out, append(jsonData, '\n'), outputFile)
}

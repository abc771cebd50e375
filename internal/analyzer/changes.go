package analyzer

import (
	"context"
	"fmt"

	"code-intel/internal/types"
)

// AnalyzeChanges 같은 파일의 두 버전을 분석하고 변경에 따른 제안을 만든다.
//
// path 는 언어 판별과 위치 표기에만 쓰인다. 캐시와 디스크는 사용하지 않는다.
func (a *Analyzer) AnalyzeChanges(ctx context.Context, oldContent, newContent, path string) (*types.ModuleAnalysis, *types.ModuleAnalysis, []types.Suggestion, error) {
	extractor, err := a.parsers.ForPath(path)
	if err != nil {
		return nil, nil, nil, err
	}

	old, _, err := a.analyzeContent(ctx, extractor, path, []byte(oldContent))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("이전 버전 분석 실패: %w", err)
	}
	cur, _, err := a.analyzeContent(ctx, extractor, path, []byte(newContent))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("새 버전 분석 실패: %w", err)
	}
	return old, cur, changeSuggestions(old, cur), nil
}

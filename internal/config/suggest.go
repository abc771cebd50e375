package config

import (
	"fmt"
	"strings"

	"github.com/sajari/fuzzy"
)

// didYouMean 알려진 이름 중 가장 가까운 후보를 힌트 문자열로 반환
func didYouMean(known []string, input string) string {
	model := fuzzy.NewModel()
	model.SetDepth(2)
	model.SetThreshold(1)

	byLower := make(map[string]string, len(known))
	for _, name := range known {
		lower := strings.ToLower(name)
		byLower[lower] = name
		model.TrainWord(lower)
	}

	suggestions := model.SpellCheckSuggestions(strings.ToLower(input), 1)
	if len(suggestions) == 0 {
		return ""
	}
	if original, ok := byLower[suggestions[0]]; ok {
		return fmt.Sprintf(" (혹시 %q?)", original)
	}
	return ""
}

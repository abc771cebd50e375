package metrics

import (
	"strings"

	"code-intel/internal/types"
)

// CountLOC 공백이 아닌 라인 수
func CountLOC(lines []string) int {
	count := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// CommentLines 언어별 주석 라인 수
func CommentLines(lang types.Language, lines []string) int {
	switch lang {
	case types.LanguagePython:
		return pythonComments(lines)
	case types.LanguageRuby:
		return rubyComments(lines)
	case types.LanguageJavaScript, types.LanguageTypeScript, types.LanguageJava,
		types.LanguageCPP, types.LanguageGo, types.LanguageRust:
		return cFamilyComments(lines)
	default:
		return 0
	}
}

// pythonComments `#` 라인과 삼중 따옴표 문서 문자열 라인
func pythonComments(lines []string) int {
	count := 0
	delim := ""
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if delim != "" {
			count++
			if strings.Contains(s, delim) {
				delim = ""
			}
			continue
		}
		if strings.HasPrefix(s, "#") {
			count++
			continue
		}
		for _, q := range []string{`"""`, `'''`} {
			if !strings.HasPrefix(s, q) {
				continue
			}
			count++
			if len(s) < 6 || !strings.HasSuffix(s, q) {
				delim = q
			}
			break
		}
	}
	return count
}

func cFamilyComments(lines []string) int {
	count := 0
	inBlock := false
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch {
		case inBlock:
			count++
			if strings.Contains(s, "*/") {
				inBlock = false
			}
		case strings.HasPrefix(s, "//"):
			count++
		case strings.HasPrefix(s, "/*"):
			count++
			if !strings.Contains(s[2:], "*/") {
				inBlock = true
			}
		}
	}
	return count
}

func rubyComments(lines []string) int {
	count := 0
	inBlock := false
	for _, line := range lines {
		s := strings.TrimSpace(line)
		switch {
		case inBlock:
			count++
			if strings.HasPrefix(s, "=end") {
				inBlock = false
			}
		case strings.HasPrefix(s, "=begin"):
			count++
			inBlock = true
		case strings.HasPrefix(s, "#"):
			count++
		}
	}
	return count
}

// DuplicateLines minLength 보다 긴 동일 라인의 중복 횟수 합
func DuplicateLines(lines []string, minLength int) int {
	seen := make(map[string]int)
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if len(s) > minLength {
			seen[s]++
		}
	}
	dup := 0
	for _, n := range seen {
		if n > 1 {
			dup += n - 1
		}
	}
	return dup
}

package security

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"code-intel/internal/types"
)

// scanTree 호출 노드와 assert 문을 검사한다
func (s *Scanner) scanTree(src scanSource, root *sitter.Node) []types.Vulnerability {
	if root == nil {
		return nil
	}
	code := []byte(src.content)

	var vulns []types.Vulnerability
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type() {
		case "call":
			if v, ok := s.checkCall(src, n, code); ok {
				vulns = append(vulns, v)
			}
		case "assert_statement":
			vulns = append(vulns, types.Vulnerability{
				Type:          TypeInsufficientValidation,
				Severity:      types.VulnLow,
				Category:      types.SecInputValidation,
				Description:   "Assert statements are removed in optimized bytecode",
				Location:      nodeLocation(src.path, n),
				CodeSnippet:   src.snippet(int(n.StartPoint().Row) + 1),
				FixSuggestion: "Use proper error handling instead of assert for validation",
				References:    []string{"CWE-617"},
				Confidence:    0.8,
			})
		}

		// 원래 순서대로 방문하도록 역순으로 쌓는다
		for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
			if child := n.NamedChild(i); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return vulns
}

func (s *Scanner) checkCall(src scanSource, call *sitter.Node, code []byte) (types.Vulnerability, bool) {
	name := qualifiedName(call.ChildByFieldName("function"), code)
	if name == "" {
		return types.Vulnerability{}, false
	}
	entry, ok := dangerousCalls[name]
	if !ok {
		last := name[strings.LastIndexByte(name, '.')+1:]
		if !anyReceiver[last] {
			return types.Vulnerability{}, false
		}
		entry = dangerousCalls[last]
	}

	desc := "Use of dangerous function: %s"
	if entry.description != "" {
		desc = entry.description
	}
	fix, refs := entry.fix, entry.references
	if fix == "" {
		fix = fallbackFix
	}
	if len(refs) == 0 {
		refs = []string{fallbackReference}
	}

	return types.Vulnerability{
		Type:          entry.vulnType,
		Severity:      entry.severity,
		Category:      types.SecInjection,
		Description:   fmt.Sprintf(desc, name),
		Location:      nodeLocation(src.path, call),
		CodeSnippet:   src.snippet(int(call.StartPoint().Row) + 1),
		FixSuggestion: fix,
		References:    refs,
		Confidence:    entry.confidence,
	}, true
}

// qualifiedName `a.b.c` 형태의 호출 대상 이름. 식별자 체인이 아니면 빈 문자열.
func qualifiedName(n *sitter.Node, code []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "identifier":
		return n.Content(code)
	case "attribute":
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return ""
		}
		obj := qualifiedName(n.ChildByFieldName("object"), code)
		if obj == "" {
			return ""
		}
		return obj + "." + attr.Content(code)
	default:
		return ""
	}
}

func nodeLocation(path string, n *sitter.Node) types.CodeLocation {
	start, end := n.StartPoint(), n.EndPoint()
	return types.CodeLocation{
		File:        path,
		LineStart:   int(start.Row) + 1,
		LineEnd:     int(end.Row) + 1,
		ColumnStart: types.IntPtr(int(start.Column)),
		ColumnEnd:   types.IntPtr(int(end.Column)),
	}
}

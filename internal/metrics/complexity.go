package metrics

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// decisionNodes 순환 복잡도를 1씩 올리는 노드 타입
var decisionNodes = map[string]bool{
	"if_statement":        true,
	"elif_clause":         true,
	"while_statement":     true,
	"for_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"assert_statement":    true,
	"for_in_clause":       true,
	"lambda":              true,
	"boolean_operator":    true,
}

// comprehensionNodes 인지 복잡도에서 평탄하게 1을 더하는 노드
var comprehensionNodes = map[string]bool{
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
	"lambda":                   true,
}

// walkNamed 이름 있는 노드만 전위 순회. visit 이 false 면 자식을 건너뛴다.
func walkNamed(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkNamed(n.NamedChild(i), visit)
	}
}

type functionNode struct {
	Name string
	Line int
	Node *sitter.Node
}

// functionNodes 트리 안의 모든 function_definition (중첩 포함)
func functionNodes(root *sitter.Node, src []byte) []functionNode {
	var out []functionNode
	walkNamed(root, func(n *sitter.Node) bool {
		if n.Type() != "function_definition" {
			return true
		}
		name := n.ChildByFieldName("name")
		if name != nil {
			out = append(out, functionNode{
				Name: name.Content(src),
				Line: int(n.StartPoint().Row) + 1,
				Node: n,
			})
		}
		return true
	})
	return out
}

// Cyclomatic 노드 하위 트리의 순환 복잡도. 1에서 시작한다.
func Cyclomatic(n *sitter.Node) int {
	cc := 1
	walkNamed(n, func(x *sitter.Node) bool {
		if decisionNodes[x.Type()] {
			cc++
		}
		return true
	})
	return cc
}

// Cognitive 모듈 트리의 인지 복잡도
//
// 분기문은 1 + 중첩 깊이를 더하고 본문의 깊이를 하나 올린다.
// elif 는 앞선 분기보다 한 단계 깊은 것으로 본다.
func Cognitive(root *sitter.Node) int {
	total := 0
	var visit func(n *sitter.Node, nesting int)
	visitChildren := func(n *sitter.Node, nesting int) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i), nesting)
		}
	}

	visit = func(n *sitter.Node, nesting int) {
		switch n.Type() {
		case "if_statement":
			total += 1 + nesting
			elifs := 0
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "elif_clause":
					depth := nesting + 1 + elifs
					total += 1 + depth
					visitChildren(child, depth+1)
					elifs++
				case "else_clause":
					visitChildren(child, nesting+1+elifs)
				default:
					visit(child, nesting+1)
				}
			}
			return
		case "while_statement", "for_statement", "except_clause", "except_group_clause":
			total += 1 + nesting
			visitChildren(n, nesting+1)
			return
		case "boolean_operator":
			total++
		default:
			if comprehensionNodes[n.Type()] {
				total++
			}
		}
		visitChildren(n, nesting)
	}

	if root != nil {
		visit(root, 0)
	}
	return total
}

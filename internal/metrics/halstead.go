package metrics

import (
	"math"

	sitter "github.com/smacker/go-tree-sitter"

	"code-intel/internal/types"
)

// literalNodes 피연산자로 세는 리터럴 노드
var literalNodes = map[string]bool{
	"integer": true,
	"float":   true,
	"string":  true,
	"true":    true,
	"false":   true,
	"none":    true,
}

type halsteadCounter struct {
	src       []byte
	operators map[string]int
	operands  map[string]int
}

func (h *halsteadCounter) operator(op string) {
	if op != "" {
		h.operators[op]++
	}
}

func (h *halsteadCounter) operand(n *sitter.Node) {
	h.operands[n.Content(h.src)]++
}

// Halstead 연산자/피연산자 집계로 할스테드 지표 계산
func Halstead(root *sitter.Node, src []byte) types.HalsteadMetrics {
	h := &halsteadCounter{
		src:       src,
		operators: make(map[string]int),
		operands:  make(map[string]int),
	}
	if root != nil {
		h.visit(root)
	}

	var m types.HalsteadMetrics
	m.DistinctOperators = len(h.operators)
	m.DistinctOperands = len(h.operands)
	for _, c := range h.operators {
		m.TotalOperators += c
	}
	for _, c := range h.operands {
		m.TotalOperands += c
	}
	return deriveHalstead(m)
}

func deriveHalstead(m types.HalsteadMetrics) types.HalsteadMetrics {
	m.Vocabulary = m.DistinctOperators + m.DistinctOperands
	m.Length = m.TotalOperators + m.TotalOperands
	if m.Vocabulary > 0 {
		m.Volume = float64(m.Length) * math.Log2(float64(m.Vocabulary))
	}
	if m.DistinctOperands > 0 && m.TotalOperands > 0 {
		m.Difficulty = (float64(m.DistinctOperators) / 2) * (float64(m.TotalOperands) / float64(m.DistinctOperands))
	}
	m.Effort = m.Difficulty * m.Volume
	m.Time = m.Effort / 18
	m.Bugs = m.Volume / 3000
	return m
}

func (h *halsteadCounter) visitChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		h.visit(n.NamedChild(i))
	}
}

func (h *halsteadCounter) visitField(n *sitter.Node, field string) {
	if child := n.ChildByFieldName(field); child != nil {
		h.visit(child)
	}
}

func (h *halsteadCounter) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	t := n.Type()
	if literalNodes[t] {
		h.operand(n)
		return
	}

	switch t {
	case "identifier":
		h.operand(n)
	case "comment", "import_statement", "import_from_statement", "future_import_statement":
		// 이름 선언은 피연산자가 아니다
	case "function_definition":
		h.parameters(n.ChildByFieldName("parameters"))
		h.visitField(n, "return_type")
		h.visitField(n, "body")
	case "lambda":
		h.parameters(n.ChildByFieldName("parameters"))
		h.visitField(n, "body")
	case "class_definition":
		h.visitField(n, "superclasses")
		h.visitField(n, "body")
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			h.operator("." + attr.Content(h.src))
		}
		h.visitField(n, "object")
	case "call":
		fn := n.ChildByFieldName("function")
		if fn != nil && fn.Type() == "identifier" {
			h.operator(fn.Content(h.src))
		} else {
			h.visit(fn)
		}
		h.visitField(n, "arguments")
	case "keyword_argument":
		h.visitField(n, "value")
	case "binary_operator", "boolean_operator", "unary_operator", "augmented_assignment":
		if op := n.ChildByFieldName("operator"); op != nil {
			h.operator(op.Type())
		}
		h.visitChildren(n)
	case "not_operator":
		h.operator("not")
		h.visitChildren(n)
	case "comparison_operator":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.IsNamed() {
				h.visit(child)
			} else {
				h.operator(child.Type())
			}
		}
	default:
		h.visitChildren(n)
	}
}

// parameters 매개변수 이름은 건너뛰고 기본값과 타입 주석만 센다
func (h *halsteadCounter) parameters(params *sitter.Node) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "default_parameter":
			h.visitField(p, "value")
		case "typed_default_parameter":
			h.visitField(p, "type")
			h.visitField(p, "value")
		case "typed_parameter":
			h.visitField(p, "type")
		}
	}
}

package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"code-intel/internal/types"
)

// 함수 단위 이슈 규칙 ID
const (
	RuleMissingReturnType = "missing-return-type"
	RuleTooManyParameters = "too-many-parameters"
)

const (
	defaultPythonMaxFileSize = 10 * 1024 * 1024
	defaultParameterLimit    = 5
	warnFileSize             = 1024 * 1024
)

// PythonOption PythonExtractor 설정 함수
type PythonOption func(*PythonExtractor)

// WithPythonMaxFileSize 파싱 가능한 최대 파일 크기
func WithPythonMaxFileSize(bytes int64) PythonOption {
	return func(p *PythonExtractor) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithParameterLimit too-many-parameters 임계값
func WithParameterLimit(n int) PythonOption {
	return func(p *PythonExtractor) {
		if n > 0 {
			p.parameterLimit = n
		}
	}
}

// WithDisabledRules 함수 단위 규칙 비활성화
func WithDisabledRules(ids ...string) PythonOption {
	return func(p *PythonExtractor) {
		for _, id := range ids {
			p.disabled[id] = true
		}
	}
}

// WithLogger 로거 지정
func WithLogger(logger *slog.Logger) PythonOption {
	return func(p *PythonExtractor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// PythonExtractor tree-sitter 기반 파이썬 구조 추출기
//
// 호출마다 새 파서를 만들므로 동시 사용에 안전하다.
type PythonExtractor struct {
	maxFileSize    int64
	parameterLimit int
	disabled       map[string]bool
	logger         *slog.Logger
}

// NewPythonExtractor 파이썬 추출기 생성
func NewPythonExtractor(opts ...PythonOption) *PythonExtractor {
	p := &PythonExtractor{
		maxFileSize:    defaultPythonMaxFileSize,
		parameterLimit: defaultParameterLimit,
		disabled:       make(map[string]bool),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PythonExtractor) Language() types.Language { return types.LanguagePython }

func (p *PythonExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

// Extract 소스를 파싱해 구조 모델을 만든다.
//
// 구문 오류는 에러가 아니라 빈 모델과 syntax-error 이슈 하나로 축소된다.
// 반환된 ParsedFile 은 호출자가 Close 해야 한다.
func (p *PythonExtractor) Extract(ctx context.Context, path string, content []byte) (*ParsedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("파싱 시작 전 취소: %w", err)
	}
	if int64(len(content)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if len(content) > warnFileSize {
		p.logger.Warn("parsing large file",
			slog.String("file", path),
			slog.Int("size_bytes", len(content)))
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter 파싱 실패: %w", err)
	}

	file := &ParsedFile{
		Path:     path,
		Language: types.LanguagePython,
		Content:  content,
		Lines:    SplitLines(string(content)),
		Tree:     tree,
	}

	root := tree.RootNode()
	if root.HasError() {
		file.Module = p.syntaxErrorModule(path, root, content)
		tree.Close()
		file.Tree = nil
		return file, nil
	}

	w := &pythonWalker{p: p, path: path, src: content}
	file.Module = w.module(root)
	return file, nil
}

func (p *PythonExtractor) syntaxErrorModule(path string, root *sitter.Node, src []byte) *types.ModuleAnalysis {
	line := 1
	msg := "Syntax error: invalid syntax"
	if bad := firstErrorNode(root); bad != nil {
		line = int(bad.StartPoint().Row) + 1
		if bad.IsMissing() {
			msg = fmt.Sprintf("Syntax error: missing %q", bad.Type())
		} else if text := strings.TrimSpace(bad.Content(src)); text != "" {
			if i := strings.IndexByte(text, '\n'); i >= 0 {
				text = text[:i]
			}
			msg = fmt.Sprintf("Syntax error: invalid syntax near %q", text)
		}
	}

	issue := types.NewIssue(types.SeverityError, types.CategoryStyle, types.RuleSyntaxError, msg, types.CodeLocation{
		File:      path,
		LineStart: line,
		LineEnd:   line,
	})
	return &types.ModuleAnalysis{
		FilePath:        path,
		Language:        types.LanguagePython,
		Imports:         []string{},
		Functions:       []types.FunctionRecord{},
		Classes:         []types.ClassRecord{},
		GlobalVariables: []string{},
		Issues:          []types.Issue{issue},
		Patterns:        []types.Pattern{},
	}
}

// firstErrorNode 문서 순서상 첫 ERROR 또는 MISSING 노드
func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstErrorNode(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// pythonWalker 단일 파일 추출 상태
type pythonWalker struct {
	p    *PythonExtractor
	path string
	src  []byte
}

func (w *pythonWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *pythonWalker) location(n *sitter.Node) types.CodeLocation {
	return types.CodeLocation{
		File:        w.path,
		LineStart:   int(n.StartPoint().Row) + 1,
		LineEnd:     endLine(n),
		ColumnStart: types.IntPtr(int(n.StartPoint().Column)),
		ColumnEnd:   types.IntPtr(int(n.EndPoint().Column)),
	}
}

// endLine 노드가 다음 줄 0열에서 끝나면 이전 줄을 끝으로 본다
func endLine(n *sitter.Node) int {
	end := n.EndPoint()
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		return int(end.Row)
	}
	return int(end.Row) + 1
}

func (w *pythonWalker) module(root *sitter.Node) *types.ModuleAnalysis {
	m := &types.ModuleAnalysis{
		FilePath:        w.path,
		Language:        types.LanguagePython,
		Imports:         w.imports(root),
		Functions:       []types.FunctionRecord{},
		Classes:         []types.ClassRecord{},
		GlobalVariables: []string{},
		Docstring:       w.docstring(root),
		Issues:          []types.Issue{},
		Patterns:        []types.Pattern{},
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		def, decorators := unwrapDecorated(child, w)
		switch def.Type() {
		case "function_definition":
			m.Functions = append(m.Functions, w.function(def, decorators))
		case "class_definition":
			m.Classes = append(m.Classes, w.class(def, decorators))
		case "expression_statement":
			if name := w.assignedName(def); name != "" {
				m.GlobalVariables = append(m.GlobalVariables, name)
			}
		}
	}
	return m
}

// unwrapDecorated decorated_definition 이면 내부 정의와 데코레이터 이름을 돌려준다
func unwrapDecorated(n *sitter.Node, w *pythonWalker) (*sitter.Node, []string) {
	if n.Type() != "decorated_definition" {
		return n, nil
	}
	var decorators []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "decorator" && child.NamedChildCount() > 0 {
			expr := child.NamedChild(0)
			if expr.Type() == "call" {
				expr = expr.ChildByFieldName("function")
			}
			decorators = append(decorators, w.text(expr))
		}
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def, decorators
	}
	return n, decorators
}

// assignedName `name = ...` 또는 `name: T = ...` 의 대상 식별자
func (w *pythonWalker) assignedName(stmt *sitter.Node) string {
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		return ""
	}
	assign := stmt.NamedChild(0)
	if assign.Type() != "assignment" {
		return ""
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Type() != "identifier" {
		return ""
	}
	return w.text(left)
}

func (w *pythonWalker) function(n *sitter.Node, decorators []string) types.FunctionRecord {
	fn := types.FunctionRecord{
		Name:       w.text(n.ChildByFieldName("name")),
		Location:   w.location(n),
		Parameters: w.parameters(n.ChildByFieldName("parameters")),
		Decorators: decorators,
	}
	if n.ChildCount() > 0 && n.Child(0).Type() == "async" {
		fn.IsAsync = true
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		fn.ReturnType = types.StringPtr(w.text(rt))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Docstring = w.docstring(body)
	}
	fn.Issues = w.functionIssues(fn)
	return fn
}

func (w *pythonWalker) functionIssues(fn types.FunctionRecord) []types.Issue {
	var issues []types.Issue
	if fn.ReturnType == nil && fn.Name != "__init__" && !w.p.disabled[RuleMissingReturnType] {
		issue := types.NewIssue(types.SeverityInfo, types.CategoryBestPractice, RuleMissingReturnType,
			fmt.Sprintf("Function '%s' is missing return type annotation", fn.Name), fn.Location)
		issue.Suggestion = "Add return type annotation for better type safety"
		issues = append(issues, issue)
	}
	if len(fn.Parameters) > w.p.parameterLimit && !w.p.disabled[RuleTooManyParameters] {
		issue := types.NewIssue(types.SeverityWarning, types.CategoryMaintainability, RuleTooManyParameters,
			fmt.Sprintf("Function '%s' has too many parameters (%d)", fn.Name, len(fn.Parameters)), fn.Location)
		issue.Suggestion = "Consider using a configuration object or splitting the function"
		issues = append(issues, issue)
	}
	return issues
}

// parameters `*` 또는 `*args` 이전의 위치 매개변수 이름
func (w *pythonWalker) parameters(n *sitter.Node) []string {
	params := []string{}
	if n == nil {
		return params
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "identifier":
			params = append(params, w.text(child))
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				params = append(params, w.text(name))
			}
		case "typed_parameter":
			if child.NamedChildCount() == 0 {
				continue
			}
			first := child.NamedChild(0)
			if first.Type() != "identifier" {
				return params
			}
			params = append(params, w.text(first))
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return params
		}
	}
	return params
}

func (w *pythonWalker) class(n *sitter.Node, decorators []string) types.ClassRecord {
	cls := types.ClassRecord{
		Name:          w.text(n.ChildByFieldName("name")),
		Location:      w.location(n),
		Methods:       []types.FunctionRecord{},
		Attributes:    []string{},
		ParentClasses: []string{},
		Decorators:    decorators,
	}

	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "keyword_argument" || arg.Type() == "comment" {
				continue
			}
			cls.ParentClasses = append(cls.ParentClasses, w.text(arg))
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	cls.Docstring = w.docstring(body)

	seen := make(map[string]bool)
	addAttr := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			cls.Attributes = append(cls.Attributes, name)
		}
	}

	var methodBodies []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		def, decs := unwrapDecorated(body.NamedChild(i), w)
		switch def.Type() {
		case "function_definition":
			cls.Methods = append(cls.Methods, w.function(def, decs))
			if mb := def.ChildByFieldName("body"); mb != nil {
				methodBodies = append(methodBodies, mb)
			}
		case "expression_statement":
			addAttr(w.assignedName(def))
		}
	}
	for _, mb := range methodBodies {
		w.selfAttributes(mb, addAttr)
	}
	return cls
}

// selfAttributes 메소드 본문의 `self.X = ...` 대상 수집. 중첩 클래스는 건너뛴다.
func (w *pythonWalker) selfAttributes(n *sitter.Node, add func(string)) {
	switch n.Type() {
	case "class_definition":
		return
	case "assignment", "augmented_assignment":
		w.collectSelfTargets(n.ChildByFieldName("left"), add)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.selfAttributes(n.NamedChild(i), add)
	}
}

func (w *pythonWalker) collectSelfTargets(left *sitter.Node, add func(string)) {
	if left == nil {
		return
	}
	switch left.Type() {
	case "attribute":
		obj := left.ChildByFieldName("object")
		if obj != nil && obj.Type() == "identifier" && w.text(obj) == "self" {
			add(w.text(left.ChildByFieldName("attribute")))
		}
	case "pattern_list", "tuple_pattern", "list_pattern":
		for i := 0; i < int(left.NamedChildCount()); i++ {
			w.collectSelfTargets(left.NamedChild(i), add)
		}
	}
}

// docstring 블록(또는 모듈) 첫 문장이 문자열이면 그 내용
func (w *pythonWalker) docstring(block *sitter.Node) *string {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
			return nil
		}
		str := stmt.NamedChild(0)
		if str.Type() != "string" {
			return nil
		}
		doc := stripQuotes(w.text(str))
		return &doc
	}
	return nil
}

// stripQuotes 접두사와 따옴표를 제거하고 공백을 정리
func stripQuotes(raw string) string {
	raw = strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 6 {
			return strings.TrimSpace(raw[3 : len(raw)-3])
		}
	}
	if len(raw) >= 2 {
		raw = raw[1 : len(raw)-1]
	}
	return strings.TrimSpace(raw)
}

// imports 트리 전체의 import 문에서 모듈 경로 수집
func (w *pythonWalker) imports(root *sitter.Node) []string {
	imports := []string{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "dotted_name":
					imports = append(imports, w.text(child))
				case "aliased_import":
					imports = append(imports, w.text(child.ChildByFieldName("name")))
				}
			}
			return
		case "import_from_statement":
			imports = append(imports, w.fromImports(n)...)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return imports
}

func (w *pythonWalker) fromImports(n *sitter.Node) []string {
	moduleNode := n.ChildByFieldName("module_name")
	module := w.text(moduleNode)
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Type() {
		case "wildcard_import":
			out = append(out, module+".*")
		case "dotted_name":
			out = append(out, module+"."+w.text(child))
		case "aliased_import":
			out = append(out, module+"."+w.text(child.ChildByFieldName("name")))
		}
	}
	return out
}

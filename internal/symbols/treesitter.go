package symbols

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"shire/internal/model"
)

// TreeSitterExtractor owns one tree-sitter parser per grammar. Parsers are
// not safe for concurrent use, so access is serialized; extraction itself
// is not hot enough for this to matter.
type TreeSitterExtractor struct {
	mu         sync.Mutex
	goParser   *sitter.Parser
	tsParser   *sitter.Parser
	jsParser   *sitter.Parser
	pyParser   *sitter.Parser
	rustParser *sitter.Parser
}

// NewTreeSitterExtractor constructs parsers for every grammar-backed
// language this registry supports.
func NewTreeSitterExtractor() *TreeSitterExtractor {
	goP := sitter.NewParser()
	goP.SetLanguage(golang.GetLanguage())
	tsP := sitter.NewParser()
	tsP.SetLanguage(typescript.GetLanguage())
	jsP := sitter.NewParser()
	jsP.SetLanguage(javascript.GetLanguage())
	pyP := sitter.NewParser()
	pyP.SetLanguage(python.GetLanguage())
	rsP := sitter.NewParser()
	rsP.SetLanguage(rust.GetLanguage())

	return &TreeSitterExtractor{
		goParser: goP, tsParser: tsP, jsParser: jsP, pyParser: pyP, rustParser: rsP,
	}
}

// Close releases every underlying tree-sitter parser.
func (t *TreeSitterExtractor) Close() {
	t.goParser.Close()
	t.tsParser.Close()
	t.jsParser.Close()
	t.pyParser.Close()
	t.rustParser.Close()
}

func (t *TreeSitterExtractor) parse(parser *sitter.Parser, content []byte) (*sitter.Tree, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return parser.ParseCtx(context.Background(), nil, content)
}

func nodeText(n *sitter.Node, content []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(content)
}

// lineOf returns the node's one-based starting line.
func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// --- Go -----------------------------------------------------------------

type goExtractor struct{ ts *TreeSitterExtractor }

func (e goExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	tree, err := e.ts.parse(e.ts.goParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var out []model.Symbol
	walkGo(tree.RootNode(), path, content, &out)
	return out, nil
}

func walkGo(n *sitter.Node, path string, content []byte, out *[]model.Symbol) {
	switch n.Type() {
	case "function_declaration":
		nameNode := n.ChildByFieldName("name")
		if nameNode != nil {
			name := nodeText(nameNode, content)
			if isExported(name) {
				*out = append(*out, model.Symbol{
					FilePath:   path,
					Name:       name,
					Line:       lineOf(n),
					Kind:       model.SymbolFunction,
					Signature:  goFuncSignature(n, name, content),
					Visibility: model.VisibilityPublic,
				})
			}
		}

	case "method_declaration":
		nameNode := n.ChildByFieldName("name")
		receiverNode := n.ChildByFieldName("receiver")
		if nameNode != nil {
			name := nodeText(nameNode, content)
			if isExported(name) {
				receiver := goReceiverType(receiverNode, content)
				*out = append(*out, model.Symbol{
					FilePath:     path,
					Name:         name,
					Line:         lineOf(n),
					Kind:         model.SymbolMethod,
					Signature:    goFuncSignature(n, name, content),
					Visibility:   model.VisibilityPublic,
					ParentSymbol: receiver,
				})
			}
		}

	case "type_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			spec := n.NamedChild(i)
			if spec.Type() != "type_spec" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			typeNode := spec.ChildByFieldName("type")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, content)
			if !isExported(name) {
				continue
			}

			kind := model.SymbolType
			signature := "type " + name
			if typeNode != nil {
				switch typeNode.Type() {
				case "struct_type":
					kind = model.SymbolStruct
					signature += " struct"
				case "interface_type":
					kind = model.SymbolInterface
					signature += " interface"
				default:
					signature += " " + nodeText(typeNode, content)
				}
			}

			*out = append(*out, model.Symbol{
				FilePath:   path,
				Name:       name,
				Line:       lineOf(spec),
				Kind:       kind,
				Signature:  signature,
				Visibility: model.VisibilityPublic,
			})
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkGo(n.Child(i), path, content, out)
	}
}

func goFuncSignature(n *sitter.Node, name string, content []byte) string {
	params := nodeText(n.ChildByFieldName("parameters"), content)
	result := nodeText(n.ChildByFieldName("result"), content)
	sig := fmt.Sprintf("func %s%s", name, params)
	if result != "" {
		sig += " " + result
	}
	return sig
}

func goReceiverType(receiver *sitter.Node, content []byte) string {
	if receiver == nil {
		return ""
	}
	text := nodeText(receiver, content)
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "*")
}

// --- TypeScript / JavaScript ----------------------------------------------

type typescriptExtractor struct{ ts *TreeSitterExtractor }

func (e typescriptExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	tree, err := e.ts.parse(e.ts.tsParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var out []model.Symbol
	walkTSFamily(tree.RootNode(), path, content, &out)
	return out, nil
}

type javascriptExtractor struct{ ts *TreeSitterExtractor }

func (e javascriptExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	tree, err := e.ts.parse(e.ts.jsParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var out []model.Symbol
	walkTSFamily(tree.RootNode(), path, content, &out)
	return out, nil
}

// walkTSFamily extracts symbols introduced by an export statement,
// including default exports. Class members are included only when they
// carry no private/protected modifier and their name doesn't start with
// "#" or "_".
func walkTSFamily(n *sitter.Node, path string, content []byte, out *[]model.Symbol) {
	if n.Type() == "export_statement" {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			extractExportedDeclaration(n.NamedChild(i), path, content, out)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walkTSFamily(n.Child(i), path, content, out)
	}
}

func extractExportedDeclaration(decl *sitter.Node, path string, content []byte, out *[]model.Symbol) {
	if decl == nil {
		return
	}
	switch decl.Type() {
	case "class_declaration":
		nameNode := decl.ChildByFieldName("name")
		name := nodeText(nameNode, content)
		if name == "" {
			name = "default"
		}
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(decl),
			Kind: model.SymbolClass, Signature: "class " + name,
			Visibility: model.VisibilityPublic,
		})
		body := decl.ChildByFieldName("body")
		if body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				extractClassMember(body.NamedChild(i), name, path, content, out)
			}
		}

	case "interface_declaration":
		name := nodeText(decl.ChildByFieldName("name"), content)
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(decl),
			Kind: model.SymbolInterface, Signature: "interface " + name,
			Visibility: model.VisibilityPublic,
		})

	case "type_alias_declaration":
		name := nodeText(decl.ChildByFieldName("name"), content)
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(decl),
			Kind: model.SymbolType, Signature: "type " + name,
			Visibility: model.VisibilityPublic,
		})

	case "function_declaration":
		name := nodeText(decl.ChildByFieldName("name"), content)
		if name == "" {
			name = "default"
		}
		params := nodeText(decl.ChildByFieldName("parameters"), content)
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(decl),
			Kind: model.SymbolFunction, Signature: "function " + name + params,
			Visibility: model.VisibilityPublic,
		})

	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			declarator := decl.NamedChild(i)
			if declarator.Type() != "variable_declarator" {
				continue
			}
			name := nodeText(declarator.ChildByFieldName("name"), content)
			if name == "" {
				continue
			}
			*out = append(*out, model.Symbol{
				FilePath: path, Name: name, Line: lineOf(decl),
				Kind: model.SymbolConstant, Signature: "const " + name,
				Visibility: model.VisibilityPublic,
			})
		}
	}
}

func extractClassMember(member *sitter.Node, className, path string, content []byte, out *[]model.Symbol) {
	if member.Type() != "method_definition" && member.Type() != "public_field_definition" {
		return
	}
	nameNode := member.ChildByFieldName("name")
	name := nodeText(nameNode, content)
	if name == "" || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return
	}
	if hasTSAccessModifier(member, content) {
		return
	}

	kind := model.SymbolMethod
	signature := name
	if member.Type() == "method_definition" {
		params := nodeText(member.ChildByFieldName("parameters"), content)
		signature = name + params
	}

	*out = append(*out, model.Symbol{
		FilePath: path, Name: name, Line: lineOf(member),
		Kind: kind, Signature: signature,
		Visibility: model.VisibilityPublic, ParentSymbol: className,
	})
}

func hasTSAccessModifier(n *sitter.Node, content []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "accessibility_modifier" {
			text := nodeText(child, content)
			if text == "private" || text == "protected" {
				return true
			}
		}
	}
	return false
}

// --- Python ---------------------------------------------------------------

type pythonExtractor struct{ ts *TreeSitterExtractor }

func (e pythonExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	tree, err := e.ts.parse(e.ts.pyParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var out []model.Symbol
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		walkPythonTopLevel(root.NamedChild(i), path, content, &out)
	}
	return out, nil
}

func walkPythonTopLevel(n *sitter.Node, path string, content []byte, out *[]model.Symbol) {
	switch n.Type() {
	case "function_definition":
		name := nodeText(n.ChildByFieldName("name"), content)
		params := nodeText(n.ChildByFieldName("parameters"), content)
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(n),
			Kind: model.SymbolFunction, Signature: "def " + name + params,
			Visibility: model.VisibilityPublic,
		})

	case "class_definition":
		name := nodeText(n.ChildByFieldName("name"), content)
		*out = append(*out, model.Symbol{
			FilePath: path, Name: name, Line: lineOf(n),
			Kind: model.SymbolClass, Signature: "class " + name,
			Visibility: model.VisibilityPublic,
		})
		body := n.ChildByFieldName("body")
		if body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				extractPythonMethod(body.NamedChild(i), name, path, content, out)
			}
		}
	}
}

func extractPythonMethod(n *sitter.Node, className, path string, content []byte, out *[]model.Symbol) {
	if n.Type() != "function_definition" {
		return
	}
	name := nodeText(n.ChildByFieldName("name"), content)
	if name == "" {
		return
	}
	if strings.HasPrefix(name, "_") && name != "__init__" {
		return
	}

	params := nodeText(n.ChildByFieldName("parameters"), content)
	params = elideFirstParam(params)

	*out = append(*out, model.Symbol{
		FilePath: path, Name: name, Line: lineOf(n),
		Kind: model.SymbolMethod, Signature: "def " + name + params,
		Visibility: model.VisibilityPublic, ParentSymbol: className,
	})
}

// elideFirstParam drops the first entry of a "(self, a, b)" style
// parameter list, used to strip the receiver from Python methods (Rust
// impl-block methods use elideSelfParam).
func elideFirstParam(params string) string {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(params), ")"), "(")
	parts := strings.SplitN(trimmed, ",", 2)
	if len(parts) < 2 {
		return "()"
	}
	return "(" + strings.TrimSpace(parts[1]) + ")"
}

// --- Rust -------------------------------------------------------------------

type rustExtractor struct{ ts *TreeSitterExtractor }

func (e rustExtractor) Extract(path string, content []byte) ([]model.Symbol, error) {
	tree, err := e.ts.parse(e.ts.rustParser, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	var out []model.Symbol
	walkRust(tree.RootNode(), "", path, content, &out)
	return out, nil
}

func rustHasPubVisibility(n *sitter.Node, content []byte) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "visibility_modifier" && strings.HasPrefix(nodeText(child, content), "pub") {
			return true
		}
	}
	return false
}

func walkRust(n *sitter.Node, implTarget, path string, content []byte, out *[]model.Symbol) {
	switch n.Type() {
	case "function_item":
		if rustHasPubVisibility(n, content) {
			name := nodeText(n.ChildByFieldName("name"), content)
			params := nodeText(n.ChildByFieldName("parameters"), content)
			kind := model.SymbolFunction
			parent := ""
			if implTarget != "" {
				kind = model.SymbolMethod
				parent = implTarget
				params = elideSelfParam(params)
			}
			*out = append(*out, model.Symbol{
				FilePath: path, Name: name, Line: lineOf(n),
				Kind: kind, Signature: "fn " + name + params,
				Visibility: model.VisibilityPublic, ParentSymbol: parent,
			})
		}

	case "struct_item":
		if rustHasPubVisibility(n, content) {
			name := nodeText(n.ChildByFieldName("name"), content)
			*out = append(*out, model.Symbol{
				FilePath: path, Name: name, Line: lineOf(n),
				Kind: model.SymbolStruct, Signature: "struct " + name,
				Visibility: model.VisibilityPublic,
			})
		}

	case "enum_item":
		if rustHasPubVisibility(n, content) {
			name := nodeText(n.ChildByFieldName("name"), content)
			*out = append(*out, model.Symbol{
				FilePath: path, Name: name, Line: lineOf(n),
				Kind: model.SymbolEnum, Signature: "enum " + name,
				Visibility: model.VisibilityPublic,
			})
		}

	case "trait_item":
		if rustHasPubVisibility(n, content) {
			name := nodeText(n.ChildByFieldName("name"), content)
			*out = append(*out, model.Symbol{
				FilePath: path, Name: name, Line: lineOf(n),
				Kind: model.SymbolTrait, Signature: "trait " + name,
				Visibility: model.VisibilityPublic,
			})
		}

	case "impl_item":
		target := nodeText(n.ChildByFieldName("type"), content)
		body := n.ChildByFieldName("body")
		if body != nil {
			for i := 0; i < int(body.NamedChildCount()); i++ {
				walkRust(body.NamedChild(i), target, path, content, out)
			}
		}
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		walkRust(n.Child(i), implTarget, path, content, out)
	}
}

// elideSelfParam strips a leading "self"/"&self"/"&mut self" receiver from
// a Rust parameter list.
func elideSelfParam(params string) string {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(params), ")"), "(")
	parts := strings.SplitN(trimmed, ",", 2)
	if len(parts) == 0 {
		return "()"
	}
	first := strings.TrimSpace(parts[0])
	if first == "self" || first == "&self" || first == "&mut self" {
		if len(parts) == 2 {
			return "(" + strings.TrimSpace(parts[1]) + ")"
		}
		return "()"
	}
	return "(" + trimmed + ")"
}

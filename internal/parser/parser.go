// Package parser extracts the graph-relevant facts from a source module: the
// boundary directive, the resolved import set, and on demand the component
// definitions and JSX tag usages used for highlighting.
//
// Parsing is error tolerant. A syntax error anywhere in the file still
// yields the directive and whatever imports tree-sitter recovered; only a
// failure to produce any tree is reported as an error.
package parser

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/types"
)

// Resolver maps an import specifier written in fromPath to a module path.
type Resolver interface {
	Resolve(specifier, fromPath string) (string, bool)
}

// baseResolver is implemented by resolvers that can name the base path an
// unresolved specifier was probed at.
type baseResolver interface {
	BasePath(specifier, fromPath string) (string, bool)
}

// Extractor turns module text into graph records. It holds no per-file
// state and is safe for concurrent use; every call creates its own
// tree-sitter parser.
type Extractor struct {
	resolver  Resolver
	directive string
}

// NewExtractor creates an extractor recognizing directive, e.g. "use client".
func NewExtractor(resolver Resolver, directive string) *Extractor {
	return &Extractor{resolver: resolver, directive: directive}
}

// importDecl is one import statement: its specifier and the local names it
// binds.
type importDecl struct {
	specifier string
	bindings  []string
}

// Extract parses content and returns the module record for path. The
// record never contains path itself among its imports.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*types.Module, error) {
	tree, err := e.parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	module := &types.Module{
		Path:         path,
		HasDirective: hasDirective(root, content, e.directive),
		Imports:      types.NewImportSet(),
	}

	bases, _ := e.resolver.(baseResolver)
	missing := make(map[string]struct{})
	for _, decl := range collectImports(root, content) {
		resolved, ok := e.resolver.Resolve(decl.specifier, path)
		if !ok {
			if bases == nil {
				continue
			}
			if base, relative := bases.BasePath(decl.specifier, path); relative {
				missing[base] = struct{}{}
			}
			continue
		}
		if resolved == path {
			continue
		}
		module.Imports.Add(resolved)
	}
	if len(missing) > 0 {
		module.Missing = make([]string, 0, len(missing))
		for base := range missing {
			module.Missing = append(module.Missing, base)
		}
		sort.Strings(module.Missing)
	}

	return module, nil
}

// Outline parses content and returns its component definitions and tag
// usages, each usage mapped to the import it was bound by.
func (e *Extractor) Outline(ctx context.Context, path string, content []byte) (*types.Outline, error) {
	tree, err := e.parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()

	bound := make(map[string]string)
	for _, decl := range collectImports(root, content) {
		for _, name := range decl.bindings {
			bound[name] = decl.specifier
		}
	}

	usages := collectUsages(root, content)
	for i := range usages {
		specifier, ok := bound[usages[i].Binding]
		if !ok {
			continue
		}
		usages[i].Specifier = specifier
		if resolved, ok := e.resolver.Resolve(specifier, path); ok && resolved != path {
			usages[i].Resolved = resolved
		}
	}

	return &types.Outline{
		Path:         path,
		HasDirective: hasDirective(root, content, e.directive),
		Definitions:  collectDefinitions(root, content),
		Usages:       usages,
	}, nil
}

func (e *Extractor) parse(ctx context.Context, path string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, clienterrors.NewParseError(clienterrors.ErrCodeParseFailed,
			"tree-sitter parse failed", err).WithPath(path)
	}
	if tree == nil {
		return nil, clienterrors.NewParseError(clienterrors.ErrCodeParseFailed,
			"no syntax tree produced", nil).WithPath(path)
	}
	if tree.RootNode() == nil {
		tree.Close()
		return nil, clienterrors.NewParseError(clienterrors.ErrCodeParseFailed,
			"syntax tree has no root", nil).WithPath(path)
	}
	return tree, nil
}

// languageFor picks the TypeScript grammar for .ts files, where angle
// brackets are type assertions, and the TSX grammar for everything else.
func languageFor(path string) *sitter.Language {
	switch filepath.Ext(path) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	default:
		return tsx.GetLanguage()
	}
}

// hasDirective walks the directive prologue: the leading run of
// expression statements that consist of a single string literal. Comments
// may be interleaved. Anything else ends the prologue.
func hasDirective(root *sitter.Node, content []byte, directive string) bool {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case nodeComment, nodeHashBang:
			continue
		case nodeExpression:
			literal, ok := directiveLiteral(child, content)
			if !ok {
				return false
			}
			if literal == directive {
				return true
			}
		default:
			return false
		}
	}
	return false
}

// directiveLiteral returns the raw text between the quotes of a prologue
// statement. Escapes are not decoded: "use\x20client" is not the directive.
func directiveLiteral(stmt *sitter.Node, content []byte) (string, bool) {
	var str *sitter.Node
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() == nodeComment {
			continue
		}
		if str != nil || child.Type() != nodeString {
			return "", false
		}
		str = child
	}
	if str == nil {
		return "", false
	}

	raw := str.Content(content)
	if len(raw) < 2 {
		return "", false
	}
	quote := raw[0]
	if (quote != '"' && quote != '\'') || raw[len(raw)-1] != quote {
		return "", false
	}
	return raw[1 : len(raw)-1], true
}

// collectImports returns every static import statement at program level,
// including ones tree-sitter wrapped in an ERROR node during recovery.
func collectImports(root *sitter.Node, content []byte) []importDecl {
	var decls []importDecl
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			child := node.NamedChild(i)
			switch child.Type() {
			case nodeImportStatement:
				if decl, ok := importFrom(child, content); ok {
					decls = append(decls, decl)
				}
			case nodeError:
				stack = append(stack, child)
			}
		}
	}

	// the stack visits children last to first
	for i, j := 0, len(decls)-1; i < j; i, j = i+1, j-1 {
		decls[i], decls[j] = decls[j], decls[i]
	}
	return decls
}

func importFrom(node *sitter.Node, content []byte) (importDecl, bool) {
	source := node.ChildByFieldName("source")
	if source == nil {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == nodeString {
				source = child
			}
		}
	}
	if source == nil {
		return importDecl{}, false
	}

	specifier := stringContent(source, content)
	if specifier == "" {
		return importDecl{}, false
	}

	decl := importDecl{specifier: specifier}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if clause := node.NamedChild(i); clause.Type() == nodeImportClause {
			decl.bindings = clauseBindings(clause, content)
		}
	}
	return decl, true
}

// clauseBindings lists the local names an import clause introduces:
// the default import, a namespace alias, and each named import or its alias.
func clauseBindings(clause *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case nodeIdentifier:
			names = append(names, child.Content(content))
		case nodeNamespaceImport:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if gc := child.NamedChild(j); gc.Type() == nodeIdentifier {
					names = append(names, gc.Content(content))
				}
			}
		case nodeNamedImports:
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != nodeImportSpecifier {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				if local != nil {
					names = append(names, local.Content(content))
				}
			}
		}
	}
	return names
}

func stringContent(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "string_fragment" {
			return child.Content(content)
		}
	}
	raw := node.Content(content)
	return strings.Trim(raw, "\"'`")
}

// collectDefinitions returns the top-level component-like declarations.
func collectDefinitions(root *sitter.Node, content []byte) []types.ComponentDef {
	var defs []types.ComponentDef
	for i := 0; i < int(root.NamedChildCount()); i++ {
		defs = appendDefinitions(defs, root.NamedChild(i), content)
	}
	return defs
}

func appendDefinitions(defs []types.ComponentDef, node *sitter.Node, content []byte) []types.ComponentDef {
	switch node.Type() {
	case nodeExportStatement:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			defs = appendDefinitions(defs, node.NamedChild(i), content)
		}

	case nodeFunctionDeclaration, nodeGeneratorDeclaration, nodeFunctionExpression, nodeFunction:
		defs = appendNamed(defs, node, node, types.DefinitionFunction, content)

	case nodeClassDeclaration, nodeAbstractClass, nodeClassExpression:
		defs = appendNamed(defs, node, node, types.DefinitionClass, content)

	case nodeLexicalDeclaration, nodeVariableDeclaration:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			declarator := node.NamedChild(i)
			if declarator.Type() != nodeVariableDeclarator {
				continue
			}
			value := declarator.ChildByFieldName("value")
			if value == nil || !isFunctionValue(value, content) {
				continue
			}
			defs = appendNamed(defs, declarator, declarator, types.DefinitionVariable, content)
		}
	}
	return defs
}

func appendNamed(defs []types.ComponentDef, holder, span *sitter.Node, kind types.DefinitionKind, content []byte) []types.ComponentDef {
	name := holder.ChildByFieldName("name")
	if name == nil {
		return defs
	}
	text := name.Content(content)
	if !isComponentName(text) {
		return defs
	}
	return append(defs, types.ComponentDef{
		Name:      text,
		Kind:      kind,
		NameRange: rangeOf(name),
		Range:     rangeOf(span),
	})
}

// isFunctionValue reports whether an initializer evaluates to a function,
// looking through parentheses, type assertions and memo/forwardRef wrappers.
func isFunctionValue(node *sitter.Node, content []byte) bool {
	switch node.Type() {
	case nodeArrowFunction, nodeFunctionExpression, nodeFunction:
		return true
	case nodeParenthesis, nodeAsExpression, nodeSatisfies:
		if node.NamedChildCount() == 0 {
			return false
		}
		return isFunctionValue(node.NamedChild(0), content)
	case nodeCallExpression:
		callee := node.ChildByFieldName("function")
		args := node.ChildByFieldName("arguments")
		if callee == nil || args == nil || args.NamedChildCount() == 0 {
			return false
		}
		if _, ok := wrapperCallees[callee.Content(content)]; !ok {
			return false
		}
		return isFunctionValue(args.NamedChild(0), content)
	}
	return false
}

// collectUsages returns every JSX tag whose name starts with an uppercase
// letter, grouped by tag name in order of first appearance.
func collectUsages(root *sitter.Node, content []byte) []types.TagUsage {
	var usages []types.TagUsage
	index := make(map[string]int)

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case nodeJSXOpening, nodeJSXClosing, nodeJSXSelfClosing:
			if name := tagName(node); name != nil {
				text := name.Content(content)
				if isComponentName(text) {
					i, seen := index[text]
					if !seen {
						i = len(usages)
						index[text] = i
						usages = append(usages, types.TagUsage{
							Name:    text,
							Binding: bindingOf(text),
						})
					}
					usages[i].Ranges = append(usages[i].Ranges, rangeOf(name))
				}
			}
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.NamedChild(i))
		}
	}

	for i := range usages {
		sort.SliceStable(usages[i].Ranges, func(a, b int) bool {
			return usages[i].Ranges[a].StartByte < usages[i].Ranges[b].StartByte
		})
	}
	return usages
}

func tagName(element *sitter.Node) *sitter.Node {
	name := element.ChildByFieldName("name")
	if name == nil && element.NamedChildCount() > 0 {
		name = element.NamedChild(0)
	}
	if name == nil || name.Type() == nodeJSXNamespace {
		return nil
	}
	return name
}

// bindingOf returns the local identifier a tag name starts with:
// "UI" for "UI.Card".
func bindingOf(tag string) string {
	if i := strings.IndexByte(tag, '.'); i >= 0 {
		return tag[:i]
	}
	return tag
}

func isComponentName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func rangeOf(node *sitter.Node) types.Range {
	start, end := node.StartPoint(), node.EndPoint()
	return types.Range{
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		Start:     types.Position{Line: int(start.Row), Column: int(start.Column)},
		End:       types.Position{Line: int(end.Row), Column: int(end.Column)},
	}
}

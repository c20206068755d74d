package parser

// Tree-sitter node types used by the extractor. JavaScript files are parsed
// with the TSX grammar, so the JSX names below apply to every grammar except
// plain TypeScript.
const (
	nodeComment     = "comment"
	nodeHashBang    = "hash_bang_line"
	nodeError       = "ERROR"
	nodeExpression  = "expression_statement"
	nodeString      = "string"
	nodeIdentifier  = "identifier"
	nodeParenthesis = "parenthesized_expression"

	nodeImportStatement = "import_statement"
	nodeImportClause    = "import_clause"
	nodeNamespaceImport = "namespace_import"
	nodeNamedImports    = "named_imports"
	nodeImportSpecifier = "import_specifier"

	nodeExportStatement = "export_statement"

	nodeFunctionDeclaration  = "function_declaration"
	nodeGeneratorDeclaration = "generator_function_declaration"
	nodeClassDeclaration     = "class_declaration"
	nodeAbstractClass        = "abstract_class_declaration"
	nodeClassExpression      = "class"
	nodeLexicalDeclaration   = "lexical_declaration"
	nodeVariableDeclaration  = "variable_declaration"
	nodeVariableDeclarator   = "variable_declarator"

	nodeArrowFunction      = "arrow_function"
	nodeFunctionExpression = "function_expression"
	nodeFunction           = "function" // older grammar name for function_expression
	nodeCallExpression     = "call_expression"
	nodeAsExpression       = "as_expression"
	nodeSatisfies          = "satisfies_expression"

	nodeJSXOpening     = "jsx_opening_element"
	nodeJSXClosing     = "jsx_closing_element"
	nodeJSXSelfClosing = "jsx_self_closing_element"
	nodeJSXNamespace   = "jsx_namespace_name"
)

// wrapperCallees are calls whose first argument is still the component.
var wrapperCallees = map[string]struct{}{
	"memo":             {},
	"forwardRef":       {},
	"React.memo":       {},
	"React.forwardRef": {},
}

package parser

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder converts tree-sitter parse trees to internal AST representation
type ASTBuilder struct {
	source []byte
	file   string
	err    error
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(source []byte) *ASTBuilder {
	return &ASTBuilder{
		source: source,
	}
}

// WithFile records the file name in every node location
func (b *ASTBuilder) WithFile(file string) *ASTBuilder {
	b.file = file
	return b
}

// Build converts a tree-sitter tree to internal AST
func (b *ASTBuilder) Build(tree *sitter.Tree) (*Node, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		return nil, fmt.Errorf("root node is nil")
	}

	module := NewNode(NodeModule)
	module.Location = b.getLocation(rootNode)
	module.Body = b.buildStatements(rootNode)
	if b.err != nil {
		return nil, b.err
	}
	return module, nil
}

func (b *ASTBuilder) fail(tsNode *sitter.Node, format string, args ...interface{}) {
	if b.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	b.err = fmt.Errorf("line %d: %s", tsNode.StartPoint().Row+1, msg)
}

// buildStatements converts the named children of a module or block
func (b *ASTBuilder) buildStatements(tsNode *sitter.Node) []*Node {
	var stmts []*Node
	if tsNode == nil {
		return stmts
	}
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if b.isTrivia(child) {
			continue
		}
		if stmt := b.buildStatement(child); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// buildBlock converts a block node, or the single statement of an inline suite
func (b *ASTBuilder) buildBlock(tsNode *sitter.Node) []*Node {
	if tsNode == nil {
		return nil
	}
	if tsNode.Type() == "block" {
		return b.buildStatements(tsNode)
	}
	if stmt := b.buildStatement(tsNode); stmt != nil {
		return []*Node{stmt}
	}
	return nil
}

func (b *ASTBuilder) buildStatement(tsNode *sitter.Node) *Node {
	var node *Node
	switch tsNode.Type() {
	case "function_definition":
		node = b.buildFunctionDef(tsNode)
	case "class_definition":
		node = b.buildClassDef(tsNode)
	case "decorated_definition":
		node = b.buildDecoratedDefinition(tsNode)
	case "if_statement":
		node = b.buildIfStatement(tsNode)
	case "for_statement":
		node = b.buildForStatement(tsNode)
	case "while_statement":
		node = b.buildWhileStatement(tsNode)
	case "with_statement":
		node = b.buildWithStatement(tsNode)
	case "try_statement":
		node = b.buildTryStatement(tsNode)
	case "return_statement":
		node = NewNode(NodeReturn)
		if tsNode.NamedChildCount() > 0 {
			node.Value = b.buildExpressions(tsNode, 0)
		}
	case "delete_statement":
		node = NewNode(NodeDelete)
		if tsNode.NamedChildCount() > 0 {
			target := b.buildExpr(tsNode.NamedChild(0))
			if target != nil && target.Type == NodeTuple {
				node.Targets = target.Children
			} else {
				node.Targets = []*Node{target}
			}
		}
	case "raise_statement":
		node = b.buildRaiseStatement(tsNode)
	case "assert_statement":
		node = NewNode(NodeAssert)
		node.Test = b.buildExpr(tsNode.NamedChild(0))
		if tsNode.NamedChildCount() > 1 {
			node.Value = b.buildExpr(tsNode.NamedChild(1))
		}
	case "import_statement":
		node = b.buildImportStatement(tsNode)
	case "import_from_statement", "future_import_statement":
		node = b.buildImportFromStatement(tsNode)
	case "global_statement", "nonlocal_statement":
		node = NewNode(NodeGlobal)
		if tsNode.Type() == "nonlocal_statement" {
			node.Type = NodeNonlocal
		}
		for i := 0; i < int(tsNode.NamedChildCount()); i++ {
			node.Names = append(node.Names, b.getNodeText(tsNode.NamedChild(i)))
		}
	case "expression_statement":
		node = b.buildExpressionStatement(tsNode)
	case "pass_statement":
		node = NewNode(NodePass)
	case "break_statement":
		node = NewNode(NodeBreak)
	case "continue_statement":
		node = NewNode(NodeContinue)
	default:
		b.fail(tsNode, "unsupported statement %q", tsNode.Type())
		return nil
	}
	if node != nil {
		node.Location = b.getLocation(tsNode)
	}
	return node
}

func (b *ASTBuilder) buildFunctionDef(tsNode *sitter.Node) *Node {
	node := NewNode(NodeFunctionDef)
	node.Name = b.getNodeText(tsNode.ChildByFieldName("name"))
	node.Args = b.buildParameters(tsNode.ChildByFieldName("parameters"))
	if ret := tsNode.ChildByFieldName("return_type"); ret != nil {
		node.Right = b.buildExpr(ret)
	}
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	if b.hasChildOfType(tsNode, "async") {
		b.fail(tsNode, "async functions are not supported")
	}
	return node
}

func (b *ASTBuilder) buildClassDef(tsNode *sitter.Node) *Node {
	node := NewNode(NodeClassDef)
	node.Name = b.getNodeText(tsNode.ChildByFieldName("name"))
	if supers := tsNode.ChildByFieldName("superclasses"); supers != nil {
		args, keywords := b.buildCallArguments(supers)
		node.Bases = append(args, keywords...)
	}
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	return node
}

func (b *ASTBuilder) buildDecoratedDefinition(tsNode *sitter.Node) *Node {
	def := tsNode.ChildByFieldName("definition")
	if def == nil {
		b.fail(tsNode, "decorated definition without definition")
		return nil
	}
	node := b.buildStatement(def)
	if node == nil {
		return nil
	}
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child.Type() == "decorator" && child.NamedChildCount() > 0 {
			node.Decorator = append(node.Decorator, b.buildExpr(child.NamedChild(0)))
		}
	}
	return node
}

// buildIfStatement folds elif clauses into nested If nodes in Orelse
func (b *ASTBuilder) buildIfStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeIf)
	node.Test = b.buildExpr(tsNode.ChildByFieldName("condition"))
	node.Body = b.buildBlock(tsNode.ChildByFieldName("consequence"))

	current := node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		switch child.Type() {
		case "elif_clause":
			elif := NewNode(NodeIf)
			elif.Location = b.getLocation(child)
			elif.Test = b.buildExpr(child.ChildByFieldName("condition"))
			elif.Body = b.buildBlock(child.ChildByFieldName("consequence"))
			current.Orelse = []*Node{elif}
			current = elif
		case "else_clause":
			current.Orelse = b.buildElseClause(child)
		}
	}
	return node
}

func (b *ASTBuilder) buildElseClause(tsNode *sitter.Node) []*Node {
	if body := tsNode.ChildByFieldName("body"); body != nil {
		return b.buildBlock(body)
	}
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		if child := tsNode.NamedChild(i); child.Type() == "block" {
			return b.buildBlock(child)
		}
	}
	return nil
}

func (b *ASTBuilder) buildForStatement(tsNode *sitter.Node) *Node {
	if b.hasChildOfType(tsNode, "async") {
		b.fail(tsNode, "async for is not supported")
		return nil
	}
	node := NewNode(NodeFor)
	node.Targets = []*Node{b.buildExpr(tsNode.ChildByFieldName("left"))}
	node.Iter = b.buildExpr(tsNode.ChildByFieldName("right"))
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	if alt := tsNode.ChildByFieldName("alternative"); alt != nil {
		node.Orelse = b.buildElseClause(alt)
	}
	return node
}

func (b *ASTBuilder) buildWhileStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeWhile)
	node.Test = b.buildExpr(tsNode.ChildByFieldName("condition"))
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	if alt := tsNode.ChildByFieldName("alternative"); alt != nil {
		node.Orelse = b.buildElseClause(alt)
	}
	return node
}

func (b *ASTBuilder) buildWithStatement(tsNode *sitter.Node) *Node {
	if b.hasChildOfType(tsNode, "async") {
		b.fail(tsNode, "async with is not supported")
		return nil
	}
	node := NewNode(NodeWith)
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if item := child.NamedChild(j); item.Type() == "with_item" {
				node.AddChild(b.buildWithItem(item))
			}
		}
	}
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	return node
}

func (b *ASTBuilder) buildWithItem(tsNode *sitter.Node) *Node {
	item := NewNode(NodeWithItem)
	value := tsNode.ChildByFieldName("value")
	if value == nil && tsNode.NamedChildCount() > 0 {
		value = tsNode.NamedChild(0)
	}
	if value != nil && value.Type() == "as_pattern" {
		item.Value = b.buildExpr(value.NamedChild(0))
		if alias := value.ChildByFieldName("alias"); alias != nil {
			item.Targets = []*Node{b.buildAsTarget(alias)}
		}
		return item
	}
	item.Value = b.buildExpr(value)
	return item
}

func (b *ASTBuilder) buildAsTarget(tsNode *sitter.Node) *Node {
	if tsNode.Type() == "as_pattern_target" && tsNode.NamedChildCount() > 0 {
		return b.buildExpr(tsNode.NamedChild(0))
	}
	return b.buildExpr(tsNode)
}

func (b *ASTBuilder) buildTryStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeTry)
	node.Body = b.buildBlock(tsNode.ChildByFieldName("body"))
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		switch child.Type() {
		case "except_clause":
			node.Handlers = append(node.Handlers, b.buildExceptHandler(child))
		case "except_group_clause":
			b.fail(child, "except* is not supported")
		case "else_clause":
			node.Orelse = b.buildElseClause(child)
		case "finally_clause":
			node.Finalbody = b.buildElseClause(child)
		}
	}
	return node
}

func (b *ASTBuilder) buildExceptHandler(tsNode *sitter.Node) *Node {
	handler := NewNode(NodeExceptHandler)
	handler.Location = b.getLocation(tsNode)
	sawAs := false
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		switch {
		case child.Type() == "block":
			handler.Body = b.buildBlock(child)
		case child.Type() == "as":
			sawAs = true
		case child.Type() == "as_pattern":
			handler.Value = b.buildExpr(child.NamedChild(0))
			if alias := child.ChildByFieldName("alias"); alias != nil {
				handler.Name = b.getNodeText(alias)
			}
		case child.IsNamed() && !b.isTrivia(child):
			if sawAs {
				handler.Name = b.getNodeText(child)
			} else {
				handler.Value = b.buildExpr(child)
			}
		}
	}
	return handler
}

func (b *ASTBuilder) buildRaiseStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeRaise)
	cause := tsNode.ChildByFieldName("cause")
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if cause != nil && child.StartByte() == cause.StartByte() {
			continue
		}
		node.Value = b.buildExpr(child)
		break
	}
	if cause != nil {
		node.Left = b.buildExpr(cause)
	}
	return node
}

func (b *ASTBuilder) buildImportStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeImport)
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		node.AddChild(b.buildAlias(tsNode.NamedChild(i)))
	}
	return node
}

func (b *ASTBuilder) buildImportFromStatement(tsNode *sitter.Node) *Node {
	node := NewNode(NodeImportFrom)
	module := tsNode.ChildByFieldName("module_name")
	if tsNode.Type() == "future_import_statement" {
		node.Module = "__future__"
	} else if module != nil {
		text := b.getNodeText(module)
		for len(text) > 0 && text[0] == '.' {
			node.Level++
			text = text[1:]
		}
		node.Module = text
	}
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() {
			continue
		}
		switch child.Type() {
		case "wildcard_import":
			alias := NewNode(NodeAlias)
			alias.Name = "*"
			node.AddChild(alias)
		case "dotted_name", "aliased_import", "identifier":
			node.AddChild(b.buildAlias(child))
		}
	}
	return node
}

func (b *ASTBuilder) buildAlias(tsNode *sitter.Node) *Node {
	alias := NewNode(NodeAlias)
	alias.Location = b.getLocation(tsNode)
	if tsNode.Type() == "aliased_import" {
		alias.Name = b.getNodeText(tsNode.ChildByFieldName("name"))
		if as := tsNode.ChildByFieldName("alias"); as != nil {
			alias.Value = b.getNodeText(as)
		}
		return alias
	}
	alias.Name = b.getNodeText(tsNode)
	return alias
}

func (b *ASTBuilder) buildExpressionStatement(tsNode *sitter.Node) *Node {
	if tsNode.NamedChildCount() == 1 {
		child := tsNode.NamedChild(0)
		switch child.Type() {
		case "assignment":
			return b.buildAssignment(child)
		case "augmented_assignment":
			return b.buildAugmentedAssignment(child)
		}
	}
	node := NewNode(NodeExpr)
	node.Value = b.buildExpressions(tsNode, 0)
	return node
}

// buildAssignment flattens chained assignments (a = b = 1) into one Assign
func (b *ASTBuilder) buildAssignment(tsNode *sitter.Node) *Node {
	left := b.buildExpr(tsNode.ChildByFieldName("left"))
	if typ := tsNode.ChildByFieldName("type"); typ != nil {
		node := NewNode(NodeAnnAssign)
		node.Targets = []*Node{left}
		node.Left = b.buildExpr(typ)
		if right := tsNode.ChildByFieldName("right"); right != nil {
			node.Value = b.buildExpr(right)
		}
		return node
	}

	node := NewNode(NodeAssign)
	node.Targets = []*Node{left}
	right := tsNode.ChildByFieldName("right")
	for right != nil && right.Type() == "assignment" {
		node.Targets = append(node.Targets, b.buildExpr(right.ChildByFieldName("left")))
		right = right.ChildByFieldName("right")
	}
	if right == nil {
		b.fail(tsNode, "assignment without value")
		return nil
	}
	if right.Type() == "augmented_assignment" {
		b.fail(tsNode, "unsupported chained augmented assignment")
		return nil
	}
	node.Value = b.buildExpr(right)
	return node
}

func (b *ASTBuilder) buildAugmentedAssignment(tsNode *sitter.Node) *Node {
	node := NewNode(NodeAugAssign)
	node.Targets = []*Node{b.buildExpr(tsNode.ChildByFieldName("left"))}
	op := b.getNodeText(tsNode.ChildByFieldName("operator"))
	if len(op) > 0 && op[len(op)-1] == '=' {
		op = op[:len(op)-1]
	}
	node.Op = op
	node.Value = b.buildExpr(tsNode.ChildByFieldName("right"))
	return node
}

func (b *ASTBuilder) buildParameters(tsNode *sitter.Node) []*Node {
	var params []*Node
	if tsNode == nil {
		return params
	}
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		arg := NewNode(NodeArg)
		arg.Location = b.getLocation(child)
		switch child.Type() {
		case "identifier":
			arg.Name = b.getNodeText(child)
		case "default_parameter":
			arg.Name = b.getNodeText(child.ChildByFieldName("name"))
			arg.Value = b.buildExpr(child.ChildByFieldName("value"))
		case "typed_parameter":
			b.fillSplatParam(arg, child.NamedChild(0))
			arg.Left = b.buildExpr(child.ChildByFieldName("type"))
		case "typed_default_parameter":
			arg.Name = b.getNodeText(child.ChildByFieldName("name"))
			arg.Left = b.buildExpr(child.ChildByFieldName("type"))
			arg.Value = b.buildExpr(child.ChildByFieldName("value"))
		case "list_splat_pattern", "dictionary_splat_pattern":
			b.fillSplatParam(arg, child)
		case "keyword_separator":
			arg.Name = "*"
		case "positional_separator":
			arg.Name = "/"
		default:
			continue
		}
		params = append(params, arg)
	}
	return params
}

func (b *ASTBuilder) fillSplatParam(arg *Node, tsNode *sitter.Node) {
	if tsNode == nil {
		return
	}
	switch tsNode.Type() {
	case "list_splat_pattern":
		arg.Op = "*"
		arg.Name = b.getNodeText(tsNode.NamedChild(0))
	case "dictionary_splat_pattern":
		arg.Op = "**"
		arg.Name = b.getNodeText(tsNode.NamedChild(0))
	default:
		arg.Name = b.getNodeText(tsNode)
	}
}

func (b *ASTBuilder) getLocation(tsNode *sitter.Node) Location {
	start := tsNode.StartPoint()
	end := tsNode.EndPoint()
	return Location{
		File:      b.file,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

func (b *ASTBuilder) getNodeText(tsNode *sitter.Node) string {
	if tsNode == nil {
		return ""
	}
	return tsNode.Content(b.source)
}

func (b *ASTBuilder) hasChildOfType(tsNode *sitter.Node, childType string) bool {
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		if tsNode.Child(i).Type() == childType {
			return true
		}
	}
	return false
}

func (b *ASTBuilder) isTrivia(tsNode *sitter.Node) bool {
	switch tsNode.Type() {
	case "comment", "line_continuation":
		return true
	}
	return false
}

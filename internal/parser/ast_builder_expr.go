package parser

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// buildExpressions builds the named children of tsNode starting at index
// from; several children form a tuple.
func (b *ASTBuilder) buildExpressions(tsNode *sitter.Node, from int) *Node {
	var elts []*Node
	for i := from; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if b.isTrivia(child) {
			continue
		}
		elts = append(elts, b.buildExpr(child))
	}
	if len(elts) == 1 {
		return elts[0]
	}
	tuple := NewTuple(elts...)
	tuple.Location = b.getLocation(tsNode)
	return tuple
}

// buildExpr converts an expression or assignment pattern
func (b *ASTBuilder) buildExpr(tsNode *sitter.Node) *Node {
	if tsNode == nil {
		return nil
	}
	node := b.buildExprNode(tsNode)
	if node != nil && node.Location.StartLine == 0 {
		node.Location = b.getLocation(tsNode)
	}
	return node
}

func (b *ASTBuilder) buildExprNode(tsNode *sitter.Node) *Node {
	switch tsNode.Type() {
	case "identifier", "keyword_identifier":
		return NewName(b.getNodeText(tsNode))
	case "parenthesized_expression":
		for i := 0; i < int(tsNode.NamedChildCount()); i++ {
			if child := tsNode.NamedChild(i); !b.isTrivia(child) {
				return b.buildExpr(child)
			}
		}
		return NewTuple()
	case "integer":
		return b.buildInteger(tsNode)
	case "float":
		text := b.getNodeText(tsNode)
		node := NewNode(NodeConstant)
		node.Raw = text
		if v, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64); err == nil {
			node.Value = v
		}
		return node
	case "true", "false":
		node := NewConstant(tsNode.Type() == "true")
		node.Raw = b.getNodeText(tsNode)
		return node
	case "none":
		node := NewConstant(nil)
		node.Raw = "None"
		return node
	case "ellipsis":
		node := NewNode(NodeConstant)
		node.Raw = "..."
		return node
	case "string":
		return b.buildString(tsNode)
	case "concatenated_string":
		return b.buildConcatenatedString(tsNode)
	case "attribute":
		return NewAttribute(
			b.buildExpr(tsNode.ChildByFieldName("object")),
			b.getNodeText(tsNode.ChildByFieldName("attribute")),
		)
	case "subscript":
		return b.buildSubscript(tsNode)
	case "slice":
		return b.buildSlice(tsNode)
	case "call":
		return b.buildCall(tsNode)
	case "binary_operator":
		node := NewNode(NodeBinOp)
		node.Left = b.buildExpr(tsNode.ChildByFieldName("left"))
		node.Op = b.getNodeText(tsNode.ChildByFieldName("operator"))
		node.Right = b.buildExpr(tsNode.ChildByFieldName("right"))
		return node
	case "unary_operator":
		return NewUnaryOp(
			b.getNodeText(tsNode.ChildByFieldName("operator")),
			b.buildExpr(tsNode.ChildByFieldName("argument")),
		)
	case "not_operator":
		return NewUnaryOp("not", b.buildExpr(tsNode.ChildByFieldName("argument")))
	case "boolean_operator":
		return NewBoolOp(
			b.getNodeText(tsNode.ChildByFieldName("operator")),
			b.buildExpr(tsNode.ChildByFieldName("left")),
			b.buildExpr(tsNode.ChildByFieldName("right")),
		)
	case "comparison_operator":
		return b.buildCompare(tsNode)
	case "conditional_expression":
		node := NewNode(NodeIfExp)
		node.Left = b.buildExpr(tsNode.NamedChild(0))
		node.Test = b.buildExpr(tsNode.NamedChild(1))
		node.Right = b.buildExpr(tsNode.NamedChild(2))
		return node
	case "named_expression":
		node := NewNode(NodeNamedExpr)
		node.Targets = []*Node{b.buildExpr(tsNode.ChildByFieldName("name"))}
		node.Value = b.buildExpr(tsNode.ChildByFieldName("value"))
		return node
	case "lambda":
		node := NewNode(NodeLambda)
		node.Args = b.buildParameters(tsNode.ChildByFieldName("parameters"))
		node.Value = b.buildExpr(tsNode.ChildByFieldName("body"))
		return node
	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		return NewTuple(b.buildElements(tsNode)...)
	case "list", "list_pattern":
		node := NewNode(NodeList)
		node.Children = b.buildElements(tsNode)
		return node
	case "set":
		node := NewNode(NodeSet)
		node.Children = b.buildElements(tsNode)
		return node
	case "dictionary":
		return b.buildDict(tsNode)
	case "list_splat", "list_splat_pattern", "parenthesized_list_splat":
		node := NewNode(NodeStarred)
		node.Op = "*"
		node.Value = b.buildExpr(tsNode.NamedChild(0))
		return node
	case "dictionary_splat":
		node := NewNode(NodeStarred)
		node.Op = "**"
		node.Value = b.buildExpr(tsNode.NamedChild(0))
		return node
	case "list_comprehension", "set_comprehension", "generator_expression", "dictionary_comprehension":
		return b.buildComprehension(tsNode)
	case "await":
		node := NewNode(NodeAwait)
		node.Value = b.buildExpr(tsNode.NamedChild(0))
		return node
	case "yield":
		node := NewNode(NodeYield)
		if b.hasChildOfType(tsNode, "from") {
			node.Type = NodeYieldFrom
		}
		if tsNode.NamedChildCount() > 0 {
			node.Value = b.buildExpressions(tsNode, 0)
		}
		return node
	case "as_pattern_target":
		return b.buildAsTarget(tsNode)
	}
	b.fail(tsNode, "unsupported expression %q", tsNode.Type())
	return NewName("_")
}

func (b *ASTBuilder) buildInteger(tsNode *sitter.Node) *Node {
	text := b.getNodeText(tsNode)
	node := NewNode(NodeConstant)
	node.Raw = text
	clean := strings.ReplaceAll(text, "_", "")
	if v, err := strconv.ParseInt(clean, 0, 64); err == nil {
		node.Value = v
	} else if len(clean) > 1 && clean[0] == '0' && strings.Trim(clean, "0") == "" {
		node.Value = int64(0)
	}
	return node
}

func (b *ASTBuilder) buildElements(tsNode *sitter.Node) []*Node {
	var elts []*Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if b.isTrivia(child) {
			continue
		}
		elts = append(elts, b.buildExpr(child))
	}
	return elts
}

func (b *ASTBuilder) buildDict(tsNode *sitter.Node) *Node {
	node := NewNode(NodeDict)
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		switch child.Type() {
		case "pair":
			pair := NewNode(NodeKeyword)
			pair.Left = b.buildExpr(child.ChildByFieldName("key"))
			pair.Value = b.buildExpr(child.ChildByFieldName("value"))
			node.AddChild(pair)
		case "dictionary_splat":
			node.AddChild(b.buildExpr(child))
		}
	}
	return node
}

func (b *ASTBuilder) buildSubscript(tsNode *sitter.Node) *Node {
	node := NewNode(NodeSubscript)
	value := tsNode.ChildByFieldName("value")
	node.Value = b.buildExpr(value)

	var index []*Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child.StartByte() == value.StartByte() && child.EndByte() == value.EndByte() {
			continue
		}
		if b.isTrivia(child) {
			continue
		}
		index = append(index, b.buildExpr(child))
	}
	if len(index) == 1 {
		node.AddChild(index[0])
	} else {
		node.AddChild(NewTuple(index...))
	}
	return node
}

// buildSlice assigns expressions to lower/upper/step by counting colons
func (b *ASTBuilder) buildSlice(tsNode *sitter.Node) *Node {
	node := NewNode(NodeSlice)
	colons := 0
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if child.Type() == ":" {
			colons++
			continue
		}
		if !child.IsNamed() {
			continue
		}
		expr := b.buildExpr(child)
		switch colons {
		case 0:
			node.Left = expr
		case 1:
			node.Right = expr
		default:
			node.Test = expr
		}
	}
	return node
}

func (b *ASTBuilder) buildCall(tsNode *sitter.Node) *Node {
	node := NewNode(NodeCall)
	node.Value = b.buildExpr(tsNode.ChildByFieldName("function"))
	args := tsNode.ChildByFieldName("arguments")
	if args == nil {
		return node
	}
	if args.Type() == "generator_expression" {
		node.Args = []*Node{b.buildExpr(args)}
		return node
	}
	node.Args, node.Keywords = b.buildCallArguments(args)
	return node
}

func (b *ASTBuilder) buildCallArguments(tsNode *sitter.Node) ([]*Node, []*Node) {
	var args, keywords []*Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		switch child.Type() {
		case "keyword_argument":
			kw := NewNode(NodeKeyword)
			kw.Location = b.getLocation(child)
			kw.Name = b.getNodeText(child.ChildByFieldName("name"))
			kw.Value = b.buildExpr(child.ChildByFieldName("value"))
			keywords = append(keywords, kw)
		case "dictionary_splat":
			kw := NewNode(NodeKeyword)
			kw.Location = b.getLocation(child)
			kw.Value = b.buildExpr(child.NamedChild(0))
			keywords = append(keywords, kw)
		case "comment":
		default:
			args = append(args, b.buildExpr(child))
		}
	}
	return args, keywords
}

// buildCompare collects operands (named children) and operators (anonymous
// tokens between them). "not in" and "is not" span two tokens.
func (b *ASTBuilder) buildCompare(tsNode *sitter.Node) *Node {
	node := NewNode(NodeCompare)
	var pending []string
	for i := 0; i < int(tsNode.ChildCount()); i++ {
		child := tsNode.Child(i)
		if !child.IsNamed() {
			pending = append(pending, strings.Join(strings.Fields(b.getNodeText(child)), " "))
			continue
		}
		if b.isTrivia(child) {
			continue
		}
		operand := b.buildExpr(child)
		if node.Left == nil {
			node.Left = operand
			continue
		}
		node.Names = append(node.Names, strings.Join(pending, " "))
		node.Children = append(node.Children, operand)
		pending = nil
	}
	return node
}

func (b *ASTBuilder) buildComprehension(tsNode *sitter.Node) *Node {
	var node *Node
	switch tsNode.Type() {
	case "list_comprehension":
		node = NewNode(NodeListComp)
	case "set_comprehension":
		node = NewNode(NodeSetComp)
	case "generator_expression":
		node = NewNode(NodeGeneratorExp)
	default:
		node = NewNode(NodeDictComp)
	}

	body := tsNode.ChildByFieldName("body")
	if node.Type == NodeDictComp && body != nil && body.Type() == "pair" {
		node.Left = b.buildExpr(body.ChildByFieldName("key"))
		node.Right = b.buildExpr(body.ChildByFieldName("value"))
	} else {
		node.Value = b.buildExpr(body)
	}

	var current *Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		switch child.Type() {
		case "for_in_clause":
			current = NewNode(NodeComprehension)
			current.Location = b.getLocation(child)
			current.Targets = []*Node{b.buildExpr(child.ChildByFieldName("left"))}
			current.Iter = b.buildExpr(child.ChildByFieldName("right"))
			if b.hasChildOfType(child, "async") {
				b.fail(child, "async comprehensions are not supported")
			}
			node.AddChild(current)
		case "if_clause":
			if current != nil {
				current.AddChild(b.buildExpr(child.NamedChild(0)))
			}
		}
	}
	return node
}

// buildString keeps the literal text. Strings with interpolations become a
// JoinedStr so the embedded expressions stay visible to analysis and renaming.
func (b *ASTBuilder) buildString(tsNode *sitter.Node) *Node {
	raw := b.getNodeText(tsNode)
	var interps []*sitter.Node
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		if child := tsNode.NamedChild(i); child.Type() == "interpolation" {
			interps = append(interps, child)
		}
	}

	open, closing := stringDelimiters(raw)
	if len(interps) == 0 {
		node := NewNode(NodeConstant)
		node.Raw = raw
		node.Value = decodeStringBody(raw[len(open):len(raw)-len(closing)], open)
		return node
	}

	node := NewNode(NodeJoinedStr)
	node.Raw = open
	node.Op = closing
	base := tsNode.StartByte()
	pos := uint32(len(open))
	for _, interp := range interps {
		start := interp.StartByte() - base
		if start > pos {
			piece := NewNode(NodeConstant)
			piece.Raw = raw[pos:start]
			node.AddChild(piece)
		}
		node.AddChild(b.buildInterpolation(interp))
		pos = interp.EndByte() - base
	}
	if end := uint32(len(raw) - len(closing)); end > pos {
		piece := NewNode(NodeConstant)
		piece.Raw = raw[pos:end]
		node.AddChild(piece)
	}
	return node
}

func (b *ASTBuilder) buildInterpolation(tsNode *sitter.Node) *Node {
	node := NewNode(NodeFormattedValue)
	node.Location = b.getLocation(tsNode)
	expr := tsNode.ChildByFieldName("expression")
	if expr == nil && tsNode.NamedChildCount() > 0 {
		expr = tsNode.NamedChild(0)
	}
	if expr == nil {
		b.fail(tsNode, "empty interpolation")
		return node
	}
	node.Value = b.buildExpr(expr)
	// Everything between the expression and the closing brace: "!r", ":>10", "=".
	text := b.source[expr.EndByte():tsNode.EndByte()]
	if len(text) > 0 && text[len(text)-1] == '}' {
		text = text[:len(text)-1]
	}
	node.Raw = string(text)
	return node
}

func (b *ASTBuilder) buildConcatenatedString(tsNode *sitter.Node) *Node {
	node := NewNode(NodeConstant)
	node.Raw = b.getNodeText(tsNode)
	var sb strings.Builder
	for i := 0; i < int(tsNode.NamedChildCount()); i++ {
		child := tsNode.NamedChild(i)
		if child.Type() != "string" {
			continue
		}
		part := b.buildString(child)
		if part.Type == NodeJoinedStr {
			b.fail(child, "f-strings inside implicit concatenation are not supported")
			return node
		}
		if s, ok := part.Value.(string); ok {
			sb.WriteString(s)
		}
	}
	node.Value = sb.String()
	return node
}

// stringDelimiters splits a literal such as rb'''x''' into its prefix plus
// opening quote and the closing quote.
func stringDelimiters(raw string) (string, string) {
	i := 0
	for i < len(raw) && raw[i] != '\'' && raw[i] != '"' {
		i++
	}
	if i >= len(raw) {
		return "", ""
	}
	quote := raw[i : i+1]
	if strings.HasPrefix(raw[i:], strings.Repeat(quote, 3)) && len(raw)-i >= 6 {
		quote = strings.Repeat(quote, 3)
	}
	return raw[:i+len(quote)], quote
}

func decodeStringBody(body, open string) string {
	prefix := strings.ToLower(strings.TrimRight(open, "'\""))
	if strings.Contains(prefix, "r") {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case '\\', '\'', '"':
			sb.WriteByte(body[i])
		case '\n':
		default:
			sb.WriteByte('\\')
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}

package parser

import "fmt"

// NodeType represents the type of AST node
type NodeType string

// Python AST node types
const (
	NodeModule NodeType = "Module"

	// Statements
	NodeFunctionDef NodeType = "FunctionDef"
	NodeClassDef    NodeType = "ClassDef"
	NodeReturn      NodeType = "Return"
	NodeDelete      NodeType = "Delete"
	NodeAssign      NodeType = "Assign"
	NodeAugAssign   NodeType = "AugAssign"
	NodeAnnAssign   NodeType = "AnnAssign"
	NodeFor         NodeType = "For"
	NodeWhile       NodeType = "While"
	NodeIf          NodeType = "If"
	NodeWith        NodeType = "With"
	NodeRaise       NodeType = "Raise"
	NodeTry         NodeType = "Try"
	NodeAssert      NodeType = "Assert"
	NodeImport      NodeType = "Import"
	NodeImportFrom  NodeType = "ImportFrom"
	NodeGlobal      NodeType = "Global"
	NodeNonlocal    NodeType = "Nonlocal"
	NodeExpr        NodeType = "Expr"
	NodePass        NodeType = "Pass"
	NodeBreak       NodeType = "Break"
	NodeContinue    NodeType = "Continue"

	// Expressions
	NodeBoolOp         NodeType = "BoolOp"
	NodeNamedExpr      NodeType = "NamedExpr"
	NodeBinOp          NodeType = "BinOp"
	NodeUnaryOp        NodeType = "UnaryOp"
	NodeLambda         NodeType = "Lambda"
	NodeIfExp          NodeType = "IfExp"
	NodeDict           NodeType = "Dict"
	NodeSet            NodeType = "Set"
	NodeListComp       NodeType = "ListComp"
	NodeSetComp        NodeType = "SetComp"
	NodeDictComp       NodeType = "DictComp"
	NodeGeneratorExp   NodeType = "GeneratorExp"
	NodeAwait          NodeType = "Await"
	NodeYield          NodeType = "Yield"
	NodeYieldFrom      NodeType = "YieldFrom"
	NodeCompare        NodeType = "Compare"
	NodeCall           NodeType = "Call"
	NodeFormattedValue NodeType = "FormattedValue"
	NodeJoinedStr      NodeType = "JoinedStr"
	NodeConstant       NodeType = "Constant"
	NodeAttribute      NodeType = "Attribute"
	NodeSubscript      NodeType = "Subscript"
	NodeStarred        NodeType = "Starred"
	NodeName           NodeType = "Name"
	NodeList           NodeType = "List"
	NodeTuple          NodeType = "Tuple"
	NodeSlice          NodeType = "Slice"

	// Other
	NodeAlias         NodeType = "Alias"
	NodeExceptHandler NodeType = "ExceptHandler"
	NodeArg           NodeType = "Arg"
	NodeKeyword       NodeType = "Keyword"
	NodeComprehension NodeType = "Comprehension"
	NodeWithItem      NodeType = "WithItem"
)

// Location represents the position of a node in the source code
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Node represents an AST node.
//
// Field usage per node type:
//
//	Module            Body
//	FunctionDef       Name, Args (Arg), Body, Decorator, Right (return annotation)
//	ClassDef          Name, Bases, Body, Decorator
//	Return, Expr      Value
//	Assign            Targets, Value
//	AugAssign         Targets[0], Op, Value
//	AnnAssign         Targets[0], Left (annotation), Value (optional)
//	For               Targets[0], Iter, Body, Orelse
//	While, If         Test, Body, Orelse
//	With              Children (WithItem: Value, Targets), Body
//	Try               Body, Handlers (ExceptHandler: Value, Name, Body), Orelse, Finalbody
//	Raise             Value, Left (cause)
//	Assert            Test, Value
//	Import(From)      Module, Level, Children (Alias: Name, Value as-name)
//	Global, Nonlocal  Names
//	Name              Name
//	Constant          Value (int64, float64, string, bool, nil), Raw
//	JoinedStr         Raw (opening delimiter), Op (closing delimiter), Children
//	FormattedValue    Value, Raw (conversion and format spec)
//	Attribute         Value (object), Name (attribute)
//	Subscript         Value (object), Children[0] (index)
//	Slice             Left (lower), Right (upper), Test (step)
//	Call              Value (function), Args, Keywords (Keyword: Name, Value)
//	BinOp, BoolOp     Left, Op, Right
//	UnaryOp           Op, Value
//	Compare           Left, Names (operators), Children (comparators)
//	IfExp             Test, Left (body), Right (orelse)
//	Lambda            Args, Value
//	NamedExpr         Targets[0], Value
//	Starred           Op ("*" or "**"), Value
//	Tuple, List, Set  Children
//	Dict              Children (Keyword pairs with Left key, or "**" Starred)
//	*Comp, Generator  Value (element) or Left/Right (DictComp), Children (Comprehension)
//	Comprehension     Targets[0], Iter, Children (conditions)
//	Arg               Name, Op ("*", "**" for star parameters), Left (annotation), Value (default)
type Node struct {
	Type     NodeType
	Value    interface{}
	Children []*Node
	Location Location

	Name      string
	Targets   []*Node
	Body      []*Node
	Orelse    []*Node
	Finalbody []*Node
	Handlers  []*Node
	Test      *Node
	Iter      *Node
	Args      []*Node
	Keywords  []*Node
	Decorator []*Node
	Bases     []*Node
	Left      *Node
	Right     *Node
	Op        string
	Module    string
	Names     []string
	Level     int
	Raw       string // Original literal text for constants and string pieces
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{Type: nodeType}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

// ValueNode returns Value when it holds a node
func (n *Node) ValueNode() *Node {
	if n == nil {
		return nil
	}
	if v, ok := n.Value.(*Node); ok {
		return v
	}
	return nil
}

// GetChildren returns all child nodes, including a node held in Value
func (n *Node) GetChildren() []*Node {
	var all []*Node
	if v := n.ValueNode(); v != nil {
		all = append(all, v)
	}
	all = append(all, n.Decorator...)
	all = append(all, n.Targets...)
	for _, c := range []*Node{n.Test, n.Iter, n.Left, n.Right} {
		if c != nil {
			all = append(all, c)
		}
	}
	all = append(all, n.Children...)
	all = append(all, n.Args...)
	all = append(all, n.Keywords...)
	all = append(all, n.Bases...)
	all = append(all, n.Body...)
	all = append(all, n.Handlers...)
	all = append(all, n.Orelse...)
	all = append(all, n.Finalbody...)
	return all
}

// IsStatement returns true if the node is a statement
func (n *Node) IsStatement() bool {
	switch n.Type {
	case NodeFunctionDef, NodeClassDef, NodeReturn, NodeDelete, NodeAssign,
		NodeAugAssign, NodeAnnAssign, NodeFor, NodeWhile, NodeIf, NodeWith,
		NodeRaise, NodeTry, NodeAssert, NodeImport, NodeImportFrom,
		NodeGlobal, NodeNonlocal, NodeExpr, NodePass, NodeBreak, NodeContinue:
		return true
	default:
		return false
	}
}

// String returns a string representation of the node
func (n *Node) String() string {
	if n.Name != "" {
		return fmt.Sprintf("%s(%s)", n.Type, n.Name)
	}
	if n.Value != nil {
		if v := n.ValueNode(); v != nil {
			return fmt.Sprintf("%s(%s)", n.Type, v)
		}
		return fmt.Sprintf("%s(%v)", n.Type, n.Value)
	}
	return string(n.Type)
}

// Walk traverses the AST using depth-first search
func (n *Node) Walk(visitor func(*Node) bool) {
	if n == nil || !visitor(n) {
		return
	}
	for _, child := range n.GetChildren() {
		child.Walk(visitor)
	}
}

// Copy creates a deep copy of the node, including a node held in Value.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}

	copied := *n
	if v := n.ValueNode(); v != nil {
		copied.Value = v.Copy()
	}
	copied.Children = copyList(n.Children)
	copied.Targets = copyList(n.Targets)
	copied.Body = copyList(n.Body)
	copied.Orelse = copyList(n.Orelse)
	copied.Finalbody = copyList(n.Finalbody)
	copied.Handlers = copyList(n.Handlers)
	copied.Args = copyList(n.Args)
	copied.Keywords = copyList(n.Keywords)
	copied.Decorator = copyList(n.Decorator)
	copied.Bases = copyList(n.Bases)
	copied.Test = n.Test.Copy()
	copied.Iter = n.Iter.Copy()
	copied.Left = n.Left.Copy()
	copied.Right = n.Right.Copy()
	if n.Names != nil {
		copied.Names = append([]string(nil), n.Names...)
	}
	return &copied
}

// CopyList deep-copies a statement or expression list
func CopyList(nodes []*Node) []*Node {
	return copyList(nodes)
}

func copyList(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, node := range nodes {
		out[i] = node.Copy()
	}
	return out
}

// ShallowCopy copies the node header and its slices without copying children.
// Rewriters use it to replace one field without touching the original node.
func (n *Node) ShallowCopy() *Node {
	copied := *n
	copied.Children = append([]*Node(nil), n.Children...)
	copied.Targets = append([]*Node(nil), n.Targets...)
	copied.Body = append([]*Node(nil), n.Body...)
	copied.Orelse = append([]*Node(nil), n.Orelse...)
	copied.Finalbody = append([]*Node(nil), n.Finalbody...)
	copied.Handlers = append([]*Node(nil), n.Handlers...)
	copied.Args = append([]*Node(nil), n.Args...)
	copied.Keywords = append([]*Node(nil), n.Keywords...)
	return &copied
}

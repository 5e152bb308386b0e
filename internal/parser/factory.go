package parser

import "strings"

// Constructors for synthesized code. They produce nodes with the same field
// layout as the tree-sitter builder so printing and analysis treat them alike.

// NewName creates a Name node
func NewName(name string) *Node {
	n := NewNode(NodeName)
	n.Name = name
	return n
}

// NewDottedName creates a Name or an Attribute chain from "a.b.c"
func NewDottedName(dotted string) *Node {
	parts := strings.Split(dotted, ".")
	node := NewName(parts[0])
	for _, p := range parts[1:] {
		node = NewAttribute(node, p)
	}
	return node
}

// NewConstant creates a Constant node holding a Go value
func NewConstant(value interface{}) *Node {
	n := NewNode(NodeConstant)
	n.Value = value
	return n
}

// NewAttribute creates obj.attr
func NewAttribute(obj *Node, attr string) *Node {
	n := NewNode(NodeAttribute)
	n.Value = obj
	n.Name = attr
	return n
}

// NewCall creates fn(args...)
func NewCall(fn *Node, args ...*Node) *Node {
	n := NewNode(NodeCall)
	n.Value = fn
	n.Args = args
	return n
}

// NewTuple creates a tuple expression
func NewTuple(elts ...*Node) *Node {
	n := NewNode(NodeTuple)
	n.Children = elts
	return n
}

// NewNameTuple creates a tuple of Name nodes
func NewNameTuple(names []string) *Node {
	elts := make([]*Node, len(names))
	for i, name := range names {
		elts[i] = NewName(name)
	}
	return NewTuple(elts...)
}

// NewAssign creates target = value
func NewAssign(target, value *Node) *Node {
	n := NewNode(NodeAssign)
	n.Targets = []*Node{target}
	n.Value = value
	return n
}

// NewExprStmt wraps an expression as a statement
func NewExprStmt(value *Node) *Node {
	n := NewNode(NodeExpr)
	n.Value = value
	return n
}

// NewReturn creates a return statement; value may be nil
func NewReturn(value *Node) *Node {
	n := NewNode(NodeReturn)
	if value != nil {
		n.Value = value
	}
	return n
}

// NewArg creates a positional parameter
func NewArg(name string) *Node {
	n := NewNode(NodeArg)
	n.Name = name
	return n
}

// NewFunctionDef creates def name(params...): body
func NewFunctionDef(name string, params []string, body []*Node) *Node {
	n := NewNode(NodeFunctionDef)
	n.Name = name
	for _, p := range params {
		n.Args = append(n.Args, NewArg(p))
	}
	n.Body = body
	return n
}

// NewIf creates if test: body else: orelse
func NewIf(test *Node, body, orelse []*Node) *Node {
	n := NewNode(NodeIf)
	n.Test = test
	n.Body = body
	n.Orelse = orelse
	return n
}

// NewUnaryOp creates a unary operation such as "not x"
func NewUnaryOp(op string, operand *Node) *Node {
	n := NewNode(NodeUnaryOp)
	n.Op = op
	n.Value = operand
	return n
}

// NewBoolOp creates left op right for "and" / "or"
func NewBoolOp(op string, left, right *Node) *Node {
	n := NewNode(NodeBoolOp)
	n.Op = op
	n.Left = left
	n.Right = right
	return n
}

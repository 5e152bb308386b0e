package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Operator precedence used to decide where parentheses are required.
const (
	precTuple = iota
	precYield
	precLambda
	precIfExp
	precOr
	precAnd
	precNot
	precCompare
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precArith
	precTerm
	precUnary
	precPower
	precAwait
	precAtom
)

var binOpPrec = map[string]int{
	"|": precBitOr, "^": precBitXor, "&": precBitAnd,
	"<<": precShift, ">>": precShift,
	"+": precArith, "-": precArith,
	"*": precTerm, "/": precTerm, "//": precTerm, "%": precTerm, "@": precTerm,
	"**": precPower,
}

// Print renders a module, statement or expression as Python source
func Print(node *Node) string {
	p := &printer{}
	switch {
	case node == nil:
		return ""
	case node.Type == NodeModule:
		p.stmts(node.Body, 0)
	case node.IsStatement():
		p.stmt(node, 0)
	default:
		return p.expr(node, precTuple)
	}
	return p.sb.String()
}

// PrintStatements renders a statement list at top level
func PrintStatements(stmts []*Node) string {
	p := &printer{}
	p.stmts(stmts, 0)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) line(depth int, format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) stmts(stmts []*Node, depth int) {
	if len(stmts) == 0 {
		p.line(depth, "pass")
		return
	}
	for _, s := range stmts {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(n *Node, depth int) {
	switch n.Type {
	case NodeFunctionDef:
		for _, d := range n.Decorator {
			p.line(depth, "@%s", p.expr(d, precTuple))
		}
		ret := ""
		if n.Right != nil {
			ret = " -> " + p.expr(n.Right, precTuple)
		}
		p.line(depth, "def %s(%s)%s:", n.Name, p.params(n.Args), ret)
		p.stmts(n.Body, depth+1)
	case NodeClassDef:
		for _, d := range n.Decorator {
			p.line(depth, "@%s", p.expr(d, precTuple))
		}
		if len(n.Bases) > 0 {
			p.line(depth, "class %s(%s):", n.Name, p.exprList(n.Bases))
		} else {
			p.line(depth, "class %s:", n.Name)
		}
		p.stmts(n.Body, depth+1)
	case NodeReturn:
		if v := n.ValueNode(); v != nil {
			p.line(depth, "return %s", p.expr(v, precTuple))
		} else {
			p.line(depth, "return")
		}
	case NodeDelete:
		p.line(depth, "del %s", p.exprList(n.Targets))
	case NodeAssign:
		var parts []string
		for _, t := range n.Targets {
			parts = append(parts, p.expr(t, precTuple))
		}
		parts = append(parts, p.expr(n.ValueNode(), precTuple))
		p.line(depth, "%s", strings.Join(parts, " = "))
	case NodeAugAssign:
		p.line(depth, "%s %s= %s", p.expr(n.Targets[0], precTuple), n.Op, p.expr(n.ValueNode(), precTuple))
	case NodeAnnAssign:
		if v := n.ValueNode(); v != nil {
			p.line(depth, "%s: %s = %s", p.expr(n.Targets[0], precTuple), p.expr(n.Left, precTuple), p.expr(v, precTuple))
		} else {
			p.line(depth, "%s: %s", p.expr(n.Targets[0], precTuple), p.expr(n.Left, precTuple))
		}
	case NodeFor:
		p.line(depth, "for %s in %s:", p.expr(n.Targets[0], precTuple), p.expr(n.Iter, precTuple))
		p.stmts(n.Body, depth+1)
		p.orelse(n.Orelse, depth)
	case NodeWhile:
		p.line(depth, "while %s:", p.expr(n.Test, precTuple))
		p.stmts(n.Body, depth+1)
		p.orelse(n.Orelse, depth)
	case NodeIf:
		p.ifChain(n, depth, "if")
	case NodeWith:
		var items []string
		for _, item := range n.Children {
			s := p.expr(item.ValueNode(), precTuple)
			if len(item.Targets) > 0 {
				s += " as " + p.expr(item.Targets[0], precTuple)
			}
			items = append(items, s)
		}
		p.line(depth, "with %s:", strings.Join(items, ", "))
		p.stmts(n.Body, depth+1)
	case NodeTry:
		p.line(depth, "try:")
		p.stmts(n.Body, depth+1)
		for _, h := range n.Handlers {
			head := "except"
			if v := h.ValueNode(); v != nil {
				head += " " + p.expr(v, precTuple)
				if h.Name != "" {
					head += " as " + h.Name
				}
			}
			p.line(depth, "%s:", head)
			p.stmts(h.Body, depth+1)
		}
		p.orelse(n.Orelse, depth)
		if len(n.Finalbody) > 0 {
			p.line(depth, "finally:")
			p.stmts(n.Finalbody, depth+1)
		}
	case NodeRaise:
		s := "raise"
		if v := n.ValueNode(); v != nil {
			s += " " + p.expr(v, precTuple)
		}
		if n.Left != nil {
			s += " from " + p.expr(n.Left, precTuple)
		}
		p.line(depth, "%s", s)
	case NodeAssert:
		if v := n.ValueNode(); v != nil {
			p.line(depth, "assert %s, %s", p.expr(n.Test, precLambda), p.expr(v, precLambda))
		} else {
			p.line(depth, "assert %s", p.expr(n.Test, precLambda))
		}
	case NodeImport:
		p.line(depth, "import %s", p.aliases(n.Children))
	case NodeImportFrom:
		p.line(depth, "from %s%s import %s", strings.Repeat(".", n.Level), n.Module, p.aliases(n.Children))
	case NodeGlobal:
		p.line(depth, "global %s", strings.Join(n.Names, ", "))
	case NodeNonlocal:
		p.line(depth, "nonlocal %s", strings.Join(n.Names, ", "))
	case NodeExpr:
		p.line(depth, "%s", p.expr(n.ValueNode(), precTuple))
	case NodePass:
		p.line(depth, "pass")
	case NodeBreak:
		p.line(depth, "break")
	case NodeContinue:
		p.line(depth, "continue")
	default:
		p.line(depth, "# unsupported node %s", n.Type)
	}
}

func (p *printer) ifChain(n *Node, depth int, keyword string) {
	p.line(depth, "%s %s:", keyword, p.expr(n.Test, precTuple))
	p.stmts(n.Body, depth+1)
	if len(n.Orelse) == 1 && n.Orelse[0].Type == NodeIf {
		p.ifChain(n.Orelse[0], depth, "elif")
		return
	}
	p.orelse(n.Orelse, depth)
}

func (p *printer) orelse(orelse []*Node, depth int) {
	if len(orelse) == 0 {
		return
	}
	p.line(depth, "else:")
	p.stmts(orelse, depth+1)
}

func (p *printer) aliases(nodes []*Node) string {
	var parts []string
	for _, a := range nodes {
		if as, ok := a.Value.(string); ok && as != "" {
			parts = append(parts, a.Name+" as "+as)
		} else {
			parts = append(parts, a.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func (p *printer) params(args []*Node) string {
	var parts []string
	for _, a := range args {
		s := a.Op + a.Name
		if a.Left != nil {
			s += ": " + p.expr(a.Left, precLambda)
		}
		if v := a.ValueNode(); v != nil {
			if a.Left != nil {
				s += " = " + p.expr(v, precLambda)
			} else {
				s += "=" + p.expr(v, precLambda)
			}
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) exprList(nodes []*Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, p.expr(n, precLambda))
	}
	return strings.Join(parts, ", ")
}

func (p *printer) callArgs(n *Node) string {
	parts := make([]string, 0, len(n.Args)+len(n.Keywords))
	for _, a := range n.Args {
		parts = append(parts, p.expr(a, precLambda))
	}
	for _, k := range n.Keywords {
		parts = append(parts, p.keyword(k))
	}
	return strings.Join(parts, ", ")
}

func (p *printer) keyword(k *Node) string {
	if k.Type != NodeKeyword {
		return p.expr(k, precLambda)
	}
	if k.Name == "" {
		return "**" + p.expr(k.ValueNode(), precBitOr)
	}
	return k.Name + "=" + p.expr(k.ValueNode(), precLambda)
}

func (p *printer) expr(n *Node, min int) string {
	if n == nil {
		return ""
	}
	s, prec := p.exprPrec(n)
	if prec < min {
		return "(" + s + ")"
	}
	return s
}

func (p *printer) exprPrec(n *Node) (string, int) {
	switch n.Type {
	case NodeName:
		return n.Name, precAtom
	case NodeConstant:
		return constantText(n), precAtom
	case NodeJoinedStr:
		var sb strings.Builder
		sb.WriteString(n.Raw)
		for _, part := range n.Children {
			if part.Type == NodeFormattedValue {
				inner := p.expr(part.ValueNode(), precLambda)
				if strings.HasPrefix(inner, "{") {
					inner = " " + inner
				}
				sb.WriteString("{" + inner + part.Raw + "}")
			} else {
				sb.WriteString(part.Raw)
			}
		}
		sb.WriteString(n.Op)
		return sb.String(), precAtom
	case NodeAttribute:
		return p.expr(n.ValueNode(), precAtom) + "." + n.Name, precAtom
	case NodeSubscript:
		return p.expr(n.ValueNode(), precAtom) + "[" + p.index(n.Children[0]) + "]", precAtom
	case NodeCall:
		return p.expr(n.ValueNode(), precAtom) + "(" + p.callArgs(n) + ")", precAtom
	case NodeSlice:
		return p.index(n), precAtom
	case NodeBinOp:
		prec := binOpPrec[n.Op]
		if n.Op == "**" {
			return p.expr(n.Left, prec+1) + " ** " + p.expr(n.Right, precUnary), prec
		}
		return p.expr(n.Left, prec) + " " + n.Op + " " + p.expr(n.Right, prec+1), prec
	case NodeBoolOp:
		prec := precAnd
		if n.Op == "or" {
			prec = precOr
		}
		return p.expr(n.Left, prec) + " " + n.Op + " " + p.expr(n.Right, prec+1), prec
	case NodeUnaryOp:
		if n.Op == "not" {
			return "not " + p.expr(n.ValueNode(), precNot), precNot
		}
		return n.Op + p.expr(n.ValueNode(), precUnary), precUnary
	case NodeCompare:
		s := p.expr(n.Left, precBitOr)
		for i, op := range n.Names {
			s += " " + op + " " + p.expr(n.Children[i], precBitOr)
		}
		return s, precCompare
	case NodeIfExp:
		return p.expr(n.Left, precOr) + " if " + p.expr(n.Test, precOr) + " else " + p.expr(n.Right, precIfExp), precIfExp
	case NodeLambda:
		params := p.params(n.Args)
		if params != "" {
			params = " " + params
		}
		return "lambda" + params + ": " + p.expr(n.ValueNode(), precIfExp), precLambda
	case NodeNamedExpr:
		return p.expr(n.Targets[0], precAtom) + " := " + p.expr(n.ValueNode(), precLambda), precYield
	case NodeTuple:
		switch len(n.Children) {
		case 0:
			return "()", precAtom
		case 1:
			return "(" + p.expr(n.Children[0], precLambda) + ",)", precAtom
		}
		return "(" + p.exprList(n.Children) + ")", precAtom
	case NodeList:
		return "[" + p.exprList(n.Children) + "]", precAtom
	case NodeSet:
		return "{" + p.exprList(n.Children) + "}", precAtom
	case NodeDict:
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			if c.Type == NodeKeyword {
				parts = append(parts, p.expr(c.Left, precLambda)+": "+p.expr(c.ValueNode(), precLambda))
			} else {
				parts = append(parts, p.expr(c, precLambda))
			}
		}
		return "{" + strings.Join(parts, ", ") + "}", precAtom
	case NodeStarred:
		return n.Op + p.expr(n.ValueNode(), precBitOr), precLambda
	case NodeListComp:
		return "[" + p.expr(n.ValueNode(), precLambda) + p.generators(n.Children) + "]", precAtom
	case NodeSetComp:
		return "{" + p.expr(n.ValueNode(), precLambda) + p.generators(n.Children) + "}", precAtom
	case NodeGeneratorExp:
		return "(" + p.expr(n.ValueNode(), precLambda) + p.generators(n.Children) + ")", precAtom
	case NodeDictComp:
		return "{" + p.expr(n.Left, precLambda) + ": " + p.expr(n.Right, precLambda) + p.generators(n.Children) + "}", precAtom
	case NodeAwait:
		return "await " + p.expr(n.ValueNode(), precAtom), precAwait
	case NodeYield:
		if v := n.ValueNode(); v != nil {
			return "yield " + p.expr(v, precTuple), precYield
		}
		return "yield", precYield
	case NodeYieldFrom:
		return "yield from " + p.expr(n.ValueNode(), precLambda), precYield
	}
	return fmt.Sprintf("<%s>", n.Type), precAtom
}

func (p *printer) generators(comps []*Node) string {
	var sb strings.Builder
	for _, c := range comps {
		sb.WriteString(" for " + p.expr(c.Targets[0], precTuple) + " in " + p.expr(c.Iter, precOr))
		for _, cond := range c.Children {
			sb.WriteString(" if " + p.expr(cond, precOr))
		}
	}
	return sb.String()
}

// index renders a subscript index; tuples and slices print without parentheses
func (p *printer) index(n *Node) string {
	switch n.Type {
	case NodeSlice:
		s := p.expr(n.Left, precLambda) + ":" + p.expr(n.Right, precLambda)
		if n.Test != nil {
			s += ":" + p.expr(n.Test, precLambda)
		}
		return s
	case NodeTuple:
		if len(n.Children) == 0 {
			return "()"
		}
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.Children {
			parts = append(parts, p.index(c))
		}
		if len(parts) == 1 {
			return parts[0] + ","
		}
		return strings.Join(parts, ", ")
	}
	return p.expr(n, precLambda)
}

func constantText(n *Node) string {
	if n.Raw != "" {
		return n.Raw
	}
	switch v := n.Value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprintf("float('%v')", v)
		}
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case string:
		return QuoteString(v)
	}
	return fmt.Sprintf("%v", n.Value)
}

// QuoteString renders s as a single-quoted Python string literal
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\'':
			sb.WriteString(`\'`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

package analyzer

import (
	"github.com/ludo-technologies/pystage/internal/parser"
)

// ActivityAnalyzer computes which symbols a piece of code reads and modifies.
//
// Reading a composite symbol also reads its base (a.b.c reads a.b.c, a.b and
// a); writing a composite modifies the composite and reads its base. Names
// bound by comprehensions and lambda parameters are local to that
// expression and never reported.
type ActivityAnalyzer struct{}

// NewActivityAnalyzer creates an activity analyzer
func NewActivityAnalyzer() *ActivityAnalyzer {
	return &ActivityAnalyzer{}
}

// BlockScope returns the activity of a statement list, nested blocks included
func (a *ActivityAnalyzer) BlockScope(stmts []*parser.Node) *Scope {
	w := newActivityWalker()
	for _, stmt := range stmts {
		w.statement(stmt, true)
	}
	return w.scope
}

// ExprScope returns the activity of a single expression
func (a *ActivityAnalyzer) ExprScope(expr *parser.Node) *Scope {
	w := newActivityWalker()
	w.expr(expr, false)
	return w.scope
}

// HeaderScope returns the activity of the part of a statement that executes
// at its own CFG node: the test of an if/while, the iterable of a for, the
// items of a with. Simple statements report their full activity.
func (a *ActivityAnalyzer) HeaderScope(stmt *parser.Node) *Scope {
	w := newActivityWalker()
	w.statement(stmt, false)
	return w.scope
}

// TargetScope returns the activity of binding a for loop's target, which
// happens once per iteration before the body runs. Other statements have
// an empty target scope.
func (a *ActivityAnalyzer) TargetScope(stmt *parser.Node) *Scope {
	w := newActivityWalker()
	if stmt != nil && stmt.Type == parser.NodeFor && len(stmt.Targets) > 0 {
		w.expr(stmt.Targets[0], true)
	}
	return w.scope
}

type activityWalker struct {
	scope  *Scope
	locals []map[string]bool
}

func newActivityWalker() *activityWalker {
	return &activityWalker{scope: NewScope()}
}

func (w *activityWalker) isLocal(name string) bool {
	for i := len(w.locals) - 1; i >= 0; i-- {
		if w.locals[i][name] {
			return true
		}
	}
	return false
}

func (w *activityWalker) read(sym *Symbol) {
	if sym == nil || w.isLocal(sym.Root().name) {
		return
	}
	w.scope.Read.Add(sym)
}

func (w *activityWalker) modify(sym *Symbol) {
	if sym == nil || w.isLocal(sym.Root().name) {
		return
	}
	w.scope.Modified.Add(sym)
}

// statement records the activity of stmt. With nested false only the
// header part of compound statements is visited.
func (w *activityWalker) statement(stmt *parser.Node, nested bool) {
	if stmt == nil {
		return
	}
	switch stmt.Type {
	case parser.NodeAssign:
		w.expr(stmt.ValueNode(), false)
		for _, t := range stmt.Targets {
			w.expr(t, true)
		}
	case parser.NodeAugAssign:
		w.expr(stmt.ValueNode(), false)
		w.expr(stmt.Targets[0], false)
		w.expr(stmt.Targets[0], true)
	case parser.NodeAnnAssign:
		w.expr(stmt.Left, false)
		if v := stmt.ValueNode(); v != nil {
			w.expr(v, false)
			w.expr(stmt.Targets[0], true)
		}
	case parser.NodeFor:
		w.expr(stmt.Iter, false)
		if nested {
			w.expr(stmt.Targets[0], true)
			w.block(stmt.Body)
			w.block(stmt.Orelse)
		}
	case parser.NodeWhile, parser.NodeIf:
		w.expr(stmt.Test, false)
		if nested {
			w.block(stmt.Body)
			w.block(stmt.Orelse)
		}
	case parser.NodeWith:
		for _, item := range stmt.Children {
			w.expr(item.ValueNode(), false)
			for _, t := range item.Targets {
				w.expr(t, true)
			}
		}
		if nested {
			w.block(stmt.Body)
		}
	case parser.NodeTry:
		if nested {
			w.block(stmt.Body)
			for _, h := range stmt.Handlers {
				w.statement(h, true)
			}
			w.block(stmt.Orelse)
			w.block(stmt.Finalbody)
		}
	case parser.NodeExceptHandler:
		w.expr(stmt.ValueNode(), false)
		if stmt.Name != "" {
			w.modify(NewSimpleSymbol(stmt.Name))
		}
		if nested {
			w.block(stmt.Body)
		}
	case parser.NodeFunctionDef:
		for _, d := range stmt.Decorator {
			w.expr(d, false)
		}
		w.function(stmt.Args, stmt.Body, nil)
		w.modify(NewSimpleSymbol(stmt.Name))
	case parser.NodeClassDef:
		for _, d := range stmt.Decorator {
			w.expr(d, false)
		}
		for _, base := range stmt.Bases {
			w.expr(base, false)
		}
		w.modify(NewSimpleSymbol(stmt.Name))
	case parser.NodeDelete:
		for _, t := range stmt.Targets {
			w.expr(t, true)
		}
	case parser.NodeImport, parser.NodeImportFrom:
		for _, alias := range stmt.Children {
			if alias.Name != "*" {
				w.modify(NewSimpleSymbol(importedName(alias)))
			}
		}
	case parser.NodeReturn, parser.NodeExpr:
		w.expr(stmt.ValueNode(), false)
	case parser.NodeRaise:
		w.expr(stmt.ValueNode(), false)
		w.expr(stmt.Left, false)
	case parser.NodeAssert:
		w.expr(stmt.Test, false)
		w.expr(stmt.ValueNode(), false)
	}
}

func (w *activityWalker) block(stmts []*parser.Node) {
	for _, stmt := range stmts {
		w.statement(stmt, true)
	}
}

// function records the free-variable reads of a nested function or lambda
// body. Parameters and names assigned in the body are local to it.
func (w *activityWalker) function(params []*parser.Node, body []*parser.Node, expr *parser.Node) {
	for _, p := range params {
		w.expr(p.ValueNode(), false)
		w.expr(p.Left, false)
	}

	inner := newActivityWalker()
	locals := make(map[string]bool)
	for _, p := range params {
		if p.Name != "" && p.Name != "*" && p.Name != "/" {
			locals[p.Name] = true
		}
	}
	if expr != nil {
		inner.expr(expr, false)
	}
	inner.block(body)
	declared := declaredNonLocal(body)
	for _, sym := range inner.scope.Modified.Symbols() {
		if sym.IsSimple() && !declared[sym.name] {
			locals[sym.name] = true
		}
	}
	for _, sym := range inner.scope.Read.Symbols() {
		if !locals[sym.Root().name] {
			w.read(sym)
		}
	}
}

func declaredNonLocal(body []*parser.Node) map[string]bool {
	out := make(map[string]bool)
	for _, stmt := range body {
		stmt.Walk(func(n *parser.Node) bool {
			if n.Type == parser.NodeFunctionDef || n.Type == parser.NodeClassDef || n.Type == parser.NodeLambda {
				return false
			}
			if n.Type == parser.NodeGlobal || n.Type == parser.NodeNonlocal {
				for _, name := range n.Names {
					out[name] = true
				}
			}
			return true
		})
	}
	return out
}

// importedName returns the name an import alias binds
func importedName(alias *parser.Node) string {
	if as, ok := alias.Value.(string); ok && as != "" {
		return as
	}
	name := alias.Name
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i]
		}
	}
	return name
}

// expr records the activity of an expression; store marks assignment targets
func (w *activityWalker) expr(n *parser.Node, store bool) {
	if n == nil {
		return
	}
	switch n.Type {
	case parser.NodeName:
		sym := NewSimpleSymbol(n.Name)
		if store {
			w.modify(sym)
		} else {
			w.read(sym)
		}
	case parser.NodeAttribute:
		sym := SymbolOf(n)
		if store {
			w.modify(sym)
		} else {
			w.read(sym)
		}
		w.expr(n.ValueNode(), false)
	case parser.NodeSubscript:
		sym := SymbolOf(n)
		if store {
			w.modify(sym)
		} else {
			w.read(sym)
		}
		w.expr(n.ValueNode(), false)
		for _, c := range n.Children {
			w.expr(c, false)
		}
	case parser.NodeTuple, parser.NodeList:
		for _, c := range n.Children {
			w.expr(c, store)
		}
	case parser.NodeStarred:
		w.expr(n.ValueNode(), store)
	case parser.NodeNamedExpr:
		w.expr(n.ValueNode(), false)
		w.expr(n.Targets[0], true)
	case parser.NodeLambda:
		w.function(n.Args, nil, n.ValueNode())
	case parser.NodeListComp, parser.NodeSetComp, parser.NodeGeneratorExp, parser.NodeDictComp:
		w.comprehension(n)
	case parser.NodeConstant:
	default:
		for _, c := range n.GetChildren() {
			w.expr(c, false)
		}
	}
}

// comprehension visits generators in order; each target becomes local
// for the clauses after it. The first iterable is evaluated outside.
func (w *activityWalker) comprehension(n *parser.Node) {
	frame := make(map[string]bool)
	for i, gen := range n.Children {
		if i == 0 {
			w.expr(gen.Iter, false)
		}
		for _, sym := range targetNames(gen.Targets[0]) {
			frame[sym] = true
		}
		if i == 0 {
			w.locals = append(w.locals, frame)
		} else {
			w.expr(gen.Iter, false)
		}
		for _, cond := range gen.Children {
			w.expr(cond, false)
		}
	}
	w.expr(n.ValueNode(), false)
	w.expr(n.Left, false)
	w.expr(n.Right, false)
	if len(n.Children) > 0 {
		w.locals = w.locals[:len(w.locals)-1]
	}
}

// targetNames returns the simple names bound by an assignment target
func targetNames(target *parser.Node) []string {
	var names []string
	switch target.Type {
	case parser.NodeName:
		names = append(names, target.Name)
	case parser.NodeTuple, parser.NodeList:
		for _, c := range target.Children {
			names = append(names, targetNames(c)...)
		}
	case parser.NodeStarred:
		names = append(names, targetNames(target.ValueNode())...)
	}
	return names
}

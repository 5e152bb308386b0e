package transform

import (
	"fmt"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// LowerJumps replaces break, continue and return statements that would end
// up inside a converted construct with assignments to flag variables:
//
//	while test:            break_ = False
//	    if a:              while not break_ and test:
//	        break              if a:
//	    b()                        break_ = True
//	                           if not break_:
//	                               b()
//
// Statements following a statement that may set a flag run under a guard on
// the flag. While loops stop through their test; for loops receive an
// early-stopping test in ctx.Annotations. A loop else block guarded by a
// flag moves after the loop. Functions whose returns sit inside if, while
// or for statements return a single retval_ at the end.
func LowerJumps(root *parser.Node, ctx *Context) (*parser.Node, error) {
	if root == nil || root.Type != parser.NodeModule {
		return nil, fmt.Errorf("jump lowering requires a module node")
	}
	l := &jumpLowering{ctx: ctx}
	body, err := l.lowerBlock(root.Body, jumpContext{})
	if err != nil {
		return nil, err
	}
	out := parser.NewNode(parser.NodeModule)
	out.Location = root.Location
	out.Body = body
	return out, nil
}

type jumpLowering struct {
	ctx *Context
}

// loopFlags name the flags of the innermost loop; empty when unused
type loopFlags struct {
	brk  string
	cont string
}

type returnFlags struct {
	flag  string
	value string
}

type jumpContext struct {
	loop *loopFlags
	ret  *returnFlags
}

func (l *jumpLowering) lowerBlock(stmts []*parser.Node, jc jumpContext) ([]*parser.Node, error) {
	var out []*parser.Node
	for i, stmt := range stmts {
		switch stmt.Type {
		case parser.NodeBreak:
			if jc.loop == nil {
				return nil, preconditionf(stmt, "break outside loop")
			}
			return append(out, setFlag(jc.loop.brk, stmt)), nil
		case parser.NodeContinue:
			if jc.loop == nil {
				return nil, preconditionf(stmt, "continue outside loop")
			}
			return append(out, setFlag(jc.loop.cont, stmt)), nil
		case parser.NodeReturn:
			if jc.ret == nil {
				break
			}
			value := stmt.ValueNode().Copy()
			if value == nil {
				value = parser.NewConstant(nil)
			}
			retval := parser.NewAssign(parser.NewName(jc.ret.value), value)
			retval.Location = stmt.Location
			return append(out, setFlag(jc.ret.flag, stmt), retval), nil
		}

		lowered, err := l.lowerStatement(stmt, jc)
		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)

		if flags := flagsSetBy(stmt, jc); len(flags) > 0 && i < len(stmts)-1 {
			rest, err := l.lowerBlock(stmts[i+1:], jc)
			if err != nil {
				return nil, err
			}
			guard := parser.NewIf(notAll(flags), rest, nil)
			guard.Location = stmts[i+1].Location
			return append(out, guard), nil
		}
	}
	return out, nil
}

func (l *jumpLowering) lowerStatement(stmt *parser.Node, jc jumpContext) ([]*parser.Node, error) {
	var err error
	switch stmt.Type {
	case parser.NodeIf:
		out := stmt.Copy()
		if out.Body, err = l.lowerBlock(stmt.Body, jc); err != nil {
			return nil, err
		}
		if out.Orelse, err = l.lowerBlock(stmt.Orelse, jc); err != nil {
			return nil, err
		}
		return []*parser.Node{out}, nil
	case parser.NodeWhile, parser.NodeFor:
		return l.lowerLoop(stmt, jc)
	case parser.NodeWith:
		out := stmt.Copy()
		if out.Body, err = l.lowerBlock(stmt.Body, jc); err != nil {
			return nil, err
		}
		return []*parser.Node{out}, nil
	case parser.NodeTry:
		out := stmt.Copy()
		if out.Body, err = l.lowerBlock(stmt.Body, jc); err != nil {
			return nil, err
		}
		for i, h := range stmt.Handlers {
			if out.Handlers[i].Body, err = l.lowerBlock(h.Body, jc); err != nil {
				return nil, err
			}
		}
		if out.Orelse, err = l.lowerBlock(stmt.Orelse, jc); err != nil {
			return nil, err
		}
		if out.Finalbody, err = l.lowerBlock(stmt.Finalbody, jc); err != nil {
			return nil, err
		}
		return []*parser.Node{out}, nil
	case parser.NodeFunctionDef:
		return l.lowerFunction(stmt)
	case parser.NodeClassDef:
		out := stmt.Copy()
		if out.Body, err = l.lowerBlock(stmt.Body, jumpContext{}); err != nil {
			return nil, err
		}
		return []*parser.Node{out}, nil
	}
	return []*parser.Node{stmt.Copy()}, nil
}

func (l *jumpLowering) lowerLoop(loop *parser.Node, jc jumpContext) ([]*parser.Node, error) {
	hasBreak, hasContinue := loopJumps(loop.Body)
	returns := jc.ret != nil && containsReturn(loop.Body)

	inner := jumpContext{loop: &loopFlags{}, ret: jc.ret}
	var stmts []*parser.Node
	var stop []string
	if hasBreak {
		inner.loop.brk = l.ctx.Namer.NewSymbol("break_", nil)
		stmts = append(stmts, clearFlag(inner.loop.brk, loop))
		stop = append(stop, inner.loop.brk)
	}
	if hasContinue {
		inner.loop.cont = l.ctx.Namer.NewSymbol("continue_", nil)
	}
	if returns {
		stop = append(stop, jc.ret.flag)
	}

	body, err := l.lowerBlock(loop.Body, inner)
	if err != nil {
		return nil, err
	}
	if hasContinue {
		body = append([]*parser.Node{clearFlag(inner.loop.cont, loop)}, body...)
	}
	orelse, err := l.lowerBlock(loop.Orelse, jc)
	if err != nil {
		return nil, err
	}

	out := loop.ShallowCopy()
	out.Targets = parser.CopyList(loop.Targets)
	out.Iter = loop.Iter.Copy()
	out.Test = loop.Test.Copy()
	out.Body = body
	out.Orelse = orelse
	if len(stop) > 0 {
		if loop.Type == parser.NodeWhile {
			out.Test = parser.NewBoolOp("and", notAll(stop), out.Test)
		} else {
			l.ctx.Annotations.SetExtraTest(out, notAll(stop))
		}
		if len(orelse) > 0 {
			out.Orelse = nil
			stmts = append(stmts, out, parser.NewIf(notAll(stop), orelse, nil))
			return stmts, nil
		}
	}
	return append(stmts, out), nil
}

func (l *jumpLowering) lowerFunction(fn *parser.Node) ([]*parser.Node, error) {
	jc := jumpContext{}
	if returnInControlFlow(fn.Body) {
		jc.ret = &returnFlags{
			flag:  l.ctx.Namer.NewSymbol("do_return", nil),
			value: l.ctx.Namer.NewSymbol("retval_", nil),
		}
	}

	body, err := l.lowerBlock(fn.Body, jc)
	if err != nil {
		return nil, err
	}
	if jc.ret != nil {
		init := []*parser.Node{
			clearFlag(jc.ret.flag, fn),
			parser.NewAssign(parser.NewName(jc.ret.value), parser.NewConstant(nil)),
		}
		body = append(init, body...)
		body = append(body, parser.NewReturn(parser.NewName(jc.ret.value)))
	}

	out := fn.Copy()
	out.Body = body
	return []*parser.Node{out}, nil
}

func setFlag(name string, at *parser.Node) *parser.Node {
	n := parser.NewAssign(parser.NewName(name), parser.NewConstant(true))
	n.Location = at.Location
	return n
}

func clearFlag(name string, at *parser.Node) *parser.Node {
	n := parser.NewAssign(parser.NewName(name), parser.NewConstant(false))
	n.Location = at.Location
	return n
}

// notAll builds "not a and not b ..."
func notAll(flags []string) *parser.Node {
	var expr *parser.Node
	for _, f := range flags {
		term := parser.NewUnaryOp("not", parser.NewName(f))
		if expr == nil {
			expr = term
		} else {
			expr = parser.NewBoolOp("and", expr, term)
		}
	}
	return expr
}

// flagsSetBy lists the flags stmt may set, in break, continue, return order
func flagsSetBy(stmt *parser.Node, jc jumpContext) []string {
	var flags []string
	if jc.loop != nil {
		brk, cont := loopJumps([]*parser.Node{stmt})
		if brk && jc.loop.brk != "" {
			flags = append(flags, jc.loop.brk)
		}
		if cont && jc.loop.cont != "" {
			flags = append(flags, jc.loop.cont)
		}
	}
	if jc.ret != nil && containsReturn([]*parser.Node{stmt}) {
		flags = append(flags, jc.ret.flag)
	}
	return flags
}

// loopJumps reports break and continue statements belonging to the loop
// whose body is stmts. Nested loop bodies are skipped, their else blocks
// are not.
func loopJumps(stmts []*parser.Node) (brk, cont bool) {
	for _, s := range stmts {
		var b, c bool
		switch s.Type {
		case parser.NodeBreak:
			b = true
		case parser.NodeContinue:
			c = true
		case parser.NodeIf:
			b, c = loopJumps(append(append([]*parser.Node(nil), s.Body...), s.Orelse...))
		case parser.NodeWhile, parser.NodeFor:
			b, c = loopJumps(s.Orelse)
		case parser.NodeWith, parser.NodeTry:
			b, c = loopJumps(compoundBlocks(s))
		}
		brk = brk || b
		cont = cont || c
	}
	return brk, cont
}

// containsReturn reports a return statement outside nested scopes
func containsReturn(stmts []*parser.Node) bool {
	for _, s := range stmts {
		switch s.Type {
		case parser.NodeReturn:
			return true
		case parser.NodeFunctionDef, parser.NodeClassDef:
			continue
		case parser.NodeIf, parser.NodeWhile, parser.NodeFor:
			if containsReturn(s.Body) || containsReturn(s.Orelse) {
				return true
			}
		case parser.NodeWith, parser.NodeTry:
			if containsReturn(compoundBlocks(s)) {
				return true
			}
		}
	}
	return false
}

// returnInControlFlow reports a return nested in an if, while or for
// statement of a function body
func returnInControlFlow(stmts []*parser.Node) bool {
	for _, s := range stmts {
		switch s.Type {
		case parser.NodeIf, parser.NodeWhile, parser.NodeFor:
			if containsReturn([]*parser.Node{s}) {
				return true
			}
		case parser.NodeWith, parser.NodeTry:
			if returnInControlFlow(compoundBlocks(s)) {
				return true
			}
		}
	}
	return false
}

// compoundBlocks flattens the statement lists of a with or try statement
func compoundBlocks(s *parser.Node) []*parser.Node {
	var all []*parser.Node
	all = append(all, s.Body...)
	for _, h := range s.Handlers {
		all = append(all, h.Body...)
	}
	all = append(all, s.Orelse...)
	all = append(all, s.Finalbody...)
	return all
}

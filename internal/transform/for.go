package transform

import (
	"github.com/ludo-technologies/pystage/internal/parser"
)

// visitFor rewrites
//
//	for target in iter:
//	    body
//
// into
//
//	def loop_body(itr, x_1):
//	    target = itr
//	    body
//	    return (x_1,)
//	(x,) = ag__.for_stmt(iter, None, loop_body, (x,))
//
// When the loop carries an early-stopping test, an extra_test closure over
// the loop state is passed in place of None.
func (t *ControlFlowTransformer) visitFor(node *parser.Node) ([]*parser.Node, error) {
	info, err := t.info(node)
	if err != nil {
		return nil, err
	}
	if err := checkConvertible(node); err != nil {
		return nil, err
	}
	state, err := ResolveLoopState(node, info)
	if err != nil {
		return nil, err
	}

	extra := t.ctx.Annotations.ExtraTest(node)
	if extra != nil && state.Symbols.Len() == 0 {
		return nil, preconditionf(node, "early-stopping for loop has no loop state")
	}

	body, err := t.visitBlock(node.Body)
	if err != nil {
		return nil, err
	}
	orelse, err := t.visitBlock(node.Orelse)
	if err != nil {
		return nil, err
	}

	sc := t.stateConstructs(state)
	bodyName := t.ctx.Namer.NewSymbol("loop_body", state.Reserved)
	itrName := t.ctx.Namer.NewSymbol("itr", state.Reserved)

	bodyStmts := append([]*parser.Node{parser.NewAssign(node.Targets[0].Copy(), parser.NewName(itrName))}, body...)
	bodyStmts = renameSymbols(bodyStmts, sc.renames)
	bodyStmts = append(bodyStmts, parser.NewReturn(sc.paramTuple()))

	stmts := t.undefinedGuards(state.PossiblyUndefined)
	stmts = append(stmts, parser.NewFunctionDef(bodyName, append([]string{itrName}, sc.params...), bodyStmts))

	extraArg := parser.NewConstant(nil)
	if extra != nil {
		extraName := t.ctx.Namer.NewSymbol("extra_test", state.Reserved)
		stmts = append(stmts, parser.NewFunctionDef(extraName, sc.params,
			[]*parser.Node{parser.NewReturn(renameExpr(extra, sc.renames))}))
		extraArg = parser.NewName(extraName)
	}

	call := parser.NewCall(t.ctx.primitive(PrimitiveFor),
		node.Iter.Copy(), extraArg, parser.NewName(bodyName), sc.tuple())
	if sc.empty() {
		stmts = append(stmts, parser.NewExprStmt(call))
	} else {
		stmts = append(stmts, parser.NewAssign(sc.tuple(), call))
	}
	stmts = append(stmts, orelse...)

	t.record(ConstructReport{
		Kind:      ConstructFor,
		Line:      line(node),
		State:     state.Symbols.Keys(),
		Undefined: state.PossiblyUndefined.Keys(),
		EarlyStop: extra != nil,
	})
	return locate(stmts, node.Location), nil
}

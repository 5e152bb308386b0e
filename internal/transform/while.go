package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// visitWhile rewrites
//
//	while test:
//	    body
//
// into
//
//	def loop_test(x_1):
//	    return test
//	def loop_body(x_1):
//	    body
//	    return (x_1,)
//	(x,) = ag__.while_stmt(loop_test, loop_body, (x,), (deps,))
//
// The test is never evaluated outside loop_test.
func (t *ControlFlowTransformer) visitWhile(node *parser.Node) ([]*parser.Node, error) {
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

	body, err := t.visitBlock(node.Body)
	if err != nil {
		return nil, err
	}
	orelse, err := t.visitBlock(node.Orelse)
	if err != nil {
		return nil, err
	}

	deps := analyzer.NewSymbolSet()
	for _, s := range info.CondScope.Read.Symbols() {
		deps.AddAll(s.SupportSet())
	}

	sc := t.stateConstructs(state)
	testName := t.ctx.Namer.NewSymbol("loop_test", state.Reserved)
	bodyName := t.ctx.Namer.NewSymbol("loop_body", state.Reserved)

	test := renameExpr(node.Test, sc.renames)
	bodyStmts := renameSymbols(body, sc.renames)
	bodyStmts = append(bodyStmts, parser.NewReturn(sc.paramTuple()))

	depNodes := make([]*parser.Node, 0, deps.Len())
	for _, s := range deps.Symbols() {
		depNodes = append(depNodes, s.ToNode())
	}
	call := parser.NewCall(t.ctx.primitive(PrimitiveWhile),
		parser.NewName(testName), parser.NewName(bodyName), sc.tuple(), parser.NewTuple(depNodes...))

	stmts := t.undefinedGuards(state.PossiblyUndefined)
	stmts = append(stmts,
		parser.NewFunctionDef(testName, sc.params, []*parser.Node{parser.NewReturn(test)}),
		parser.NewFunctionDef(bodyName, sc.params, bodyStmts),
	)
	if sc.empty() {
		stmts = append(stmts, parser.NewExprStmt(call))
	} else {
		stmts = append(stmts, parser.NewAssign(sc.tuple(), call))
	}
	stmts = append(stmts, orelse...)

	t.record(ConstructReport{
		Kind:      ConstructWhile,
		Line:      line(node),
		State:     state.Symbols.Keys(),
		Undefined: state.PossiblyUndefined.Keys(),
	})
	return locate(stmts, node.Location), nil
}

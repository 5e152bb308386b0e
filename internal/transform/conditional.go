package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// visitIf rewrites
//
//	if test:
//	    body
//	else:
//	    orelse
//
// into
//
//	cond = test
//	def if_true():
//	    body
//	    return x
//	def if_false():
//	    orelse
//	    return x
//	x = ag__.if_stmt(cond, if_true, if_false)
func (t *ControlFlowTransformer) visitIf(node *parser.Node) ([]*parser.Node, error) {
	info, err := t.info(node)
	if err != nil {
		return nil, err
	}
	if err := checkConvertible(node); err != nil {
		return nil, err
	}

	bodyAliased, err := ResolveAliases(info.BodyScope, info.DefinedIn, node.Body, t.ctx.Annotations)
	if err != nil {
		return nil, err
	}
	orelseAliased, err := ResolveAliases(info.OrelseScope, info.DefinedIn, node.Orelse, t.ctx.Annotations)
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

	returned := returnedFromCond(info)
	createdInBody := info.BodyScope.Modified.Intersect(returned).Difference(info.DefinedIn)
	createdInOrelse := info.OrelseScope.Modified.Intersect(returned).Difference(info.DefinedIn)
	undefined := possiblyUndefined(createdInBody, createdInOrelse)

	bodyAlias := t.aliasNames(bodyAliased, info.BodyScope.Referenced())
	orelseAlias := t.aliasNames(orelseAliased, info.OrelseScope.Referenced())

	condName := t.ctx.Namer.NewSymbol("cond", info.BodyScope.Referenced())
	trueName := t.ctx.Namer.NewSymbol("if_true", info.BodyScope.Referenced())
	falseName := t.ctx.Namer.NewSymbol("if_false", info.OrelseScope.Referenced())

	var ret *parser.Node
	if returned.Len() == 0 {
		ret = parser.NewName(condName)
	} else {
		ret = returnValue(returned.Symbols())
	}

	stmts := t.undefinedGuards(undefined)
	stmts = append(stmts,
		parser.NewAssign(parser.NewName(condName), node.Test.Copy()),
		branchFunction(trueName, body, bodyAlias, ret),
		branchFunction(falseName, orelse, orelseAlias, ret),
	)

	call := parser.NewCall(t.ctx.primitive(PrimitiveIf),
		parser.NewName(condName), parser.NewName(trueName), parser.NewName(falseName))
	if returned.Len() == 0 {
		stmts = append(stmts, parser.NewExprStmt(call))
	} else {
		stmts = append(stmts, parser.NewAssign(returnValue(returned.Symbols()), call))
	}

	t.record(ConstructReport{
		Kind:      ConstructIf,
		Line:      line(node),
		State:     returned.Keys(),
		Undefined: undefined.Keys(),
		Aliased:   bodyAliased.Union(orelseAliased).Keys(),
	})
	return locate(stmts, node.Location), nil
}

// returnedFromCond selects the symbols modified in either branch that are
// live after the statement, directly or through a live owner
func returnedFromCond(info *analyzer.NodeInfo) *analyzer.SymbolSet {
	modified := info.BodyScope.Modified.Union(info.OrelseScope.Modified)
	return modified.Filter(func(s *analyzer.Symbol) bool {
		if info.LiveOut.Has(s) {
			return true
		}
		return s.IsComposite() && s.OwnerSet().Any(info.LiveOut.Has)
	})
}

// possiblyUndefined returns the simple symbols created in exactly one branch
func possiblyUndefined(inBody, inOrelse *analyzer.SymbolSet) *analyzer.SymbolSet {
	diff := inBody.Difference(inOrelse).Union(inOrelse.Difference(inBody))
	return diff.Filter((*analyzer.Symbol).IsSimple)
}

// branchFunction builds one branch closure. The aliases rebind captured
// names to locals so the branch can assign them.
func branchFunction(name string, body []*parser.Node, alias *aliasing, ret *parser.Node) *parser.Node {
	var stmts []*parser.Node
	if binding := alias.binding(); binding != nil {
		stmts = append(stmts, binding)
	}
	stmts = append(stmts, renameSymbols(body, alias.renames)...)
	stmts = append(stmts, parser.NewReturn(renameExpr(ret, alias.renames)))
	return parser.NewFunctionDef(name, nil, stmts)
}

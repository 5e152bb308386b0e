package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// ResolveAliases returns the symbols a branch closure must rebind under a
// fresh name: modified by the branch, defined before the conditional and
// live at the branch's first statement. A composite counts as live there
// when one of its owners is.
func ResolveAliases(scope *analyzer.Scope, definedIn *analyzer.SymbolSet, block []*parser.Node, annos *analyzer.Annotations) (*analyzer.SymbolSet, error) {
	blockLiveIn := analyzer.NewSymbolSet()
	if len(block) > 0 {
		info, ok := annos.Get(block[0])
		if !ok || info.LiveIn == nil {
			return nil, preconditionf(block[0], "branch statement is missing liveness annotations")
		}
		blockLiveIn = info.LiveIn.Clone()
	}

	for _, s := range scope.Modified.Symbols() {
		if s.IsComposite() && s.OwnerSet().Any(blockLiveIn.Has) {
			blockLiveIn.Add(s)
		}
	}
	return scope.Modified.Intersect(definedIn).Intersect(blockLiveIn), nil
}

// aliasing holds the renames applied inside one branch closure
type aliasing struct {
	symbols []*analyzer.Symbol
	names   []string
	renames map[string]string
}

func (t *ControlFlowTransformer) aliasNames(aliased *analyzer.SymbolSet, reserved *analyzer.SymbolSet) *aliasing {
	a := &aliasing{renames: make(map[string]string)}
	for _, s := range aliased.Symbols() {
		name := t.ctx.Namer.NewSymbol(s.SSF(), reserved)
		a.symbols = append(a.symbols, s)
		a.names = append(a.names, name)
		a.renames[s.Key()] = name
	}
	return a
}

// binding returns "(new,) = (orig,)", or nil when nothing is aliased
func (a *aliasing) binding() *parser.Node {
	if len(a.symbols) == 0 {
		return nil
	}
	orig := make([]*parser.Node, len(a.symbols))
	for i, s := range a.symbols {
		orig[i] = s.ToNode()
	}
	return parser.NewAssign(parser.NewNameTuple(a.names), parser.NewTuple(orig...))
}

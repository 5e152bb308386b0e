package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// LoopState is the result of resolving the loop-carried state of a loop
type LoopState struct {
	// Symbols are threaded through the loop body, in body modification order
	Symbols *analyzer.SymbolSet
	// Reserved are the names the loop body refers to
	Reserved *analyzer.SymbolSet
	// PossiblyUndefined are the simple state symbols with no definition
	// reaching the loop
	PossiblyUndefined *analyzer.SymbolSet
}

// ResolveLoopState selects the symbols a loop must carry as explicit state.
// A symbol is carried when the body (or a for loop's target) modifies it and
// it is live on entry or exit; composites are carried only when every symbol supporting them is
// live on entry, since an object created inside the loop has nothing to
// carry in.
func ResolveLoopState(loop *parser.Node, info *analyzer.NodeInfo) (*LoopState, error) {
	if info == nil || info.BodyScope == nil || info.DefinedIn == nil || info.LiveIn == nil || info.LiveOut == nil {
		return nil, preconditionf(loop, "%s loop is missing scope or liveness annotations", loop.Type)
	}

	modified := info.BodyScope.Modified
	reserved := info.BodyScope.Referenced()
	if info.IterateScope != nil {
		modified = modified.Union(info.IterateScope.Modified)
		reserved.AddAll(info.IterateScope.Modified)
	}

	state := modified.Filter(func(s *analyzer.Symbol) bool {
		if !info.LiveIn.Has(s) && !info.LiveOut.Has(s) {
			return false
		}
		if s.IsComposite() {
			for _, p := range s.SupportSet().Symbols() {
				if !info.LiveIn.Has(p) {
					return false
				}
			}
		}
		return true
	})

	undefined := state.Difference(info.DefinedIn).Filter((*analyzer.Symbol).IsSimple)

	return &LoopState{
		Symbols:           state,
		Reserved:          reserved,
		PossiblyUndefined: undefined,
	}, nil
}

// stateConstructs are the pieces shared by the loop rewriters
type stateConstructs struct {
	symbols []*analyzer.Symbol
	// params are the closure parameter names, one per state symbol
	params []string
	// renames maps symbol keys to parameter names where they differ
	renames map[string]string
}

func (t *ControlFlowTransformer) stateConstructs(state *LoopState) *stateConstructs {
	sc := &stateConstructs{
		symbols: state.Symbols.Symbols(),
		renames: make(map[string]string),
	}
	for _, s := range sc.symbols {
		name := t.ctx.Namer.NewSymbol(s.SSF(), state.Reserved)
		sc.params = append(sc.params, name)
		if name != s.Key() {
			sc.renames[s.Key()] = name
		}
	}
	return sc
}

// tuple returns the state as a tuple of the original access paths
func (sc *stateConstructs) tuple() *parser.Node {
	elts := make([]*parser.Node, len(sc.symbols))
	for i, s := range sc.symbols {
		elts[i] = s.ToNode()
	}
	return parser.NewTuple(elts...)
}

// paramTuple returns the state as a tuple of parameter names
func (sc *stateConstructs) paramTuple() *parser.Node {
	return parser.NewNameTuple(sc.params)
}

func (sc *stateConstructs) empty() bool {
	return len(sc.symbols) == 0
}

package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// undefinedGuards binds each symbol to the runtime's undefined marker:
// x = ag__.Undefined('x')
func (t *ControlFlowTransformer) undefinedGuards(symbols *analyzer.SymbolSet) []*parser.Node {
	var guards []*parser.Node
	for _, s := range symbols.Symbols() {
		call := parser.NewCall(t.ctx.primitive(PrimitiveUndefined), parser.NewConstant(s.SSF()))
		guards = append(guards, parser.NewAssign(s.ToNode(), call))
	}
	t.stats.UndefinedGuards += len(guards)
	return guards
}

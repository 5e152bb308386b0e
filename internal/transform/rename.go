package transform

import (
	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// renameSymbols returns a copy of nodes in which every access path whose
// symbol key appears in mapping is replaced by the mapped name. Parameters
// and definitions binding a mapped simple name are renamed as well. The
// input is never modified.
func renameSymbols(nodes []*parser.Node, mapping map[string]string) []*parser.Node {
	if len(mapping) == 0 {
		return parser.CopyList(nodes)
	}
	return parser.RewriteList(nodes, renamer(mapping))
}

// renameExpr is renameSymbols for a single node
func renameExpr(node *parser.Node, mapping map[string]string) *parser.Node {
	if len(mapping) == 0 {
		return node.Copy()
	}
	return parser.Rewrite(node, renamer(mapping))
}

func renamer(mapping map[string]string) func(*parser.Node) *parser.Node {
	var rewrite func(n *parser.Node) *parser.Node
	rewrite = func(n *parser.Node) *parser.Node {
		switch n.Type {
		case parser.NodeName, parser.NodeAttribute, parser.NodeSubscript:
			sym := analyzer.SymbolOf(n)
			if sym == nil {
				return nil
			}
			if name, ok := mapping[sym.Key()]; ok {
				repl := parser.NewName(name)
				repl.Location = n.Location
				return repl
			}
		case parser.NodeArg, parser.NodeFunctionDef, parser.NodeClassDef, parser.NodeExceptHandler:
			if name, ok := mapping[n.Name]; ok && n.Name != "" {
				out := parser.Rewrite(n, skipSelf(n, rewrite))
				out.Name = name
				return out
			}
		}
		return nil
	}
	return rewrite
}

// skipSelf wraps fn so that it leaves root itself alone
func skipSelf(root *parser.Node, fn func(*parser.Node) *parser.Node) func(*parser.Node) *parser.Node {
	return func(n *parser.Node) *parser.Node {
		if n == root {
			return nil
		}
		return fn(n)
	}
}

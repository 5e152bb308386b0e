package parser

// Identifiers returns every identifier spelled anywhere in the tree: names,
// parameters, function and class names, attribute names and import aliases.
func Identifiers(root *Node) map[string]bool {
	ids := make(map[string]bool)
	root.Walk(func(n *Node) bool {
		switch n.Type {
		case NodeName, NodeArg, NodeFunctionDef, NodeClassDef, NodeAttribute, NodeKeyword, NodeExceptHandler:
			if n.Name != "" {
				ids[n.Name] = true
			}
		case NodeAlias:
			if as, ok := n.Value.(string); ok && as != "" {
				ids[as] = true
			}
			ids[n.Name] = true
		case NodeGlobal, NodeNonlocal:
			for _, name := range n.Names {
				ids[name] = true
			}
		}
		return true
	})
	return ids
}

// Rewrite returns a copy of the tree in which every node for which fn
// returns a replacement is substituted. Replacements are not visited again;
// nodes fn leaves alone are copied and their children rewritten. The input
// tree is never modified.
func Rewrite(n *Node, fn func(*Node) *Node) *Node {
	if n == nil {
		return nil
	}
	if repl := fn(n); repl != nil {
		return repl
	}

	out := *n
	if v := n.ValueNode(); v != nil {
		out.Value = Rewrite(v, fn)
	}
	out.Children = rewriteList(n.Children, fn)
	out.Targets = rewriteList(n.Targets, fn)
	out.Body = rewriteList(n.Body, fn)
	out.Orelse = rewriteList(n.Orelse, fn)
	out.Finalbody = rewriteList(n.Finalbody, fn)
	out.Handlers = rewriteList(n.Handlers, fn)
	out.Args = rewriteList(n.Args, fn)
	out.Keywords = rewriteList(n.Keywords, fn)
	out.Decorator = rewriteList(n.Decorator, fn)
	out.Bases = rewriteList(n.Bases, fn)
	out.Test = Rewrite(n.Test, fn)
	out.Iter = Rewrite(n.Iter, fn)
	out.Left = Rewrite(n.Left, fn)
	out.Right = Rewrite(n.Right, fn)
	if n.Names != nil {
		out.Names = append([]string(nil), n.Names...)
	}
	return &out
}

// RewriteList applies Rewrite to each node of a list
func RewriteList(nodes []*Node, fn func(*Node) *Node) []*Node {
	return rewriteList(nodes, fn)
}

func rewriteList(nodes []*Node, fn func(*Node) *Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, node := range nodes {
		out[i] = Rewrite(node, fn)
	}
	return out
}

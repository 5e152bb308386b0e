package interp

import (
	"github.com/ludo-technologies/pystage/internal/parser"
)

// bindings classifies the names of a function body
type bindings struct {
	locals    map[string]bool
	globals   map[string]bool
	nonlocals map[string]bool
}

// bindingsOf collects the names a function body binds. Nested function,
// class and lambda bodies are not part of it; comprehension variables
// belong to the comprehension.
func bindingsOf(params []*parser.Node, body []*parser.Node) *bindings {
	b := &bindings{
		locals:    make(map[string]bool),
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
	for _, p := range params {
		if p.Name != "" {
			b.locals[p.Name] = true
		}
	}
	for _, stmt := range body {
		b.statement(stmt)
	}
	for name := range b.globals {
		delete(b.locals, name)
	}
	for name := range b.nonlocals {
		delete(b.locals, name)
	}
	return b
}

func (b *bindings) statement(n *parser.Node) {
	switch n.Type {
	case parser.NodeFunctionDef, parser.NodeClassDef:
		b.locals[n.Name] = true
		for _, d := range n.Decorator {
			b.expr(d)
		}
		return
	case parser.NodeGlobal:
		for _, name := range n.Names {
			b.globals[name] = true
		}
		return
	case parser.NodeNonlocal:
		for _, name := range n.Names {
			b.nonlocals[name] = true
		}
		return
	case parser.NodeImport, parser.NodeImportFrom:
		for _, alias := range n.Children {
			if as, ok := alias.Value.(string); ok && as != "" {
				b.locals[as] = true
			} else if alias.Name != "*" {
				b.locals[alias.Name] = true
			}
		}
		return
	case parser.NodeExceptHandler:
		if n.Name != "" {
			b.locals[n.Name] = true
		}
	}

	for _, t := range n.Targets {
		b.target(t)
	}
	if n.Type == parser.NodeWith {
		for _, item := range n.Children {
			for _, t := range item.Targets {
				b.target(t)
			}
		}
	}
	for _, list := range [][]*parser.Node{n.Body, n.Orelse, n.Finalbody, n.Handlers} {
		for _, s := range list {
			b.statement(s)
		}
	}
	for _, e := range []*parser.Node{n.ValueNode(), n.Test, n.Iter} {
		b.expr(e)
	}
}

func (b *bindings) target(t *parser.Node) {
	switch t.Type {
	case parser.NodeName:
		b.locals[t.Name] = true
	case parser.NodeTuple, parser.NodeList:
		for _, c := range t.Children {
			b.target(c)
		}
	case parser.NodeStarred:
		b.target(t.ValueNode())
	}
}

// expr finds walrus targets
func (b *bindings) expr(e *parser.Node) {
	e.Walk(func(n *parser.Node) bool {
		switch n.Type {
		case parser.NodeLambda, parser.NodeListComp, parser.NodeSetComp, parser.NodeDictComp, parser.NodeGeneratorExp:
			return false
		case parser.NodeNamedExpr:
			b.target(n.Targets[0])
		}
		return true
	})
}

// scope is one activation: the module, a function call or a comprehension
type scope struct {
	vars    map[string]Value
	binding *bindings
	// parent is the lexically enclosing function scope, nil for the module
	// and for functions defined at module level
	parent *scope
	module *scope
}

func newModuleScope() *scope {
	s := &scope{vars: make(map[string]Value)}
	s.module = s
	return s
}

func (s *scope) isModule() bool {
	return s.binding == nil
}

// child creates the activation of a function defined in s
func (s *scope) child(b *bindings) *scope {
	c := &scope{vars: make(map[string]Value), binding: b, module: s.module}
	if !s.isModule() {
		c.parent = s
	}
	return c
}

func (s *scope) lookup(in *Interpreter, name string) (Value, error) {
	if !s.isModule() {
		if s.binding.globals[name] {
			return s.module.lookup(in, name)
		}
		if s.binding.locals[name] {
			if v, ok := s.vars[name]; ok {
				return v, nil
			}
			return nil, raise("UnboundLocalError", "local variable '%s' referenced before assignment", name)
		}
		for p := s.parent; p != nil; p = p.parent {
			if p.binding.locals[name] {
				if v, ok := p.vars[name]; ok {
					return v, nil
				}
				return nil, raise("NameError", "free variable '%s' referenced before assignment", name)
			}
			if p.binding.globals[name] {
				break
			}
		}
	}
	if v, ok := s.module.vars[name]; ok {
		return v, nil
	}
	if v, ok := in.builtins[name]; ok {
		return v, nil
	}
	return nil, raise("NameError", "name '%s' is not defined", name)
}

func (s *scope) assign(name string, v Value) {
	s.owner(name).vars[name] = v
}

func (s *scope) delete(name string) error {
	owner := s.owner(name)
	if _, ok := owner.vars[name]; !ok {
		return raise("NameError", "name '%s' is not defined", name)
	}
	delete(owner.vars, name)
	return nil
}

// owner returns the scope an assignment to name writes to
func (s *scope) owner(name string) *scope {
	if s.isModule() || s.binding.globals[name] {
		return s.module
	}
	if s.binding.nonlocals[name] {
		for p := s.parent; p != nil; p = p.parent {
			if p.binding.locals[name] {
				return p
			}
		}
		return s.module
	}
	return s
}

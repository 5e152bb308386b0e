// Package interp evaluates a small subset of Python. It implements the
// control flow runtime primitives natively so converted modules can be run
// side by side with their originals.
package interp

import (
	"context"
	"fmt"
	"strings"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// DefaultMaxSteps bounds the statements one run may execute
const DefaultMaxSteps = 100000

// Interpreter evaluates modules. It is not safe for concurrent use; create
// one per run.
type Interpreter struct {
	runtimeModule string
	maxSteps      int
	steps         int
	ctx           context.Context
	builtins      map[string]Value
	out           strings.Builder
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithRuntimeModule sets the name the runtime primitives are reachable under
func WithRuntimeModule(name string) Option {
	return func(in *Interpreter) {
		in.runtimeModule = name
	}
}

// WithMaxSteps sets the statement budget
func WithMaxSteps(n int) Option {
	return func(in *Interpreter) {
		in.maxSteps = n
	}
}

// New creates an interpreter
func New(opts ...Option) *Interpreter {
	in := &Interpreter{runtimeModule: "ag__", maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(in)
	}
	in.builtins = builtins()
	in.builtins[in.runtimeModule] = runtimeModule()
	return in
}

// Env is the outcome of a run: the module namespace and printed output
type Env struct {
	Globals map[string]Value
	Output  string
}

// Lookup returns a module-level binding. Names bound to the undefined
// sentinel read as unbound.
func (e *Env) Lookup(name string) (Value, bool) {
	v, ok := e.Globals[name]
	if _, undef := v.(*Undefined); undef {
		return nil, false
	}
	return v, ok
}

// Run evaluates module with a default interpreter
func Run(ctx context.Context, module *parser.Node) (*Env, error) {
	return New().Run(ctx, module)
}

// Run evaluates module and returns its namespace. A run that raises
// returns the error and no environment.
func (in *Interpreter) Run(ctx context.Context, module *parser.Node) (*Env, error) {
	if module == nil || module.Type != parser.NodeModule {
		return nil, fmt.Errorf("interp: module node required")
	}
	in.ctx = ctx
	in.steps = 0
	in.out.Reset()

	global := newModuleScope()
	if _, err := in.execBlock(module.Body, global); err != nil {
		return nil, err
	}
	return &Env{Globals: global.vars, Output: in.out.String()}, nil
}

// flow is the way a statement completed
type flow int

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// returnSignal carries a return value out of nested blocks
type returnSignal struct {
	value Value
}

func (in *Interpreter) step(n *parser.Node) error {
	in.steps++
	if in.maxSteps > 0 && in.steps > in.maxSteps {
		return fmt.Errorf("%w: line %d", ErrStepLimit, n.Location.StartLine)
	}
	if in.steps%1024 == 0 && in.ctx != nil {
		return in.ctx.Err()
	}
	return nil
}

func (in *Interpreter) execBlock(stmts []*parser.Node, s *scope) (*returnSignal, error) {
	ret, _, err := in.execStatements(stmts, s)
	return ret, err
}

// execStatements runs stmts until one of them breaks, continues or returns
func (in *Interpreter) execStatements(stmts []*parser.Node, s *scope) (*returnSignal, flow, error) {
	for _, stmt := range stmts {
		ret, f, err := in.exec(stmt, s)
		if err != nil {
			if exc, ok := err.(*Exception); ok && exc.Line == 0 {
				exc.Line = stmt.Location.StartLine
			}
			return nil, flowNext, err
		}
		if f != flowNext {
			return ret, f, nil
		}
	}
	return nil, flowNext, nil
}

func (in *Interpreter) exec(n *parser.Node, s *scope) (*returnSignal, flow, error) {
	if err := in.step(n); err != nil {
		return nil, flowNext, err
	}

	switch n.Type {
	case parser.NodeExpr:
		_, err := in.eval(n.ValueNode(), s)
		return nil, flowNext, err
	case parser.NodeAssign:
		v, err := in.eval(n.ValueNode(), s)
		if err != nil {
			return nil, flowNext, err
		}
		for _, t := range n.Targets {
			if err := in.store(t, v, s); err != nil {
				return nil, flowNext, err
			}
		}
		return nil, flowNext, nil
	case parser.NodeAugAssign:
		return nil, flowNext, in.augAssign(n, s)
	case parser.NodeAnnAssign:
		if v := n.ValueNode(); v != nil {
			val, err := in.eval(v, s)
			if err != nil {
				return nil, flowNext, err
			}
			return nil, flowNext, in.store(n.Targets[0], val, s)
		}
		return nil, flowNext, nil
	case parser.NodeDelete:
		for _, t := range n.Targets {
			if t.Type != parser.NodeName {
				return nil, flowNext, unsupported("del of " + string(t.Type))
			}
			if err := s.delete(t.Name); err != nil {
				return nil, flowNext, err
			}
		}
		return nil, flowNext, nil
	case parser.NodePass, parser.NodeGlobal, parser.NodeNonlocal:
		return nil, flowNext, nil
	case parser.NodeBreak:
		return nil, flowBreak, nil
	case parser.NodeContinue:
		return nil, flowContinue, nil
	case parser.NodeReturn:
		var v Value
		if e := n.ValueNode(); e != nil {
			var err error
			if v, err = in.eval(e, s); err != nil {
				return nil, flowNext, err
			}
		}
		return &returnSignal{value: v}, flowReturn, nil
	case parser.NodeIf:
		c, err := in.test(n.Test, s)
		if err != nil {
			return nil, flowNext, err
		}
		if c {
			return in.execStatements(n.Body, s)
		}
		return in.execStatements(n.Orelse, s)
	case parser.NodeWhile:
		return in.execWhile(n, s)
	case parser.NodeFor:
		return in.execFor(n, s)
	case parser.NodeFunctionDef:
		fn, err := in.makeFunction(n.Name, n.Args, n.Body, nil, s)
		if err != nil {
			return nil, flowNext, err
		}
		var v Value = fn
		for i := len(n.Decorator) - 1; i >= 0; i-- {
			dec, err := in.eval(n.Decorator[i], s)
			if err != nil {
				return nil, flowNext, err
			}
			if v, err = in.call(dec, []Value{v}, nil); err != nil {
				return nil, flowNext, err
			}
		}
		s.assign(n.Name, v)
		return nil, flowNext, nil
	case parser.NodeAssert:
		ok, err := in.test(n.Test, s)
		if err != nil {
			return nil, flowNext, err
		}
		if !ok {
			return nil, flowNext, raise("AssertionError", "assertion failed")
		}
		return nil, flowNext, nil
	case parser.NodeRaise:
		return nil, flowNext, in.raiseStmt(n, s)
	case parser.NodeTry:
		return in.execTry(n, s)
	}
	return nil, flowNext, unsupported(n.Type)
}

func (in *Interpreter) execWhile(n *parser.Node, s *scope) (*returnSignal, flow, error) {
	for {
		c, err := in.test(n.Test, s)
		if err != nil {
			return nil, flowNext, err
		}
		if !c {
			return in.execStatements(n.Orelse, s)
		}
		ret, f, err := in.execStatements(n.Body, s)
		if err != nil || f == flowReturn {
			return ret, f, err
		}
		if f == flowBreak {
			return nil, flowNext, nil
		}
		if err := in.step(n); err != nil {
			return nil, flowNext, err
		}
	}
}

func (in *Interpreter) execFor(n *parser.Node, s *scope) (*returnSignal, flow, error) {
	iterable, err := in.eval(n.Iter, s)
	if err != nil {
		return nil, flowNext, err
	}
	items, err := iterate(iterable)
	if err != nil {
		return nil, flowNext, err
	}
	for _, item := range items {
		if err := in.store(n.Targets[0], item, s); err != nil {
			return nil, flowNext, err
		}
		ret, f, err := in.execStatements(n.Body, s)
		if err != nil || f == flowReturn {
			return ret, f, err
		}
		if f == flowBreak {
			return nil, flowNext, nil
		}
		if err := in.step(n); err != nil {
			return nil, flowNext, err
		}
	}
	return in.execStatements(n.Orelse, s)
}

func (in *Interpreter) execTry(n *parser.Node, s *scope) (*returnSignal, flow, error) {
	ret, f, err := in.execStatements(n.Body, s)
	if exc, ok := err.(*Exception); ok {
		handled := false
		for _, h := range n.Handlers {
			match, merr := in.handles(h, exc, s)
			if merr != nil {
				return nil, flowNext, merr
			}
			if !match {
				continue
			}
			if h.Name != "" {
				s.assign(h.Name, exceptionValue(exc))
			}
			ret, f, err = in.execStatements(h.Body, s)
			handled = true
			break
		}
		if !handled {
			ret, f = nil, flowNext
		}
	} else if err == nil && f == flowNext {
		ret, f, err = in.execStatements(n.Orelse, s)
	}

	if len(n.Finalbody) > 0 {
		fret, ff, ferr := in.execStatements(n.Finalbody, s)
		if ferr != nil || ff != flowNext {
			return fret, ff, ferr
		}
	}
	return ret, f, err
}

func (in *Interpreter) handles(h *parser.Node, exc *Exception, s *scope) (bool, error) {
	typ := h.ValueNode()
	if typ == nil {
		return true, nil
	}
	var names []string
	if typ.Type == parser.NodeTuple {
		for _, c := range typ.Children {
			names = append(names, c.Name)
		}
	} else {
		names = append(names, typ.Name)
	}
	for _, name := range names {
		if name == "Exception" || name == "BaseException" || name == exc.Kind {
			return true, nil
		}
	}
	return false, nil
}

func (in *Interpreter) raiseStmt(n *parser.Node, s *scope) error {
	e := n.ValueNode()
	if e == nil {
		return raise("RuntimeError", "No active exception to reraise")
	}
	v, err := in.eval(e, s)
	if err != nil {
		return err
	}
	if obj, ok := v.(*Object); ok {
		if kind, ok := obj.Attrs["__kind__"].(string); ok {
			msg, _ := obj.Attrs["message"].(string)
			return raise(kind, "%s", msg)
		}
	}
	if b, ok := v.(*Builtin); ok {
		return raise(b.Name, "")
	}
	return raise("TypeError", "exceptions must derive from BaseException")
}

func exceptionValue(exc *Exception) Value {
	return &Object{Attrs: map[string]Value{"__kind__": exc.Kind, "message": exc.Msg}}
}

func (in *Interpreter) test(e *parser.Node, s *scope) (bool, error) {
	v, err := in.eval(e, s)
	if err != nil {
		return false, err
	}
	return Truthy(v)
}

func (in *Interpreter) augAssign(n *parser.Node, s *scope) error {
	target := n.Targets[0]
	cur, err := in.eval(target, s)
	if err != nil {
		return err
	}
	rhs, err := in.eval(n.ValueNode(), s)
	if err != nil {
		return err
	}
	v, err := binaryOp(n.Op, cur, rhs)
	if err != nil {
		return err
	}
	return in.store(target, v, s)
}

// store binds v to an assignment target
func (in *Interpreter) store(t *parser.Node, v Value, s *scope) error {
	switch t.Type {
	case parser.NodeName:
		s.assign(t.Name, v)
		return nil
	case parser.NodeTuple, parser.NodeList:
		return in.unpack(t.Children, v, s)
	case parser.NodeAttribute:
		obj, err := in.eval(t.ValueNode(), s)
		if err != nil {
			return err
		}
		o, ok := obj.(*Object)
		if !ok {
			return raise("AttributeError", "'%s' object attribute '%s' is read-only", TypeName(obj), t.Name)
		}
		o.Attrs[t.Name] = v
		return nil
	case parser.NodeSubscript:
		obj, err := in.eval(t.ValueNode(), s)
		if err != nil {
			return err
		}
		key, err := in.eval(t.Children[0], s)
		if err != nil {
			return err
		}
		return setItem(obj, key, v)
	}
	return unsupported("assignment to " + string(t.Type))
}

func (in *Interpreter) unpack(targets []*parser.Node, v Value, s *scope) error {
	items, err := iterate(v)
	if err != nil {
		return err
	}
	star := -1
	for i, t := range targets {
		if t.Type == parser.NodeStarred {
			star = i
		}
	}
	if star < 0 {
		if len(items) != len(targets) {
			return raise("ValueError", "expected %d values to unpack, got %d", len(targets), len(items))
		}
		for i, t := range targets {
			if err := in.store(t, items[i], s); err != nil {
				return err
			}
		}
		return nil
	}

	after := len(targets) - star - 1
	if len(items) < star+after {
		return raise("ValueError", "not enough values to unpack")
	}
	for i := 0; i < star; i++ {
		if err := in.store(targets[i], items[i], s); err != nil {
			return err
		}
	}
	rest := append([]Value(nil), items[star:len(items)-after]...)
	if err := in.store(targets[star].ValueNode(), &List{Items: rest}, s); err != nil {
		return err
	}
	for i := 0; i < after; i++ {
		if err := in.store(targets[star+1+i], items[len(items)-after+i], s); err != nil {
			return err
		}
	}
	return nil
}

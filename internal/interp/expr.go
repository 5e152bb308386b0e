package interp

import (
	"math"
	"strings"

	"github.com/ludo-technologies/pystage/internal/parser"
)

func (in *Interpreter) eval(n *parser.Node, s *scope) (Value, error) {
	switch n.Type {
	case parser.NodeName:
		return s.lookup(in, n.Name)
	case parser.NodeConstant:
		switch v := n.Value.(type) {
		case int:
			return int64(v), nil
		case nil, bool, int64, float64, string:
			return v, nil
		}
		return nil, unsupported("constant " + n.Raw)
	case parser.NodeTuple:
		items, err := in.evalElements(n.Children, s)
		return Tuple(items), err
	case parser.NodeList:
		items, err := in.evalElements(n.Children, s)
		if err != nil {
			return nil, err
		}
		return &List{Items: items}, nil
	case parser.NodeDict:
		return in.evalDict(n, s)
	case parser.NodeBinOp:
		l, err := in.eval(n.Left, s)
		if err != nil {
			return nil, err
		}
		r, err := in.eval(n.Right, s)
		if err != nil {
			return nil, err
		}
		return binaryOp(n.Op, l, r)
	case parser.NodeUnaryOp:
		v, err := in.eval(n.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		return unaryOp(n.Op, v)
	case parser.NodeBoolOp:
		l, err := in.eval(n.Left, s)
		if err != nil {
			return nil, err
		}
		t, err := Truthy(l)
		if err != nil {
			return nil, err
		}
		if (n.Op == "and" && !t) || (n.Op == "or" && t) {
			return l, nil
		}
		return in.eval(n.Right, s)
	case parser.NodeCompare:
		return in.evalCompare(n, s)
	case parser.NodeIfExp:
		c, err := in.test(n.Test, s)
		if err != nil {
			return nil, err
		}
		if c {
			return in.eval(n.Left, s)
		}
		return in.eval(n.Right, s)
	case parser.NodeCall:
		return in.evalCall(n, s)
	case parser.NodeAttribute:
		obj, err := in.eval(n.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		return getAttr(obj, n.Name)
	case parser.NodeSubscript:
		obj, err := in.eval(n.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		if n.Children[0].Type == parser.NodeSlice {
			return in.evalSlice(obj, n.Children[0], s)
		}
		key, err := in.eval(n.Children[0], s)
		if err != nil {
			return nil, err
		}
		return getItem(obj, key)
	case parser.NodeLambda:
		return in.makeFunction("<lambda>", n.Args, nil, n.ValueNode(), s)
	case parser.NodeNamedExpr:
		v, err := in.eval(n.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		return v, in.store(n.Targets[0], v, s)
	case parser.NodeListComp, parser.NodeGeneratorExp:
		var out []Value
		err := in.comprehension(n, s, func(cs *scope) error {
			v, err := in.eval(n.ValueNode(), cs)
			out = append(out, v)
			return err
		})
		return &List{Items: out}, err
	case parser.NodeDictComp:
		d := NewDict()
		err := in.comprehension(n, s, func(cs *scope) error {
			k, err := in.eval(n.Left, cs)
			if err != nil {
				return err
			}
			v, err := in.eval(n.Right, cs)
			d.Set(k, v)
			return err
		})
		return d, err
	}
	return nil, unsupported(n.Type)
}

func (in *Interpreter) evalElements(nodes []*parser.Node, s *scope) ([]Value, error) {
	var out []Value
	for _, e := range nodes {
		if e.Type == parser.NodeStarred {
			v, err := in.eval(e.ValueNode(), s)
			if err != nil {
				return nil, err
			}
			items, err := iterate(v)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := in.eval(e, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (in *Interpreter) evalDict(n *parser.Node, s *scope) (Value, error) {
	d := NewDict()
	for _, c := range n.Children {
		if c.Type != parser.NodeKeyword {
			return nil, unsupported("dict unpacking")
		}
		k, err := in.eval(c.Left, s)
		if err != nil {
			return nil, err
		}
		v, err := in.eval(c.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		d.Set(k, v)
	}
	return d, nil
}

func (in *Interpreter) evalCompare(n *parser.Node, s *scope) (Value, error) {
	left, err := in.eval(n.Left, s)
	if err != nil {
		return nil, err
	}
	for i, op := range n.Names {
		right, err := in.eval(n.Children[i], s)
		if err != nil {
			return nil, err
		}
		ok, err := compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
		left = right
	}
	return true, nil
}

func (in *Interpreter) evalSlice(obj Value, sl *parser.Node, s *scope) (Value, error) {
	bound := func(e *parser.Node) (*int64, error) {
		if e == nil {
			return nil, nil
		}
		v, err := in.eval(e, s)
		if err != nil || v == nil {
			return nil, err
		}
		i, ok := integer(v)
		if !ok {
			return nil, raise("TypeError", "slice indices must be integers")
		}
		return &i, nil
	}
	lo, err := bound(sl.Left)
	if err != nil {
		return nil, err
	}
	hi, err := bound(sl.Right)
	if err != nil {
		return nil, err
	}
	if sl.Test != nil {
		return nil, unsupported("extended slice")
	}

	clamp := func(p *int64, def, n int) int {
		if p == nil {
			return def
		}
		i := int(*p)
		if i < 0 {
			i += n
		}
		if i < 0 {
			return 0
		}
		if i > n {
			return n
		}
		return i
	}
	switch x := obj.(type) {
	case string:
		a, b := clamp(lo, 0, len(x)), clamp(hi, len(x), len(x))
		if a > b {
			return "", nil
		}
		return x[a:b], nil
	case Tuple:
		a, b := clamp(lo, 0, len(x)), clamp(hi, len(x), len(x))
		if a > b {
			return Tuple{}, nil
		}
		return append(Tuple(nil), x[a:b]...), nil
	case *List:
		a, b := clamp(lo, 0, len(x.Items)), clamp(hi, len(x.Items), len(x.Items))
		if a > b {
			return &List{}, nil
		}
		return &List{Items: append([]Value(nil), x.Items[a:b]...)}, nil
	}
	return nil, raise("TypeError", "'%s' object is not subscriptable", TypeName(obj))
}

// comprehension runs each for clause in a scope of its own
func (in *Interpreter) comprehension(n *parser.Node, s *scope, emit func(*scope) error) error {
	b := &bindings{locals: make(map[string]bool), globals: map[string]bool{}, nonlocals: map[string]bool{}}
	for _, c := range n.Children {
		b.target(c.Targets[0])
	}
	cs := s.child(b)

	var loop func(i int) error
	loop = func(i int) error {
		if i == len(n.Children) {
			return emit(cs)
		}
		gen := n.Children[i]
		src := cs
		if i == 0 {
			src = s
		}
		iterable, err := in.eval(gen.Iter, src)
		if err != nil {
			return err
		}
		items, err := iterate(iterable)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := in.step(gen); err != nil {
				return err
			}
			if err := in.store(gen.Targets[0], item, cs); err != nil {
				return err
			}
			keep := true
			for _, cond := range gen.Children {
				ok, err := in.test(cond, cs)
				if err != nil {
					return err
				}
				if !ok {
					keep = false
					break
				}
			}
			if keep {
				if err := loop(i + 1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return loop(0)
}

func (in *Interpreter) evalCall(n *parser.Node, s *scope) (Value, error) {
	fn, err := in.eval(n.ValueNode(), s)
	if err != nil {
		return nil, err
	}
	args, err := in.evalElements(n.Args, s)
	if err != nil {
		return nil, err
	}
	var kwargs map[string]Value
	for _, k := range n.Keywords {
		if k.Name == "" {
			return nil, unsupported("keyword unpacking")
		}
		v, err := in.eval(k.ValueNode(), s)
		if err != nil {
			return nil, err
		}
		if kwargs == nil {
			kwargs = make(map[string]Value)
		}
		kwargs[k.Name] = v
	}
	return in.call(fn, args, kwargs)
}

func (in *Interpreter) makeFunction(name string, params, body []*parser.Node, expr *parser.Node, s *scope) (*Function, error) {
	fn := &Function{
		Name:     name,
		Params:   params,
		Defaults: make(map[string]Value),
		Body:     body,
		Expr:     expr,
		Closure:  s,
	}
	for _, p := range params {
		if p.Op != "" || p.Name == "" {
			return nil, unsupported("parameter " + p.Op + p.Name)
		}
		if d := p.ValueNode(); d != nil {
			v, err := in.eval(d, s)
			if err != nil {
				return nil, err
			}
			fn.Defaults[p.Name] = v
		}
	}
	if expr != nil {
		fn.binding = bindingsOf(params, nil)
		fn.binding.expr(expr)
	} else {
		fn.binding = bindingsOf(params, body)
	}
	return fn, nil
}

func (in *Interpreter) call(callee Value, args []Value, kwargs map[string]Value) (Value, error) {
	switch fn := callee.(type) {
	case *Builtin:
		return fn.Fn(in, args, kwargs)
	case *Function:
		if len(args) > len(fn.Params) {
			return nil, raise("TypeError", "%s() takes %d positional arguments but %d were given", fn.Name, len(fn.Params), len(args))
		}
		frame := fn.Closure.child(fn.binding)
		for i, p := range fn.Params {
			if i < len(args) {
				frame.vars[p.Name] = args[i]
				continue
			}
			if v, given := kwargs[p.Name]; given {
				frame.vars[p.Name] = v
				continue
			}
			d, ok := fn.Defaults[p.Name]
			if !ok {
				return nil, raise("TypeError", "%s() missing required argument: '%s'", fn.Name, p.Name)
			}
			frame.vars[p.Name] = d
		}
		if fn.Expr != nil {
			return in.eval(fn.Expr, frame)
		}
		ret, err := in.execBlock(fn.Body, frame)
		if err != nil || ret == nil {
			return nil, err
		}
		return ret.value, nil
	case *Undefined:
		return nil, undefinedRead(fn)
	}
	return nil, raise("TypeError", "'%s' object is not callable", TypeName(callee))
}

func unaryOp(op string, v Value) (Value, error) {
	if u, ok := v.(*Undefined); ok {
		return nil, undefinedRead(u)
	}
	switch op {
	case "not":
		t, err := Truthy(v)
		return !t, err
	case "-":
		if i, ok := integer(v); ok {
			return -i, nil
		}
		if f, ok := v.(float64); ok {
			return -f, nil
		}
	case "+":
		if i, ok := integer(v); ok {
			return i, nil
		}
		if f, ok := v.(float64); ok {
			return f, nil
		}
	case "~":
		if i, ok := integer(v); ok {
			return ^i, nil
		}
	}
	return nil, raise("TypeError", "bad operand type for unary %s: '%s'", op, TypeName(v))
}

func binaryOp(op string, l, r Value) (Value, error) {
	for _, v := range []Value{l, r} {
		if u, ok := v.(*Undefined); ok {
			return nil, undefinedRead(u)
		}
	}

	if li, ok := integer(l); ok {
		if ri, ok := integer(r); ok {
			return intOp(op, li, ri)
		}
	}
	if lf, ok := number(l); ok {
		if rf, ok := number(r); ok {
			return floatOp(op, lf, rf)
		}
	}

	switch x := l.(type) {
	case string:
		switch y := r.(type) {
		case string:
			if op == "+" {
				return x + y, nil
			}
		case int64:
			if op == "*" {
				return strings.Repeat(x, int(max64(y, 0))), nil
			}
		}
	case *List:
		if y, ok := r.(*List); ok && op == "+" {
			return &List{Items: append(append([]Value(nil), x.Items...), y.Items...)}, nil
		}
		if y, ok := r.(int64); ok && op == "*" {
			var items []Value
			for i := int64(0); i < y; i++ {
				items = append(items, x.Items...)
			}
			return &List{Items: items}, nil
		}
	case Tuple:
		if y, ok := r.(Tuple); ok && op == "+" {
			return append(append(Tuple(nil), x...), y...), nil
		}
	}
	return nil, raise("TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(l), TypeName(r))
}

func intOp(op string, a, b int64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, raise("ZeroDivisionError", "division by zero")
		}
		return float64(a) / float64(b), nil
	case "//", "%":
		if b == 0 {
			return nil, raise("ZeroDivisionError", "integer division or modulo by zero")
		}
		q, m := a/b, a%b
		if m != 0 && (m < 0) != (b < 0) {
			q--
			m += b
		}
		if op == "//" {
			return q, nil
		}
		return m, nil
	case "**":
		if b < 0 {
			return math.Pow(float64(a), float64(b)), nil
		}
		result := int64(1)
		for i := int64(0); i < b; i++ {
			result *= a
		}
		return result, nil
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	case "<<":
		return a << uint(b), nil
	case ">>":
		return a >> uint(b), nil
	}
	return nil, raise("TypeError", "unsupported operand %s for int", op)
}

func floatOp(op string, a, b float64) (Value, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return nil, raise("ZeroDivisionError", "float division by zero")
		}
		return a / b, nil
	case "//":
		if b == 0 {
			return nil, raise("ZeroDivisionError", "float floor division by zero")
		}
		return math.Floor(a / b), nil
	case "%":
		if b == 0 {
			return nil, raise("ZeroDivisionError", "float modulo")
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, nil
	case "**":
		return math.Pow(a, b), nil
	}
	return nil, raise("TypeError", "unsupported operand %s for float", op)
}

func compare(op string, l, r Value) (bool, error) {
	switch op {
	case "==":
		return Equal(l, r), nil
	case "!=":
		return !Equal(l, r), nil
	case "is":
		return identical(l, r), nil
	case "is not":
		return !identical(l, r), nil
	case "in", "not in":
		found, err := contains(r, l)
		if op == "not in" {
			found = !found
		}
		return found, err
	}

	for _, v := range []Value{l, r} {
		if u, ok := v.(*Undefined); ok {
			return false, undefinedRead(u)
		}
	}
	if lf, ok := number(l); ok {
		if rf, ok := number(r); ok {
			return ordered(op, cmpFloat(lf, rf))
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return ordered(op, strings.Compare(ls, rs))
		}
	}
	return false, raise("TypeError", "'%s' not supported between instances of '%s' and '%s'", op, TypeName(l), TypeName(r))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func ordered(op string, c int) (bool, error) {
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, unsupported("comparison " + op)
}

func identical(a, b Value) bool {
	switch a.(type) {
	case nil, bool:
		return a == b
	case Tuple:
		return false
	}
	switch b.(type) {
	case Tuple:
		return false
	}
	return a == b
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return false, raise("TypeError", "'in <string>' requires string as left operand")
		}
		return strings.Contains(c, s), nil
	case *Dict:
		_, ok := c.Get(item)
		return ok, nil
	}
	items, err := iterate(container)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if Equal(it, item) {
			return true, nil
		}
	}
	return false, nil
}

// iterate returns the items a for loop over v visits
func iterate(v Value) ([]Value, error) {
	switch x := v.(type) {
	case Tuple:
		return x, nil
	case *List:
		return append([]Value(nil), x.Items...), nil
	case *Dict:
		return x.Keys(), nil
	case string:
		out := make([]Value, 0, len(x))
		for _, r := range x {
			out = append(out, string(r))
		}
		return out, nil
	case *Undefined:
		return nil, undefinedRead(x)
	}
	return nil, raise("TypeError", "'%s' object is not iterable", TypeName(v))
}

func index(i int64, n int) (int, error) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, raise("IndexError", "index out of range")
	}
	return int(i), nil
}

func getItem(obj, key Value) (Value, error) {
	switch x := obj.(type) {
	case *Dict:
		v, ok := x.Get(key)
		if !ok {
			return nil, raise("KeyError", "%s", Repr(key))
		}
		return v, nil
	case *Undefined:
		return nil, undefinedRead(x)
	}
	i, ok := integer(key)
	if !ok {
		return nil, raise("TypeError", "indices must be integers, not %s", TypeName(key))
	}
	switch x := obj.(type) {
	case *List:
		p, err := index(i, len(x.Items))
		if err != nil {
			return nil, err
		}
		return x.Items[p], nil
	case Tuple:
		p, err := index(i, len(x))
		if err != nil {
			return nil, err
		}
		return x[p], nil
	case string:
		p, err := index(i, len(x))
		if err != nil {
			return nil, err
		}
		return x[p : p+1], nil
	}
	return nil, raise("TypeError", "'%s' object is not subscriptable", TypeName(obj))
}

func setItem(obj, key, v Value) error {
	switch x := obj.(type) {
	case *Dict:
		x.Set(key, v)
		return nil
	case *List:
		i, ok := integer(key)
		if !ok {
			return raise("TypeError", "list indices must be integers, not %s", TypeName(key))
		}
		p, err := index(i, len(x.Items))
		if err != nil {
			return err
		}
		x.Items[p] = v
		return nil
	case *Undefined:
		return undefinedRead(x)
	}
	return raise("TypeError", "'%s' object does not support item assignment", TypeName(obj))
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

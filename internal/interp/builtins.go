package interp

import (
	"sort"
	"strconv"
	"strings"
)

var exceptionKinds = []string{
	"Exception", "ValueError", "TypeError", "KeyError", "IndexError",
	"RuntimeError", "ZeroDivisionError", "NameError", "UnboundLocalError",
	"AssertionError", "StopIteration",
}

func builtin(name string, fn func(in *Interpreter, args []Value, kwargs map[string]Value) (Value, error)) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

func arity(name string, args []Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		return raise("TypeError", "%s() takes %d to %d arguments (%d given)", name, lo, hi, len(args))
	}
	return nil
}

func builtins() map[string]Value {
	b := map[string]Value{
		"range": builtin("range", builtinRange),
		"len": builtin("len", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("len", args, 1, 1); err != nil {
				return nil, err
			}
			switch x := args[0].(type) {
			case string:
				return int64(len(x)), nil
			case Tuple:
				return int64(len(x)), nil
			case *List:
				return int64(len(x.Items)), nil
			case *Dict:
				return int64(x.Len()), nil
			case *Undefined:
				return nil, undefinedRead(x)
			}
			return nil, raise("TypeError", "object of type '%s' has no len()", TypeName(args[0]))
		}),
		"print": builtin("print", func(in *Interpreter, args []Value, kwargs map[string]Value) (Value, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				if u, ok := a.(*Undefined); ok {
					return nil, undefinedRead(u)
				}
				parts[i] = Str(a)
			}
			sep, end := " ", "\n"
			if v, ok := kwargs["sep"].(string); ok {
				sep = v
			}
			if v, ok := kwargs["end"].(string); ok {
				end = v
			}
			in.out.WriteString(strings.Join(parts, sep) + end)
			return nil, nil
		}),
		"abs": builtin("abs", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("abs", args, 1, 1); err != nil {
				return nil, err
			}
			if i, ok := integer(args[0]); ok {
				if i < 0 {
					return -i, nil
				}
				return i, nil
			}
			if f, ok := args[0].(float64); ok {
				if f < 0 {
					return -f, nil
				}
				return f, nil
			}
			return nil, raise("TypeError", "bad operand type for abs(): '%s'", TypeName(args[0]))
		}),
		"min": builtin("min", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			return extreme("min", "<", args)
		}),
		"max": builtin("max", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			return extreme("max", ">", args)
		}),
		"sum": builtin("sum", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("sum", args, 1, 2); err != nil {
				return nil, err
			}
			items, err := iterate(args[0])
			if err != nil {
				return nil, err
			}
			var total Value = int64(0)
			if len(args) == 2 {
				total = args[1]
			}
			for _, it := range items {
				if total, err = binaryOp("+", total, it); err != nil {
					return nil, err
				}
			}
			return total, nil
		}),
		"int":   builtin("int", builtinInt),
		"float": builtin("float", builtinFloat),
		"str": builtin("str", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if len(args) == 0 {
				return "", nil
			}
			return Str(args[0]), nil
		}),
		"repr": builtin("repr", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("repr", args, 1, 1); err != nil {
				return nil, err
			}
			return Repr(args[0]), nil
		}),
		"bool": builtin("bool", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if len(args) == 0 {
				return false, nil
			}
			return Truthy(args[0])
		}),
		"list": builtin("list", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if len(args) == 0 {
				return &List{}, nil
			}
			items, err := iterate(args[0])
			return &List{Items: items}, err
		}),
		"tuple": builtin("tuple", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if len(args) == 0 {
				return Tuple{}, nil
			}
			items, err := iterate(args[0])
			return Tuple(items), err
		}),
		"dict": builtin("dict", func(_ *Interpreter, args []Value, kwargs map[string]Value) (Value, error) {
			d := NewDict()
			if len(args) > 0 {
				src, ok := args[0].(*Dict)
				if !ok {
					return nil, unsupported("dict() from " + TypeName(args[0]))
				}
				for _, k := range src.Keys() {
					v, _ := src.Get(k)
					d.Set(k, v)
				}
			}
			for _, k := range sortedKeys(kwargs) {
				d.Set(k, kwargs[k])
			}
			return d, nil
		}),
		"sorted": builtin("sorted", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("sorted", args, 1, 1); err != nil {
				return nil, err
			}
			items, err := iterate(args[0])
			if err != nil {
				return nil, err
			}
			var cmpErr error
			sort.SliceStable(items, func(i, j int) bool {
				less, err := compare("<", items[i], items[j])
				if err != nil && cmpErr == nil {
					cmpErr = err
				}
				return less
			})
			return &List{Items: items}, cmpErr
		}),
		"enumerate": builtin("enumerate", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("enumerate", args, 1, 2); err != nil {
				return nil, err
			}
			items, err := iterate(args[0])
			if err != nil {
				return nil, err
			}
			start := int64(0)
			if len(args) == 2 {
				start, _ = integer(args[1])
			}
			out := make([]Value, len(items))
			for i, it := range items {
				out[i] = Tuple{start + int64(i), it}
			}
			return &List{Items: out}, nil
		}),
		"zip": builtin("zip", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			var seqs [][]Value
			n := -1
			for _, a := range args {
				items, err := iterate(a)
				if err != nil {
					return nil, err
				}
				if n < 0 || len(items) < n {
					n = len(items)
				}
				seqs = append(seqs, items)
			}
			out := make([]Value, 0, n)
			for i := 0; i < n; i++ {
				row := make(Tuple, len(seqs))
				for j := range seqs {
					row[j] = seqs[j][i]
				}
				out = append(out, row)
			}
			return &List{Items: out}, nil
		}),
		"isinstance": builtin("isinstance", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("isinstance", args, 2, 2); err != nil {
				return nil, err
			}
			types := []Value{args[1]}
			if t, ok := args[1].(Tuple); ok {
				types = t
			}
			for _, t := range types {
				if b, ok := t.(*Builtin); ok && b.Name == TypeName(args[0]) {
					return true, nil
				}
			}
			return false, nil
		}),
		"namespace": builtin("namespace", func(_ *Interpreter, args []Value, kwargs map[string]Value) (Value, error) {
			if len(args) > 0 {
				return nil, raise("TypeError", "namespace() takes no positional arguments")
			}
			obj := &Object{Attrs: make(map[string]Value, len(kwargs))}
			for k, v := range kwargs {
				obj.Attrs[k] = v
			}
			return obj, nil
		}),
	}
	for _, kind := range exceptionKinds {
		kind := kind
		b[kind] = builtin(kind, func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			msg := ""
			if len(args) > 0 {
				msg = Str(args[0])
			}
			return &Object{Attrs: map[string]Value{"__kind__": kind, "message": msg}}, nil
		})
	}
	return b
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func builtinRange(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
	if err := arity("range", args, 1, 3); err != nil {
		return nil, err
	}
	bounds := make([]int64, len(args))
	for i, a := range args {
		v, ok := integer(a)
		if !ok {
			if u, undef := a.(*Undefined); undef {
				return nil, undefinedRead(u)
			}
			return nil, raise("TypeError", "'%s' object cannot be interpreted as an integer", TypeName(a))
		}
		bounds[i] = v
	}
	start, stop, step := int64(0), bounds[0], int64(1)
	if len(bounds) > 1 {
		start, stop = bounds[0], bounds[1]
	}
	if len(bounds) > 2 {
		step = bounds[2]
	}
	if step == 0 {
		return nil, raise("ValueError", "range() arg 3 must not be zero")
	}
	var items []Value
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		items = append(items, i)
		if len(items) > DefaultMaxSteps {
			return nil, ErrStepLimit
		}
	}
	return Tuple(items), nil
}

func builtinInt(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
	if len(args) == 0 {
		return int64(0), nil
	}
	switch x := args[0].(type) {
	case bool, int64:
		i, _ := integer(x)
		return i, nil
	case float64:
		return int64(x), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, raise("ValueError", "invalid literal for int() with base 10: %s", Repr(x))
		}
		return i, nil
	}
	return nil, raise("TypeError", "int() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func builtinFloat(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
	if len(args) == 0 {
		return 0.0, nil
	}
	if f, ok := number(args[0]); ok {
		return f, nil
	}
	if s, ok := args[0].(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, raise("ValueError", "could not convert string to float: %s", Repr(s))
		}
		return f, nil
	}
	return nil, raise("TypeError", "float() argument must be a string or a number, not '%s'", TypeName(args[0]))
}

func extreme(name, op string, args []Value) (Value, error) {
	items := args
	if len(args) == 1 {
		var err error
		if items, err = iterate(args[0]); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, raise("ValueError", "%s() arg is an empty sequence", name)
	}
	best := items[0]
	for _, it := range items[1:] {
		better, err := compare(op, it, best)
		if err != nil {
			return nil, err
		}
		if better {
			best = it
		}
	}
	return best, nil
}

// getAttr resolves attribute reads, including the list and dict methods
// the evaluator supports
func getAttr(obj Value, name string) (Value, error) {
	method := func(fn func(args []Value) (Value, error)) Value {
		return builtin(name, func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			return fn(args)
		})
	}

	switch x := obj.(type) {
	case *Object:
		v, ok := x.Attrs[name]
		if !ok {
			return nil, raise("AttributeError", "'namespace' object has no attribute '%s'", name)
		}
		return v, nil
	case *Undefined:
		return nil, undefinedRead(x)
	case *List:
		switch name {
		case "append":
			return method(func(args []Value) (Value, error) {
				if err := arity("append", args, 1, 1); err != nil {
					return nil, err
				}
				x.Items = append(x.Items, args[0])
				return nil, nil
			}), nil
		case "extend":
			return method(func(args []Value) (Value, error) {
				if err := arity("extend", args, 1, 1); err != nil {
					return nil, err
				}
				items, err := iterate(args[0])
				x.Items = append(x.Items, items...)
				return nil, err
			}), nil
		case "pop":
			return method(func(args []Value) (Value, error) {
				if err := arity("pop", args, 0, 1); err != nil {
					return nil, err
				}
				if len(x.Items) == 0 {
					return nil, raise("IndexError", "pop from empty list")
				}
				i := int64(len(x.Items) - 1)
				if len(args) == 1 {
					i, _ = integer(args[0])
				}
				p, err := index(i, len(x.Items))
				if err != nil {
					return nil, err
				}
				v := x.Items[p]
				x.Items = append(x.Items[:p], x.Items[p+1:]...)
				return v, nil
			}), nil
		case "insert":
			return method(func(args []Value) (Value, error) {
				if err := arity("insert", args, 2, 2); err != nil {
					return nil, err
				}
				i, _ := integer(args[0])
				n := int64(len(x.Items))
				if i < 0 {
					i += n
				}
				if i < 0 {
					i = 0
				}
				if i > n {
					i = n
				}
				x.Items = append(x.Items, nil)
				copy(x.Items[i+1:], x.Items[i:])
				x.Items[i] = args[1]
				return nil, nil
			}), nil
		}
	case *Dict:
		switch name {
		case "get":
			return method(func(args []Value) (Value, error) {
				if err := arity("get", args, 1, 2); err != nil {
					return nil, err
				}
				if v, ok := x.Get(args[0]); ok {
					return v, nil
				}
				if len(args) == 2 {
					return args[1], nil
				}
				return nil, nil
			}), nil
		case "keys":
			return method(func([]Value) (Value, error) {
				return &List{Items: x.Keys()}, nil
			}), nil
		case "values":
			return method(func([]Value) (Value, error) {
				out := make([]Value, 0, x.Len())
				for _, k := range x.Keys() {
					v, _ := x.Get(k)
					out = append(out, v)
				}
				return &List{Items: out}, nil
			}), nil
		case "items":
			return method(func([]Value) (Value, error) {
				out := make([]Value, 0, x.Len())
				for _, k := range x.Keys() {
					v, _ := x.Get(k)
					out = append(out, Tuple{k, v})
				}
				return &List{Items: out}, nil
			}), nil
		}
	}
	return nil, raise("AttributeError", "'%s' object has no attribute '%s'", TypeName(obj), name)
}

// runtimeModule provides the primitives converted code calls
func runtimeModule() Value {
	return &Object{Attrs: map[string]Value{
		"if_stmt": builtin("if_stmt", func(in *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("if_stmt", args, 3, 3); err != nil {
				return nil, err
			}
			c, err := Truthy(args[0])
			if err != nil {
				return nil, err
			}
			if c {
				return in.call(args[1], nil, nil)
			}
			return in.call(args[2], nil, nil)
		}),
		"while_stmt": builtin("while_stmt", func(in *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("while_stmt", args, 3, 4); err != nil {
				return nil, err
			}
			state, ok := args[2].(Tuple)
			if !ok {
				return nil, raise("TypeError", "while_stmt state must be a tuple")
			}
			for {
				if err := in.tick(); err != nil {
					return nil, err
				}
				v, err := in.call(args[0], state, nil)
				if err != nil {
					return nil, err
				}
				c, err := Truthy(v)
				if err != nil || !c {
					return state, err
				}
				if state, err = in.loopState(in.call(args[1], state, nil)); err != nil {
					return nil, err
				}
			}
		}),
		"for_stmt": builtin("for_stmt", func(in *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("for_stmt", args, 4, 4); err != nil {
				return nil, err
			}
			items, err := iterate(args[0])
			if err != nil {
				return nil, err
			}
			state, ok := args[3].(Tuple)
			if !ok {
				return nil, raise("TypeError", "for_stmt state must be a tuple")
			}
			for _, item := range items {
				if err := in.tick(); err != nil {
					return nil, err
				}
				if args[1] != nil {
					v, err := in.call(args[1], state, nil)
					if err != nil {
						return nil, err
					}
					c, err := Truthy(v)
					if err != nil {
						return nil, err
					}
					if !c {
						break
					}
				}
				call := append(Tuple{item}, state...)
				if state, err = in.loopState(in.call(args[2], call, nil)); err != nil {
					return nil, err
				}
			}
			return state, nil
		}),
		"Undefined": builtin("Undefined", func(_ *Interpreter, args []Value, _ map[string]Value) (Value, error) {
			if err := arity("Undefined", args, 1, 1); err != nil {
				return nil, err
			}
			name, _ := args[0].(string)
			return &Undefined{Name: name}, nil
		}),
	}}
}

// loopState checks what a loop body returned
func (in *Interpreter) loopState(v Value, err error) (Tuple, error) {
	if err != nil {
		return nil, err
	}
	state, ok := v.(Tuple)
	if !ok {
		return nil, raise("TypeError", "loop body must return the state tuple, got %s", TypeName(v))
	}
	return state, nil
}

// tick charges one loop iteration run by a runtime primitive
func (in *Interpreter) tick() error {
	in.steps++
	if in.maxSteps > 0 && in.steps > in.maxSteps {
		return ErrStepLimit
	}
	if in.ctx != nil {
		return in.ctx.Err()
	}
	return nil
}

package interp

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// Value is a runtime value: nil (None), bool, int64, float64, string,
// Tuple, *List, *Dict, *Object, *Function, *Builtin or *Undefined.
type Value interface{}

// Tuple is an immutable sequence
type Tuple []Value

// List is a mutable sequence
type List struct {
	Items []Value
}

// Dict is an insertion-ordered mapping keyed by the repr of its keys
type Dict struct {
	keys []Value
	vals map[string]Value
}

// NewDict creates an empty dict
func NewDict() *Dict {
	return &Dict{vals: make(map[string]Value)}
}

// Set stores v under k
func (d *Dict) Set(k, v Value) {
	key := Repr(k)
	if _, ok := d.vals[key]; !ok {
		d.keys = append(d.keys, k)
	}
	d.vals[key] = v
}

// Get looks up k
func (d *Dict) Get(k Value) (Value, bool) {
	v, ok := d.vals[Repr(k)]
	return v, ok
}

// Keys returns the keys in insertion order
func (d *Dict) Keys() []Value {
	return append([]Value(nil), d.keys...)
}

// Len returns the number of entries
func (d *Dict) Len() int {
	return len(d.keys)
}

// Object is an attribute bag created by the namespace builtin
type Object struct {
	Attrs map[string]Value
}

// Undefined is the sentinel the runtime binds to possibly unassigned names
type Undefined struct {
	Name string
}

// Function is a user-defined function or lambda
type Function struct {
	Name     string
	Params   []*parser.Node
	Defaults map[string]Value
	Body     []*parser.Node
	// Expr is the body of a lambda
	Expr    *parser.Node
	Closure *scope
	binding *bindings
}

// Builtin is a function implemented in Go
type Builtin struct {
	Name string
	Fn   func(in *Interpreter, args []Value, kwargs map[string]Value) (Value, error)
}

// TypeName returns the Python type name of v
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case Tuple:
		return "tuple"
	case *List:
		return "list"
	case *Dict:
		return "dict"
	case *Object:
		return "namespace"
	case *Function:
		return "function"
	case *Builtin:
		return "builtin_function_or_method"
	case *Undefined:
		return "Undefined"
	}
	return fmt.Sprintf("%T", v)
}

// Truthy implements Python truth testing. Undefined values cannot be
// tested.
func Truthy(v Value) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		return x != "", nil
	case Tuple:
		return len(x) > 0, nil
	case *List:
		return len(x.Items) > 0, nil
	case *Dict:
		return x.Len() > 0, nil
	case *Undefined:
		return false, undefinedRead(x)
	}
	return true, nil
}

// Equal implements ==
func Equal(a, b Value) bool {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return na == nb
		}
		return false
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSeq(x, y)
	case *List:
		y, ok := b.(*List)
		return ok && equalSeq(x.Items, y.Items)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.Get(k)
			if !ok || !Equal(x.vals[Repr(k)], yv) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		if !ok || len(x.Attrs) != len(y.Attrs) {
			return false
		}
		for k, v := range x.Attrs {
			if !Equal(v, y.Attrs[k]) {
				return false
			}
		}
		return true
	case *Undefined:
		_, ok := b.(*Undefined)
		return ok
	}
	return a == b
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// number returns the numeric value of bools, ints and floats
func number(v Value) (float64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// integer returns the integer value of bools and ints
func integer(v Value) (int64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int64:
		return x, true
	}
	return 0, false
}

// Repr renders v the way Python's repr does
func Repr(v Value) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		switch {
		case math.IsInf(x, 1):
			return "inf"
		case math.IsInf(x, -1):
			return "-inf"
		case math.IsNaN(x):
			return "nan"
		}
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case string:
		return parser.QuoteString(x)
	case Tuple:
		if len(x) == 1 {
			return "(" + Repr(x[0]) + ",)"
		}
		return "(" + joinRepr(x) + ")"
	case *List:
		return "[" + joinRepr(x.Items) + "]"
	case *Dict:
		parts := make([]string, 0, x.Len())
		for _, k := range x.keys {
			parts = append(parts, Repr(k)+": "+Repr(x.vals[Repr(k)]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Object:
		names := make([]string, 0, len(x.Attrs))
		for k := range x.Attrs {
			names = append(names, k)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, k := range names {
			parts[i] = k + "=" + Repr(x.Attrs[k])
		}
		return "namespace(" + strings.Join(parts, ", ") + ")"
	case *Function:
		return "<function " + x.Name + ">"
	case *Builtin:
		return "<built-in function " + x.Name + ">"
	case *Undefined:
		return "Undefined(" + x.Name + ")"
	}
	return fmt.Sprintf("%v", v)
}

// Str renders v the way Python's str does
func Str(v Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

func joinRepr(items []Value) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = Repr(it)
	}
	return strings.Join(parts, ", ")
}

package interp

import (
	"fmt"
	"sort"
)

// Mismatch describes one difference between two runs
type Mismatch struct {
	Name  string
	Left  string
	Right string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s != %s", m.Name, m.Left, m.Right)
}

// EquivalenceError lists every name whose final value differs
type EquivalenceError struct {
	Mismatches []Mismatch
}

func (e *EquivalenceError) Error() string {
	msg := fmt.Sprintf("%d binding(s) differ", len(e.Mismatches))
	for _, m := range e.Mismatches {
		msg += "; " + m.String()
	}
	return msg
}

// Equivalent compares the printed output of two runs and the values bound
// to names. With no names given, every module-level data binding of want
// is compared. Functions are compared by name only, since converted code
// defines different helpers.
func Equivalent(want, got *Env, names ...string) error {
	if len(names) == 0 {
		for name, v := range want.Globals {
			switch v.(type) {
			case *Function, *Builtin:
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var mismatches []Mismatch
	if want.Output != got.Output {
		mismatches = append(mismatches, Mismatch{Name: "<output>", Left: fmt.Sprintf("%q", want.Output), Right: fmt.Sprintf("%q", got.Output)})
	}
	for _, name := range names {
		wv, wok := want.Lookup(name)
		gv, gok := got.Lookup(name)
		switch {
		case wok != gok:
			mismatches = append(mismatches, Mismatch{Name: name, Left: bound(wv, wok), Right: bound(gv, gok)})
		case wok && !Equal(wv, gv):
			mismatches = append(mismatches, Mismatch{Name: name, Left: Repr(wv), Right: Repr(gv)})
		}
	}
	if len(mismatches) > 0 {
		return &EquivalenceError{Mismatches: mismatches}
	}
	return nil
}

func bound(v Value, ok bool) string {
	if !ok {
		return "<unbound>"
	}
	return Repr(v)
}

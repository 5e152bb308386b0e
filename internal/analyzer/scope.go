package analyzer

import "strings"

// SymbolSet is an insertion-ordered set of symbols keyed by Symbol.Key.
// A nil *SymbolSet reads as empty.
type SymbolSet struct {
	keys []string
	syms map[string]*Symbol
}

// NewSymbolSet creates a set holding syms in order
func NewSymbolSet(syms ...*Symbol) *SymbolSet {
	s := &SymbolSet{syms: make(map[string]*Symbol)}
	for _, sym := range syms {
		s.Add(sym)
	}
	return s
}

// Add inserts sym if not present
func (s *SymbolSet) Add(sym *Symbol) {
	if sym == nil {
		return
	}
	if _, ok := s.syms[sym.Key()]; ok {
		return
	}
	s.keys = append(s.keys, sym.Key())
	s.syms[sym.Key()] = sym
}

// AddAll inserts every member of other
func (s *SymbolSet) AddAll(other *SymbolSet) {
	for _, sym := range other.Symbols() {
		s.Add(sym)
	}
}

// Has reports membership by key
func (s *SymbolSet) Has(sym *Symbol) bool {
	return sym != nil && s.HasKey(sym.Key())
}

// HasKey reports membership of a normalized symbol text
func (s *SymbolSet) HasKey(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.syms[key]
	return ok
}

// Get returns the member with the given key
func (s *SymbolSet) Get(key string) *Symbol {
	if s == nil {
		return nil
	}
	return s.syms[key]
}

// Len returns the number of members
func (s *SymbolSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Symbols returns the members in insertion order
func (s *SymbolSet) Symbols() []*Symbol {
	if s == nil {
		return nil
	}
	out := make([]*Symbol, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.syms[k]
	}
	return out
}

// Keys returns the member keys in insertion order
func (s *SymbolSet) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Clone returns an independent copy
func (s *SymbolSet) Clone() *SymbolSet {
	out := NewSymbolSet()
	out.AddAll(s)
	return out
}

// Union returns s ∪ other, keeping s's order first
func (s *SymbolSet) Union(other *SymbolSet) *SymbolSet {
	out := s.Clone()
	out.AddAll(other)
	return out
}

// Intersect returns members of s also in other, in s's order
func (s *SymbolSet) Intersect(other *SymbolSet) *SymbolSet {
	return s.Filter(other.Has)
}

// Difference returns members of s not in other
func (s *SymbolSet) Difference(other *SymbolSet) *SymbolSet {
	return s.Filter(func(sym *Symbol) bool { return !other.Has(sym) })
}

// Filter returns the members satisfying keep
func (s *SymbolSet) Filter(keep func(*Symbol) bool) *SymbolSet {
	out := NewSymbolSet()
	for _, sym := range s.Symbols() {
		if keep(sym) {
			out.Add(sym)
		}
	}
	return out
}

// Any reports whether some member satisfies pred
func (s *SymbolSet) Any(pred func(*Symbol) bool) bool {
	for _, sym := range s.Symbols() {
		if pred(sym) {
			return true
		}
	}
	return false
}

// Equal reports whether both sets hold the same keys
func (s *SymbolSet) Equal(other *SymbolSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, k := range s.Keys() {
		if !other.HasKey(k) {
			return false
		}
	}
	return true
}

// String renders the set as {a, b.c}
func (s *SymbolSet) String() string {
	return "{" + strings.Join(s.Keys(), ", ") + "}"
}

// Scope records the symbols a block of code reads and modifies
type Scope struct {
	Modified *SymbolSet
	Read     *SymbolSet
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{Modified: NewSymbolSet(), Read: NewSymbolSet()}
}

// Referenced returns read ∪ modified
func (s *Scope) Referenced() *SymbolSet {
	if s == nil {
		return NewSymbolSet()
	}
	return s.Read.Union(s.Modified)
}

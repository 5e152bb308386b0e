package analyzer

import (
	"strings"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// SymbolKind classifies a Symbol
type SymbolKind int

const (
	// SymbolSimple is a plain variable name
	SymbolSimple SymbolKind = iota
	// SymbolAttribute is an attribute access rooted at a symbol (a.b)
	SymbolAttribute
	// SymbolSubscript is an indexed access rooted at a symbol (a[i], a[0])
	SymbolSubscript
	// SymbolLiteral is a constant subscript key; it never names a variable
	SymbolLiteral
)

// Symbol is a qualified name: a variable or a composite access path rooted
// at one. Symbols compare by their normalized text, see Key.
type Symbol struct {
	kind   SymbolKind
	name   string  // identifier, attribute name or literal text
	parent *Symbol // attribute and subscript base
	index  *Symbol // subscript key
	text   string
}

// NewSimpleSymbol creates a symbol for a variable name
func NewSimpleSymbol(name string) *Symbol {
	return &Symbol{kind: SymbolSimple, name: name, text: name}
}

// NewAttributeSymbol creates parent.attr
func NewAttributeSymbol(parent *Symbol, attr string) *Symbol {
	return &Symbol{kind: SymbolAttribute, name: attr, parent: parent, text: parent.text + "." + attr}
}

// NewSubscriptSymbol creates parent[index]
func NewSubscriptSymbol(parent, index *Symbol) *Symbol {
	return &Symbol{kind: SymbolSubscript, parent: parent, index: index, text: parent.text + "[" + index.text + "]"}
}

// NewLiteralSymbol creates a constant subscript key
func NewLiteralSymbol(text string) *Symbol {
	return &Symbol{kind: SymbolLiteral, name: text, text: text}
}

// Kind returns the symbol classification
func (s *Symbol) Kind() SymbolKind { return s.kind }

// Key is the normalized text used for equality and hashing
func (s *Symbol) Key() string { return s.text }

// String returns the symbol's source form
func (s *Symbol) String() string { return s.text }

// IsSimple reports whether s is a plain variable
func (s *Symbol) IsSimple() bool { return s.kind == SymbolSimple }

// IsComposite reports whether s is an attribute or subscript path
func (s *Symbol) IsComposite() bool {
	return s.kind == SymbolAttribute || s.kind == SymbolSubscript
}

// Root returns the variable a composite path starts from
func (s *Symbol) Root() *Symbol {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// OwnerSet returns every symbol whose mutation may affect s: all of its
// ancestors along the access path. Empty for simple symbols.
func (s *Symbol) OwnerSet() *SymbolSet {
	owners := NewSymbolSet()
	for cur := s.parent; cur != nil; cur = cur.parent {
		owners.Add(cur)
	}
	return owners
}

// SupportSet returns the simple symbols s needs to resolve statically: the
// root plus the roots of any symbolic subscript keys. A simple symbol
// supports itself.
func (s *Symbol) SupportSet() *SymbolSet {
	out := NewSymbolSet()
	s.collectSupport(out)
	return out
}

func (s *Symbol) collectSupport(out *SymbolSet) {
	switch s.kind {
	case SymbolSimple:
		out.Add(s)
	case SymbolAttribute:
		s.parent.collectSupport(out)
	case SymbolSubscript:
		s.parent.collectSupport(out)
		s.index.collectSupport(out)
	}
}

// SSF returns a symbol-safe form usable as an identifier stem: a.b[0] -> a_b_0
func (s *Symbol) SSF() string {
	var sb strings.Builder
	for _, r := range s.text {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '[':
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" || out[0] >= '0' && out[0] <= '9' {
		out = "v_" + out
	}
	return out
}

// ToNode renders the symbol as an expression
func (s *Symbol) ToNode() *parser.Node {
	switch s.kind {
	case SymbolAttribute:
		return parser.NewAttribute(s.parent.ToNode(), s.name)
	case SymbolSubscript:
		n := parser.NewNode(parser.NodeSubscript)
		n.Value = s.parent.ToNode()
		n.AddChild(s.index.ToNode())
		return n
	case SymbolLiteral:
		n := parser.NewNode(parser.NodeConstant)
		n.Raw = s.name
		return n
	}
	return parser.NewName(s.name)
}

// SymbolOf returns the symbol an expression names, or nil when the
// expression is not a static access path (calls, arbitrary subscripts).
func SymbolOf(n *parser.Node) *Symbol {
	if n == nil {
		return nil
	}
	switch n.Type {
	case parser.NodeName:
		return NewSimpleSymbol(n.Name)
	case parser.NodeAttribute:
		base := SymbolOf(n.ValueNode())
		if base == nil || base.kind == SymbolLiteral {
			return nil
		}
		return NewAttributeSymbol(base, n.Name)
	case parser.NodeSubscript:
		base := SymbolOf(n.ValueNode())
		if base == nil || base.kind == SymbolLiteral || len(n.Children) == 0 {
			return nil
		}
		index := SymbolOf(n.Children[0])
		if index == nil {
			return nil
		}
		return NewSubscriptSymbol(base, index)
	case parser.NodeConstant:
		switch n.Value.(type) {
		case int64, string, bool:
			return NewLiteralSymbol(parser.Print(n))
		}
	}
	return nil
}

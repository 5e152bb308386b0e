package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// exprSymbol parses "<expr>\n" and returns the symbol of the expression
func exprSymbol(t *testing.T, expr string) *Symbol {
	t.Helper()
	ast := parseSource(t, expr+"\n")
	require.Len(t, ast.Body, 1)
	sym := SymbolOf(ast.Body[0].ValueNode())
	require.NotNil(t, sym, expr)
	return sym
}

func TestSymbol_Classification(t *testing.T) {
	tests := []struct {
		expr      string
		kind      SymbolKind
		owners    []string
		support   []string
		ssf       string
		composite bool
	}{
		{expr: "x", kind: SymbolSimple, owners: nil, support: []string{"x"}, ssf: "x"},
		{expr: "a.b", kind: SymbolAttribute, owners: []string{"a"}, support: []string{"a"}, ssf: "a_b", composite: true},
		{expr: "a.b[0]", kind: SymbolSubscript, owners: []string{"a.b", "a"}, support: []string{"a"}, ssf: "a_b_0", composite: true},
		{expr: "a[i].c", kind: SymbolAttribute, owners: []string{"a[i]", "a"}, support: []string{"a", "i"}, ssf: "a_i_c", composite: true},
		{expr: "d['k']", kind: SymbolSubscript, owners: []string{"d"}, support: []string{"d"}, ssf: "d_k", composite: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sym := exprSymbol(t, tt.expr)
			assert.Equal(t, tt.kind, sym.Kind())
			assert.Equal(t, tt.composite, sym.IsComposite())
			assert.Equal(t, !tt.composite, sym.IsSimple())
			assert.ElementsMatch(t, tt.owners, sym.OwnerSet().Keys())
			assert.ElementsMatch(t, tt.support, sym.SupportSet().Keys())
			assert.Equal(t, tt.ssf, sym.SSF())
		})
	}
}

func TestSymbol_NotStatic(t *testing.T) {
	for _, expr := range []string{"f().x", "a[i + 1]", "(a or b).c", "3"} {
		t.Run(expr, func(t *testing.T) {
			ast := parseSource(t, expr+"\n")
			sym := SymbolOf(ast.Body[0].ValueNode())
			if expr == "3" {
				require.NotNil(t, sym)
				assert.Equal(t, SymbolLiteral, sym.Kind())
				assert.Zero(t, sym.SupportSet().Len())
				return
			}
			assert.Nil(t, sym)
		})
	}
}

func TestSymbol_EqualityByText(t *testing.T) {
	a := exprSymbol(t, "obj.items[0]")
	b := NewSubscriptSymbol(NewAttributeSymbol(NewSimpleSymbol("obj"), "items"), NewLiteralSymbol("0"))

	set := NewSymbolSet(a)
	assert.True(t, set.Has(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "obj", b.Root().String())
}

func TestSymbol_ToNode(t *testing.T) {
	sym := exprSymbol(t, "a.b[i]")
	assert.Equal(t, "a.b[i]", parser.Print(sym.ToNode()))
}

func TestSymbolSet_Operations(t *testing.T) {
	x, y, z := NewSimpleSymbol("x"), NewSimpleSymbol("y"), NewSimpleSymbol("z")
	s := NewSymbolSet(x, y, x)
	other := NewSymbolSet(y, z)

	assert.Equal(t, []string{"x", "y"}, s.Keys())
	assert.Equal(t, []string{"x", "y", "z"}, s.Union(other).Keys())
	assert.Equal(t, []string{"y"}, s.Intersect(other).Keys())
	assert.Equal(t, []string{"x"}, s.Difference(other).Keys())
	assert.True(t, s.Equal(NewSymbolSet(y, x)))
	assert.Equal(t, "{x, y}", s.String())

	var empty *SymbolSet
	assert.Zero(t, empty.Len())
	assert.False(t, empty.Has(x))
	assert.Empty(t, empty.Symbols())
}

func TestScope_Referenced(t *testing.T) {
	scope := NewScope()
	scope.Read.Add(NewSimpleSymbol("a"))
	scope.Modified.Add(NewSimpleSymbol("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, scope.Referenced().Keys())

	var nilScope *Scope
	assert.Zero(t, nilScope.Referenced().Len())
}

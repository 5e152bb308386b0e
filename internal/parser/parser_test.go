package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, source string) *Node {
	t.Helper()
	result, err := New().Parse(context.Background(), []byte(source))
	require.NoError(t, err)
	require.NotNil(t, result.AST)
	return result.AST
}

func TestNew(t *testing.T) {
	p := New()
	require.NotNil(t, p)
	assert.NotNil(t, p.parser)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{
			name: "simple function",
			source: `def hello():
    print("Hello, World!")`,
		},
		{
			name: "class definition",
			source: `class MyClass:
    def __init__(self):
        self.value = 42`,
		},
		{
			name: "control flow",
			source: `def f(xs):
    total = 0
    for x in xs:
        if x > 2:
            total += x
        elif x < 0:
            break
        else:
            continue
    while total > 10:
        total -= 1
    return total`,
		},
		{
			name:    "syntax error",
			source:  "def broken(:\n    pass",
			wantErr: true,
		},
		{
			name:    "unsupported match statement",
			source:  "match x:\n    case 1:\n        pass\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Parse(context.Background(), []byte(tt.source))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, NodeModule, result.AST.Type)
			assert.NotEmpty(t, result.AST.Body)
		})
	}
}

func TestBuild_Statements(t *testing.T) {
	t.Run("Build_Assign", func(t *testing.T) {
		ast := parseSource(t, "a = b = 1\n")
		require.Len(t, ast.Body, 1)
		assign := ast.Body[0]
		assert.Equal(t, NodeAssign, assign.Type)
		require.Len(t, assign.Targets, 2)
		assert.Equal(t, "a", assign.Targets[0].Name)
		assert.Equal(t, "b", assign.Targets[1].Name)
		assert.Equal(t, int64(1), assign.ValueNode().Value)
	})

	t.Run("Build_AugAssign", func(t *testing.T) {
		ast := parseSource(t, "x += 2\n")
		aug := ast.Body[0]
		assert.Equal(t, NodeAugAssign, aug.Type)
		assert.Equal(t, "+", aug.Op)
		assert.Equal(t, "x", aug.Targets[0].Name)
	})

	t.Run("Build_ElifChain", func(t *testing.T) {
		ast := parseSource(t, "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n")
		top := ast.Body[0]
		require.Equal(t, NodeIf, top.Type)
		require.Len(t, top.Orelse, 1)
		elif := top.Orelse[0]
		assert.Equal(t, NodeIf, elif.Type)
		assert.Equal(t, "b", elif.Test.Name)
		require.Len(t, elif.Orelse, 1)
		assert.Equal(t, NodeAssign, elif.Orelse[0].Type)
	})

	t.Run("Build_ForTupleTarget", func(t *testing.T) {
		ast := parseSource(t, "for k, v in items:\n    pass\nelse:\n    done = True\n")
		loop := ast.Body[0]
		assert.Equal(t, NodeFor, loop.Type)
		assert.Equal(t, NodeTuple, loop.Targets[0].Type)
		assert.Len(t, loop.Targets[0].Children, 2)
		assert.Equal(t, "items", loop.Iter.Name)
		assert.Len(t, loop.Orelse, 1)
	})

	t.Run("Build_FunctionParams", func(t *testing.T) {
		ast := parseSource(t, "def f(a, b=2, *args, c: int = 3, **kw):\n    return a\n")
		fn := ast.Body[0]
		require.Len(t, fn.Args, 5)
		assert.Equal(t, "a", fn.Args[0].Name)
		assert.Equal(t, "b", fn.Args[1].Name)
		assert.NotNil(t, fn.Args[1].ValueNode())
		assert.Equal(t, "*", fn.Args[2].Op)
		assert.Equal(t, "c", fn.Args[3].Name)
		assert.Equal(t, "**", fn.Args[4].Op)
	})

	t.Run("Build_Compare", func(t *testing.T) {
		ast := parseSource(t, "r = a < b not in c\n")
		cmp := ast.Body[0].ValueNode()
		require.Equal(t, NodeCompare, cmp.Type)
		assert.Equal(t, []string{"<", "not in"}, cmp.Names)
		assert.Len(t, cmp.Children, 2)
	})

	t.Run("Build_Attribute_Subscript", func(t *testing.T) {
		ast := parseSource(t, "obj.a[i] = 1\n")
		target := ast.Body[0].Targets[0]
		require.Equal(t, NodeSubscript, target.Type)
		base := target.ValueNode()
		assert.Equal(t, NodeAttribute, base.Type)
		assert.Equal(t, "a", base.Name)
		assert.Equal(t, "obj", base.ValueNode().Name)
		assert.Equal(t, "i", target.Children[0].Name)
	})

	t.Run("Build_FString", func(t *testing.T) {
		ast := parseSource(t, "s = f\"v={x!r}\"\n")
		str := ast.Body[0].ValueNode()
		require.Equal(t, NodeJoinedStr, str.Type)
		var names []string
		str.Walk(func(n *Node) bool {
			if n.Type == NodeName {
				names = append(names, n.Name)
			}
			return true
		})
		assert.Equal(t, []string{"x"}, names)
	})

	t.Run("Build_Locations", func(t *testing.T) {
		ast := parseSource(t, "x = 1\n\nwhile x:\n    x = 0\n")
		assert.Equal(t, 1, ast.Body[0].Location.StartLine)
		assert.Equal(t, 3, ast.Body[1].Location.StartLine)
	})
}

func TestPrint_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"assign", "x = 1\n"},
		{"call", "print(a, b, sep='')\n"},
		{"if_elif_else", "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"},
		{"while_else", "while n > 0:\n    n = n - 1\nelse:\n    done = True\n"},
		{"for", "for i in range(10):\n    total += i\n"},
		{"def", "def f(a, b=2):\n    return a * (b + 1)\n"},
		{"attribute_subscript", "obj.items[0] = obj.items[1:3]\n"},
		{"comprehension", "ys = [x * 2 for x in xs if x]\n"},
		{"bool_not", "ok = not a and (b or c)\n"},
		{"lambda", "f = lambda x: x + 1\n"},
		{"fstring", "s = f'{x!r:>4} and {y}'\n"},
		{"try", "try:\n    x = 1\nexcept ValueError as e:\n    x = 2\nfinally:\n    y = 3\n"},
		{"import", "import os.path as p\nfrom . import mod\n"},
		{"power_unary", "z = (-x) ** 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ast := parseSource(t, tt.source)
			assert.Equal(t, tt.source, Print(ast))
		})
	}
}

func TestPrint_Synthesized(t *testing.T) {
	body := []*Node{
		NewAssign(NewNameTuple([]string{"x_1"}), NewNameTuple([]string{"x"})),
		NewReturn(NewNameTuple([]string{"x_1"})),
	}
	fn := NewFunctionDef("loop_body", []string{"x"}, body)
	call := NewAssign(NewNameTuple([]string{"x"}),
		NewCall(NewDottedName("ag__.while_stmt"), NewName("loop_test"), NewName("loop_body"), NewNameTuple([]string{"x"}), NewTuple()))
	guard := NewAssign(NewName("y"), NewCall(NewDottedName("ag__.Undefined"), NewConstant("y")))

	out := PrintStatements([]*Node{guard, fn, call})
	expected := strings.Join([]string{
		"y = ag__.Undefined('y')",
		"def loop_body(x):",
		"    (x_1,) = (x,)",
		"    return (x_1,)",
		"(x,) = ag__.while_stmt(loop_test, loop_body, (x,), ())",
		"",
	}, "\n")
	assert.Equal(t, expected, out)
}

func TestCopy_IsDeep(t *testing.T) {
	ast := parseSource(t, "y = x.a + 1\n")
	copied := ast.Copy()
	copied.Body[0].ValueNode().Left.ValueNode().Name = "z"
	assert.Equal(t, "y = x.a + 1\n", Print(ast))
	assert.Equal(t, "y = z.a + 1\n", Print(copied))
}

func TestRewrite_DoesNotMutateInput(t *testing.T) {
	ast := parseSource(t, "a = a + b\n")
	renamed := Rewrite(ast, func(n *Node) *Node {
		if n.Type == NodeName && n.Name == "a" {
			return NewName("a_1")
		}
		return nil
	})
	assert.Equal(t, "a = a + b\n", Print(ast))
	assert.Equal(t, "a_1 = a_1 + b\n", Print(renamed))
}

func TestIdentifiers(t *testing.T) {
	ast := parseSource(t, "import numpy as np\ndef f(a):\n    return np.sum(a)\n")
	ids := Identifiers(ast)
	for _, name := range []string{"np", "numpy", "f", "a", "sum"} {
		assert.True(t, ids[name], name)
	}
}

package analyzer

import (
	"context"
	"testing"

	"github.com/ludo-technologies/pystage/internal/parser"
)

func TestCFGBuilder(t *testing.T) {
	t.Run("BuildFromNil", func(t *testing.T) {
		builder := NewCFGBuilder()
		cfg, err := builder.Build(nil)

		if err == nil {
			t.Error("Expected error for nil node")
		}
		if cfg != nil {
			t.Error("Expected nil CFG for nil node")
		}
	})

	t.Run("BuildFromExpression", func(t *testing.T) {
		if _, err := NewCFGBuilder().Build(parser.NewName("x")); err == nil {
			t.Error("Expected error for expression node")
		}
	})

	t.Run("BuildSimpleModule", func(t *testing.T) {
		source := `
x = 10
y = 20
z = x + y
print(z)
`
		ast := parseSource(t, source)

		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Name != "main" {
			t.Errorf("Expected CFG name 'main', got %s", cfg.Name)
		}
		if len(cfg.Entry.Successors) == 0 {
			t.Error("Entry block has no successors")
		}
		if got := countStatements(cfg); got != 4 {
			t.Errorf("Expected 4 statements, got %d", got)
		}
	})

	t.Run("BuildFunctionDef", func(t *testing.T) {
		source := `
def add(a, b):
    result = a + b
    return result
`
		funcNode := parseSource(t, source).Body[0]

		cfg, err := NewCFGBuilder().Build(funcNode)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Name != "add" {
			t.Errorf("Expected CFG name 'add', got %s", cfg.Name)
		}
		if !hasEdge(cfg, EdgeReturn, cfg.Exit) {
			t.Error("Expected return edge to exit block")
		}
	})

	t.Run("NestedFunctionIsOneStatement", func(t *testing.T) {
		source := `
def outer():
    def inner():
        while True:
            pass
    return inner
`
		cfg, err := NewCFGBuilder().Build(parseSource(t, source).Body[0])
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if countLabel(cfg, LabelLoopHeader) != 0 {
			t.Error("Nested function body must not be part of the outer CFG")
		}
	})

	t.Run("BuildIfElse", func(t *testing.T) {
		source := `
if a:
    x = 1
else:
    x = 2
print(x)
`
		ast := parseSource(t, source)
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		ifStmt := ast.Body[0]
		merge, ok := cfg.StmtExit[ifStmt]
		if !ok {
			t.Fatal("Expected exit block for if statement")
		}
		if merge.Label != LabelIfMerge {
			t.Errorf("Expected merge block, got %s", merge.Label)
		}
		if len(merge.Predecessors) != 2 {
			t.Errorf("Expected 2 predecessors of merge, got %d", len(merge.Predecessors))
		}
		if len(merge.Statements) != 1 || merge.Statements[0] != ast.Body[1] {
			t.Error("Expected statement after if in merge block")
		}

		cond := blockOf(cfg, ifStmt)
		if cond == nil || cond.Statements[len(cond.Statements)-1] != ifStmt {
			t.Fatal("Expected if to be the last statement of its block")
		}
		if !hasEdgeFrom(cond, EdgeCondTrue) || !hasEdgeFrom(cond, EdgeCondFalse) {
			t.Error("Expected true and false edges from condition block")
		}
	})

	t.Run("BuildIfWithoutElse", func(t *testing.T) {
		ast := parseSource(t, "if a:\n    x = 1\n")
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		merge := cfg.StmtExit[ast.Body[0]]
		cond := blockOf(cfg, ast.Body[0])
		direct := false
		for _, edge := range cond.Successors {
			if edge.To == merge && edge.Type == EdgeCondFalse {
				direct = true
			}
		}
		if !direct {
			t.Error("Expected false edge straight to merge block")
		}
	})

	t.Run("BuildWhile", func(t *testing.T) {
		source := `
x = 0
while x < 3:
    x += 1
print(x)
`
		ast := parseSource(t, source)
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		loop := ast.Body[1]
		header := blockOf(cfg, loop)
		if header == nil || header.Label != LabelLoopHeader {
			t.Fatal("Expected loop in its own header block")
		}
		if len(header.Statements) != 1 {
			t.Errorf("Expected header to hold only the loop, got %d statements", len(header.Statements))
		}
		if entry := cfg.StmtEntry[loop]; entry != blockOf(cfg, ast.Body[0]) {
			t.Error("Expected loop entry to be the block before the loop")
		}
		backEdges := 0
		for _, edge := range header.Predecessors {
			if edge.IsBackEdge() {
				backEdges++
			}
		}
		if backEdges != 1 {
			t.Errorf("Expected 1 back edge, got %d", backEdges)
		}
		if exit := cfg.StmtExit[loop]; exit.Label != LabelLoopExit {
			t.Errorf("Expected loop exit block, got %s", exit.Label)
		}
	})

	t.Run("BuildForElseWithBreak", func(t *testing.T) {
		source := `
for i in items:
    if i:
        break
else:
    found = False
print(i)
`
		ast := parseSource(t, source)
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		loop := ast.Body[0]
		elseBlock := cfg.StmtExit[loop]
		if elseBlock.Label != LabelLoopElse {
			t.Fatalf("Expected else block as loop exit, got %s", elseBlock.Label)
		}
		exit := blockOf(cfg, ast.Body[1])
		if exit == nil || exit.Label != LabelLoopExit {
			t.Fatal("Expected print in loop exit block")
		}
		breaks := 0
		for _, edge := range exit.Predecessors {
			if edge.Type == EdgeBreak {
				breaks++
			}
		}
		if breaks != 1 {
			t.Errorf("Expected break edge to skip the else block, got %d", breaks)
		}
	})

	t.Run("BuildContinue", func(t *testing.T) {
		source := `
while a:
    if b:
        continue
    c()
`
		ast := parseSource(t, source)
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !hasEdge(cfg, EdgeContinue, blockOf(cfg, ast.Body[0])) {
			t.Error("Expected continue edge to loop header")
		}
	})

	t.Run("BuildWithReturn", func(t *testing.T) {
		source := `
def early_return(x):
    if x > 0:
        return x
    print("negative")
    return 0
`
		cfg, err := NewCFGBuilder().Build(parseSource(t, source).Body[0])
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		returns := 0
		for _, edge := range cfg.Exit.Predecessors {
			if edge.Type == EdgeReturn {
				returns++
			}
		}
		if returns != 2 {
			t.Errorf("Expected 2 return edges, got %d", returns)
		}
		for _, block := range cfg.Order {
			if block.Label == LabelUnreachable && block.IsEmpty() && len(block.Predecessors) == 0 {
				t.Errorf("Expected empty unreachable block %s to be pruned", block.ID)
			}
		}
	})

	t.Run("BuildTry", func(t *testing.T) {
		source := `
try:
    x = f()
    y = g()
except ValueError as e:
    x = None
finally:
    done = True
`
		ast := parseSource(t, source)
		cfg, err := NewCFGBuilder().Build(ast)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if countLabel(cfg, LabelTryExcept) != 1 {
			t.Error("Expected one handler block")
		}
		if countLabel(cfg, LabelTryFinally) != 1 {
			t.Error("Expected finally block")
		}
		if !hasEdge(cfg, EdgeException, nil) {
			t.Error("Expected exception edges into the handler")
		}
	})
}

func parseSource(t *testing.T, source string) *parser.Node {
	t.Helper()
	result, err := parser.New().Parse(context.Background(), []byte(source))
	if err != nil {
		t.Fatalf("Failed to parse source: %v", err)
	}
	if result.AST == nil {
		t.Fatal("Parsed AST is nil")
	}
	return result.AST
}

func countStatements(cfg *CFG) int {
	count := 0
	for _, block := range cfg.Order {
		count += len(block.Statements)
	}
	return count
}

func countLabel(cfg *CFG, label string) int {
	count := 0
	for _, block := range cfg.Order {
		if block.Label == label {
			count++
		}
	}
	return count
}

func blockOf(cfg *CFG, stmt *parser.Node) *BasicBlock {
	for _, block := range cfg.Order {
		for _, s := range block.Statements {
			if s == stmt {
				return block
			}
		}
	}
	return nil
}

func hasEdgeFrom(block *BasicBlock, edgeType EdgeType) bool {
	for _, edge := range block.Successors {
		if edge.Type == edgeType {
			return true
		}
	}
	return false
}

// hasEdge reports whether some edge of the given type reaches to (any
// target when to is nil)
func hasEdge(cfg *CFG, edgeType EdgeType, to *BasicBlock) bool {
	for _, block := range cfg.Order {
		for _, edge := range block.Successors {
			if edge.Type == edgeType && (to == nil || edge.To == to) {
				return true
			}
		}
	}
	return false
}

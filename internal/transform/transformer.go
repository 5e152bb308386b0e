package transform

import (
	"fmt"

	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// ConstructKind names a rewritten statement kind
type ConstructKind string

const (
	ConstructIf    ConstructKind = "if"
	ConstructWhile ConstructKind = "while"
	ConstructFor   ConstructKind = "for"
)

// ConstructReport describes one rewritten statement
type ConstructReport struct {
	Kind      ConstructKind `json:"kind" yaml:"kind"`
	Line      int           `json:"line" yaml:"line"`
	State     []string      `json:"state,omitempty" yaml:"state,omitempty"`
	Undefined []string      `json:"undefined,omitempty" yaml:"undefined,omitempty"`
	Aliased   []string      `json:"aliased,omitempty" yaml:"aliased,omitempty"`
	EarlyStop bool          `json:"early_stop,omitempty" yaml:"early_stop,omitempty"`
}

// Stats summarizes one transform run
type Stats struct {
	Conditionals    int               `json:"conditionals" yaml:"conditionals"`
	WhileLoops      int               `json:"while_loops" yaml:"while_loops"`
	ForLoops        int               `json:"for_loops" yaml:"for_loops"`
	UndefinedGuards int               `json:"undefined_guards" yaml:"undefined_guards"`
	Constructs      []ConstructReport `json:"constructs,omitempty" yaml:"constructs,omitempty"`
}

// Total returns the number of rewritten statements
func (s *Stats) Total() int {
	return s.Conditionals + s.WhileLoops + s.ForLoops
}

// ControlFlowTransformer rewrites if, while and for statements into calls
// to the runtime primitives. It reads the annotations of the input tree and
// builds a new tree; the input is left untouched.
type ControlFlowTransformer struct {
	ctx   *Context
	stats *Stats
}

// NewControlFlowTransformer creates a transformer bound to ctx
func NewControlFlowTransformer(ctx *Context) *ControlFlowTransformer {
	return &ControlFlowTransformer{ctx: ctx, stats: &Stats{}}
}

// Stats returns the statistics collected so far
func (t *ControlFlowTransformer) Stats() *Stats {
	return t.stats
}

// ConvertControlFlow rewrites every convertible statement under root. The
// tree must have been annotated with analyzer.Analyze using ctx.Annotations.
func ConvertControlFlow(root *parser.Node, ctx *Context) (*parser.Node, error) {
	return NewControlFlowTransformer(ctx).Transform(root)
}

// Transform rewrites a module. Either the whole module converts or an error
// is returned and no tree is produced.
func (t *ControlFlowTransformer) Transform(root *parser.Node) (*parser.Node, error) {
	if root == nil || root.Type != parser.NodeModule {
		return nil, fmt.Errorf("transform requires a module node")
	}
	if t.ctx == nil || t.ctx.Annotations == nil || t.ctx.Namer == nil {
		return nil, fmt.Errorf("transform context is incomplete")
	}

	body, err := t.visitBlock(root.Body)
	if err != nil {
		return nil, err
	}
	out := parser.NewNode(parser.NodeModule)
	out.Location = root.Location
	out.Body = body
	return out, nil
}

func (t *ControlFlowTransformer) visitBlock(stmts []*parser.Node) ([]*parser.Node, error) {
	var out []*parser.Node
	for _, stmt := range stmts {
		converted, err := t.visitStatement(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (t *ControlFlowTransformer) visitStatement(stmt *parser.Node) ([]*parser.Node, error) {
	switch stmt.Type {
	case parser.NodeIf:
		return t.visitIf(stmt)
	case parser.NodeWhile:
		return t.visitWhile(stmt)
	case parser.NodeFor:
		return t.visitFor(stmt)
	case parser.NodeFunctionDef, parser.NodeWith:
		return t.withBody(stmt, t.visitBlock)
	case parser.NodeClassDef:
		return t.withBody(stmt, t.visitClassBody)
	case parser.NodeTry:
		return t.visitTry(stmt)
	}
	return []*parser.Node{stmt.Copy()}, nil
}

// withBody copies stmt and replaces its body with the converted one
func (t *ControlFlowTransformer) withBody(stmt *parser.Node, visit func([]*parser.Node) ([]*parser.Node, error)) ([]*parser.Node, error) {
	body, err := visit(stmt.Body)
	if err != nil {
		return nil, err
	}
	out := stmt.Copy()
	out.Body = body
	return []*parser.Node{out}, nil
}

// visitClassBody converts the methods of a class. Statements running in
// the class namespace stay as they are: closures cannot see class-level
// names.
func (t *ControlFlowTransformer) visitClassBody(stmts []*parser.Node) ([]*parser.Node, error) {
	var out []*parser.Node
	for _, stmt := range stmts {
		switch stmt.Type {
		case parser.NodeFunctionDef, parser.NodeClassDef:
			converted, err := t.visitStatement(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, converted...)
		default:
			out = append(out, stmt.Copy())
		}
	}
	return out, nil
}

func (t *ControlFlowTransformer) visitTry(stmt *parser.Node) ([]*parser.Node, error) {
	out := stmt.Copy()
	var err error
	if out.Body, err = t.visitBlock(stmt.Body); err != nil {
		return nil, err
	}
	for i, handler := range stmt.Handlers {
		if out.Handlers[i].Body, err = t.visitBlock(handler.Body); err != nil {
			return nil, err
		}
	}
	if out.Orelse, err = t.visitBlock(stmt.Orelse); err != nil {
		return nil, err
	}
	if out.Finalbody, err = t.visitBlock(stmt.Finalbody); err != nil {
		return nil, err
	}
	return []*parser.Node{out}, nil
}

// info returns the annotations of stmt or a precondition error
func (t *ControlFlowTransformer) info(stmt *parser.Node) (*analyzer.NodeInfo, error) {
	info, ok := t.ctx.Annotations.Get(stmt)
	if !ok || info.BodyScope == nil || info.OrelseScope == nil || info.CondScope == nil ||
		info.DefinedIn == nil || info.LiveIn == nil || info.LiveOut == nil {
		return nil, preconditionf(stmt, "%s statement is missing scope or liveness annotations", stmt.Type)
	}
	return info, nil
}

// checkConvertible rejects statements whose body cannot move into a
// closure. Nested function, class and lambda bodies are not inspected.
func checkConvertible(stmt *parser.Node) error {
	var err error
	var visit func(n *parser.Node) bool
	visit = func(n *parser.Node) bool {
		if err != nil {
			return false
		}
		switch n.Type {
		case parser.NodeFunctionDef, parser.NodeClassDef:
			for _, d := range n.Decorator {
				d.Walk(visit)
			}
			return false
		case parser.NodeLambda:
			return false
		case parser.NodeBreak, parser.NodeContinue, parser.NodeReturn:
			err = preconditionf(n, "%s inside a converted %s statement must be lowered first", n.Type, stmt.Type)
		case parser.NodeYield, parser.NodeYieldFrom:
			err = unsupportedf(n, "%s inside a converted %s statement", n.Type, stmt.Type)
		case parser.NodeGlobal, parser.NodeNonlocal:
			err = unsupportedf(n, "%s declaration inside a converted %s statement", n.Type, stmt.Type)
		}
		return err == nil
	}
	for _, list := range [][]*parser.Node{stmt.Body, stmt.Orelse} {
		for _, n := range list {
			n.Walk(visit)
		}
	}
	if stmt.Type == parser.NodeWhile {
		stmt.Test.Walk(visit)
	}
	return err
}

// record appends a construct report and logs it
func (t *ControlFlowTransformer) record(report ConstructReport) {
	switch report.Kind {
	case ConstructIf:
		t.stats.Conditionals++
	case ConstructWhile:
		t.stats.WhileLoops++
	case ConstructFor:
		t.stats.ForLoops++
	}
	t.stats.Constructs = append(t.stats.Constructs, report)
	t.ctx.logf("ControlFlowTransformer: %s at line %d: state=%v undefined=%v",
		report.Kind, report.Line, report.State, report.Undefined)
}

// returnValue builds the value a closure returns for syms: the symbol
// itself for one, a tuple otherwise
func returnValue(syms []*analyzer.Symbol) *parser.Node {
	if len(syms) == 1 {
		return syms[0].ToNode()
	}
	elts := make([]*parser.Node, len(syms))
	for i, s := range syms {
		elts[i] = s.ToNode()
	}
	return parser.NewTuple(elts...)
}

func locate(nodes []*parser.Node, loc parser.Location) []*parser.Node {
	for _, n := range nodes {
		if n.Location == (parser.Location{}) {
			n.Location = loc
		}
	}
	return nodes
}

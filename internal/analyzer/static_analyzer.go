package analyzer

import (
	"fmt"
	"log"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// StaticAnalyzer attaches scope, liveness and reaching-definition facts to
// every statement of a module. Each module, class and function body is
// analyzed as its own unit.
type StaticAnalyzer struct {
	activity *ActivityAnalyzer
	logger   *log.Logger
}

// NewStaticAnalyzer creates a static analyzer
func NewStaticAnalyzer() *StaticAnalyzer {
	return &StaticAnalyzer{activity: NewActivityAnalyzer()}
}

// SetLogger sets an optional logger for diagnostics
func (a *StaticAnalyzer) SetLogger(logger *log.Logger) {
	a.logger = logger
}

// Analyze annotates root with a fresh StaticAnalyzer
func Analyze(root *parser.Node, annos *Annotations) error {
	return NewStaticAnalyzer().Analyze(root, annos)
}

// Analyze annotates every statement under root. Existing ExtraTest
// annotations are kept and their reads count as reads of the loop header.
func (a *StaticAnalyzer) Analyze(root *parser.Node, annos *Annotations) error {
	if root == nil {
		return fmt.Errorf("cannot analyze nil node")
	}
	if annos == nil {
		return fmt.Errorf("annotations table is nil")
	}

	units := []*parser.Node{root}
	for _, stmt := range root.Body {
		stmt.Walk(func(n *parser.Node) bool {
			if n.Type == parser.NodeFunctionDef || n.Type == parser.NodeClassDef {
				units = append(units, n)
			}
			return true
		})
	}
	for _, unit := range units {
		if err := a.analyzeUnit(unit, annos); err != nil {
			return err
		}
	}
	return nil
}

func (a *StaticAnalyzer) analyzeUnit(unit *parser.Node, annos *Annotations) error {
	builder := NewCFGBuilder()
	builder.SetLogger(a.logger)
	cfg, err := builder.Build(unit)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", unit.Type, err)
	}

	headers := make(map[*parser.Node]*Scope)
	header := func(stmt *parser.Node) *Scope {
		if scope, ok := headers[stmt]; ok {
			return scope
		}
		scope := a.activity.HeaderScope(stmt)
		if stmt.Type == parser.NodeFor {
			if extra := annos.ExtraTest(stmt); extra != nil {
				scope.Read.AddAll(a.activity.ExprScope(extra).Read)
			}
		}
		headers[stmt] = scope
		return scope
	}

	flow := NewDataflow(cfg, header, a.activity.TargetScope)
	flow.SolveLiveness(a.exitLive(unit))
	flow.SolveReaching(unitParameters(unit))

	for _, block := range cfg.Order {
		if block.IsEntry || block.IsExit {
			continue
		}

		defined := flow.ReachIn[block].Clone()
		for _, stmt := range block.Statements {
			info := annos.Info(stmt)
			info.DefinedIn = defined.Clone()
			if entry, ok := cfg.StmtEntry[stmt]; ok {
				info.DefinedIn = flow.ReachOut[entry].Clone()
			}
			defined.AddAll(header(stmt).Modified)
		}

		live := flow.LiveOut[block]
		for i := len(block.Statements) - 1; i >= 0; i-- {
			stmt := block.Statements[i]
			info := annos.Info(stmt)
			info.LiveOut = live
			if exit, ok := cfg.StmtExit[stmt]; ok {
				info.LiveOut = flow.LiveIn[exit]
			}
			live = flow.liveBefore(stmt, live)
			info.LiveIn = live
		}

		for _, stmt := range block.Statements {
			a.attachScopes(stmt, annos.Info(stmt))
		}
	}

	if a.logger != nil {
		a.logger.Printf("StaticAnalyzer: %s: %d blocks", cfg.Name, cfg.Size())
	}
	return nil
}

func (a *StaticAnalyzer) attachScopes(stmt *parser.Node, info *NodeInfo) {
	switch stmt.Type {
	case parser.NodeIf, parser.NodeWhile:
		info.BodyScope = a.activity.BlockScope(stmt.Body)
		info.OrelseScope = a.activity.BlockScope(stmt.Orelse)
		info.CondScope = a.activity.ExprScope(stmt.Test)
	case parser.NodeFor:
		info.BodyScope = a.activity.BlockScope(stmt.Body)
		info.OrelseScope = a.activity.BlockScope(stmt.Orelse)
		info.CondScope = a.activity.ExprScope(stmt.Iter)
		info.IterateScope = a.activity.TargetScope(stmt)
	}
}

// exitLive returns the symbols observable once the unit finishes: module
// and class bodies publish every name they bind, functions publish names
// declared global or nonlocal.
func (a *StaticAnalyzer) exitLive(unit *parser.Node) *SymbolSet {
	if unit.Type == parser.NodeFunctionDef {
		out := NewSymbolSet()
		for name := range declaredNonLocal(unit.Body) {
			out.Add(NewSimpleSymbol(name))
		}
		return out
	}
	return a.activity.BlockScope(unit.Body).Modified.Filter((*Symbol).IsSimple)
}

// unitParameters returns the names bound on entry to a function
func unitParameters(unit *parser.Node) *SymbolSet {
	params := NewSymbolSet()
	if unit.Type != parser.NodeFunctionDef {
		return params
	}
	for _, arg := range unit.Args {
		if arg.Name != "" && arg.Name != "*" && arg.Name != "/" {
			params.Add(NewSimpleSymbol(arg.Name))
		}
	}
	return params
}

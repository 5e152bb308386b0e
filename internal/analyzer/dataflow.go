package analyzer

import (
	"github.com/ludo-technologies/pystage/internal/parser"
)

// Dataflow holds block-level liveness and reaching-definition solutions
// for one CFG.
//
// Liveness is the usual backward may-analysis: in = read ∪ (out − modified).
// Reaching definitions are tracked per symbol rather than per definition
// site, forward, with union at joins and no kills: a symbol is defined at a
// point when some assignment to it may reach that point along forward
// edges. A back edge carries only the symbols live at its loop header,
// which are the values a converted loop threads from one iteration to the
// next.
//
// A for loop binds its target on the edge from the header into the body,
// never at the header itself: a loop that runs zero times leaves the
// target untouched.
type Dataflow struct {
	cfg    *CFG
	header func(*parser.Node) *Scope
	target func(*parser.Node) *Scope

	LiveIn   map[*BasicBlock]*SymbolSet
	LiveOut  map[*BasicBlock]*SymbolSet
	ReachIn  map[*BasicBlock]*SymbolSet
	ReachOut map[*BasicBlock]*SymbolSet
}

// NewDataflow prepares a solver over cfg. header returns the activity of a
// statement at its own CFG position, target the activity of binding a for
// loop's target.
func NewDataflow(cfg *CFG, header, target func(*parser.Node) *Scope) *Dataflow {
	return &Dataflow{
		cfg:      cfg,
		header:   header,
		target:   target,
		LiveIn:   make(map[*BasicBlock]*SymbolSet),
		LiveOut:  make(map[*BasicBlock]*SymbolSet),
		ReachIn:  make(map[*BasicBlock]*SymbolSet),
		ReachOut: make(map[*BasicBlock]*SymbolSet),
	}
}

// SolveLiveness iterates to a fixed point; exitLive is live at the exit
func (d *Dataflow) SolveLiveness(exitLive *SymbolSet) {
	for _, block := range d.cfg.Order {
		d.LiveIn[block] = NewSymbolSet()
		d.LiveOut[block] = NewSymbolSet()
	}
	d.LiveIn[d.cfg.Exit] = exitLive.Clone()
	d.LiveOut[d.cfg.Exit] = exitLive.Clone()

	for changed := true; changed; {
		changed = false
		for i := len(d.cfg.Order) - 1; i >= 0; i-- {
			block := d.cfg.Order[i]
			if block.IsExit {
				continue
			}
			out := NewSymbolSet()
			for _, edge := range block.Successors {
				out.AddAll(d.liveAcross(edge))
			}
			in := out
			for j := len(block.Statements) - 1; j >= 0; j-- {
				in = d.liveBefore(block.Statements[j], in)
			}
			d.LiveOut[block] = out
			if !in.Equal(d.LiveIn[block]) {
				d.LiveIn[block] = in
				changed = true
			}
		}
	}
}

// liveBefore applies the backward transfer of one statement
func (d *Dataflow) liveBefore(stmt *parser.Node, after *SymbolSet) *SymbolSet {
	scope := d.header(stmt)
	return scope.Read.Union(after.Difference(scope.Modified))
}

// liveAcross returns what is live at the source end of edge
func (d *Dataflow) liveAcross(edge *Edge) *SymbolSet {
	if loop := d.iteration(edge); loop != nil {
		scope := d.target(loop)
		return scope.Read.Union(d.LiveIn[edge.To].Difference(scope.Modified))
	}
	return d.LiveIn[edge.To]
}

// SolveReaching iterates to a fixed point; entryDefs are defined on entry.
// Back edges are filtered by liveness, so SolveLiveness must run first.
func (d *Dataflow) SolveReaching(entryDefs *SymbolSet) {
	for _, block := range d.cfg.Order {
		d.ReachIn[block] = NewSymbolSet()
		d.ReachOut[block] = NewSymbolSet()
	}
	d.ReachIn[d.cfg.Entry] = entryDefs.Clone()
	d.ReachOut[d.cfg.Entry] = entryDefs.Clone()

	for changed := true; changed; {
		changed = false
		for _, block := range d.cfg.Order {
			if block.IsEntry {
				continue
			}
			in := NewSymbolSet()
			for _, edge := range block.Predecessors {
				in.AddAll(d.reachAcross(edge))
			}
			out := in.Clone()
			for _, stmt := range block.Statements {
				out.AddAll(d.header(stmt).Modified)
			}
			d.ReachIn[block] = in
			if !out.Equal(d.ReachOut[block]) {
				d.ReachOut[block] = out
				changed = true
			}
		}
	}
}

// reachAcross returns the definitions arriving at the target end of edge
func (d *Dataflow) reachAcross(edge *Edge) *SymbolSet {
	defs := d.ReachOut[edge.From]
	if edge.IsBackEdge() {
		return defs.Intersect(d.LiveIn[edge.To])
	}
	if loop := d.iteration(edge); loop != nil {
		return defs.Union(d.target(loop).Modified)
	}
	return defs
}

// iteration returns the for loop whose header edge enters the loop body
func (d *Dataflow) iteration(edge *Edge) *parser.Node {
	if edge.Type != EdgeCondTrue || len(edge.From.Statements) == 0 {
		return nil
	}
	last := edge.From.Statements[len(edge.From.Statements)-1]
	if last.Type != parser.NodeFor {
		return nil
	}
	return last
}

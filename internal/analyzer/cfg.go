package analyzer

import (
	"fmt"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// EdgeType classifies how control moves between two blocks
type EdgeType int

const (
	EdgeNormal EdgeType = iota
	EdgeCondTrue
	EdgeCondFalse
	// EdgeException leaves a try body for its handlers
	EdgeException
	// EdgeLoop returns from the end of a loop body to its header
	EdgeLoop
	EdgeBreak
	// EdgeContinue returns to the loop header like EdgeLoop
	EdgeContinue
	EdgeReturn
)

// Edge connects two blocks
type Edge struct {
	From *BasicBlock
	To   *BasicBlock
	Type EdgeType
}

// IsBackEdge reports whether an edge closes a loop. Reaching definitions
// carry across a back edge only the symbols live at the loop header.
func (e *Edge) IsBackEdge() bool {
	return e.Type == EdgeLoop || e.Type == EdgeContinue
}

// BasicBlock is a straight-line run of simple statements. Compound
// statements contribute only their header (test, iterable, with items) to
// the block that evaluates it.
type BasicBlock struct {
	ID           string
	Label        string
	Statements   []*parser.Node
	Predecessors []*Edge
	Successors   []*Edge

	IsEntry bool
	IsExit  bool
}

// AddStatement appends stmt to the block
func (bb *BasicBlock) AddStatement(stmt *parser.Node) {
	if stmt != nil {
		bb.Statements = append(bb.Statements, stmt)
	}
}

// IsEmpty reports whether the block holds no statements
func (bb *BasicBlock) IsEmpty() bool {
	return len(bb.Statements) == 0
}

// CFG is the control flow graph of one function or module body
type CFG struct {
	Name  string
	Entry *BasicBlock
	Exit  *BasicBlock

	// Order lists blocks in creation order, which is also the order the
	// dataflow solvers sweep them
	Order []*BasicBlock

	// StmtExit maps a compound statement to the block control reaches once
	// the whole statement (its else clause included) has completed
	StmtExit map[*parser.Node]*BasicBlock

	// StmtEntry maps a loop to the block that flows into its header from
	// outside the loop
	StmtEntry map[*parser.Node]*BasicBlock

	nextBlockID int
}

// NewCFG creates a graph holding only its entry and exit blocks
func NewCFG(name string) *CFG {
	cfg := &CFG{
		Name:      name,
		StmtExit:  make(map[*parser.Node]*BasicBlock),
		StmtEntry: make(map[*parser.Node]*BasicBlock),
	}

	cfg.Entry = cfg.CreateBlock(LabelEntry)
	cfg.Entry.IsEntry = true
	cfg.Exit = cfg.CreateBlock(LabelExit)
	cfg.Exit.IsExit = true
	return cfg
}

// CreateBlock adds an empty block
func (cfg *CFG) CreateBlock(label string) *BasicBlock {
	block := &BasicBlock{
		ID:    fmt.Sprintf("bb%d", cfg.nextBlockID),
		Label: label,
	}
	cfg.nextBlockID++
	cfg.Order = append(cfg.Order, block)
	return block
}

// ConnectBlocks adds an edge from one block to another. Either may be nil,
// in which case nothing is connected.
func (cfg *CFG) ConnectBlocks(from, to *BasicBlock, edgeType EdgeType) *Edge {
	if from == nil || to == nil {
		return nil
	}
	edge := &Edge{From: from, To: to, Type: edgeType}
	from.Successors = append(from.Successors, edge)
	to.Predecessors = append(to.Predecessors, edge)
	return edge
}

// RemoveBlock detaches block from its neighbours and drops it from the
// graph. Entry and exit are never removed.
func (cfg *CFG) RemoveBlock(block *BasicBlock) {
	if block == nil || block.IsEntry || block.IsExit {
		return
	}

	for _, edge := range block.Predecessors {
		edge.From.Successors = withoutEdge(edge.From.Successors, edge)
	}
	for _, edge := range block.Successors {
		edge.To.Predecessors = withoutEdge(edge.To.Predecessors, edge)
	}
	block.Predecessors = nil
	block.Successors = nil

	for i, b := range cfg.Order {
		if b == block {
			cfg.Order = append(cfg.Order[:i], cfg.Order[i+1:]...)
			break
		}
	}
}

// Size returns the number of blocks
func (cfg *CFG) Size() int {
	return len(cfg.Order)
}

func withoutEdge(edges []*Edge, drop *Edge) []*Edge {
	kept := edges[:0]
	for _, e := range edges {
		if e != drop {
			kept = append(kept, e)
		}
	}
	return kept
}

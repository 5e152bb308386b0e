package analyzer

import (
	"fmt"
	"log"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// Block label constants to avoid magic strings
const (
	LabelFunctionBody = "func_body"
	LabelUnreachable  = "unreachable"
	LabelMainModule   = "main"
	LabelEntry        = "ENTRY"
	LabelExit         = "EXIT"

	LabelIfThen     = "if_then"
	LabelIfElse     = "if_else"
	LabelIfMerge    = "if_merge"
	LabelLoopHeader = "loop_header"
	LabelLoopBody   = "loop_body"
	LabelLoopElse   = "loop_else"
	LabelLoopExit   = "loop_exit"
	LabelTryBody    = "try_body"
	LabelTryExcept  = "try_except"
	LabelTryElse    = "try_else"
	LabelTryFinally = "try_finally"
)

// loopContext tracks the jump targets of the innermost enclosing loop
type loopContext struct {
	header *BasicBlock
	exit   *BasicBlock
}

// CFGBuilder builds the control flow graph of one analysis unit: a module,
// class or function body. Nested function and class definitions appear as
// single statements; their bodies are separate units.
//
// Compound statements are placed as the last statement of the block that
// evaluates their header: an if sits at the end of the block evaluating its
// test, a while or for sits alone in its loop header block.
type CFGBuilder struct {
	// cfg is the control flow graph being built
	cfg *CFG

	// currentBlock is the block currently being populated
	currentBlock *BasicBlock

	// loopStack tracks enclosing loops for break and continue
	loopStack []loopContext

	// logger for error reporting (optional)
	logger *log.Logger
}

// NewCFGBuilder creates a new CFG builder
func NewCFGBuilder() *CFGBuilder {
	return &CFGBuilder{}
}

// SetLogger sets an optional logger for error reporting
func (b *CFGBuilder) SetLogger(logger *log.Logger) {
	b.logger = logger
}

// logError logs an error if a logger is set
func (b *CFGBuilder) logError(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Printf("CFGBuilder: "+format, args...)
	}
}

// Build constructs the CFG of a module, class or function body
func (b *CFGBuilder) Build(node *parser.Node) (*CFG, error) {
	if node == nil {
		return nil, fmt.Errorf("cannot build CFG from nil node")
	}

	cfgName := LabelMainModule
	switch node.Type {
	case parser.NodeModule:
	case parser.NodeFunctionDef, parser.NodeClassDef:
		cfgName = node.Name
	default:
		return nil, fmt.Errorf("cannot build CFG from %s node", node.Type)
	}

	b.cfg = NewCFG(cfgName)
	b.loopStack = nil
	bodyBlock := b.createBlock(LabelFunctionBody)
	b.cfg.ConnectBlocks(b.cfg.Entry, bodyBlock, EdgeNormal)
	b.currentBlock = bodyBlock

	b.processStatements(node.Body)

	if b.currentBlock != nil && !b.hasSuccessor(b.currentBlock, b.cfg.Exit) {
		b.cfg.ConnectBlocks(b.currentBlock, b.cfg.Exit, EdgeNormal)
	}
	b.pruneUnreachable()

	return b.cfg, nil
}

func (b *CFGBuilder) processStatements(stmts []*parser.Node) {
	for _, stmt := range stmts {
		b.processStatement(stmt)
	}
}

// processStatement processes a single statement
func (b *CFGBuilder) processStatement(stmt *parser.Node) {
	if stmt == nil {
		return
	}

	switch stmt.Type {
	case parser.NodeIf:
		b.processIf(stmt)
	case parser.NodeWhile, parser.NodeFor:
		b.processLoop(stmt)
	case parser.NodeWith:
		b.currentBlock.AddStatement(stmt)
		b.processStatements(stmt.Body)
	case parser.NodeTry:
		b.processTry(stmt)
	case parser.NodeReturn:
		b.currentBlock.AddStatement(stmt)
		b.jump(b.cfg.Exit, EdgeReturn)
	case parser.NodeRaise:
		b.currentBlock.AddStatement(stmt)
		b.jump(b.cfg.Exit, EdgeException)
	case parser.NodeBreak:
		b.currentBlock.AddStatement(stmt)
		if loop, ok := b.innermostLoop(); ok {
			b.jump(loop.exit, EdgeBreak)
		} else {
			b.logError("break outside loop at line %d", stmt.Location.StartLine)
		}
	case parser.NodeContinue:
		b.currentBlock.AddStatement(stmt)
		if loop, ok := b.innermostLoop(); ok {
			b.jump(loop.header, EdgeContinue)
		} else {
			b.logError("continue outside loop at line %d", stmt.Location.StartLine)
		}
	default:
		b.currentBlock.AddStatement(stmt)
	}
}

// processIf ends the current block with the if statement and merges both
// branches into a fresh block
func (b *CFGBuilder) processIf(stmt *parser.Node) {
	condBlock := b.currentBlock
	condBlock.AddStatement(stmt)
	merge := b.createBlock(LabelIfMerge)

	thenBlock := b.createBlock(LabelIfThen)
	b.cfg.ConnectBlocks(condBlock, thenBlock, EdgeCondTrue)
	b.currentBlock = thenBlock
	b.processStatements(stmt.Body)
	b.cfg.ConnectBlocks(b.currentBlock, merge, EdgeNormal)

	if len(stmt.Orelse) > 0 {
		elseBlock := b.createBlock(LabelIfElse)
		b.cfg.ConnectBlocks(condBlock, elseBlock, EdgeCondFalse)
		b.currentBlock = elseBlock
		b.processStatements(stmt.Orelse)
		b.cfg.ConnectBlocks(b.currentBlock, merge, EdgeNormal)
	} else {
		b.cfg.ConnectBlocks(condBlock, merge, EdgeCondFalse)
	}

	b.cfg.StmtExit[stmt] = merge
	b.currentBlock = merge
}

// processLoop builds header, body, optional else and exit blocks. break
// jumps past the else clause.
func (b *CFGBuilder) processLoop(stmt *parser.Node) {
	header := b.createBlock(LabelLoopHeader)
	b.cfg.StmtEntry[stmt] = b.currentBlock
	b.cfg.ConnectBlocks(b.currentBlock, header, EdgeNormal)
	header.AddStatement(stmt)

	exit := b.createBlock(LabelLoopExit)
	body := b.createBlock(LabelLoopBody)
	b.cfg.ConnectBlocks(header, body, EdgeCondTrue)

	b.loopStack = append(b.loopStack, loopContext{header: header, exit: exit})
	b.currentBlock = body
	b.processStatements(stmt.Body)
	b.cfg.ConnectBlocks(b.currentBlock, header, EdgeLoop)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	if len(stmt.Orelse) > 0 {
		elseBlock := b.createBlock(LabelLoopElse)
		b.cfg.ConnectBlocks(header, elseBlock, EdgeCondFalse)
		b.currentBlock = elseBlock
		b.processStatements(stmt.Orelse)
		b.cfg.ConnectBlocks(b.currentBlock, exit, EdgeNormal)
		b.cfg.StmtExit[stmt] = elseBlock
	} else {
		b.cfg.ConnectBlocks(header, exit, EdgeCondFalse)
		b.cfg.StmtExit[stmt] = exit
	}

	b.currentBlock = exit
}

// processTry approximates exceptional flow: every block of the try body may
// transfer to every handler.
func (b *CFGBuilder) processTry(stmt *parser.Node) {
	tryBlock := b.createBlock(LabelTryBody)
	b.cfg.ConnectBlocks(b.currentBlock, tryBlock, EdgeNormal)
	b.currentBlock = tryBlock

	first := len(b.cfg.Order)
	b.processStatements(stmt.Body)
	bodyBlocks := append([]*BasicBlock{tryBlock}, b.cfg.Order[first:]...)
	bodyEnd := b.currentBlock

	if len(stmt.Orelse) > 0 {
		elseBlock := b.createBlock(LabelTryElse)
		b.cfg.ConnectBlocks(bodyEnd, elseBlock, EdgeNormal)
		b.currentBlock = elseBlock
		b.processStatements(stmt.Orelse)
		bodyEnd = b.currentBlock
	}

	ends := []*BasicBlock{bodyEnd}
	for _, handler := range stmt.Handlers {
		handlerBlock := b.createBlock(LabelTryExcept)
		for _, from := range bodyBlocks {
			b.cfg.ConnectBlocks(from, handlerBlock, EdgeException)
		}
		handlerBlock.AddStatement(handler)
		b.currentBlock = handlerBlock
		b.processStatements(handler.Body)
		ends = append(ends, b.currentBlock)
	}

	label := LabelIfMerge
	if len(stmt.Finalbody) > 0 {
		label = LabelTryFinally
	}
	join := b.createBlock(label)
	for _, end := range ends {
		b.cfg.ConnectBlocks(end, join, EdgeNormal)
	}
	b.currentBlock = join
	b.processStatements(stmt.Finalbody)
}

// jump terminates the current block with an edge to target; following
// statements land in a fresh unreachable block
func (b *CFGBuilder) jump(target *BasicBlock, edgeType EdgeType) {
	b.cfg.ConnectBlocks(b.currentBlock, target, edgeType)
	b.currentBlock = b.createBlock(LabelUnreachable)
}

func (b *CFGBuilder) innermostLoop() (loopContext, bool) {
	if len(b.loopStack) == 0 {
		return loopContext{}, false
	}
	return b.loopStack[len(b.loopStack)-1], true
}

// pruneUnreachable drops empty unreachable blocks left behind by jumps
func (b *CFGBuilder) pruneUnreachable() {
	var dead []*BasicBlock
	for _, block := range b.cfg.Order {
		if block.Label == LabelUnreachable && block.IsEmpty() && len(block.Predecessors) == 0 && !b.isStmtExit(block) {
			dead = append(dead, block)
		}
	}
	for _, block := range dead {
		b.cfg.RemoveBlock(block)
	}
}

func (b *CFGBuilder) isStmtExit(block *BasicBlock) bool {
	for _, exit := range b.cfg.StmtExit {
		if exit == block {
			return true
		}
	}
	for _, entry := range b.cfg.StmtEntry {
		if entry == block {
			return true
		}
	}
	return false
}

// createBlock creates a new basic block
func (b *CFGBuilder) createBlock(label string) *BasicBlock {
	return b.cfg.CreateBlock(label)
}

// hasSuccessor checks if a block has a specific successor
func (b *CFGBuilder) hasSuccessor(from, to *BasicBlock) bool {
	for _, edge := range from.Successors {
		if edge.To == to {
			return true
		}
	}
	return false
}

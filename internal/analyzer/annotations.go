package analyzer

import (
	"sync"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// NodeInfo holds the static facts attached to one statement
type NodeInfo struct {
	// BodyScope is the activity of the body block (if, while, for)
	BodyScope *Scope
	// OrelseScope is the activity of the else block (if, loops)
	OrelseScope *Scope
	// CondScope is the activity of the test (if, while) or iterable (for)
	CondScope *Scope
	// IterateScope holds the names a for loop binds on each iteration
	IterateScope *Scope

	// DefinedIn holds symbols some definition of which reaches the statement
	DefinedIn *SymbolSet
	// LiveIn holds symbols that may be read before being redefined, starting
	// right before the statement
	LiveIn *SymbolSet
	// LiveOut holds symbols live right after the statement completes
	LiveOut *SymbolSet

	// ExtraTest is the early-stopping predicate of a for loop
	ExtraTest *parser.Node
}

// Annotations is a side table from statements to their static facts.
// Entries are keyed by node identity; copies of a node carry none.
type Annotations struct {
	mu    sync.RWMutex
	infos map[*parser.Node]*NodeInfo
}

// NewAnnotations creates an empty annotation table
func NewAnnotations() *Annotations {
	return &Annotations{infos: make(map[*parser.Node]*NodeInfo)}
}

// Get returns the facts recorded for node
func (a *Annotations) Get(node *parser.Node) (*NodeInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	info, ok := a.infos[node]
	return info, ok
}

// Info returns the facts for node, creating an empty record if needed
func (a *Annotations) Info(node *parser.Node) *NodeInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.infos[node]
	if !ok {
		info = &NodeInfo{}
		a.infos[node] = info
	}
	return info
}

// SetExtraTest marks a for loop as early-stopping with the given predicate
func (a *Annotations) SetExtraTest(loop *parser.Node, test *parser.Node) {
	a.Info(loop).ExtraTest = test
}

// ExtraTest returns the early-stopping predicate of a for loop, if any
func (a *Annotations) ExtraTest(loop *parser.Node) *parser.Node {
	if info, ok := a.Get(loop); ok {
		return info.ExtraTest
	}
	return nil
}

// Len returns the number of annotated nodes
func (a *Annotations) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.infos)
}

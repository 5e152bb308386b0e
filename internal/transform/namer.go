package transform

import (
	"fmt"

	"github.com/ludo-technologies/pystage/internal/analyzer"
)

// Namer hands out identifiers that collide neither with names spelled in
// the module being transformed nor with names it generated earlier. One
// Namer serves one transform run and is not safe for concurrent use.
type Namer struct {
	global    map[string]bool
	generated map[string]bool
}

// NewNamer creates a namer that avoids every name in global
func NewNamer(global map[string]bool) *Namer {
	seen := make(map[string]bool, len(global))
	for name := range global {
		seen[name] = true
	}
	return &Namer{global: seen, generated: make(map[string]bool)}
}

// NewSymbol returns stem, or stem_1, stem_2, ... whichever is first free of
// the module's names, earlier generated names and reserved
func (n *Namer) NewSymbol(stem string, reserved *analyzer.SymbolSet) string {
	name := stem
	for i := 1; n.taken(name, reserved); i++ {
		name = fmt.Sprintf("%s_%d", stem, i)
	}
	n.generated[name] = true
	return name
}

func (n *Namer) taken(name string, reserved *analyzer.SymbolSet) bool {
	return n.global[name] || n.generated[name] || reserved.HasKey(name)
}

// Generated reports whether name was produced by this namer
func (n *Namer) Generated(name string) bool {
	return n.generated[name]
}

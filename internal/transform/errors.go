package transform

import (
	"errors"
	"fmt"

	"github.com/ludo-technologies/pystage/internal/parser"
)

var (
	// ErrPrecondition reports input the rewrite cannot handle consistently:
	// missing annotations, unlowered jumps inside a converted construct, or
	// an early-stopping loop without loop state.
	ErrPrecondition = errors.New("precondition violation")

	// ErrUnsupported reports a construct that cannot be moved into a closure
	ErrUnsupported = errors.New("unsupported construct")
)

// preconditionf wraps ErrPrecondition with the offending node's position
func preconditionf(node *parser.Node, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrPrecondition, line(node), fmt.Sprintf(format, args...))
}

func unsupportedf(node *parser.Node, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrUnsupported, line(node), fmt.Sprintf(format, args...))
}

func line(node *parser.Node) int {
	if node == nil {
		return 0
	}
	return node.Location.StartLine
}

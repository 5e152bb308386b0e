package transform

import (
	"log"

	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// DefaultRuntimeModule is the name generated code uses to reach the
// runtime primitives
const DefaultRuntimeModule = "ag__"

// Runtime primitive names
const (
	PrimitiveIf        = "if_stmt"
	PrimitiveWhile     = "while_stmt"
	PrimitiveFor       = "for_stmt"
	PrimitiveUndefined = "Undefined"
)

// Context carries the state of one transform run: the naming context, the
// annotation table produced by analysis and the runtime module name.
type Context struct {
	Namer         *Namer
	Annotations   *analyzer.Annotations
	RuntimeModule string

	logger *log.Logger
}

// NewContext creates a context whose namer avoids every identifier of root
func NewContext(root *parser.Node) *Context {
	return &Context{
		Namer:         NewNamer(parser.Identifiers(root)),
		Annotations:   analyzer.NewAnnotations(),
		RuntimeModule: DefaultRuntimeModule,
	}
}

// SetLogger sets an optional logger for per-construct diagnostics
func (c *Context) SetLogger(logger *log.Logger) {
	c.logger = logger
}

func (c *Context) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// primitive returns the expression naming a runtime primitive
func (c *Context) primitive(name string) *parser.Node {
	module := c.RuntimeModule
	if module == "" {
		module = DefaultRuntimeModule
	}
	return parser.NewDottedName(module + "." + name)
}

package transform

import (
	"context"
	"fmt"
	"log"

	"github.com/ludo-technologies/pystage/internal/analyzer"
	"github.com/ludo-technologies/pystage/internal/parser"
)

// Options configures a conversion
type Options struct {
	// RuntimeModule prefixes the primitives in generated code
	RuntimeModule string
	// LowerJumps runs break, continue and return lowering before analysis
	LowerJumps bool
	// Logger receives per-construct diagnostics when set
	Logger *log.Logger
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		RuntimeModule: DefaultRuntimeModule,
		LowerJumps:    true,
	}
}

// Result is the outcome of converting one module
type Result struct {
	Source string
	Module *parser.Node
	Stats  *Stats
}

// Convert parses src and runs the whole pipeline: jump lowering, static
// analysis, control flow conversion and printing.
func Convert(ctx context.Context, src []byte, opts Options) (*Result, error) {
	root, err := parser.ParseModule(ctx, src)
	if err != nil {
		return nil, err
	}
	return ConvertModule(root, opts)
}

// ConvertModule runs the pipeline on an already parsed module. root is not
// modified.
func ConvertModule(root *parser.Node, opts Options) (*Result, error) {
	if root == nil || root.Type != parser.NodeModule {
		return nil, fmt.Errorf("convert requires a module node")
	}

	tctx := NewContext(root)
	if opts.RuntimeModule != "" {
		tctx.RuntimeModule = opts.RuntimeModule
	}
	tctx.SetLogger(opts.Logger)

	module := root
	if opts.LowerJumps {
		lowered, err := LowerJumps(root, tctx)
		if err != nil {
			return nil, fmt.Errorf("lowering jumps: %w", err)
		}
		module = lowered
	}

	static := analyzer.NewStaticAnalyzer()
	static.SetLogger(opts.Logger)
	if err := static.Analyze(module, tctx.Annotations); err != nil {
		return nil, err
	}

	transformer := NewControlFlowTransformer(tctx)
	converted, err := transformer.Transform(module)
	if err != nil {
		return nil, err
	}

	return &Result{
		Source: parser.Print(converted),
		Module: converted,
		Stats:  transformer.Stats(),
	}, nil
}

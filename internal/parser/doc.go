// Package parser turns Python source into the *Node tree the staging pass
// rewrites, and turns rewritten trees back into source.
//
// Parsing goes through tree-sitter; ASTBuilder maps the concrete syntax tree
// onto a small Python AST whose field layout is documented on Node. The
// factory helpers build synthesized code with the same layout, Rewrite makes
// modified copies without touching the input, and Print renders any tree as
// Python source.
//
// Basic usage:
//
//	result, err := parser.New().Parse(ctx, []byte("x = 1\n"))
//	if err != nil {
//	    // syntax error or unsupported construct
//	}
//	fmt.Print(parser.Print(result.AST))
package parser

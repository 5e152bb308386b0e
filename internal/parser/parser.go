package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser provides Python code parsing capabilities using tree-sitter
type Parser struct {
	parser *sitter.Parser
}

// New creates a new Parser instance with Python grammar
func New() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Parser{
		parser: parser,
	}
}

// ParseResult represents the result of parsing Python code
type ParseResult struct {
	Tree       *sitter.Tree
	RootNode   *sitter.Node
	SourceCode []byte
	AST        *Node
}

// Parse parses Python source code and builds the internal AST
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	return p.ParseNamed(ctx, "", source)
}

// ParseNamed parses source and records file in node locations
func (p *Parser) ParseNamed(ctx context.Context, file string, source []byte) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		if errNode := p.firstError(rootNode); errNode != nil {
			return nil, fmt.Errorf("syntax error at line %d, column %d",
				errNode.StartPoint().Row+1, errNode.StartPoint().Column+1)
		}
		return nil, fmt.Errorf("syntax errors found in source code")
	}

	ast, err := NewASTBuilder(source).WithFile(file).Build(tree)
	if err != nil {
		return nil, err
	}

	return &ParseResult{
		Tree:       tree,
		RootNode:   rootNode,
		SourceCode: source,
		AST:        ast,
	}, nil
}

// ParseModule is a convenience wrapper returning only the AST
func ParseModule(ctx context.Context, source []byte) (*Node, error) {
	result, err := New().Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	return result.AST, nil
}

func (p *Parser) firstError(node *sitter.Node) *sitter.Node {
	var found *sitter.Node
	_ = p.WalkTree(node, func(n *sitter.Node) error {
		if found == nil && (n.IsError() || n.IsMissing()) {
			found = n
		}
		return nil
	})
	return found
}

// WalkTree traverses the AST and calls the visitor function for each node
func (p *Parser) WalkTree(node *sitter.Node, visitor func(*sitter.Node) error) error {
	if err := visitor(node); err != nil {
		return err
	}

	childCount := int(node.ChildCount())
	for i := 0; i < childCount; i++ {
		child := node.Child(i)
		if err := p.WalkTree(child, visitor); err != nil {
			return err
		}
	}

	return nil
}

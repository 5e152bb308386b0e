package service

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/ludo-technologies/pystage/internal/parser"
)

// FileParseResult holds the cached parse of a single file
type FileParseResult struct {
	Sum      [sha256.Size]byte
	Module   *parser.Node
	ParseErr error
}

// ParseCache keeps the last parse of every file keyed by path. An entry is
// reused while the file content hashes the same, so watch mode only parses
// files that changed. Conversion never modifies a parsed module, which lets
// one tree be shared across runs. Safe for concurrent use.
type ParseCache struct {
	mu      sync.Mutex
	results map[string]*FileParseResult
	hits    int
}

// NewParseCache creates a new empty ParseCache.
func NewParseCache() *ParseCache {
	return &ParseCache{
		results: make(map[string]*FileParseResult),
	}
}

// Parse returns the module parsed from content, reusing the cached tree
// when filePath was parsed from identical content before. Parse errors are
// cached too.
func (c *ParseCache) Parse(ctx context.Context, filePath string, content []byte) (*parser.Node, error) {
	sum := sha256.Sum256(content)
	if r, ok := c.Get(filePath); ok && r.Sum == sum {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return r.Module, r.ParseErr
	}

	// tree-sitter parsers are not thread-safe; each call gets its own
	r := &FileParseResult{Sum: sum}
	result, err := parser.New().ParseNamed(ctx, filePath, content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		r.ParseErr = err
	} else {
		r.Module = result.AST
	}

	c.Put(filePath, r)
	return r.Module, r.ParseErr
}

// Put stores a parse result
func (c *ParseCache) Put(filePath string, result *FileParseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[filePath] = result
}

// Get retrieves a cached parse result. Returns (result, true) on hit.
func (c *ParseCache) Get(filePath string) (*FileParseResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[filePath]
	return r, ok
}

// Forget drops the entry of a removed file
func (c *ParseCache) Forget(filePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, filePath)
}

// Len returns the number of entries in the cache.
func (c *ParseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Hits returns how many Parse calls were served from the cache
func (c *ParseCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

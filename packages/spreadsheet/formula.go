package spreadsheet

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultParseCacheSize is the number of distinct formula texts kept parsed
const DefaultParseCacheSize = 4096

// FormulaTable caches parsed formulas by their input text. ASTs are never
// mutated after parsing, so cells that share a formula text share one tree.
// a table is tied to the bounds it parses against.
type FormulaTable struct {
	bounds Bounds
	cache  *lru.Cache[string, ASTNode]
	hits   uint64
	misses uint64
}

// NewFormulaTable creates a table holding up to size parsed formulas
func NewFormulaTable(size int, bounds Bounds) (*FormulaTable, error) {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	cache, err := lru.New[string, ASTNode](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create formula cache: %w", err)
	}
	return &FormulaTable{bounds: bounds, cache: cache}, nil
}

// Parse returns the AST for text, parsing on a miss. rejected text is not
// cached. a nil node with a nil error means the text was blank.
func (ft *FormulaTable) Parse(text string) (ASTNode, error) {
	if node, ok := ft.cache.Get(text); ok {
		ft.hits++
		return node, nil
	}
	ft.misses++

	node, err := ParseInput(text, ft.bounds)
	if err != nil || node == nil {
		return node, err
	}
	ft.cache.Add(text, node)
	return node, nil
}

// Stats returns cache hits, misses and the current entry count
func (ft *FormulaTable) Stats() (hits, misses uint64, entries int) {
	return ft.hits, ft.misses, ft.cache.Len()
}

// Clear drops every cached formula
func (ft *FormulaTable) Clear() {
	ft.cache.Purge()
}

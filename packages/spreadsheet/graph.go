package spreadsheet

import (
	"slices"
)

// EdgeSet is the operand set implied by one formula: the cells it reads
// directly and the ranges it aggregates. ranges are kept as rectangles and
// never expanded into their member cells.
type EdgeSet struct {
	Cells  []CellID
	Ranges []Range
}

// Empty reports whether the formula reads nothing
func (e EdgeSet) Empty() bool {
	return len(e.Cells) == 0 && len(e.Ranges) == 0
}

// StageEdges computes the operand set of a formula without touching any
// graph. duplicates are removed.
func StageEdges(node ASTNode) EdgeSet {
	var edges EdgeSet
	if node == nil {
		return edges
	}
	collectEdges(node, &edges)
	slices.Sort(edges.Cells)
	edges.Cells = slices.Compact(edges.Cells)
	edges.Ranges = dedupRanges(edges.Ranges)
	return edges
}

// collectEdges walks every node type
func collectEdges(node ASTNode, edges *EdgeSet) {
	switch n := node.(type) {
	case *CellRefNode:
		edges.Cells = append(edges.Cells, n.Cell)
	case *RangeFuncNode:
		edges.Ranges = append(edges.Ranges, n.Range)
	case *BinaryOpNode:
		collectEdges(n.Left, edges)
		collectEdges(n.Right, edges)
	case *UnaryOpNode:
		collectEdges(n.Operand, edges)
	case *SleepNode:
		collectEdges(n.Arg, edges)
	case *NumberNode, *StringNode:
		// literal nodes don't have dependencies
	}
}

func dedupRanges(ranges []Range) []Range {
	if len(ranges) < 2 {
		return ranges
	}
	seen := make(map[Range]struct{}, len(ranges))
	out := ranges[:0]
	for _, r := range ranges {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DependencyNode holds the forward edges of one formula cell
type DependencyNode struct {
	CellPrecedents  map[CellID]struct{} // cells this cell reads directly
	RangePrecedents map[Range]struct{}  // ranges this cell aggregates
}

// DependencyGraph manages cell dependencies and calculation order. only
// identifiers are stored here; cell content lives in Storage.
type DependencyGraph struct {
	nodes          map[CellID]*DependencyNode      // forward edges, formula cells only
	dependents     map[CellID]map[CellID]struct{}  // reverse direct edges, may name unassigned cells
	rangeObservers map[Range]map[CellID]struct{}   // range index: range -> cells aggregating it
	rangeChunks    map[ChunkKey]map[Range]struct{} // observed ranges by the chunks they overlap
	wideRanges     map[Range]struct{}              // observed ranges spanning too many chunks to bucket
}

// ranges covering more chunks than this are scanned instead of bucketed
const maxIndexedChunks = 256

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	dg := &DependencyGraph{}
	dg.Clear()
	return dg
}

// Edges returns the committed operand set of cell
func (dg *DependencyGraph) Edges(cell CellID) EdgeSet {
	node, exists := dg.nodes[cell]
	if !exists {
		return EdgeSet{}
	}
	edges := EdgeSet{
		Cells:  make([]CellID, 0, len(node.CellPrecedents)),
		Ranges: make([]Range, 0, len(node.RangePrecedents)),
	}
	for id := range node.CellPrecedents {
		edges.Cells = append(edges.Cells, id)
	}
	for r := range node.RangePrecedents {
		edges.Ranges = append(edges.Ranges, r)
	}
	slices.Sort(edges.Cells)
	return edges
}

// CommitEdges replaces the previous operand set of cell with the new one,
// keeping reverse entries and the range index in step with the forward
// edges. swapping the arguments undoes a commit exactly.
func (dg *DependencyGraph) CommitEdges(cell CellID, prev, next EdgeSet) {
	for _, precedent := range prev.Cells {
		if deps, exists := dg.dependents[precedent]; exists {
			delete(deps, cell)
			if len(deps) == 0 {
				delete(dg.dependents, precedent)
			}
		}
	}
	for _, r := range prev.Ranges {
		if observers, exists := dg.rangeObservers[r]; exists {
			delete(observers, cell)
			if len(observers) == 0 {
				delete(dg.rangeObservers, r)
				dg.unindexRange(r)
			}
		}
	}

	if next.Empty() {
		delete(dg.nodes, cell)
		return
	}

	node := &DependencyNode{
		CellPrecedents:  make(map[CellID]struct{}, len(next.Cells)),
		RangePrecedents: make(map[Range]struct{}, len(next.Ranges)),
	}
	for _, precedent := range next.Cells {
		node.CellPrecedents[precedent] = struct{}{}
		deps := dg.dependents[precedent]
		if deps == nil {
			deps = make(map[CellID]struct{})
			dg.dependents[precedent] = deps
		}
		deps[cell] = struct{}{}
	}
	for _, r := range next.Ranges {
		node.RangePrecedents[r] = struct{}{}
		observers := dg.rangeObservers[r]
		if observers == nil {
			observers = make(map[CellID]struct{})
			dg.rangeObservers[r] = observers
			dg.indexRange(r)
		}
		observers[cell] = struct{}{}
	}
	dg.nodes[cell] = node
}

// chunkSpan returns the chunk rows and columns r covers, and whether r is
// worth bucketing at all. inverted ranges contain nothing.
func chunkSpan(r Range) (first, last ChunkKey, ok bool) {
	if !r.Valid() {
		return first, last, false
	}
	first, last = chunkOf(r.Start), chunkOf(r.End)
	n := int(last.ChunkRow-first.ChunkRow+1) * int(last.ChunkCol-first.ChunkCol+1)
	return first, last, n <= maxIndexedChunks
}

func (dg *DependencyGraph) indexRange(r Range) {
	first, last, ok := chunkSpan(r)
	if !ok {
		if r.Valid() {
			dg.wideRanges[r] = struct{}{}
		}
		return
	}
	for row := first.ChunkRow; row <= last.ChunkRow; row++ {
		for col := first.ChunkCol; col <= last.ChunkCol; col++ {
			key := ChunkKey{ChunkRow: row, ChunkCol: col}
			bucket := dg.rangeChunks[key]
			if bucket == nil {
				bucket = make(map[Range]struct{})
				dg.rangeChunks[key] = bucket
			}
			bucket[r] = struct{}{}
		}
	}
}

func (dg *DependencyGraph) unindexRange(r Range) {
	delete(dg.wideRanges, r)
	first, last, ok := chunkSpan(r)
	if !ok {
		return
	}
	for row := first.ChunkRow; row <= last.ChunkRow; row++ {
		for col := first.ChunkCol; col <= last.ChunkCol; col++ {
			key := ChunkKey{ChunkRow: row, ChunkCol: col}
			if bucket := dg.rangeChunks[key]; bucket != nil {
				delete(bucket, r)
				if len(bucket) == 0 {
					delete(dg.rangeChunks, key)
				}
			}
		}
	}
}

// IsInRange checks if a cell is within a range
func (dg *DependencyGraph) IsInRange(cell CellID, r Range) bool {
	return r.Contains(cell)
}

// GetDirectDependents returns cells whose formula names cell directly
func (dg *DependencyGraph) GetDirectDependents(cell CellID) []CellID {
	deps := dg.dependents[cell]
	result := make([]CellID, 0, len(deps))
	for id := range deps {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

// Dependents returns every cell that reads cell, directly or through a
// range that contains it
func (dg *DependencyGraph) Dependents(cell CellID) []CellID {
	seen := make(map[CellID]struct{}, len(dg.dependents[cell]))
	for id := range dg.dependents[cell] {
		seen[id] = struct{}{}
	}
	observe := func(r Range) {
		if !r.Contains(cell) {
			return
		}
		for id := range dg.rangeObservers[r] {
			seen[id] = struct{}{}
		}
	}
	for r := range dg.rangeChunks[chunkOf(cell)] {
		observe(r)
	}
	for r := range dg.wideRanges {
		observe(r)
	}

	result := make([]CellID, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

// AffectedCells returns cell plus the transitive closure of its dependents,
// i.e. everything that must be recomputed after cell changes
func (dg *DependencyGraph) AffectedCells(cell CellID) []CellID {
	visited := map[CellID]struct{}{cell: {}}
	result := []CellID{cell}

	for i := 0; i < len(result); i++ {
		for _, dep := range dg.Dependents(result[i]) {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			result = append(result, dep)
		}
	}
	return result
}

// CalculationOrder orders cells with Kahn's algorithm over the edges that
// run between them. edges from cells outside the set are ignored, their
// values are already final. the second result is false when some cell can
// never be ordered, meaning the set contains a cycle.
func (dg *DependencyGraph) CalculationOrder(cells []CellID) ([]CellID, bool) {
	inSet := make(map[CellID]struct{}, len(cells))
	for _, id := range cells {
		inSet[id] = struct{}{}
	}

	inDegree := make(map[CellID]int, len(cells))
	successors := make(map[CellID][]CellID, len(cells))
	for _, id := range cells {
		for _, dep := range dg.Dependents(id) {
			if _, ok := inSet[dep]; !ok {
				continue
			}
			successors[id] = append(successors[id], dep)
			inDegree[dep]++
		}
	}

	queue := make([]CellID, 0, len(cells))
	for _, id := range cells {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	slices.Sort(queue)

	order := make([]CellID, 0, len(cells))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dep := range successors[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	return order, len(order) == len(cells)
}

// HasCycle checks the whole graph for circular dependencies
func (dg *DependencyGraph) HasCycle() bool {
	cells := make([]CellID, 0, len(dg.nodes))
	for id := range dg.nodes {
		cells = append(cells, id)
	}
	_, ok := dg.CalculationOrder(cells)
	return !ok
}

// NodeCount returns the number of formula cells with operands
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of distinct observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

// ObserversOf returns the cells aggregating exactly r
func (dg *DependencyGraph) ObserversOf(r Range) []CellID {
	observers := dg.rangeObservers[r]
	result := make([]CellID, 0, len(observers))
	for id := range observers {
		result = append(result, id)
	}
	slices.Sort(result)
	return result
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[CellID]*DependencyNode)
	dg.dependents = make(map[CellID]map[CellID]struct{})
	dg.rangeObservers = make(map[Range]map[CellID]struct{})
	dg.rangeChunks = make(map[ChunkKey]map[Range]struct{})
	dg.wideRanges = make(map[Range]struct{})
}

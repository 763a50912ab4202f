package spreadsheet

import (
	"slices"
	"testing"
)

func stage(t *testing.T, formula string) EdgeSet {
	t.Helper()
	node, err := ParseInput(formula, DefaultBounds())
	if err != nil {
		t.Fatalf("parse %q: %v", formula, err)
	}
	return StageEdges(node)
}

func refs(ids []CellID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func TestStageEdges(t *testing.T) {
	edges := stage(t, "=B1+A1*B1-SUM(C1:C9)+MAX(C1:C9)+SLEEP(D4)")
	if got := refs(edges.Cells); !slices.Equal(got, []string{"A1", "B1", "D4"}) {
		t.Errorf("cells = %v", got)
	}
	if len(edges.Ranges) != 1 || edges.Ranges[0].String() != "C1:C9" {
		t.Errorf("ranges = %v", edges.Ranges)
	}
	if !stage(t, "42").Empty() || !stage(t, `="x"`).Empty() {
		t.Error("constants have no operands")
	}
}

func TestCommitEdgesKeepsReverseEntries(t *testing.T) {
	dg := NewDependencyGraph()
	a1, b1, c1 := mustID(t, "A1"), mustID(t, "B1"), mustID(t, "C1")

	first := stage(t, "=B1+SUM(D1:D3)")
	dg.CommitEdges(a1, EdgeSet{}, first)
	if got := dg.GetDirectDependents(b1); !slices.Equal(got, []CellID{a1}) {
		t.Errorf("dependents of B1 = %v", refs(got))
	}
	if got := dg.Dependents(mustID(t, "D2")); !slices.Equal(got, []CellID{a1}) {
		t.Errorf("dependents of D2 = %v", refs(got))
	}

	second := stage(t, "=C1")
	dg.CommitEdges(a1, dg.Edges(a1), second)
	if len(dg.GetDirectDependents(b1)) != 0 {
		t.Error("stale reverse entry for B1")
	}
	if dg.RangeObserverCount() != 0 {
		t.Error("stale range observer")
	}
	if got := dg.GetDirectDependents(c1); !slices.Equal(got, []CellID{a1}) {
		t.Errorf("dependents of C1 = %v", refs(got))
	}

	// swapping the arguments undoes the commit
	dg.CommitEdges(a1, second, first)
	if got := dg.GetDirectDependents(b1); !slices.Equal(got, []CellID{a1}) {
		t.Errorf("dependents of B1 after undo = %v", refs(got))
	}
	if len(dg.GetDirectDependents(c1)) != 0 {
		t.Error("C1 still observed after undo")
	}

	dg.CommitEdges(a1, dg.Edges(a1), EdgeSet{})
	if dg.NodeCount() != 0 || dg.RangeObserverCount() != 0 || len(dg.dependents) != 0 {
		t.Error("graph not empty after clearing the only formula")
	}
}

func TestAffectedCells(t *testing.T) {
	dg := NewDependencyGraph()
	dg.CommitEdges(mustID(t, "B1"), EdgeSet{}, stage(t, "=A1"))
	dg.CommitEdges(mustID(t, "C1"), EdgeSet{}, stage(t, "=SUM(B1:B5)"))
	dg.CommitEdges(mustID(t, "D1"), EdgeSet{}, stage(t, "=C1+B1"))
	dg.CommitEdges(mustID(t, "E1"), EdgeSet{}, stage(t, "=Z9"))

	got := refs(dg.AffectedCells(mustID(t, "A1")))
	slices.Sort(got)
	if want := []string{"A1", "B1", "C1", "D1"}; !slices.Equal(got, want) {
		t.Errorf("AffectedCells(A1) = %v, want %v", got, want)
	}

	order, ok := dg.CalculationOrder(dg.AffectedCells(mustID(t, "A1")))
	if !ok {
		t.Fatal("unexpected cycle")
	}
	if want := []string{"A1", "B1", "C1", "D1"}; !slices.Equal(refs(order), want) {
		t.Errorf("order = %v, want %v", refs(order), want)
	}
}

func TestCalculationOrderDetectsCycles(t *testing.T) {
	tests := []struct {
		name     string
		formulas map[string]string
		cycle    bool
	}{
		{"chain", map[string]string{"A1": "=A2", "A2": "=A3", "A3": "=4"}, false},
		{"two cells", map[string]string{"A1": "=B1", "B1": "=A1"}, true},
		{"self", map[string]string{"A1": "=A1+1"}, true},
		{"range self inclusion", map[string]string{"A2": "=SUM(A1:A3)"}, true},
		{"through range", map[string]string{"A1": "=SUM(B1:B3)", "B2": "=A1"}, true},
		{"range beside", map[string]string{"A1": "=SUM(B1:B3)", "B2": "=C1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dg := NewDependencyGraph()
			for ref, formula := range tt.formulas {
				dg.CommitEdges(mustID(t, ref), EdgeSet{}, stage(t, formula))
			}
			if got := dg.HasCycle(); got != tt.cycle {
				t.Errorf("HasCycle() = %v, want %v", got, tt.cycle)
			}
		})
	}
}

func TestObserversOf(t *testing.T) {
	dg := NewDependencyGraph()
	dg.CommitEdges(mustID(t, "Z1"), EdgeSet{}, stage(t, "=SUM(A1:A9)"))
	dg.CommitEdges(mustID(t, "Z2"), EdgeSet{}, stage(t, "=AVG(A1:A9)"))
	r := Range{Start: mustID(t, "A1"), End: mustID(t, "A9")}
	if got := refs(dg.ObserversOf(r)); !slices.Equal(got, []string{"Z1", "Z2"}) {
		t.Errorf("ObserversOf = %v", got)
	}
	if !dg.IsInRange(mustID(t, "A5"), r) || dg.IsInRange(mustID(t, "B5"), r) {
		t.Error("IsInRange mismatch")
	}
	dg.Clear()
	if dg.RangeObserverCount() != 0 {
		t.Error("Clear left observers behind")
	}
}

func TestDependentsThroughRangeIndex(t *testing.T) {
	dg := NewDependencyGraph()
	dg.CommitEdges(mustID(t, "Z1"), EdgeSet{}, stage(t, "=SUM(A1:A9)"))
	dg.CommitEdges(mustID(t, "Z2"), EdgeSet{}, stage(t, "=SUM(A100:B200)"))
	dg.CommitEdges(mustID(t, "Z3"), EdgeSet{}, stage(t, "=SUM(A1:ZZZ999)"))
	dg.CommitEdges(mustID(t, "Z4"), EdgeSet{}, stage(t, "=SUM(B2:A1)"))

	tests := []struct {
		cell string
		want []string
	}{
		{"A5", []string{"Z1", "Z3"}},
		{"A150", []string{"Z2", "Z3"}},
		{"B199", []string{"Z2", "Z3"}},
		{"C150", []string{"Z3"}},
		{"A1", []string{"Z1", "Z3"}},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			if got := refs(dg.Dependents(mustID(t, tt.cell))); !slices.Equal(got, tt.want) {
				t.Errorf("Dependents(%s) = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}

	if len(dg.wideRanges) != 1 {
		t.Errorf("wide ranges = %d, want 1", len(dg.wideRanges))
	}

	for _, ref := range []string{"Z1", "Z2", "Z3", "Z4"} {
		id := mustID(t, ref)
		dg.CommitEdges(id, dg.Edges(id), EdgeSet{})
	}
	if len(dg.rangeChunks) != 0 || len(dg.wideRanges) != 0 || dg.RangeObserverCount() != 0 {
		t.Errorf("range index not emptied: %d chunks, %d wide, %d observed",
			len(dg.rangeChunks), len(dg.wideRanges), dg.RangeObserverCount())
	}
}

package spreadsheet

import (
	"slices"
	"testing"
)

func TestStorageSparse(t *testing.T) {
	s := NewStorage()
	a1 := mustID(t, "A1")
	if got := s.Get(a1); got != Number(0) {
		t.Errorf("absent cell = %v, want 0", got)
	}

	s.Set(a1, &NumberNode{Value: 3}, Number(3))
	if got := s.Get(a1); got != Number(3) {
		t.Errorf("A1 = %v", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}

	s.SetValue(mustID(t, "B1"), Number(9))
	if _, ok := s.Lookup(mustID(t, "B1")); ok {
		t.Error("SetValue must not materialize absent cells")
	}

	if !s.Remove(a1) || s.Remove(a1) {
		t.Error("Remove should report presence once")
	}
	if s.Len() != 0 || len(s.chunks) != 0 {
		t.Errorf("store not empty after remove: %d cells, %d chunks", s.Len(), len(s.chunks))
	}
}

func TestStorageInternsText(t *testing.T) {
	s := NewStorage()
	s.Set(mustID(t, "A1"), &StringNode{Value: "hi"}, Text("hi"))
	s.Set(mustID(t, "A2"), &StringNode{Value: "hi"}, Text("hi"))
	if s.strings.Count() != 1 {
		t.Errorf("interned strings = %d, want 1", s.strings.Count())
	}
	id := s.strings.strings["hi"]
	if got, ok := s.strings.GetString(id); !ok || got != "hi" {
		t.Errorf("GetString(%d) = %q, %v; want \"hi\", true", id, got, ok)
	}
	if n := s.strings.GetReferenceCount(id); n != 2 {
		t.Errorf("reference count = %d, want 2", n)
	}

	s.SetValue(mustID(t, "A1"), Number(1))
	if n := s.strings.GetReferenceCount(id); n != 1 {
		t.Errorf("reference count = %d after overwrite, want 1", n)
	}
	s.Remove(mustID(t, "A2"))
	if s.strings.Count() != 0 {
		t.Errorf("interned strings = %d after release, want 0", s.strings.Count())
	}
	if _, ok := s.strings.GetString(id); ok {
		t.Errorf("GetString(%d) still resolves after release", id)
	}
}

func TestStorageWithin(t *testing.T) {
	s := NewStorage()
	refs := []string{"A1", "B2", "BM70", "ZZ999", "C3"}
	for _, ref := range refs {
		s.Set(mustID(t, ref), &NumberNode{Value: 1}, Number(1))
	}

	collect := func(r Range) []string {
		var out []string
		for cell := range s.Within(r) {
			out = append(out, cell.ID.String())
		}
		slices.Sort(out)
		return out
	}

	tests := []struct {
		start, end string
		want       []string
	}{
		{"A1", "C3", []string{"A1", "B2", "C3"}},
		{"B2", "BM70", []string{"B2", "BM70", "C3"}},
		{"A1", "ZZZ999", []string{"A1", "B2", "BM70", "C3", "ZZ999"}},
		{"D4", "BL69", nil},
		{"C3", "A1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.start+":"+tt.end, func(t *testing.T) {
			r := Range{Start: mustID(t, tt.start), End: mustID(t, tt.end)}
			if got := collect(r); !slices.Equal(got, tt.want) {
				t.Errorf("Within = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStorageAllIsRowMajor(t *testing.T) {
	s := NewStorage()
	for _, ref := range []string{"C2", "A2", "ZZ1", "B1"} {
		s.Set(mustID(t, ref), &NumberNode{Value: 1}, Number(1))
	}
	var got []string
	for cell := range s.All() {
		got = append(got, cell.ID.String())
	}
	want := []string{"B1", "ZZ1", "A2", "C2"}
	if !slices.Equal(got, want) {
		t.Errorf("All() = %v, want %v", got, want)
	}
}

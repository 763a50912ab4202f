package spreadsheet

import (
	"errors"
	"testing"
)

func TestColumnNames(t *testing.T) {
	tests := []struct {
		col  uint32
		name string
	}{
		{1, "A"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{1000, "ALL"},
		{18278, "ZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ColumnName(tt.col); got != tt.name {
				t.Errorf("ColumnName(%d) = %q, want %q", tt.col, got, tt.name)
			}
			got, ok := ColumnIndex(tt.name)
			if !ok || got != tt.col {
				t.Errorf("ColumnIndex(%q) = %d, %v; want %d", tt.name, got, ok, tt.col)
			}
		})
	}

	if col, ok := ColumnIndex("zz"); !ok || col != 702 {
		t.Errorf("ColumnIndex is case-insensitive, got %d", col)
	}
	if col, _ := ColumnIndex("AAAAAAAA"); col != MaxCols+1 {
		t.Errorf("oversized column = %d, want %d", col, MaxCols+1)
	}
}

func TestEncodeDecode(t *testing.T) {
	b := DefaultBounds()
	corners := [][2]uint32{{1, 1}, {1, MaxCols}, {MaxRows, 1}, {MaxRows, MaxCols}, {500, 9000}}
	for _, c := range corners {
		id, err := Encode(c[0], c[1], b)
		if err != nil {
			t.Fatalf("Encode(%d, %d): %v", c[0], c[1], err)
		}
		row, col := id.Decode()
		if row != c[0] || col != c[1] {
			t.Errorf("Decode(Encode(%d, %d)) = %d, %d", c[0], c[1], row, col)
		}
	}

	for _, c := range [][2]uint32{{0, 1}, {1, 0}, {MaxRows + 1, 1}, {1, MaxCols + 1}} {
		if _, err := Encode(c[0], c[1], b); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Encode(%d, %d) = %v, want ErrOutOfBounds", c[0], c[1], err)
		}
	}
}

func TestCellIDOrdering(t *testing.T) {
	a1, _ := ParseCellID("A1", DefaultBounds())
	zzz1, _ := ParseCellID("ZZZ1", DefaultBounds())
	a2, _ := ParseCellID("A2", DefaultBounds())
	if !(a1 < zzz1 && zzz1 < a2) {
		t.Errorf("ids are not row-major: A1=%d ZZZ1=%d A2=%d", a1, zzz1, a2)
	}
}

func TestParseCellID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		err  error
	}{
		{"A1", "A1", nil},
		{"b12", "B12", nil},
		{"ZZZ999", "ZZZ999", nil},
		{"A0", "", ErrOutOfBounds},
		{"A1000", "", ErrOutOfBounds},
		{"AAAA1", "", ErrOutOfBounds},
		{"A99999999999", "", ErrOutOfBounds},
		{"1A", "", ErrInvalidReference},
		{"A", "", ErrInvalidReference},
		{"12", "", ErrInvalidReference},
		{"A1B", "", ErrInvalidReference},
		{"", "", ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			id, err := ParseCellID(tt.ref, DefaultBounds())
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("ParseCellID(%q) error = %v, want %v", tt.ref, err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if id.String() != tt.want {
				t.Errorf("ParseCellID(%q) = %s, want %s", tt.ref, id, tt.want)
			}
		})
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{}.clamp()
	if b != DefaultBounds() {
		t.Errorf("zero bounds clamp to %v", b)
	}
	b = Bounds{Rows: 5000, Cols: 3}.clamp()
	if b.Rows != MaxRows || b.Cols != 3 {
		t.Errorf("clamp = %v", b)
	}
}

func TestOffset(t *testing.T) {
	b := Bounds{Rows: 10, Cols: 10}
	id, _ := ParseCellID("B2", b)
	if got, ok := id.Offset(1, 2, b); !ok || got.String() != "D3" {
		t.Errorf("B2 offset (1,2) = %s, %v", got, ok)
	}
	if _, ok := id.Offset(-2, 0, b); ok {
		t.Error("offset above row 1 should fail")
	}
	if _, ok := id.Offset(0, 9, b); ok {
		t.Error("offset past the last column should fail")
	}
}

func TestRange(t *testing.T) {
	r := Range{Start: mustID(t, "B2"), End: mustID(t, "D5")}
	if !r.Valid() || r.Area() != 12 {
		t.Errorf("B2:D5 valid=%v area=%d", r.Valid(), r.Area())
	}
	for ref, want := range map[string]bool{"B2": true, "D5": true, "C3": true, "A2": false, "E5": false, "B6": false} {
		if got := r.Contains(mustID(t, ref)); got != want {
			t.Errorf("Contains(%s) = %v, want %v", ref, got, want)
		}
	}

	inverted := Range{Start: mustID(t, "B2"), End: mustID(t, "A1")}
	if inverted.Valid() || inverted.Area() != 0 {
		t.Error("B2:A1 should be inverted with no area")
	}
	if inverted.String() != "B2:A1" {
		t.Errorf("String() = %s", inverted)
	}
	if (Range{Start: mustID(t, "A2"), End: mustID(t, "B1")}).Valid() {
		t.Error("A2:B1 is inverted on rows")
	}
}

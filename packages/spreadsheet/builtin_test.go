package spreadsheet

import (
	"math"
	"testing"
	"time"
)

func storageOf(t *testing.T, values map[string]Value) *Storage {
	t.Helper()
	s := NewStorage()
	for ref, v := range values {
		s.Set(mustID(t, ref), &NumberNode{}, v)
	}
	return s
}

func TestLookupRangeFunc(t *testing.T) {
	tests := map[string]RangeFunc{
		"SUM":     FuncSum,
		"sum":     FuncSum,
		"Avg":     FuncAvg,
		"AVERAGE": FuncAvg,
		"MAX":     FuncMax,
		"MIN":     FuncMin,
		"STDEV":   FuncStdev,
	}
	for name, want := range tests {
		got, ok := LookupRangeFunc(name)
		if !ok || got != want {
			t.Errorf("LookupRangeFunc(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := LookupRangeFunc("COUNT"); ok {
		t.Error("COUNT is not a range function")
	}
}

func TestRangeAggregates(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()
	storage := storageOf(t, map[string]Value{
		"A1": Number(1),
		"A2": Number(2),
		"A3": Number(3),
		"A4": Number(4),
		"C1": Number(-3),
		"C3": Number(-1),
	})
	full := Range{Start: mustID(t, "A1"), End: mustID(t, "A4")}
	sparse := Range{Start: mustID(t, "C1"), End: mustID(t, "C4")}
	empty := Range{Start: mustID(t, "E1"), End: mustID(t, "F9")}

	tests := []struct {
		name string
		fn   RangeFunc
		r    Range
		want Value
	}{
		{"sum", FuncSum, full, Number(10)},
		{"avg", FuncAvg, full, Number(2.5)},
		{"max", FuncMax, full, Number(4)},
		{"min", FuncMin, full, Number(1)},
		{"stdev", FuncStdev, full, Number(math.Sqrt(1.25))},
		{"sparse sum", FuncSum, sparse, Number(-4)},
		{"sparse avg", FuncAvg, sparse, Number(-1)},
		{"sparse max", FuncMax, sparse, Number(0)},
		{"sparse min", FuncMin, sparse, Number(-3)},
		{"sparse stdev", FuncStdev, sparse, Number(math.Sqrt(1.5))},
		{"empty sum", FuncSum, empty, Number(0)},
		{"empty avg", FuncAvg, empty, Error(ErrorCodeDiv0)},
		{"empty max", FuncMax, empty, Number(0)},
		{"empty min", FuncMin, empty, Number(0)},
		{"empty stdev", FuncStdev, empty, Error(ErrorCodeDiv0)},
		{"inverted", FuncSum, Range{Start: full.End, End: full.Start}, Error(ErrorCodeRef)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bf.Evaluate(storage, tt.fn, tt.r)
			if got.Kind != tt.want.Kind || got.Err != tt.want.Err || math.Abs(got.Num-tt.want.Num) > 1e-12 {
				t.Errorf("%v(%v) = %v, want %v", tt.fn, tt.r, got, tt.want)
			}
		})
	}
}

func TestRangeAggregatesRejectNonNumbers(t *testing.T) {
	bf := NewDefaultBuiltInFunctions()
	r := Range{Start: mustID(t, "A1"), End: mustID(t, "A2")}

	withText := storageOf(t, map[string]Value{"A1": Number(1), "A2": Text("x")})
	if got := bf.Evaluate(withText, FuncSum, r); got != Error(ErrorCodeValue) {
		t.Errorf("text in range = %v", got)
	}
	withError := storageOf(t, map[string]Value{"A1": Number(1), "A2": Error(ErrorCodeDiv0)})
	if got := bf.Evaluate(withError, FuncMax, r); got != Error(ErrorCodePropagated) {
		t.Errorf("error in range = %v", got)
	}
}

func TestSleepLimit(t *testing.T) {
	clock := &fakeClock{}
	bf := &BuiltInFunctions{clock: clock, sleepLimit: time.Second}
	bf.Sleep(0.25)
	bf.Sleep(0)
	bf.Sleep(-3)
	bf.Sleep(math.NaN())
	bf.Sleep(60)
	want := []time.Duration{250 * time.Millisecond, time.Second}
	if len(clock.slept) != 2 || clock.slept[0] != want[0] || clock.slept[1] != want[1] {
		t.Errorf("slept %v, want %v", clock.slept, want)
	}
}

package spreadsheet

import (
	"math"
	"strings"
	"time"
)

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

func (w *WallClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// RangeFunc identifies one of the range aggregates
type RangeFunc uint8

const (
	FuncSum RangeFunc = iota
	FuncAvg
	FuncMax
	FuncMin
	FuncStdev
)

var rangeFuncNames = map[string]RangeFunc{
	"SUM":     FuncSum,
	"AVG":     FuncAvg,
	"AVERAGE": FuncAvg,
	"MAX":     FuncMax,
	"MIN":     FuncMin,
	"STDEV":   FuncStdev,
}

func (f RangeFunc) String() string {
	switch f {
	case FuncSum:
		return "SUM"
	case FuncAvg:
		return "AVG"
	case FuncMax:
		return "MAX"
	case FuncMin:
		return "MIN"
	case FuncStdev:
		return "STDEV"
	default:
		return "UNKNOWN"
	}
}

// LookupRangeFunc resolves a function name, case-insensitively
func LookupRangeFunc(name string) (RangeFunc, bool) {
	fn, ok := rangeFuncNames[strings.ToUpper(name)]
	return fn, ok
}

// BuiltInFunctions evaluates the range aggregates and SLEEP
type BuiltInFunctions struct {
	clock      Clock
	sleepLimit time.Duration
}

// NewDefaultBuiltInFunctions creates a BuiltInFunctions on the wall clock.
// SLEEP is a no-op until a limit is set.
func NewDefaultBuiltInFunctions() *BuiltInFunctions {
	return &BuiltInFunctions{
		clock: &WallClock{},
	}
}

// rangeStats is a single pass over the active cells of a range
type rangeStats struct {
	area   int // cells in the rectangle, active or not
	count  int // active cells
	sum    float64
	max    float64
	min    float64
	values []float64
	err    ErrorCode
}

func collectRange(storage *Storage, r Range) rangeStats {
	stats := rangeStats{area: r.Area()}
	for cell := range storage.Within(r) {
		v := cell.Value
		switch v.Kind {
		case KindError:
			stats.err = ErrorCodePropagated
			return stats
		case KindText:
			stats.err = ErrorCodeValue
			return stats
		}
		if stats.count == 0 || v.Num > stats.max {
			stats.max = v.Num
		}
		if stats.count == 0 || v.Num < stats.min {
			stats.min = v.Num
		}
		stats.sum += v.Num
		stats.values = append(stats.values, v.Num)
		stats.count++
	}
	return stats
}

// zeros is the number of unassigned cells, each reading as 0
func (s rangeStats) zeros() int {
	return s.area - s.count
}

// Evaluate aggregates r with fn. an inverted range is a reference error,
// an error or text cell inside the range makes the result an error.
func (bf *BuiltInFunctions) Evaluate(storage *Storage, fn RangeFunc, r Range) Value {
	if !r.Valid() {
		return Error(ErrorCodeRef)
	}
	stats := collectRange(storage, r)
	if stats.err != ErrorCodeNone {
		return Error(stats.err)
	}

	switch fn {
	case FuncSum:
		return bf.SUM(stats)
	case FuncAvg:
		return bf.AVG(stats)
	case FuncMax:
		return bf.MAX(stats)
	case FuncMin:
		return bf.MIN(stats)
	case FuncStdev:
		return bf.STDEV(stats)
	default:
		return Error(ErrorCodeValue)
	}
}

func (bf *BuiltInFunctions) SUM(stats rangeStats) Value {
	return Finite(stats.sum)
}

// AVG divides by the full area of the range, so unassigned cells pull the
// mean towards zero
func (bf *BuiltInFunctions) AVG(stats rangeStats) Value {
	if stats.count == 0 {
		return Error(ErrorCodeDiv0)
	}
	return Finite(stats.sum / float64(stats.area))
}

func (bf *BuiltInFunctions) MAX(stats rangeStats) Value {
	if stats.count == 0 {
		return Number(0)
	}
	if stats.zeros() > 0 && stats.max < 0 {
		return Number(0)
	}
	return Number(stats.max)
}

func (bf *BuiltInFunctions) MIN(stats rangeStats) Value {
	if stats.count == 0 {
		return Number(0)
	}
	if stats.zeros() > 0 && stats.min > 0 {
		return Number(0)
	}
	return Number(stats.min)
}

// STDEV is the population standard deviation over the whole area
func (bf *BuiltInFunctions) STDEV(stats rangeStats) Value {
	if stats.count == 0 {
		return Error(ErrorCodeDiv0)
	}
	n := float64(stats.area)
	mean := stats.sum / n

	// second pass; every unassigned cell contributes mean^2
	squares := float64(stats.zeros()) * mean * mean
	for _, v := range stats.values {
		d := v - mean
		squares += d * d
	}
	return Finite(math.Sqrt(squares / n))
}

// Sleep blocks for the given number of seconds, capped at the configured
// limit. negative and zero durations return at once.
func (bf *BuiltInFunctions) Sleep(seconds float64) {
	if bf.sleepLimit <= 0 || !(seconds > 0) {
		return
	}
	d := bf.sleepLimit
	if seconds < bf.sleepLimit.Seconds() {
		d = time.Duration(seconds * float64(time.Second))
	}
	bf.clock.Sleep(d)
}

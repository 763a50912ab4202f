package spreadsheet

import (
	"math"
	"strconv"
)

// ValueKind tags the variant held by a Value
type ValueKind uint8

const (
	KindNumber ValueKind = 0 // zero value, so Value{} is the implicit zero
	KindText   ValueKind = 1
	KindError  ValueKind = 2
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorCode represents the runtime error a cell can hold, following
// spreadsheet display conventions
type ErrorCode uint8

const (
	ErrorCodeNone       ErrorCode = 0
	ErrorCodeDiv0       ErrorCode = 1 // #DIV/0! - division by zero, AVG/STDEV of an empty range
	ErrorCodeValue      ErrorCode = 2 // #VALUE! - text where a number is needed
	ErrorCodeRef        ErrorCode = 3 // #REF! - range with inverted bounds
	ErrorCodePropagated ErrorCode = 4 // #ERROR! - an operand already held an error
	ErrorCodeNum        ErrorCode = 5 // #NUM! - result overflowed to infinity or NaN
)

// ErrorMapper maps error codes to their display strings
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeDiv0:       "#DIV/0!",
	ErrorCodeValue:      "#VALUE!",
	ErrorCodeRef:        "#REF!",
	ErrorCodePropagated: "#ERROR!",
	ErrorCodeNum:        "#NUM!",
}

func (c ErrorCode) String() string {
	if s, ok := ErrorMapper[c]; ok {
		return s
	}
	return "#ERROR!"
}

// Value is a resolved cell value. exactly one of Num, Text or Err is
// meaningful, selected by Kind.
type Value struct {
	Kind ValueKind `cbor:"1,keyasint"`
	Num  float64   `cbor:"2,keyasint,omitempty"`
	Text string    `cbor:"3,keyasint,omitempty"`
	Err  ErrorCode `cbor:"4,keyasint,omitempty"`
}

// Number builds a numeric value
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// Finite builds a numeric value, or #NUM! when n is infinite or NaN
func Finite(n float64) Value {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return Error(ErrorCodeNum)
	}
	return Number(n)
}

// Text builds a text value
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// Error builds an error value
func Error(code ErrorCode) Value {
	return Value{Kind: KindError, Err: code}
}

// IsError reports whether v holds an error
func (v Value) IsError() bool {
	return v.Kind == KindError
}

// String renders the value for display
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Num)
	case KindText:
		return v.Text
	case KindError:
		return v.Err.String()
	default:
		return ""
	}
}

// formatNumber prints integral values without a decimal point
func formatNumber(n float64) string {
	if n < 1e15 && n > -1e15 && n == math.Trunc(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Cell is an explicitly assigned cell. cells that were never assigned are
// not stored and read as Number(0).
type Cell struct {
	ID      CellID  // packed coordinate of this cell
	Formula ASTNode // parsed formula, literals for constant cells
	Value   Value   // last computed value
	textID  uint32  // string table ID when Value is text
}

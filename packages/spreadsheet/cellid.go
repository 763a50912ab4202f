package spreadsheet

import (
	"errors"
	"fmt"
	"strconv"
)

// CellID is a bit-packed cell coordinate. the row sits above the low 15
// column bits, so numeric order is row-major order. rows and columns are
// 1-based, which keeps the zero value from naming a real cell.
type CellID uint32

const (
	MaxRows uint32 = 999   // largest addressable row
	MaxCols uint32 = 18278 // largest addressable column (ZZZ)

	colBits        = 15
	colMask uint32 = 1<<colBits - 1
)

var (
	// ErrOutOfBounds is returned when a coordinate falls outside the
	// configured sheet bounds
	ErrOutOfBounds = errors.New("cell out of bounds")

	// ErrInvalidReference is returned when text is not an A1-style reference
	ErrInvalidReference = errors.New("invalid cell reference")
)

// Bounds are the configured sheet maxima. a sheet may be configured smaller
// than MaxRows x MaxCols, never larger.
type Bounds struct {
	Rows uint32
	Cols uint32
}

// DefaultBounds returns the full addressable space
func DefaultBounds() Bounds {
	return Bounds{Rows: MaxRows, Cols: MaxCols}
}

// Contains reports whether row and col (1-based) fall inside the bounds
func (b Bounds) Contains(row, col uint32) bool {
	return row >= 1 && row <= b.Rows && col >= 1 && col <= b.Cols
}

// clamp limits b to the addressable space, filling zero fields with the maxima
func (b Bounds) clamp() Bounds {
	if b.Rows == 0 || b.Rows > MaxRows {
		b.Rows = MaxRows
	}
	if b.Cols == 0 || b.Cols > MaxCols {
		b.Cols = MaxCols
	}
	return b
}

// Encode packs a 1-based (row, col) pair into a CellID
func Encode(row, col uint32, b Bounds) (CellID, error) {
	if !b.Contains(row, col) {
		return 0, fmt.Errorf("%w: row %d, column %d", ErrOutOfBounds, row, col)
	}
	return CellID(row<<colBits | col), nil
}

// Decode is the exact inverse of Encode
func (id CellID) Decode() (row, col uint32) {
	return uint32(id) >> colBits, uint32(id) & colMask
}

// Row returns the 1-based row
func (id CellID) Row() uint32 {
	return uint32(id) >> colBits
}

// Col returns the 1-based column
func (id CellID) Col() uint32 {
	return uint32(id) & colMask
}

// Offset moves the id by dr rows and dc columns. the second result is false
// when the target leaves the bounds.
func (id CellID) Offset(dr, dc int, b Bounds) (CellID, bool) {
	row := int64(id.Row()) + int64(dr)
	col := int64(id.Col()) + int64(dc)
	if row < 1 || col < 1 || row > int64(b.Rows) || col > int64(b.Cols) {
		return 0, false
	}
	return CellID(uint32(row)<<colBits | uint32(col)), true
}

// String renders the id in A1 notation
func (id CellID) String() string {
	row, col := id.Decode()
	return ColumnName(col) + strconv.FormatUint(uint64(row), 10)
}

// ColumnName converts a 1-based column index to letters (1 -> A, 27 -> AA)
func ColumnName(col uint32) string {
	var buf [8]byte
	i := len(buf)
	for col > 0 {
		col--
		i--
		buf[i] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[i:])
}

// ColumnIndex converts column letters to a 1-based index. letters are
// case-insensitive. the second result is false for empty or non-letter input.
// indexes past MaxCols are reported as MaxCols+1 so callers can surface an
// out-of-bounds error instead of overflowing.
func ColumnIndex(letters string) (uint32, bool) {
	if letters == "" {
		return 0, false
	}
	var col uint32
	for i := 0; i < len(letters); i++ {
		ch := letters[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= 'a' && ch <= 'z':
			ch -= 'a' - 'A'
		default:
			return 0, false
		}
		col = col*26 + uint32(ch-'A'+1)
		if col > MaxCols {
			col = MaxCols + 1
		}
	}
	return col, true
}

// splitReference separates "AB12" into its letter and digit parts
func splitReference(ref string) (letters, digits string, ok bool) {
	letterEnd := 0
	for letterEnd < len(ref) {
		ch := ref[letterEnd]
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd++
			continue
		}
		break
	}
	if letterEnd == 0 || letterEnd == len(ref) {
		return "", "", false
	}
	for i := letterEnd; i < len(ref); i++ {
		if ref[i] < '0' || ref[i] > '9' {
			return "", "", false
		}
	}
	return ref[:letterEnd], ref[letterEnd:], true
}

// ParseCellID parses an A1-style reference. malformed text wraps
// ErrInvalidReference, coordinates outside b wrap ErrOutOfBounds.
func ParseCellID(ref string, b Bounds) (CellID, error) {
	letters, digits, ok := splitReference(ref)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	col, _ := ColumnIndex(letters)
	row, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		// only overflow can fail here, digits were checked above
		return 0, fmt.Errorf("%w: %q", ErrOutOfBounds, ref)
	}
	if !b.Contains(uint32(row), col) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfBounds, ref)
	}
	return CellID(uint32(row)<<colBits | col), nil
}

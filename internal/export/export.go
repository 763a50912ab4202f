// Package export moves sheets in and out of CSV and XLSX files. exports
// cover the rectangle from A1 to the last active row and column; imports
// yield load sources that the caller applies with Sheet.Load.
package export

import (
	"errors"
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Mode selects what an export writes for each cell
type Mode uint8

const (
	// ModeValues writes computed values
	ModeValues Mode = iota
	// ModeFormulas writes canonical formula text, which imports back to
	// the same sheet
	ModeFormulas
)

func (m Mode) String() string {
	switch m {
	case ModeValues:
		return "values"
	case ModeFormulas:
		return "formulas"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode from its name
func ParseMode(name string) (Mode, error) {
	switch name {
	case "values":
		return ModeValues, nil
	case "formulas":
		return ModeFormulas, nil
	default:
		return 0, fmt.Errorf("unknown export mode: %q", name)
	}
}

// ErrTooLarge is returned when an imported file does not fit the sheet
var ErrTooLarge = errors.New("import exceeds sheet bounds")

// extent returns the last active row and column, zero for an empty sheet
func extent(sheet *spreadsheet.Sheet) (rows, cols uint32) {
	for record := range sheet.ActiveCells() {
		row, col := record.ID.Decode()
		rows = max(rows, row)
		cols = max(cols, col)
	}
	return rows, cols
}

// grid lays the active cells out row by row. absent cells are "".
func grid(sheet *spreadsheet.Sheet, mode Mode) [][]string {
	rows, cols := extent(sheet)
	out := make([][]string, rows)
	for i := range out {
		out[i] = make([]string, cols)
	}
	for record := range sheet.ActiveCells() {
		row, col := record.ID.Decode()
		if mode == ModeFormulas {
			out[row-1][col-1] = record.Formula
		} else {
			out[row-1][col-1] = record.Value.String()
		}
	}
	return out
}

// source converts a 0-based grid position into a load source
func source(bounds spreadsheet.Bounds, row, col int, text string) (spreadsheet.Source, error) {
	id, err := spreadsheet.Encode(uint32(row+1), uint32(col+1), bounds)
	if err != nil {
		return spreadsheet.Source{}, fmt.Errorf("%w: %v", ErrTooLarge, err)
	}
	return spreadsheet.Source{Ref: id.String(), Text: text}, nil
}

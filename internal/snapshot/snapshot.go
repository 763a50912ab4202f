package snapshot

import (
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Version is the payload layout written by Encode
const Version = 1

// Cell is one active cell: its reference, canonical text and the value it
// held when captured
type Cell struct {
	Ref     string            `cbor:"1,keyasint"`
	Formula string            `cbor:"2,keyasint"`
	Value   spreadsheet.Value `cbor:"3,keyasint"`
}

// Snapshot is a whole sheet at one revision
type Snapshot struct {
	Version  uint8  `cbor:"1,keyasint"`
	Rows     uint32 `cbor:"2,keyasint"`
	Cols     uint32 `cbor:"3,keyasint"`
	Revision uint64 `cbor:"4,keyasint"`
	Cells    []Cell `cbor:"5,keyasint"`
}

// Capture records every active cell of sheet in row-major order
func Capture(sheet *spreadsheet.Sheet) *Snapshot {
	bounds := sheet.Bounds()
	snap := &Snapshot{
		Version:  Version,
		Rows:     bounds.Rows,
		Cols:     bounds.Cols,
		Revision: sheet.Revision(),
		Cells:    make([]Cell, 0, sheet.Len()),
	}
	for record := range sheet.ActiveCells() {
		snap.Cells = append(snap.Cells, Cell{
			Ref:     record.Ref,
			Formula: record.Formula,
			Value:   record.Value,
		})
	}
	return snap
}

// Sources returns the cells as load input
func (s *Snapshot) Sources() []spreadsheet.Source {
	sources := make([]spreadsheet.Source, len(s.Cells))
	for i, c := range s.Cells {
		sources[i] = spreadsheet.Source{Ref: c.Ref, Text: c.Formula}
	}
	return sources
}

// Restore replaces the contents of sheet with snap. values are recomputed
// from the formulas; the sheet is unchanged when the load is rejected.
func Restore(sheet *spreadsheet.Sheet, snap *Snapshot) error {
	return sheet.Load(snap.Sources())
}

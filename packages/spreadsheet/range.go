package spreadsheet

// Range is a rectangle of cells given by its two corners as written. a
// range whose start lies after its end on either axis is inverted and
// evaluates to a #REF! error rather than being reordered.
type Range struct {
	Start CellID
	End   CellID
}

// Valid reports whether the corners are ordered on both axes
func (r Range) Valid() bool {
	return r.Start.Row() <= r.End.Row() && r.Start.Col() <= r.End.Col()
}

// Contains is the O(1) membership test used by the range index and the
// range functions
func (r Range) Contains(id CellID) bool {
	row, col := id.Decode()
	return row >= r.Start.Row() && row <= r.End.Row() &&
		col >= r.Start.Col() && col <= r.End.Col()
}

// Area returns the number of addressable cells in the range, 0 when inverted
func (r Range) Area() int {
	if !r.Valid() {
		return 0
	}
	rows := int(r.End.Row() - r.Start.Row() + 1)
	cols := int(r.End.Col() - r.Start.Col() + 1)
	return rows * cols
}

// String renders the range as START:END
func (r Range) String() string {
	return r.Start.String() + ":" + r.End.String()
}

// overlapsChunk reports whether the range intersects the chunk at key
func (r Range) overlapsChunk(key ChunkKey) bool {
	top := key.ChunkRow * ChunkRows
	left := key.ChunkCol * ChunkCols
	bottom := top + ChunkRows - 1
	right := left + ChunkCols - 1

	// chunk coordinates are 0-based, cell coordinates 1-based
	startRow, startCol := r.Start.Row()-1, r.Start.Col()-1
	endRow, endCol := r.End.Row()-1, r.End.Col()-1

	return startRow <= bottom && endRow >= top && startCol <= right && endCol >= left
}

package spreadsheet

import (
	"iter"
	"slices"
)

// ChunkKey addresses a block of ChunkRows x ChunkCols cells. chunks only
// bucket cell IDs for range scans; cell records live in one flat map.
type ChunkKey struct {
	ChunkRow uint32
	ChunkCol uint32
}

const (
	ChunkRows uint32 = 64 // rows per chunk
	ChunkCols uint32 = 64 // columns per chunk
)

func chunkOf(id CellID) ChunkKey {
	row, col := id.Decode()
	return ChunkKey{ChunkRow: (row - 1) / ChunkRows, ChunkCol: (col - 1) / ChunkCols}
}

// Storage is the sparse cell store. only explicitly assigned cells are
// present; everything else reads as Number(0).
//
// architecture:
// - cells are kept in a map keyed by packed CellID
// - a second map buckets IDs by chunk so a range scan visits only the
// populated chunks it overlaps
// - text values are interned through a StringTable
type Storage struct {
	cells   map[CellID]*Cell
	chunks  map[ChunkKey]map[CellID]struct{}
	strings *StringTable
}

// NewStorage creates an empty store
func NewStorage() *Storage {
	return &Storage{
		cells:   make(map[CellID]*Cell),
		chunks:  make(map[ChunkKey]map[CellID]struct{}),
		strings: NewStringTable(),
	}
}

// Get returns the value at id, Number(0) when the cell is absent
func (s *Storage) Get(id CellID) Value {
	if cell, exists := s.cells[id]; exists {
		return cell.Value
	}
	return Value{}
}

// Lookup returns the stored cell record if present
func (s *Storage) Lookup(id CellID) (*Cell, bool) {
	cell, exists := s.cells[id]
	return cell, exists
}

// Set inserts or overwrites the cell at id
func (s *Storage) Set(id CellID, formula ASTNode, value Value) *Cell {
	cell, exists := s.cells[id]
	if !exists {
		cell = &Cell{ID: id}
		s.cells[id] = cell

		key := chunkOf(id)
		bucket := s.chunks[key]
		if bucket == nil {
			bucket = make(map[CellID]struct{})
			s.chunks[key] = bucket
		}
		bucket[id] = struct{}{}
	}
	cell.Formula = formula
	s.setValue(cell, value)
	return cell
}

// SetValue replaces the computed value of an existing cell. absent cells
// are left alone since recompute never materializes cells.
func (s *Storage) SetValue(id CellID, value Value) {
	if cell, exists := s.cells[id]; exists {
		s.setValue(cell, value)
	}
}

func (s *Storage) setValue(cell *Cell, value Value) {
	if cell.textID != 0 {
		s.strings.RemoveReference(cell.textID)
		cell.textID = 0
	}
	if value.Kind == KindText {
		cell.textID, value.Text = s.strings.Intern(value.Text)
	}
	cell.Value = value
}

// Remove deletes the cell at id, returning it to the implicit zero
func (s *Storage) Remove(id CellID) bool {
	cell, exists := s.cells[id]
	if !exists {
		return false
	}
	if cell.textID != 0 {
		s.strings.RemoveReference(cell.textID)
	}
	delete(s.cells, id)

	key := chunkOf(id)
	if bucket := s.chunks[key]; bucket != nil {
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(s.chunks, key)
		}
	}
	return true
}

// Len returns the number of active cells
func (s *Storage) Len() int {
	return len(s.cells)
}

// All yields every active cell in row-major order
func (s *Storage) All() iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		ids := make([]CellID, 0, len(s.cells))
		for id := range s.cells {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(s.cells[id]) {
				return
			}
		}
	}
}

// Within yields the active cells inside r in no particular order. cost is
// bounded by the populated chunks, never by the area of r.
func (s *Storage) Within(r Range) iter.Seq[*Cell] {
	return func(yield func(*Cell) bool) {
		if !r.Valid() {
			return
		}
		for key, bucket := range s.chunks {
			if !r.overlapsChunk(key) {
				continue
			}
			for id := range bucket {
				if !r.Contains(id) {
					continue
				}
				if !yield(s.cells[id]) {
					return
				}
			}
		}
	}
}

// Clear drops every cell
func (s *Storage) Clear() {
	s.cells = make(map[CellID]*Cell)
	s.chunks = make(map[ChunkKey]map[CellID]struct{})
	s.strings = NewStringTable()
}

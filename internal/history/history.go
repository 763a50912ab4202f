// Package history records edits to a sheet so they can be undone and
// redone. each entry holds the canonical text of the edited cell before
// and after the edit; undoing writes the old text back through the normal
// edit path, so dependents recompute exactly as for any other edit.
package history

import (
	"errors"
	"log/slog"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// DefaultDepth is the number of edits kept when none is configured
const DefaultDepth = 100

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Edit is one recorded change to a single cell. an empty Before or After
// means the cell was absent.
type Edit struct {
	Ref    string
	Before string
	After  string
}

// History wraps a sheet, recording every successful edit made through it.
// edits made to the sheet directly are not recorded; callers that mix the
// two should Reset the history afterwards.
type History struct {
	sheet  *spreadsheet.Sheet
	undo   []Edit
	redo   []Edit
	depth  int
	logger *slog.Logger
}

// New creates a history over sheet keeping at most depth edits
func New(sheet *spreadsheet.Sheet, depth int, logger *slog.Logger) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &History{
		sheet:  sheet,
		depth:  depth,
		logger: logger,
	}
}

// Sheet returns the wrapped sheet
func (h *History) Sheet() *spreadsheet.Sheet {
	return h.sheet
}

// Apply sets ref to text and records the edit. a rejected edit returns the
// sheet's error and records nothing. a successful edit drops the redo stack.
func (h *History) Apply(ref, text string) error {
	id, err := h.sheet.Resolve(ref)
	if err != nil {
		return err
	}
	before := h.sheet.FormulaTextOf(id)
	if err := h.sheet.Set(id, text); err != nil {
		return err
	}
	after := h.sheet.FormulaTextOf(id)
	if before == after {
		return nil
	}

	h.push(Edit{Ref: id.String(), Before: before, After: after})
	h.redo = h.redo[:0]
	return nil
}

func (h *History) push(e Edit) {
	if len(h.undo) == h.depth {
		// oldest edit falls off
		copy(h.undo, h.undo[1:])
		h.undo = h.undo[:len(h.undo)-1]
	}
	h.undo = append(h.undo, e)
}

// Undo reverts the most recent edit and returns it. when the revert is
// rejected, as can happen after the sheet was edited around the history,
// the entry stays on the undo stack.
func (h *History) Undo() (Edit, error) {
	if len(h.undo) == 0 {
		return Edit{}, ErrNothingToUndo
	}
	e := h.undo[len(h.undo)-1]
	if err := h.sheet.SetCell(e.Ref, e.Before); err != nil {
		h.logger.Warn("undo rejected", "cell", e.Ref, "error", err)
		return Edit{}, err
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, e)
	h.logger.Debug("undo", "cell", e.Ref, "text", e.Before)
	return e, nil
}

// Redo reapplies the most recently undone edit and returns it
func (h *History) Redo() (Edit, error) {
	if len(h.redo) == 0 {
		return Edit{}, ErrNothingToRedo
	}
	e := h.redo[len(h.redo)-1]
	if err := h.sheet.SetCell(e.Ref, e.After); err != nil {
		h.logger.Warn("redo rejected", "cell", e.Ref, "error", err)
		return Edit{}, err
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.push(e)
	h.logger.Debug("redo", "cell", e.Ref, "text", e.After)
	return e, nil
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the sizes of the undo and redo stacks
func (h *History) Len() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Reset forgets every recorded edit
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

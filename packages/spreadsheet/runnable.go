package spreadsheet

import (
	"fmt"
	"log/slog"
)

// RunnableSheet provides a chainable interface for scripting a sheet. the
// first failing step stops the chain; later steps are no-ops until Reset.
type RunnableSheet struct {
	sheet  *Sheet
	err    error
	logger *slog.Logger
}

// NewRunnableSheet wraps a new sheet. logger receives Log and CheckError
// output and may be nil.
func NewRunnableSheet(logger *slog.Logger, opts ...Option) *RunnableSheet {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunnableSheet{
		sheet:  NewSheet(opts...),
		logger: logger,
	}
}

// Set sets a cell (chainable)
func (r *RunnableSheet) Set(ref, text string) *RunnableSheet {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	r.err = r.sheet.SetCell(ref, text)
	return r
}

// Clear clears a cell (chainable)
func (r *RunnableSheet) Clear(ref string) *RunnableSheet {
	if r.err != nil {
		return r
	}
	r.err = r.sheet.Clear(ref)
	return r
}

// SetBatch applies edits in order (chainable)
func (r *RunnableSheet) SetBatch(edits []Source) *RunnableSheet {
	for _, edit := range edits {
		if r.err != nil {
			break
		}
		r.err = r.sheet.SetCell(edit.Ref, edit.Text)
	}
	return r
}

// Run returns the sheet and the first error of the chain
func (r *RunnableSheet) Run() (*Sheet, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sheet, nil
}

// Error returns the current error state
func (r *RunnableSheet) Error() error {
	return r.err
}

// CheckError logs the current error state (chainable)
func (r *RunnableSheet) CheckError() *RunnableSheet {
	if r.err != nil {
		r.logger.Error("chain failed", "status", StatusOf(r.err), "error", r.err)
	} else {
		r.logger.Info("no errors")
	}
	return r
}

// Sheet returns the underlying sheet. use with caution as it bypasses
// error tracking.
func (r *RunnableSheet) Sheet() *Sheet {
	return r.sheet
}

// Reset clears the error state (chainable)
func (r *RunnableSheet) Reset() *RunnableSheet {
	r.err = nil
	return r
}

// Then runs fn unless the chain has already failed
func (r *RunnableSheet) Then(fn func(*RunnableSheet) *RunnableSheet) *RunnableSheet {
	if r.err != nil {
		return r
	}
	return fn(r)
}

// OnError allows error handling in the chain
func (r *RunnableSheet) OnError(fn func(error) error) *RunnableSheet {
	if r.err != nil {
		r.err = fn(r.err)
	}
	return r
}

// Must panics if there's an error (chainable)
func (r *RunnableSheet) Must() *RunnableSheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// Value returns the value at ref, ignoring the chain's error state.
// example: v := NewRunnableSheet(nil).Set("A1", "10").Set("A2", "=A1*2").Value("A2")
func (r *RunnableSheet) Value(ref string) Value {
	v, err := r.sheet.Value(ref)
	if err != nil {
		return Error(ErrorCodeRef)
	}
	return v
}

// Log logs the value and formula at ref (chainable)
func (r *RunnableSheet) Log(ref string) *RunnableSheet {
	text, err := r.sheet.FormulaText(ref)
	if err != nil {
		r.logger.Warn("log failed", "cell", ref, "error", err)
		return r
	}
	r.logger.Info(fmt.Sprintf("%s = %s", ref, r.Value(ref)), "formula", text)
	return r
}

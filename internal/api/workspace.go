package api

import (
	"log/slog"
	"sync"

	"github.com/vogtb/go-spreadsheet/internal/history"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Workspace serializes access to one sheet and its edit history. every
// handler takes the lock for the whole request, so readers never observe
// a half-applied recalculation.
type Workspace struct {
	mu      sync.Mutex
	history *history.History
	logger  *slog.Logger
}

// NewWorkspace wraps sheet with a history of the given depth
func NewWorkspace(sheet *spreadsheet.Sheet, depth int, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Workspace{
		history: history.New(sheet, depth, logger),
		logger:  logger,
	}
}

// Do runs fn with exclusive access to the sheet and its history
func (ws *Workspace) Do(fn func(sheet *spreadsheet.Sheet, h *history.History) error) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return fn(ws.history.Sheet(), ws.history)
}

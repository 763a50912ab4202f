// Package api provides the HTTP interface to a shared sheet.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vogtb/go-spreadsheet/internal/export"
	"github.com/vogtb/go-spreadsheet/internal/history"
	"github.com/vogtb/go-spreadsheet/internal/store"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// maxEditBody bounds the request body of a cell edit
const maxEditBody = 64 * 1024

// RouterConfig contains router configuration
type RouterConfig struct {
	Workspace   *Workspace
	Exports     *ExportCache
	Store       *store.Store // optional; workbook routes are omitted when nil
	CORSOrigins []string
}

// NewRouter creates a new HTTP router
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/cells", cellsHandler(cfg.Workspace))
		r.Get("/cells/{ref}", cellHandler(cfg.Workspace))
		r.Put("/cells/{ref}", setCellHandler(cfg.Workspace))
		r.Delete("/cells/{ref}", clearCellHandler(cfg.Workspace))

		r.Post("/undo", undoHandler(cfg.Workspace))
		r.Post("/redo", redoHandler(cfg.Workspace))

		r.Get("/export.csv", exportHandler(cfg.Workspace, cfg.Exports, "csv"))
		r.Get("/export.xlsx", exportHandler(cfg.Workspace, cfg.Exports, "xlsx"))

		if cfg.Store != nil {
			r.Route("/workbooks", func(r chi.Router) {
				r.Get("/", listWorkbooksHandler(cfg.Store))
				r.Put("/{name}", saveWorkbookHandler(cfg.Workspace, cfg.Store))
				r.Post("/{name}/load", loadWorkbookHandler(cfg.Workspace, cfg.Store))
				r.Delete("/{name}", deleteWorkbookHandler(cfg.Store))
			})
		}
	})

	return r
}

// cellResponse is the JSON form of one cell
type cellResponse struct {
	Ref     string `json:"ref"`
	Kind    string `json:"kind"`
	Value   any    `json:"value"`
	Display string `json:"display"`
	Formula string `json:"formula"`
}

func newCellResponse(ref string, v spreadsheet.Value, formula string) cellResponse {
	resp := cellResponse{
		Ref:     ref,
		Kind:    v.Kind.String(),
		Display: v.String(),
		Formula: formula,
	}
	if v.Kind == spreadsheet.KindNumber {
		resp.Value = v.Num
	} else {
		resp.Value = v.String()
	}
	return resp
}

// editResponse reports the outcome of an edit
type editResponse struct {
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Cell     *cellResponse `json:"cell,omitempty"`
	Revision uint64        `json:"revision"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// editStatusCode maps an edit outcome to its HTTP status
func editStatusCode(status spreadsheet.Status) int {
	switch status {
	case spreadsheet.StatusOK:
		return http.StatusOK
	case spreadsheet.StatusCycleDetected:
		return http.StatusConflict
	case spreadsheet.StatusRefError:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeEdit(w http.ResponseWriter, sheet *spreadsheet.Sheet, ref string, err error) {
	if err != nil && !spreadsheet.IsRejection(err) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	status := spreadsheet.StatusOf(err)
	resp := editResponse{Status: status.String(), Revision: sheet.Revision()}
	if err != nil {
		resp.Error = err.Error()
	} else if id, resolveErr := sheet.Resolve(ref); resolveErr == nil {
		cell := newCellResponse(id.String(), sheet.Get(id), sheet.FormulaTextOf(id))
		resp.Cell = &cell
	}
	writeJSON(w, editStatusCode(status), resp)
}

func cellsHandler(ws *Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cells := []cellResponse{}
		ws.Do(func(sheet *spreadsheet.Sheet, _ *history.History) error {
			for record := range sheet.ActiveCells() {
				cells = append(cells, newCellResponse(record.Ref, record.Value, record.Formula))
			}
			return nil
		})
		writeJSON(w, http.StatusOK, cells)
	}
}

func cellHandler(ws *Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "ref")
		var resp cellResponse
		err := ws.Do(func(sheet *spreadsheet.Sheet, _ *history.History) error {
			id, err := sheet.Resolve(ref)
			if err != nil {
				return err
			}
			resp = newCellResponse(id.String(), sheet.Get(id), sheet.FormulaTextOf(id))
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// setCellRequest is the body of PUT /api/cells/{ref}. a missing text
// field clears the cell.
type setCellRequest struct {
	Text string `json:"text"`
}

func setCellHandler(ws *Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "ref")
		var req setCellRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxEditBody)).Decode(&req); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		ws.Do(func(sheet *spreadsheet.Sheet, h *history.History) error {
			writeEdit(w, sheet, ref, h.Apply(ref, req.Text))
			return nil
		})
	}
}

func clearCellHandler(ws *Workspace) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := chi.URLParam(r, "ref")
		ws.Do(func(sheet *spreadsheet.Sheet, h *history.History) error {
			writeEdit(w, sheet, ref, h.Apply(ref, ""))
			return nil
		})
	}
}

func undoHandler(ws *Workspace) http.HandlerFunc {
	return historyHandler(ws, (*history.History).Undo, history.ErrNothingToUndo)
}

func redoHandler(ws *Workspace) http.HandlerFunc {
	return historyHandler(ws, (*history.History).Redo, history.ErrNothingToRedo)
}

func historyHandler(ws *Workspace, step func(*history.History) (history.Edit, error), empty error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws.Do(func(sheet *spreadsheet.Sheet, h *history.History) error {
			e, err := step(h)
			if errors.Is(err, empty) {
				writeJSON(w, http.StatusConflict, editResponse{
					Status:   spreadsheet.StatusOK.String(),
					Error:    err.Error(),
					Revision: sheet.Revision(),
				})
				return nil
			}
			writeEdit(w, sheet, e.Ref, err)
			return nil
		})
	}
}

var contentTypes = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// exportHandler renders the sheet in format. ?mode=values (default) or
// ?mode=formulas selects what each cell carries.
func exportHandler(ws *Workspace, exports *ExportCache, format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		modeName := r.URL.Query().Get("mode")
		if modeName == "" {
			modeName = export.ModeValues.String()
		}
		mode, err := export.ParseMode(modeName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var body []byte
		err = ws.Do(func(sheet *spreadsheet.Sheet, _ *history.History) error {
			key := ExportKey(format, mode.String(), sheet.Revision())
			if exports != nil {
				if data, ok := exports.Get(key); ok {
					body = data
					return nil
				}
			}

			var buf bytes.Buffer
			var err error
			if format == "xlsx" {
				err = export.WriteXLSX(&buf, sheet, mode)
			} else {
				err = export.WriteCSV(&buf, sheet, mode)
			}
			if err != nil {
				return err
			}
			body = buf.Bytes()
			if exports != nil {
				if err := exports.Set(key, body); err != nil {
					ws.logger.Warn("export not cached", "key", key, "error", err)
				}
			}
			return nil
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypes[format])
		w.Header().Set("Content-Disposition", `attachment; filename="sheet.`+format+`"`)
		w.Write(body)
	}
}

// workbookResponse is the JSON form of a stored workbook
type workbookResponse struct {
	Name        string `json:"name"`
	Digest      string `json:"digest"`
	Cells       int    `json:"cells"`
	Revision    uint64 `json:"revision"`
	Compression string `json:"compression"`
	Size        int    `json:"size"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func newWorkbookResponse(wb *store.Workbook) workbookResponse {
	return workbookResponse{
		Name:        wb.Name,
		Digest:      wb.Digest,
		Cells:       wb.Cells,
		Revision:    wb.Revision,
		Compression: wb.Compression.String(),
		Size:        wb.Size,
		CreatedAt:   wb.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   wb.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func listWorkbooksHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workbooks, err := st.List()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp := make([]workbookResponse, 0, len(workbooks))
		for i := range workbooks {
			resp = append(resp, newWorkbookResponse(&workbooks[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func saveWorkbookHandler(ws *Workspace, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		var wb *store.Workbook
		err := ws.Do(func(sheet *spreadsheet.Sheet, _ *history.History) error {
			var err error
			wb, err = st.Save(name, sheet)
			return err
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, newWorkbookResponse(wb))
	}
}

func loadWorkbookHandler(ws *Workspace, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		ws.Do(func(sheet *spreadsheet.Sheet, h *history.History) error {
			err := st.Load(name, sheet)
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return nil
			}
			if err == nil {
				// recorded edits refer to the replaced contents
				h.Reset()
			}
			writeEdit(w, sheet, "", err)
			return nil
		})
	}
}

func deleteWorkbookHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := st.Delete(chi.URLParam(r, "name"))
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

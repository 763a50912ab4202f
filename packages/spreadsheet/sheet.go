package spreadsheet

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
)

// Status is the outcome of one edit
type Status uint8

const (
	StatusOK Status = iota
	StatusCycleDetected
	StatusParseError
	StatusRefError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCycleDetected:
		return "cycle detected"
	case StatusParseError:
		return "parse error"
	case StatusRefError:
		return "invalid range"
	default:
		return "unknown"
	}
}

var (
	// ErrCycleDetected is returned when an edit would close a dependency cycle
	ErrCycleDetected = errors.New("cycle detected")

	// ErrParse is returned for malformed formula text
	ErrParse = errors.New("parse error")

	// ErrRef is returned for references outside the sheet
	ErrRef = errors.New("invalid reference")
)

// EditError is a rejected edit. the sheet is unchanged when one is returned.
type EditError struct {
	Status  Status
	Cell    string
	Message string
}

func (e *EditError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Cell, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Cell, e.Status, e.Message)
}

func (e *EditError) Unwrap() error {
	switch e.Status {
	case StatusCycleDetected:
		return ErrCycleDetected
	case StatusRefError:
		return ErrRef
	default:
		return ErrParse
	}
}

// StatusOf maps an error returned by an edit back to its Status. nil is
// StatusOK, errors from outside this package count as parse errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var editErr *EditError
	if errors.As(err, &editErr) {
		return editErr.Status
	}
	switch {
	case errors.Is(err, ErrCycleDetected):
		return StatusCycleDetected
	case errors.Is(err, ErrRef), errors.Is(err, ErrOutOfBounds), errors.Is(err, ErrInvalidReference):
		return StatusRefError
	default:
		return StatusParseError
	}
}

// IsRejection reports whether err is an edit the sheet refused, as opposed
// to a failure from outside the engine
func IsRejection(err error) bool {
	var editErr *EditError
	return errors.As(err, &editErr) ||
		errors.Is(err, ErrCycleDetected) ||
		errors.Is(err, ErrRef) ||
		errors.Is(err, ErrOutOfBounds) ||
		errors.Is(err, ErrInvalidReference)
}

// editState tracks one edit from submission to its outcome
type editState uint8

const (
	editPending editState = iota
	editValidating
	editCommitted
	editRolledBack
)

func (s editState) String() string {
	switch s {
	case editPending:
		return "pending"
	case editValidating:
		return "validating"
	case editCommitted:
		return "committed"
	case editRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// evaluator is what formula nodes see while computing a value
type evaluator struct {
	storage   *Storage
	functions *BuiltInFunctions
}

type options struct {
	logger     *slog.Logger
	bounds     Bounds
	clock      Clock
	cacheSize  int
	sleepLimit time.Duration
}

// Option configures a Sheet
type Option func(*options)

// WithLogger sets the logger used for edit transitions
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBounds limits the sheet to fewer rows or columns than the maxima
func WithBounds(rows, cols uint32) Option {
	return func(o *options) { o.bounds = Bounds{Rows: rows, Cols: cols} }
}

// WithClock replaces the wall clock used by SLEEP
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithParseCacheSize sets how many distinct formula texts stay parsed
func WithParseCacheSize(size int) Option {
	return func(o *options) { o.cacheSize = size }
}

// WithSleepLimit caps a single SLEEP call. zero disables sleeping.
func WithSleepLimit(d time.Duration) Option {
	return func(o *options) { o.sleepLimit = d }
}

// Sheet is the computation engine: it combines storage, parsing,
// dependency tracking and evaluation behind a small edit API. a Sheet is
// not safe for concurrent use; callers serialize edits.
type Sheet struct {
	bounds    Bounds
	storage   *Storage
	graph     *DependencyGraph
	formulas  *FormulaTable
	functions *BuiltInFunctions
	logger    *slog.Logger
	revision  uint64
}

// NewSheet creates an empty sheet
func NewSheet(opts ...Option) *Sheet {
	o := options{bounds: DefaultBounds(), clock: &WallClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	bounds := o.bounds.clamp()

	formulas, err := NewFormulaTable(o.cacheSize, bounds)
	if err != nil {
		// only a non-positive size fails and NewFormulaTable replaces those
		panic(err)
	}

	return &Sheet{
		bounds:    bounds,
		storage:   NewStorage(),
		graph:     NewDependencyGraph(),
		formulas:  formulas,
		functions: &BuiltInFunctions{clock: o.clock, sleepLimit: o.sleepLimit},
		logger:    o.logger,
	}
}

// Bounds returns the configured sheet size
func (s *Sheet) Bounds() Bounds {
	return s.bounds
}

// Revision counts committed edits
func (s *Sheet) Revision() uint64 {
	return s.revision
}

// Len returns the number of active cells
func (s *Sheet) Len() int {
	return s.storage.Len()
}

// Resolve parses an A1 reference against the sheet bounds
func (s *Sheet) Resolve(ref string) (CellID, error) {
	id, err := ParseCellID(strings.TrimSpace(ref), s.bounds)
	if err != nil {
		return 0, &EditError{Status: StatusRefError, Cell: ref, Message: err.Error()}
	}
	return id, nil
}

// SetCell assigns text to the cell at ref. see Set.
func (s *Sheet) SetCell(ref, text string) error {
	id, err := s.Resolve(ref)
	if err != nil {
		s.logger.Info("edit rejected", "cell", ref, "status", StatusRefError)
		return err
	}
	return s.Set(id, text)
}

// Set assigns text to the cell at id. text starting with '=' is a formula,
// numeric text a number and anything else text; blank text clears the cell.
// a rejected edit returns an *EditError and leaves the sheet unchanged.
func (s *Sheet) Set(id CellID, text string) error {
	ref := id.String()
	state := editPending
	s.logger.Debug("edit", "cell", ref, "state", state)

	node, err := s.formulas.Parse(text)
	if err != nil {
		return s.reject(ref, err)
	}
	if node == nil {
		s.clear(id)
		return nil
	}

	state = editValidating
	s.logger.Debug("edit", "cell", ref, "state", state)

	oldEdges := s.graph.Edges(id)
	newEdges := StageEdges(node)
	s.graph.CommitEdges(id, oldEdges, newEdges)

	order, ok := s.graph.CalculationOrder(s.graph.AffectedCells(id))
	if !ok {
		s.graph.CommitEdges(id, newEdges, oldEdges)
		state = editRolledBack
		s.logger.Debug("edit", "cell", ref, "state", state)
		s.logger.Info("edit rejected", "cell", ref, "status", StatusCycleDetected)
		return &EditError{Status: StatusCycleDetected, Cell: ref}
	}

	s.storage.Set(id, node, Value{})
	s.recompute(order)
	s.revision++

	state = editCommitted
	s.logger.Debug("edit", "cell", ref, "state", state, "affected", len(order))
	return nil
}

// Clear returns the cell at ref to the implicit zero
func (s *Sheet) Clear(ref string) error {
	id, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	s.clear(id)
	return nil
}

func (s *Sheet) clear(id CellID) {
	s.graph.CommitEdges(id, s.graph.Edges(id), EdgeSet{})
	s.storage.Remove(id)

	// removing operands can never close a cycle
	order, _ := s.graph.CalculationOrder(s.graph.AffectedCells(id))
	s.recompute(order)
	s.revision++
	s.logger.Debug("cell cleared", "cell", id.String(), "affected", len(order))
}

func (s *Sheet) reject(ref string, err error) error {
	status := StatusParseError
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		status = parseErr.Status
	}
	s.logger.Info("edit rejected", "cell", ref, "status", status, "error", err)
	return &EditError{Status: status, Cell: ref, Message: err.Error()}
}

// recompute evaluates the cells in order, writing each value back before
// any later cell reads it. absent cells are skipped.
func (s *Sheet) recompute(order []CellID) {
	ev := &evaluator{storage: s.storage, functions: s.functions}
	for _, id := range order {
		cell, exists := s.storage.Lookup(id)
		if !exists || cell.Formula == nil {
			continue
		}
		s.storage.SetValue(id, cell.Formula.Eval(ev))
	}
}

// Get returns the value at id, Number(0) for unassigned cells
func (s *Sheet) Get(id CellID) Value {
	return s.storage.Get(id)
}

// Value returns the value at ref
func (s *Sheet) Value(ref string) (Value, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return Value{}, err
	}
	return s.storage.Get(id), nil
}

// FormulaText returns the canonical text of the cell at ref, "" when absent
func (s *Sheet) FormulaText(ref string) (string, error) {
	id, err := s.Resolve(ref)
	if err != nil {
		return "", err
	}
	return s.FormulaTextOf(id), nil
}

// FormulaTextOf returns the canonical text of the cell at id. typing the
// text back into the cell reproduces the same formula.
func (s *Sheet) FormulaTextOf(id CellID) string {
	cell, exists := s.storage.Lookup(id)
	if !exists || cell.Formula == nil {
		return ""
	}
	return canonicalText(cell.Formula)
}

func canonicalText(node ASTNode) string {
	switch n := node.(type) {
	case *NumberNode:
		return formatNumber(n.Value)
	case *StringNode:
		if readsBackAsText(n.Value) {
			return n.Value
		}
		return "=" + n.ToString()
	default:
		return "=" + node.ToString()
	}
}

// readsBackAsText reports whether s typed into a cell would become the
// text constant s
func readsBackAsText(s string) bool {
	if s == "" || s != strings.TrimSpace(s) || s[0] == '=' {
		return false
	}
	_, numeric := parseNumericLiteral(s)
	return !numeric
}

// CellRecord is one active cell as seen by serializers
type CellRecord struct {
	ID      CellID
	Ref     string
	Value   Value
	Formula string
}

// ActiveCells yields every assigned cell in row-major order
func (s *Sheet) ActiveCells() iter.Seq[CellRecord] {
	return func(yield func(CellRecord) bool) {
		for cell := range s.storage.All() {
			record := CellRecord{
				ID:      cell.ID,
				Ref:     cell.ID.String(),
				Value:   cell.Value,
				Formula: canonicalText(cell.Formula),
			}
			if !yield(record) {
				return
			}
		}
	}
}

// Source is one cell of a sheet being loaded
type Source struct {
	Ref  string
	Text string
}

// Load replaces the whole sheet with sources and recomputes once. a load
// containing bad text or a cycle is rejected as a whole and the sheet is
// left as it was. later sources win over earlier ones for the same cell.
func (s *Sheet) Load(sources []Source) error {
	storage := NewStorage()
	graph := NewDependencyGraph()

	for _, src := range sources {
		id, err := s.Resolve(src.Ref)
		if err != nil {
			return err
		}
		node, err := s.formulas.Parse(src.Text)
		if err != nil {
			return s.reject(id.String(), err)
		}
		graph.CommitEdges(id, graph.Edges(id), StageEdges(node))
		if node == nil {
			storage.Remove(id)
			continue
		}
		storage.Set(id, node, Value{})
	}

	cells := make([]CellID, 0, storage.Len())
	for cell := range storage.All() {
		cells = append(cells, cell.ID)
	}
	order, ok := graph.CalculationOrder(cells)
	if !ok {
		s.logger.Info("load rejected", "cells", len(cells), "status", StatusCycleDetected)
		return &EditError{Status: StatusCycleDetected, Cell: "load"}
	}

	s.storage = storage
	s.graph = graph
	s.recompute(order)
	s.revision++
	s.logger.Debug("sheet loaded", "cells", len(cells))
	return nil
}

// Reset drops every cell
func (s *Sheet) Reset() {
	s.storage.Clear()
	s.graph.Clear()
	s.revision++
}

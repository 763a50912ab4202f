// Package store keeps named workbooks in a SQLite database. each workbook
// is a snapshot encoded by the snapshot package; saving under an existing
// name replaces it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vogtb/go-spreadsheet/internal/snapshot"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	_ "modernc.org/sqlite"
)

// timestamps are stored in UTC with a fixed width so they sort as text
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned for a workbook name that is not stored
var ErrNotFound = errors.New("workbook not found")

// Workbook describes a stored workbook
type Workbook struct {
	Name        string
	Digest      string
	Cells       int
	Revision    uint64
	Compression snapshot.CompressionTag
	Size        int // encoded bytes
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store provides persistent storage for workbooks using SQLite
type Store struct {
	db          *sql.DB
	mu          sync.Mutex
	compression snapshot.CompressionTag
	now         func() time.Time
}

// Open opens or creates the database at dbPath. snapshots are written with
// the given compression.
func Open(dbPath string, compression snapshot.CompressionTag) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db, compression: compression, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workbooks (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		digest TEXT NOT NULL,
		cells INTEGER NOT NULL,
		revision INTEGER NOT NULL,
		compression INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workbooks_updated ON workbooks(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores the current contents of sheet under name
func (s *Store) Save(name string, sheet *spreadsheet.Sheet) (*Workbook, error) {
	if name == "" {
		return nil, errors.New("workbook name is empty")
	}
	snap := snapshot.Capture(sheet)
	data, err := snapshot.Encode(snap, s.compression)
	if err != nil {
		return nil, err
	}
	header, err := snapshot.Inspect(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC().Format(timeFormat)
	_, err = s.db.Exec(`
		INSERT INTO workbooks (name, data, digest, cells, revision, compression, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			data = excluded.data,
			digest = excluded.digest,
			cells = excluded.cells,
			revision = excluded.revision,
			compression = excluded.compression,
			updated_at = excluded.updated_at
	`,
		name,
		data,
		header.Digest.String(),
		len(snap.Cells),
		int64(snap.Revision),
		int(header.Compression),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save workbook %q: %w", name, err)
	}
	return s.get(name)
}

// Load replaces the contents of sheet with the workbook stored under name
func (s *Store) Load(name string, sheet *spreadsheet.Sheet) error {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM workbooks WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return err
	}

	snap, err := snapshot.Decode(data)
	if err != nil {
		return fmt.Errorf("workbook %q: %w", name, err)
	}
	return snapshot.Restore(sheet, snap)
}

// Get returns the description of the workbook stored under name
func (s *Store) Get(name string) (*Workbook, error) {
	return s.get(name)
}

func (s *Store) get(name string) (*Workbook, error) {
	row := s.db.QueryRow(`
		SELECT name, digest, cells, revision, compression, length(data), created_at, updated_at
		FROM workbooks WHERE name = ?
	`, name)
	wb, err := scanWorkbook(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return wb, err
}

// List returns every stored workbook, most recently updated first
func (s *Store) List() ([]Workbook, error) {
	rows, err := s.db.Query(`
		SELECT name, digest, cells, revision, compression, length(data), created_at, updated_at
		FROM workbooks ORDER BY updated_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workbooks []Workbook
	for rows.Next() {
		wb, err := scanWorkbook(rows)
		if err != nil {
			return nil, err
		}
		workbooks = append(workbooks, *wb)
	}
	return workbooks, rows.Err()
}

// Delete removes the workbook stored under name
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM workbooks WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkbook(row scanner) (*Workbook, error) {
	var wb Workbook
	var revision int64
	var compression int
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&wb.Name,
		&wb.Digest,
		&wb.Cells,
		&revision,
		&compression,
		&wb.Size,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}
	wb.Revision = uint64(revision)
	wb.Compression = snapshot.CompressionTag(compression)
	wb.CreatedAt, _ = time.Parse(timeFormat, createdAtStr)
	wb.UpdatedAt, _ = time.Parse(timeFormat, updatedAtStr)
	return &wb, nil
}

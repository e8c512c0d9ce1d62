// Package migration imports a legacy single-file note store into the event
// log by replaying creation through the domain aggregates.
package migration

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// LegacyFolder is a folder row from the legacy schema. ParentID is empty for
// top-level folders.
type LegacyFolder struct {
	ID       string
	ParentID string
	Name     string
}

// LegacyNote is a note row from the legacy schema.
type LegacyNote struct {
	ID       string
	FolderID string
	Title    string
	Content  string
	Pinned   bool
}

// Reader supplies legacy records to the pipeline. Implementations are
// read-only; the pipeline never writes to the legacy source.
type Reader interface {
	Folders(ctx context.Context) ([]LegacyFolder, error)
	Notes(ctx context.Context) ([]LegacyNote, error)
}

// SQLiteReader reads the legacy SQLite schema:
//
//	folders(id, name, parent_id)
//	notes(id, folder_id, title, content, pinned)
type SQLiteReader struct {
	db *sql.DB
}

var _ Reader = (*SQLiteReader)(nil)

// NewSQLiteReader opens the legacy database file read-only.
func NewSQLiteReader(path string) (*SQLiteReader, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to open legacy database: %w", err)
	}
	return &SQLiteReader{db: db}, nil
}

// NewSQLiteReaderWithDB wraps an existing connection, used by tests that
// build a legacy fixture in place.
func NewSQLiteReaderWithDB(db *sql.DB) *SQLiteReader {
	return &SQLiteReader{db: db}
}

// Folders returns all legacy folder rows.
func (r *SQLiteReader) Folders(ctx context.Context) ([]LegacyFolder, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, COALESCE(parent_id, '') FROM folders`)
	if err != nil {
		return nil, fmt.Errorf("migration: failed to read folders: %w", err)
	}
	defer rows.Close()

	folders := make([]LegacyFolder, 0)
	for rows.Next() {
		var f LegacyFolder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID); err != nil {
			return nil, fmt.Errorf("migration: failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// Notes returns all legacy note rows.
func (r *SQLiteReader) Notes(ctx context.Context) ([]LegacyNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(folder_id, ''), title, COALESCE(content, ''), COALESCE(pinned, 0)
		FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("migration: failed to read notes: %w", err)
	}
	defer rows.Close()

	notes := make([]LegacyNote, 0)
	for rows.Next() {
		var n LegacyNote
		if err := rows.Scan(&n.ID, &n.FolderID, &n.Title, &n.Content, &n.Pinned); err != nil {
			return nil, fmt.Errorf("migration: failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Close releases the database connection.
func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

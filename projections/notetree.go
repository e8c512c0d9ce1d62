// Package projections contains the Inkwell read models. Each projection is a
// pure fold over the event log and can be dropped and rebuilt at any time.
package projections

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/domain"
)

// NoteTreeProjection maintains the notebook hierarchy and note listing the
// sidebar renders from. Rows are upserted keyed by aggregate ID, so
// re-applying a batch after a crash converges to the same tables.
type NoteTreeProjection struct {
	db *sql.DB
}

var _ inkwell.Projection = (*NoteTreeProjection)(nil)

// NewNoteTreeProjection creates the projection on top of the given database.
// Sharing the event store's SQLite handle keeps the read model in the same
// file as the log.
func NewNoteTreeProjection(db *sql.DB) *NoteTreeProjection {
	return &NoteTreeProjection{db: db}
}

// Name identifies this projection's checkpoint row.
func (p *NoteTreeProjection) Name() string { return "note_tree" }

// HandledEvents lists the event types folded into the tree.
func (p *NoteTreeProjection) HandledEvents() []string {
	return []string{
		"NotebookCreated", "NotebookRenamed", "NotebookMoved", "NotebookDeleted",
		"NoteCreated", "NoteRenamed", "NoteMoved", "NotePinned", "NoteUnpinned", "NoteDeleted",
	}
}

// Initialize creates the read-model tables.
func (p *NoteTreeProjection) Initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS read_notebooks (
			notebook_id TEXT PRIMARY KEY,
			parent_id   TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL,
			deleted     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_read_notebooks_parent ON read_notebooks(parent_id)`,
		`CREATE TABLE IF NOT EXISTS read_notes (
			note_id     TEXT PRIMARY KEY,
			notebook_id TEXT NOT NULL,
			title       TEXT NOT NULL,
			pinned      INTEGER NOT NULL DEFAULT 0,
			deleted     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_read_notes_notebook ON read_notes(notebook_id)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("projections: failed to initialize note_tree: %w", err)
		}
	}
	return nil
}

// Reset truncates the read-model tables.
func (p *NoteTreeProjection) Reset(ctx context.Context) error {
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	for _, table := range []string{"read_notebooks", "read_notes"} {
		if _, err := p.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("projections: failed to reset note_tree: %w", err)
		}
	}
	return nil
}

// Apply folds a single event into the tree tables.
func (p *NoteTreeProjection) Apply(ctx context.Context, event inkwell.StoredEvent) error {
	switch event.Type {
	case "NotebookCreated":
		var e domain.NotebookCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO read_notebooks (notebook_id, parent_id, name, deleted)
			VALUES (?, ?, ?, 0)
			ON CONFLICT (notebook_id) DO UPDATE SET
				parent_id = excluded.parent_id,
				name = excluded.name`,
			e.NotebookID.String(), e.ParentID.String(), e.Name)
		return err

	case "NotebookRenamed":
		var e domain.NotebookRenamed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notebooks SET name = ? WHERE notebook_id = ?`,
			e.Name, e.NotebookID.String())
		return err

	case "NotebookMoved":
		var e domain.NotebookMoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notebooks SET parent_id = ? WHERE notebook_id = ?`,
			e.ParentID.String(), e.NotebookID.String())
		return err

	case "NotebookDeleted":
		var e domain.NotebookDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notebooks SET deleted = 1 WHERE notebook_id = ?`,
			e.NotebookID.String())
		return err

	case "NoteCreated":
		var e domain.NoteCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO read_notes (note_id, notebook_id, title, pinned, deleted)
			VALUES (?, ?, ?, 0, 0)
			ON CONFLICT (note_id) DO UPDATE SET
				notebook_id = excluded.notebook_id,
				title = excluded.title`,
			e.NoteID.String(), e.NotebookID.String(), e.Title)
		return err

	case "NoteRenamed":
		var e domain.NoteRenamed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notes SET title = ? WHERE note_id = ?`,
			e.Title, e.NoteID.String())
		return err

	case "NoteMoved":
		var e domain.NoteMoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notes SET notebook_id = ? WHERE note_id = ?`,
			e.NotebookID.String(), e.NoteID.String())
		return err

	case "NotePinned":
		var e domain.NotePinned
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notes SET pinned = 1 WHERE note_id = ?`, e.NoteID.String())
		return err

	case "NoteUnpinned":
		var e domain.NoteUnpinned
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notes SET pinned = 0 WHERE note_id = ?`, e.NoteID.String())
		return err

	case "NoteDeleted":
		var e domain.NoteDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_notes SET deleted = 1 WHERE note_id = ?`, e.NoteID.String())
		return err
	}

	return nil
}

// NotebookRow is a row in the notebook tree read model.
type NotebookRow struct {
	NotebookID string
	ParentID   string
	Name       string
	Deleted    bool
}

// NoteRow is a row in the note listing read model.
type NoteRow struct {
	NoteID     string
	NotebookID string
	Title      string
	Pinned     bool
	Deleted    bool
}

// Notebooks returns all live notebooks ordered by name.
func (p *NoteTreeProjection) Notebooks(ctx context.Context) ([]NotebookRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT notebook_id, parent_id, name, deleted
		FROM read_notebooks
		WHERE deleted = 0
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("projections: failed to query notebooks: %w", err)
	}
	defer rows.Close()

	out := make([]NotebookRow, 0)
	for rows.Next() {
		var row NotebookRow
		if err := rows.Scan(&row.NotebookID, &row.ParentID, &row.Name, &row.Deleted); err != nil {
			return nil, fmt.Errorf("projections: failed to scan notebook row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// NotesInNotebook returns the live notes of a notebook, pinned first.
func (p *NoteTreeProjection) NotesInNotebook(ctx context.Context, notebookID string) ([]NoteRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT note_id, notebook_id, title, pinned, deleted
		FROM read_notes
		WHERE notebook_id = ? AND deleted = 0
		ORDER BY pinned DESC, title`, notebookID)
	if err != nil {
		return nil, fmt.Errorf("projections: failed to query notes: %w", err)
	}
	defer rows.Close()

	out := make([]NoteRow, 0)
	for rows.Next() {
		var row NoteRow
		if err := rows.Scan(&row.NoteID, &row.NotebookID, &row.Title, &row.Pinned, &row.Deleted); err != nil {
			return nil, fmt.Errorf("projections: failed to scan note row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountRows returns the number of live notebook and note rows.
func (p *NoteTreeProjection) CountRows(ctx context.Context) (notebooks, notes int64, err error) {
	if err = p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM read_notebooks WHERE deleted = 0`).Scan(&notebooks); err != nil {
		return 0, 0, fmt.Errorf("projections: failed to count notebooks: %w", err)
	}
	if err = p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM read_notes WHERE deleted = 0`).Scan(&notes); err != nil {
		return 0, 0, fmt.Errorf("projections: failed to count notes: %w", err)
	}
	return notebooks, notes, nil
}

package projections

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/domain"
)

// TodoStatsProjection tracks checklist completion per note. It keeps one row
// per todo item rather than denormalized counters: upserting rows keyed by
// todo_id stays correct when a batch is re-applied after a crash, where a
// counter increment would double-count.
type TodoStatsProjection struct {
	db *sql.DB
}

var _ inkwell.Projection = (*TodoStatsProjection)(nil)

// NewTodoStatsProjection creates the projection on top of the given database.
func NewTodoStatsProjection(db *sql.DB) *TodoStatsProjection {
	return &TodoStatsProjection{db: db}
}

// Name identifies this projection's checkpoint row.
func (p *TodoStatsProjection) Name() string { return "todo_stats" }

// HandledEvents lists the event types folded into the stats.
func (p *TodoStatsProjection) HandledEvents() []string {
	return []string{"TodoAdded", "TodoCompleted", "TodoReopened", "TodoRemoved", "NoteDeleted"}
}

// Initialize creates the read-model table.
func (p *TodoStatsProjection) Initialize(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS read_todos (
			todo_id TEXT PRIMARY KEY,
			note_id TEXT NOT NULL,
			text    TEXT NOT NULL,
			done    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_read_todos_note ON read_todos(note_id)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("projections: failed to initialize todo_stats: %w", err)
		}
	}
	return nil
}

// Reset truncates the read-model table.
func (p *TodoStatsProjection) Reset(ctx context.Context) error {
	if err := p.Initialize(ctx); err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM read_todos`); err != nil {
		return fmt.Errorf("projections: failed to reset todo_stats: %w", err)
	}
	return nil
}

// Apply folds a single event into the todo table.
func (p *TodoStatsProjection) Apply(ctx context.Context, event inkwell.StoredEvent) error {
	switch event.Type {
	case "TodoAdded":
		var e domain.TodoAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO read_todos (todo_id, note_id, text, done)
			VALUES (?, ?, ?, 0)
			ON CONFLICT (todo_id) DO UPDATE SET
				note_id = excluded.note_id,
				text = excluded.text`,
			e.TodoID.String(), e.NoteID.String(), e.Text)
		return err

	case "TodoCompleted":
		var e domain.TodoCompleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_todos SET done = 1 WHERE todo_id = ?`, e.TodoID.String())
		return err

	case "TodoReopened":
		var e domain.TodoReopened
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`UPDATE read_todos SET done = 0 WHERE todo_id = ?`, e.TodoID.String())
		return err

	case "TodoRemoved":
		var e domain.TodoRemoved
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`DELETE FROM read_todos WHERE todo_id = ?`, e.TodoID.String())
		return err

	case "NoteDeleted":
		var e domain.NoteDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return fmt.Errorf("projections: bad %s payload: %w", event.Type, err)
		}
		_, err := p.db.ExecContext(ctx,
			`DELETE FROM read_todos WHERE note_id = ?`, e.NoteID.String())
		return err
	}

	return nil
}

// TodoStats is the open/done breakdown for one note.
type TodoStats struct {
	NoteID string
	Open   int64
	Done   int64
}

// StatsForNote returns the checklist breakdown for a single note.
func (p *TodoStatsProjection) StatsForNote(ctx context.Context, noteID string) (TodoStats, error) {
	stats := TodoStats{NoteID: noteID}
	err := p.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN done = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN done = 1 THEN 1 ELSE 0 END), 0)
		FROM read_todos
		WHERE note_id = ?`, noteID).Scan(&stats.Open, &stats.Done)
	if err != nil {
		return TodoStats{}, fmt.Errorf("projections: failed to query todo stats: %w", err)
	}
	return stats, nil
}

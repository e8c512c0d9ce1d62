package projections

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-notes/inkwell"
	"github.com/inkwell-notes/inkwell/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "read.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedEvent(t *testing.T, position uint64, event interface{ EventType() string }) inkwell.StoredEvent {
	t.Helper()

	data, err := json.Marshal(event)
	require.NoError(t, err)

	return inkwell.StoredEvent{
		Type:           event.EventType(),
		Data:           data,
		StreamPosition: position,
	}
}

func TestNoteTreeProjection(t *testing.T) {
	t.Run("folds notebook and note events", func(t *testing.T) {
		db := newTestDB(t)
		p := NewNoteTreeProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		nbID := domain.NewNotebookID()
		noteID := domain.NewNoteID()

		events := []inkwell.StoredEvent{
			storedEvent(t, 1, domain.NotebookCreated{NotebookID: nbID, Name: "Work"}),
			storedEvent(t, 2, domain.NoteCreated{NoteID: noteID, NotebookID: nbID, Title: "standup"}),
			storedEvent(t, 3, domain.NotePinned{NoteID: noteID}),
			storedEvent(t, 4, domain.NoteRenamed{NoteID: noteID, Title: "standup notes"}),
		}
		for _, event := range events {
			require.NoError(t, p.Apply(ctx, event))
		}

		notebooks, err := p.Notebooks(ctx)
		require.NoError(t, err)
		require.Len(t, notebooks, 1)
		assert.Equal(t, "Work", notebooks[0].Name)

		notes, err := p.NotesInNotebook(ctx, nbID.String())
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "standup notes", notes[0].Title)
		assert.True(t, notes[0].Pinned)
	})

	t.Run("re-applying a batch is idempotent", func(t *testing.T) {
		db := newTestDB(t)
		p := NewNoteTreeProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		nbID := domain.NewNotebookID()
		noteID := domain.NewNoteID()
		events := []inkwell.StoredEvent{
			storedEvent(t, 1, domain.NotebookCreated{NotebookID: nbID, Name: "Work"}),
			storedEvent(t, 2, domain.NoteCreated{NoteID: noteID, NotebookID: nbID, Title: "standup"}),
		}

		for i := 0; i < 2; i++ {
			for _, event := range events {
				require.NoError(t, p.Apply(ctx, event))
			}
		}

		notebooks, notes, err := p.CountRows(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), notebooks)
		assert.Equal(t, int64(1), notes)
	})

	t.Run("deleted rows disappear from queries", func(t *testing.T) {
		db := newTestDB(t)
		p := NewNoteTreeProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		nbID := domain.NewNotebookID()
		noteID := domain.NewNoteID()
		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.NotebookCreated{NotebookID: nbID, Name: "Work"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 2, domain.NoteCreated{NoteID: noteID, NotebookID: nbID, Title: "standup"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 3, domain.NoteDeleted{NoteID: noteID})))

		notes, err := p.NotesInNotebook(ctx, nbID.String())
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("reset empties the tables", func(t *testing.T) {
		db := newTestDB(t)
		p := NewNoteTreeProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.NotebookCreated{NotebookID: domain.NewNotebookID(), Name: "Work"})))
		require.NoError(t, p.Reset(ctx))

		notebooks, notes, err := p.CountRows(ctx)
		require.NoError(t, err)
		assert.Zero(t, notebooks)
		assert.Zero(t, notes)
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		db := newTestDB(t)
		p := NewNoteTreeProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		err := p.Apply(ctx, inkwell.StoredEvent{Type: "NoteCreated", Data: []byte(`{bad`), StreamPosition: 1})

		assert.Error(t, err)
	})
}

func TestTodoStatsProjection(t *testing.T) {
	t.Run("counts open and done todos per note", func(t *testing.T) {
		db := newTestDB(t)
		p := NewTodoStatsProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		noteID := domain.NewNoteID()
		a, b := domain.NewTodoID(), domain.NewTodoID()

		events := []inkwell.StoredEvent{
			storedEvent(t, 1, domain.TodoAdded{NoteID: noteID, TodoID: a, Text: "milk"}),
			storedEvent(t, 2, domain.TodoAdded{NoteID: noteID, TodoID: b, Text: "eggs"}),
			storedEvent(t, 3, domain.TodoCompleted{NoteID: noteID, TodoID: a}),
		}
		for _, event := range events {
			require.NoError(t, p.Apply(ctx, event))
		}

		stats, err := p.StatsForNote(ctx, noteID.String())
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Open)
		assert.Equal(t, int64(1), stats.Done)
	})

	t.Run("re-applying a batch does not double-count", func(t *testing.T) {
		db := newTestDB(t)
		p := NewTodoStatsProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		noteID := domain.NewNoteID()
		todoID := domain.NewTodoID()
		events := []inkwell.StoredEvent{
			storedEvent(t, 1, domain.TodoAdded{NoteID: noteID, TodoID: todoID, Text: "milk"}),
			storedEvent(t, 2, domain.TodoCompleted{NoteID: noteID, TodoID: todoID}),
		}

		for i := 0; i < 2; i++ {
			for _, event := range events {
				require.NoError(t, p.Apply(ctx, event))
			}
		}

		stats, err := p.StatsForNote(ctx, noteID.String())
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.Open)
		assert.Equal(t, int64(1), stats.Done)
	})

	t.Run("deleting the note drops its todos", func(t *testing.T) {
		db := newTestDB(t)
		p := NewTodoStatsProjection(db)
		ctx := context.Background()
		require.NoError(t, p.Reset(ctx))

		noteID := domain.NewNoteID()
		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.TodoAdded{NoteID: noteID, TodoID: domain.NewTodoID(), Text: "milk"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 2, domain.NoteDeleted{NoteID: noteID})))

		stats, err := p.StatsForNote(ctx, noteID.String())
		require.NoError(t, err)
		assert.Zero(t, stats.Open)
		assert.Zero(t, stats.Done)
	})
}

func TestRecentNotesProjection(t *testing.T) {
	t.Run("orders by latest position", func(t *testing.T) {
		p := NewRecentNotesProjection(10)
		ctx := context.Background()

		first := domain.NewNoteID()
		second := domain.NewNoteID()

		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.NoteCreated{NoteID: first, Title: "older"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 2, domain.NoteCreated{NoteID: second, Title: "newer"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 3, domain.NoteContentChanged{NoteID: first, Content: "x"})))

		recent := p.Recent()
		require.Len(t, recent, 2)
		assert.Equal(t, "older", recent[0].Title)
		assert.Equal(t, "newer", recent[1].Title)
	})

	t.Run("stale positions never overwrite newer ones", func(t *testing.T) {
		p := NewRecentNotesProjection(10)
		ctx := context.Background()
		noteID := domain.NewNoteID()

		require.NoError(t, p.Apply(ctx, storedEvent(t, 5, domain.NoteRenamed{NoteID: noteID, Title: "new title"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 5, domain.NoteRenamed{NoteID: noteID, Title: "new title"})))

		recent := p.Recent()
		require.Len(t, recent, 1)
		assert.Equal(t, uint64(5), recent[0].LastPosition)
	})

	t.Run("limit caps the list", func(t *testing.T) {
		p := NewRecentNotesProjection(2)
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			require.NoError(t, p.Apply(ctx, storedEvent(t, uint64(i), domain.NoteCreated{
				NoteID: domain.NewNoteID(), Title: "n",
			})))
		}

		assert.Len(t, p.Recent(), 2)
		assert.Equal(t, 5, p.Len())
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		p := NewRecentNotesProjection(10)
		ctx := context.Background()
		noteID := domain.NewNoteID()

		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.NoteCreated{NoteID: noteID, Title: "n"})))
		require.NoError(t, p.Apply(ctx, storedEvent(t, 2, domain.NoteDeleted{NoteID: noteID})))

		assert.Empty(t, p.Recent())
	})

	t.Run("reset clears everything", func(t *testing.T) {
		p := NewRecentNotesProjection(10)
		ctx := context.Background()

		require.NoError(t, p.Apply(ctx, storedEvent(t, 1, domain.NoteCreated{NoteID: domain.NewNoteID(), Title: "n"})))
		require.NoError(t, p.Reset(ctx))

		assert.Zero(t, p.Len())
	})
}
